// Package units implements the work units behind the orchestrator.
//
// Every unit embeds agent.Base, registers its op handlers in its
// constructor, and reaches the outside world only through Deps. RegisterAll
// is the single registration table; nothing self-registers.
//
// Units:
//   - scraper: fetches postings from career pages and job boards
//   - matcher: scores posting-profile fit and filters
//   - resume-tailor: rebuilds the resume around a posting
//   - cover-letter: drafts cover letters through the draft port
//   - form-filler: maps profile data onto application forms
//   - qa: answers common application questions
//   - tracker: application records, status transitions, timelines
//   - digest: daily/weekly summaries and reports
//   - profile: owner profiles, preferences, and filters
//   - resume-parser: extracts structure from resume text
package units
