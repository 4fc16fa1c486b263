package units

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/records"
)

// Section headers are short lines; anything longer is body text even when
// it contains a header word.
const maxHeaderLen = 50

var sectionPatterns = map[string]*regexp.Regexp{
	"summary":        regexp.MustCompile(`(?i)^\s*(summary|objective|profile|about)\b`),
	"experience":     regexp.MustCompile(`(?i)^\s*(experience|employment|work history|professional background)\b`),
	"education":      regexp.MustCompile(`(?i)^\s*(education|academic|qualifications)\b`),
	"skills":         regexp.MustCompile(`(?i)^\s*(skills|technologies|technical skills|competencies)\b`),
	"certifications": regexp.MustCompile(`(?i)^\s*(certifications?|licenses?)\b`),
	"projects":       regexp.MustCompile(`(?i)^\s*(projects?|portfolio)\b`),
}

var (
	dateRangePattern = regexp.MustCompile(`(?i)(\d{4}|[A-Za-z]+\s*\d{4})\s*(?:-|–|to)\s*(\d{4}|[A-Za-z]+\s*\d{4}|present|current)`)
	rolePattern      = regexp.MustCompile(`^([\w\s]+?)\s*(?:\bat\b|@|-|,)\s*([\w\s&.]+)`)
	bulletPattern    = regexp.MustCompile(`^\s*(?:[•\-*–]|\d+\.)\s*(.+)$`)
	degreePattern    = regexp.MustCompile(`(?i)\b(bachelor|master|ph\.?d|mba|b\.s\.|m\.s\.|b\.a\.|m\.a\.|associate degree)`)
	yearPattern      = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	institutionOf    = regexp.MustCompile(`(?i)([\w\s]+(?:university|college|institute|school))`)
	certPatterns     = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(aws|azure|gcp|google cloud)\s+certified[\w\s-]*`),
		regexp.MustCompile(`(?i)\b(pmp|cissp|ccna|ckad?|cka)\b`),
		regexp.MustCompile(`(?i)certified\s+[\w\s]+(?:engineer|developer|architect|administrator)`),
	}
)

// ResumeParser extracts structure from raw resume text: summary,
// positions, education, skills, certifications, and projects.
type ResumeParser struct {
	*agent.Base
	deps Deps
}

func NewResumeParser(deps Deps) *ResumeParser {
	r := &ResumeParser{
		Base: agent.NewBase(ResumeParserID, "Extracts structured data from resume text", deps.Logger),
		deps: deps,
	}
	r.Handle("parse_resume", r.parseResume)
	r.Handle("extract_skills", r.extractSkills)
	return r
}

func (r *ResumeParser) parseResume(ctx context.Context, task agent.Task) (*agent.Result, error) {
	text := task.String("resume_text")
	if text == "" {
		if path := task.String("resume_path"); path != "" {
			raw, err := os.ReadFile(path)
			if err != nil {
				return r.Failf(task.Op(), "failed to read resume file: %v", err), nil
			}
			text = string(raw)
		}
	}
	if strings.TrimSpace(text) == "" {
		return r.Fail(task.Op(), "resume_text or resume_path is required"), nil
	}

	parsed := parseResumeText(text)

	ownerID := task.String("owner_id")
	if ownerID != "" {
		profile, err := r.deps.Records.GetProfile(ctx, ownerID)
		if errors.Is(err, records.ErrNotFound) {
			return r.Failf(task.Op(), "profile not found: %s", ownerID), nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load profile %s: %w", ownerID, err)
		}
		if profile.Resume == nil {
			profile.Resume = map[string]interface{}{}
		}
		profile.Resume["raw_text"] = text
		profile.Resume["parsed"] = parsed
		if err := r.deps.Records.SaveProfile(ctx, profile); err != nil {
			return nil, fmt.Errorf("failed to save profile %s: %w", ownerID, err)
		}
	}

	skills := mapAt(parsed, "skills")
	return r.OK(task.Op(), map[string]interface{}{
		"owner_id":      ownerID,
		"parsed_resume": parsed,
		"summary_stats": map[string]interface{}{
			"experience_count":    len(mapsAt(parsed, "experience")),
			"education_count":     len(mapsAt(parsed, "education")),
			"technical_skills":    len(stringsAt(skills, "technical")),
			"tool_skills":         len(stringsAt(skills, "tools")),
			"keywords_count":      len(stringsAt(parsed, "keywords")),
			"certification_count": len(stringsAt(parsed, "certifications")),
		},
	}), nil
}

func (r *ResumeParser) extractSkills(ctx context.Context, task agent.Task) (*agent.Result, error) {
	text := task.String("text")
	if text == "" {
		text = task.String("resume_text")
	}
	if strings.TrimSpace(text) == "" {
		return r.Fail(task.Op(), "text is required"), nil
	}

	return r.OK(task.Op(), map[string]interface{}{
		"skills":   skillGroups(text),
		"keywords": extractKeywords(text),
	}), nil
}

// parseResumeText runs all extractors over the text. The result is a plain
// map so it can live inside a profile's free-form resume section.
func parseResumeText(text string) map[string]interface{} {
	lines := strings.Split(text, "\n")
	sections := findSections(lines)

	return map[string]interface{}{
		"summary":        extractSummary(lines, sections),
		"experience":     extractExperience(lines),
		"education":      extractEducation(lines),
		"skills":         skillGroups(text),
		"certifications": extractCertifications(text),
		"projects":       extractProjects(lines, sections),
		"keywords":       extractKeywords(text),
	}
}

// findSections maps section name to the line index of its header.
func findSections(lines []string) map[string]int {
	sections := make(map[string]int)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || len(trimmed) > maxHeaderLen {
			continue
		}
		for name, pattern := range sectionPatterns {
			if _, seen := sections[name]; !seen && pattern.MatchString(trimmed) {
				sections[name] = i
			}
		}
	}
	return sections
}

func isSectionHeader(line string) bool {
	if len(line) > maxHeaderLen {
		return false
	}
	for _, pattern := range sectionPatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

// extractSummary takes up to five content lines after the summary header,
// or from the top of the document when there is no header.
func extractSummary(lines []string, sections map[string]int) string {
	start := 0
	if idx, ok := sections["summary"]; ok {
		start = idx + 1
	}

	var collected []string
	for i := start; i < len(lines) && len(collected) < 5; i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			if len(collected) > 0 {
				break
			}
			continue
		}
		if isSectionHeader(line) {
			if len(collected) > 0 {
				break
			}
			continue
		}
		collected = append(collected, line)
	}

	summary := strings.Join(collected, " ")
	if len(summary) > 500 {
		summary = summary[:500]
	}
	return summary
}

// extractExperience finds positions by their date ranges. A line with a
// date range starts a position, bullets under it become its
// accomplishments, and the next section header closes it.
func extractExperience(lines []string) []map[string]interface{} {
	var (
		out     []map[string]interface{}
		current map[string]interface{}
		bullets []string
	)
	flush := func() {
		if current == nil {
			return
		}
		current["bullets"] = append([]string{}, bullets...)
		out = append(out, current)
		current, bullets = nil, nil
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if isSectionHeader(line) {
			flush()
			continue
		}
		if m := dateRangePattern.FindStringSubmatch(line); m != nil {
			flush()
			current = map[string]interface{}{
				"title":    "",
				"company":  "",
				"duration": strings.TrimSpace(m[1]) + " - " + strings.TrimSpace(m[2]),
			}
			remainder := strings.TrimSpace(dateRangePattern.ReplaceAllString(line, ""))
			remainder = strings.Trim(remainder, " \t|,-")
			if rm := rolePattern.FindStringSubmatch(remainder); rm != nil {
				current["title"] = strings.TrimSpace(rm[1])
				current["company"] = strings.Trim(strings.TrimSpace(rm[2]), ".")
			} else if remainder != "" {
				current["title"] = remainder
			}
			continue
		}
		if current == nil {
			continue
		}
		if m := bulletPattern.FindStringSubmatch(raw); m != nil {
			if bullet := strings.TrimSpace(m[1]); bullet != "" {
				bullets = append(bullets, bullet)
			}
		}
	}
	flush()

	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

// extractEducation finds degree lines and pairs them with an institution
// and graduation year when present on the same line.
func extractEducation(lines []string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || !degreePattern.MatchString(line) {
			continue
		}

		degree := line
		if len(degree) > 100 {
			degree = degree[:100]
		}
		entry := map[string]interface{}{
			"degree":      degree,
			"institution": "",
			"year":        "",
		}
		if m := institutionOf.FindStringSubmatch(line); m != nil {
			entry["institution"] = strings.TrimSpace(m[1])
		}
		if m := yearPattern.FindString(line); m != "" {
			entry["year"] = m
		}
		out = append(out, entry)
		if len(out) == 5 {
			break
		}
	}
	return out
}

// skillGroups buckets recognized terms the way resumes group them:
// languages and frameworks as technical, tooling and databases as tools,
// plus a soft-skill scan.
func skillGroups(text string) map[string]interface{} {
	lower := strings.ToLower(text)
	collect := func(groups ...[]string) []string {
		var found []string
		for _, group := range groups {
			for _, term := range group {
				if containsTerm(lower, term) {
					found = append(found, term)
				}
			}
		}
		return found
	}
	return map[string]interface{}{
		"technical": collect(languageKeywords, frameworkKeywords),
		"tools":     collect(toolKeywords, databaseKeywords),
		"soft":      collect(softSkillKeywords),
	}
}

// extractCertifications matches line by line so a certification never
// runs past the line it appears on.
func extractCertifications(text string) []string {
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		for _, pattern := range certPatterns {
			for _, match := range pattern.FindAllString(line, -1) {
				cert := strings.TrimSpace(match)
				if cert == "" || certCovered(out, cert) {
					continue
				}
				out = append(out, cert)
				if len(out) == 10 {
					return out
				}
			}
		}
	}
	return out
}

// certCovered reports whether cert is already contained in a collected
// entry. The vendor patterns and the generic "certified ..." pattern
// overlap, so the same line yields both "AWS Certified Solutions
// Architect" and "Certified Solutions Architect".
func certCovered(certs []string, cert string) bool {
	lower := strings.ToLower(cert)
	for _, existing := range certs {
		if strings.Contains(strings.ToLower(existing), lower) {
			return true
		}
	}
	return false
}

// extractProjects reads the 20 lines after the projects header: short
// non-bullet lines name a project, bullets describe the latest one.
func extractProjects(lines []string, sections map[string]int) []map[string]interface{} {
	start, ok := sections["projects"]
	if !ok {
		return nil
	}

	var (
		out     []map[string]interface{}
		current map[string]interface{}
	)
	end := start + 21
	if end > len(lines) {
		end = len(lines)
	}
	for i := start + 1; i < end; i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if isSectionHeader(line) {
			break
		}
		if m := bulletPattern.FindStringSubmatch(lines[i]); m != nil {
			if current != nil {
				desc := stringAt(current, "description")
				if desc != "" {
					desc += " "
				}
				current["description"] = desc + strings.TrimSpace(m[1])
			}
			continue
		}
		if len(line) <= maxHeaderLen {
			if len(out) == 5 {
				break
			}
			current = map[string]interface{}{
				"name":        line,
				"description": "",
				"tech":        extractKeywords(line),
			}
			out = append(out, current)
		}
	}
	return out
}
