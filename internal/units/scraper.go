package units

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/records"
)

// Job board detection. The board decides which fetch shape applies and how
// the company name is read out of the URL.
var boardPatterns = map[string]*regexp.Regexp{
	"greenhouse": regexp.MustCompile(`greenhouse\.io`),
	"lever":      regexp.MustCompile(`lever\.co`),
	"workday":    regexp.MustCompile(`myworkdayjobs\.com`),
	"ashby":      regexp.MustCompile(`ashbyhq\.com`),
}

var (
	titleLinePattern    = regexp.MustCompile(`(?im)^(?:job title|position|role)[:\s]+(.+)$`)
	locationLinePattern = regexp.MustCompile(`(?im)^(?:location|based in)[:\s]+(.+)$`)
	salaryPattern       = regexp.MustCompile(`\$([\d,]+)(?:\s*-\s*\$([\d,]+))?`)
	remotePattern       = regexp.MustCompile(`(?i)\b(?:fully remote|100% remote|remote-first)\b`)
	hybridPattern       = regexp.MustCompile(`(?i)\b(?:hybrid|flexible work)\b`)
	bulletLinePattern   = regexp.MustCompile(`(?m)^\s*[•\-*]\s*(.+)$`)
	htmlTagPattern      = regexp.MustCompile(`<[^>]+>`)
)

// Scraper collects job postings. Board fetchers are synthetic stand-ins
// shaped like the real boards' listings; parse_posting handles raw text
// pasted from anywhere.
type Scraper struct {
	*agent.Base
	deps Deps
}

func NewScraper(deps Deps) *Scraper {
	s := &Scraper{
		Base: agent.NewBase(ScraperID, "Fetches and parses job postings from career pages", deps.Logger),
		deps: deps,
	}
	s.Handle("scrape_url", s.scrapeURL)
	s.Handle("scrape_company", s.scrapeCompany)
	s.Handle("scrape_new_postings", s.scrapeNewPostings)
	s.Handle("parse_posting", s.parsePosting)
	s.Handle("add_source", s.addSource)
	return s
}

func (s *Scraper) scrapeURL(ctx context.Context, task agent.Task) (*agent.Result, error) {
	target := task.String("url")
	if target == "" {
		return s.Fail(task.Op(), "url is required"), nil
	}

	board := detectBoard(target)
	ids, err := s.scrapeOne(ctx, target, board)
	if err != nil {
		return nil, err
	}

	result := s.OK(task.Op(), map[string]interface{}{
		"url":            target,
		"board":          board,
		"postings_found": len(ids),
		"posting_ids":    ids,
	})
	ownerID := task.String("owner_id")
	if task.Bool("auto_match") && len(ids) > 0 && ownerID != "" {
		result.Next = MatcherID
		result.Carry = map[string]interface{}{
			"op":          "match_postings",
			"owner_id":    ownerID,
			"posting_ids": ids,
		}
	}
	return result, nil
}

func (s *Scraper) scrapeCompany(ctx context.Context, task agent.Task) (*agent.Result, error) {
	company := task.String("company")
	if company == "" {
		return s.Fail(task.Op(), "company is required"), nil
	}
	target := task.String("career_url")
	if target == "" {
		target = guessCareerPage(company)
	}

	next := task.Clone()
	next["url"] = target
	return s.scrapeURL(ctx, next)
}

func (s *Scraper) scrapeNewPostings(ctx context.Context, task agent.Task) (*agent.Result, error) {
	sources := s.sources()
	var (
		ids      []string
		failures []string
	)
	for _, source := range sources {
		target := stringAt(source, "url")
		if target == "" {
			continue
		}
		found, err := s.scrapeOne(ctx, target, detectBoard(target))
		if err != nil {
			s.Logger().Warn("source scrape failed",
				zap.String("url", target),
				zap.Error(err))
			failures = append(failures, fmt.Sprintf("%s: %v", target, err))
			continue
		}
		ids = append(ids, found...)
	}

	data := map[string]interface{}{
		"sources_processed": len(sources),
		"postings_found":    len(ids),
		"posting_ids":       ids,
	}
	if len(failures) > 0 {
		data["errors"] = failures
	}

	result := s.OK(task.Op(), data)
	ownerID := task.String("owner_id")
	if len(ids) > 0 && ownerID != "" {
		result.Next = MatcherID
		result.Carry = map[string]interface{}{
			"op":          "match_postings",
			"owner_id":    ownerID,
			"posting_ids": ids,
		}
	}
	return result, nil
}

func (s *Scraper) parsePosting(ctx context.Context, task agent.Task) (*agent.Result, error) {
	text := task.String("text")
	if text == "" {
		if html := task.String("html"); html != "" {
			text = stripHTML(html)
		}
	}
	if text == "" {
		return s.Fail(task.Op(), "text or html is required"), nil
	}

	posting := parsePostingText(text)
	posting.URL = task.String("url")
	posting.Source = "manual"
	posting.Status = records.PostingNew
	posting.ScrapedAt = s.deps.now()
	if company := task.String("company"); company != "" {
		posting.Company = company
	}
	posting.ID = records.PostingID(posting.Company, posting.Title, posting.Location)

	if err := s.deps.Records.SavePosting(ctx, posting); err != nil {
		return nil, fmt.Errorf("failed to save posting %s: %w", posting.ID, err)
	}

	return s.OK(task.Op(), map[string]interface{}{
		"posting_id":   posting.ID,
		"title":        posting.Title,
		"company":      posting.Company,
		"location":     posting.Location,
		"remote":       string(posting.Remote),
		"salary_min":   posting.SalaryMin,
		"salary_max":   posting.SalaryMax,
		"requirements": posting.Requirements,
		"keywords":     posting.Keywords,
	}), nil
}

func (s *Scraper) addSource(ctx context.Context, task agent.Task) (*agent.Result, error) {
	target := task.String("url")
	if target == "" {
		return s.Fail(task.Op(), "url is required"), nil
	}

	name := task.StringOr("name", companyFromURL(target))
	sources := s.sources()
	for _, source := range sources {
		if stringAt(source, "url") == target {
			return s.Fail(task.Op(), "source already registered"), nil
		}
	}
	sources = append(sources, map[string]interface{}{
		"url":      target,
		"name":     name,
		"added_at": s.deps.now().Format("2006-01-02T15:04:05Z07:00"),
	})

	stored := make([]interface{}, len(sources))
	for i, source := range sources {
		stored[i] = source
	}
	if err := s.deps.State.SetUnitState(ctx, ScraperID, map[string]interface{}{"sources": stored}); err != nil {
		return nil, fmt.Errorf("failed to store sources: %w", err)
	}

	return s.OK(task.Op(), map[string]interface{}{
		"url":           target,
		"name":          name,
		"total_sources": len(sources),
	}), nil
}

// scrapeOne fetches a board, stamps and saves each posting, and returns the
// new posting ids.
func (s *Scraper) scrapeOne(ctx context.Context, target, board string) ([]string, error) {
	postings := fetchBoard(target, board)
	ids := make([]string, 0, len(postings))
	for _, posting := range postings {
		posting.ID = records.PostingID(posting.Company, posting.Title, posting.Location)
		posting.Source = board
		posting.URL = target
		posting.Status = records.PostingNew
		posting.ScrapedAt = s.deps.now()
		if len(posting.Keywords) == 0 {
			posting.Keywords = extractKeywords(posting.Description + " " + strings.Join(posting.Requirements, " "))
		}
		if err := s.deps.Records.SavePosting(ctx, posting); err != nil {
			return nil, fmt.Errorf("failed to save posting %s: %w", posting.ID, err)
		}
		ids = append(ids, posting.ID)
	}
	return ids, nil
}

// sources returns the configured scrape sources, falling back to a default
// pair so a fresh deployment still produces postings.
func (s *Scraper) sources() []map[string]interface{} {
	if raw, ok := s.deps.State.UnitState(ScraperID); ok {
		if m, ok := raw.(map[string]interface{}); ok {
			if stored := mapsAt(m, "sources"); len(stored) > 0 {
				return stored
			}
		}
	}
	return []map[string]interface{}{
		{"url": "https://boards.greenhouse.io/acme", "name": "Acme"},
		{"url": "https://jobs.lever.co/initech", "name": "Initech"},
	}
}

func detectBoard(target string) string {
	for board, pattern := range boardPatterns {
		if pattern.MatchString(target) {
			return board
		}
	}
	return "generic"
}

// fetchBoard stands in for board-specific HTTP clients. Each board yields a
// listing in that board's typical shape.
func fetchBoard(target, board string) []*records.Posting {
	company := companyFromURL(target)
	switch board {
	case "greenhouse":
		return []*records.Posting{{
			Company:      company,
			Title:        "Software Engineer",
			Location:     "San Francisco, CA",
			Remote:       records.RemoteHybrid,
			Description:  "Join our platform team building internal developer tools with Python and SQL.",
			Requirements: []string{"Python", "SQL", "3+ years experience"},
		}}
	case "lever":
		return []*records.Posting{{
			Company:      company,
			Title:        "Senior Developer",
			Location:     "Remote",
			Remote:       records.RemoteFull,
			Description:  "Own product features end to end in a JavaScript and React codebase.",
			Requirements: []string{"JavaScript", "React", "5+ years experience"},
		}}
	default:
		return []*records.Posting{{
			Company:     company,
			Title:       "Developer",
			Location:    "Various",
			Remote:      records.RemoteUnknown,
			Description: "General engineering role.",
		}}
	}
}

func guessCareerPage(company string) string {
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(company), " ", "-"))
	return "https://boards.greenhouse.io/" + slug
}

// companyFromURL reads the company out of a board URL: the first path
// segment on greenhouse and lever, the first host label otherwise.
func companyFromURL(target string) string {
	parsed, err := url.Parse(target)
	if err != nil || parsed.Host == "" {
		return "Unknown"
	}
	host := strings.TrimPrefix(parsed.Host, "www.")

	if strings.Contains(host, "greenhouse.io") || strings.Contains(host, "lever.co") {
		for _, segment := range strings.Split(parsed.Path, "/") {
			if segment != "" {
				return titleCase(segment)
			}
		}
	}
	if label, _, found := strings.Cut(host, "."); found && label != "" {
		return titleCase(label)
	}
	return titleCase(host)
}

func stripHTML(html string) string {
	text := htmlTagPattern.ReplaceAllString(html, " ")
	return strings.Join(strings.Fields(text), " ")
}

// parsePostingText pulls structured fields out of free-form posting text.
func parsePostingText(text string) *records.Posting {
	posting := &records.Posting{
		Company:  "Unknown",
		Title:    "Unknown Position",
		Location: "Unknown",
		Remote:   remoteStatus(text),
	}

	if m := titleLinePattern.FindStringSubmatch(text); m != nil {
		posting.Title = strings.TrimSpace(m[1])
	}
	if m := locationLinePattern.FindStringSubmatch(text); m != nil {
		posting.Location = strings.TrimSpace(m[1])
	}
	if m := salaryPattern.FindStringSubmatch(text); m != nil {
		posting.SalaryMin = parseMoney(m[1])
		if m[2] != "" {
			posting.SalaryMax = parseMoney(m[2])
		}
	}

	for _, m := range bulletLinePattern.FindAllStringSubmatch(text, -1) {
		posting.Requirements = append(posting.Requirements, strings.TrimSpace(m[1]))
		if len(posting.Requirements) == 15 {
			break
		}
	}

	description := text
	if len(description) > 2000 {
		description = description[:2000]
	}
	posting.Description = description
	posting.Keywords = extractKeywords(text)
	return posting
}

func remoteStatus(text string) records.RemoteStatus {
	switch {
	case remotePattern.MatchString(text):
		return records.RemoteFull
	case hybridPattern.MatchString(text):
		return records.RemoteHybrid
	case strings.Contains(strings.ToLower(text), "remote"):
		return records.RemoteFull
	default:
		return records.RemoteOnsite
	}
}

func parseMoney(s string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0
	}
	return n
}
