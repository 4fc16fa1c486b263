package units_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/records"
	"github.com/seekerlabs/seekerd/internal/units"
)

func TestScrapeURLSavesPostings(t *testing.T) {
	h := newHarness(t)
	scraper := units.NewScraper(h.deps)

	result := perform(t, scraper, agent.Task{
		"op":  "scrape_url",
		"url": "https://boards.greenhouse.io/acme",
	})
	require.False(t, result.Failed(), result.ErrorMessage())
	assert.Equal(t, "greenhouse", result.Data["board"])
	assert.Equal(t, 1, result.Data["postings_found"])
	assert.Empty(t, result.Next)

	ids := result.Data["posting_ids"].([]string)
	require.Len(t, ids, 1)

	posting, err := h.deps.Records.GetPosting(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Acme", posting.Company)
	assert.Equal(t, "Software Engineer", posting.Title)
	assert.Equal(t, records.PostingNew, posting.Status)
	assert.Equal(t, "greenhouse", posting.Source)
	assert.Contains(t, posting.Keywords, "python")
	assert.Equal(t, h.now, posting.ScrapedAt)
}

func TestScrapeURLAutoMatchChains(t *testing.T) {
	h := newHarness(t)
	scraper := units.NewScraper(h.deps)

	result := perform(t, scraper, agent.Task{
		"op":         "scrape_url",
		"url":        "https://jobs.lever.co/initech",
		"owner_id":   "owner-1",
		"auto_match": true,
	})
	require.False(t, result.Failed())
	assert.Equal(t, units.MatcherID, result.Next)
	assert.Equal(t, "match_postings", result.Carry["op"])
	assert.Equal(t, "owner-1", result.Carry["owner_id"])
	assert.NotEmpty(t, result.Carry["posting_ids"])
}

func TestScrapeURLRequiresURL(t *testing.T) {
	h := newHarness(t)
	scraper := units.NewScraper(h.deps)

	result := perform(t, scraper, agent.Task{"op": "scrape_url"})
	assert.True(t, result.Failed())
	assert.Contains(t, result.ErrorMessage(), "url is required")
}

func TestScrapeCompanyGuessesCareerPage(t *testing.T) {
	h := newHarness(t)
	scraper := units.NewScraper(h.deps)

	result := perform(t, scraper, agent.Task{
		"op":      "scrape_company",
		"company": "Acme Corp",
	})
	require.False(t, result.Failed())
	assert.Equal(t, "scrape_company", result.Op)
	assert.Equal(t, "https://boards.greenhouse.io/acme-corp", result.Data["url"])
	assert.Equal(t, "greenhouse", result.Data["board"])

	ids := result.Data["posting_ids"].([]string)
	require.Len(t, ids, 1)
	posting, err := h.deps.Records.GetPosting(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", posting.Company)
}

func TestScrapeNewPostingsUsesDefaultSources(t *testing.T) {
	h := newHarness(t)
	scraper := units.NewScraper(h.deps)

	result := perform(t, scraper, agent.Task{
		"op":       "scrape_new_postings",
		"owner_id": "owner-1",
	})
	require.False(t, result.Failed())
	assert.Equal(t, 2, result.Data["sources_processed"])
	assert.Equal(t, 2, result.Data["postings_found"])
	assert.Equal(t, units.MatcherID, result.Next)
	assert.Equal(t, "match_postings", result.Carry["op"])
}

func TestAddSourceReplacesDefaults(t *testing.T) {
	h := newHarness(t)
	scraper := units.NewScraper(h.deps)

	added := perform(t, scraper, agent.Task{
		"op":  "add_source",
		"url": "https://jobs.lever.co/hooli",
	})
	require.False(t, added.Failed())
	assert.Equal(t, "Hooli", added.Data["name"])
	assert.Equal(t, 1, added.Data["total_sources"])

	dup := perform(t, scraper, agent.Task{
		"op":  "add_source",
		"url": "https://jobs.lever.co/hooli",
	})
	assert.True(t, dup.Failed())

	result := perform(t, scraper, agent.Task{"op": "scrape_new_postings"})
	require.False(t, result.Failed())
	assert.Equal(t, 1, result.Data["sources_processed"])
	assert.Equal(t, 1, result.Data["postings_found"])
	assert.Empty(t, result.Next)
}

func TestParsePostingExtractsFields(t *testing.T) {
	h := newHarness(t)
	scraper := units.NewScraper(h.deps)

	text := `Position: Staff Engineer
Location: Berlin
Salary: $120,000 - $150,000
This role is fully remote.
Requirements:
- Build APIs with Go
- Own PostgreSQL schemas`

	result := perform(t, scraper, agent.Task{
		"op":      "parse_posting",
		"text":    text,
		"company": "Acme",
	})
	require.False(t, result.Failed(), result.ErrorMessage())
	assert.Equal(t, "Staff Engineer", result.Data["title"])
	assert.Equal(t, "Berlin", result.Data["location"])
	assert.Equal(t, 120000, result.Data["salary_min"])
	assert.Equal(t, 150000, result.Data["salary_max"])
	assert.Equal(t, "remote", result.Data["remote"])

	requirements := result.Data["requirements"].([]string)
	assert.Len(t, requirements, 2)
	assert.Contains(t, requirements, "Build APIs with Go")

	keywords := result.Data["keywords"].([]string)
	assert.Contains(t, keywords, "go")
	assert.Contains(t, keywords, "postgresql")

	posting, err := h.deps.Records.GetPosting(context.Background(), result.Data["posting_id"].(string))
	require.NoError(t, err)
	assert.Equal(t, "manual", posting.Source)
}

func TestParsePostingFromHTML(t *testing.T) {
	h := newHarness(t)
	scraper := units.NewScraper(h.deps)

	result := perform(t, scraper, agent.Task{
		"op":   "parse_posting",
		"html": "<html><body><p>We use Docker and Kubernetes daily.</p></body></html>",
	})
	require.False(t, result.Failed())
	keywords := result.Data["keywords"].([]string)
	assert.Contains(t, keywords, "docker")
	assert.Contains(t, keywords, "kubernetes")
}
