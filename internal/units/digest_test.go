package units_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/records"
	"github.com/seekerlabs/seekerd/internal/units"
)

func seedApplication(t *testing.T, h *harness, ownerID string, posting *records.Posting, status records.ApplicationStatus, submittedDaysAgo int) *records.Application {
	t.Helper()

	app := &records.Application{
		ID:        records.NewApplicationID(),
		PostingID: posting.ID,
		OwnerID:   ownerID,
		Status:    status,
	}
	app.AddEvent(status, "seeded", h.now)
	if submittedDaysAgo >= 0 {
		at := h.now.Add(-time.Duration(submittedDaysAgo) * 24 * time.Hour)
		app.SubmittedAt = &at
	}
	require.NoError(t, h.deps.Records.SaveApplication(context.Background(), app))
	return app
}

func TestGenerateDigestRendersSections(t *testing.T) {
	h := newHarness(t)
	digest := units.NewDigest(h.deps)
	h.seedProfile(t, "owner-1")
	posting := h.seedPosting(t)
	seedApplication(t, h, "owner-1", posting, records.ApplicationSubmitted, 10)

	result := perform(t, digest, agent.Task{
		"op":       "generate_digest",
		"owner_id": "owner-1",
	})
	require.False(t, result.Failed(), result.ErrorMessage())

	text := result.Data["digest"].(string)
	assert.Contains(t, text, "# Daily Digest for Jordan Reyes")
	assert.Contains(t, text, "## Overview")
	assert.Contains(t, text, "Total applications: 1")
	assert.Contains(t, text, "- submitted: 1")
	assert.Contains(t, text, "## Action Items")
	assert.Contains(t, text, "10 days since submission")
	assert.Contains(t, text, "## Tips")

	followUps := result.Data["follow_ups"].([]map[string]interface{})
	require.Len(t, followUps, 1)
	assert.Equal(t, 10, followUps[0]["days_since_submission"])
}

func TestGenerateDigestUnknownOwner(t *testing.T) {
	h := newHarness(t)
	digest := units.NewDigest(h.deps)

	result := perform(t, digest, agent.Task{
		"op":       "generate_digest",
		"owner_id": "ghost",
	})
	assert.True(t, result.Failed())
	assert.Contains(t, result.ErrorMessage(), "profile not found")
}

func TestWeeklySummaryComputesResponseRate(t *testing.T) {
	h := newHarness(t)
	digest := units.NewDigest(h.deps)
	h.seedProfile(t, "owner-1")
	posting := h.seedPosting(t)

	second := &records.Posting{
		Company: "Globex", Title: "Backend Engineer", Location: "Remote",
		Remote: records.RemoteFull, Status: records.PostingNew, ScrapedAt: h.now,
	}
	second.ID = records.PostingID(second.Company, second.Title, second.Location)
	require.NoError(t, h.deps.Records.SavePosting(context.Background(), second))
	third := &records.Posting{
		Company: "Hooli", Title: "Platform Engineer", Location: "Remote",
		Remote: records.RemoteFull, Status: records.PostingNew, ScrapedAt: h.now,
	}
	third.ID = records.PostingID(third.Company, third.Title, third.Location)
	require.NoError(t, h.deps.Records.SavePosting(context.Background(), third))

	seedApplication(t, h, "owner-1", posting, records.ApplicationSubmitted, 5)
	seedApplication(t, h, "owner-1", second, records.ApplicationInterview, 12)
	seedApplication(t, h, "owner-1", third, records.ApplicationRejected, 20)

	result := perform(t, digest, agent.Task{
		"op":       "weekly_summary",
		"owner_id": "owner-1",
	})
	require.False(t, result.Failed())
	assert.Equal(t, 3, result.Data["applications_created"])
	assert.Equal(t, 1, result.Data["interviews_this_week"])
	assert.Equal(t, 2, result.Data["total_active"])
	assert.InDelta(t, 66.7, result.Data["response_rate"].(float64), 0.1)

	highlights := result.Data["highlights"].([]string)
	require.NotEmpty(t, highlights)
	assert.Contains(t, highlights[0], "Great response rate")
}

func TestPipelineReportGroupsByStage(t *testing.T) {
	h := newHarness(t)
	digest := units.NewDigest(h.deps)
	h.seedProfile(t, "owner-1")
	posting := h.seedPosting(t)

	seedApplication(t, h, "owner-1", posting, records.ApplicationPreparing, -1)

	result := perform(t, digest, agent.Task{
		"op":       "pipeline_report",
		"owner_id": "owner-1",
	})
	require.False(t, result.Failed())
	assert.Equal(t, 1, result.Data["total"])

	counts := result.Data["stage_counts"].(map[string]interface{})
	assert.Equal(t, 1, counts["preparing"])

	averages := result.Data["stage_avg_days"].(map[string]interface{})
	assert.Equal(t, 0.0, averages["preparing"])

	stages := result.Data["stages"].(map[string]interface{})
	entries := stages["preparing"].([]map[string]interface{})
	require.Len(t, entries, 1)
	assert.Equal(t, "Software Engineer", entries[0]["title"])
}

func TestActivitySummaryCountsActions(t *testing.T) {
	h := newHarness(t)
	digest := units.NewDigest(h.deps)

	log := func(unit, op string) {
		require.NoError(t, h.deps.Records.LogAction(context.Background(), &records.ActionLog{
			Unit: unit,
			Op:   op,
		}))
	}
	log("scraper", "scrape_url")
	log("scraper", "scrape_new_postings")
	log("matcher", "match_postings")

	result := perform(t, digest, agent.Task{"op": "activity_summary"})
	require.False(t, result.Failed())
	assert.Equal(t, 7, result.Data["period_days"])
	assert.Equal(t, 3, result.Data["total_actions"])
	assert.Equal(t, "scraper", result.Data["most_active_unit"])

	byUnit := result.Data["by_unit"].(map[string]interface{})
	assert.Equal(t, 2, byUnit["scraper"])
	assert.Equal(t, 1, byUnit["matcher"])

	byOp := result.Data["by_op"].(map[string]interface{})
	assert.Equal(t, 1, byOp["scraper.scrape_url"])
}
