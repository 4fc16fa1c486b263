package units_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/records"
	"github.com/seekerlabs/seekerd/internal/units"
)

func TestTailorOneBuildsResumeOnApplication(t *testing.T) {
	h := newHarness(t)
	tailor := units.NewTailor(h.deps)
	h.seedProfile(t, "owner-1")
	posting := h.seedPosting(t)

	result := perform(t, tailor, agent.Task{
		"op":         "tailor_one",
		"owner_id":   "owner-1",
		"posting_id": posting.ID,
	})
	require.False(t, result.Failed(), result.ErrorMessage())

	appID := result.Data["application_id"].(string)
	app, err := h.deps.Records.GetApplication(context.Background(), appID)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", app.OwnerID)
	assert.Equal(t, posting.ID, app.PostingID)
	assert.Equal(t, records.ApplicationPreparing, app.Status)

	resume := app.Resume
	assert.True(t, strings.HasPrefix(resume, "# Jordan Reyes\n"))
	assert.Contains(t, resume, "jordan@example.com")
	assert.Contains(t, resume, "## Professional Summary")
	assert.Contains(t, resume, "## Technical Skills")
	assert.Contains(t, resume, "### Senior Software Engineer at Initech")
	assert.Contains(t, resume, "*2021 - Present*")
	assert.Contains(t, resume, "## Education")
	assert.Contains(t, resume, "**B.S. Computer Science** - State University (2018)")

	// Posting keywords lead the skills line.
	skillsSection := resume[strings.Index(resume, "## Technical Skills"):]
	skillsLine := strings.Split(skillsSection, "\n")[1]
	assert.Less(t, strings.Index(skillsLine, "docker"), strings.Index(skillsLine, "go"),
		"posting skills should come before the rest")

	assert.Equal(t, units.LetterID, result.Next)
	assert.Equal(t, "generate_one", result.Carry["op"])
	assert.Equal(t, posting.ID, result.Carry["posting_id"])
}

func TestTailorOneRanksBulletsByRelevance(t *testing.T) {
	h := newHarness(t)
	tailor := units.NewTailor(h.deps)
	h.seedProfile(t, "owner-1")
	posting := h.seedPosting(t)

	result := perform(t, tailor, agent.Task{
		"op":         "tailor_one",
		"owner_id":   "owner-1",
		"posting_id": posting.ID,
	})
	require.False(t, result.Failed())

	resume := result.Data["resume"].(string)
	pythonBullet := strings.Index(resume, "Built Python services")
	mentorBullet := strings.Index(resume, "Mentored four engineers")
	require.Positive(t, pythonBullet)
	require.Positive(t, mentorBullet)
	assert.Less(t, pythonBullet, mentorBullet, "keyword-bearing bullets should rank first")
}

func TestTailorOneWithoutParsedResume(t *testing.T) {
	h := newHarness(t)
	tailor := units.NewTailor(h.deps)
	posting := h.seedPosting(t)

	bare := &records.Profile{
		ID:       "owner-2",
		Personal: map[string]interface{}{"name": "Sam Okafor"},
		Resume:   map[string]interface{}{"raw_text": "plain text"},
	}
	require.NoError(t, h.deps.Records.SaveProfile(context.Background(), bare))

	result := perform(t, tailor, agent.Task{
		"op":         "tailor_one",
		"owner_id":   "owner-2",
		"posting_id": posting.ID,
	})
	assert.True(t, result.Failed())
	assert.Contains(t, result.ErrorMessage(), "no parsed resume")
}

func TestTailorResumesBatch(t *testing.T) {
	h := newHarness(t)
	tailor := units.NewTailor(h.deps)
	h.seedProfile(t, "owner-1")
	posting := h.seedPosting(t)

	posting.Status = records.PostingMatched
	require.NoError(t, h.deps.Records.SavePosting(context.Background(), posting))

	result := perform(t, tailor, agent.Task{
		"op":       "tailor_resumes",
		"owner_id": "owner-1",
	})
	require.False(t, result.Failed(), result.ErrorMessage())
	assert.Equal(t, 1, result.Data["total"])
	assert.Equal(t, 1, result.Data["tailored"])

	assert.Equal(t, units.LetterID, result.Next)
	assert.Equal(t, "generate_letters", result.Carry["op"])
	assert.Equal(t, []string{posting.ID}, result.Carry["posting_ids"])
}

func TestTailorResumesSkipsMissingPostings(t *testing.T) {
	h := newHarness(t)
	tailor := units.NewTailor(h.deps)
	h.seedProfile(t, "owner-1")
	posting := h.seedPosting(t)

	result := perform(t, tailor, agent.Task{
		"op":          "tailor_resumes",
		"owner_id":    "owner-1",
		"posting_ids": []string{posting.ID, "missing-posting"},
	})
	require.False(t, result.Failed())
	assert.Equal(t, 2, result.Data["total"])
	assert.Equal(t, 1, result.Data["tailored"])

	items := result.Data["results"].([]map[string]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, true, items[0]["ok"])
	assert.Equal(t, false, items[1]["ok"])
	assert.Contains(t, items[1]["reason"], "posting not found")
}

func TestTailorTwiceReusesApplication(t *testing.T) {
	h := newHarness(t)
	tailor := units.NewTailor(h.deps)
	h.seedProfile(t, "owner-1")
	posting := h.seedPosting(t)

	first := perform(t, tailor, agent.Task{
		"op": "tailor_one", "owner_id": "owner-1", "posting_id": posting.ID,
	})
	second := perform(t, tailor, agent.Task{
		"op": "tailor_one", "owner_id": "owner-1", "posting_id": posting.ID,
	})
	assert.Equal(t, first.Data["application_id"], second.Data["application_id"])
}
