package units_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/units"
)

func TestCreateProfileDefaultsAndChains(t *testing.T) {
	h := newHarness(t)
	profile := units.NewProfile(h.deps)

	result := perform(t, profile, agent.Task{
		"op":       "create_profile",
		"owner_id": "owner-1",
		"personal": map[string]interface{}{
			"name":  "Jordan Reyes",
			"email": "jordan@example.com",
		},
		"resume_text": "Jordan Reyes. Python, Go, Docker.",
	})
	require.False(t, result.Failed(), result.ErrorMessage())
	assert.Equal(t, "owner-1", result.Data["owner_id"])

	prefs := result.Data["preferences"].(map[string]interface{})
	assert.Equal(t, "any", prefs["remote_preference"])
	assert.Equal(t, []string{"full-time"}, prefs["job_types"])

	assert.Equal(t, units.ResumeParserID, result.Next)
	assert.Equal(t, "parse_resume", result.Carry["op"])
	assert.Equal(t, "Jordan Reyes. Python, Go, Docker.", result.Carry["resume_text"])

	stored, err := h.deps.Records.GetProfile(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "Jordan Reyes", stored.Personal["name"])
}

func TestCreateProfileGeneratesID(t *testing.T) {
	h := newHarness(t)
	profile := units.NewProfile(h.deps)

	result := perform(t, profile, agent.Task{"op": "create_profile"})
	require.False(t, result.Failed())

	ownerID := result.Data["owner_id"].(string)
	assert.Len(t, ownerID, 12)
	assert.Empty(t, result.Next, "no resume, nothing to parse")
}

func TestCreateProfileTwice(t *testing.T) {
	h := newHarness(t)
	profile := units.NewProfile(h.deps)

	perform(t, profile, agent.Task{"op": "create_profile", "owner_id": "owner-1"})
	second := perform(t, profile, agent.Task{"op": "create_profile", "owner_id": "owner-1"})
	require.False(t, second.Failed())
	assert.Equal(t, "profile already exists", second.Data["message"])
}

func TestUpdatePreferencesMerges(t *testing.T) {
	h := newHarness(t)
	profile := units.NewProfile(h.deps)
	h.seedProfile(t, "owner-1")

	result := perform(t, profile, agent.Task{
		"op":       "update_preferences",
		"owner_id": "owner-1",
		"preferences": map[string]interface{}{
			"salary_min": 140000,
		},
	})
	require.False(t, result.Failed())

	stored, err := h.deps.Records.GetProfile(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 140000, stored.Preferences["salary_min"])
	assert.Equal(t, []string{"Software Engineer", "Backend Engineer"}, stored.Preferences["target_titles"],
		"unmentioned keys survive the merge")
}

func TestUpdateProfileRequiresASection(t *testing.T) {
	h := newHarness(t)
	profile := units.NewProfile(h.deps)
	h.seedProfile(t, "owner-1")

	result := perform(t, profile, agent.Task{
		"op":       "update_profile",
		"owner_id": "owner-1",
	})
	assert.True(t, result.Failed())
	assert.Contains(t, result.ErrorMessage(), "nothing to update")
}

func TestUpdateFilters(t *testing.T) {
	h := newHarness(t)
	profile := units.NewProfile(h.deps)
	h.seedProfile(t, "owner-1")

	result := perform(t, profile, agent.Task{
		"op":       "update_filters",
		"owner_id": "owner-1",
		"filters": map[string]interface{}{
			"blacklisted_companies": []string{"Globex"},
		},
	})
	require.False(t, result.Failed())

	stored, err := h.deps.Records.GetProfile(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Globex"}, stored.Filters["blacklisted_companies"])
}

func TestSetResumeChainsToParser(t *testing.T) {
	h := newHarness(t)
	profile := units.NewProfile(h.deps)
	h.seedProfile(t, "owner-1")

	result := perform(t, profile, agent.Task{
		"op":          "set_resume",
		"owner_id":    "owner-1",
		"resume_text": "Fresh resume text with Kubernetes.",
	})
	require.False(t, result.Failed())
	assert.Equal(t, units.ResumeParserID, result.Next)
	assert.Equal(t, "parse_resume", result.Carry["op"])
	assert.Equal(t, "owner-1", result.Carry["owner_id"])

	stored, err := h.deps.Records.GetProfile(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "Fresh resume text with Kubernetes.", stored.Resume["raw_text"])
}

func TestGetProfileRoundTrip(t *testing.T) {
	h := newHarness(t)
	profile := units.NewProfile(h.deps)
	h.seedProfile(t, "owner-1")

	result := perform(t, profile, agent.Task{
		"op":       "get_profile",
		"owner_id": "owner-1",
	})
	require.False(t, result.Failed())

	personal := result.Data["personal"].(map[string]interface{})
	assert.Equal(t, "Jordan Reyes", personal["name"])
	assert.NotEmpty(t, result.Data["created_at"])

	missing := perform(t, profile, agent.Task{"op": "get_profile", "owner_id": "ghost"})
	assert.True(t, missing.Failed())
}
