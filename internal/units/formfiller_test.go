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

func TestFillFormFillsFromProfile(t *testing.T) {
	h := newHarness(t)
	filler := units.NewFormFiller(h.deps)
	h.seedProfile(t, "owner-1")

	result := perform(t, filler, agent.Task{
		"op":       "fill_form",
		"owner_id": "owner-1",
		"form_fields": []string{
			"First Name", "Last Name", "Email", "Phone Number",
			"LinkedIn Profile", "Desired Salary", "Years of Experience",
		},
	})
	require.False(t, result.Failed(), result.ErrorMessage())

	filled := result.Data["filled"].(map[string]interface{})
	assert.Equal(t, "Jordan", filled["First Name"])
	assert.Equal(t, "Reyes", filled["Last Name"])
	assert.Equal(t, "jordan@example.com", filled["Email"])
	assert.Equal(t, "$120,000 - $160,000", filled["Desired Salary"])
	assert.Equal(t, "4", filled["Years of Experience"])

	assert.Equal(t, 100.0, result.Data["completion"])
	assert.Empty(t, result.Data["missing"])
	assert.Empty(t, result.Next)
}

func TestFillFormRoutesOpenQuestionsToQA(t *testing.T) {
	h := newHarness(t)
	filler := units.NewFormFiller(h.deps)
	h.seedProfile(t, "owner-1")

	result := perform(t, filler, agent.Task{
		"op":       "fill_form",
		"owner_id": "owner-1",
		"form_fields": []string{
			"Email",
			"Portfolio",
			"Why do you want to join our team?",
		},
	})
	require.False(t, result.Failed())

	missing := result.Data["missing"].([]string)
	assert.Contains(t, missing, "Portfolio")
	unrecognized := result.Data["unrecognized"].([]string)
	assert.Contains(t, unrecognized, "Why do you want to join our team?")

	completion := result.Data["completion"].(float64)
	assert.InDelta(t, 33.3, completion, 0.1)

	assert.Equal(t, units.QAID, result.Next)
	assert.Equal(t, "answer_batch", result.Carry["op"])
	questions := result.Carry["questions"].([]string)
	assert.Len(t, questions, 2)
}

func TestFillFormValidatesSuspectValues(t *testing.T) {
	h := newHarness(t)
	filler := units.NewFormFiller(h.deps)

	profile := &records.Profile{
		ID: "owner-3",
		Personal: map[string]interface{}{
			"name":  "Pat Quinn",
			"email": "not-an-email",
			"phone": "12345",
		},
	}
	require.NoError(t, h.deps.Records.SaveProfile(context.Background(), profile))

	result := perform(t, filler, agent.Task{
		"op":          "fill_form",
		"owner_id":    "owner-3",
		"form_fields": []string{"Email", "Phone"},
	})
	require.False(t, result.Failed())

	issues := result.Data["issues"].([]string)
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0], "email address")
	assert.Contains(t, issues[1], "fewer than 10 digits")
}

func TestPrepareApplicationBuildsPackage(t *testing.T) {
	h := newHarness(t)
	filler := units.NewFormFiller(h.deps)
	h.seedProfile(t, "owner-1")
	posting := h.seedPosting(t)

	app := &records.Application{
		ID:        records.NewApplicationID(),
		PostingID: posting.ID,
		OwnerID:   "owner-1",
		Status:    records.ApplicationPreparing,
		Resume:    "# Jordan Reyes tailored resume",
		Letter:    "Dear Hiring Manager, ...",
	}
	require.NoError(t, h.deps.Records.SaveApplication(context.Background(), app))

	result := perform(t, filler, agent.Task{
		"op":         "prepare_application",
		"owner_id":   "owner-1",
		"posting_id": posting.ID,
	})
	require.False(t, result.Failed(), result.ErrorMessage())
	assert.Equal(t, true, result.Data["ready_to_submit"])

	pkg := result.Data["package"].(map[string]interface{})
	personal := pkg["personal_info"].(map[string]interface{})
	assert.Equal(t, "Jordan Reyes", personal["name"])

	professional := pkg["professional_info"].(map[string]interface{})
	assert.Equal(t, "# Jordan Reyes tailored resume", professional["resume"])
	assert.Equal(t, "Dear Hiring Manager, ...", professional["cover_letter"])
	assert.Equal(t, "Senior Software Engineer", professional["current_title"])

	postingInfo := pkg["posting_info"].(map[string]interface{})
	assert.Equal(t, "Acme", postingInfo["company"])

	assert.Equal(t, units.TrackerID, result.Next)
	assert.Equal(t, "create_application", result.Carry["op"])
	assert.Equal(t, posting.ID, result.Carry["posting_id"])
}

func TestPrepareApplicationFallsBackToRawResume(t *testing.T) {
	h := newHarness(t)
	filler := units.NewFormFiller(h.deps)
	h.seedProfile(t, "owner-1")
	posting := h.seedPosting(t)

	result := perform(t, filler, agent.Task{
		"op":         "prepare_application",
		"owner_id":   "owner-1",
		"posting_id": posting.ID,
	})
	require.False(t, result.Failed())

	professional := result.Data["package"].(map[string]interface{})["professional_info"].(map[string]interface{})
	assert.Equal(t, "Jordan Reyes. Backend engineer, Python and Go.", professional["resume"])
	assert.Equal(t, true, result.Data["ready_to_submit"])
}
