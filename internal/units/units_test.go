package units_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/records"
	"github.com/seekerlabs/seekerd/internal/state"
	"github.com/seekerlabs/seekerd/internal/units"
	"github.com/seekerlabs/seekerd/pkg/adapters/draft"
	recordsmem "github.com/seekerlabs/seekerd/pkg/adapters/records/memory"
	statemem "github.com/seekerlabs/seekerd/pkg/adapters/state/memory"
)

type harness struct {
	deps units.Deps
	now  time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st, err := state.Open(context.Background(), statemem.New(), zap.NewNop())
	require.NoError(t, err)

	now := time.Now()
	return &harness{
		now: now,
		deps: units.Deps{
			State:   st,
			Records: recordsmem.New(),
			Drafter: draft.NewTemplate(zap.NewNop()),
			Logger:  zap.NewNop(),
			Now:     func() time.Time { return now },
		},
	}
}

func perform(t *testing.T, unit agent.Unit, task agent.Task) *agent.Result {
	t.Helper()
	result, err := unit.Perform(context.Background(), task)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

// seedProfile stores a complete profile with a parsed resume, the state
// most units expect to find.
func (h *harness) seedProfile(t *testing.T, id string) *records.Profile {
	t.Helper()

	profile := &records.Profile{
		ID: id,
		Personal: map[string]interface{}{
			"name":     "Jordan Reyes",
			"email":    "jordan@example.com",
			"phone":    "+1 415 555 0113",
			"location": "Oakland, CA",
			"linkedin": "https://linkedin.com/in/jordanreyes",
		},
		Preferences: map[string]interface{}{
			"target_titles":     []string{"Software Engineer", "Backend Engineer"},
			"locations":         []string{"San Francisco"},
			"remote_preference": "any",
			"salary_min":        120000,
			"salary_max":        160000,
		},
		Filters: map[string]interface{}{},
		Resume: map[string]interface{}{
			"raw_text": "Jordan Reyes. Backend engineer, Python and Go.",
			"parsed": map[string]interface{}{
				"summary": "Backend engineer focused on reliable data platforms.",
				"experience": []map[string]interface{}{
					{
						"title":    "Senior Software Engineer",
						"company":  "Initech",
						"duration": "2021 - Present",
						"bullets": []string{
							"Built Python services handling 2M requests a day",
							"Led migration to Kubernetes",
							"Mentored four engineers",
						},
					},
					{
						"title":    "Software Engineer",
						"company":  "Hooli",
						"duration": "2018 - 2021",
						"bullets": []string{
							"Shipped React dashboards",
							"Maintained PostgreSQL schemas",
						},
					},
				},
				"education": []map[string]interface{}{
					{"degree": "B.S. Computer Science", "institution": "State University", "year": "2018"},
				},
				"skills": map[string]interface{}{
					"technical": []string{"python", "go", "sql", "react"},
					"tools":     []string{"docker", "kubernetes", "postgresql"},
					"soft":      []string{"communication"},
				},
				"certifications": []string{},
				"keywords":       []string{"python", "go", "sql", "react", "docker", "kubernetes", "postgresql"},
			},
		},
	}
	require.NoError(t, h.deps.Records.SaveProfile(context.Background(), profile))
	return profile
}

// seedPosting stores a posting that scores well against the seed profile.
func (h *harness) seedPosting(t *testing.T) *records.Posting {
	t.Helper()

	posting := &records.Posting{
		Company:      "Acme",
		Title:        "Software Engineer",
		Location:     "San Francisco, CA",
		Remote:       records.RemoteHybrid,
		Source:       "greenhouse",
		URL:          "https://boards.greenhouse.io/acme/jobs/1",
		SalaryMin:    130000,
		SalaryMax:    170000,
		Description:  "Build Python services with SQL storage and Docker deploys.",
		Requirements: []string{"Python", "SQL", "3+ years experience"},
		Keywords:     []string{"python", "sql", "docker"},
		Status:       records.PostingNew,
		ScrapedAt:    h.now,
	}
	posting.ID = records.PostingID(posting.Company, posting.Title, posting.Location)
	require.NoError(t, h.deps.Records.SavePosting(context.Background(), posting))
	return posting
}

func TestRegisterAllRegistersEveryUnit(t *testing.T) {
	h := newHarness(t)
	reg := agent.NewRegistry()
	require.NoError(t, units.RegisterAll(reg, h.deps))

	for _, id := range []string{
		units.ScraperID, units.MatcherID, units.TailorID, units.LetterID,
		units.FormFillerID, units.QAID, units.TrackerID, units.DigestID,
		units.ProfileID, units.ResumeParserID,
	} {
		assert.True(t, reg.Has(id), "unit %s not registered", id)
	}

	described, err := reg.Describe()
	require.NoError(t, err)
	assert.Len(t, described, 10)
}

func TestRegisterAllRejectsDuplicates(t *testing.T) {
	h := newHarness(t)
	reg := agent.NewRegistry()
	require.NoError(t, units.RegisterAll(reg, h.deps))
	require.Error(t, units.RegisterAll(reg, h.deps))
}

func TestUnknownOpIsDomainError(t *testing.T) {
	h := newHarness(t)
	tracker := units.NewTracker(h.deps)

	result := perform(t, tracker, agent.Task{"op": "launch_rocket"})
	assert.True(t, result.Failed())
	assert.Contains(t, result.ErrorMessage(), "unknown op")
}
