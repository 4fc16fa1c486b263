package units_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/records"
	"github.com/seekerlabs/seekerd/internal/units"
)

const sampleResume = `Jordan Reyes
Oakland, CA | jordan@example.com

SUMMARY
Backend engineer with eight years building data platforms.
Comfortable owning services end to end.

EXPERIENCE
Senior Software Engineer at Initech  2021 - Present
- Built Python services handling 2M requests a day
- Led migration to Kubernetes
Software Engineer at Hooli  2018 - 2021
- Shipped React dashboards
- Maintained PostgreSQL schemas

EDUCATION
B.S. Computer Science, State University, 2018

SKILLS
Python, Go, SQL, React, Docker, Kubernetes, PostgreSQL

CERTIFICATIONS
AWS Certified Solutions Architect

PROJECTS
Homelab Dashboard
- Kubernetes cluster metrics with custom Grafana panels`

func TestParseResumeExtractsStructure(t *testing.T) {
	h := newHarness(t)
	parser := units.NewResumeParser(h.deps)

	profile := &records.Profile{ID: "owner-1", Personal: map[string]interface{}{"name": "Jordan Reyes"}}
	require.NoError(t, h.deps.Records.SaveProfile(context.Background(), profile))

	result := perform(t, parser, agent.Task{
		"op":          "parse_resume",
		"owner_id":    "owner-1",
		"resume_text": sampleResume,
	})
	require.False(t, result.Failed(), result.ErrorMessage())

	parsed := result.Data["parsed_resume"].(map[string]interface{})

	summary := parsed["summary"].(string)
	assert.Contains(t, summary, "Backend engineer with eight years")

	experience := parsed["experience"].([]map[string]interface{})
	require.Len(t, experience, 2)
	assert.Equal(t, "Senior Software Engineer", experience[0]["title"])
	assert.Equal(t, "Initech", experience[0]["company"])
	assert.Equal(t, "2021 - Present", experience[0]["duration"])
	bullets := experience[0]["bullets"].([]string)
	require.Len(t, bullets, 2)
	assert.Equal(t, "Built Python services handling 2M requests a day", bullets[0])
	assert.Equal(t, "Hooli", experience[1]["company"])
	assert.Equal(t, []string{"Shipped React dashboards", "Maintained PostgreSQL schemas"},
		experience[1]["bullets"], "bullets must not leak across section boundaries")

	education := parsed["education"].([]map[string]interface{})
	require.Len(t, education, 1)
	assert.Equal(t, "State University", education[0]["institution"])
	assert.Equal(t, "2018", education[0]["year"])

	skills := parsed["skills"].(map[string]interface{})
	technical := skills["technical"].([]string)
	assert.Contains(t, technical, "python")
	assert.Contains(t, technical, "go")
	assert.Contains(t, technical, "react")
	tools := skills["tools"].([]string)
	assert.Contains(t, tools, "docker")
	assert.Contains(t, tools, "postgresql")

	certifications := parsed["certifications"].([]string)
	require.Len(t, certifications, 1)
	assert.Contains(t, certifications[0], "AWS Certified")

	projects := parsed["projects"].([]map[string]interface{})
	require.Len(t, projects, 1)
	assert.Equal(t, "Homelab Dashboard", projects[0]["name"])
	assert.Contains(t, projects[0]["description"], "Grafana")

	stats := result.Data["summary_stats"].(map[string]interface{})
	assert.Equal(t, 2, stats["experience_count"])
	assert.Equal(t, 1, stats["education_count"])

	stored, err := h.deps.Records.GetProfile(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, sampleResume, stored.Resume["raw_text"])
	assert.NotNil(t, stored.Resume["parsed"])
}

func TestParseResumeFromFile(t *testing.T) {
	h := newHarness(t)
	parser := units.NewResumeParser(h.deps)

	path := filepath.Join(t.TempDir(), "resume.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleResume), 0o600))

	result := perform(t, parser, agent.Task{
		"op":          "parse_resume",
		"resume_path": path,
	})
	require.False(t, result.Failed(), result.ErrorMessage())

	parsed := result.Data["parsed_resume"].(map[string]interface{})
	assert.Len(t, parsed["experience"], 2)
}

func TestParseResumeRequiresText(t *testing.T) {
	h := newHarness(t)
	parser := units.NewResumeParser(h.deps)

	result := perform(t, parser, agent.Task{"op": "parse_resume"})
	assert.True(t, result.Failed())

	missing := perform(t, parser, agent.Task{
		"op":          "parse_resume",
		"resume_path": "/nonexistent/resume.txt",
	})
	assert.True(t, missing.Failed())
	assert.Contains(t, missing.ErrorMessage(), "failed to read resume file")
}

func TestExtractSkillsMatchesWholeWords(t *testing.T) {
	h := newHarness(t)
	parser := units.NewResumeParser(h.deps)

	result := perform(t, parser, agent.Task{
		"op":   "extract_skills",
		"text": "Heavy Django user. Some Go and Docker. Leadership across teams.",
	})
	require.False(t, result.Failed())

	skills := result.Data["skills"].(map[string]interface{})
	technical := skills["technical"].([]string)
	assert.Contains(t, technical, "django")
	assert.Contains(t, technical, "go")

	soft := skills["soft"].([]string)
	assert.Contains(t, soft, "leadership")

	keywords := result.Data["keywords"].([]string)
	assert.Contains(t, keywords, "docker")
}

func TestExtractSkillsIgnoresEmbeddedTerms(t *testing.T) {
	h := newHarness(t)
	parser := units.NewResumeParser(h.deps)

	result := perform(t, parser, agent.Task{
		"op":   "extract_skills",
		"text": "Django tooling, algorithms, categories.",
	})
	require.False(t, result.Failed())

	skills := result.Data["skills"].(map[string]interface{})
	technical := skills["technical"].([]string)
	assert.Contains(t, technical, "django")
	assert.NotContains(t, technical, "go", "go inside django or algorithms must not count")
}
