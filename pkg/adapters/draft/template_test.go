package draft_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seekerlabs/seekerd/pkg/adapters/draft"
)

func TestFactorySelectsProvider(t *testing.T) {
	logger := zap.NewNop()

	d, err := draft.New(&draft.Config{Logger: logger})
	require.NoError(t, err)
	assert.Equal(t, "template", d.Name())

	d, err = draft.New(&draft.Config{Provider: "anthropic", APIKey: "sk-test", Logger: logger})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", d.Name())

	_, err = draft.New(&draft.Config{Provider: "anthropic", Logger: logger})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")

	_, err = draft.New(&draft.Config{Provider: "palm", Logger: logger})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported draft provider")
}

func TestTemplateCoverLetter(t *testing.T) {
	d := draft.NewTemplate(zap.NewNop())

	text, err := d.Draft(context.Background(), draft.Request{
		Kind:       draft.KindCoverLetter,
		Owner:      "Dana Fields",
		Company:    "Acme",
		Title:      "Backend Engineer",
		Skills:     []string{"Go", "PostgreSQL", "Kubernetes"},
		Years:      6,
		RecentRole: "Software Engineer",
		RecentOrg:  "Initech",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "Dear Hiring Manager,"))
	assert.Contains(t, text, "Backend Engineer position at Acme")
	assert.Contains(t, text, "With 6+ years of experience")
	assert.Contains(t, text, "Software Engineer at Initech")
	assert.Contains(t, text, "Go, PostgreSQL, Kubernetes")
	assert.True(t, strings.HasSuffix(text, "Sincerely,\nDana Fields"))
}

func TestTemplateCoverLetterTones(t *testing.T) {
	d := draft.NewTemplate(zap.NewNop())
	base := draft.Request{
		Kind:    draft.KindCoverLetter,
		Owner:   "Dana Fields",
		Company: "Acme",
		Title:   "Backend Engineer",
		Years:   4,
	}

	base.Tone = draft.ToneEnthusiastic
	text, err := d.Draft(context.Background(), base)
	require.NoError(t, err)
	assert.Contains(t, text, "thrilled to apply")
	assert.Contains(t, text, "Best regards,")

	base.Tone = draft.ToneConcise
	text, err = d.Draft(context.Background(), base)
	require.NoError(t, err)
	assert.Contains(t, text, "I am applying for the Backend Engineer position")
	assert.Contains(t, text, "4+ years of professional experience")
}

func TestTemplateCoverLetterFallbacks(t *testing.T) {
	d := draft.NewTemplate(zap.NewNop())

	text, err := d.Draft(context.Background(), draft.Request{
		Kind:  draft.KindCoverLetter,
		Owner: "Dana Fields",
	})
	require.NoError(t, err)
	assert.Contains(t, text, "the position at your company")
	assert.Contains(t, text, "eager to apply my skills")
	assert.Contains(t, text, "diverse skill set")
}

func TestTemplateSummary(t *testing.T) {
	d := draft.NewTemplate(zap.NewNop())

	text, err := d.Draft(context.Background(), draft.Request{
		Kind:     draft.KindResumeSummary,
		Title:    "Platform Engineer",
		Summary:  "Seasoned engineer who ships reliable systems.",
		Keywords: []string{"Kubernetes", "Terraform", "Go", "AWS"},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "Platform Engineer professional. "))
	assert.Contains(t, text, "Seasoned engineer who ships reliable systems.")
	// Only the first three missing keywords are worked in.
	assert.Contains(t, text, "expertise in Kubernetes, Terraform, Go")
	assert.NotContains(t, text, "AWS")
}

func TestTemplateSummaryEmpty(t *testing.T) {
	d := draft.NewTemplate(zap.NewNop())

	text, err := d.Draft(context.Background(), draft.Request{Kind: draft.KindResumeSummary})
	require.NoError(t, err)
	assert.Equal(t, "Experienced professional", text)
}

func TestTemplateUnknownKind(t *testing.T) {
	d := draft.NewTemplate(zap.NewNop())

	_, err := d.Draft(context.Background(), draft.Request{Kind: "haiku"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown document kind")
}
