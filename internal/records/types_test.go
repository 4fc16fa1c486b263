package records

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPostingID(t *testing.T) {
	id := PostingID("Acme", "Go Engineer", "Berlin")

	assert.Len(t, id, 16)
	assert.Equal(t, id, PostingID("Acme", "Go Engineer", "Berlin"), "same posting derives the same id")
	assert.Equal(t, id, PostingID("ACME", "go engineer", "berlin"), "derivation is case-insensitive")
	assert.NotEqual(t, id, PostingID("Acme", "Go Engineer", "Munich"))
}

func TestNewApplicationID(t *testing.T) {
	a, b := NewApplicationID(), NewApplicationID()

	assert.Len(t, a, 12)
	assert.NotContains(t, a, "-")
	assert.NotEqual(t, a, b)
}

func TestApplication_AddEvent(t *testing.T) {
	app := &Application{Status: ApplicationPreparing}
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	app.AddEvent(ApplicationSubmitted, "sent via portal", at)

	assert.Equal(t, ApplicationSubmitted, app.Status)
	if assert.Len(t, app.Timeline, 1) {
		assert.Equal(t, ApplicationSubmitted, app.Timeline[0].Status)
		assert.Equal(t, "sent via portal", app.Timeline[0].Note)
		assert.Equal(t, at, app.Timeline[0].At)
	}
}
