package units

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/records"
	"github.com/seekerlabs/seekerd/internal/state"
	"github.com/seekerlabs/seekerd/pkg/adapters/draft"
)

// Unit ids. Pipelines, chain links, and the HTTP API refer to these.
const (
	ScraperID      = "scraper"
	MatcherID      = "matcher"
	TailorID       = "resume-tailor"
	LetterID       = "cover-letter"
	FormFillerID   = "form-filler"
	QAID           = "qa"
	TrackerID      = "tracker"
	DigestID       = "digest"
	ProfileID      = "profile"
	ResumeParserID = "resume-parser"
)

// Deps carries everything a unit may need. RegisterAll closes over a single
// Deps value, so all units share the same stores and clock.
type Deps struct {
	State   *state.Store
	Records records.Store
	Drafter draft.Drafter
	Logger  *zap.Logger
	Now     func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// RegisterAll registers every unit with the registry. This table is the only
// place units come into existence; a duplicate id fails loud here.
func RegisterAll(reg *agent.Registry, deps Deps) error {
	table := []struct {
		id   string
		ctor agent.Constructor
	}{
		{ScraperID, func() agent.Unit { return NewScraper(deps) }},
		{MatcherID, func() agent.Unit { return NewMatcher(deps) }},
		{TailorID, func() agent.Unit { return NewTailor(deps) }},
		{LetterID, func() agent.Unit { return NewLetter(deps) }},
		{FormFillerID, func() agent.Unit { return NewFormFiller(deps) }},
		{QAID, func() agent.Unit { return NewQA(deps) }},
		{TrackerID, func() agent.Unit { return NewTracker(deps) }},
		{DigestID, func() agent.Unit { return NewDigest(deps) }},
		{ProfileID, func() agent.Unit { return NewProfile(deps) }},
		{ResumeParserID, func() agent.Unit { return NewResumeParser(deps) }},
	}

	for _, entry := range table {
		if err := reg.Register(entry.id, entry.ctor); err != nil {
			return fmt.Errorf("failed to register unit %s: %w", entry.id, err)
		}
	}
	return nil
}
