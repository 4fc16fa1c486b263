package draft

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Document kinds a drafter can produce.
const (
	KindResumeSummary = "resume_summary"
	KindCoverLetter   = "cover_letter"
)

// Letter tones. Professional is the default.
const (
	ToneProfessional = "professional"
	ToneEnthusiastic = "enthusiastic"
	ToneConcise      = "concise"
)

// Request describes one drafting job. Skills and Keywords arrive most
// relevant first; the drafter decides how many to use.
type Request struct {
	Kind       string   // resume_summary or cover_letter
	Tone       string   // letter tone, defaults to professional
	Owner      string   // candidate name for the signature
	Company    string
	Title      string   // posting title
	Summary    string   // current resume summary, may be empty
	Skills     []string // candidate skills matching the posting
	Keywords   []string // keywords the posting asks for
	Years      int      // estimated years of experience
	RecentRole string   // current or most recent title
	RecentOrg  string   // where it was held
}

// Drafter produces one document per request.
type Drafter interface {
	Name() string
	Draft(ctx context.Context, req Request) (string, error)
}

// Config holds drafter configuration.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	Logger   *zap.Logger
}

// New creates a drafter based on provider. An empty provider selects the
// offline template drafter.
func New(cfg *Config) (Drafter, error) {
	switch cfg.Provider {
	case "", "template":
		return NewTemplate(cfg.Logger), nil
	case "anthropic":
		return NewAnthropic(cfg.APIKey, cfg.Model, cfg.Logger)
	default:
		return nil, fmt.Errorf("unsupported draft provider: %s", cfg.Provider)
	}
}
