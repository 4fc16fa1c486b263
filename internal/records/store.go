package records

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// PostingFilter narrows SearchPostings. Company and Location are
// case-insensitive substring matches, Status is exact; zero values match
// everything. Limit <= 0 means no limit.
type PostingFilter struct {
	Company  string
	Location string
	Status   PostingStatus
	Limit    int
}

// ApplicationFilter narrows SearchApplications by owner and/or status.
type ApplicationFilter struct {
	OwnerID string
	Status  ApplicationStatus
	Limit   int
}

// Store is the durable store port. Saves are upserts; implementations stamp
// CreatedAt on first save and bump UpdatedAt on every save.
type Store interface {
	SaveProfile(ctx context.Context, p *Profile) error
	GetProfile(ctx context.Context, id string) (*Profile, error)
	ListProfiles(ctx context.Context) ([]*Profile, error)

	SavePosting(ctx context.Context, p *Posting) error
	GetPosting(ctx context.Context, id string) (*Posting, error)
	SearchPostings(ctx context.Context, f PostingFilter) ([]*Posting, error)

	SaveApplication(ctx context.Context, a *Application) error
	GetApplication(ctx context.Context, id string) (*Application, error)
	SearchApplications(ctx context.Context, f ApplicationFilter) ([]*Application, error)
	ApplicationStats(ctx context.Context, ownerID string) (map[ApplicationStatus]int, error)

	LogAction(ctx context.Context, entry *ActionLog) error
	Actions(ctx context.Context, unit string, limit int) ([]*ActionLog, error)

	Ping(ctx context.Context) error
	Close() error
}
