package records

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PostingStatus tracks a posting through the funnel.
type PostingStatus string

const (
	PostingNew      PostingStatus = "new"
	PostingMatched  PostingStatus = "matched"
	PostingApplied  PostingStatus = "applied"
	PostingRejected PostingStatus = "rejected"
	PostingExpired  PostingStatus = "expired"
)

// ApplicationStatus tracks an application from draft to outcome.
type ApplicationStatus string

const (
	ApplicationPreparing ApplicationStatus = "preparing"
	ApplicationReady     ApplicationStatus = "ready"
	ApplicationSubmitted ApplicationStatus = "submitted"
	ApplicationInterview ApplicationStatus = "interview"
	ApplicationOffer     ApplicationStatus = "offer"
	ApplicationRejected  ApplicationStatus = "rejected"
)

// RemoteStatus describes where the work happens.
type RemoteStatus string

const (
	RemoteFull    RemoteStatus = "remote"
	RemoteHybrid  RemoteStatus = "hybrid"
	RemoteOnsite  RemoteStatus = "onsite"
	RemoteUnknown RemoteStatus = "unknown"
)

// Profile is a job seeker: personal details, search preferences, hard
// filters, and the parsed resume. Sections are free-form maps because their
// shape is owned by the units that read them.
type Profile struct {
	ID          string                 `json:"id"`
	Personal    map[string]interface{} `json:"personal"`
	Preferences map[string]interface{} `json:"preferences"`
	Filters     map[string]interface{} `json:"filters"`
	Resume      map[string]interface{} `json:"resume"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Posting is one scraped job ad. The id is derived from company, title and
// location so re-scraping the same ad overwrites instead of duplicating.
type Posting struct {
	ID           string                 `json:"id"`
	Company      string                 `json:"company"`
	Title        string                 `json:"title"`
	Location     string                 `json:"location"`
	Remote       RemoteStatus           `json:"remote_status"`
	Source       string                 `json:"source,omitempty"`
	URL          string                 `json:"url,omitempty"`
	SalaryMin    int                    `json:"salary_min,omitempty"`
	SalaryMax    int                    `json:"salary_max,omitempty"`
	Description  string                 `json:"description,omitempty"`
	Requirements []string               `json:"requirements,omitempty"`
	Keywords     []string               `json:"keywords,omitempty"`
	Status       PostingStatus          `json:"status"`
	ScrapedAt    time.Time              `json:"scraped_at"`
	Data         map[string]interface{} `json:"data,omitempty"`
}

// TimelineEvent is one step in an application's history.
type TimelineEvent struct {
	Status ApplicationStatus `json:"status"`
	Note   string            `json:"note,omitempty"`
	At     time.Time         `json:"at"`
}

// Application joins an owner to a posting and accumulates everything
// produced on the way: score, tailored resume, letter, form answers.
type Application struct {
	ID          string                 `json:"id"`
	PostingID   string                 `json:"posting_id"`
	OwnerID     string                 `json:"owner_id"`
	Status      ApplicationStatus      `json:"status"`
	MatchScore  float64                `json:"match_score,omitempty"`
	Resume      string                 `json:"resume,omitempty"`
	Letter      string                 `json:"letter,omitempty"`
	FormAnswers map[string]interface{} `json:"form_answers,omitempty"`
	SubmittedAt *time.Time             `json:"submitted_at,omitempty"`
	Timeline    []TimelineEvent        `json:"timeline,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// AddEvent appends a timeline event and moves the application to status.
func (a *Application) AddEvent(status ApplicationStatus, note string, at time.Time) {
	a.Status = status
	a.Timeline = append(a.Timeline, TimelineEvent{
		Status: status,
		Note:   note,
		At:     at,
	})
}

// ActionLog is one audited unit invocation.
type ActionLog struct {
	ID     string                 `json:"id"`
	Unit   string                 `json:"unit"`
	Op     string                 `json:"op"`
	Input  map[string]interface{} `json:"input,omitempty"`
	Output map[string]interface{} `json:"output,omitempty"`
	At     time.Time              `json:"at"`
}

// PostingID derives the stable posting id: the first 16 hex characters of
// sha256 over the lowercased "company|title|location".
func PostingID(company, title, location string) string {
	raw := strings.ToLower(fmt.Sprintf("%s|%s|%s", company, title, location))
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:16]
}

// NewApplicationID returns a short random application id: the first 12 hex
// characters of a v4 uuid.
func NewApplicationID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
