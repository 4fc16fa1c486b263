package units

import (
	"context"
	"errors"
	"fmt"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/records"
)

// staleAfterDays is how long a submitted application may sit without a
// response before refresh marks it stale.
const staleAfterDays = 30

var validStatuses = map[records.ApplicationStatus]bool{
	records.ApplicationPreparing: true,
	records.ApplicationReady:     true,
	records.ApplicationSubmitted: true,
	records.ApplicationInterview: true,
	records.ApplicationOffer:     true,
	records.ApplicationRejected:  true,
}

var pendingStatuses = map[records.ApplicationStatus]bool{
	records.ApplicationPreparing: true,
	records.ApplicationReady:     true,
	records.ApplicationSubmitted: true,
	records.ApplicationInterview: true,
}

// Tracker owns application records: creation, status transitions, and the
// per-application timeline.
type Tracker struct {
	*agent.Base
	deps Deps
}

func NewTracker(deps Deps) *Tracker {
	t := &Tracker{
		Base: agent.NewBase(TrackerID, "Tracks applications, status transitions, and timelines", deps.Logger),
		deps: deps,
	}
	t.Handle("create_application", t.createApplication)
	t.Handle("update_status", t.updateStatus)
	t.Handle("get_status", t.getStatus)
	t.Handle("get_applications", t.getApplications)
	t.Handle("sync_tracking", t.syncTracking)
	t.Handle("refresh_application_status", t.refreshStatus)
	t.Handle("add_note", t.addNote)
	t.Handle("get_timeline", t.getTimeline)
	return t
}

func (t *Tracker) createApplication(ctx context.Context, task agent.Task) (*agent.Result, error) {
	ownerID := task.String("owner_id")
	postingID := task.String("posting_id")
	if ownerID == "" || postingID == "" {
		return t.Fail(task.Op(), "owner_id and posting_id are required"), nil
	}
	if _, err := t.deps.Records.GetPosting(ctx, postingID); errors.Is(err, records.ErrNotFound) {
		return t.Failf(task.Op(), "posting not found: %s", postingID), nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to load posting %s: %w", postingID, err)
	}

	existing, err := findApplication(ctx, t.deps.Records, ownerID, postingID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return t.OK(task.Op(), map[string]interface{}{
			"application_id": existing.ID,
			"status":         string(existing.Status),
			"message":        "application already exists",
		}), nil
	}

	app := &records.Application{
		ID:         records.NewApplicationID(),
		PostingID:  postingID,
		OwnerID:    ownerID,
		Status:     records.ApplicationPreparing,
		MatchScore: task.Float("match_score"),
		Resume:     task.String("resume"),
		Letter:     task.String("cover_letter"),
	}
	app.AddEvent(records.ApplicationPreparing, "application created", t.deps.now())
	if err := t.deps.Records.SaveApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to save application: %w", err)
	}

	return t.OK(task.Op(), map[string]interface{}{
		"application_id": app.ID,
		"owner_id":       ownerID,
		"posting_id":     postingID,
		"status":         string(app.Status),
	}), nil
}

func (t *Tracker) updateStatus(ctx context.Context, task agent.Task) (*agent.Result, error) {
	appID := task.String("application_id")
	status := records.ApplicationStatus(task.String("status"))
	if appID == "" || status == "" {
		return t.Fail(task.Op(), "application_id and status are required"), nil
	}
	if !validStatuses[status] {
		return t.Failf(task.Op(), "invalid status: %s", status), nil
	}

	app, failResult, err := t.application(ctx, task, appID)
	if failResult != nil || err != nil {
		return failResult, err
	}

	oldStatus := app.Status
	note := task.StringOr("note", fmt.Sprintf("status changed from %s to %s", oldStatus, status))
	now := t.deps.now()
	app.AddEvent(status, note, now)
	if status == records.ApplicationSubmitted && app.SubmittedAt == nil {
		app.SubmittedAt = &now
	}
	if err := t.deps.Records.SaveApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to save application %s: %w", appID, err)
	}

	return t.OK(task.Op(), map[string]interface{}{
		"application_id": appID,
		"old_status":     string(oldStatus),
		"new_status":     string(status),
	}), nil
}

func (t *Tracker) getStatus(ctx context.Context, task agent.Task) (*agent.Result, error) {
	appID := task.String("application_id")
	if appID == "" {
		return t.Fail(task.Op(), "application_id is required"), nil
	}
	app, failResult, err := t.application(ctx, task, appID)
	if failResult != nil || err != nil {
		return failResult, err
	}

	data := map[string]interface{}{
		"application_id": app.ID,
		"owner_id":       app.OwnerID,
		"posting_id":     app.PostingID,
		"status":         string(app.Status),
		"match_score":    app.MatchScore,
		"has_resume":     app.Resume != "",
		"has_letter":     app.Letter != "",
	}
	if posting, err := t.deps.Records.GetPosting(ctx, app.PostingID); err == nil {
		data["title"] = posting.Title
		data["company"] = posting.Company
	}
	if app.SubmittedAt != nil {
		data["submitted_at"] = app.SubmittedAt.Format("2006-01-02T15:04:05Z07:00")
		data["days_since_submission"] = daysSince(*app.SubmittedAt, t.deps.now())
	}
	return t.OK(task.Op(), data), nil
}

func (t *Tracker) getApplications(ctx context.Context, task agent.Task) (*agent.Result, error) {
	ownerID := task.String("owner_id")
	if ownerID == "" {
		return t.Fail(task.Op(), "owner_id is required"), nil
	}

	filter := records.ApplicationFilter{
		OwnerID: ownerID,
		Status:  records.ApplicationStatus(task.String("status")),
		Limit:   task.Int("limit"),
	}
	if filter.Status != "" && !validStatuses[filter.Status] {
		return t.Failf(task.Op(), "invalid status: %s", filter.Status), nil
	}
	apps, err := t.deps.Records.SearchApplications(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search applications: %w", err)
	}

	items := make([]map[string]interface{}, 0, len(apps))
	for _, app := range apps {
		entry := map[string]interface{}{
			"application_id": app.ID,
			"posting_id":     app.PostingID,
			"status":         string(app.Status),
			"match_score":    app.MatchScore,
		}
		if posting, err := t.deps.Records.GetPosting(ctx, app.PostingID); err == nil {
			entry["title"] = posting.Title
			entry["company"] = posting.Company
		}
		items = append(items, entry)
	}

	stats, err := t.deps.Records.ApplicationStats(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	return t.OK(task.Op(), map[string]interface{}{
		"owner_id":     ownerID,
		"total":        len(items),
		"applications": items,
		"stats":        statusCounts(stats),
	}), nil
}

// syncTracking makes sure every matched posting has an application for the
// owner. Postings that already went through tailoring have one; this op
// covers the stragglers and hands the created set to the digest.
func (t *Tracker) syncTracking(ctx context.Context, task agent.Task) (*agent.Result, error) {
	ownerID := task.String("owner_id")
	if ownerID == "" {
		return t.Fail(task.Op(), "owner_id is required"), nil
	}

	matched, err := t.deps.Records.SearchPostings(ctx, records.PostingFilter{Status: records.PostingMatched})
	if err != nil {
		return nil, fmt.Errorf("failed to list matched postings: %w", err)
	}

	var created []string
	existing := 0
	for _, posting := range matched {
		app, err := findApplication(ctx, t.deps.Records, ownerID, posting.ID)
		if err != nil {
			return nil, err
		}
		if app != nil {
			existing++
			continue
		}
		app = &records.Application{
			ID:        records.NewApplicationID(),
			PostingID: posting.ID,
			OwnerID:   ownerID,
			Status:    records.ApplicationPreparing,
		}
		app.AddEvent(records.ApplicationPreparing, "application created", t.deps.now())
		if err := t.deps.Records.SaveApplication(ctx, app); err != nil {
			return nil, fmt.Errorf("failed to save application for posting %s: %w", posting.ID, err)
		}
		created = append(created, app.ID)
	}

	result := t.OK(task.Op(), map[string]interface{}{
		"owner_id":         ownerID,
		"matched_postings": len(matched),
		"created":          len(created),
		"existing":         existing,
		"created_ids":      created,
	})
	result.Next = DigestID
	result.Carry = map[string]interface{}{
		"op":               "generate_digest",
		"owner_id":         ownerID,
		"new_applications": created,
	}
	return result, nil
}

// refreshStatus sweeps the owner's applications, reporting the pending set
// and writing a timeline note on submitted ones that went quiet.
func (t *Tracker) refreshStatus(ctx context.Context, task agent.Task) (*agent.Result, error) {
	ownerID := task.String("owner_id")
	if ownerID == "" {
		return t.Fail(task.Op(), "owner_id is required"), nil
	}

	apps, err := t.deps.Records.SearchApplications(ctx, records.ApplicationFilter{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to search applications: %w", err)
	}

	now := t.deps.now()
	pending := 0
	var stale []map[string]interface{}
	for _, app := range apps {
		if pendingStatuses[app.Status] {
			pending++
		}
		if app.Status != records.ApplicationSubmitted || app.SubmittedAt == nil {
			continue
		}
		days := daysSince(*app.SubmittedAt, now)
		if days <= staleAfterDays {
			continue
		}
		app.AddEvent(app.Status, fmt.Sprintf("no response after %d days", days), now)
		if err := t.deps.Records.SaveApplication(ctx, app); err != nil {
			return nil, fmt.Errorf("failed to save application %s: %w", app.ID, err)
		}
		stale = append(stale, map[string]interface{}{
			"application_id":        app.ID,
			"days_since_submission": days,
		})
	}

	return t.OK(task.Op(), map[string]interface{}{
		"owner_id":  ownerID,
		"refreshed": len(apps),
		"pending":   pending,
		"stale":     stale,
	}), nil
}

func (t *Tracker) addNote(ctx context.Context, task agent.Task) (*agent.Result, error) {
	appID := task.String("application_id")
	note := task.String("note")
	if appID == "" || note == "" {
		return t.Fail(task.Op(), "application_id and note are required"), nil
	}
	app, failResult, err := t.application(ctx, task, appID)
	if failResult != nil || err != nil {
		return failResult, err
	}

	app.AddEvent(app.Status, note, t.deps.now())
	if err := t.deps.Records.SaveApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to save application %s: %w", appID, err)
	}

	return t.OK(task.Op(), map[string]interface{}{
		"application_id": appID,
		"note":           note,
		"total_events":   len(app.Timeline),
	}), nil
}

func (t *Tracker) getTimeline(ctx context.Context, task agent.Task) (*agent.Result, error) {
	appID := task.String("application_id")
	if appID == "" {
		return t.Fail(task.Op(), "application_id is required"), nil
	}
	app, failResult, err := t.application(ctx, task, appID)
	if failResult != nil || err != nil {
		return failResult, err
	}

	timeline := make([]map[string]interface{}, 0, len(app.Timeline))
	for _, event := range app.Timeline {
		timeline = append(timeline, map[string]interface{}{
			"status": string(event.Status),
			"note":   event.Note,
			"at":     event.At.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return t.OK(task.Op(), map[string]interface{}{
		"application_id": appID,
		"current_status": string(app.Status),
		"total_events":   len(timeline),
		"timeline":       timeline,
	}), nil
}

func (t *Tracker) application(ctx context.Context, task agent.Task, appID string) (*records.Application, *agent.Result, error) {
	app, err := t.deps.Records.GetApplication(ctx, appID)
	if errors.Is(err, records.ErrNotFound) {
		return nil, t.Failf(task.Op(), "application not found: %s", appID), nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load application %s: %w", appID, err)
	}
	return app, nil, nil
}

// statusCounts converts typed stats to the string keys results carry.
func statusCounts(stats map[records.ApplicationStatus]int) map[string]interface{} {
	out := make(map[string]interface{}, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}
