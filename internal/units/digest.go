package units

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/records"
)

// followUpAfterDays is how long a submitted application waits before the
// digest suggests a follow-up.
const followUpAfterDays = 7

// statusOrder fixes the display order of application statuses in reports.
var statusOrder = []records.ApplicationStatus{
	records.ApplicationPreparing,
	records.ApplicationReady,
	records.ApplicationSubmitted,
	records.ApplicationInterview,
	records.ApplicationOffer,
	records.ApplicationRejected,
}

// Digest renders daily and weekly summaries of an owner's pipeline.
type Digest struct {
	*agent.Base
	deps Deps
}

func NewDigest(deps Deps) *Digest {
	d := &Digest{
		Base: agent.NewBase(DigestID, "Builds daily digests, weekly summaries, and pipeline reports", deps.Logger),
		deps: deps,
	}
	d.Handle("generate_digest", d.generateDigest)
	d.Handle("weekly_summary", d.weeklySummary)
	d.Handle("pipeline_report", d.pipelineReport)
	d.Handle("activity_summary", d.activitySummary)
	return d
}

func (d *Digest) generateDigest(ctx context.Context, task agent.Task) (*agent.Result, error) {
	ownerID := task.String("owner_id")
	if ownerID == "" {
		return d.Fail(task.Op(), "owner_id is required"), nil
	}
	profile, err := d.deps.Records.GetProfile(ctx, ownerID)
	if errors.Is(err, records.ErrNotFound) {
		return d.Failf(task.Op(), "profile not found: %s", ownerID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", ownerID, err)
	}

	apps, err := d.deps.Records.SearchApplications(ctx, records.ApplicationFilter{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to search applications: %w", err)
	}
	stats, err := d.deps.Records.ApplicationStats(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	now := d.deps.now()
	dayAgo := now.Add(-24 * time.Hour)

	var recent, updates []*records.Application
	var followUps []map[string]interface{}
	for _, app := range apps {
		if app.CreatedAt.After(dayAgo) {
			recent = append(recent, app)
		} else if app.UpdatedAt.After(dayAgo) {
			updates = append(updates, app)
		}
		if app.Status == records.ApplicationSubmitted && app.SubmittedAt != nil {
			if days := daysSince(*app.SubmittedAt, now); days >= followUpAfterDays {
				followUps = append(followUps, map[string]interface{}{
					"application_id":        app.ID,
					"days_since_submission": days,
					"action":                "send follow-up email",
				})
			}
		}
	}

	name := stringAt(profile.Personal, "name")
	if name == "" {
		name = ownerID
	}
	digest := d.formatDigest(ctx, name, now, apps, stats, recent, updates, followUps, task.Strings("new_applications"))

	return d.OK(task.Op(), map[string]interface{}{
		"owner_id":         ownerID,
		"date":             now.Format("2006-01-02"),
		"digest":           digest,
		"stats":            statusCounts(stats),
		"recent_activity":  len(recent),
		"status_updates":   len(updates),
		"follow_ups":       followUps,
		"new_applications": len(task.Strings("new_applications")),
	}), nil
}

func (d *Digest) formatDigest(ctx context.Context, name string, now time.Time, apps []*records.Application, stats map[records.ApplicationStatus]int, recent, updates []*records.Application, followUps []map[string]interface{}, newApps []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Daily Digest for %s\n", name)
	fmt.Fprintf(&b, "Date: %s\n", now.Format("January 2, 2006"))

	b.WriteString("\n## Overview\n")
	fmt.Fprintf(&b, "Total applications: %d\n", len(apps))
	for _, status := range statusOrder {
		if count := stats[status]; count > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", status, count)
		}
	}

	if len(recent) > 0 {
		b.WriteString("\n## Today's Activity\n")
		for _, app := range capApplications(recent, 5) {
			fmt.Fprintf(&b, "- %s\n", d.describeApplication(ctx, app))
		}
	}
	if len(updates) > 0 {
		b.WriteString("\n## Status Updates\n")
		for _, app := range capApplications(updates, 5) {
			fmt.Fprintf(&b, "- %s is now %s\n", d.describeApplication(ctx, app), app.Status)
		}
	}
	if len(newApps) > 0 {
		b.WriteString("\n## New Applications Created\n")
		fmt.Fprintf(&b, "%d applications entered the pipeline today.\n", len(newApps))
	}
	if len(followUps) > 0 {
		b.WriteString("\n## Action Items\n")
		for _, item := range followUps {
			fmt.Fprintf(&b, "- Follow up on application %s (%d days since submission)\n",
				item["application_id"], item["days_since_submission"])
		}
	}

	b.WriteString("\n## Tips\n")
	b.WriteString(digestTip(stats))
	return b.String()
}

func (d *Digest) describeApplication(ctx context.Context, app *records.Application) string {
	if posting, err := d.deps.Records.GetPosting(ctx, app.PostingID); err == nil {
		return fmt.Sprintf("%s at %s", posting.Title, posting.Company)
	}
	return "application " + app.ID
}

func (d *Digest) weeklySummary(ctx context.Context, task agent.Task) (*agent.Result, error) {
	ownerID := task.String("owner_id")
	if ownerID == "" {
		return d.Fail(task.Op(), "owner_id is required"), nil
	}

	apps, err := d.deps.Records.SearchApplications(ctx, records.ApplicationFilter{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to search applications: %w", err)
	}
	stats, err := d.deps.Records.ApplicationStats(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	now := d.deps.now()
	weekAgo := now.Add(-7 * 24 * time.Hour)

	createdThisWeek := 0
	interviewsThisWeek := 0
	active := 0
	for _, app := range apps {
		if app.CreatedAt.After(weekAgo) {
			createdThisWeek++
		}
		if app.Status != records.ApplicationRejected && app.Status != records.ApplicationOffer {
			active++
		}
		for _, event := range app.Timeline {
			if event.Status == records.ApplicationInterview && event.At.After(weekAgo) {
				interviewsThisWeek++
				break
			}
		}
	}

	submitted := stats[records.ApplicationSubmitted] +
		stats[records.ApplicationInterview] +
		stats[records.ApplicationOffer] +
		stats[records.ApplicationRejected]
	responses := stats[records.ApplicationInterview] +
		stats[records.ApplicationOffer] +
		stats[records.ApplicationRejected]
	responseRate := 0.0
	if submitted > 0 {
		responseRate = math.Round(float64(responses)/float64(submitted)*1000) / 10
	}

	return d.OK(task.Op(), map[string]interface{}{
		"owner_id":             ownerID,
		"week_ending":          now.Format("2006-01-02"),
		"applications_created": createdThisWeek,
		"interviews_this_week": interviewsThisWeek,
		"total_active":         active,
		"response_rate":        responseRate,
		"highlights":           weeklyHighlights(responseRate, interviewsThisWeek, createdThisWeek),
	}), nil
}

func (d *Digest) pipelineReport(ctx context.Context, task agent.Task) (*agent.Result, error) {
	ownerID := task.String("owner_id")
	if ownerID == "" {
		return d.Fail(task.Op(), "owner_id is required"), nil
	}

	apps, err := d.deps.Records.SearchApplications(ctx, records.ApplicationFilter{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to search applications: %w", err)
	}

	now := d.deps.now()
	stages := make(map[string][]map[string]interface{})
	stageDays := make(map[string][]int)
	for _, app := range apps {
		days := 0
		if n := len(app.Timeline); n > 0 {
			days = daysSince(app.Timeline[n-1].At, now)
		}
		entry := map[string]interface{}{
			"application_id": app.ID,
			"match_score":    app.MatchScore,
			"days_in_stage":  days,
		}
		if posting, err := d.deps.Records.GetPosting(ctx, app.PostingID); err == nil {
			entry["title"] = posting.Title
			entry["company"] = posting.Company
		}
		key := string(app.Status)
		stages[key] = append(stages[key], entry)
		stageDays[key] = append(stageDays[key], days)
	}

	counts := make(map[string]interface{}, len(stages))
	averages := make(map[string]interface{}, len(stages))
	for stage, entries := range stages {
		counts[stage] = len(entries)
		total := 0
		for _, days := range stageDays[stage] {
			total += days
		}
		averages[stage] = math.Round(float64(total)/float64(len(entries))*10) / 10
	}

	return d.OK(task.Op(), map[string]interface{}{
		"owner_id":       ownerID,
		"total":          len(apps),
		"stages":         toInterfaceMap(stages),
		"stage_counts":   counts,
		"stage_avg_days": averages,
	}), nil
}

func (d *Digest) activitySummary(ctx context.Context, task agent.Task) (*agent.Result, error) {
	days := task.Int("days")
	if days <= 0 {
		days = 7
	}
	cutoff := d.deps.now().Add(-time.Duration(days) * 24 * time.Hour)

	actions, err := d.deps.Records.Actions(ctx, task.String("unit"), 500)
	if err != nil {
		return nil, fmt.Errorf("failed to load action log: %w", err)
	}

	byUnit := make(map[string]int)
	byOp := make(map[string]int)
	total := 0
	for _, action := range actions {
		if action.At.Before(cutoff) {
			continue
		}
		total++
		byUnit[action.Unit]++
		byOp[action.Unit+"."+action.Op]++
	}

	mostActive := ""
	best := 0
	units := make([]string, 0, len(byUnit))
	for unit := range byUnit {
		units = append(units, unit)
	}
	sort.Strings(units)
	for _, unit := range units {
		if byUnit[unit] > best {
			mostActive, best = unit, byUnit[unit]
		}
	}

	return d.OK(task.Op(), map[string]interface{}{
		"period_days":      days,
		"total_actions":    total,
		"by_unit":          toCountMap(byUnit),
		"by_op":            toCountMap(byOp),
		"most_active_unit": mostActive,
	}), nil
}

func digestTip(stats map[records.ApplicationStatus]int) string {
	switch {
	case stats[records.ApplicationSubmitted] == 0 && stats[records.ApplicationReady] > 0:
		return "You have applications ready to submit. Review and send them out.\n"
	case stats[records.ApplicationInterview] > 0:
		return "You have interviews in progress. Research each company before the call.\n"
	case stats[records.ApplicationPreparing] > 3:
		return "Several applications are still in preparation. Finishing them beats starting new ones.\n"
	default:
		return "Keep your pipeline moving: a few quality applications a day compound quickly.\n"
	}
}

func weeklyHighlights(responseRate float64, interviews, created int) []string {
	var highlights []string
	switch {
	case responseRate >= 30:
		highlights = append(highlights, "Great response rate, your applications are landing well")
	case responseRate >= 15:
		highlights = append(highlights, "Solid response rate for the current market")
	case responseRate > 0:
		highlights = append(highlights, "Response rate is low, consider refining your targeting")
	}
	if interviews > 0 {
		highlights = append(highlights, fmt.Sprintf("%d interviews scheduled this week", interviews))
	}
	if created > 0 {
		highlights = append(highlights, fmt.Sprintf("%d new applications entered the pipeline", created))
	}
	if len(highlights) == 0 {
		highlights = append(highlights, "Quiet week, a good time to expand your sources")
	}
	return highlights
}

func capApplications(apps []*records.Application, limit int) []*records.Application {
	if len(apps) > limit {
		return apps[:limit]
	}
	return apps
}

func toInterfaceMap(stages map[string][]map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(stages))
	for key, entries := range stages {
		out[key] = entries
	}
	return out
}

func toCountMap(counts map[string]int) map[string]interface{} {
	out := make(map[string]interface{}, len(counts))
	for key, count := range counts {
		out[key] = count
	}
	return out
}
