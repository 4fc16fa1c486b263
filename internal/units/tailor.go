package units

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/records"
	"github.com/seekerlabs/seekerd/pkg/adapters/draft"
)

// Tailor rebuilds a parsed resume around one posting: the summary is
// redrafted, skills are reordered to lead with what the posting asks for,
// and experience bullets are ranked by relevance.
type Tailor struct {
	*agent.Base
	deps Deps
}

func NewTailor(deps Deps) *Tailor {
	t := &Tailor{
		Base: agent.NewBase(TailorID, "Rebuilds resumes around specific postings", deps.Logger),
		deps: deps,
	}
	t.Handle("tailor_resumes", t.tailorResumes)
	t.Handle("tailor_one", t.tailorOne)
	return t
}

func (t *Tailor) tailorResumes(ctx context.Context, task agent.Task) (*agent.Result, error) {
	ownerID := task.String("owner_id")
	if ownerID == "" {
		return t.Fail(task.Op(), "owner_id is required"), nil
	}
	profile, failResult, err := t.profile(ctx, task, ownerID)
	if failResult != nil || err != nil {
		return failResult, err
	}
	if len(parsedResume(profile)) == 0 {
		return t.Failf(task.Op(), "profile %s has no parsed resume", ownerID), nil
	}

	ids := task.Strings("posting_ids")
	if len(ids) == 0 {
		matched, err := t.deps.Records.SearchPostings(ctx, records.PostingFilter{Status: records.PostingMatched})
		if err != nil {
			return nil, fmt.Errorf("failed to list matched postings: %w", err)
		}
		for _, posting := range matched {
			ids = append(ids, posting.ID)
		}
	}

	var (
		items    []map[string]interface{}
		tailored []string
	)
	for _, postingID := range ids {
		appID, err := t.tailorFor(ctx, profile, postingID)
		if err != nil {
			var domainErr *domainError
			if errors.As(err, &domainErr) {
				t.Logger().Warn("skipping posting",
					zap.String("posting_id", postingID),
					zap.String("reason", domainErr.msg))
				items = append(items, map[string]interface{}{
					"posting_id": postingID,
					"ok":         false,
					"reason":     domainErr.msg,
				})
				continue
			}
			return nil, err
		}
		items = append(items, map[string]interface{}{
			"posting_id":     postingID,
			"ok":             true,
			"application_id": appID,
		})
		tailored = append(tailored, postingID)
	}

	result := t.OK(task.Op(), map[string]interface{}{
		"owner_id": ownerID,
		"total":    len(ids),
		"tailored": len(tailored),
		"results":  items,
	})
	if len(tailored) > 0 {
		result.Next = LetterID
		result.Carry = map[string]interface{}{
			"op":          "generate_letters",
			"owner_id":    ownerID,
			"posting_ids": tailored,
		}
	}
	return result, nil
}

func (t *Tailor) tailorOne(ctx context.Context, task agent.Task) (*agent.Result, error) {
	ownerID := task.String("owner_id")
	postingID := task.String("posting_id")
	if ownerID == "" || postingID == "" {
		return t.Fail(task.Op(), "owner_id and posting_id are required"), nil
	}
	profile, failResult, err := t.profile(ctx, task, ownerID)
	if failResult != nil || err != nil {
		return failResult, err
	}
	if len(parsedResume(profile)) == 0 {
		return t.Failf(task.Op(), "profile %s has no parsed resume", ownerID), nil
	}

	appID, err := t.tailorFor(ctx, profile, postingID)
	if err != nil {
		var domainErr *domainError
		if errors.As(err, &domainErr) {
			return t.Fail(task.Op(), domainErr.msg), nil
		}
		return nil, err
	}

	app, err := t.deps.Records.GetApplication(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload application %s: %w", appID, err)
	}
	posting, err := t.deps.Records.GetPosting(ctx, postingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load posting %s: %w", postingID, err)
	}

	keywords := postingKeywords(posting)
	result := t.OK(task.Op(), map[string]interface{}{
		"owner_id":       ownerID,
		"posting_id":     postingID,
		"application_id": appID,
		"resume":         app.Resume,
		"keywords_used":  capStrings(keywords, 15),
		"notes":          tailoringNotes(parsedResume(profile), keywords),
	})
	result.Next = LetterID
	result.Carry = map[string]interface{}{
		"op":         "generate_one",
		"owner_id":   ownerID,
		"posting_id": postingID,
	}
	return result, nil
}

// tailorFor builds the tailored resume for one posting and stores it on the
// owner's application, creating the application when none exists.
func (t *Tailor) tailorFor(ctx context.Context, profile *records.Profile, postingID string) (string, error) {
	posting, err := t.deps.Records.GetPosting(ctx, postingID)
	if errors.Is(err, records.ErrNotFound) {
		return "", &domainError{msg: fmt.Sprintf("posting not found: %s", postingID)}
	}
	if err != nil {
		return "", fmt.Errorf("failed to load posting %s: %w", postingID, err)
	}

	keywords := postingKeywords(posting)
	resume, err := t.buildResume(ctx, profile, posting, keywords)
	if err != nil {
		return "", err
	}

	app, err := findApplication(ctx, t.deps.Records, profile.ID, postingID)
	if err != nil {
		return "", err
	}
	if app == nil {
		app = &records.Application{
			ID:        records.NewApplicationID(),
			PostingID: postingID,
			OwnerID:   profile.ID,
			Status:    records.ApplicationPreparing,
		}
		app.AddEvent(records.ApplicationPreparing, "application created", t.deps.now())
	}
	app.Resume = resume
	if err := t.deps.Records.SaveApplication(ctx, app); err != nil {
		return "", fmt.Errorf("failed to save application %s: %w", app.ID, err)
	}
	return app.ID, nil
}

// buildResume renders the tailored document in markdown.
func (t *Tailor) buildResume(ctx context.Context, profile *records.Profile, posting *records.Posting, keywords []string) (string, error) {
	parsed := parsedResume(profile)
	name := stringAt(profile.Personal, "name")
	if name == "" {
		name = "Candidate"
	}

	summary, err := t.deps.Drafter.Draft(ctx, draft.Request{
		Kind:     draft.KindResumeSummary,
		Owner:    name,
		Company:  posting.Company,
		Title:    posting.Title,
		Summary:  stringAt(parsed, "summary"),
		Keywords: capStrings(keywords, 3),
	})
	if err != nil {
		return "", fmt.Errorf("failed to draft summary: %w", err)
	}

	var b strings.Builder
	b.WriteString("# " + name + "\n")
	if contact := contactLine(profile.Personal); contact != "" {
		b.WriteString(contact + "\n")
	}

	b.WriteString("\n## Professional Summary\n")
	b.WriteString(summary + "\n")

	if skills := prioritizeSkills(parsed, keywords); len(skills) > 0 {
		b.WriteString("\n## Technical Skills\n")
		b.WriteString(strings.Join(skills, ", ") + "\n")
	}

	if experience := mapsAt(parsed, "experience"); len(experience) > 0 {
		b.WriteString("\n## Professional Experience\n")
		for _, position := range experience {
			writePosition(&b, position, keywords)
		}
	}

	if education := mapsAt(parsed, "education"); len(education) > 0 {
		b.WriteString("\n## Education\n")
		for _, entry := range education {
			line := "**" + stringAt(entry, "degree") + "**"
			if inst := stringAt(entry, "institution"); inst != "" {
				line += " - " + inst
			}
			if year := stringAt(entry, "year"); year != "" {
				line += " (" + year + ")"
			}
			b.WriteString(line + "\n")
		}
	}

	if certs := stringsAt(parsed, "certifications"); len(certs) > 0 {
		b.WriteString("\n## Certifications\n")
		for _, cert := range capStrings(certs, 5) {
			b.WriteString("- " + cert + "\n")
		}
	}

	return b.String(), nil
}

func writePosition(b *strings.Builder, position map[string]interface{}, keywords []string) {
	title := stringAt(position, "title")
	if title == "" {
		title = "Role"
	}
	heading := "\n### " + title
	if company := stringAt(position, "company"); company != "" {
		heading += " at " + company
	}
	b.WriteString(heading + "\n")
	if duration := stringAt(position, "duration"); duration != "" {
		b.WriteString("*" + duration + "*\n")
	}
	for _, bullet := range rankBullets(stringsAt(position, "bullets"), keywords, 5) {
		b.WriteString("- " + bullet + "\n")
	}
}

// prioritizeSkills puts skills the posting asks for first, everything else
// after, both groups alphabetical, capped at 20.
func prioritizeSkills(parsed map[string]interface{}, keywords []string) []string {
	wanted := make(map[string]bool, len(keywords))
	for _, keyword := range keywords {
		wanted[strings.ToLower(keyword)] = true
	}

	var lead, rest []string
	seen := make(map[string]bool)
	skills := mapAt(parsed, "skills")
	for _, group := range []string{"technical", "tools"} {
		for _, skill := range stringsAt(skills, group) {
			lower := strings.ToLower(skill)
			if seen[lower] {
				continue
			}
			seen[lower] = true
			if wanted[lower] {
				lead = append(lead, skill)
			} else {
				rest = append(rest, skill)
			}
		}
	}
	sort.Strings(lead)
	sort.Strings(rest)
	return capStrings(append(lead, rest...), 20)
}

// rankBullets orders bullets by how many posting keywords they mention,
// keeping the original order for ties.
func rankBullets(bullets, keywords []string, limit int) []string {
	type scored struct {
		text string
		hits int
	}
	ranked := make([]scored, 0, len(bullets))
	for _, bullet := range bullets {
		lower := strings.ToLower(bullet)
		hits := 0
		for _, keyword := range keywords {
			if containsTerm(lower, strings.ToLower(keyword)) {
				hits++
			}
		}
		ranked = append(ranked, scored{text: bullet, hits: hits})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].hits > ranked[j].hits
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]string, len(ranked))
	for i, entry := range ranked {
		out[i] = entry.text
	}
	return out
}

func tailoringNotes(parsed map[string]interface{}, keywords []string) []string {
	matched := 0
	for _, skill := range resumeSkills(parsed) {
		for _, keyword := range keywords {
			if strings.EqualFold(skill, keyword) {
				matched++
				break
			}
		}
	}

	notes := []string{
		"reordered experience bullets by posting relevance",
		"prioritized skills matching the requirements",
	}
	if matched > 0 {
		notes = append([]string{fmt.Sprintf("emphasized %d matching skills", matched)}, notes...)
	}
	return notes
}

// postingKeywords prefers extracted keywords stored on the posting and
// falls back to extracting from its text.
func postingKeywords(posting *records.Posting) []string {
	if len(posting.Keywords) > 0 {
		return posting.Keywords
	}
	return extractKeywords(posting.Title + " " + posting.Description + " " + strings.Join(posting.Requirements, " "))
}

func contactLine(personal map[string]interface{}) string {
	var parts []string
	for _, key := range []string{"email", "phone", "location", "linkedin"} {
		if value := stringAt(personal, key); value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, " | ")
}

func capStrings(values []string, limit int) []string {
	if limit > 0 && len(values) > limit {
		return values[:limit]
	}
	return values
}

func (t *Tailor) profile(ctx context.Context, task agent.Task, ownerID string) (*records.Profile, *agent.Result, error) {
	profile, err := t.deps.Records.GetProfile(ctx, ownerID)
	if errors.Is(err, records.ErrNotFound) {
		return nil, t.Failf(task.Op(), "profile not found: %s", ownerID), nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load profile %s: %w", ownerID, err)
	}
	return profile, nil, nil
}

// domainError marks per-item failures that should be reported in result
// data instead of aborting a batch.
type domainError struct {
	msg string
}

func (e *domainError) Error() string {
	return e.msg
}
