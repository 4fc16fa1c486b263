package units

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/records"
	"github.com/seekerlabs/seekerd/pkg/adapters/draft"
)

// Letter drafts cover letters through the draft port and stores them on the
// owner's application.
type Letter struct {
	*agent.Base
	deps Deps
}

func NewLetter(deps Deps) *Letter {
	l := &Letter{
		Base: agent.NewBase(LetterID, "Drafts cover letters for matched postings", deps.Logger),
		deps: deps,
	}
	l.Handle("generate_letters", l.generateLetters)
	l.Handle("generate_one", l.generateOne)
	return l
}

func (l *Letter) generateLetters(ctx context.Context, task agent.Task) (*agent.Result, error) {
	ownerID := task.String("owner_id")
	if ownerID == "" {
		return l.Fail(task.Op(), "owner_id is required"), nil
	}
	profile, failResult, err := l.profile(ctx, task, ownerID)
	if failResult != nil || err != nil {
		return failResult, err
	}

	ids := task.Strings("posting_ids")
	if len(ids) == 0 {
		matched, err := l.deps.Records.SearchPostings(ctx, records.PostingFilter{Status: records.PostingMatched})
		if err != nil {
			return nil, fmt.Errorf("failed to list matched postings: %w", err)
		}
		for _, posting := range matched {
			ids = append(ids, posting.ID)
		}
	}
	tone := task.StringOr("tone", draft.ToneProfessional)

	var (
		items     []map[string]interface{}
		generated int
	)
	for _, postingID := range ids {
		appID, words, err := l.generateFor(ctx, profile, postingID, tone)
		if err != nil {
			var domainErr *domainError
			if errors.As(err, &domainErr) {
				l.Logger().Warn("skipping posting",
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
			"word_count":     words,
		})
		generated++
	}

	return l.OK(task.Op(), map[string]interface{}{
		"owner_id":  ownerID,
		"total":     len(ids),
		"generated": generated,
		"tone":      tone,
		"results":   items,
	}), nil
}

func (l *Letter) generateOne(ctx context.Context, task agent.Task) (*agent.Result, error) {
	ownerID := task.String("owner_id")
	postingID := task.String("posting_id")
	if ownerID == "" || postingID == "" {
		return l.Fail(task.Op(), "owner_id and posting_id are required"), nil
	}
	profile, failResult, err := l.profile(ctx, task, ownerID)
	if failResult != nil || err != nil {
		return failResult, err
	}
	tone := task.StringOr("tone", draft.ToneProfessional)

	appID, words, err := l.generateFor(ctx, profile, postingID, tone)
	if err != nil {
		var domainErr *domainError
		if errors.As(err, &domainErr) {
			return l.Fail(task.Op(), domainErr.msg), nil
		}
		return nil, err
	}

	app, err := l.deps.Records.GetApplication(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload application %s: %w", appID, err)
	}

	result := l.OK(task.Op(), map[string]interface{}{
		"owner_id":       ownerID,
		"posting_id":     postingID,
		"application_id": appID,
		"tone":           tone,
		"letter":         app.Letter,
		"word_count":     words,
	})
	result.Next = FormFillerID
	result.Carry = map[string]interface{}{
		"op":         "prepare_application",
		"owner_id":   ownerID,
		"posting_id": postingID,
	}
	return result, nil
}

// generateFor drafts the letter for one posting and stores it on the
// owner's application, creating the application when none exists.
func (l *Letter) generateFor(ctx context.Context, profile *records.Profile, postingID, tone string) (string, int, error) {
	posting, err := l.deps.Records.GetPosting(ctx, postingID)
	if errors.Is(err, records.ErrNotFound) {
		return "", 0, &domainError{msg: fmt.Sprintf("posting not found: %s", postingID)}
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to load posting %s: %w", postingID, err)
	}

	parsed := parsedResume(profile)
	keywords := postingKeywords(posting)
	letter, err := l.deps.Drafter.Draft(ctx, draft.Request{
		Kind:       draft.KindCoverLetter,
		Tone:       tone,
		Owner:      stringAt(profile.Personal, "name"),
		Company:    posting.Company,
		Title:      posting.Title,
		Skills:     matchingSkills(parsed, keywords),
		Keywords:   capStrings(keywords, 5),
		Years:      estimatedYears(parsed),
		RecentRole: recentField(parsed, "title"),
		RecentOrg:  recentField(parsed, "company"),
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to draft letter for %s: %w", postingID, err)
	}

	app, err := findApplication(ctx, l.deps.Records, profile.ID, postingID)
	if err != nil {
		return "", 0, err
	}
	if app == nil {
		app = &records.Application{
			ID:        records.NewApplicationID(),
			PostingID: postingID,
			OwnerID:   profile.ID,
			Status:    records.ApplicationPreparing,
		}
		app.AddEvent(records.ApplicationPreparing, "application created", l.deps.now())
	}
	app.Letter = letter
	if err := l.deps.Records.SaveApplication(ctx, app); err != nil {
		return "", 0, fmt.Errorf("failed to save application %s: %w", app.ID, err)
	}
	return app.ID, len(strings.Fields(letter)), nil
}

// matchingSkills intersects resume skills with posting keywords, preserving
// the resume's casing.
func matchingSkills(parsed map[string]interface{}, keywords []string) []string {
	wanted := make(map[string]bool, len(keywords))
	for _, keyword := range keywords {
		wanted[strings.ToLower(keyword)] = true
	}

	var out []string
	skills := mapAt(parsed, "skills")
	for _, group := range []string{"technical", "tools"} {
		for _, skill := range stringsAt(skills, group) {
			if wanted[strings.ToLower(skill)] {
				out = append(out, skill)
			}
		}
	}
	return out
}

func recentField(parsed map[string]interface{}, key string) string {
	experience := mapsAt(parsed, "experience")
	if len(experience) == 0 {
		return ""
	}
	return stringAt(experience[0], key)
}

func (l *Letter) profile(ctx context.Context, task agent.Task, ownerID string) (*records.Profile, *agent.Result, error) {
	profile, err := l.deps.Records.GetProfile(ctx, ownerID)
	if errors.Is(err, records.ErrNotFound) {
		return nil, l.Failf(task.Op(), "profile not found: %s", ownerID), nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load profile %s: %w", ownerID, err)
	}
	return profile, nil, nil
}
