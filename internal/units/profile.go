package units

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/records"
)

// Profile manages owner profiles: personal details, job preferences, hard
// filters, and the raw resume hand-off to the parser.
type Profile struct {
	*agent.Base
	deps Deps
}

func NewProfile(deps Deps) *Profile {
	p := &Profile{
		Base: agent.NewBase(ProfileID, "Manages owner profiles, preferences, and filters", deps.Logger),
		deps: deps,
	}
	p.Handle("create_profile", p.createProfile)
	p.Handle("update_profile", p.updateProfile)
	p.Handle("get_profile", p.getProfile)
	p.Handle("update_preferences", p.updatePreferences)
	p.Handle("update_filters", p.updateFilters)
	p.Handle("set_resume", p.setResume)
	return p
}

func (p *Profile) createProfile(ctx context.Context, task agent.Task) (*agent.Result, error) {
	ownerID := task.String("owner_id")
	if ownerID == "" {
		ownerID = strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}

	if _, err := p.deps.Records.GetProfile(ctx, ownerID); err == nil {
		return p.OK(task.Op(), map[string]interface{}{
			"owner_id": ownerID,
			"message":  "profile already exists",
		}), nil
	} else if !errors.Is(err, records.ErrNotFound) {
		return nil, fmt.Errorf("failed to check profile %s: %w", ownerID, err)
	}

	prefs := agent.CloneMap(task.Map("preferences"))
	if prefs == nil {
		prefs = map[string]interface{}{}
	}
	if stringAt(prefs, "remote_preference") == "" {
		prefs["remote_preference"] = "any"
	}
	if len(stringsAt(prefs, "job_types")) == 0 {
		prefs["job_types"] = []string{"full-time"}
	}

	profile := &records.Profile{
		ID:          ownerID,
		Personal:    orEmpty(agent.CloneMap(task.Map("personal"))),
		Preferences: prefs,
		Filters:     orEmpty(agent.CloneMap(task.Map("filters"))),
		Resume:      map[string]interface{}{},
	}
	if text := task.String("resume_text"); text != "" {
		profile.Resume["raw_text"] = text
	}
	if path := task.String("resume_path"); path != "" {
		profile.Resume["file_path"] = path
	}
	if err := p.deps.Records.SaveProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile %s: %w", ownerID, err)
	}

	result := p.OK(task.Op(), map[string]interface{}{
		"owner_id":    ownerID,
		"personal":    profile.Personal,
		"preferences": profile.Preferences,
		"filters":     profile.Filters,
		"has_resume":  len(profile.Resume) > 0,
	})
	if len(profile.Resume) > 0 {
		result.Next = ResumeParserID
		result.Carry = map[string]interface{}{
			"op":          "parse_resume",
			"owner_id":    ownerID,
			"resume_text": stringAt(profile.Resume, "raw_text"),
			"resume_path": stringAt(profile.Resume, "file_path"),
		}
	}
	return result, nil
}

func (p *Profile) updateProfile(ctx context.Context, task agent.Task) (*agent.Result, error) {
	profile, failResult, err := p.load(ctx, task)
	if failResult != nil || err != nil {
		return failResult, err
	}

	var updated []string
	if personal := task.Map("personal"); personal != nil {
		profile.Personal = mergeSection(profile.Personal, personal)
		updated = append(updated, "personal")
	}
	if prefs := task.Map("preferences"); prefs != nil {
		profile.Preferences = mergeSection(profile.Preferences, prefs)
		updated = append(updated, "preferences")
	}
	if filters := task.Map("filters"); filters != nil {
		profile.Filters = mergeSection(profile.Filters, filters)
		updated = append(updated, "filters")
	}
	if len(updated) == 0 {
		return p.Fail(task.Op(), "nothing to update: provide personal, preferences, or filters"), nil
	}

	if err := p.deps.Records.SaveProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile %s: %w", profile.ID, err)
	}
	return p.OK(task.Op(), map[string]interface{}{
		"owner_id": profile.ID,
		"updated":  updated,
	}), nil
}

func (p *Profile) getProfile(ctx context.Context, task agent.Task) (*agent.Result, error) {
	profile, failResult, err := p.load(ctx, task)
	if failResult != nil || err != nil {
		return failResult, err
	}

	return p.OK(task.Op(), map[string]interface{}{
		"owner_id":    profile.ID,
		"personal":    profile.Personal,
		"preferences": profile.Preferences,
		"filters":     profile.Filters,
		"resume":      profile.Resume,
		"created_at":  profile.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		"updated_at":  profile.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}), nil
}

func (p *Profile) updatePreferences(ctx context.Context, task agent.Task) (*agent.Result, error) {
	prefs := task.Map("preferences")
	if prefs == nil {
		return p.Fail(task.Op(), "preferences is required"), nil
	}
	profile, failResult, err := p.load(ctx, task)
	if failResult != nil || err != nil {
		return failResult, err
	}

	profile.Preferences = mergeSection(profile.Preferences, prefs)
	if err := p.deps.Records.SaveProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile %s: %w", profile.ID, err)
	}
	return p.OK(task.Op(), map[string]interface{}{
		"owner_id":    profile.ID,
		"preferences": profile.Preferences,
	}), nil
}

func (p *Profile) updateFilters(ctx context.Context, task agent.Task) (*agent.Result, error) {
	filters := task.Map("filters")
	if filters == nil {
		return p.Fail(task.Op(), "filters is required"), nil
	}
	profile, failResult, err := p.load(ctx, task)
	if failResult != nil || err != nil {
		return failResult, err
	}

	profile.Filters = mergeSection(profile.Filters, filters)
	if err := p.deps.Records.SaveProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile %s: %w", profile.ID, err)
	}
	return p.OK(task.Op(), map[string]interface{}{
		"owner_id": profile.ID,
		"filters":  profile.Filters,
	}), nil
}

func (p *Profile) setResume(ctx context.Context, task agent.Task) (*agent.Result, error) {
	text := task.String("resume_text")
	path := task.String("resume_path")
	if text == "" && path == "" {
		return p.Fail(task.Op(), "resume_text or resume_path is required"), nil
	}
	profile, failResult, err := p.load(ctx, task)
	if failResult != nil || err != nil {
		return failResult, err
	}

	if profile.Resume == nil {
		profile.Resume = map[string]interface{}{}
	}
	if text != "" {
		profile.Resume["raw_text"] = text
	}
	if path != "" {
		profile.Resume["file_path"] = path
	}
	if err := p.deps.Records.SaveProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile %s: %w", profile.ID, err)
	}

	result := p.OK(task.Op(), map[string]interface{}{
		"owner_id": profile.ID,
		"has_text": text != "",
		"has_path": path != "",
	})
	result.Next = ResumeParserID
	result.Carry = map[string]interface{}{
		"op":          "parse_resume",
		"owner_id":    profile.ID,
		"resume_text": text,
		"resume_path": path,
	}
	return result, nil
}

func (p *Profile) load(ctx context.Context, task agent.Task) (*records.Profile, *agent.Result, error) {
	ownerID := task.String("owner_id")
	if ownerID == "" {
		return nil, p.Fail(task.Op(), "owner_id is required"), nil
	}
	profile, err := p.deps.Records.GetProfile(ctx, ownerID)
	if errors.Is(err, records.ErrNotFound) {
		return nil, p.Failf(task.Op(), "profile not found: %s", ownerID), nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load profile %s: %w", ownerID, err)
	}
	return profile, nil, nil
}

// mergeSection overlays incoming keys on an existing section, keeping keys
// the update does not mention.
func mergeSection(current, incoming map[string]interface{}) map[string]interface{} {
	merged := agent.CloneMap(current)
	if merged == nil {
		merged = map[string]interface{}{}
	}
	for key, value := range agent.CloneMap(incoming) {
		merged[key] = value
	}
	return merged
}

func orEmpty(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}
