package units

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/records"
)

// Score weights. Skills dominate, title comes second, the rest refines.
const (
	weightTitle    = 25
	weightSkills   = 30
	weightLocation = 15
	weightSalary   = 15
	weightKeywords = 10
)

// DefaultMatchThreshold is the score a posting needs before it moves to
// tailoring.
const DefaultMatchThreshold = 70.0

// Matcher scores how well postings fit a profile and filters out the ones
// the owner ruled out.
type Matcher struct {
	*agent.Base
	deps Deps
}

func NewMatcher(deps Deps) *Matcher {
	m := &Matcher{
		Base: agent.NewBase(MatcherID, "Scores posting-profile fit and applies owner filters", deps.Logger),
		deps: deps,
	}
	m.Handle("match_postings", m.matchPostings)
	m.Handle("match_one", m.matchOne)
	m.Handle("set_threshold", m.setThreshold)
	return m
}

func (m *Matcher) matchPostings(ctx context.Context, task agent.Task) (*agent.Result, error) {
	ownerID := task.String("owner_id")
	if ownerID == "" {
		return m.Fail(task.Op(), "owner_id is required"), nil
	}
	profile, failResult, err := m.loadProfile(ctx, task, ownerID)
	if failResult != nil || err != nil {
		return failResult, err
	}

	postings, err := m.candidates(ctx, task.Strings("posting_ids"))
	if err != nil {
		return nil, err
	}

	threshold := m.threshold()
	var (
		matches   []map[string]interface{}
		qualified []string
	)
	for _, posting := range postings {
		score, breakdown := matchScore(profile, posting)
		filtered, reason := checkFilters(profile, posting)
		entry := map[string]interface{}{
			"posting_id":  posting.ID,
			"title":       posting.Title,
			"company":     posting.Company,
			"match_score": score,
			"breakdown":   breakdown,
		}
		if filtered {
			entry["filtered_out"] = true
			entry["filter_reason"] = reason
		}
		matches = append(matches, entry)

		if !filtered && score >= threshold {
			posting.Status = records.PostingMatched
			if err := m.deps.Records.SavePosting(ctx, posting); err != nil {
				return nil, fmt.Errorf("failed to mark posting %s matched: %w", posting.ID, err)
			}
			qualified = append(qualified, posting.ID)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i]["match_score"].(float64) > matches[j]["match_score"].(float64)
	})

	result := m.OK(task.Op(), map[string]interface{}{
		"owner_id":  ownerID,
		"total":     len(postings),
		"qualified": len(qualified),
		"threshold": threshold,
		"matches":   matches,
	})
	if len(qualified) > 0 {
		result.Next = TailorID
		result.Carry = map[string]interface{}{
			"op":          "tailor_resumes",
			"owner_id":    ownerID,
			"posting_ids": qualified,
		}
	}
	return result, nil
}

func (m *Matcher) matchOne(ctx context.Context, task agent.Task) (*agent.Result, error) {
	ownerID := task.String("owner_id")
	postingID := task.String("posting_id")
	if ownerID == "" || postingID == "" {
		return m.Fail(task.Op(), "owner_id and posting_id are required"), nil
	}
	profile, failResult, err := m.loadProfile(ctx, task, ownerID)
	if failResult != nil || err != nil {
		return failResult, err
	}

	posting, err := m.deps.Records.GetPosting(ctx, postingID)
	if errors.Is(err, records.ErrNotFound) {
		return m.Failf(task.Op(), "posting not found: %s", postingID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load posting %s: %w", postingID, err)
	}

	score, breakdown := matchScore(profile, posting)
	filtered, reason := checkFilters(profile, posting)
	threshold := m.threshold()

	if !filtered && score >= threshold {
		posting.Status = records.PostingMatched
		if err := m.deps.Records.SavePosting(ctx, posting); err != nil {
			return nil, fmt.Errorf("failed to mark posting %s matched: %w", postingID, err)
		}
	}

	result := m.OK(task.Op(), map[string]interface{}{
		"owner_id":       ownerID,
		"posting_id":     postingID,
		"match_score":    score,
		"breakdown":      breakdown,
		"filtered_out":   filtered,
		"filter_reason":  reason,
		"recommendation": recommendation(score, filtered),
	})
	if !filtered && score >= threshold {
		result.Next = TailorID
		result.Carry = map[string]interface{}{
			"op":          "tailor_resumes",
			"owner_id":    ownerID,
			"posting_ids": []string{postingID},
		}
	}
	return result, nil
}

func (m *Matcher) setThreshold(ctx context.Context, task agent.Task) (*agent.Result, error) {
	threshold := task.Float("threshold")
	if threshold < 0 || threshold > 100 {
		return m.Fail(task.Op(), "threshold must be between 0 and 100"), nil
	}
	if err := m.deps.State.SetUnitState(ctx, MatcherID, map[string]interface{}{"threshold": threshold}); err != nil {
		return nil, fmt.Errorf("failed to store threshold: %w", err)
	}
	return m.OK(task.Op(), map[string]interface{}{"threshold": threshold}), nil
}

func (m *Matcher) threshold() float64 {
	if raw, ok := m.deps.State.UnitState(MatcherID); ok {
		if state, ok := raw.(map[string]interface{}); ok {
			switch v := state["threshold"].(type) {
			case float64:
				return v
			case int:
				return float64(v)
			}
		}
	}
	return DefaultMatchThreshold
}

// loadProfile resolves the owner's profile, turning a missing profile into
// a domain error Result.
func (m *Matcher) loadProfile(ctx context.Context, task agent.Task, ownerID string) (*records.Profile, *agent.Result, error) {
	profile, err := m.deps.Records.GetProfile(ctx, ownerID)
	if errors.Is(err, records.ErrNotFound) {
		return nil, m.Failf(task.Op(), "profile not found: %s", ownerID), nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load profile %s: %w", ownerID, err)
	}
	return profile, nil, nil
}

// candidates returns the named postings, or every posting still in status
// new when no ids were given.
func (m *Matcher) candidates(ctx context.Context, ids []string) ([]*records.Posting, error) {
	if len(ids) == 0 {
		postings, err := m.deps.Records.SearchPostings(ctx, records.PostingFilter{Status: records.PostingNew})
		if err != nil {
			return nil, fmt.Errorf("failed to list new postings: %w", err)
		}
		return postings, nil
	}

	postings := make([]*records.Posting, 0, len(ids))
	for _, id := range ids {
		posting, err := m.deps.Records.GetPosting(ctx, id)
		if errors.Is(err, records.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load posting %s: %w", id, err)
		}
		postings = append(postings, posting)
	}
	return postings, nil
}

// matchScore computes the weighted fit of a posting for a profile. The
// returned breakdown holds the raw per-component scores.
func matchScore(profile *records.Profile, posting *records.Posting) (float64, map[string]interface{}) {
	breakdown := map[string]interface{}{
		"title":    titleScore(profile.Preferences, posting),
		"skills":   skillsScore(profile, posting),
		"location": locationScore(profile.Preferences, posting),
		"salary":   salaryScore(profile.Preferences, posting),
		"keywords": keywordsScore(profile.Filters, posting),
	}
	total := breakdown["title"].(float64)*weightTitle/100 +
		breakdown["skills"].(float64)*weightSkills/100 +
		breakdown["location"].(float64)*weightLocation/100 +
		breakdown["salary"].(float64)*weightSalary/100 +
		breakdown["keywords"].(float64)*weightKeywords/100
	return math.Round(total*100) / 100, breakdown
}

func titleScore(prefs map[string]interface{}, posting *records.Posting) float64 {
	targets := stringsAt(prefs, "target_titles")
	if len(targets) == 0 {
		return 50
	}

	title := strings.ToLower(posting.Title)
	best := 30.0
	for _, target := range targets {
		want := strings.ToLower(target)
		if strings.Contains(title, want) || strings.Contains(want, title) {
			return 100
		}
		overlap := wordOverlap(title, want)
		switch {
		case overlap >= 2 && best < 80:
			best = 80
		case overlap == 1 && best < 60:
			best = 60
		}
	}
	return best
}

func skillsScore(profile *records.Profile, posting *records.Posting) float64 {
	skills := resumeSkills(parsedResume(profile))
	if len(skills) == 0 {
		return 50
	}

	text := strings.ToLower(strings.Join(posting.Requirements, " ") + " " + posting.Description)
	matched := 0
	for _, skill := range skills {
		if containsTerm(text, skill) {
			matched++
		}
	}
	score := float64(matched)/float64(len(skills))*100 + 20
	return math.Min(100, score)
}

func locationScore(prefs map[string]interface{}, posting *records.Posting) float64 {
	if stringAt(prefs, "remote_preference") == "remote_only" {
		if posting.Remote == records.RemoteFull {
			return 100
		}
		return 20
	}
	if posting.Remote == records.RemoteFull {
		return 90
	}

	wanted := stringsAt(prefs, "locations")
	if len(wanted) == 0 {
		return 70
	}
	location := strings.ToLower(posting.Location)
	for _, want := range wanted {
		w := strings.ToLower(want)
		if strings.Contains(location, w) || strings.Contains(w, location) {
			return 100
		}
	}
	return 40
}

func salaryScore(prefs map[string]interface{}, posting *records.Posting) float64 {
	minWanted := intAt(prefs, "salary_min")
	if minWanted == 0 {
		return 70
	}
	if posting.SalaryMin == 0 && posting.SalaryMax == 0 {
		return 60
	}
	if posting.SalaryMax > 0 && posting.SalaryMax < minWanted {
		return 20
	}
	if posting.SalaryMin >= minWanted {
		return 100
	}
	ratio := float64(posting.SalaryMin) / float64(minWanted)
	switch {
	case ratio >= 0.9:
		return 90
	case ratio >= 0.8:
		return 70
	default:
		return 60
	}
}

func keywordsScore(filters map[string]interface{}, posting *records.Posting) float64 {
	text := strings.ToLower(posting.Title + " " + posting.Description + " " + strings.Join(posting.Requirements, " "))

	for _, excluded := range stringsAt(filters, "excluded_keywords") {
		if excluded != "" && strings.Contains(text, strings.ToLower(excluded)) {
			return 0
		}
	}
	required := stringsAt(filters, "required_keywords")
	if len(required) == 0 {
		return 80
	}
	matched := 0
	for _, keyword := range required {
		if strings.Contains(text, strings.ToLower(keyword)) {
			matched++
		}
	}
	return float64(matched) / float64(len(required)) * 100
}

// checkFilters applies the owner's hard rules. A filtered posting never
// qualifies regardless of score.
func checkFilters(profile *records.Profile, posting *records.Posting) (bool, string) {
	company := strings.ToLower(posting.Company)
	for _, blocked := range stringsAt(profile.Filters, "blacklisted_companies") {
		if blocked != "" && strings.Contains(company, strings.ToLower(blocked)) {
			return true, fmt.Sprintf("company %s is blacklisted", posting.Company)
		}
	}

	text := strings.ToLower(posting.Title + " " + posting.Description)
	for _, excluded := range stringsAt(profile.Filters, "excluded_keywords") {
		if excluded != "" && strings.Contains(text, strings.ToLower(excluded)) {
			return true, fmt.Sprintf("contains excluded keyword: %s", excluded)
		}
	}
	for _, required := range stringsAt(profile.Filters, "required_keywords") {
		if required != "" && !strings.Contains(text, strings.ToLower(required)) {
			return true, fmt.Sprintf("missing required keyword: %s", required)
		}
	}
	return false, ""
}

func recommendation(score float64, filtered bool) string {
	if filtered {
		return "Not recommended, fails owner filters"
	}
	switch {
	case score >= 90:
		return "Highly recommended, excellent match"
	case score >= 80:
		return "Recommended, strong match"
	case score >= 70:
		return "Worth applying, good match"
	case score >= 60:
		return "Consider applying, moderate match"
	default:
		return "Weak match"
	}
}

func wordOverlap(a, b string) int {
	words := make(map[string]bool)
	for _, w := range strings.Fields(a) {
		words[w] = true
	}
	overlap := 0
	for _, w := range strings.Fields(b) {
		if words[w] {
			overlap++
			delete(words, w)
		}
	}
	return overlap
}
