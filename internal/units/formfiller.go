package units

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/records"
)

// Form field aliases. Application forms name the same fields a hundred
// ways; identifyField normalizes them to these canonical names.
var fieldAliases = map[string][]string{
	"first_name":         {"first name", "firstname", "given name", "fname"},
	"last_name":          {"last name", "lastname", "surname", "family name", "lname"},
	"full_name":          {"full name", "name", "your name", "legal name"},
	"email":              {"email", "e-mail", "email address"},
	"phone":              {"phone", "telephone", "mobile", "cell", "phone number"},
	"location":           {"location", "city", "address", "where are you based"},
	"linkedin":           {"linkedin", "linkedin url", "linkedin profile"},
	"resume":             {"resume", "cv", "curriculum vitae"},
	"cover_letter":       {"cover letter", "letter of interest", "why us"},
	"salary":             {"salary", "compensation", "expected salary", "salary expectations", "desired salary"},
	"start_date":         {"start date", "availability", "available", "when can you start", "notice period"},
	"work_authorization": {"work authorization", "authorized to work", "visa", "sponsorship", "right to work"},
	"years_experience":   {"years of experience", "experience", "years"},
	"current_company":    {"current company", "current employer", "employer"},
	"current_title":      {"current title", "current role", "job title", "current position"},
	"degree":             {"degree", "education level", "highest degree"},
	"university":         {"university", "college", "school", "alma mater"},
	"graduation_year":    {"graduation year", "year of graduation", "graduated"},
	"how_heard":          {"how did you hear", "referral source", "how you found"},
	"portfolio":          {"portfolio", "website", "personal site", "github"},
	"willing_relocate":   {"relocate", "relocation", "willing to relocate"},
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneStrip   = regexp.MustCompile(`[\s\-().+]`)
)

// FormFiller maps profile data onto application form fields and assembles
// submission-ready packages.
type FormFiller struct {
	*agent.Base
	deps Deps
}

func NewFormFiller(deps Deps) *FormFiller {
	f := &FormFiller{
		Base: agent.NewBase(FormFillerID, "Maps profile data onto application forms", deps.Logger),
		deps: deps,
	}
	f.Handle("fill_form", f.fillForm)
	f.Handle("prepare_application", f.prepareApplication)
	return f
}

func (f *FormFiller) fillForm(ctx context.Context, task agent.Task) (*agent.Result, error) {
	ownerID := task.String("owner_id")
	if ownerID == "" {
		return f.Fail(task.Op(), "owner_id is required"), nil
	}
	fields := task.Strings("form_fields")
	if len(fields) == 0 {
		return f.Fail(task.Op(), "form_fields is required"), nil
	}
	profile, failResult, err := f.profile(ctx, task, ownerID)
	if failResult != nil || err != nil {
		return failResult, err
	}

	values := fieldValues(profile)
	filled := make(map[string]interface{})
	var missing, unrecognized []string
	for _, field := range fields {
		canonical := identifyField(field)
		if canonical == "" {
			unrecognized = append(unrecognized, field)
			continue
		}
		if value, ok := values[canonical]; ok && value != "" {
			filled[field] = value
		} else {
			missing = append(missing, field)
		}
	}

	issues := validateFilled(filled)
	completion := math.Round(float64(len(filled))/float64(len(fields))*1000) / 10

	data := map[string]interface{}{
		"owner_id":   ownerID,
		"filled":     filled,
		"missing":    missing,
		"completion": completion,
	}
	if len(unrecognized) > 0 {
		data["unrecognized"] = unrecognized
	}
	if len(issues) > 0 {
		data["issues"] = issues
	}

	result := f.OK(task.Op(), data)
	open := append(append([]string{}, missing...), unrecognized...)
	if len(open) > 0 {
		result.Next = QAID
		result.Carry = map[string]interface{}{
			"op":         "answer_batch",
			"owner_id":   ownerID,
			"posting_id": task.String("posting_id"),
			"questions":  open,
		}
	}
	return result, nil
}

func (f *FormFiller) prepareApplication(ctx context.Context, task agent.Task) (*agent.Result, error) {
	ownerID := task.String("owner_id")
	postingID := task.String("posting_id")
	if ownerID == "" || postingID == "" {
		return f.Fail(task.Op(), "owner_id and posting_id are required"), nil
	}
	profile, failResult, err := f.profile(ctx, task, ownerID)
	if failResult != nil || err != nil {
		return failResult, err
	}
	posting, err := f.deps.Records.GetPosting(ctx, postingID)
	if errors.Is(err, records.ErrNotFound) {
		return f.Failf(task.Op(), "posting not found: %s", postingID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load posting %s: %w", postingID, err)
	}

	resume := task.String("resume")
	letter := task.String("cover_letter")
	if app, err := findApplication(ctx, f.deps.Records, ownerID, postingID); err != nil {
		return nil, err
	} else if app != nil {
		if resume == "" {
			resume = app.Resume
		}
		if letter == "" {
			letter = app.Letter
		}
	}
	if resume == "" {
		resume = stringAt(profile.Resume, "raw_text")
	}

	parsed := parsedResume(profile)
	email := stringAt(profile.Personal, "email")
	pkg := map[string]interface{}{
		"personal_info": map[string]interface{}{
			"name":     stringAt(profile.Personal, "name"),
			"email":    email,
			"phone":    stringAt(profile.Personal, "phone"),
			"location": stringAt(profile.Personal, "location"),
			"linkedin": stringAt(profile.Personal, "linkedin"),
		},
		"professional_info": map[string]interface{}{
			"resume":           resume,
			"cover_letter":     letter,
			"current_title":    recentField(parsed, "title"),
			"current_company":  recentField(parsed, "company"),
			"years_experience": estimatedYears(parsed),
		},
		"education_info": mapsAt(parsed, "education"),
		"posting_info": map[string]interface{}{
			"posting_id": postingID,
			"title":      posting.Title,
			"company":    posting.Company,
			"url":        posting.URL,
		},
	}
	ready := email != "" && resume != ""

	result := f.OK(task.Op(), map[string]interface{}{
		"owner_id":        ownerID,
		"posting_id":      postingID,
		"package":         pkg,
		"ready_to_submit": ready,
	})
	result.Next = TrackerID
	result.Carry = map[string]interface{}{
		"op":          "create_application",
		"owner_id":    ownerID,
		"posting_id":  postingID,
		"match_score": task.Float("match_score"),
	}
	return result, nil
}

func (f *FormFiller) profile(ctx context.Context, task agent.Task, ownerID string) (*records.Profile, *agent.Result, error) {
	profile, err := f.deps.Records.GetProfile(ctx, ownerID)
	if errors.Is(err, records.ErrNotFound) {
		return nil, f.Failf(task.Op(), "profile not found: %s", ownerID), nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load profile %s: %w", ownerID, err)
	}
	return profile, nil, nil
}

// identifyField maps a raw form label to its canonical field name, "" when
// nothing matches.
func identifyField(label string) string {
	normalized := strings.ToLower(strings.TrimSpace(label))
	normalized = strings.ReplaceAll(normalized, "_", " ")

	if _, ok := fieldAliases[strings.ReplaceAll(normalized, " ", "_")]; ok {
		return strings.ReplaceAll(normalized, " ", "_")
	}

	best := ""
	bestLen := 0
	for canonical, aliases := range fieldAliases {
		for _, alias := range aliases {
			if strings.Contains(normalized, alias) && len(alias) > bestLen {
				best, bestLen = canonical, len(alias)
			}
		}
	}
	return best
}

// fieldValues builds every fillable value from the profile.
func fieldValues(profile *records.Profile) map[string]string {
	parsed := parsedResume(profile)
	name := stringAt(profile.Personal, "name")
	first, last := splitName(name)

	values := map[string]string{
		"first_name": first,
		"last_name":  last,
		"full_name":  name,
		"email":      stringAt(profile.Personal, "email"),
		"phone":      stringAt(profile.Personal, "phone"),
		"location":   stringAt(profile.Personal, "location"),
		"linkedin":   stringAt(profile.Personal, "linkedin"),
		"resume":     stringAt(profile.Resume, "raw_text"),
	}

	if years := estimatedYears(parsed); years > 0 {
		values["years_experience"] = strconv.Itoa(years)
	}
	values["current_title"] = recentField(parsed, "title")
	values["current_company"] = recentField(parsed, "company")
	if salary := salaryRange(profile.Preferences); salary != "" {
		values["salary"] = salary
	}
	values["work_authorization"] = "Authorized to work"
	values["start_date"] = "Available within 2-4 weeks"

	if education := mapsAt(parsed, "education"); len(education) > 0 {
		values["degree"] = stringAt(education[0], "degree")
		values["university"] = stringAt(education[0], "institution")
		values["graduation_year"] = stringAt(education[0], "year")
	}
	return values
}

// validateFilled sanity checks the values that have a known shape.
func validateFilled(filled map[string]interface{}) []string {
	var issues []string
	for field, raw := range filled {
		value, ok := raw.(string)
		if !ok {
			continue
		}
		switch identifyField(field) {
		case "email":
			if !emailPattern.MatchString(value) {
				issues = append(issues, fmt.Sprintf("%s does not look like an email address", field))
			}
		case "phone":
			digits := phoneStrip.ReplaceAllString(value, "")
			if len(digits) < 10 {
				issues = append(issues, fmt.Sprintf("%s has fewer than 10 digits", field))
			}
		case "linkedin":
			if !strings.Contains(strings.ToLower(value), "linkedin.com") {
				issues = append(issues, fmt.Sprintf("%s is not a linkedin.com URL", field))
			}
		}
	}
	sort.Strings(issues)
	return issues
}
