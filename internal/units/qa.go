package units

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/records"
)

// Question classification. Order matters: the first kind whose pattern
// matches wins, so the specific kinds come before the broad ones.
var questionKinds = []struct {
	kind     string
	patterns []*regexp.Regexp
}{
	{"work_authorization", []*regexp.Regexp{
		regexp.MustCompile(`(?i)authoriz|visa|sponsorship|legally|right to work|work permit`),
	}},
	{"relocation", []*regexp.Regexp{
		regexp.MustCompile(`(?i)reloc|willing to move|move to`),
	}},
	{"start_date", []*regexp.Regexp{
		regexp.MustCompile(`(?i)start date|when can you start|notice period|availab`),
	}},
	{"salary_expectation", []*regexp.Regexp{
		regexp.MustCompile(`(?i)salary|compensation|pay expect|desired pay|\brate\b`),
	}},
	{"experience_years", []*regexp.Regexp{
		regexp.MustCompile(`(?i)years of experience|how many years|how long have you`),
	}},
	{"why_interested", []*regexp.Regexp{
		regexp.MustCompile(`(?i)why .*(interested|apply|join|this role|this position|this company|us)`),
		regexp.MustCompile(`(?i)what attracts|what excites`),
	}},
	{"why_leaving", []*regexp.Regexp{
		regexp.MustCompile(`(?i)why .*(leaving|leave|left)|reason for leaving`),
	}},
	{"strengths", []*regexp.Regexp{
		regexp.MustCompile(`(?i)strength|what are you good at|best skill`),
	}},
	{"weaknesses", []*regexp.Regexp{
		regexp.MustCompile(`(?i)weakness|improve on|area.{0,20}development`),
	}},
	{"remote_preference", []*regexp.Regexp{
		regexp.MustCompile(`(?i)remote|work from home|on-?site|hybrid|in.?office`),
	}},
	{"referral", []*regexp.Regexp{
		regexp.MustCompile(`(?i)how did you (hear|find)|referr|who told you`),
	}},
	{"travel", []*regexp.Regexp{
		regexp.MustCompile(`(?i)travel|commute`),
	}},
}

const genericAnswer = "Thank you for the question. Based on my background and experience, " +
	"I believe I can provide valuable insight here, and I would be happy to " +
	"discuss it further in an interview."

// QA answers the screening questions application forms ask, from profile
// data where it has any and with safe boilerplate where it does not.
type QA struct {
	*agent.Base
	deps Deps
}

func NewQA(deps Deps) *QA {
	q := &QA{
		Base: agent.NewBase(QAID, "Answers common application screening questions", deps.Logger),
		deps: deps,
	}
	q.Handle("answer_question", q.answerQuestion)
	q.Handle("answer_batch", q.answerBatch)
	return q
}

func (q *QA) answerQuestion(ctx context.Context, task agent.Task) (*agent.Result, error) {
	question := task.String("question")
	if question == "" {
		return q.Fail(task.Op(), "question is required"), nil
	}

	profile, err := q.optionalProfile(ctx, task.String("owner_id"))
	if err != nil {
		return nil, err
	}
	posting, err := q.optionalPosting(ctx, task.String("posting_id"))
	if err != nil {
		return nil, err
	}

	kind := classifyQuestion(question)
	answer := q.answerFor(kind, profile, posting)

	return q.OK(task.Op(), map[string]interface{}{
		"question":      question,
		"question_type": kind,
		"answer":        answer,
		"confidence":    confidence(kind, profile),
	}), nil
}

func (q *QA) answerBatch(ctx context.Context, task agent.Task) (*agent.Result, error) {
	questions := task.Strings("questions")
	if len(questions) == 0 {
		return q.Fail(task.Op(), "questions is required"), nil
	}

	profile, err := q.optionalProfile(ctx, task.String("owner_id"))
	if err != nil {
		return nil, err
	}
	posting, err := q.optionalPosting(ctx, task.String("posting_id"))
	if err != nil {
		return nil, err
	}

	answers := make([]map[string]interface{}, 0, len(questions))
	for _, question := range questions {
		kind := classifyQuestion(question)
		answers = append(answers, map[string]interface{}{
			"question":      question,
			"question_type": kind,
			"answer":        q.answerFor(kind, profile, posting),
			"confidence":    confidence(kind, profile),
		})
	}

	return q.OK(task.Op(), map[string]interface{}{
		"total_questions": len(questions),
		"answers":         answers,
	}), nil
}

// optionalProfile loads the profile when an owner is named; questions can
// be answered generically without one.
func (q *QA) optionalProfile(ctx context.Context, ownerID string) (*records.Profile, error) {
	if ownerID == "" {
		return nil, nil
	}
	profile, err := q.deps.Records.GetProfile(ctx, ownerID)
	if errors.Is(err, records.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", ownerID, err)
	}
	return profile, nil
}

func (q *QA) optionalPosting(ctx context.Context, postingID string) (*records.Posting, error) {
	if postingID == "" {
		return nil, nil
	}
	posting, err := q.deps.Records.GetPosting(ctx, postingID)
	if errors.Is(err, records.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load posting %s: %w", postingID, err)
	}
	return posting, nil
}

func classifyQuestion(question string) string {
	for _, entry := range questionKinds {
		for _, pattern := range entry.patterns {
			if pattern.MatchString(question) {
				return entry.kind
			}
		}
	}
	return "generic"
}

func (q *QA) answerFor(kind string, profile *records.Profile, posting *records.Posting) string {
	var prefs, personal map[string]interface{}
	var parsed map[string]interface{}
	if profile != nil {
		prefs = profile.Preferences
		personal = profile.Personal
		parsed = parsedResume(profile)
	}

	switch kind {
	case "work_authorization":
		return "Yes, I am authorized to work and do not require sponsorship."
	case "relocation":
		if stringAt(prefs, "remote_preference") == "remote_only" {
			return "I am focused on remote opportunities, but I am open to discussing what the role requires."
		}
		return "Yes, I am open to relocation for the right opportunity."
	case "start_date":
		return "I am available to start within 2-4 weeks, depending on the offer timeline."
	case "salary_expectation":
		if expected := salaryRange(prefs); expected != "" {
			return fmt.Sprintf("My expectation is in the range of %s, flexible depending on the total package.", expected)
		}
		return "I am flexible on compensation and open to discussing a fair offer for the role."
	case "experience_years":
		if years := estimatedYears(parsed); years > 0 {
			return fmt.Sprintf("I have roughly %d years of relevant professional experience.", years)
		}
		return "I have solid professional experience in this field; details are on my resume."
	case "why_interested":
		if posting != nil {
			return fmt.Sprintf("The %s role at %s aligns closely with my skills and the direction I want my career to grow.", posting.Title, posting.Company)
		}
		return "The role aligns closely with my skills and the direction I want my career to grow."
	case "why_leaving":
		return "I am looking for new challenges and room to grow; I value what I learned in my current role."
	case "strengths":
		if skills := topSkills(parsed, 3); len(skills) > 0 {
			return fmt.Sprintf("My core strengths are %s, combined with strong communication and ownership.", strings.Join(skills, ", "))
		}
		return "My core strengths are fast learning, reliability, and clear communication."
	case "weaknesses":
		return "I sometimes over-invest in polish; I manage it by timeboxing and asking for early feedback."
	case "remote_preference":
		switch stringAt(prefs, "remote_preference") {
		case "remote_only":
			return "I work best fully remote and have an established home office setup."
		case "hybrid_ok":
			return "I am comfortable with a hybrid arrangement."
		default:
			return "I am flexible between remote, hybrid, and on-site work."
		}
	case "referral":
		if personal != nil {
			// A named owner usually found the posting through tracked sources.
			return "I found the posting through the company's careers page while researching teams in this space."
		}
		return "I found the posting through the company's careers page."
	case "travel":
		return "I am comfortable with occasional travel as the role requires."
	default:
		return genericAnswer
	}
}

// confidence reflects how much of the answer came from real profile data.
func confidence(kind string, profile *records.Profile) string {
	factual := map[string]bool{
		"work_authorization": true,
		"start_date":         true,
		"travel":             true,
		"referral":           true,
	}
	if factual[kind] {
		return "high"
	}

	hasData := profile != nil && len(parsedResume(profile)) > 0
	switch kind {
	case "salary_expectation", "remote_preference", "relocation":
		if profile != nil {
			return "high"
		}
		return "medium"
	case "experience_years", "strengths":
		if hasData {
			return "high"
		}
		return "low"
	case "generic":
		return "low"
	default:
		return "medium"
	}
}

// topSkills returns the first n technical skills of a parsed resume.
func topSkills(parsed map[string]interface{}, n int) []string {
	skills := stringsAt(mapAt(parsed, "skills"), "technical")
	if len(skills) > n {
		skills = skills[:n]
	}
	return skills
}
