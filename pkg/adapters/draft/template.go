package draft

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Template drafts documents offline from built-in templates. It needs no
// credentials and produces the same text for the same request, which keeps
// the default install deterministic.
type Template struct {
	logger *zap.Logger
}

// NewTemplate creates the offline drafter.
func NewTemplate(logger *zap.Logger) *Template {
	return &Template{logger: logger.Named("draft-template")}
}

// Name returns the provider name.
func (t *Template) Name() string {
	return "template"
}

// Draft renders the requested document.
func (t *Template) Draft(ctx context.Context, req Request) (string, error) {
	switch req.Kind {
	case KindResumeSummary:
		return t.summary(req), nil
	case KindCoverLetter:
		return t.letter(req), nil
	default:
		return "", fmt.Errorf("unknown document kind: %s", req.Kind)
	}
}

// summary reworks the candidate's existing summary toward the posting:
// posting keywords not already present are worked in, and the posting title
// leads when the summary never mentions it.
func (t *Template) summary(req Request) string {
	summary := req.Summary
	if summary == "" {
		summary = "Experienced professional"
	}

	var additions []string
	for _, keyword := range req.Keywords {
		if len(additions) == 3 {
			break
		}
		if !strings.Contains(strings.ToLower(summary), strings.ToLower(keyword)) {
			additions = append(additions, keyword)
		}
	}
	if len(additions) > 0 {
		summary += fmt.Sprintf(" with expertise in %s", strings.Join(additions, ", "))
	}

	if req.Title != "" && !strings.Contains(strings.ToLower(summary), strings.ToLower(req.Title)) {
		summary = fmt.Sprintf("%s professional. %s", req.Title, summary)
	}

	if len(summary) > 500 {
		summary = summary[:500]
	}
	return summary
}

func (t *Template) letter(req Request) string {
	title := req.Title
	if title == "" {
		title = "the position"
	}
	company := req.Company
	if company == "" {
		company = "your company"
	}

	hook := t.hook(req)
	closing := t.closing(company)

	var b strings.Builder
	b.WriteString("Dear Hiring Manager,\n\n")

	switch req.Tone {
	case ToneEnthusiastic:
		fmt.Fprintf(&b, "%s I am thrilled to apply for the %s role at %s.\n\n", hook, title, company)
		b.WriteString(t.experienceParagraph(req, title) + "\n\n")
		b.WriteString(t.skillsParagraph(req) + "\n\n")
		b.WriteString(closing + "\n\nBest regards,\n" + req.Owner)
	case ToneConcise:
		fmt.Fprintf(&b, "I am applying for the %s position at %s. %s\n\n", title, company, hook)
		b.WriteString(t.combinedParagraph(req) + "\n\n")
		b.WriteString(closing + "\n\nSincerely,\n" + req.Owner)
	default:
		fmt.Fprintf(&b, "I am writing to express my strong interest in the %s position at %s. %s\n\n", title, company, hook)
		b.WriteString(t.experienceParagraph(req, title) + "\n\n")
		b.WriteString(t.skillsParagraph(req) + "\n\n")
		b.WriteString(closing + "\n\nSincerely,\n" + req.Owner)
	}

	return b.String()
}

func (t *Template) hook(req Request) string {
	if req.Years > 0 {
		return fmt.Sprintf("With %d+ years of experience in software development, I am confident in my ability to contribute to your team.", req.Years)
	}
	if len(req.Keywords) > 0 {
		top := req.Keywords
		if len(top) > 3 {
			top = top[:3]
		}
		return fmt.Sprintf("My background in %s makes me an ideal candidate for this role.", strings.Join(top, ", "))
	}
	return "I am confident in my ability to contribute to your team."
}

func (t *Template) experienceParagraph(req Request, title string) string {
	if req.RecentRole == "" {
		return "I am eager to apply my skills and passion to this role."
	}
	org := req.RecentOrg
	if org == "" {
		org = "my current company"
	}
	return fmt.Sprintf(
		"As a %s at %s, I have developed strong expertise in the technologies and practices that are central to the %s role.",
		req.RecentRole, org, title)
}

func (t *Template) skillsParagraph(req Request) string {
	if len(req.Skills) == 0 {
		return "I bring a diverse skill set and am a quick learner, confident in my ability to adapt to your tech stack."
	}
	skills := req.Skills
	if len(skills) > 5 {
		skills = skills[:5]
	}
	return fmt.Sprintf(
		"My technical proficiency includes %s, which directly aligns with the requirements for this position. I am committed to continuous learning and staying current with industry best practices.",
		strings.Join(skills, ", "))
}

func (t *Template) combinedParagraph(req Request) string {
	skills := req.Skills
	if len(skills) > 4 {
		skills = skills[:4]
	}
	expertise := "relevant technologies"
	if len(skills) > 0 {
		expertise = strings.Join(skills, ", ")
	}
	return fmt.Sprintf(
		"I bring %d+ years of professional experience with expertise in %s. My track record of delivering results and my passion for the field make me confident that I can make meaningful contributions to your team.",
		req.Years, expertise)
}

func (t *Template) closing(company string) string {
	return fmt.Sprintf(
		"I am excited about the opportunity to contribute to %s's success and would welcome the chance to discuss how my skills and experience align with your needs. Thank you for considering my application. I look forward to speaking with you soon.",
		company)
}
