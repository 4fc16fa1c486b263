package draft

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// defaultModel is used when no model is configured.
const defaultModel = "claude-sonnet-4-20250514"

const systemPrompt = "You write job application documents. " +
	"Respond with the document text only, no preamble and no commentary."

// Anthropic drafts documents with Claude.
type Anthropic struct {
	client anthropic.Client
	model  anthropic.Model
	logger *zap.Logger
}

// NewAnthropic creates the Claude-backed drafter.
func NewAnthropic(apiKey, model string, logger *zap.Logger) (*Anthropic, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic drafter requires an API key")
	}
	if model == "" {
		model = defaultModel
	}

	return &Anthropic{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
		logger: logger.Named("draft-anthropic"),
	}, nil
}

// Name returns the provider name.
func (a *Anthropic) Name() string {
	return "anthropic"
}

// Draft sends one prompt per request and returns the model's text.
func (a *Anthropic) Draft(ctx context.Context, req Request) (string, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return "", err
	}

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to draft %s: %w", req.Kind, err)
	}

	var b strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("model returned no text for %s", req.Kind)
	}

	a.logger.Debug("document drafted",
		zap.String("kind", req.Kind),
		zap.Int("chars", len(text)))
	return text, nil
}

func buildPrompt(req Request) (string, error) {
	var b strings.Builder

	switch req.Kind {
	case KindCoverLetter:
		tone := req.Tone
		if tone == "" {
			tone = ToneProfessional
		}
		fmt.Fprintf(&b, "Write a %s cover letter for the %s position at %s.\n", tone, req.Title, req.Company)
		fmt.Fprintf(&b, "Candidate: %s\n", req.Owner)
		if req.Years > 0 {
			fmt.Fprintf(&b, "Years of experience: %d\n", req.Years)
		}
		if req.RecentRole != "" {
			fmt.Fprintf(&b, "Most recent role: %s at %s\n", req.RecentRole, req.RecentOrg)
		}
		if len(req.Skills) > 0 {
			fmt.Fprintf(&b, "Skills to emphasize: %s\n", strings.Join(req.Skills, ", "))
		}
		if len(req.Keywords) > 0 {
			fmt.Fprintf(&b, "Posting keywords: %s\n", strings.Join(req.Keywords, ", "))
		}
		b.WriteString("Keep it under 300 words and sign with the candidate's name.")
	case KindResumeSummary:
		fmt.Fprintf(&b, "Write a resume professional summary targeting the %s position at %s.\n", req.Title, req.Company)
		if req.Summary != "" {
			fmt.Fprintf(&b, "Current summary: %s\n", req.Summary)
		}
		if len(req.Keywords) > 0 {
			fmt.Fprintf(&b, "Work in these posting keywords where honest: %s\n", strings.Join(req.Keywords, ", "))
		}
		b.WriteString("Three sentences at most, first person implied, no headline.")
	default:
		return "", fmt.Errorf("unknown document kind: %s", req.Kind)
	}

	return b.String(), nil
}
