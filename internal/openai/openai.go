package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"Flywheel/internal/config"
	"Flywheel/internal/leads"
	"Flywheel/internal/uploads"
)

// ErrDisabled is returned when no model endpoint is configured.
var ErrDisabled = errors.New("lead briefs are not configured")

const systemPrompt = "You are an analyst at a fundraising and investor-PR consultancy. " +
	"You prepare the team for discovery calls with startup founders. Be concise and concrete."

// Briefer writes a short staff-facing summary of a lead before the discovery call.
type Briefer struct {
	client  sdk.Client
	model   string
	enabled bool
}

func NewBriefer(cfg config.OpenAIConfig) *Briefer {
	if cfg.BaseURL == "" || cfg.APIKey == "" || cfg.Model == "" {
		return &Briefer{}
	}
	return &Briefer{
		client: sdk.NewClient(
			option.WithBaseURL(cfg.BaseURL),
			option.WithAPIKey(cfg.APIKey),
			option.WithMaxRetries(1),
		),
		model:   cfg.Model,
		enabled: true,
	}
}

func (b *Briefer) Enabled() bool { return b != nil && b.enabled }

// Brief asks the model for a summary of the lead's answers.
func (b *Briefer) Brief(ctx context.Context, lead *leads.LeadView) (string, error) {
	if !b.Enabled() {
		return "", ErrDisabled
	}

	resp, err := b.client.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(systemPrompt),
			sdk.UserMessage(Prompt(lead)),
		},
		Model: sdk.ChatModel(b.model),
	})
	if err != nil {
		return "", fmt.Errorf("brief generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("brief generation returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Prompt lays the lead out as plain text for the model.
func Prompt(lead *leads.LeadView) string {
	var sb strings.Builder
	sb.WriteString("Below is a lead-qualification submission.\n\n")
	fmt.Fprintf(&sb, "Name: %s\nEmail: %s\nCompany website: %s\nLinkedIn: %s\n",
		lead.FullName, lead.Email, lead.CompanyWebsite, lead.LinkedinProfile)
	if lead.ApplicantRole != "" {
		sb.WriteString(lead.ApplicantRole + "\n")
	}
	if lead.PitchDeckURL != nil {
		sb.WriteString("Pitch deck: " + uploads.DisplayName(*lead.PitchDeckURL) + "\n")
	}
	if lead.CalendlyScheduledTime != nil {
		sb.WriteString("Call booked for: " + *lead.CalendlyScheduledTime + "\n")
	}
	sb.WriteString("\n")
	for _, block := range lead.Blocks {
		for _, qa := range block.Items {
			if qa.Question != "" {
				sb.WriteString("Q: " + qa.Question + "\n")
			}
			sb.WriteString("A: " + qa.Answer.String() + "\n")
		}
	}
	sb.WriteString(`
Write a brief for the team with:
1. Company snapshot and stage
2. The fundraise: amount, timing and traction signals
3. Red flags or gaps to dig into on the call
4. Three questions to open the call with`)
	return sb.String()
}
