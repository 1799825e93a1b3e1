// Package agent runs the per-turn conversation loop: one model call per user
// message, returning a conversational reply plus whatever profile fields the
// model extracted from the transcript so far.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/azure"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/profile"
)

type Agent struct {
	llm    *azure.Client
	logger *slog.Logger
}

func New(llm *azure.Client, logger *slog.Logger) *Agent {
	return &Agent{llm: llm, logger: logger}
}

// envelope is the JSON object the system prompt instructs the model to emit.
type envelope struct {
	Response      string                  `json:"response"`
	ExtractedInfo profile.CustomerProfile `json:"extracted_info"`
	WantsToSignup bool                    `json:"wants_to_signup"`
}

// TurnResult is the outcome of one turn. When the model's output was not the
// expected JSON envelope, Parsed is false, Reply carries the raw text, and
// Profile is the prior profile untouched.
type TurnResult struct {
	Reply       string
	Profile     profile.CustomerProfile
	WantsSignup bool
	Parsed      bool
	Usage       azure.Usage
}

// Respond sends the full conversation, prefixed with the fixed system prompt,
// to the model and decodes the reply envelope. A malformed envelope is never
// an error: the conversation keeps flowing on the raw text and the known
// profile is retained unchanged.
func (a *Agent) Respond(ctx context.Context, messages []azure.Message, known profile.CustomerProfile) (*TurnResult, error) {
	formatted := make([]azure.Message, 0, len(messages)+1)
	formatted = append(formatted, azure.Message{Role: azure.RoleSystem, Content: systemPrompt})
	formatted = append(formatted, messages...)

	completion, err := a.llm.Complete(ctx, formatted, azure.DefaultParams())
	if err != nil {
		return nil, fmt.Errorf("agent: chat completion: %w", err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(completion.Content), &env); err != nil {
		a.logger.Warn("turn reply was not a valid envelope, falling back to raw text",
			"error", err,
			"content_len", len(completion.Content),
		)
		return &TurnResult{
			Reply:   completion.Content,
			Profile: known,
			Parsed:  false,
			Usage:   completion.Usage,
		}, nil
	}

	merged := known
	merged.Merge(env.ExtractedInfo)

	return &TurnResult{
		Reply:       env.Response,
		Profile:     merged,
		WantsSignup: env.WantsToSignup,
		Parsed:      true,
		Usage:       completion.Usage,
	}, nil
}

// DetectSignupIntent is the client-side override evaluated on the raw user
// text before the agent is consulted: an email-looking token or an explicit
// "sign up" forces signup intent regardless of what the model later says.
func DetectSignupIntent(text string) bool {
	return strings.Contains(text, "@") || strings.Contains(strings.ToLower(text), "sign up")
}
