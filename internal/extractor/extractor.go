// Package extractor turns a finished conversation into the authoritative
// customer profile used for registration. Unlike the turn agent, a malformed
// model response here is a hard error: this is the last step before the
// profile is persisted.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/azure"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/profile"
)

// ExtractionError reports that the model's final-extraction response was not
// a valid profile object. It carries the parse detail and the raw text for
// logging; callers surface a registration-failure message with a retry
// affordance.
type ExtractionError struct {
	Detail error
	Raw    string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to parse customer information from conversation: %v", e.Detail)
}

func (e *ExtractionError) Unwrap() error { return e.Detail }

type Extractor struct {
	llm           *azure.Client
	signupBaseURL string
	logger        *slog.Logger
}

func New(llm *azure.Client, signupBaseURL string, logger *slog.Logger) *Extractor {
	return &Extractor{llm: llm, signupBaseURL: signupBaseURL, logger: logger}
}

// Extract issues a single extraction-only model call over the transcript and
// strictly decodes the result. Missing fields come back as null and stay
// absent in the profile.
func (e *Extractor) Extract(ctx context.Context, messages []azure.Message) (*profile.CustomerProfile, error) {
	formatted := make([]azure.Message, 0, len(messages)+1)
	formatted = append(formatted, azure.Message{Role: azure.RoleSystem, Content: extractionPrompt})
	formatted = append(formatted, messages...)

	params := azure.DefaultParams()
	params.Temperature = 0

	completion, err := e.llm.Complete(ctx, formatted, params)
	if err != nil {
		return nil, fmt.Errorf("extractor: chat completion: %w", err)
	}

	var p profile.CustomerProfile
	if err := json.Unmarshal([]byte(completion.Content), &p); err != nil {
		e.logger.Error("final extraction returned invalid JSON",
			"error", err,
			"content_len", len(completion.Content),
		)
		return nil, &ExtractionError{Detail: err, Raw: completion.Content}
	}

	e.logger.Info("profile extracted",
		"total_tokens", completion.Usage.TotalTokens,
	)
	return &p, nil
}

// childKeywords mark a customer as having children when they show up in the
// motivation or notes, feeding the has_child pre-fill on the signup form.
var childKeywords = []string{"baby", "child", "son", "daughter", "family", "kid"}

// SignupURL builds the registration-form pre-fill URL from the profile. The
// construction is deterministic: the fixed field list is always present, each
// field exactly once, values percent-encoded.
func (e *Extractor) SignupURL(p *profile.CustomerProfile, sessionID string) string {
	params := url.Values{}
	params.Set("name", strOr(p.FirstName, ""))
	params.Set("email", strOr(p.Email, ""))
	params.Set("has_child", strconv.FormatBool(hasChild(p)))
	params.Set("has_pet", "false")
	params.Set("preferred_location", strOr(p.PreferredLocation, ""))
	params.Set("additional_notes", strOr(p.AdditionalNotes, ""))
	params.Set("motivation", strOr(p.Motivation, ""))
	params.Set("timeline", strOr(p.Timeline, ""))
	params.Set("property_type", strOr(p.PropertyType, "apartment"))
	params.Set("num_bedrooms", strconv.Itoa(intOr(p.NumberOfRooms, 1)))
	params.Set("max_price", strconv.Itoa(intOr(p.MaximumBudget, 50)))
	params.Set("chat_session_id", sessionID)

	return e.signupBaseURL + "/for-buy?form=true&" + params.Encode()
}

// FallbackSignupURL is the bare registration form, used when extraction
// failed and there is nothing to pre-fill.
func (e *Extractor) FallbackSignupURL() string {
	return e.signupBaseURL + "/for-buy?form=true"
}

func hasChild(p *profile.CustomerProfile) bool {
	if v, ok := p.Extra["has_children"]; ok {
		if b, ok := v.(bool); ok && b {
			return true
		}
	}
	text := strings.ToLower(strOr(p.Motivation, "") + " " + strOr(p.AdditionalNotes, ""))
	for _, kw := range childKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func strOr(s *string, fallback string) string {
	if s != nil {
		return *s
	}
	return fallback
}

func intOr(n *int, fallback int) int {
	if n != nil {
		return *n
	}
	return fallback
}
