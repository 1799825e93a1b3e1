// Package recommend forwards a stored submission to the external
// recommendation endpoint and waits for the match list. Failures degrade to a
// deferred-results message; they never block registration.
package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// PayloadMode selects which of the two accepted request shapes to send.
type PayloadMode string

const (
	// PayloadSubmissionID posts {submission_id, days_added} with a 10s timeout.
	PayloadSubmissionID PayloadMode = "submission_id"
	// PayloadRawData posts {data, timestamp} with a 30s timeout.
	PayloadRawData PayloadMode = "data"
)

// DeferredMessage is shown when the endpoint fails or times out.
const DeferredMessage = "Your personal recommendations will be emailed to you later."

// DashboardMessage is shown on success when no inline matches came back.
const DashboardMessage = "Your personal recommendations will be shown on the dashboard."

type MatchedProperty struct {
	MatchedCriteria []string `json:"matched_criteria"`
	CriteriaMatched float64  `json:"prop_property_criteria_matched"`
}

// Result is always returned, even on failure: Deferred marks the degraded
// path.
type Result struct {
	Matches  []MatchedProperty `json:"matches,omitempty"`
	Deferred bool              `json:"deferred"`
	Message  string            `json:"message,omitempty"`
}

type Processor struct {
	url    string
	mode   PayloadMode
	client *http.Client
	logger *slog.Logger
}

func New(url string, mode PayloadMode, logger *slog.Logger) *Processor {
	timeout := 10 * time.Second
	if mode == PayloadRawData {
		timeout = 30 * time.Second
	}
	return &Processor{
		url:    url,
		mode:   mode,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// SubmitAndWait posts the submission to the recommendation endpoint and
// blocks until a response or the timeout. One request, no retry. On non-200,
// transport error or timeout the caller gets the deferred-results fallback
// instead of an error.
func (p *Processor) SubmitAndWait(ctx context.Context, submissionID string, content map[string]any) *Result {
	var payload map[string]any
	switch p.mode {
	case PayloadRawData:
		payload = map[string]any{
			"data":      content,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
	default:
		payload = map[string]any{
			"submission_id": submissionID,
			"days_added":    0,
		}
	}

	matches, err := p.post(ctx, payload)
	if err != nil {
		p.logger.Warn("recommendation request failed, deferring results",
			"submission_id", submissionID,
			"error", err,
		)
		return &Result{Deferred: true, Message: DeferredMessage}
	}

	if len(matches) == 0 {
		return &Result{Message: DashboardMessage}
	}
	return &Result{Matches: matches}
}

func (p *Processor) post(ctx context.Context, payload map[string]any) ([]MatchedProperty, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recommendation post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed struct {
		MatchedProperties []MatchedProperty `json:"matched_properties"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return parsed.MatchedProperties, nil
}
