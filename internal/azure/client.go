package azure

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage is the token accounting returned with every completion.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Completion is the adapter's view of a chat completion.
type Completion struct {
	Content      string `json:"content"`
	Role         string `json:"role"`
	FinishReason string `json:"finish_reason"`
	Usage        Usage  `json:"usage"`
}

var errEmptyChoices = errors.New("completion returned no choices")

// APIError wraps any transport or API failure from the completion endpoint.
// It is the only error type Complete returns, and the one the retry policy
// keys on.
type APIError struct {
	Err error
}

func (e *APIError) Error() string { return "azure: " + e.Err.Error() }
func (e *APIError) Unwrap() error { return e.Err }

// RetryPolicy bounds the retry loop around the completion call. Injected so
// tests can substitute short intervals.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	Multiplier      float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:        3,
		InitialInterval: 30 * time.Second,
		Multiplier:      2,
	}
}

// Params are the sampling parameters passed through to the model.
type Params struct {
	Temperature      float64
	MaxTokens        int64 // 0 means no limit
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

func DefaultParams() Params {
	return Params{
		Temperature:      0.7,
		TopP:             1.0,
		FrequencyPenalty: 0.0,
		PresencePenalty:  0.0,
	}
}

type Config struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Deployment string
}

type Client struct {
	oai        openai.Client
	deployment string
	retry      RetryPolicy
	logger     *slog.Logger
}

func NewClient(cfg Config, retry RetryPolicy, logger *slog.Logger) *Client {
	return &Client{
		oai: openai.NewClient(
			azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
			azure.WithAPIKey(cfg.APIKey),
			// Retries are owned by our policy, not the SDK's.
			option.WithMaxRetries(0),
		),
		deployment: cfg.Deployment,
		retry:      retry,
		logger:     logger,
	}
}

// SetTestBaseURL points the client at a fake completion server.
func (c *Client) SetTestBaseURL(url string) {
	c.oai = openai.NewClient(
		option.WithBaseURL(url),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
}

// Complete sends the conversation to the chat deployment and returns the
// completion text plus token usage. Transient failures are retried per the
// client's policy; the last error is returned as *APIError once attempts are
// exhausted. No state is kept between calls.
func (c *Client) Complete(ctx context.Context, messages []Message, params Params) (*Completion, error) {
	body := openai.ChatCompletionNewParams{
		Model:            openai.ChatModel(c.deployment),
		Messages:         toOpenAIMessages(messages),
		Temperature:      openai.Float(params.Temperature),
		TopP:             openai.Float(params.TopP),
		FrequencyPenalty: openai.Float(params.FrequencyPenalty),
		PresencePenalty:  openai.Float(params.PresencePenalty),
	}
	if params.MaxTokens > 0 {
		body.MaxTokens = openai.Int(params.MaxTokens)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retry.InitialInterval
	bo.Multiplier = c.retry.Multiplier
	bo.RandomizationFactor = 0

	return backoff.Retry(ctx, func() (*Completion, error) {
		resp, err := c.oai.Chat.Completions.New(ctx, body)
		if err != nil {
			return nil, &APIError{Err: err}
		}
		if len(resp.Choices) == 0 {
			return nil, &APIError{Err: errEmptyChoices}
		}
		choice := resp.Choices[0]
		return &Completion{
			Content:      choice.Message.Content,
			Role:         RoleAssistant,
			FinishReason: string(choice.FinishReason),
			Usage: Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		}, nil
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.retry.MaxTries),
		backoff.WithNotify(func(err error, delay time.Duration) {
			c.logger.Warn("chat completion failed, retrying",
				"error", err,
				"delay", delay,
			)
		}),
	)
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
