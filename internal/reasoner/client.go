// Package reasoner is the client for the external LLM-backed reasoning
// service, reached through OpenRouter's OpenAI-compatible API. It is the
// most failure-prone and highest-latency stage of the pipeline, so responses
// are parsed defensively and transient failures get a single retry.
package reasoner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/clearword/misread/internal/models"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "anthropic/claude-haiku-4.5"
	DefaultTimeout = 8 * time.Second

	// retryBackoff is the fixed pause before the single retry on a
	// transient failure
	retryBackoff = 500 * time.Millisecond

	// MaxMisunderstandings caps the scenarios kept from one judgment
	MaxMisunderstandings = 5
)

const systemPrompt = `You are an emotional intelligence and communication psychology expert.
Analyze the message for emotional tone, ambiguity, and misunderstanding potential.

Return ONLY valid JSON (no markdown, no explanations) with this shape:
{
    "primary_emotion": "neutral|joy|anger|sadness|fear|surprise|confusion|passive-aggressive",
    "intensity": 7.5,
    "hidden_feelings": "what's unsaid or implied",
    "tone_markers": ["sarcasm", "sincerity"],
    "emotions_detected": ["emotion1", "emotion2"],
    "ambiguity_score": 6.5,
    "misunderstandings": [
        {
            "misunderstood_meaning": "how someone might misread it",
            "emotional_impact": "how they would feel",
            "likelihood": 8
        }
    ],
    "improved_version": "a clearer, kinder rewrite of the message"
}

Rules:
- ambiguity_score and intensity are on a 0-10 scale (10 = very ambiguous/intense)
- generate up to 5 realistic misunderstandings
- the improved version keeps the original emotion but makes it explicit,
  is direct yet kind, and stays within 2-3 sentences`

// Reasoner produces a structured judgment for normalized text
type Reasoner interface {
	Analyze(ctx context.Context, text string) (models.ReasoningJudgment, error)
}

// Client talks to the reasoning service. Safe for concurrent use.
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	hasKey  bool
}

// Option configures a Client
type Option func(*Client)

// WithTimeout overrides the per-call wall-clock timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// headerTransport adds the attribution headers OpenRouter asks clients to send
type headerTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("HTTP-Referer", t.referer)
	req.Header.Set("X-Title", t.title)
	return t.base.RoundTrip(req)
}

// New creates a reasoning client. Empty baseURL and model select the
// OpenRouter defaults. An empty apiKey is allowed at construction so the
// service can start unconfigured; the first Analyze call then fails with
// models.ErrExternalAuth.
func New(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = &http.Client{
		Transport: &headerTransport{
			base:    http.DefaultTransport,
			referer: "https://github.com/clearword/misread",
			title:   "misread",
		},
	}

	c := &Client{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: DefaultTimeout,
		hasKey:  apiKey != "",
	}
	return c
}

// NewWithOptions creates a reasoning client with extra options applied
func NewWithOptions(apiKey, baseURL, model string, opts ...Option) *Client {
	c := New(apiKey, baseURL, model)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze sends normalized text to the reasoning service and parses the
// structured judgment out of its response.
//
// Failure contract:
//   - missing/rejected credentials -> error wrapping models.ErrExternalAuth
//     (fatal, never retried)
//   - timeout, rate limit, 5xx -> one retry after a fixed backoff, then an
//     error wrapping models.ErrTransientService
//   - unparseable payload after best-effort extraction -> error wrapping
//     models.ErrMalformedResponse
//
// Callers absorb everything but the auth error into a degraded result.
func (c *Client) Analyze(ctx context.Context, text string) (models.ReasoningJudgment, error) {
	if !c.hasKey {
		return models.ReasoningJudgment{}, fmt.Errorf("reasoner: API key not configured: %w", models.ErrExternalAuth)
	}

	content, err := c.complete(ctx, text)
	if err != nil {
		if errors.Is(err, models.ErrTransientService) {
			slog.Warn("reasoning call failed, retrying once", "error", err)
			time.Sleep(retryBackoff)
			content, err = c.complete(ctx, text)
		}
		if err != nil {
			return models.ReasoningJudgment{}, err
		}
	}

	judgment, err := parseJudgment(content)
	if err != nil {
		return models.ReasoningJudgment{}, err
	}

	return judgment, nil
}

// complete issues one chat completion call with the judgment prompt
func (c *Client) complete(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Analyze this message: %q", text)},
		},
		Temperature: 0.3,
		MaxTokens:   1500,
	})
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("reasoner: response carried no choices: %w", models.ErrMalformedResponse)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// classifyError maps transport/API errors onto the pipeline's error taxonomy
func classifyError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	if status != 0 {
		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return fmt.Errorf("reasoner: %v: %w", err, models.ErrExternalAuth)
		case status == http.StatusTooManyRequests || status >= 500:
			return fmt.Errorf("reasoner: %v: %w", err, models.ErrTransientService)
		default:
			return fmt.Errorf("reasoner: %v: %w", err, models.ErrMalformedResponse)
		}
	}

	// Timeouts and connection failures are transient
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("reasoner: call timed out: %w", models.ErrTransientService)
	}
	return fmt.Errorf("reasoner: %v: %w", err, models.ErrTransientService)
}

// Ping verifies the service accepts our credentials with a minimal call
func (c *Client) Ping(ctx context.Context) error {
	if !c.hasKey {
		return fmt.Errorf("reasoner: API key not configured: %w", models.ErrExternalAuth)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Say 'OK' if you're working."},
		},
		MaxTokens: 10,
	})
	if err != nil {
		return classifyError(err)
	}
	return nil
}
