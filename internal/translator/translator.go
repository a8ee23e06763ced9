// Package translator normalizes text between languages via an external
// translation endpoint. Failures are soft: the caller always gets text back,
// falling back to the untranslated input with a flag set.
package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clearword/misread/internal/models"
)

const (
	// DefaultBaseURL is the public Google Translate web endpoint
	DefaultBaseURL = "https://translate.googleapis.com/translate_a/single"

	DefaultTimeout = 15 * time.Second

	// MaxTextLen bounds the text sent per call
	MaxTextLen = 4000
)

// Translator produces translated text for a language pair
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) models.TranslationResult
}

// Client is a Translator backed by the translate web endpoint.
// Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a translation client. An empty baseURL selects the default
// public endpoint.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// Translate translates text from sourceLang to targetLang. When the pair is
// an identity (same language, or empty text) no network call is made. Network
// and decode failures are converted to a soft fallback: the original text is
// returned with Fallback set, never an error.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) models.TranslationResult {
	result := models.TranslationResult{
		SourceText:     text,
		TranslatedText: text,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
	}

	if text == "" || sourceLang == targetLang {
		return result
	}

	if len(text) > MaxTextLen {
		text = text[:MaxTextLen]
	}

	translated, err := c.call(ctx, text, sourceLang, targetLang)
	if err != nil {
		slog.Warn("translation failed, using original text",
			"source_lang", sourceLang,
			"target_lang", targetLang,
			"error", err,
		)
		result.Fallback = true
		return result
	}

	result.TranslatedText = translated
	return result
}

// call issues one request to the translate endpoint and extracts the
// translated text from its nested-array response format.
func (c *Client) call(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", sourceLang)
	params.Set("tl", targetLang)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request: %w: %v", models.ErrTransientService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate status %d: %w", resp.StatusCode, models.ErrTransientService)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	translated, err := parseResponse(body)
	if err != nil {
		return "", err
	}
	if translated == "" {
		return "", fmt.Errorf("empty translation: %w", models.ErrMalformedResponse)
	}

	return translated, nil
}

// parseResponse walks the endpoint's response shape:
// [[["translated","original",...],...],...]
// Each inner segment's first element is a translated sentence fragment.
func parseResponse(body []byte) (string, error) {
	var raw []interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("decode translation: %w: %v", models.ErrMalformedResponse, err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty translation payload: %w", models.ErrMalformedResponse)
	}

	segments, ok := raw[0].([]interface{})
	if !ok {
		return "", fmt.Errorf("unexpected translation shape: %w", models.ErrMalformedResponse)
	}

	var sb strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]interface{})
		if !ok || len(parts) == 0 {
			continue
		}
		if fragment, ok := parts[0].(string); ok {
			sb.WriteString(fragment)
		}
	}

	return strings.TrimSpace(sb.String()), nil
}

// Ping checks endpoint reachability with a minimal translation
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, "Hello", "en", "es")
	return err
}
