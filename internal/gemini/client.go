// Package gemini implements the describer client against the Google
// generative language REST API. One long-lived client per process; retries
// with linear backoff are internal and invisible to callers except as
// latency.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/qzbx-cloud/avision/internal/pipeline"
)

const (
	defaultAPIBase = "https://generativelanguage.googleapis.com"
	// DefaultModel matches the model the original deployment pinned.
	DefaultModel = "gemini-2.5-flash"
)

// Client calls the Gemini generateContent endpoint. Safe for concurrent use.
type Client struct {
	apiKey  string
	apiBase string
	model   string
	client  *http.Client
	retry   RetryConfig
	sleep   func(ctx context.Context, d time.Duration)
}

// NewClient creates a describer client with the default endpoint and retry
// policy.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey:  apiKey,
		apiBase: defaultAPIBase,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
		retry:   DefaultRetryConfig(),
		sleep:   pipeline.Sleep,
	}
}

// WithBaseURL overrides the API endpoint (tests, regional proxies).
func (c *Client) WithBaseURL(base string) *Client {
	c.apiBase = strings.TrimRight(base, "/")
	return c
}

// WithRetry overrides the retry policy.
func (c *Client) WithRetry(cfg RetryConfig) *Client {
	if cfg.MaxAttempts > 0 {
		c.retry = cfg
	}
	return c
}

// --- wire types ---

type generateRequest struct {
	Contents         []content       `json:"contents"`
	GenerationConfig genConfig       `json:"generationConfig"`
	SafetySettings   []safetySetting `json:"safetySettings"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type genConfig struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
	TopK        int     `json:"topK"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// safetyOff disables the API-side filters for every category; the bot's
// purpose is literal description for accessibility, and the platform applies
// its own moderation downstream.
var safetyOff = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
}

// Describe sends one prompt plus the resolved media and returns the model's
// text. An empty response is returned as-is: it means "nothing to say", not
// failure. Every kind of error — network, quota, malformed response — is
// retried alike until the policy is exhausted, then wrapped in DescribeError.
func (c *Client) Describe(ctx context.Context, req pipeline.DescribeRequest) (string, error) {
	if len(req.Media) == 0 {
		return "", fmt.Errorf("gemini: describe request with no media")
	}

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("gemini: encode request: %w", err)
	}

	state := retryState{cfg: c.retry}
	for {
		text, err := c.generate(ctx, body)
		if err == nil {
			return text, nil
		}

		delay, ok := state.next()
		if !ok {
			return "", &DescribeError{Attempts: c.retry.MaxAttempts, Err: err}
		}
		slog.Warn("describe attempt failed, retrying",
			"attempt", state.tried,
			"max_attempts", c.retry.MaxAttempts,
			"delay", delay,
			"error", err,
		)
		c.sleep(ctx, delay)
		if ctx.Err() != nil {
			return "", &DescribeError{Attempts: state.tried, Err: ctx.Err()}
		}
	}
}

func (c *Client) buildRequest(req pipeline.DescribeRequest) generateRequest {
	parts := make([]part, 0, len(req.Media)+1)
	parts = append(parts, part{Text: selectPrompt(req.Media)})
	for _, m := range req.Media {
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: m.MIME,
			Data:     base64.StdEncoding.EncodeToString(m.Data),
		}})
	}
	return generateRequest{
		Contents:         []content{{Parts: parts}},
		GenerationConfig: genConfig{Temperature: 0.7, TopP: 0.8, TopK: 40},
		SafetySettings:   safetyOff,
	}
}

// generate performs one HTTP attempt.
func (c *Client) generate(ctx context.Context, body []byte) (string, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.apiBase, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("gemini: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini: status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("gemini: parse response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		// No candidates with a 200 happens when the prompt was blocked;
		// treat as "nothing to say" rather than an error.
		return "", nil
	}

	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
