// Package editor assembles multimodal edit requests for an
// OpenRouter-compatible completion API and turns its responses into
// binary images or classified errors.
package editor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const completionsPath = "/chat/completions"

// chatRequest is the vendor's single-turn multimodal request.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// Client sends edit requests to the vendor.
type Client struct {
	apiKey    string
	baseURL   string
	model     string
	directive string
	retry     RetryPolicy
	httpc     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithDirective sets a fixed directive prepended to every
// instruction. Empty disables the prefix.
func WithDirective(directive string) Option {
	return func(c *Client) { c.directive = directive }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithTimeout bounds each request attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpc.Timeout = d }
}

// NewClient creates an edit client for the given vendor endpoint.
func NewClient(apiKey, baseURL, model string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		retry:   DefaultRetryPolicy(3),
		httpc:   &http.Client{Timeout: 120 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Edit sends the image and instruction to the vendor and returns the
// transformed image. Failures are classified: the returned error is a
// *UpstreamError for transport/HTTP failures, or wraps ErrNoImage /
// ErrMalformedImage when the vendor answered but the payload was
// unusable.
func (c *Client) Edit(ctx context.Context, image []byte, contentType, instruction string) (*Result, error) {
	text := instruction
	if c.directive != "" {
		text = c.directive + "\n\n=== USER REQUEST ===\n" + instruction
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{
						Type: "image_url",
						ImageURL: &imageURL{
							URL: fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(image)),
						},
					},
					{
						Type: "text",
						Text: text,
					},
				},
			},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshalling request: %w", err)
	}

	status, body, err := c.post(ctx, payload)
	if err != nil {
		return nil, Classify(0, err.Error())
	}
	if status < 200 || status >= 300 {
		return nil, Classify(status, vendorMessage(body))
	}

	return Extract(body)
}

// post performs the HTTP exchange with bounded retry on transient
// failure. It returns the final status and body, or an error when
// every attempt failed at the network level.
func (c *Client) post(ctx context.Context, payload []byte) (int, []byte, error) {
	var (
		status  int
		body    []byte
		lastErr error
	)

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		status, body, lastErr = c.attempt(ctx, payload)

		retryable := c.retry.Retryable != nil && c.retry.Retryable(status, lastErr)
		if !retryable || attempt == c.retry.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if err := c.retry.wait(ctx, attempt); err != nil {
			break
		}
	}

	if lastErr != nil {
		return 0, nil, lastErr
	}
	return status, body, nil
}

func (c *Client) attempt(ctx context.Context, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("making request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", "https://github.com/dsmirnov/retouch")
	req.Header.Set("X-Title", "Retouch Bot")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("getting response: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response body: %w", err)
	}

	return resp.StatusCode, body, nil
}
