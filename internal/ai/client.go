// Package ai talks to an OpenAI-compatible chat completions gateway.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	maxBodySize   = 1 << 20 // 1 MB
	maxErrorBody  = 512
	roleSystem    = "system"
	roleUser      = "user"
	contentHeader = "application/json"
)

var (
	// ErrNotConfigured indicates no API key was provided.
	ErrNotConfigured = errors.New("ai: gateway API key is not configured")
	// ErrUpstreamStatus indicates the gateway answered with a non-success status.
	ErrUpstreamStatus = errors.New("ai: gateway returned an error status")
	// ErrEmptyReply indicates the gateway answered without any choice.
	ErrEmptyReply = errors.New("ai: gateway reply has no choices")
	// ErrReplyTooLarge indicates the gateway body exceeded maxBodySize.
	ErrReplyTooLarge = errors.New("ai: gateway reply too large")
)

// Config holds gateway client settings.
type Config struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client sends a system instruction plus one user prompt per call.
type Client struct {
	url    string
	apiKey string
	model  string
	http   *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		url:    cfg.URL,
		apiKey: strings.TrimSpace(cfg.APIKey),
		model:  cfg.Model,
		http:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Complete returns the content of the first choice. Non-2xx answers wrap
// ErrUpstreamStatus; nothing is retried.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(completionRequest{
		Model: c.model,
		Messages: []message{
			{Role: roleSystem, Content: system},
			{Role: roleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ai: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ai: creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentHeader)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("ai: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(raw)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return "", fmt.Errorf("%w: status %d: %s", ErrUpstreamStatus, resp.StatusCode, strings.TrimSpace(snippet))
	}

	if len(raw) > maxBodySize {
		return "", fmt.Errorf("%w: more than %d bytes", ErrReplyTooLarge, maxBodySize)
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("ai: parsing response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyReply
	}
	return out.Choices[0].Message.Content, nil
}
