package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	completionEndpoint = "/chat/completions"

	// ModelGPT4o is the default chat model for reply generation.
	ModelGPT4o = "gpt-4o"

	defaultCompletionTimeout = 60 * time.Second
)

// CompletionClient calls the chat completions API.
type CompletionClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// CompletionOption configures a CompletionClient.
type CompletionOption func(*CompletionClient)

// WithCompletionBaseURL sets a custom base URL (for testing or proxies).
func WithCompletionBaseURL(url string) CompletionOption {
	return func(c *CompletionClient) { c.baseURL = url }
}

// WithCompletionHTTPClient sets a custom HTTP client.
func WithCompletionHTTPClient(client *http.Client) CompletionOption {
	return func(c *CompletionClient) { c.client = client }
}

// WithCompletionModel sets the chat model to use.
func WithCompletionModel(model string) CompletionOption {
	return func(c *CompletionClient) { c.model = model }
}

// NewCompletionClient creates a chat completions client.
func NewCompletionClient(apiKey string, opts ...CompletionOption) *CompletionClient {
	c := &CompletionClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   ModelGPT4o,
		client:  &http.Client{Timeout: defaultCompletionTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string              `json:"model"`
	Messages []completionMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message      completionMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
}

// Complete sends a system instruction plus a single user message and
// returns the generated reply text.
func (c *CompletionClient) Complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model: c.model,
		Messages: []completionMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apiError(completionEndpoint, resp.StatusCode, respBody)
	}

	var parsed completionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai %s: no choices in response", completionEndpoint)
	}
	return parsed.Choices[0].Message.Content, nil
}
