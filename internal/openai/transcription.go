package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	transcribeEndpoint = "/audio/transcriptions"

	// ModelWhisper1 is the Whisper model used for transcription.
	ModelWhisper1 = "whisper-1"

	defaultTranscribeTimeout = 60 * time.Second
)

// TranscriptionClient calls the Whisper transcription API.
type TranscriptionClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// TranscriptionOption configures a TranscriptionClient.
type TranscriptionOption func(*TranscriptionClient)

// WithTranscriptionBaseURL sets a custom base URL (for testing or proxies).
func WithTranscriptionBaseURL(url string) TranscriptionOption {
	return func(c *TranscriptionClient) { c.baseURL = url }
}

// WithTranscriptionHTTPClient sets a custom HTTP client.
func WithTranscriptionHTTPClient(client *http.Client) TranscriptionOption {
	return func(c *TranscriptionClient) { c.client = client }
}

// WithTranscriptionModel sets the transcription model to use.
func WithTranscriptionModel(model string) TranscriptionOption {
	return func(c *TranscriptionClient) { c.model = model }
}

// NewTranscriptionClient creates a Whisper transcription client.
func NewTranscriptionClient(apiKey string, opts ...TranscriptionOption) *TranscriptionClient {
	c := &TranscriptionClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   ModelWhisper1,
		client:  &http.Client{Timeout: defaultTranscribeTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe uploads an audio file as a multipart form and returns the
// transcribed text.  The filename's extension tells Whisper which container
// to expect, so callers must pass a name matching the actual encoding.
func (c *TranscriptionClient) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("openai %s: empty audio payload", transcribeEndpoint)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}
	if err := writer.WriteField("model", c.model); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+transcribeEndpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

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
		return "", apiError(transcribeEndpoint, resp.StatusCode, respBody)
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	return parsed.Text, nil
}
