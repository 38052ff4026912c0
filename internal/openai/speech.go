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
	speechEndpoint = "/audio/speech"

	// ModelTTS1HD is the speech model used for reply synthesis.
	ModelTTS1HD = "tts-1-hd"

	defaultSpeechTimeout = 30 * time.Second
)

// Voice identifiers accepted by the speech API.  The turn request's voice
// selector must be one of these.
const (
	VoiceAlloy   = "alloy"
	VoiceEcho    = "echo"
	VoiceFable   = "fable"
	VoiceOnyx    = "onyx"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"
)

// ValidVoice reports whether v names a voice in the catalog.
func ValidVoice(v string) bool {
	switch v {
	case VoiceAlloy, VoiceEcho, VoiceFable, VoiceOnyx, VoiceNova, VoiceShimmer:
		return true
	}
	return false
}

// SpeechClient calls the text-to-speech API.
type SpeechClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// SpeechOption configures a SpeechClient.
type SpeechOption func(*SpeechClient)

// WithSpeechBaseURL sets a custom base URL (for testing or proxies).
func WithSpeechBaseURL(url string) SpeechOption {
	return func(c *SpeechClient) { c.baseURL = url }
}

// WithSpeechHTTPClient sets a custom HTTP client.
func WithSpeechHTTPClient(client *http.Client) SpeechOption {
	return func(c *SpeechClient) { c.client = client }
}

// WithSpeechModel sets the speech model to use.
func WithSpeechModel(model string) SpeechOption {
	return func(c *SpeechClient) { c.model = model }
}

// NewSpeechClient creates a text-to-speech client.
func NewSpeechClient(apiKey string, opts ...SpeechOption) *SpeechClient {
	c := &SpeechClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   ModelTTS1HD,
		client:  &http.Client{Timeout: defaultSpeechTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type speechRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice"`
}

// Synthesize converts text to MP3 audio using the given voice.
func (c *SpeechClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("openai %s: empty input text", speechEndpoint)
	}

	body, err := json.Marshal(speechRequest{Model: c.model, Input: text, Voice: voice})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+speechEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(speechEndpoint, resp.StatusCode, respBody)
	}
	return respBody, nil
}
