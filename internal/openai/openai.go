// Package openai contains thin HTTP clients for the three OpenAI endpoints
// this service depends on: chat completions (reply generation), Whisper
// transcription (audio input normalization) and speech synthesis (reply
// audio).  Each client takes an API key, an overridable base URL and an
// injectable *http.Client so tests can point it at a local server.
package openai

import (
	"encoding/json"
	"fmt"
)

const defaultBaseURL = "https://api.openai.com/v1"

// apiError decodes OpenAI's {"error":{...}} envelope from a non-200
// response body and returns a descriptive error.  Falls back to the raw
// body when the envelope cannot be parsed.
func apiError(endpoint string, statusCode int, body []byte) error {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" {
		return fmt.Errorf("openai %s: status %d: %s", endpoint, statusCode, string(body))
	}
	return fmt.Errorf("openai %s: status %d: %s", endpoint, statusCode, envelope.Error.Message)
}
