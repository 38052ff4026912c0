package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionClientComplete(t *testing.T) {
	var gotAuth string
	var gotBody completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "hello there"}},
			},
		})
	}))
	defer srv.Close()

	c := NewCompletionClient("sk-test", WithCompletionBaseURL(srv.URL))
	reply, err := c.Complete(context.Background(), "be kind", "hi")
	require.NoError(t, err)

	assert.Equal(t, "hello there", reply)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, ModelGPT4o, gotBody.Model)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "be kind", gotBody.Messages[0].Content)
	assert.Equal(t, "user", gotBody.Messages[1].Role)
}

func TestCompletionClientModelOverride(t *testing.T) {
	var gotBody completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	c := NewCompletionClient("sk-test", WithCompletionBaseURL(srv.URL), WithCompletionModel("gpt-4o-mini"))
	_, err := c.Complete(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", gotBody.Model)
}

func TestCompletionClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer srv.Close()

	c := NewCompletionClient("sk-test", WithCompletionBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestCompletionClientNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewCompletionClient("sk-test", WithCompletionBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestTranscriptionClientTranscribe(t *testing.T) {
	var gotFilename, gotModel string
	var gotFile []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")
		f, fh, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		gotFilename = fh.Filename
		gotFile, _ = io.ReadAll(f)
		_, _ = w.Write([]byte(`{"text":"spoken words"}`))
	}))
	defer srv.Close()

	c := NewTranscriptionClient("sk-test", WithTranscriptionBaseURL(srv.URL))
	text, err := c.Transcribe(context.Background(), []byte("fake-audio"), "audio.wav")
	require.NoError(t, err)

	assert.Equal(t, "spoken words", text)
	assert.Equal(t, "audio.wav", gotFilename)
	assert.Equal(t, ModelWhisper1, gotModel)
	assert.Equal(t, []byte("fake-audio"), gotFile)
}

func TestTranscriptionClientEmptyPayload(t *testing.T) {
	c := NewTranscriptionClient("sk-test")
	_, err := c.Transcribe(context.Background(), nil, "audio.wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty audio payload")
}

func TestSpeechClientSynthesize(t *testing.T) {
	var gotBody speechRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/speech", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte("binary-mp3"))
	}))
	defer srv.Close()

	c := NewSpeechClient("sk-test", WithSpeechBaseURL(srv.URL))
	audio, err := c.Synthesize(context.Background(), "hello world", VoiceNova)
	require.NoError(t, err)

	assert.Equal(t, []byte("binary-mp3"), audio)
	assert.Equal(t, ModelTTS1HD, gotBody.Model)
	assert.Equal(t, "hello world", gotBody.Input)
	assert.Equal(t, VoiceNova, gotBody.Voice)
}

func TestSpeechClientEmptyInput(t *testing.T) {
	c := NewSpeechClient("sk-test")
	_, err := c.Synthesize(context.Background(), "", VoiceAlloy)
	require.Error(t, err)
}

func TestSpeechClientAPIErrorFallsBackToRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	c := NewSpeechClient("sk-test", WithSpeechBaseURL(srv.URL))
	_, err := c.Synthesize(context.Background(), "text", VoiceAlloy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestValidVoice(t *testing.T) {
	for _, v := range []string{VoiceAlloy, VoiceEcho, VoiceFable, VoiceOnyx, VoiceNova, VoiceShimmer} {
		assert.True(t, ValidVoice(v), v)
	}
	assert.False(t, ValidVoice(""))
	assert.False(t, ValidVoice("robot"))
}
