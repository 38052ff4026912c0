package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betterself/voice-therapist-api/internal/queue"
	"github.com/betterself/voice-therapist-api/internal/therapy"
)

type fakeRunner struct {
	result *therapy.TurnResult
	err    error
	got    therapy.TurnRequest
}

func (f *fakeRunner) Run(_ context.Context, req therapy.TurnRequest) (*therapy.TurnResult, error) {
	f.got = req
	return f.result, f.err
}

func postJSON(t *testing.T, h *TurnHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/message", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Message(e.NewContext(req, rec)))
	return rec
}

func TestTurnMessageTextSuccess(t *testing.T) {
	runner := &fakeRunner{result: &therapy.TurnResult{
		ConversationHash: "conv-1",
		InputText:        "hi",
		ReplyText:        "hello",
		ReplyAudio:       []byte{1, 2, 3},
		Tier:             therapy.TierAnonymous,
	}}
	var published *queue.TurnCompletedEvent
	h := NewTurnHandler(runner, nil, func(_ context.Context, ev queue.TurnCompletedEvent) error {
		published = &ev
		return nil
	})

	rec := postJSON(t, h, `{"userHash":"user-1","message":"hi","modelId":"nova","conversationHash":"conv-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "conv-1", resp["conversationHash"])
	assert.Equal(t, "hello", resp["reply"])
	assert.True(t, strings.HasPrefix(resp["audio"].(string), "data:audio/mp3;base64,"))
	assert.Equal(t, "anonymous", resp["tier"])

	assert.Equal(t, therapy.InputText, runner.got.Kind)
	assert.Equal(t, "nova", runner.got.Voice)
	assert.False(t, runner.got.Authenticated, "no token means anonymous")

	require.NotNil(t, published, "completed turns emit an analytics event")
	assert.Equal(t, "conv-1", published.ConversationHash)
	assert.Equal(t, "text", published.InputKind)
}

func TestTurnMessageRequiresUserHash(t *testing.T) {
	runner := &fakeRunner{}
	h := NewTurnHandler(runner, nil, nil)

	rec := postJSON(t, h, `{"message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, runner.got.UserHash, "runner must not be called")
}

func TestTurnMessageRejectsUnknownVoice(t *testing.T) {
	h := NewTurnHandler(&fakeRunner{}, nil, nil)
	rec := postJSON(t, h, `{"userHash":"user-1","message":"hi","modelId":"robot"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTurnMessageErrorMapping(t *testing.T) {
	tests := []struct {
		kind therapy.ErrorKind
		want int
	}{
		{therapy.KindValidation, http.StatusBadRequest},
		{therapy.KindInputConversion, http.StatusBadRequest},
		{therapy.KindConversationNotFound, http.StatusNotFound},
		{therapy.KindTranscription, http.StatusInternalServerError},
		{therapy.KindStoreWrite, http.StatusInternalServerError},
		{therapy.KindGeneration, http.StatusInternalServerError},
		{therapy.KindSynthesis, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			runner := &fakeRunner{err: &therapy.TurnError{Kind: tt.kind, Err: errors.New("boom")}}
			h := NewTurnHandler(runner, nil, nil)
			rec := postJSON(t, h, `{"userHash":"user-1","message":"hi","modelId":"alloy"}`)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestTurnMessageSynthesisFailureReturnsReply(t *testing.T) {
	runner := &fakeRunner{err: &therapy.TurnError{
		Kind:      therapy.KindSynthesis,
		ReplyText: "the reply that was saved",
		Err:       errors.New("tts down"),
	}}
	h := NewTurnHandler(runner, nil, nil)

	rec := postJSON(t, h, `{"userHash":"user-1","message":"hi","modelId":"alloy"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "the reply that was saved", resp["reply"])
	assert.Equal(t, "synthesis", resp["kind"])
}

func TestTurnMessageAudioUpload(t *testing.T) {
	runner := &fakeRunner{result: &therapy.TurnResult{
		ConversationHash: "conv-1",
		InputText:        "spoken",
		ReplyText:        "heard you",
		Tier:             therapy.TierAnonymous,
	}}
	h := NewTurnHandler(runner, nil, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("userHash", "user-1"))
	require.NoError(t, w.WriteField("modelId", "alloy"))
	part, err := w.CreateFormFile("audio", "turn.wav")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/message", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	require.NoError(t, h.Message(e.NewContext(req, rec)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, therapy.InputAudio, runner.got.Kind)
	assert.Equal(t, []byte("fake-bytes"), runner.got.Audio)
	assert.Equal(t, "turn.wav", runner.got.AudioName)
}
