// Package handler contains the HTTP handlers exposed by the API.
package handler

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/betterself/voice-therapist-api/internal/middleware"
	"github.com/betterself/voice-therapist-api/internal/openai"
	"github.com/betterself/voice-therapist-api/internal/queue"
	"github.com/betterself/voice-therapist-api/internal/repository"
	"github.com/betterself/voice-therapist-api/internal/therapy"
)

// TurnRunner is the orchestrator surface the handler depends on.
type TurnRunner interface {
	Run(ctx context.Context, req therapy.TurnRequest) (*therapy.TurnResult, error)
}

// TurnPublisher emits an analytics event for a completed turn.  May be nil.
type TurnPublisher func(ctx context.Context, event queue.TurnCompletedEvent) error

// TurnHandler serves the conversation turn endpoint.  It accepts either a
// JSON body (text turn) or a multipart form with an audio file (voice turn)
// and replies with the generated text plus synthesized speech as a data URI.
type TurnHandler struct {
	Turns   TurnRunner
	Users   *repository.UserRepo
	Publish TurnPublisher
}

func NewTurnHandler(turns TurnRunner, users *repository.UserRepo, publish TurnPublisher) *TurnHandler {
	return &TurnHandler{Turns: turns, Users: users, Publish: publish}
}

type turnReq struct {
	UserHash         string `json:"userHash" form:"userHash"`
	Message          string `json:"message" form:"message"`
	ModelID          string `json:"modelId" form:"modelId"` // voice selector
	ConversationHash string `json:"conversationHash" form:"conversationHash"`
	ClientTurnID     string `json:"clientTurnId" form:"clientTurnId"`
}

type turnResp struct {
	ConversationHash string `json:"conversationHash"`
	Text             string `json:"text"` // user utterance (transcript for voice turns)
	Reply            string `json:"reply"`
	Audio            string `json:"audio"` // data:audio/mp3;base64,...
	Tier             string `json:"tier"`
}

// Message handles POST /api/conversations/message.
func (h *TurnHandler) Message(c echo.Context) error {
	var req turnReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.UserHash = strings.TrimSpace(req.UserHash)
	if req.UserHash == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "userHash required"})
	}

	kind := therapy.InputText
	var audioData []byte
	var audioName string
	if fh, err := c.FormFile("audio"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable audio upload"})
		}
		audioData, err = io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable audio upload"})
		}
		audioName = fh.Filename
		kind = therapy.InputAudio
	}

	voice, httpErr := h.resolveVoice(c, req)
	if httpErr != nil {
		return httpErr
	}

	sub := middleware.AuthSubject(c)
	turn := therapy.TurnRequest{
		UserHash:         req.UserHash,
		ConversationHash: strings.TrimSpace(req.ConversationHash),
		Voice:            voice,
		Kind:             kind,
		Text:             req.Message,
		Audio:            audioData,
		AudioName:        audioName,
		Authenticated:    sub != "" && sub == req.UserHash,
		ClientTurnID:     strings.TrimSpace(req.ClientTurnID),
	}

	result, err := h.Turns.Run(c.Request().Context(), turn)
	if err != nil {
		return turnErrorResponse(c, err)
	}

	if h.Publish != nil {
		ev := queue.TurnCompletedEvent{
			ConversationHash: result.ConversationHash,
			UserHash:         req.UserHash,
			Tier:             string(result.Tier),
			InputKind:        string(kind),
			InputChars:       len(result.InputText),
			ReplyChars:       len(result.ReplyText),
			AudioBytes:       len(result.ReplyAudio),
			CompletedAt:      time.Now().UTC().Format(time.RFC3339),
		}
		_ = h.Publish(c.Request().Context(), ev) // best effort
	}

	return c.JSON(http.StatusOK, turnResp{
		ConversationHash: result.ConversationHash,
		Text:             result.InputText,
		Reply:            result.ReplyText,
		Audio:            "data:audio/mp3;base64," + base64.StdEncoding.EncodeToString(result.ReplyAudio),
		Tier:             string(result.Tier),
	})
}

// resolveVoice picks the synthesis voice: the request's modelId when given,
// otherwise the voice stored on the user's profile, otherwise the default.
// An unknown selector is rejected before any external call is made.
func (h *TurnHandler) resolveVoice(c echo.Context, req turnReq) (string, error) {
	voice := strings.TrimSpace(req.ModelID)
	if voice == "" && h.Users != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if u, err := h.Users.GetByHash(ctx, req.UserHash); err == nil {
			voice = u.Voice
		}
	}
	if voice == "" {
		voice = openai.VoiceAlloy
	}
	if !openai.ValidVoice(voice) {
		return "", c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown voice selector"})
	}
	return voice, nil
}

// turnErrorResponse maps an orchestrator failure to an HTTP response.  A
// synthesis failure is special: the reply text is already persisted, so it
// is returned alongside the error instead of being discarded.
func turnErrorResponse(c echo.Context, err error) error {
	te := therapy.AsTurnError(err)
	if te == nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "turn failed"})
	}
	switch te.Kind {
	case therapy.KindValidation, therapy.KindInputConversion:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": te.Err.Error(), "kind": string(te.Kind)})
	case therapy.KindConversationNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found", "kind": string(te.Kind)})
	case therapy.KindSynthesis:
		return c.JSON(http.StatusBadGateway, echo.Map{
			"error": "speech synthesis failed",
			"kind":  string(te.Kind),
			"reply": te.ReplyText,
		})
	default:
		c.Logger().Errorf("turn failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "turn failed", "kind": string(te.Kind)})
	}
}
