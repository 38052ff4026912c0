package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/betterself/voice-therapist-api/internal/model"
	"github.com/betterself/voice-therapist-api/internal/repository"
)

// ConversationHandler bundles dependencies for thread management and
// history reads.
type ConversationHandler struct {
	Conversations *repository.ConversationRepo
	MessageRepo   *repository.MessageRepo
}

func NewConversationHandler(cv *repository.ConversationRepo, m *repository.MessageRepo) *ConversationHandler {
	return &ConversationHandler{Conversations: cv, MessageRepo: m}
}

type newConversationReq struct {
	UserHash string `json:"userHash"`
}

// New opens a fresh conversation thread for a user.
func (h *ConversationHandler) New(c echo.Context) error {
	var req newConversationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.UserHash = strings.TrimSpace(req.UserHash)
	if req.UserHash == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "userHash required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash := uuid.NewString()
	if err := h.Conversations.Create(ctx, hash, req.UserHash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create conversation failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"conversationHash": hash})
}

type followUpReq struct {
	Message string `json:"message"`
}

// FollowUp appends an assistant-authored re-engagement message to a
// conversation.  The write goes through the same ordered append as turn
// messages, so a follow-up can never land between the two halves of a turn.
func (h *ConversationHandler) FollowUp(c echo.Context) error {
	hash := c.Param("conversationHash")
	var req followUpReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "message required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	conv, err := h.Conversations.GetByHash(ctx, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	msg := model.Message{
		ConversationHash: conv.ConversationHash,
		UserHash:         conv.UserHash,
		Sender:           model.SenderAssistant,
		Content:          text,
		Kind:             model.MessageKindFollowUp,
		CreatedAt:        time.Now().UTC(),
	}
	if err := h.MessageRepo.Append(ctx, &msg); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "append failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"seq": msg.Seq})
}

type messageResp struct {
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	Seq       uint64    `json:"seq"`
	CreatedAt time.Time `json:"createdAt"`
}

// Messages returns a page of a conversation in replay order.
func (h *ConversationHandler) Messages(c echo.Context) error {
	hash := c.Param("conversationHash")
	limit := queryInt(c, "limit", 50)
	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Conversations.GetByHash(ctx, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	msgs, err := h.MessageRepo.ListPage(ctx, hash, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}

	out := make([]messageResp, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResp{
			Sender:    m.Sender,
			Content:   m.Content,
			Kind:      m.Kind,
			Seq:       m.Seq,
			CreatedAt: m.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"conversationHash": hash, "messages": out})
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return def
}
