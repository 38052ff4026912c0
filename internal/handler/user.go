package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/betterself/voice-therapist-api/internal/middleware"
	"github.com/betterself/voice-therapist-api/internal/model"
	"github.com/betterself/voice-therapist-api/internal/openai"
	"github.com/betterself/voice-therapist-api/internal/repository"
)

// UserHandler bundles dependencies for the user profile endpoints.
type UserHandler struct {
	Users *repository.UserRepo
}

func NewUserHandler(u *repository.UserRepo) *UserHandler {
	return &UserHandler{Users: u}
}

type createUserReq struct {
	UserHash string `json:"userHash"`
	Name     string `json:"name"`
	Photo    string `json:"photo"`
	Voice    string `json:"voice"`
}

type userResp struct {
	UserHash  string    `json:"userHash"`
	Name      string    `json:"name"`
	Photo     string    `json:"photo"`
	Voice     string    `json:"voice"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResp(u model.User) userResp {
	return userResp{
		UserHash:  u.UserHash,
		Name:      u.Name,
		Photo:     u.Photo,
		Voice:     u.Voice,
		CreatedAt: u.CreatedAt,
	}
}

// Create registers a user profile.  Anonymous clients may omit userHash and
// receive a generated one; the voice selector defaults to the standard
// voice and is validated against the synthesis catalog.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.UserHash = strings.TrimSpace(req.UserHash)
	if req.UserHash == "" {
		req.UserHash = uuid.NewString()
	}
	if req.Voice == "" {
		req.Voice = openai.VoiceAlloy
	}
	if !openai.ValidVoice(req.Voice) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown voice selector"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u := model.User{
		UserHash: req.UserHash,
		Name:     strings.TrimSpace(req.Name),
		Photo:    strings.TrimSpace(req.Photo),
		Voice:    req.Voice,
	}
	if err := h.Users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "user already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, toUserResp(u))
}

// Get returns a user profile by hash.
func (h *UserHandler) Get(c echo.Context) error {
	hash := c.Param("userHash")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByHash(ctx, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

type rekeyReq struct {
	NewUserHash string `json:"newUserHash"`
}

// Rekey rewrites an anonymous owner hash to the authenticated identity's
// subject after login, carrying the user's history across.  The caller must
// hold a token whose subject matches the new hash, so one account cannot
// claim another's anonymous history.
func (h *UserHandler) Rekey(c echo.Context) error {
	oldHash := c.Param("userHash")
	var req rekeyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	newHash := strings.TrimSpace(req.NewUserHash)
	if newHash == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "newUserHash required"})
	}

	sub := middleware.AuthSubject(c)
	if sub == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	if sub != newHash {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "token subject mismatch"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err := h.Users.Rekey(ctx, oldHash, newHash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	case errors.Is(err, repository.ErrUserExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "target hash already in use"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rekey failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"userHash": newHash})
}
