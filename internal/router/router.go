// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/betterself/voice-therapist-api/internal/config"
	"github.com/betterself/voice-therapist-api/internal/handler"
	"github.com/betterself/voice-therapist-api/internal/middleware"
)

// Handlers groups everything RegisterRoutes needs to wire the API surface.
type Handlers struct {
	Turn          *handler.TurnHandler
	Users         *handler.UserHandler
	Conversations *handler.ConversationHandler
	Billing       *handler.BillingHandler
}

// RegisterRoutes mounts all endpoints on the provided Echo instance.  The
// identity middleware runs on every /api route so any endpoint can see a
// verified subject; the rate limiter guards only the turn endpoint, the one
// route that fans out into paid external calls.
func RegisterRoutes(e *echo.Echo, h Handlers, cfg config.Config, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	api := e.Group("/api")
	api.Use(middleware.OptionalIdentity(cfg.JWTSecret))

	api.POST("/users", h.Users.Create)
	api.GET("/users/:userHash", h.Users.Get)
	api.PUT("/users/:userHash/rekey", h.Users.Rekey)

	api.POST("/conversations/new-conversation", h.Conversations.New)
	api.POST("/conversations/:conversationHash/follow-up", h.Conversations.FollowUp)
	api.GET("/conversations/:conversationHash/messages", h.Conversations.Messages)

	api.POST("/conversations/message", h.Turn.Message, middleware.NewTokenBucket(rlCfg, rdb))

	api.POST("/billing/create-checkout-session", h.Billing.CreateCheckoutSession)
	api.POST("/billing/webhook", h.Billing.Webhook)
}
