package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/betterself/voice-therapist-api/internal/config"
	"github.com/betterself/voice-therapist-api/internal/model"
	"github.com/betterself/voice-therapist-api/internal/repository"
)

// BillingHandler glues the payment provider to the subscription store.  It
// creates checkout sessions and consumes webhook events; whether a user is
// entitled to the full tier is decided solely by the subscription rows the
// webhook writes, never by calling the provider during a turn.
type BillingHandler struct {
	Cfg           config.Config
	Users         *repository.UserRepo
	Subscriptions *repository.SubscriptionRepo
}

func NewBillingHandler(cfg config.Config, u *repository.UserRepo, s *repository.SubscriptionRepo) *BillingHandler {
	stripe.Key = cfg.StripeSecretKey
	return &BillingHandler{Cfg: cfg, Users: u, Subscriptions: s}
}

func (h *BillingHandler) configured() bool {
	return h.Cfg.StripeSecretKey != "" && h.Cfg.StripeWebhookSecret != ""
}

type checkoutReq struct {
	UserHash string `json:"userHash"`
	Plan     string `json:"plan"` // monthly | yearly
}

// CreateCheckoutSession starts a subscription checkout for a user and
// returns the hosted payment page URL.
func (h *BillingHandler) CreateCheckoutSession(c echo.Context) error {
	if !h.configured() {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "billing not configured"})
	}

	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.UserHash = strings.TrimSpace(req.UserHash)
	if req.UserHash == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "userHash required"})
	}

	var price string
	switch strings.ToLower(req.Plan) {
	case "monthly", "":
		price = h.Cfg.StripePriceMonthly
	case "yearly":
		price = h.Cfg.StripePriceYearly
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown plan"})
	}
	if price == "" {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "billing not configured"})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(price), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(h.Cfg.CheckoutSuccessURL),
		CancelURL:  stripe.String(h.Cfg.CheckoutCancelURL),
	}
	params.AddMetadata("user_hash", req.UserHash)

	s, err := session.New(params)
	if err != nil {
		c.Logger().Errorf("billing: create checkout session: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create checkout session failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"url": s.URL})
}

// Webhook consumes payment provider events.  checkout.session.completed
// links the billing customer to the owner hash; invoice.paid extends the
// subscription by inserting a validity interval covering the paid period.
// Events the service does not care about are acknowledged and dropped.
func (h *BillingHandler) Webhook(c echo.Context) error {
	if !h.configured() {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "billing not configured"})
	}

	payload, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, 1<<20))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable payload"})
	}
	event, err := webhook.ConstructEvent(payload, c.Request().Header.Get("Stripe-Signature"), h.Cfg.StripeWebhookSecret)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "signature verification failed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch string(event.Type) {
	case "checkout.session.completed":
		if err := h.handleCheckoutCompleted(ctx, event); err != nil {
			c.Logger().Errorf("billing: checkout.session.completed: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "event processing failed"})
		}
	case "invoice.paid":
		if err := h.handleInvoicePaid(ctx, event); err != nil {
			c.Logger().Errorf("billing: invoice.paid: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "event processing failed"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

func (h *BillingHandler) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return err
	}
	userHash := sess.Metadata["user_hash"]
	if userHash == "" || sess.Customer == nil {
		return nil // session not created through our checkout flow
	}
	err := h.Users.SetStripeCustomer(ctx, userHash, sess.Customer.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil // user deleted between checkout and webhook delivery
	}
	return err
}

func (h *BillingHandler) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return err
	}
	if inv.Customer == nil || inv.Lines == nil || len(inv.Lines.Data) == 0 {
		return nil
	}
	line := inv.Lines.Data[0]
	if line.Period == nil || line.Period.End == 0 {
		return nil
	}

	u, err := h.Users.GetByStripeCustomer(ctx, inv.Customer.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil // customer not linked to an owner hash
	}
	if err != nil {
		return err
	}

	sub := model.Subscription{
		UserHash:  u.UserHash,
		StartDate: time.Unix(line.Period.Start, 0).UTC(),
		EndDate:   time.Unix(line.Period.End, 0).UTC(),
	}
	return h.Subscriptions.Create(ctx, &sub)
}
