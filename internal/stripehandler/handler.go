// Package stripehandler turns completed Stripe checkouts into premium
// licenses. Only the key hash is persisted; the raw key is delivered once
// through the ops notifier.
package stripehandler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"inviteguard/lib/sl"
	"inviteguard/notifier"
)

const eventCheckoutCompleted = "checkout.session.completed"

const defaultMaxGuilds = 1

// Licenses is implemented by impl/premium.
type Licenses interface {
	CreateLicense(ctx context.Context, maxGuilds int, expiresAt *time.Time) (string, error)
}

type Handler struct {
	sc            *client.API
	webhookSecret string
	licenses      Licenses
	notify        *notifier.Notifier
	log           *slog.Logger
}

func New(apiKey, whSecret string, licenses Licenses, notify *notifier.Notifier, logger *slog.Logger) *Handler {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &Handler{
		sc:            sc,
		webhookSecret: whSecret,
		licenses:      licenses,
		notify:        notify,
		log:           logger.With(sl.Module("stripehandler")),
	}
}

// VerifySignature checks the Stripe-Signature header against the webhook
// secret, rejecting stale timestamps.
func (h *Handler) VerifySignature(payload []byte, header string, tolerance time.Duration) bool {
	secret := h.webhookSecret
	parts := strings.Split(header, ",")
	var ts, sig string
	for _, p := range parts {
		if strings.HasPrefix(p, "t=") {
			ts = strings.TrimPrefix(p, "t=")
		}
		if strings.HasPrefix(p, "v1=") {
			sig = strings.TrimPrefix(p, "v1=")
		}
	}
	if ts == "" || sig == "" {
		h.log.Debug("missing timestamp or signature in header")
		return false
	}

	tsInt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		h.log.With(sl.Err(err)).Debug("failed to parse timestamp")
		return false
	}

	eventTime := time.Unix(tsInt, 0)
	timeSince := time.Since(eventTime)
	if timeSince > tolerance {
		h.log.With(
			slog.Time("timestamp", eventTime),
			slog.Duration("age", timeSince),
			slog.Duration("tolerance", tolerance),
		).Debug("webhook timestamp too old")
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	isValid := hmac.Equal([]byte(expected), []byte(sig))
	if !isValid {
		h.log.Debug("signature mismatch")
	}
	return isValid
}

// Event routes a verified webhook event. Unknown types are acknowledged and
// ignored so Stripe does not retry them.
func (h *Handler) Event(ctx context.Context, evt *stripe.Event) {
	log := h.log.With(
		slog.String("event_id", evt.ID),
		slog.Any("type", evt.Type),
	)

	switch string(evt.Type) {
	case eventCheckoutCompleted:
		log.Info("handling checkout")
		h.handleCheckoutCompleted(ctx, evt)
	default:
		log.Info("ignored event")
	}
}

func (h *Handler) handleCheckoutCompleted(ctx context.Context, evt *stripe.Event) {
	sessionID := evt.GetObjectValue("id")
	log := h.log.With(
		slog.String("session_id", sessionID),
	)
	t1 := time.Now()
	defer func() {
		log.With(
			slog.String("duration", fmt.Sprintf("%.3fms", float64(time.Since(t1))/float64(time.Millisecond))),
		).Debug("checkout processed")
	}()

	sess, err := h.sc.CheckoutSessions.Get(sessionID, nil)
	if err != nil {
		log.With(sl.Err(err)).Error("fetching checkout session")
		return
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		log.With(slog.Any("payment_status", sess.PaymentStatus)).Info("session not paid, skipping")
		return
	}

	maxGuilds := defaultMaxGuilds
	if raw, ok := sess.Metadata["max_guilds"]; ok {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			maxGuilds = v
		}
	}
	var expiresAt *time.Time
	if raw, ok := sess.Metadata["duration_days"]; ok {
		if days, err := strconv.Atoi(raw); err == nil && days > 0 {
			t := time.Now().UTC().Add(time.Duration(days) * 24 * time.Hour)
			expiresAt = &t
		}
	}

	rawKey, err := h.licenses.CreateLicense(ctx, maxGuilds, expiresAt)
	if err != nil {
		log.With(sl.Err(err)).Error("creating license")
		return
	}

	log.With(slog.Int("max_guilds", maxGuilds)).Info("license created")
	h.notify.Send(fmt.Sprintf("New premium license for checkout %s: %s", sessionID, rawKey))
}
