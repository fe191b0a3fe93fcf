package bot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v72"

	"calorie-bot/internal/i18n"
	"calorie-bot/internal/metrics"
	"calorie-bot/internal/models"
	"calorie-bot/internal/payment"
	"calorie-bot/pkg/logger"
)

const maxWebhookBody = 64 << 10

type WebhookVerifier interface {
	VerifyWebhook(payload []byte, sig string) (stripe.Event, error)
}

type languageGetter interface {
	GetLanguage(ctx context.Context, userID int64) (string, error)
}

type messageSender interface {
	Send(ctx context.Context, msg models.OutgoingMessage) (int, error)
}

// StripeWebhook thanks users whose donation checkout completed.
type StripeWebhook struct {
	verifier WebhookVerifier
	store    languageGetter
	sender   messageSender
	logger   *logger.Logger
}

func NewStripeWebhook(verifier WebhookVerifier, store languageGetter, sender messageSender, logger *logger.Logger) *StripeWebhook {
	return &StripeWebhook{verifier: verifier, store: store, sender: sender, logger: logger}
}

func (h *StripeWebhook) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Errorw("Failed to read webhook body", "error", err)
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		h.logger.Warn("Missing Stripe signature header")
		http.Error(w, "Missing signature", http.StatusBadRequest)
		return
	}

	event, err := h.verifier.VerifyWebhook(body, signature)
	if errors.Is(err, payment.ErrWebhookNotConfigured) {
		h.logger.Error("Webhook secret is not configured")
		http.Error(w, "Webhook not configured", http.StatusInternalServerError)
		return
	}
	if err != nil {
		h.logger.Warnw("Failed to verify webhook signature", "error", err)
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case payment.EventCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			h.logger.Errorw("Failed to parse checkout session", "error", err)
			http.Error(w, "Failed to parse event data", http.StatusBadRequest)
			return
		}

		userID, err := strconv.ParseInt(session.ClientReferenceID, 10, 64)
		if err != nil {
			h.logger.Warnw("Invalid client reference ID", "session_id", session.ID, "value", session.ClientReferenceID)
			http.Error(w, "Invalid client reference ID", http.StatusBadRequest)
			return
		}

		metrics.RecordDonation()
		h.logger.Infow("Donation completed", "user_id", userID, "session_id", session.ID)
		h.thank(r.Context(), userID)

	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			h.logger.Errorw("Failed to parse payment intent", "error", err)
			break
		}
		h.logger.Warnw("Donation payment failed", "payment_id", intent.ID)

	default:
		h.logger.Debugw("Ignoring Stripe event", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Webhook received"))
}

// thank sends the thank-you message. Failures are logged only, so Stripe does
// not redeliver a payment that went through.
func (h *StripeWebhook) thank(ctx context.Context, userID int64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	lang, err := h.store.GetLanguage(ctx, userID)
	if err != nil {
		h.logger.Warnw("Failed to get language, using default", "user_id", userID, "error", err)
		lang = models.DefaultLanguage
	}

	_, err = h.sender.Send(ctx, models.OutgoingMessage{
		ChatID: userID,
		Text:   i18n.Text(lang, i18n.DonationThanks),
	})
	if err != nil {
		h.logger.Errorw("Failed to send donation thanks", "user_id", userID, "error", err)
	}
}
