package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/checkout/session"
	"github.com/stripe/stripe-go/v72/webhook"

	"calorie-bot/config"
	"calorie-bot/internal/models"
)

const EventCheckoutCompleted = "checkout.session.completed"

var ErrWebhookNotConfigured = errors.New("webhook secret is not configured")

type StripeClient struct {
	webhookSecret string
	priceID       string
	successURL    string
	cancelURL     string

	newSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

func NewStripeClient(cfg config.Stripe) *StripeClient {
	stripe.Key = cfg.SecretKey

	return &StripeClient{
		webhookSecret: cfg.WebhookKey,
		priceID:       cfg.PriceID,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		newSession:    session.New,
	}
}

func (s *StripeClient) WebhookConfigured() bool {
	return s.webhookSecret != ""
}

// DonationLink creates a one-item checkout session for userID and returns its
// URL. Repeated calls for the same user and day reuse the session.
func (s *StripeClient) DonationLink(ctx context.Context, userID int64, day time.Time) (string, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		ClientReferenceID: stripe.String(strconv.FormatInt(userID, 10)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(fmt.Sprintf("donation-%d-%s", userID, day.Format(models.DateLayout)))

	sess, err := s.newSession(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (s *StripeClient) VerifyWebhook(payload []byte, sig string) (stripe.Event, error) {
	if s.webhookSecret == "" {
		return stripe.Event{}, ErrWebhookNotConfigured
	}
	return webhook.ConstructEvent(payload, sig, s.webhookSecret)
}
