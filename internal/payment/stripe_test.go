package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v72"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calorie-bot/config"
)

func newTestClient() *StripeClient {
	return NewStripeClient(config.Stripe{
		SecretKey:  "sk_test_123",
		WebhookKey: "whsec_test",
		PriceID:    "price_1",
		SuccessURL: "https://example.com/ok",
		CancelURL:  "https://example.com/cancel",
	})
}

func TestDonationLink(t *testing.T) {
	s := newTestClient()
	var got *stripe.CheckoutSessionParams
	s.newSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		got = params
		return &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"}, nil
	}

	url, err := s.DonationLink(context.Background(), 42, time.Date(2025, 3, 9, 22, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_1", url)

	require.NotNil(t, got)
	assert.Equal(t, "42", *got.ClientReferenceID)
	assert.Equal(t, "price_1", *got.LineItems[0].Price)
	assert.Equal(t, "donation-42-2025-03-09", *got.IdempotencyKey)
}

func TestDonationLink_Error(t *testing.T) {
	s := newTestClient()
	boom := errors.New("boom")
	s.newSession = func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return nil, boom
	}

	_, err := s.DonationLink(context.Background(), 1, time.Now())
	require.ErrorIs(t, err, boom)
}

func sign(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", ts)))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyWebhook(t *testing.T) {
	s := newTestClient()
	payload := []byte(fmt.Sprintf(`{"id":"evt_1","type":"checkout.session.completed","api_version":%q,"data":{"object":{"id":"cs_1"}}}`, stripe.APIVersion))

	event, err := s.VerifyWebhook(payload, sign(payload, "whsec_test", time.Now().Unix()))
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutCompleted, event.Type)

	_, err = s.VerifyWebhook(payload, sign(payload, "wrong", time.Now().Unix()))
	require.Error(t, err)
}

func TestVerifyWebhook_NotConfigured(t *testing.T) {
	s := NewStripeClient(config.Stripe{SecretKey: "sk_test_123"})
	assert.False(t, s.WebhookConfigured())

	_, err := s.VerifyWebhook([]byte("{}"), "t=1,v1=00")
	require.ErrorIs(t, err, ErrWebhookNotConfigured)
}
