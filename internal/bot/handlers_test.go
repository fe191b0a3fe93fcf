package bot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stripe/stripe-go/v72"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calorie-bot/internal/db"
	"calorie-bot/internal/i18n"
	"calorie-bot/internal/models"
	"calorie-bot/internal/payment"
	"calorie-bot/pkg/logger"
)

type fakeVerifier struct {
	verifyFn func(payload []byte, sig string) (stripe.Event, error)
}

func (f *fakeVerifier) VerifyWebhook(payload []byte, sig string) (stripe.Event, error) {
	return f.verifyFn(payload, sig)
}

func eventOf(eventType, raw string) func([]byte, string) (stripe.Event, error) {
	return func([]byte, string) (stripe.Event, error) {
		return stripe.Event{Type: eventType, Data: &stripe.EventData{Raw: json.RawMessage(raw)}}, nil
	}
}

func postWebhook(h *StripeWebhook, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", strings.NewReader(`{}`))
	if sig != "" {
		req.Header.Set("Stripe-Signature", sig)
	}
	rec := httptest.NewRecorder()
	h.HandleStripeWebhook(rec, req)
	return rec
}

func TestStripeWebhook_CheckoutCompleted(t *testing.T) {
	store := db.NewMemoryDB()
	require.NoError(t, store.SetLanguage(context.Background(), 42, models.LangRussian))
	sender := &fakeMessenger{}
	h := NewStripeWebhook(
		&fakeVerifier{verifyFn: eventOf(payment.EventCheckoutCompleted, `{"id":"cs_1","client_reference_id":"42"}`)},
		store, sender, logger.NewNop())

	rec := postWebhook(h, "t=1,v1=abc")
	require.Equal(t, http.StatusOK, rec.Code)

	msg := sender.last()
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, i18n.Text("ru", i18n.DonationThanks), msg.Text)
}

func TestStripeWebhook_SendFailureStillAcknowledged(t *testing.T) {
	sender := &fakeMessenger{sendFn: func(models.OutgoingMessage) error { return errors.New("blocked") }}
	h := NewStripeWebhook(
		&fakeVerifier{verifyFn: eventOf(payment.EventCheckoutCompleted, `{"id":"cs_1","client_reference_id":"42"}`)},
		db.NewMemoryDB(), sender, logger.NewNop())

	rec := postWebhook(h, "t=1,v1=abc")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStripeWebhook_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		method string
		sig    string
		verify func([]byte, string) (stripe.Event, error)
		want   int
	}{
		{name: "method", method: http.MethodGet, sig: "s", want: http.StatusMethodNotAllowed},
		{name: "no signature", method: http.MethodPost, want: http.StatusBadRequest},
		{
			name: "bad signature", method: http.MethodPost, sig: "s",
			verify: func([]byte, string) (stripe.Event, error) { return stripe.Event{}, errors.New("mismatch") },
			want:   http.StatusBadRequest,
		},
		{
			name: "not configured", method: http.MethodPost, sig: "s",
			verify: func([]byte, string) (stripe.Event, error) { return stripe.Event{}, payment.ErrWebhookNotConfigured },
			want:   http.StatusInternalServerError,
		},
		{
			name: "bad reference", method: http.MethodPost, sig: "s",
			verify: eventOf(payment.EventCheckoutCompleted, `{"id":"cs_1","client_reference_id":"abc"}`),
			want:   http.StatusBadRequest,
		},
		{
			name: "other event", method: http.MethodPost, sig: "s",
			verify: eventOf("customer.created", `{"id":"cus_1"}`),
			want:   http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeMessenger{}
			h := NewStripeWebhook(&fakeVerifier{verifyFn: tt.verify}, db.NewMemoryDB(), sender, logger.NewNop())

			req := httptest.NewRequest(tt.method, "/webhook/stripe", strings.NewReader(`{}`))
			if tt.sig != "" {
				req.Header.Set("Stripe-Signature", tt.sig)
			}
			rec := httptest.NewRecorder()
			h.HandleStripeWebhook(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.Empty(t, sender.sent)
		})
	}
}
