package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"calorie-bot/pkg/logger"
)

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestServer_Routes(t *testing.T) {
	var hooked bool
	s := NewServer("0", func(w http.ResponseWriter, r *http.Request) {
		hooked = true
		w.WriteHeader(http.StatusOK)
	}, logger.NewNop())

	rec := serve(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = serve(s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = serve(s, http.MethodPost, "/webhook/stripe")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hooked)
}

func TestServer_NoWebhook(t *testing.T) {
	s := NewServer("0", nil, logger.NewNop())

	rec := serve(s, http.MethodPost, "/webhook/stripe")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
