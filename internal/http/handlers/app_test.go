package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kris790/Kaleidoscope/internal/domain"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrEmptyPrompt, http.StatusBadRequest},
		{domain.ErrMissingContinuation, http.StatusBadRequest},
		{fmt.Errorf("reserve: %w", domain.ErrInsufficientCredits), http.StatusPaymentRequired},
		{domain.ErrProjectLimit, http.StatusForbidden},
		{domain.ErrGenerationInFlight, http.StatusConflict},
		{domain.ErrRemoteAuthExpired, http.StatusUnauthorized},
		{domain.ErrRemoteTransient, http.StatusServiceUnavailable},
		{domain.ErrRemoteRejected, http.StatusBadGateway},
		{domain.ErrEmptyResultPayload, http.StatusBadGateway},
		{domain.ErrInvalidAudioPayload, http.StatusBadGateway},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if code, _ := statusFor(tc.err); code != tc.code {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, code, tc.code)
		}
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"prompt":"x","bogus":1}`))
	var v extendRequest
	if err := decode(r, &v); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestDecodeEmptyBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	v := extendRequest{Prompt: "keep"}
	if err := decode(r, &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Prompt != "keep" {
		t.Fatalf("empty body must leave value alone, got %q", v.Prompt)
	}
}
