package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/infra"
	"github.com/kris790/Kaleidoscope/internal/ledger"
	"github.com/kris790/Kaleidoscope/internal/middleware"
	"github.com/kris790/Kaleidoscope/internal/studio"
)

// App holds the dependencies shared by every handler.
type App struct {
	Studio  *studio.Service
	Pricing ledger.Pricing
	Backend string
	Logger  infra.Logger
}

func NewApp(svc *studio.Service, pricing ledger.Pricing, backend string, logger infra.Logger) *App {
	return &App{Studio: svc, Pricing: pricing, Backend: backend, Logger: logger}
}

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, r *http.Request, code int, kind, message string) {
	a.json(w, code, errorBody{Error: kind, Message: message, RequestID: middleware.RequestIDFromContext(r.Context())})
}

// fail maps a domain error to its HTTP status.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, kind := statusFor(err)
	if code >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("http: request failed")
	}
	a.error(w, r, code, kind, err.Error())
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrInsufficientCredits):
		return http.StatusPaymentRequired, "insufficient_credits"
	case errors.Is(err, domain.ErrProjectLimit):
		return http.StatusForbidden, "project_limit"
	case errors.Is(err, domain.ErrGenerationInFlight):
		return http.StatusConflict, "generation_in_flight"
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrRemoteAuthExpired):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrRemoteTransient):
		return http.StatusServiceUnavailable, "remote_unavailable"
	case errors.Is(err, domain.ErrRemoteRejected), errors.Is(err, domain.ErrEmptyResultPayload), errors.Is(err, domain.ErrInvalidAudioPayload):
		return http.StatusBadGateway, "remote_failed"
	case errors.Is(err, domain.ErrCancelled):
		return http.StatusConflict, "cancelled"
	}
	return http.StatusInternalServerError, "internal"
}

// decode reads a JSON body. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(domain.ErrValidation, err)
	}
	return nil
}

// maxBodyBytes leaves room for a base64 reference image.
const maxBodyBytes = 12 << 20
