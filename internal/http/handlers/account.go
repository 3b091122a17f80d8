package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/middleware"
)

// RequireAccount rejects callers whose token names another account. A
// studio process serves exactly one ledger.
func (a *App) RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := middleware.AccountIDFromContext(r.Context())
		if caller != a.Studio.Account().ID {
			a.error(w, r, http.StatusForbidden, "forbidden", "token is not valid for this account")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type topUpRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// TopUp credits the account. Operators gate this route behind auth.
func (a *App) TopUp(w http.ResponseWriter, r *http.Request) {
	var req topUpRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if req.Amount <= 0 {
		a.fail(w, r, fmt.Errorf("%w: amount must be positive", domain.ErrValidation))
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "top-up"
	}
	if _, err := a.Studio.TopUp(r.Context(), req.Amount, reason); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, a.Studio.Account())
}
