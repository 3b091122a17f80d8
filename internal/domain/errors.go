package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrValidation          = errors.New("validation failed")
	ErrEmptyPrompt         = fmt.Errorf("%w: prompt is empty", ErrValidation)
	ErrMissingContinuation = fmt.Errorf("%w: no clip to continue from", ErrValidation)
	ErrUnknownTier         = fmt.Errorf("%w: unknown tier", ErrValidation)
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrProjectLimit        = errors.New("project limit reached for tier")
	ErrGenerationInFlight  = errors.New("generation already in flight")
	ErrRemoteAuthExpired   = errors.New("remote credential missing or expired")
	ErrRemoteTransient     = errors.New("remote backend temporarily unavailable")
	ErrRemoteRejected      = errors.New("remote backend rejected the request")
	ErrEmptyResultPayload  = errors.New("remote job finished without usable media")
	ErrInvalidAudioPayload = errors.New("invalid audio payload")
	ErrCancelled           = errors.New("generation cancelled")
)

// Retryable reports whether a caller may resubmit after err.
func Retryable(err error) bool {
	return errors.Is(err, ErrRemoteTransient)
}
