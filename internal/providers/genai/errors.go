package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kris790/Kaleidoscope/internal/domain"
)

// keyResetMessage is what Gemini answers when a key lost access to a model.
const keyResetMessage = "Requested entity was not found"

// APIError is a non-2xx answer or a failed operation. It unwraps to the
// domain error class so callers can use errors.Is.
type APIError struct {
	Status  int
	Code    int
	Message string
	Kind    error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("gemini status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("gemini operation error %d: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

type errorBody struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	message := strings.TrimSpace(string(data))
	var apiErr errorResponse
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &APIError{
		Status:  resp.StatusCode,
		Message: message,
		Kind:    classifyStatus(resp.StatusCode, message),
	}
}

func classifyStatus(status int, message string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.ErrRemoteAuthExpired
	case strings.Contains(message, keyResetMessage):
		return domain.ErrRemoteAuthExpired
	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500:
		return domain.ErrRemoteTransient
	default:
		return domain.ErrRemoteRejected
	}
}

// gRPC status codes reported inside finished operations.
const (
	codeDeadlineExceeded  = 4
	codePermissionDenied  = 7
	codeResourceExhausted = 8
	codeInternal          = 13
	codeUnavailable       = 14
	codeUnauthenticated   = 16
)

func operationError(body errorBody) error {
	kind := domain.ErrRemoteRejected
	switch body.Code {
	case codePermissionDenied, codeUnauthenticated:
		kind = domain.ErrRemoteAuthExpired
	case codeDeadlineExceeded, codeResourceExhausted, codeInternal, codeUnavailable:
		kind = domain.ErrRemoteTransient
	}
	if strings.Contains(body.Message, keyResetMessage) {
		kind = domain.ErrRemoteAuthExpired
	}
	return &APIError{Code: body.Code, Message: body.Message, Kind: kind}
}

func transportError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrRemoteTransient, op, err)
}
