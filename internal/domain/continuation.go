package domain

import (
	"bytes"
	"encoding/json"
)

// Continuation is the opaque capability a backend returns with a finished
// clip. Only the backend that produced it interprets the boxed value; every
// other layer stores and forwards it untouched.
type Continuation struct {
	value any
}

// NewContinuation boxes a backend specific value.
func NewContinuation(v any) Continuation {
	return Continuation{value: v}
}

// IsZero reports whether no handle is present.
func (c Continuation) IsZero() bool {
	return c.value == nil
}

// Value returns the boxed value. After a JSON round trip it is a
// json.RawMessage.
func (c Continuation) Value() any {
	return c.value
}

func (c Continuation) MarshalJSON() ([]byte, error) {
	if c.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(c.value)
}

func (c *Continuation) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		c.value = nil
		return nil
	}
	c.value = json.RawMessage(append([]byte(nil), trimmed...))
	return nil
}
