package poller

import (
	"fmt"
	"time"
)

// Kind classifies an Event.
type Kind string

const (
	KindSubmitted Kind = "submitted"
	KindTick      Kind = "tick"
	KindRetry     Kind = "retry"
	KindSucceeded Kind = "succeeded"
	KindFailed    Kind = "failed"
)

// Event is one step of a run's progress.
type Event struct {
	Job     string
	Kind    Kind
	Phase   string
	Poll    int
	Attempt int
	Elapsed time.Duration
	Err     error
}

// Terminal reports whether ev is the last event of its run.
func (ev Event) Terminal() bool {
	return ev.Kind == KindSucceeded || ev.Kind == KindFailed
}

// Message renders ev for a progress log.
func (ev Event) Message() string {
	switch ev.Kind {
	case KindTick:
		return fmt.Sprintf("%s (poll %d, %s)", ev.Phase, ev.Poll, ev.Elapsed.Round(time.Second))
	case KindRetry:
		return fmt.Sprintf("%s: retrying poll (attempt %d): %v", ev.Phase, ev.Attempt, ev.Err)
	case KindFailed:
		return fmt.Sprintf("%s failed: %v", ev.Job, ev.Err)
	case KindSucceeded:
		return fmt.Sprintf("%s finished", ev.Job)
	default:
		return ev.Phase
	}
}

// State is a plain Handle implementation for backends whose operations carry
// no extra data.
type State[T any] struct {
	Finished bool
	Value    T
	Err      error
}

func (s State[T]) Done() bool { return s.Finished }

func (s State[T]) Result() (T, error) { return s.Value, s.Err }

// Pending returns an unfinished handle.
func Pending[T any]() Handle[T] { return State[T]{} }

// Completed returns a finished handle.
func Completed[T any](v T, err error) Handle[T] {
	return State[T]{Finished: true, Value: v, Err: err}
}
