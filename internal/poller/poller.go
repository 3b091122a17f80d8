// Package poller runs submit-then-poll remote jobs and reports their progress
// as a finite stream of events.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kris790/Kaleidoscope/internal/domain"
)

const (
	DefaultInterval     = 10 * time.Second
	DefaultRetryBackoff = 2 * time.Second
	eventBuffer         = 16
)

var (
	ErrPollLimit = errors.New("poller: poll limit reached")
	ErrDeadline  = errors.New("poller: deadline exceeded")
	ErrNoHandle  = errors.New("poller: backend returned no handle")
)

// Handle is the caller's only view of a remote operation.
type Handle[T any] interface {
	Done() bool
	Result() (T, error)
}

// Job describes one remote unit of work.
type Job[T any] struct {
	Name        string
	Submit      func(ctx context.Context) (Handle[T], error)
	Poll        func(ctx context.Context, h Handle[T]) (Handle[T], error)
	SubmitPhase string
	PollPhase   string
}

// Options bounds a run. Zero MaxPolls and Deadline mean unbounded.
type Options struct {
	Interval     time.Duration
	MaxPolls     int
	Deadline     time.Duration
	PollRetries  int
	RetryBackoff time.Duration
	Retryable    func(error) bool
	Logger       *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = DefaultRetryBackoff
	}
	if o.Retryable == nil {
		o.Retryable = domain.Retryable
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o
}

// Run is a single, non-restartable execution of a Job.
type Run[T any] struct {
	job    string
	events chan Event
	done   chan struct{}
	start  time.Time
	value  T
	err    error
}

// Start submits the job and polls it in a new goroutine. Callers must either
// drain Events or call Wait.
func Start[T any](ctx context.Context, job Job[T], opts Options) *Run[T] {
	r := &Run[T]{
		job:    job.Name,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		start:  time.Now(),
	}
	go r.loop(ctx, job, opts.withDefaults())
	return r
}

// Events yields progress events and is closed after the terminal event.
func (r *Run[T]) Events() <-chan Event {
	return r.events
}

// Wait discards undelivered events and blocks until the run ends.
func (r *Run[T]) Wait() (T, error) {
	for range r.events {
	}
	<-r.done
	return r.value, r.err
}

// Do runs the job to completion, passing each event to onTick.
func Do[T any](ctx context.Context, job Job[T], opts Options, onTick func(Event)) (T, error) {
	run := Start(ctx, job, opts)
	for ev := range run.Events() {
		if onTick != nil {
			onTick(ev)
		}
	}
	return run.Wait()
}

func (r *Run[T]) loop(parent context.Context, job Job[T], opts Options) {
	defer close(r.done)

	ctx := parent
	if opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, opts.Deadline)
		defer cancel()
	}
	logger := opts.Logger.With().Str("job", job.Name).Logger()

	h, err := job.Submit(ctx)
	if err == nil && h == nil {
		err = ErrNoHandle
	}
	if err != nil {
		r.finish(stopErr(parent, ctx, fmt.Errorf("%s: submit: %w", job.Name, err)), 0)
		return
	}
	r.emit(Event{Kind: KindSubmitted, Phase: job.SubmitPhase})
	logger.Debug().Msg("poller: job submitted")

	polls := 0
	for !h.Done() {
		if opts.MaxPolls > 0 && polls >= opts.MaxPolls {
			r.finish(fmt.Errorf("%s: %w after %d polls", job.Name, ErrPollLimit, polls), polls)
			return
		}
		if err := sleep(ctx, opts.Interval); err != nil {
			r.finish(stopErr(parent, ctx, err), polls)
			return
		}
		polls++
		r.emit(Event{Kind: KindTick, Phase: job.PollPhase, Poll: polls})
		logger.Debug().Int("poll", polls).Msg("poller: polling")

		next, err := r.pollWithRetry(ctx, job, h, polls, opts, logger)
		if err != nil {
			r.finish(stopErr(parent, ctx, fmt.Errorf("%s: poll: %w", job.Name, err)), polls)
			return
		}
		h = next
	}

	r.value, r.err = h.Result()
	r.finish(r.err, polls)
}

func (r *Run[T]) pollWithRetry(ctx context.Context, job Job[T], h Handle[T], polls int, opts Options, logger zerolog.Logger) (Handle[T], error) {
	for attempt := 0; ; attempt++ {
		next, err := job.Poll(ctx, h)
		if err == nil && next == nil {
			err = ErrNoHandle
		}
		if err == nil {
			return next, nil
		}
		if ctx.Err() != nil || attempt >= opts.PollRetries || !opts.Retryable(err) {
			return nil, err
		}
		backoff := opts.RetryBackoff << attempt
		r.emit(Event{Kind: KindRetry, Phase: job.PollPhase, Poll: polls, Attempt: attempt + 1, Err: err})
		logger.Warn().Err(err).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("poller: transient poll failure")
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
}

func (r *Run[T]) finish(err error, polls int) {
	if err != nil {
		r.err = err
		r.emit(Event{Kind: KindFailed, Poll: polls, Err: err})
	} else {
		r.emit(Event{Kind: KindSucceeded, Poll: polls})
	}
	close(r.events)
}

func (r *Run[T]) emit(ev Event) {
	ev.Job = r.job
	ev.Elapsed = time.Since(r.start)
	r.events <- ev
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stopErr classifies err when the run stopped because a context ended.
func stopErr(parent, ctx context.Context, err error) error {
	switch {
	case parent.Err() != nil:
		return fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %w", ErrDeadline, err)
	default:
		return err
	}
}
