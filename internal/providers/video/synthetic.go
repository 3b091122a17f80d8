package video

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/poller"
)

// Synthetic is an offline backend that finishes each job after a fixed
// number of polls and returns deterministic placeholder media.
type Synthetic struct {
	polls   int
	latency time.Duration
	logger  zerolog.Logger
}

// SyntheticOptions tunes the offline backend.
type SyntheticOptions struct {
	Polls   int
	Latency time.Duration
	Logger  *zerolog.Logger
}

func NewSynthetic(opts SyntheticOptions) *Synthetic {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	polls := opts.Polls
	if polls <= 0 {
		polls = 2
	}
	return &Synthetic{polls: polls, latency: opts.Latency, logger: logger}
}

type syntheticRef struct {
	Seed   string `json:"seed"`
	Parent string `json:"parent,omitempty"`
}

type syntheticHandle struct {
	ref       syntheticRef
	remaining int
}

func (h syntheticHandle) Done() bool { return h.remaining <= 0 }

func (h syntheticHandle) Result() (Output, error) {
	return Output{
		URI:          fmt.Sprintf("synthetic://video/%s.mp4", h.ref.Seed),
		Continuation: domain.NewContinuation(h.ref),
	}, nil
}

func (s *Synthetic) Submit(ctx context.Context, spec Spec) (poller.Handle[Output], error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	ref := syntheticRef{}
	if !spec.Continuation.IsZero() {
		parent, err := syntheticParent(spec.Continuation)
		if err != nil {
			return nil, err
		}
		ref.Parent = parent.Seed
	}
	ref.Seed = deterministicSeed(spec.Prompt, spec.Resolution, spec.AspectRatio, len(spec.Image), ref.Parent)
	s.logger.Debug().Str("seed", ref.Seed).Str("parent", ref.Parent).Msg("synthetic: video job submitted")
	return syntheticHandle{ref: ref, remaining: s.polls}, nil
}

func (s *Synthetic) Poll(ctx context.Context, h poller.Handle[Output]) (poller.Handle[Output], error) {
	current, ok := h.(syntheticHandle)
	if !ok {
		return nil, fmt.Errorf("%w: handle %T was not issued by the synthetic backend", domain.ErrValidation, h)
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	current.remaining--
	return current, nil
}

func (s *Synthetic) Fetch(ctx context.Context, out Output) (*Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := strings.TrimSuffix(strings.TrimPrefix(out.URI, "synthetic://video/"), ".mp4")
	lines := []string{
		"Synthetic video placeholder",
		"Seed: " + seed,
		"This placeholder stands in for rendered frames when the studio runs offline.",
	}
	return &Media{Data: []byte(strings.Join(lines, "\n")), MIME: "video/mp4"}, nil
}

func (s *Synthetic) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(s.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func syntheticParent(c domain.Continuation) (syntheticRef, error) {
	switch v := c.Value().(type) {
	case syntheticRef:
		return v, nil
	case json.RawMessage:
		var ref syntheticRef
		if err := json.Unmarshal(v, &ref); err == nil && ref.Seed != "" {
			return ref, nil
		}
	}
	return syntheticRef{}, fmt.Errorf("%w: continuation was not produced by the synthetic backend", domain.ErrMissingContinuation)
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(fmt.Sprintf("%v", part)))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

var _ Backend = (*Synthetic)(nil)
