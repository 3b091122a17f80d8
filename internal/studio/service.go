// Package studio runs generation operations against projects: it claims a
// project in the timeline store, drives the orchestrator and settles the
// outcome back into the store.
package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/ledger"
	"github.com/kris790/Kaleidoscope/internal/orchestrator"
	"github.com/kris790/Kaleidoscope/internal/storage"
	"github.com/kris790/Kaleidoscope/internal/timeline"
)

// DefaultBatchLimit bounds concurrent generations in GenerateMany.
const DefaultBatchLimit = 4

// Options wires a Service.
type Options struct {
	Store        *timeline.Store
	Orchestrator *orchestrator.Orchestrator
	Ledger       *ledger.Ledger
	Media        storage.MediaStore
	Logger       *zerolog.Logger
	BatchLimit   int
}

// Service is safe for concurrent use.
type Service struct {
	store  *timeline.Store
	orch   *orchestrator.Orchestrator
	ledger *ledger.Ledger
	media  storage.MediaStore
	logger zerolog.Logger
	batch  int

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]*running
}

func New(opts Options) (*Service, error) {
	if opts.Store == nil || opts.Orchestrator == nil || opts.Ledger == nil {
		return nil, errors.New("studio: store, orchestrator and ledger are required")
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	batch := opts.BatchLimit
	if batch <= 0 {
		batch = DefaultBatchLimit
	}
	base, stop := context.WithCancel(context.Background())
	return &Service{
		store:   opts.Store,
		orch:    opts.Orchestrator,
		ledger:  opts.Ledger,
		media:   opts.Media,
		logger:  logger,
		batch:   batch,
		base:    base,
		stop:    stop,
		cancels: make(map[string]*running),
	}, nil
}

// Store exposes the project store for read paths.
func (s *Service) Store() *timeline.Store { return s.store }

// GenerateOptions tunes an initial clip.
type GenerateOptions struct {
	Grounding      bool
	ReferenceImage []byte
}

// ExtendOptions tunes an extension. An empty Prompt reuses the project's.
type ExtendOptions struct {
	Prompt string
}

// NarrateOptions tunes narration. Empty fields fall back to the project's
// narration script and voice.
type NarrateOptions struct {
	Text  string
	Voice *domain.VoiceConfig
}

// job is one generation operation: a local preflight on the claimed
// snapshot and the remote work that follows it.
type job struct {
	op    domain.Operation
	check func(t *timeline.Ticket) error
	run   func(ctx context.Context, t *timeline.Ticket) (domain.Project, error)
}

// Generate renders a project's first clip and waits for it.
func (s *Service) Generate(ctx context.Context, id string, opts GenerateOptions) (domain.Project, error) {
	return s.runNow(ctx, id, s.initialJob(opts))
}

// StartGenerate claims the project and renders its first clip in the
// background. The returned snapshot is GENERATING.
func (s *Service) StartGenerate(id string, opts GenerateOptions) (domain.Project, error) {
	return s.start(id, s.initialJob(opts))
}

// Extend appends a continuation clip and waits for it.
func (s *Service) Extend(ctx context.Context, id string, opts ExtendOptions) (domain.Project, error) {
	return s.runNow(ctx, id, s.extendJob(opts))
}

// StartExtend is the background form of Extend.
func (s *Service) StartExtend(id string, opts ExtendOptions) (domain.Project, error) {
	return s.start(id, s.extendJob(opts))
}

// Narrate synthesizes the project's narration and waits for it.
func (s *Service) Narrate(ctx context.Context, id string, opts NarrateOptions) (domain.Project, error) {
	return s.runNow(ctx, id, s.narrationJob(opts))
}

// StartNarrate is the background form of Narrate.
func (s *Service) StartNarrate(id string, opts NarrateOptions) (domain.Project, error) {
	return s.start(id, s.narrationJob(opts))
}

func (s *Service) initialJob(opts GenerateOptions) job {
	return job{
		op: domain.OpInitial,
		check: func(t *timeline.Ticket) error {
			gen, err := generationRequest(t.Snapshot, opts)
			if err != nil {
				return err
			}
			return s.orch.CheckInitial(orchestrator.InitialRequest{ProjectID: t.ProjectID, Generation: gen, Tier: t.Snapshot.Tier})
		},
		run: func(ctx context.Context, t *timeline.Ticket) (domain.Project, error) {
			return s.runInitial(ctx, t, opts)
		},
	}
}

func (s *Service) extendJob(opts ExtendOptions) job {
	return job{
		op: domain.OpExtend,
		check: func(t *timeline.Ticket) error {
			return s.orch.CheckExtend(t.Snapshot, opts.Prompt)
		},
		run: func(ctx context.Context, t *timeline.Ticket) (domain.Project, error) {
			return s.runExtend(ctx, t, opts)
		},
	}
}

func (s *Service) narrationJob(opts NarrateOptions) job {
	return job{
		op: domain.OpNarration,
		check: func(t *timeline.Ticket) error {
			return s.orch.CheckAudio(narrationRequest(t.Snapshot, opts))
		},
		run: func(ctx context.Context, t *timeline.Ticket) (domain.Project, error) {
			return s.runNarration(ctx, t, opts)
		},
	}
}

// claim begins the operation and runs its preflight. A rejected preflight
// rolls the project back untouched; the restored project is returned with
// the error.
func (s *Service) claim(ctx context.Context, id string, j job) (*timeline.Ticket, domain.Project, error) {
	t, err := s.store.Begin(ctx, id, j.op)
	if err != nil {
		return nil, domain.Project{}, err
	}
	if err := j.check(t); err != nil {
		return nil, s.release(ctx, t), err
	}
	return t, domain.Project{}, nil
}

func (s *Service) release(ctx context.Context, t *timeline.Ticket) domain.Project {
	p, err := s.store.Rollback(context.WithoutCancel(ctx), t)
	if err != nil {
		s.logger.Error().Err(err).Str("project_id", t.ProjectID).Msg("studio: rollback failed")
		return t.Snapshot
	}
	return p
}

func (s *Service) runNow(ctx context.Context, id string, j job) (domain.Project, error) {
	t, p, err := s.claim(ctx, id, j)
	if err != nil {
		return p, err
	}
	ctx, done := s.track(ctx, id)
	defer done()
	return j.run(ctx, t)
}

func (s *Service) start(id string, j job) (domain.Project, error) {
	s.mu.Lock()
	if s.base.Err() != nil {
		s.mu.Unlock()
		return domain.Project{}, fmt.Errorf("studio: shutting down: %w", domain.ErrCancelled)
	}
	s.wg.Add(1)
	s.mu.Unlock()

	t, _, err := s.claim(s.base, id, j)
	if err != nil {
		s.wg.Done()
		return domain.Project{}, err
	}
	snapshot, err := s.store.Get(id)
	if err != nil {
		s.release(s.base, t)
		s.wg.Done()
		return domain.Project{}, err
	}
	ctx, done := s.track(s.base, id)
	go func() {
		defer s.wg.Done()
		defer done()
		if _, err := j.run(ctx, t); err != nil {
			s.logger.Warn().Err(err).Str("project_id", id).Str("op", string(j.op)).Msg("studio: background generation failed")
		}
	}()
	return snapshot, nil
}

func (s *Service) runInitial(ctx context.Context, t *timeline.Ticket, opts GenerateOptions) (domain.Project, error) {
	p := t.Snapshot
	gen, err := generationRequest(p, opts)
	if err != nil {
		return s.fail(ctx, t, err)
	}
	res, err := s.orch.InitialClip(ctx, orchestrator.InitialRequest{
		ProjectID:  p.ID,
		Generation: gen,
		Tier:       p.Tier,
		Observer:   s.observer(p.ID),
	})
	if err != nil {
		return s.fail(ctx, t, err)
	}
	out := timeline.InitialOutcome{Clip: res.Clip, Sources: res.Sources, Resolution: res.Resolution}
	if res.Enriched {
		out.EnhancedPrompt = res.EffectivePrompt
	}
	s.store.AppendLog(p.ID, fmt.Sprintf("clip ready, %d credits charged", res.Cost))
	return s.store.CommitInitial(context.WithoutCancel(ctx), t, out)
}

func (s *Service) runExtend(ctx context.Context, t *timeline.Ticket, opts ExtendOptions) (domain.Project, error) {
	res, err := s.orch.ExtendClip(ctx, t.Snapshot, opts.Prompt, s.observer(t.ProjectID))
	if err != nil {
		return s.fail(ctx, t, err)
	}
	s.store.AppendLog(t.ProjectID, fmt.Sprintf("extension ready, %d credits charged", res.Cost))
	return s.store.CommitExtension(context.WithoutCancel(ctx), t, res.Clip)
}

func (s *Service) runNarration(ctx context.Context, t *timeline.Ticket, opts NarrateOptions) (domain.Project, error) {
	p := t.Snapshot
	req := narrationRequest(p, opts)
	req.Observer = s.observer(p.ID)
	res, err := s.orch.SynthesizeAudio(ctx, req)
	if err != nil {
		return s.fail(ctx, t, err)
	}
	s.store.AppendLog(p.ID, fmt.Sprintf("narration ready, %d credits charged", res.Cost))
	project, err := s.store.CommitAudio(context.WithoutCancel(ctx), t, res.Track)
	if err != nil {
		return project, err
	}
	if old := p.AudioTrack; old != nil && old.StorageKey != "" && s.media != nil {
		s.removeMedia(context.WithoutCancel(ctx), p.ID, []string{old.StorageKey})
	}
	return project, nil
}

// narrationRequest falls back to the project's script and voice.
func narrationRequest(p domain.Project, opts NarrateOptions) orchestrator.AudioRequest {
	text := strings.TrimSpace(opts.Text)
	if text == "" {
		text = p.AudioPrompt
	}
	voice := p.Voice
	if opts.Voice != nil {
		voice = *opts.Voice
	}
	return orchestrator.AudioRequest{ProjectID: p.ID, Text: text, Voice: voice, Tier: p.Tier}
}

// fail settles a ticket after an error and returns the error to the caller.
func (s *Service) fail(ctx context.Context, t *timeline.Ticket, cause error) (domain.Project, error) {
	if ctx.Err() != nil && !errors.Is(cause, domain.ErrCancelled) {
		cause = fmt.Errorf("%w: %w", domain.ErrCancelled, cause)
	}
	s.store.AppendLog(t.ProjectID, "failed: "+cause.Error())
	p, err := s.store.Abort(context.WithoutCancel(ctx), t, cause)
	if err != nil {
		s.logger.Error().Err(err).Str("project_id", t.ProjectID).Msg("studio: abort failed")
	}
	s.logger.Warn().Err(cause).Str("project_id", t.ProjectID).Str("op", string(t.Op)).Str("status", string(p.Status)).Msg("studio: generation failed")
	return p, cause
}

// running is the cancel handle of one tracked operation. A finished
// operation only removes its own entry.
type running struct {
	cancel context.CancelFunc
}

// track registers a cancel func for the project's running operation.
func (s *Service) track(ctx context.Context, id string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	r := &running{cancel: cancel}
	s.mu.Lock()
	s.cancels[id] = r
	s.mu.Unlock()
	return ctx, func() {
		s.mu.Lock()
		if s.cancels[id] == r {
			delete(s.cancels, id)
		}
		s.mu.Unlock()
		cancel()
	}
}

// Cancel stops the project's running operation. The operation settles with
// ErrCancelled and nothing is charged.
func (s *Service) Cancel(id string) error {
	s.mu.Lock()
	r, ok := s.cancels[id]
	s.mu.Unlock()
	if !ok {
		if _, err := s.store.Get(id); err != nil {
			return err
		}
		return fmt.Errorf("%w: no generation is running", domain.ErrValidation)
	}
	r.cancel()
	s.logger.Info().Str("project_id", id).Msg("studio: generation cancelled")
	return nil
}

func (s *Service) observer(id string) orchestrator.Observer {
	return func(u orchestrator.Update) {
		s.store.AppendLog(id, u.Message)
		s.logger.Debug().Str("project_id", id).Str("phase", u.Phase).Int("poll", u.Poll).Msg("studio: " + u.Message)
	}
}

// Delete removes a project and its stored media.
func (s *Service) Delete(ctx context.Context, id string) error {
	keys, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.removeMedia(ctx, id, keys)
	return nil
}

func (s *Service) removeMedia(ctx context.Context, id string, keys []string) {
	if s.media == nil {
		return
	}
	for _, key := range keys {
		if err := s.media.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn().Err(err).Str("project_id", id).Str("key", key).Msg("studio: media delete failed")
		}
	}
}

// Shutdown cancels background work and waits for it to settle.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stop()
	s.mu.Unlock()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func generationRequest(p domain.Project, opts GenerateOptions) (domain.GenerationRequest, error) {
	gen := domain.GenerationRequest{
		RawPrompt:        p.Prompt,
		NegativePrompt:   p.NegativePrompt,
		ReferenceImage:   opts.ReferenceImage,
		GroundingEnabled: opts.Grounding,
	}
	if p.Style != "" {
		style, ok := domain.LookupStyle(p.Style)
		if !ok {
			return gen, fmt.Errorf("%w: unknown style %q", domain.ErrValidation, p.Style)
		}
		gen.StyleSuffix = style.Suffix
	}
	if p.CameraMovement != "" {
		camera, ok := domain.LookupCamera(p.CameraMovement)
		if !ok {
			return gen, fmt.Errorf("%w: unknown camera movement %q", domain.ErrValidation, p.CameraMovement)
		}
		gen.CameraFragment = camera.Prompt
	}
	return gen, nil
}
