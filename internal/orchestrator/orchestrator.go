// Package orchestrator turns prompts into clips and narration by driving the
// remote job classes through the poller and settling their cost.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kris790/Kaleidoscope/internal/audio"
	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/ledger"
	"github.com/kris790/Kaleidoscope/internal/poller"
	"github.com/kris790/Kaleidoscope/internal/providers/prompt"
	"github.com/kris790/Kaleidoscope/internal/providers/speech"
	"github.com/kris790/Kaleidoscope/internal/providers/video"
	"github.com/kris790/Kaleidoscope/internal/storage"
)

// Progress phases reported to observers.
const (
	PhaseGrounding     = "fact-checking visuals"
	PhaseInitialSubmit = "initializing video pipeline"
	PhaseInitialRender = "synthesizing frames"
	PhaseExtendSubmit  = "extending temporal horizon"
	PhaseExtendRender  = "appending frames"
	PhaseNarration     = "synthesizing narration"
	PhaseStoring       = "storing media"
)

const (
	DefaultAspectRatio  = "16:9"
	ExtensionResolution = "720p"
)

// Update is one progress notification.
type Update struct {
	Operation domain.Operation
	Phase     string
	Message   string
	Poll      int
}

// Observer receives progress updates. It must not block.
type Observer func(Update)

// Config holds the tunables of every job class.
type Config struct {
	Pricing             ledger.Pricing
	AspectRatio         string
	ExtensionResolution string
	Poll                poller.Options
	AudioFormat         audio.Format
}

// Options wires an Orchestrator.
type Options struct {
	Video    video.Backend
	Enricher prompt.Enricher
	Speech   speech.Synthesizer
	Ledger   *ledger.Ledger
	Media    storage.MediaStore
	Config   Config
	Logger   *zerolog.Logger
	Now      func() time.Time
}

// Orchestrator holds no project state. Its only effects are remote calls,
// media writes and ledger debits.
type Orchestrator struct {
	video    video.Backend
	enricher prompt.Enricher
	speech   speech.Synthesizer
	ledger   *ledger.Ledger
	media    storage.MediaStore
	cfg      Config
	logger   zerolog.Logger
	now      func() time.Time
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Video == nil {
		return nil, errors.New("orchestrator: video backend is required")
	}
	if opts.Ledger == nil {
		return nil, errors.New("orchestrator: ledger is required")
	}
	cfg := opts.Config
	if cfg.Pricing == (ledger.Pricing{}) {
		cfg.Pricing = ledger.DefaultPricing()
	}
	if cfg.AspectRatio == "" {
		cfg.AspectRatio = DefaultAspectRatio
	}
	if cfg.ExtensionResolution == "" {
		cfg.ExtensionResolution = ExtensionResolution
	}
	if cfg.AudioFormat == (audio.Format{}) {
		cfg.AudioFormat = audio.DefaultFormat
	}
	enricher := opts.Enricher
	if enricher == nil {
		enricher = prompt.NewStaticEnricher()
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	if cfg.Poll.Logger == nil {
		cfg.Poll.Logger = &logger
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Orchestrator{
		video:    opts.Video,
		enricher: enricher,
		speech:   opts.Speech,
		ledger:   opts.Ledger,
		media:    opts.Media,
		cfg:      cfg,
		logger:   logger,
		now:      now,
	}, nil
}

// Pricing returns the configured charges.
func (o *Orchestrator) Pricing() ledger.Pricing {
	return o.cfg.Pricing
}

// affordable checks the charge against the available balance.
func (o *Orchestrator) affordable(tier domain.Tier, charge ledger.Charge) error {
	cost, err := charge.Cost(tier)
	if err != nil {
		return err
	}
	return o.ledger.Check(cost)
}

func (o *Orchestrator) reserve(tier domain.Tier, charge ledger.Charge, reason, projectID string) (*ledger.Hold, error) {
	cost, err := charge.Cost(tier)
	if err != nil {
		return nil, err
	}
	return o.ledger.Reserve(ledger.Entry{Cost: cost, Reason: reason, ProjectID: projectID})
}

func (o *Orchestrator) runVideo(ctx context.Context, op domain.Operation, spec video.Spec, submitPhase, pollPhase string, observe Observer) (video.Output, error) {
	job := poller.Job[video.Output]{
		Name:        string(op),
		SubmitPhase: submitPhase,
		PollPhase:   pollPhase,
		Submit: func(ctx context.Context) (poller.Handle[video.Output], error) {
			return o.video.Submit(ctx, spec)
		},
		Poll: o.video.Poll,
	}
	return poller.Do(ctx, job, o.cfg.Poll, func(ev poller.Event) {
		phase := ev.Phase
		if phase == "" {
			phase = pollPhase
		}
		notify(observe, Update{Operation: op, Phase: phase, Message: ev.Message(), Poll: ev.Poll})
	})
}

// storeClip downloads the finished clip into the media store. Without a
// store the remote reference is kept as is.
func (o *Orchestrator) storeClip(ctx context.Context, projectID, clipID string, out video.Output, op domain.Operation, observe Observer) (uri, key string, err error) {
	if out.URI == "" {
		return "", "", fmt.Errorf("%w: video job returned no media reference", domain.ErrEmptyResultPayload)
	}
	if o.media == nil {
		return out.URI, "", nil
	}
	notify(observe, Update{Operation: op, Phase: PhaseStoring, Message: PhaseStoring})
	media, err := o.video.Fetch(ctx, out)
	if err != nil {
		return "", "", fmt.Errorf("download clip: %w", err)
	}
	if len(media.Data) == 0 {
		return "", "", fmt.Errorf("%w: downloaded clip is empty", domain.ErrEmptyResultPayload)
	}
	obj, err := o.media.Put(ctx, clipKey(projectID, clipID), media.MIME, media.Data)
	if err != nil {
		return "", "", fmt.Errorf("store clip: %w", err)
	}
	return obj.URI, obj.Key, nil
}

func clipKey(projectID, clipID string) string {
	return fmt.Sprintf("projects/%s/clips/%s.mp4", projectID, clipID)
}

func narrationKey(projectID, trackID string) string {
	return fmt.Sprintf("projects/%s/narration-%s.wav", projectID, trackID)
}

func notify(observe Observer, u Update) {
	if observe != nil {
		observe(u)
	}
}

func newID() string {
	return uuid.NewString()
}
