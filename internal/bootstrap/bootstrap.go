// Package bootstrap assembles a studio from configuration. The HTTP server
// and the command line tools share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/kris790/Kaleidoscope/internal/adapter/repo"
	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/infra"
	"github.com/kris790/Kaleidoscope/internal/infra/credentials"
	"github.com/kris790/Kaleidoscope/internal/ledger"
	"github.com/kris790/Kaleidoscope/internal/orchestrator"
	"github.com/kris790/Kaleidoscope/internal/poller"
	"github.com/kris790/Kaleidoscope/internal/providers/genai"
	"github.com/kris790/Kaleidoscope/internal/providers/prompt"
	"github.com/kris790/Kaleidoscope/internal/providers/speech"
	"github.com/kris790/Kaleidoscope/internal/providers/video"
	"github.com/kris790/Kaleidoscope/internal/storage"
	"github.com/kris790/Kaleidoscope/internal/studio"
	"github.com/kris790/Kaleidoscope/internal/timeline"
)

// Runtime is a wired studio and the resources it holds.
type Runtime struct {
	Studio   *studio.Service
	Ledger   *ledger.Ledger
	Pricing  ledger.Pricing
	Backend  string
	Pool     *pgxpool.Pool
	Accounts *repo.AccountRepositoryPG
	Restored int

	logger zerolog.Logger
}

// Build connects storage, backends and persistence. A missing
// DATABASE_URL runs the studio in memory.
func Build(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*Runtime, error) {
	rt := &Runtime{Backend: cfg.Backend, Pricing: PricingFrom(cfg), logger: logger}

	pool, err := infra.NewDBPool(ctx, cfg)
	switch {
	case errors.Is(err, infra.ErrNoDatabase):
		logger.Warn().Msg("bootstrap: DATABASE_URL not set, projects and balance live in memory")
	case err != nil:
		return nil, err
	default:
		rt.Pool = pool
	}

	var (
		projects domain.ProjectRepository
		sink     ledger.Sink
		creds    *credentials.Store
	)
	if rt.Pool != nil {
		runner := infra.NewSQLRunner(rt.Pool, logger)
		rt.Accounts = repo.NewAccountRepository(runner)
		projects = repo.NewProjectRepository(runner)
		sink = rt.Accounts
		creds = credentials.NewStore(runner)
	}

	account, err := rt.openAccount(ctx, cfg)
	if err != nil {
		rt.closePool()
		return nil, err
	}
	rt.Ledger, err = ledger.New(ledger.Options{
		AccountID: account.ID,
		Tier:      account.Tier,
		Balance:   account.Credits,
		Sink:      sink,
		Logger:    &logger,
	})
	if err != nil {
		rt.closePool()
		return nil, err
	}

	media, err := openMedia(ctx, cfg)
	if err != nil {
		rt.closePool()
		return nil, err
	}

	opts := orchestrator.Options{
		Ledger: rt.Ledger,
		Media:  media,
		Logger: &logger,
		Config: orchestrator.Config{
			Pricing: rt.Pricing,
			Poll: poller.Options{
				Interval:     cfg.PollInterval,
				MaxPolls:     cfg.PollMaxAttempts,
				Deadline:     cfg.PollDeadline,
				PollRetries:  cfg.PollRetries,
				RetryBackoff: cfg.PollRetryBackoff,
				Logger:       &logger,
			},
		},
	}
	if err := wireBackend(ctx, cfg, creds, &opts, logger); err != nil {
		rt.closePool()
		return nil, err
	}
	orch, err := orchestrator.New(opts)
	if err != nil {
		rt.closePool()
		return nil, err
	}

	store := timeline.NewStore(timeline.StoreOptions{Repo: projects, Logger: &logger})
	if rt.Restored, err = store.Load(ctx, account.ID); err != nil {
		rt.closePool()
		return nil, fmt.Errorf("bootstrap: load projects: %w", err)
	}

	rt.Studio, err = studio.New(studio.Options{
		Store:        store,
		Orchestrator: orch,
		Ledger:       rt.Ledger,
		Media:        media,
		Logger:       &logger,
	})
	if err != nil {
		rt.closePool()
		return nil, err
	}
	return rt, nil
}

// openAccount loads the configured account, creating it with the starting
// credits on first run.
func (rt *Runtime) openAccount(ctx context.Context, cfg *infra.Config) (*domain.Account, error) {
	tier, err := domain.ParseTier(cfg.DefaultTier)
	if err != nil {
		return nil, err
	}
	fresh := &domain.Account{ID: cfg.AccountID, Tier: tier, Credits: cfg.StartingCredits}
	if rt.Accounts == nil {
		return fresh, nil
	}
	account, err := rt.Accounts.Get(ctx, cfg.AccountID)
	if errors.Is(err, domain.ErrNotFound) {
		if err := rt.Accounts.Upsert(ctx, fresh); err != nil {
			return nil, fmt.Errorf("bootstrap: create account: %w", err)
		}
		rt.logger.Info().Str("account_id", fresh.ID).Int("credits", fresh.Credits).Msg("bootstrap: account created")
		return fresh, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load account: %w", err)
	}
	if !account.Tier.Valid() {
		// Rows written before the tier rename.
		if account.Tier, err = domain.ParseTier(string(account.Tier)); err != nil {
			return nil, err
		}
	}
	return account, nil
}

func openMedia(ctx context.Context, cfg *infra.Config) (storage.MediaStore, error) {
	if cfg.StorageDriver == infra.StorageS3 {
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
			PublicRead:    cfg.S3PublicRead,
		})
	}
	return storage.NewFileStore(cfg.StoragePath, cfg.StoragePublicBaseURL)
}

func wireBackend(ctx context.Context, cfg *infra.Config, creds *credentials.Store, opts *orchestrator.Options, logger zerolog.Logger) error {
	if cfg.Backend == infra.BackendSynthetic {
		opts.Video = video.NewSynthetic(video.SyntheticOptions{Logger: &logger})
		opts.Speech = speech.NewSynthetic()
		opts.Enricher = prompt.NewStaticEnricher()
		return nil
	}

	key := cfg.GeminiAPIKey
	if creds != nil {
		resolved, err := creds.ResolveGeminiAPIKey(ctx, key)
		if err != nil {
			return fmt.Errorf("bootstrap: resolve gemini key: %w", err)
		}
		key = resolved
	}
	if key == "" {
		logger.Warn().Msg("bootstrap: no gemini api key, generation will fail until one is stored")
	}
	client, err := genai.NewClient(genai.Options{
		APIKey:            key,
		BaseURL:           cfg.GeminiBaseURL,
		VideoModel:        cfg.VideoModel,
		ExtendModel:       cfg.ExtendModel,
		TextModel:         cfg.TextModel,
		SpeechModel:       cfg.SpeechModel,
		RequestsPerMinute: cfg.GeminiRequestsPerM,
		Logger:            &logger,
	})
	if err != nil {
		return err
	}
	enricher, err := prompt.NewGeminiEnricher(prompt.GeminiOptions{
		Client: client,
		Logger: &logger,
		OnFallback: func(reason string, err error) {
			logger.Warn().Err(err).Str("reason", reason).Msg("bootstrap: prompt enrichment fell back")
		},
	})
	if err != nil {
		return err
	}
	opts.Video = video.NewGeminiBackend(client)
	opts.Speech = speech.NewGeminiSynthesizer(client)
	opts.Enricher = enricher
	return nil
}

// PricingFrom builds the charge table from configuration.
func PricingFrom(cfg *infra.Config) ledger.Pricing {
	return ledger.Pricing{
		Initial:   ledger.Charge{Seconds: cfg.ClipSeconds, Flat: cfg.FeeInitial},
		Extension: ledger.Charge{Seconds: cfg.ExtensionSeconds, Flat: cfg.FeeExtension},
		Narration: ledger.Charge{Flat: cfg.FeeNarration},
	}
}

// Close waits for running generations and releases the database.
func (rt *Runtime) Close(ctx context.Context) error {
	var err error
	if rt.Studio != nil {
		err = rt.Studio.Shutdown(ctx)
	}
	rt.closePool()
	return err
}

func (rt *Runtime) closePool() {
	if rt.Pool != nil {
		rt.Pool.Close()
		rt.Pool = nil
	}
}
