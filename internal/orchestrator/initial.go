package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/providers/prompt"
	"github.com/kris790/Kaleidoscope/internal/providers/video"
)

// InitialRequest starts a project's timeline.
type InitialRequest struct {
	ProjectID  string
	Generation domain.GenerationRequest
	Tier       domain.Tier
	Observer   Observer
}

// InitialResult is a finished, paid for first clip.
type InitialResult struct {
	Clip            domain.Clip
	EffectivePrompt string
	Enriched        bool
	Sources         []domain.GroundingSource
	Resolution      string
	Cost            int
	Balance         int
}

// CheckInitial runs the local checks of InitialClip: a non-empty prompt,
// the tier's duration limit and the available balance. It makes no remote
// call and reserves nothing.
func (o *Orchestrator) CheckInitial(req InitialRequest) error {
	_, err := o.checkInitial(req)
	return err
}

func (o *Orchestrator) checkInitial(req InitialRequest) (domain.TierQuota, error) {
	if strings.TrimSpace(req.Generation.RawPrompt) == "" {
		return domain.TierQuota{}, domain.ErrEmptyPrompt
	}
	quota, err := req.Tier.Quota()
	if err != nil {
		return domain.TierQuota{}, err
	}
	charge := o.cfg.Pricing.Initial
	if charge.Seconds > quota.MaxDurationSeconds {
		return domain.TierQuota{}, fmt.Errorf("%w: %ds clip exceeds the %s limit of %ds", domain.ErrValidation, charge.Seconds, req.Tier, quota.MaxDurationSeconds)
	}
	return quota, o.affordable(req.Tier, charge)
}

// InitialClip generates the first clip of a project. Validation and
// affordability are checked before any remote call; the ledger is debited
// only once the clip is stored.
func (o *Orchestrator) InitialClip(ctx context.Context, req InitialRequest) (*InitialResult, error) {
	gen := req.Generation
	quota, err := o.checkInitial(req)
	if err != nil {
		return nil, err
	}
	charge := o.cfg.Pricing.Initial
	hold, err := o.reserve(req.Tier, charge, string(domain.OpInitial), req.ProjectID)
	if err != nil {
		return nil, err
	}
	defer hold.Release()

	logger := o.logger.With().Str("project_id", req.ProjectID).Str("op", string(domain.OpInitial)).Logger()
	effective := prompt.Compose(gen)
	result := &InitialResult{Resolution: quota.Resolution, Cost: hold.Cost()}

	if gen.GroundingEnabled {
		notify(req.Observer, Update{Operation: domain.OpInitial, Phase: PhaseGrounding, Message: PhaseGrounding})
		enrichment, err := o.enricher.Enrich(ctx, effective)
		if err != nil {
			return nil, fmt.Errorf("grounding: %w", err)
		}
		if text := strings.TrimSpace(enrichment.Text); text != "" {
			result.Enriched = text != effective
			effective = text
		}
		result.Sources = enrichment.Sources
		logger.Debug().Int("sources", len(result.Sources)).Str("provider", enrichment.Provider).Msg("orchestrator: prompt grounded")
	}
	result.EffectivePrompt = effective

	out, err := o.runVideo(ctx, domain.OpInitial, video.Spec{
		Prompt:      effective,
		Resolution:  quota.Resolution,
		AspectRatio: o.cfg.AspectRatio,
		Image:       gen.ReferenceImage,
	}, PhaseInitialSubmit, PhaseInitialRender, req.Observer)
	if err != nil {
		logger.Warn().Err(err).Msg("orchestrator: initial clip failed")
		return nil, err
	}

	clipID := newID()
	uri, key, err := o.storeClip(ctx, req.ProjectID, clipID, out, domain.OpInitial, req.Observer)
	if err != nil {
		return nil, err
	}
	result.Clip = domain.Clip{
		ID:              clipID,
		MediaURI:        uri,
		StorageKey:      key,
		OriginPrompt:    effective,
		DurationSeconds: charge.Seconds,
		Continuation:    out.Continuation,
		CreatedAt:       o.now(),
	}

	result.Balance, err = hold.Commit(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("cost", result.Cost).Int("balance", result.Balance).Msg("orchestrator: initial clip ready")
	return result, nil
}
