package orchestrator

import (
	"context"
	"strings"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/providers/prompt"
	"github.com/kris790/Kaleidoscope/internal/providers/video"
)

// ExtendResult is a finished, paid for continuation clip.
type ExtendResult struct {
	Clip    domain.Clip
	Cost    int
	Balance int
}

// CheckExtend runs the local checks of ExtendClip without reserving
// credits.
func (o *Orchestrator) CheckExtend(project domain.Project, text string) error {
	_, _, err := o.checkExtend(project, text)
	return err
}

// checkExtend returns the clip to continue and the prompt to use. An empty
// text falls back to the project prompt.
func (o *Orchestrator) checkExtend(project domain.Project, text string) (domain.Clip, string, error) {
	last, ok := project.LastClip()
	if !ok || last.Continuation.IsZero() {
		return domain.Clip{}, "", domain.ErrMissingContinuation
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = strings.TrimSpace(project.Prompt)
	}
	if text == "" {
		return domain.Clip{}, "", domain.ErrEmptyPrompt
	}
	return last, text, o.affordable(project.Tier, o.cfg.Pricing.Extension)
}

// ExtendClip continues the project's most recent clip. Only the last clip's
// continuation is ever used, so chains stay strictly linear.
func (o *Orchestrator) ExtendClip(ctx context.Context, project domain.Project, text string, observe Observer) (*ExtendResult, error) {
	last, text, err := o.checkExtend(project, text)
	if err != nil {
		return nil, err
	}
	charge := o.cfg.Pricing.Extension
	hold, err := o.reserve(project.Tier, charge, string(domain.OpExtend), project.ID)
	if err != nil {
		return nil, err
	}
	defer hold.Release()

	logger := o.logger.With().Str("project_id", project.ID).Str("op", string(domain.OpExtend)).Logger()
	effective := prompt.Extension(text)
	out, err := o.runVideo(ctx, domain.OpExtend, video.Spec{
		Prompt:       effective,
		Resolution:   o.cfg.ExtensionResolution,
		AspectRatio:  o.cfg.AspectRatio,
		Continuation: last.Continuation,
	}, PhaseExtendSubmit, PhaseExtendRender, observe)
	if err != nil {
		logger.Warn().Err(err).Str("parent_clip", last.ID).Msg("orchestrator: extension failed")
		return nil, err
	}

	clipID := newID()
	uri, key, err := o.storeClip(ctx, project.ID, clipID, out, domain.OpExtend, observe)
	if err != nil {
		return nil, err
	}
	result := &ExtendResult{
		Clip: domain.Clip{
			ID:              clipID,
			MediaURI:        uri,
			StorageKey:      key,
			OriginPrompt:    effective,
			DurationSeconds: charge.Seconds,
			Continuation:    out.Continuation,
			CreatedAt:       o.now(),
		},
		Cost: hold.Cost(),
	}
	result.Balance, err = hold.Commit(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("cost", result.Cost).Int("balance", result.Balance).Str("parent_clip", last.ID).Msg("orchestrator: extension ready")
	return result, nil
}
