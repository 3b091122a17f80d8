package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kris790/Kaleidoscope/internal/audio"
	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/providers/speech"
)

// AudioRequest asks for a narration track.
type AudioRequest struct {
	ProjectID string
	Text      string
	Voice     domain.VoiceConfig
	Tier      domain.Tier
	Observer  Observer
}

// AudioResult is a finished, paid for narration track.
type AudioResult struct {
	Track    domain.AudioTrack
	Resource *audio.Resource
	Cost     int
	Balance  int
}

// CheckAudio runs the local checks of SynthesizeAudio without reserving
// credits.
func (o *Orchestrator) CheckAudio(req AudioRequest) error {
	_, _, err := o.checkAudio(req)
	return err
}

func (o *Orchestrator) checkAudio(req AudioRequest) (string, domain.VoiceConfig, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return "", domain.VoiceConfig{}, domain.ErrEmptyPrompt
	}
	voice, err := req.Voice.Normalize()
	if err != nil {
		return "", domain.VoiceConfig{}, err
	}
	if o.speech == nil {
		return "", domain.VoiceConfig{}, errors.New("orchestrator: speech backend is not configured")
	}
	return text, voice, o.affordable(req.Tier, o.cfg.Pricing.Narration)
}

// SynthesizeAudio renders narration in a single call, wraps the PCM payload
// as WAV and stores it.
func (o *Orchestrator) SynthesizeAudio(ctx context.Context, req AudioRequest) (*AudioResult, error) {
	text, voice, err := o.checkAudio(req)
	if err != nil {
		return nil, err
	}
	hold, err := o.reserve(req.Tier, o.cfg.Pricing.Narration, string(domain.OpNarration), req.ProjectID)
	if err != nil {
		return nil, err
	}
	defer hold.Release()

	logger := o.logger.With().Str("project_id", req.ProjectID).Str("op", string(domain.OpNarration)).Logger()
	notify(req.Observer, Update{Operation: domain.OpNarration, Phase: PhaseNarration, Message: PhaseNarration})
	payload, err := o.speech.Synthesize(ctx, speech.Request{Text: text, Voice: voice})
	if err != nil {
		logger.Warn().Err(err).Msg("orchestrator: narration failed")
		return nil, err
	}
	if strings.TrimSpace(payload) == "" {
		return nil, fmt.Errorf("%w: speech backend returned no audio", domain.ErrEmptyResultPayload)
	}
	res, err := audio.PCMToWAV(payload, o.cfg.AudioFormat)
	if err != nil {
		return nil, err
	}

	track := domain.AudioTrack{
		ID:           newID(),
		SourcePrompt: text,
		Voice:        voice,
		CreatedAt:    o.now(),
	}
	if o.media != nil {
		notify(req.Observer, Update{Operation: domain.OpNarration, Phase: PhaseStoring, Message: PhaseStoring})
		obj, err := o.media.Put(ctx, narrationKey(req.ProjectID, track.ID), res.MIME(), res.Data)
		if err != nil {
			return nil, fmt.Errorf("store narration: %w", err)
		}
		track.MediaURI = obj.URI
		track.StorageKey = obj.Key
	} else {
		track.MediaURI = res.DataURI()
	}

	result := &AudioResult{Track: track, Resource: res, Cost: hold.Cost()}
	result.Balance, err = hold.Commit(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("cost", result.Cost).Int("balance", result.Balance).Float64("seconds", res.Duration()).Msg("orchestrator: narration ready")
	return result, nil
}
