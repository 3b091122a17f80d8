package prompt

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/providers/genai"
)

const (
	staticProviderName = "static"
	geminiProviderName = "gemini"
)

// Enrichment is the result of the fact grounding pass.
type Enrichment struct {
	Text           string
	Sources        []domain.GroundingSource
	Provider       string
	FallbackReason string
}

// Enricher rewrites a prompt for factual and visual accuracy.
type Enricher interface {
	Enrich(ctx context.Context, prompt string) (*Enrichment, error)
}

// StaticEnricher returns the prompt unchanged.
type StaticEnricher struct{}

func NewStaticEnricher() *StaticEnricher {
	return &StaticEnricher{}
}

func (s *StaticEnricher) Enrich(ctx context.Context, prompt string) (*Enrichment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Enrichment{Text: prompt, Provider: staticProviderName}, nil
}

// GeminiOptions configures the grounded enricher.
type GeminiOptions struct {
	Client     *genai.Client
	Fallback   Enricher
	OnFallback func(reason string, err error)
	Logger     *zerolog.Logger
}

// GeminiEnricher runs a search grounded rewrite. Failures other than
// credential and cancellation errors degrade to the fallback.
type GeminiEnricher struct {
	client     *genai.Client
	fallback   Enricher
	onFallback func(reason string, err error)
	logger     zerolog.Logger
}

func NewGeminiEnricher(opts GeminiOptions) (*GeminiEnricher, error) {
	if opts.Client == nil {
		return nil, errors.New("prompt: gemini client is required")
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = NewStaticEnricher()
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &GeminiEnricher{
		client:     opts.Client,
		fallback:   fallback,
		onFallback: opts.OnFallback,
		logger:     logger,
	}, nil
}

func (g *GeminiEnricher) Enrich(ctx context.Context, prompt string) (*Enrichment, error) {
	rw, err := g.client.GroundedRewrite(ctx, prompt)
	if err != nil {
		if errors.Is(err, domain.ErrRemoteAuthExpired) || errors.Is(err, domain.ErrValidation) || ctx.Err() != nil {
			return nil, err
		}
		return g.useFallback(ctx, prompt, "request_failed", err)
	}
	text := cleanRewrite(rw.Text)
	if text == "" {
		text = prompt
	}
	return &Enrichment{Text: text, Sources: rw.Sources, Provider: geminiProviderName}, nil
}

func (g *GeminiEnricher) useFallback(ctx context.Context, prompt, reason string, cause error) (*Enrichment, error) {
	g.logger.Warn().Err(cause).Str("reason", reason).Msg("prompt: grounding failed; using fallback")
	if g.onFallback != nil {
		g.onFallback(reason, cause)
	}
	res, err := g.fallback.Enrich(ctx, prompt)
	if err != nil {
		return nil, err
	}
	res.FallbackReason = reason
	return res, nil
}

var (
	_ Enricher = (*StaticEnricher)(nil)
	_ Enricher = (*GeminiEnricher)(nil)
)
