package video

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/poller"
	"github.com/kris790/Kaleidoscope/internal/providers/genai"
)

// GeminiBackend runs video jobs as Veo long running operations.
type GeminiBackend struct {
	client *genai.Client
}

func NewGeminiBackend(client *genai.Client) *GeminiBackend {
	return &GeminiBackend{client: client}
}

type operationHandle struct {
	op *genai.Operation
}

func (h operationHandle) Done() bool { return h.op.Done }

func (h operationHandle) Result() (Output, error) {
	if h.op.Err != nil {
		return Output{}, h.op.Err
	}
	if h.op.Video == nil || h.op.Video.URI == "" {
		return Output{}, fmt.Errorf("%w: operation %s", domain.ErrEmptyResultPayload, h.op.Name)
	}
	return Output{URI: h.op.Video.URI, Continuation: domain.NewContinuation(*h.op.Video)}, nil
}

func (g *GeminiBackend) Submit(ctx context.Context, spec Spec) (poller.Handle[Output], error) {
	req := genai.VideoRequest{
		Prompt:      spec.Prompt,
		Resolution:  spec.Resolution,
		AspectRatio: spec.AspectRatio,
		Image:       spec.Image,
		ImageMIME:   spec.ImageMIME,
	}
	if !spec.Continuation.IsZero() {
		ref, err := videoRef(spec.Continuation)
		if err != nil {
			return nil, err
		}
		req.Previous = &ref
	}
	op, err := g.client.SubmitVideo(ctx, req)
	if err != nil {
		return nil, err
	}
	return operationHandle{op: op}, nil
}

func (g *GeminiBackend) Poll(ctx context.Context, h poller.Handle[Output]) (poller.Handle[Output], error) {
	current, ok := h.(operationHandle)
	if !ok {
		return nil, fmt.Errorf("%w: handle %T was not issued by the gemini backend", domain.ErrValidation, h)
	}
	op, err := g.client.GetOperation(ctx, current.op.Name)
	if err != nil {
		return nil, err
	}
	return operationHandle{op: op}, nil
}

func (g *GeminiBackend) Fetch(ctx context.Context, out Output) (*Media, error) {
	data, mime, err := g.client.Download(ctx, out.URI)
	if err != nil {
		return nil, err
	}
	if mime == "" {
		mime = "video/mp4"
	}
	return &Media{Data: data, MIME: mime}, nil
}

func videoRef(c domain.Continuation) (genai.VideoRef, error) {
	switch v := c.Value().(type) {
	case genai.VideoRef:
		return v, nil
	case *genai.VideoRef:
		return *v, nil
	case json.RawMessage:
		var ref genai.VideoRef
		if err := json.Unmarshal(v, &ref); err == nil && ref.URI != "" {
			return ref, nil
		}
	}
	return genai.VideoRef{}, fmt.Errorf("%w: continuation was not produced by the gemini backend", domain.ErrMissingContinuation)
}

var _ Backend = (*GeminiBackend)(nil)
