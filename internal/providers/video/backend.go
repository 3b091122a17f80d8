package video

import (
	"context"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/poller"
)

// Spec is one video job: text, optional reference image and, for
// extensions, the continuation of the clip being extended.
type Spec struct {
	Prompt       string
	Resolution   string
	AspectRatio  string
	Image        []byte
	ImageMIME    string
	Continuation domain.Continuation
}

// Output is the terminal payload of a video job.
type Output struct {
	URI          string
	Continuation domain.Continuation
}

// Media is downloaded clip content.
type Media struct {
	Data []byte
	MIME string
}

// Backend runs video jobs on a remote service.
type Backend interface {
	Submit(ctx context.Context, spec Spec) (poller.Handle[Output], error)
	Poll(ctx context.Context, h poller.Handle[Output]) (poller.Handle[Output], error)
	Fetch(ctx context.Context, out Output) (*Media, error)
}
