package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/kris790/Kaleidoscope/internal/domain"
)

func TestSyntheticProducesWholeFrames(t *testing.T) {
	out, err := NewSynthetic().Synthesize(context.Background(), Request{Text: "hello there world"})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	pcm, err := base64.StdEncoding.DecodeString(out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pcm) != 3*samplesPerWord*2 {
		t.Fatalf("unexpected pcm length %d", len(pcm))
	}
	if _, err := NewSynthetic().Synthesize(context.Background(), Request{Text: "  "}); !errors.Is(err, domain.ErrEmptyPrompt) {
		t.Fatalf("expected empty prompt, got %v", err)
	}
}
