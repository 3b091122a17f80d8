package speech

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"math"
	"strings"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/providers/genai"
)

// Request is a narration script and the voice that reads it.
type Request struct {
	Text  string
	Voice domain.VoiceConfig
}

// Synthesizer returns base64 encoded 24 kHz mono 16-bit PCM.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (string, error)
}

type GeminiSynthesizer struct {
	client *genai.Client
}

func NewGeminiSynthesizer(client *genai.Client) *GeminiSynthesizer {
	return &GeminiSynthesizer{client: client}
}

func (g *GeminiSynthesizer) Synthesize(ctx context.Context, req Request) (string, error) {
	return g.client.SynthesizeSpeech(ctx, genai.SpeechRequest{Text: req.Text, Voice: req.Voice})
}

// Synthetic renders a short tone per word so offline runs produce playable
// narration.
type Synthetic struct{}

func NewSynthetic() *Synthetic {
	return &Synthetic{}
}

const (
	sampleRate     = 24000
	samplesPerWord = sampleRate / 4
)

func (s *Synthetic) Synthesize(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	words := len(strings.Fields(req.Text))
	if words == 0 {
		return "", domain.ErrEmptyPrompt
	}
	pitch := 180.0 + float64(len(req.Voice.Voice)+len(req.Voice.Speakers))*20
	pcm := make([]byte, words*samplesPerWord*2)
	for i := 0; i < words*samplesPerWord; i++ {
		envelope := math.Sin(math.Pi * float64(i%samplesPerWord) / samplesPerWord)
		sample := int16(8000 * envelope * math.Sin(2*math.Pi*pitch*float64(i)/sampleRate))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(sample))
	}
	return base64.StdEncoding.EncodeToString(pcm), nil
}

var (
	_ Synthesizer = (*GeminiSynthesizer)(nil)
	_ Synthesizer = (*Synthetic)(nil)
)
