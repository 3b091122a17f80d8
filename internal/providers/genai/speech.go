package genai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kris790/Kaleidoscope/internal/domain"
)

// SpeechRequest asks for narration in one voice or a two speaker dialogue.
type SpeechRequest struct {
	Text  string
	Voice domain.VoiceConfig
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig             *voiceConfig             `json:"voiceConfig,omitempty"`
	MultiSpeakerVoiceConfig *multiSpeakerVoiceConfig `json:"multiSpeakerVoiceConfig,omitempty"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig struct {
		VoiceName string `json:"voiceName"`
	} `json:"prebuiltVoiceConfig"`
}

type multiSpeakerVoiceConfig struct {
	SpeakerVoiceConfigs []speakerVoiceConfig `json:"speakerVoiceConfigs"`
}

type speakerVoiceConfig struct {
	Speaker     string      `json:"speaker"`
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

func prebuilt(name string) voiceConfig {
	var v voiceConfig
	v.PrebuiltVoiceConfig.VoiceName = name
	return v
}

// SynthesizeSpeech returns base64 encoded 24 kHz mono 16-bit PCM.
func (c *Client) SynthesizeSpeech(ctx context.Context, req SpeechRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", domain.ErrEmptyPrompt
	}
	text := req.Text
	cfg := &speechConfig{}
	if req.Voice.MultiSpeaker() {
		multi := &multiSpeakerVoiceConfig{}
		names := make([]string, 0, len(req.Voice.Speakers))
		for _, s := range req.Voice.Speakers {
			multi.SpeakerVoiceConfigs = append(multi.SpeakerVoiceConfigs, speakerVoiceConfig{
				Speaker:     s.Name,
				VoiceConfig: prebuilt(s.Voice),
			})
			names = append(names, s.Name)
		}
		cfg.MultiSpeakerVoiceConfig = multi
		text = fmt.Sprintf("TTS the following conversation between %s:\n%s", strings.Join(names, " and "), req.Text)
	} else {
		v := prebuilt(firstNonEmpty(req.Voice.Voice, domain.DefaultVoice))
		cfg.VoiceConfig = &v
	}

	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: text}}}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig:       cfg,
		},
	}
	var resp generateResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.speechModel))
	if err := c.invoke(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return "", err
	}
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				c.logger.Debug().
					Str("model", c.speechModel).
					Bool("dialogue", req.Voice.MultiSpeaker()).
					Msg("genai: speech synthesized")
				return p.InlineData.Data, nil
			}
		}
	}
	return "", fmt.Errorf("%w: speech response carried no audio", domain.ErrEmptyResultPayload)
}
