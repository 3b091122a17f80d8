package domain

import (
	"fmt"
	"strings"
)

// StylePreset is a named visual style applied as a prompt suffix.
type StylePreset struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Suffix string `json:"suffix"`
}

// CameraMovement is an optional camera direction appended after the style.
type CameraMovement struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

const (
	DefaultStyle  = "cinematic"
	DefaultCamera = "static"
	DefaultVoice  = "Zephyr"
)

var stylePresets = []StylePreset{
	{ID: "cinematic", Name: "Cinematic", Suffix: ", highly detailed, cinematic lighting, 8k, film grain, masterpiece"},
	{ID: "anime", Name: "Anime", Suffix: ", anime style, vibrant colors, cel shaded, Makoto Shinkai aesthetics, high quality digital art"},
	{ID: "3d-render", Name: "3D Render", Suffix: ", 3d render, pixar style, octanerender, raytracing, soft shadows, vibrant colors, 4k"},
	{ID: "claymation", Name: "Claymation", Suffix: ", claymation, stop motion, plasticine texture, handcrafted look, finger prints visible, aardman style"},
	{ID: "noir", Name: "Film Noir", Suffix: ", film noir, black and white, high contrast, dramatic shadows, smoky atmosphere, 1940s aesthetic"},
	{ID: "cyberpunk", Name: "Cyberpunk", Suffix: ", cyberpunk aesthetic, neon lights, futuristic city, rainy night, synthwave colors, glowing textures"},
	{ID: "sketch", Name: "Sketch", Suffix: ", charcoal drawing, pencil sketch, rough textures, artistic crosshatching, hand-drawn look"},
	{ID: "vaporwave", Name: "Vaporwave", Suffix: ", vaporwave aesthetic, lo-fi, glitch art, pink and teal, retro futuristic, VHS quality"},
}

var cameraMovements = []CameraMovement{
	{ID: "static", Name: "Static", Prompt: "Static camera, locked-off tripod shot"},
	{ID: "pan", Name: "Pan", Prompt: "Slow horizontal camera pan across the scene"},
	{ID: "dolly-in", Name: "Dolly In", Prompt: "Smooth dolly push-in toward the subject"},
	{ID: "orbit", Name: "Orbit", Prompt: "Camera orbits around the subject in a steady arc"},
	{ID: "drone", Name: "Drone", Prompt: "Sweeping aerial drone shot rising over the scene"},
	{ID: "handheld", Name: "Handheld", Prompt: "Handheld camera with subtle natural shake"},
}

var voices = []string{"Kore", "Puck", "Charon", "Zephyr", "Fenrir"}

// StylePresets lists the available styles.
func StylePresets() []StylePreset {
	return append([]StylePreset(nil), stylePresets...)
}

// LookupStyle finds a style by id.
func LookupStyle(id string) (StylePreset, bool) {
	for _, s := range stylePresets {
		if s.ID == id {
			return s, true
		}
	}
	return StylePreset{}, false
}

// CameraMovements lists the available camera directions.
func CameraMovements() []CameraMovement {
	return append([]CameraMovement(nil), cameraMovements...)
}

// LookupCamera finds a camera movement by id.
func LookupCamera(id string) (CameraMovement, bool) {
	for _, c := range cameraMovements {
		if c.ID == id {
			return c, true
		}
	}
	return CameraMovement{}, false
}

// Voices lists the prebuilt narration voices.
func Voices() []string {
	return append([]string(nil), voices...)
}

// KnownVoice reports whether name is a prebuilt voice.
func KnownVoice(name string) bool {
	for _, v := range voices {
		if v == name {
			return true
		}
	}
	return false
}

// DefaultDialogue is the two speaker setup used when none is configured.
func DefaultDialogue() []Speaker {
	return []Speaker{{Name: "Joe", Voice: "Kore"}, {Name: "Jane", Voice: "Puck"}}
}

// Normalize fills in the default voice and checks a dialogue has exactly two
// named speakers with prebuilt voices.
func (v VoiceConfig) Normalize() (VoiceConfig, error) {
	if !v.MultiSpeaker() {
		if v.Voice == "" {
			v.Voice = DefaultVoice
		}
		if !KnownVoice(v.Voice) {
			return VoiceConfig{}, fmt.Errorf("%w: unknown voice %q", ErrValidation, v.Voice)
		}
		return v, nil
	}
	if len(v.Speakers) != 2 {
		return VoiceConfig{}, fmt.Errorf("%w: dialogue needs exactly two speakers", ErrValidation)
	}
	out := VoiceConfig{Speakers: make([]Speaker, 0, 2)}
	for _, s := range v.Speakers {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return VoiceConfig{}, fmt.Errorf("%w: speaker name is empty", ErrValidation)
		}
		if !KnownVoice(s.Voice) {
			return VoiceConfig{}, fmt.Errorf("%w: unknown voice %q", ErrValidation, s.Voice)
		}
		out.Speakers = append(out.Speakers, Speaker{Name: name, Voice: s.Voice})
	}
	return out, nil
}
