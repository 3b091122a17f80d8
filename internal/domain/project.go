package domain

import "time"

// ProjectStatus enumerates the project lifecycle states.
type ProjectStatus string

const (
	StatusIdle       ProjectStatus = "IDLE"
	StatusGenerating ProjectStatus = "GENERATING"
	StatusCompleted  ProjectStatus = "COMPLETED"
	StatusFailed     ProjectStatus = "FAILED"
)

// Terminal reports whether s is a resting state a failed job may return to.
func (s ProjectStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusIdle
}

// Operation identifies the kind of generation a project is running.
type Operation string

const (
	OpInitial   Operation = "initial"
	OpExtend    Operation = "extend"
	OpNarration Operation = "narration"
)

// GenerationRequest is the transient input of an initial clip.
type GenerationRequest struct {
	RawPrompt        string
	NegativePrompt   string
	StyleSuffix      string
	CameraFragment   string
	ReferenceImage   []byte
	GroundingEnabled bool
}

// Clip is one segment of a project's timeline.
type Clip struct {
	ID              string       `json:"id"`
	MediaURI        string       `json:"media_uri"`
	StorageKey      string       `json:"storage_key,omitempty"`
	OriginPrompt    string       `json:"origin_prompt"`
	DurationSeconds int          `json:"duration_seconds"`
	Continuation    Continuation `json:"continuation"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Speaker binds a dialogue role to a voice.
type Speaker struct {
	Name  string `json:"name"`
	Voice string `json:"voice"`
}

// VoiceConfig selects a single voice or a two speaker dialogue.
type VoiceConfig struct {
	Voice    string    `json:"voice,omitempty"`
	Speakers []Speaker `json:"speakers,omitempty"`
}

// MultiSpeaker reports whether the config describes a dialogue.
func (v VoiceConfig) MultiSpeaker() bool {
	return len(v.Speakers) > 0
}

// AudioTrack is the narration layer of a project.
type AudioTrack struct {
	ID           string      `json:"id"`
	MediaURI     string      `json:"media_uri"`
	StorageKey   string      `json:"storage_key,omitempty"`
	SourcePrompt string      `json:"source_prompt"`
	Voice        VoiceConfig `json:"voice"`
	CreatedAt    time.Time   `json:"created_at"`
}

// GroundingSource is a reference cited by the enrichment pass.
type GroundingSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Project holds the ordered timeline and its metadata.
type Project struct {
	ID               string            `json:"id"`
	AccountID        string            `json:"account_id"`
	Title            string            `json:"title"`
	Prompt           string            `json:"prompt"`
	NegativePrompt   string            `json:"negative_prompt,omitempty"`
	EnhancedPrompt   string            `json:"enhanced_prompt,omitempty"`
	AudioPrompt      string            `json:"audio_prompt,omitempty"`
	Style            string            `json:"style"`
	CameraMovement   string            `json:"camera_movement,omitempty"`
	Voice            VoiceConfig       `json:"voice"`
	Tier             Tier              `json:"tier"`
	Resolution       string            `json:"resolution,omitempty"`
	Status           ProjectStatus     `json:"status"`
	LastError        string            `json:"last_error,omitempty"`
	Clips            []Clip            `json:"clips"`
	AudioTrack       *AudioTrack       `json:"audio_track,omitempty"`
	GroundingSources []GroundingSource `json:"grounding_sources"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// TotalDuration sums the clip durations in playback order.
func (p Project) TotalDuration() int {
	total := 0
	for _, c := range p.Clips {
		total += c.DurationSeconds
	}
	return total
}

// LastClip returns the most recent clip.
func (p Project) LastClip() (Clip, bool) {
	if len(p.Clips) == 0 {
		return Clip{}, false
	}
	return p.Clips[len(p.Clips)-1], true
}

// Clone returns a deep copy safe to hand to readers.
func (p Project) Clone() Project {
	out := p
	if p.Clips != nil {
		out.Clips = append([]Clip(nil), p.Clips...)
	}
	if p.GroundingSources != nil {
		out.GroundingSources = append([]GroundingSource(nil), p.GroundingSources...)
	}
	out.Voice = p.Voice.clone()
	if p.AudioTrack != nil {
		track := *p.AudioTrack
		track.Voice = p.AudioTrack.Voice.clone()
		out.AudioTrack = &track
	}
	return out
}

func (v VoiceConfig) clone() VoiceConfig {
	if v.Speakers != nil {
		v.Speakers = append([]Speaker(nil), v.Speakers...)
	}
	return v
}
