package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseTier(t *testing.T) {
	tests := []struct {
		raw  string
		want Tier
		err  bool
	}{
		{raw: "basic", want: TierBasic},
		{raw: " MID ", want: TierMid},
		{raw: "premium", want: TierPremium},
		{raw: "PLUS", want: TierMid},
		{raw: "pro", want: TierPremium},
		{raw: "gold", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTier(tt.raw)
			if tt.err {
				if !errors.Is(err, ErrUnknownTier) || !errors.Is(err, ErrValidation) {
					t.Fatalf("expected unknown tier validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestTierQuota(t *testing.T) {
	q, err := TierMid.Quota()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.MaxDurationSeconds != 10 || q.CreditsPerSecond != 1 || q.Resolution != "720p" {
		t.Fatalf("unexpected MID quota: %+v", q)
	}
	if _, err := Tier("GOLD").Quota(); !errors.Is(err, ErrUnknownTier) {
		t.Fatalf("expected ErrUnknownTier, got %v", err)
	}
}

func TestContinuationSurvivesJSON(t *testing.T) {
	clip := Clip{ID: "c1", Continuation: NewContinuation(map[string]string{"uri": "files/abc"})}
	raw, err := json.Marshal(clip)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Clip
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	msg, ok := decoded.Continuation.Value().(json.RawMessage)
	if !ok {
		t.Fatalf("expected raw message, got %T", decoded.Continuation.Value())
	}
	if string(msg) != `{"uri":"files/abc"}` {
		t.Fatalf("unexpected payload %s", msg)
	}

	var empty Clip
	if err := json.Unmarshal([]byte(`{"id":"c2","continuation":null}`), &empty); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !empty.Continuation.IsZero() {
		t.Fatal("expected zero continuation")
	}
}

func TestVoiceConfigNormalize(t *testing.T) {
	v, err := VoiceConfig{}.Normalize()
	if err != nil || v.Voice != DefaultVoice {
		t.Fatalf("expected default voice, got %+v err=%v", v, err)
	}
	if _, err := (VoiceConfig{Voice: "Nobody"}).Normalize(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := (VoiceConfig{Speakers: DefaultDialogue()[:1]}).Normalize(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for single speaker dialogue, got %v", err)
	}
	d, err := VoiceConfig{Speakers: DefaultDialogue()}.Normalize()
	if err != nil || len(d.Speakers) != 2 {
		t.Fatalf("expected dialogue to normalize, got %+v err=%v", d, err)
	}
}

func TestProjectCloneIsIndependent(t *testing.T) {
	p := Project{
		Clips:      []Clip{{ID: "a", DurationSeconds: 5}, {ID: "b", DurationSeconds: 7}},
		AudioTrack: &AudioTrack{ID: "t"},
	}
	c := p.Clone()
	c.Clips[0].ID = "changed"
	c.AudioTrack.ID = "changed"
	if p.Clips[0].ID != "a" || p.AudioTrack.ID != "t" {
		t.Fatal("clone shares state with original")
	}
	if p.TotalDuration() != 12 {
		t.Fatalf("expected total 12, got %d", p.TotalDuration())
	}
	last, ok := p.LastClip()
	if !ok || last.ID != "b" {
		t.Fatalf("unexpected last clip %+v", last)
	}
}
