package studio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/pkg/zip"
)

// Manifest describes an exported project.
type Manifest struct {
	ProjectID        string                   `json:"project_id"`
	Title            string                   `json:"title"`
	Prompt           string                   `json:"prompt"`
	EnhancedPrompt   string                   `json:"enhanced_prompt,omitempty"`
	Style            string                   `json:"style"`
	Resolution       string                   `json:"resolution"`
	TotalDuration    int                      `json:"total_duration_seconds"`
	Clips            []ManifestClip           `json:"clips"`
	Narration        *ManifestFile            `json:"narration,omitempty"`
	GroundingSources []domain.GroundingSource `json:"grounding_sources"`
	ExportedAt       time.Time                `json:"exported_at"`
}

// ManifestClip is one clip entry. File is empty when the clip was never
// copied into the media store.
type ManifestClip struct {
	Index           int    `json:"index"`
	File            string `json:"file,omitempty"`
	URI             string `json:"uri"`
	Prompt          string `json:"prompt"`
	DurationSeconds int    `json:"duration_seconds"`
}

// ManifestFile points at a bundled file.
type ManifestFile struct {
	File   string `json:"file"`
	Script string `json:"script"`
}

// Export writes the project's stored clips, narration and a manifest to w
// as a zip archive.
func (s *Service) Export(ctx context.Context, id string, w io.Writer) error {
	p, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if p.Status == domain.StatusGenerating {
		return domain.ErrGenerationInFlight
	}
	now := time.Now().UTC()
	manifest := Manifest{
		ProjectID:        p.ID,
		Title:            p.Title,
		Prompt:           p.Prompt,
		EnhancedPrompt:   p.EnhancedPrompt,
		Style:            p.Style,
		Resolution:       p.Resolution,
		TotalDuration:    p.TotalDuration(),
		Clips:            make([]ManifestClip, 0, len(p.Clips)),
		GroundingSources: p.GroundingSources,
		ExportedAt:       now,
	}
	var entries []zip.Entry
	for i, c := range p.Clips {
		mc := ManifestClip{Index: i + 1, URI: c.MediaURI, Prompt: c.OriginPrompt, DurationSeconds: c.DurationSeconds}
		if c.StorageKey != "" && s.media != nil {
			data, err := s.media.Get(ctx, c.StorageKey)
			if err != nil {
				return fmt.Errorf("export clip %d: %w", i+1, err)
			}
			mc.File = fmt.Sprintf("clips/%02d.mp4", i+1)
			entries = append(entries, zip.Entry{Filename: mc.File, Data: data, Modified: c.CreatedAt})
		}
		manifest.Clips = append(manifest.Clips, mc)
	}
	if t := p.AudioTrack; t != nil && t.StorageKey != "" && s.media != nil {
		data, err := s.media.Get(ctx, t.StorageKey)
		if err != nil {
			return fmt.Errorf("export narration: %w", err)
		}
		manifest.Narration = &ManifestFile{File: "narration.wav", Script: t.SourcePrompt}
		entries = append(entries, zip.Entry{Filename: "narration.wav", Data: data, Modified: t.CreatedAt})
	}
	body, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("export manifest: %w", err)
	}
	entries = append(entries, zip.Entry{Filename: "manifest.json", Data: body, Modified: now})
	return zip.Write(w, entries)
}
