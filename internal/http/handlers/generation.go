package handlers

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/studio"
)

type generateRequest struct {
	Grounding bool `json:"grounding"`
	// ReferenceImage is base64 encoded PNG or JPEG.
	ReferenceImage string `json:"reference_image"`
}

type extendRequest struct {
	Prompt string `json:"prompt"`
}

type narrateRequest struct {
	Text  string              `json:"text"`
	Voice *domain.VoiceConfig `json:"voice"`
}

// Generate starts the first clip and returns the GENERATING project.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	opts := studio.GenerateOptions{Grounding: req.Grounding}
	if req.ReferenceImage != "" {
		img, err := base64.StdEncoding.DecodeString(req.ReferenceImage)
		if err != nil {
			a.fail(w, r, fmt.Errorf("%w: reference_image is not base64", domain.ErrValidation))
			return
		}
		opts.ReferenceImage = img
	}
	p, err := a.Studio.StartGenerate(chi.URLParam(r, "id"), opts)
	a.accepted(w, r, p, err)
}

func (a *App) Extend(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	p, err := a.Studio.StartExtend(chi.URLParam(r, "id"), studio.ExtendOptions{Prompt: req.Prompt})
	a.accepted(w, r, p, err)
}

func (a *App) Narrate(w http.ResponseWriter, r *http.Request) {
	var req narrateRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	p, err := a.Studio.StartNarrate(chi.URLParam(r, "id"), studio.NarrateOptions{Text: req.Text, Voice: req.Voice})
	a.accepted(w, r, p, err)
}

func (a *App) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := a.Studio.Cancel(chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *App) accepted(w http.ResponseWriter, r *http.Request, p domain.Project, err error) {
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/projects/"+p.ID)
	a.json(w, http.StatusAccepted, viewOf(p))
}

// Export returns the project as a zip archive.
func (a *App) Export(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var buf bytes.Buffer
	if err := a.Studio.Export(r.Context(), id, &buf); err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "kaleidoscope-"+id+".zip"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
