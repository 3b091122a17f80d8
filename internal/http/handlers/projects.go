package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/timeline"
)

type createProjectRequest struct {
	Title          string             `json:"title"`
	Prompt         string             `json:"prompt"`
	NegativePrompt string             `json:"negative_prompt"`
	AudioPrompt    string             `json:"audio_prompt"`
	Style          string             `json:"style"`
	CameraMovement string             `json:"camera_movement"`
	Voice          domain.VoiceConfig `json:"voice"`
}

type patchProjectRequest struct {
	Title          *string             `json:"title"`
	Prompt         *string             `json:"prompt"`
	NegativePrompt *string             `json:"negative_prompt"`
	AudioPrompt    *string             `json:"audio_prompt"`
	Style          *string             `json:"style"`
	CameraMovement *string             `json:"camera_movement"`
	Voice          *domain.VoiceConfig `json:"voice"`
}

// projectView adds derived fields to a project.
type projectView struct {
	domain.Project
	TotalDuration int `json:"total_duration_seconds"`
}

func viewOf(p domain.Project) projectView {
	return projectView{Project: p, TotalDuration: p.TotalDuration()}
}

func (a *App) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects := a.Studio.Store().List(a.Studio.Account().ID)
	out := make([]projectView, 0, len(projects))
	for _, p := range projects {
		out = append(out, viewOf(p))
	}
	a.json(w, http.StatusOK, map[string]any{"projects": out})
}

func (a *App) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	p, err := a.Studio.CreateProject(r.Context(), timeline.Draft{
		Title:          req.Title,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		AudioPrompt:    req.AudioPrompt,
		Style:          req.Style,
		CameraMovement: req.CameraMovement,
		Voice:          req.Voice,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, viewOf(p))
}

func (a *App) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := a.Studio.Store().Get(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, viewOf(p))
}

func (a *App) PatchProject(w http.ResponseWriter, r *http.Request) {
	var req patchProjectRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	p, err := a.Studio.Store().Update(r.Context(), chi.URLParam(r, "id"), timeline.Patch{
		Title:          req.Title,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		AudioPrompt:    req.AudioPrompt,
		Style:          req.Style,
		CameraMovement: req.CameraMovement,
		Voice:          req.Voice,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, viewOf(p))
}

func (a *App) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := a.Studio.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) ProjectLog(w http.ResponseWriter, r *http.Request) {
	entries, err := a.Studio.Store().Log(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"entries": entries})
}
