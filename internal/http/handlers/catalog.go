package handlers

import (
	"net/http"

	"github.com/kris790/Kaleidoscope/internal/domain"
)

type tierDTO struct {
	Tier  domain.Tier      `json:"tier"`
	Quota domain.TierQuota `json:"quota"`
}

type pricingDTO struct {
	InitialSeconds   int `json:"initial_seconds"`
	InitialFlat      int `json:"initial_flat,omitempty"`
	ExtensionSeconds int `json:"extension_seconds"`
	ExtensionFee     int `json:"extension_fee"`
	NarrationFee     int `json:"narration_fee"`
}

// Catalog lists the tiers, styles, camera movements, voices and prices.
func (a *App) Catalog(w http.ResponseWriter, r *http.Request) {
	tiers := make([]tierDTO, 0, 3)
	for _, t := range domain.Tiers() {
		q, _ := t.Quota()
		tiers = append(tiers, tierDTO{Tier: t, Quota: q})
	}
	a.json(w, http.StatusOK, map[string]any{
		"tiers":            tiers,
		"styles":           domain.StylePresets(),
		"camera_movements": domain.CameraMovements(),
		"voices":           domain.Voices(),
		"default_dialogue": domain.DefaultDialogue(),
		"pricing": pricingDTO{
			InitialSeconds:   a.Pricing.Initial.Seconds,
			InitialFlat:      a.Pricing.Initial.Flat,
			ExtensionSeconds: a.Pricing.Extension.Seconds,
			ExtensionFee:     a.Pricing.Extension.Flat,
			NarrationFee:     a.Pricing.Narration.Flat,
		},
	})
}

func (a *App) Account(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Studio.Account())
}
