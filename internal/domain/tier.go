package domain

import "strings"

// Tier enumerates account service levels.
type Tier string

const (
	TierBasic   Tier = "BASIC"
	TierMid     Tier = "MID"
	TierPremium Tier = "PREMIUM"
)

// TierQuota holds the limits derived from a tier.
type TierQuota struct {
	MaxDurationSeconds    int    `json:"max_duration_seconds"`
	Resolution            string `json:"resolution"`
	CreditsPerSecond      int    `json:"credits_per_second"`
	MaxConcurrentProjects int    `json:"max_concurrent_projects"`
}

var tierQuotas = map[Tier]TierQuota{
	TierBasic:   {MaxDurationSeconds: 5, Resolution: "720p", CreditsPerSecond: 1, MaxConcurrentProjects: 3},
	TierMid:     {MaxDurationSeconds: 10, Resolution: "720p", CreditsPerSecond: 1, MaxConcurrentProjects: 10},
	TierPremium: {MaxDurationSeconds: 20, Resolution: "1080p", CreditsPerSecond: 2, MaxConcurrentProjects: 50},
}

// Quota returns the quota for the tier.
func (t Tier) Quota() (TierQuota, error) {
	q, ok := tierQuotas[t]
	if !ok {
		return TierQuota{}, ErrUnknownTier
	}
	return q, nil
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	_, ok := tierQuotas[t]
	return ok
}

// ParseTier accepts tier names case-insensitively. The legacy FREE/PLUS/PRO
// names map onto BASIC/MID/PREMIUM.
func ParseTier(raw string) (Tier, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BASIC", "FREE":
		return TierBasic, nil
	case "MID", "PLUS":
		return TierMid, nil
	case "PREMIUM", "PRO":
		return TierPremium, nil
	}
	return "", ErrUnknownTier
}

// Tiers lists every tier in ascending order.
func Tiers() []Tier {
	return []Tier{TierBasic, TierMid, TierPremium}
}
