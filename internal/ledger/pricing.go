package ledger

import "github.com/kris790/Kaleidoscope/internal/domain"

// Charge prices one job class. Seconds is the nominal duration the job
// produces; a positive Flat fee replaces the per second price.
type Charge struct {
	Seconds int
	Flat    int
}

// Cost returns the credits the charge costs at the tier.
func (c Charge) Cost(tier domain.Tier) (int, error) {
	if c.Flat > 0 {
		return c.Flat, nil
	}
	return Cost(tier, c.Seconds)
}

// Pricing holds the charge of each job class.
type Pricing struct {
	Initial   Charge
	Extension Charge
	Narration Charge
}

// DefaultPricing prices initial clips by duration and extensions and
// narration by flat fee.
func DefaultPricing() Pricing {
	return Pricing{
		Initial:   Charge{Seconds: 5},
		Extension: Charge{Seconds: 7, Flat: 150},
		Narration: Charge{Flat: 50},
	}
}
