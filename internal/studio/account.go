package studio

import (
	"context"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/timeline"
)

// AccountView is the caller's balance and tier limits.
type AccountView struct {
	ID        string           `json:"id"`
	Tier      domain.Tier      `json:"tier"`
	Balance   int              `json:"balance"`
	Available int              `json:"available"`
	Quota     domain.TierQuota `json:"quota"`
}

// Account reports the ledger state.
func (s *Service) Account() AccountView {
	tier := s.ledger.Tier()
	quota, _ := tier.Quota()
	return AccountView{
		ID:        s.ledger.AccountID(),
		Tier:      tier,
		Balance:   s.ledger.Balance(),
		Available: s.ledger.Available(),
		Quota:     quota,
	}
}

// TopUp credits the account.
func (s *Service) TopUp(ctx context.Context, amount int, reason string) (int, error) {
	return s.ledger.Credit(ctx, amount, reason)
}

// CreateProject opens a project on the ledger's account and tier.
func (s *Service) CreateProject(ctx context.Context, d timeline.Draft) (domain.Project, error) {
	d.AccountID = s.ledger.AccountID()
	d.Tier = s.ledger.Tier()
	return s.store.Create(ctx, d)
}
