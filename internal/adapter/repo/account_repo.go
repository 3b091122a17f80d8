package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/infra"
	"github.com/kris790/Kaleidoscope/internal/sqlinline"
)

// AccountRepositoryPG implements domain.AccountRepository and doubles as the
// ledger's sink.
type AccountRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewAccountRepository(sql infra.SQLExecutor) *AccountRepositoryPG {
	return &AccountRepositoryPG{sql: sql}
}

// Get fetches an account by id.
func (r *AccountRepositoryPG) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectAccount, accountID)
	var a domain.Account
	var tier string
	if err := row.Scan(&a.ID, &tier, &a.Credits, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	a.Tier = domain.Tier(tier)
	return &a, nil
}

// Upsert creates the account or overwrites its tier and balance.
func (r *AccountRepositoryPG) Upsert(ctx context.Context, a *domain.Account) error {
	if a.Credits < 0 {
		return fmt.Errorf("%w: negative balance", domain.ErrValidation)
	}
	if !a.Tier.Valid() {
		return domain.ErrUnknownTier
	}
	_, err := r.sql.Exec(ctx, sqlinline.QUpsertAccount, a.ID, string(a.Tier), a.Credits)
	return err
}

// ApplyEntry moves the stored balance by the entry amount and records it.
// The balance never goes below zero; such an entry fails with
// ErrInsufficientCredits and nothing is written.
func (r *AccountRepositoryPG) ApplyEntry(ctx context.Context, e domain.LedgerEntry) (int, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	row := r.sql.QueryRow(ctx, sqlinline.QApplyLedgerEntry, e.ID, e.AccountID, e.ProjectID, e.Amount, e.Reason, e.CreatedAt)
	var balance int
	if err := row.Scan(&balance); err != nil {
		if infra.IsNoRows(err) {
			return 0, fmt.Errorf("%w: account %s cannot cover %d", domain.ErrInsufficientCredits, e.AccountID, e.Amount)
		}
		return 0, err
	}
	return balance, nil
}

// Entries lists the most recent ledger entries of an account.
func (r *AccountRepositoryPG) Entries(ctx context.Context, accountID string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListLedgerEntries, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.ProjectID, &e.Amount, &e.Reason, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ domain.AccountRepository = (*AccountRepositoryPG)(nil)
