package domain

import "context"

// ProjectRepository persists projects beyond the process lifetime.
type ProjectRepository interface {
	Save(ctx context.Context, project Project) error
	ListByAccount(ctx context.Context, accountID string) ([]Project, error)
	Delete(ctx context.Context, projectID string) error
}

// AccountRepository persists balances and ledger entries.
type AccountRepository interface {
	Get(ctx context.Context, accountID string) (*Account, error)
	Upsert(ctx context.Context, account *Account) error
	ApplyEntry(ctx context.Context, entry LedgerEntry) (int, error)
}
