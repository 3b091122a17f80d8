package domain

import "time"

// Account is the credit-holding owner of projects.
type Account struct {
	ID        string
	Tier      Tier
	Credits   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LedgerEntry records one committed debit or credit.
type LedgerEntry struct {
	ID           string
	AccountID    string
	ProjectID    string
	Amount       int
	Reason       string
	BalanceAfter int
	CreatedAt    time.Time
}
