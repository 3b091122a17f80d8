package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/kris790/Kaleidoscope/internal/adapter/repo"
	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/infra"
)

func main() {
	var (
		accountFlag string
		tierFlag    string
		setFlag     int
		topUpFlag   int
		reasonFlag  string
		historyFlag int
	)
	flag.StringVar(&accountFlag, "account", "", "account id (defaults to ACCOUNT_ID or local)")
	flag.StringVar(&tierFlag, "tier", "", "assign a tier (BASIC, MID, PREMIUM)")
	flag.IntVar(&setFlag, "set", -1, "overwrite the balance (set <0 to keep current value)")
	flag.IntVar(&topUpFlag, "top-up", 0, "credit this many credits through the ledger")
	flag.StringVar(&reasonFlag, "reason", "manual top-up", "ledger reason for -top-up")
	flag.IntVar(&historyFlag, "history", 10, "print this many recent ledger entries")
	flag.Parse()

	_ = godotenv.Load()

	accountID := strings.TrimSpace(accountFlag)
	if accountID == "" {
		accountID = strings.TrimSpace(os.Getenv("ACCOUNT_ID"))
	}
	if accountID == "" {
		accountID = "local"
	}
	if topUpFlag < 0 {
		exitWithError(errors.New("-top-up must be positive"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "credits").Str("account_id", accountID).Logger()
	accounts := repo.NewAccountRepository(infra.NewSQLRunner(pool, logger))

	changed := false
	account, err := accounts.Get(ctx, accountID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		account = &domain.Account{ID: accountID, Tier: domain.TierBasic}
		changed = true
	case err != nil:
		exitWithError(fmt.Errorf("failed to load account: %w", err))
	}

	if tierFlag != "" {
		tier, err := domain.ParseTier(tierFlag)
		if err != nil {
			exitWithError(err)
		}
		account.Tier = tier
		changed = true
	}
	if setFlag >= 0 {
		account.Credits = setFlag
		changed = true
	}
	if changed {
		if err := accounts.Upsert(ctx, account); err != nil {
			exitWithError(fmt.Errorf("failed to update account: %w", err))
		}
	}
	if topUpFlag > 0 {
		balance, err := accounts.ApplyEntry(ctx, domain.LedgerEntry{
			AccountID: accountID,
			Amount:    -topUpFlag,
			Reason:    reasonFlag,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			exitWithError(fmt.Errorf("failed to top up: %w", err))
		}
		account.Credits = balance
	}

	fmt.Printf("Account %s tier=%s credits=%d\n", account.ID, account.Tier, account.Credits)
	if historyFlag <= 0 {
		return
	}
	entries, err := accounts.Entries(ctx, accountID, historyFlag)
	if err != nil {
		exitWithError(fmt.Errorf("failed to list ledger entries: %w", err))
	}
	for _, e := range entries {
		fmt.Printf("%s %+6d %-24s balance=%d %s\n", e.CreatedAt.Format(time.RFC3339), -e.Amount, e.Reason, e.BalanceAfter, e.ProjectID)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
