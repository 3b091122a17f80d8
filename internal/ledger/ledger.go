package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kris790/Kaleidoscope/internal/domain"
)

// Sink persists committed ledger entries.
type Sink interface {
	ApplyEntry(ctx context.Context, entry domain.LedgerEntry) (int, error)
}

// Options configures a Ledger.
type Options struct {
	AccountID string
	Tier      domain.Tier
	Balance   int
	Sink      Sink
	Logger    *zerolog.Logger
}

// Ledger tracks the credit balance of one account. All arithmetic happens
// under a single mutex; reservations lower the spendable amount without
// touching the balance until the remote work succeeds.
type Ledger struct {
	mu        sync.Mutex
	accountID string
	tier      domain.Tier
	balance   int
	reserved  int
	sink      Sink
	logger    zerolog.Logger
}

// New returns a ledger seeded with the given balance.
func New(opts Options) (*Ledger, error) {
	if opts.Balance < 0 {
		return nil, fmt.Errorf("ledger: negative opening balance %d", opts.Balance)
	}
	tier := opts.Tier
	if tier == "" {
		tier = domain.TierBasic
	}
	if !tier.Valid() {
		return nil, domain.ErrUnknownTier
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Ledger{
		accountID: opts.AccountID,
		tier:      tier,
		balance:   opts.Balance,
		sink:      opts.Sink,
		logger:    logger,
	}, nil
}

// Balance returns the committed balance.
func (l *Ledger) Balance() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Available returns the balance minus outstanding reservations.
func (l *Ledger) Available() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance - l.reserved
}

// Tier returns the account tier.
func (l *Ledger) Tier() domain.Tier {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tier
}

// SetTier changes the account tier.
func (l *Ledger) SetTier(t domain.Tier) error {
	if !t.Valid() {
		return domain.ErrUnknownTier
	}
	l.mu.Lock()
	l.tier = t
	l.mu.Unlock()
	return nil
}

// AccountID returns the owning account.
func (l *Ledger) AccountID() string {
	return l.accountID
}

// Cost converts a duration into credits for the tier.
func Cost(tier domain.Tier, seconds int) (int, error) {
	q, err := tier.Quota()
	if err != nil {
		return 0, err
	}
	if seconds < 0 {
		return 0, fmt.Errorf("%w: negative duration %d", domain.ErrValidation, seconds)
	}
	return seconds * q.CreditsPerSecond, nil
}

// CanAfford reports whether the committed balance covers seconds at the
// tier's per second rate.
func (l *Ledger) CanAfford(tier domain.Tier, seconds int) bool {
	cost, err := Cost(tier, seconds)
	if err != nil {
		return false
	}
	return l.CanAffordFlat(cost)
}

// CanAffordFlat reports whether the committed balance covers cost.
func (l *Ledger) CanAffordFlat(cost int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cost >= 0 && l.balance >= cost
}

// Debit charges seconds at the tier rate.
func (l *Ledger) Debit(tier domain.Tier, seconds int) (int, error) {
	cost, err := Cost(tier, seconds)
	if err != nil {
		return l.Balance(), err
	}
	return l.DebitFlat(cost)
}

// DebitFlat charges a fixed cost. An unaffordable debit changes nothing.
func (l *Ledger) DebitFlat(cost int) (int, error) {
	return l.apply(context.Background(), Entry{Cost: cost, Reason: "debit"}, false)
}

// Credit adds credits to the balance.
func (l *Ledger) Credit(ctx context.Context, amount int, reason string) (int, error) {
	if amount <= 0 {
		return l.Balance(), fmt.Errorf("%w: credit amount must be positive", domain.ErrValidation)
	}
	l.mu.Lock()
	l.balance += amount
	balance := l.balance
	l.mu.Unlock()
	l.record(ctx, Entry{Cost: -amount, Reason: reason}, balance)
	return balance, nil
}

// Entry describes a charge.
type Entry struct {
	Cost      int
	Reason    string
	ProjectID string
}

// Check reports whether cost fits in the available balance without
// reserving it.
func (l *Ledger) Check(cost int) error {
	if cost < 0 {
		return fmt.Errorf("%w: negative cost %d", domain.ErrValidation, cost)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if available := l.balance - l.reserved; available < cost {
		return fmt.Errorf("%w: need %d, available %d", domain.ErrInsufficientCredits, cost, available)
	}
	return nil
}

// Reserve sets aside entry.Cost from the available balance. The caller must
// Commit the hold after the remote work succeeds or Release it otherwise.
func (l *Ledger) Reserve(entry Entry) (*Hold, error) {
	if entry.Cost < 0 {
		return nil, fmt.Errorf("%w: negative cost %d", domain.ErrValidation, entry.Cost)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balance-l.reserved < entry.Cost {
		return nil, fmt.Errorf("%w: need %d, available %d", domain.ErrInsufficientCredits, entry.Cost, l.balance-l.reserved)
	}
	l.reserved += entry.Cost
	return &Hold{ledger: l, entry: entry}, nil
}

func (l *Ledger) apply(ctx context.Context, entry Entry, held bool) (int, error) {
	l.mu.Lock()
	if held {
		l.reserved -= entry.Cost
	}
	if entry.Cost < 0 || l.balance < entry.Cost {
		balance := l.balance
		l.mu.Unlock()
		return balance, fmt.Errorf("%w: need %d, have %d", domain.ErrInsufficientCredits, entry.Cost, balance)
	}
	l.balance -= entry.Cost
	balance := l.balance
	l.mu.Unlock()

	l.logger.Debug().
		Str("account_id", l.accountID).
		Str("reason", entry.Reason).
		Int("cost", entry.Cost).
		Int("balance", balance).
		Msg("ledger: debit committed")
	l.record(ctx, entry, balance)
	return balance, nil
}

func (l *Ledger) record(ctx context.Context, entry Entry, balance int) {
	if l.sink == nil {
		return
	}
	_, err := l.sink.ApplyEntry(ctx, domain.LedgerEntry{
		ID:           uuid.NewString(),
		AccountID:    l.accountID,
		ProjectID:    entry.ProjectID,
		Amount:       entry.Cost,
		Reason:       entry.Reason,
		BalanceAfter: balance,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		l.logger.Warn().Err(err).Str("account_id", l.accountID).Msg("ledger: persist entry failed")
	}
}

// Hold is an outstanding reservation.
type Hold struct {
	ledger *Ledger
	entry  Entry
	once   sync.Once
}

// Cost returns the reserved amount.
func (h *Hold) Cost() int {
	return h.entry.Cost
}

// Commit turns the reservation into a debit and returns the new balance.
func (h *Hold) Commit(ctx context.Context) (int, error) {
	var (
		balance int
		err     error
		ran     bool
	)
	h.once.Do(func() {
		ran = true
		balance, err = h.ledger.apply(ctx, h.entry, true)
	})
	if !ran {
		return h.ledger.Balance(), fmt.Errorf("ledger: hold already settled")
	}
	return balance, err
}

// Release drops the reservation without charging. Safe after Commit.
func (h *Hold) Release() {
	h.once.Do(func() {
		h.ledger.mu.Lock()
		h.ledger.reserved -= h.entry.Cost
		h.ledger.mu.Unlock()
	})
}
