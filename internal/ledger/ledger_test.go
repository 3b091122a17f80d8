package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kris790/Kaleidoscope/internal/domain"
)

func newLedger(t *testing.T, balance int) *Ledger {
	t.Helper()
	l, err := New(Options{AccountID: "acct", Tier: domain.TierMid, Balance: balance})
	require.NoError(t, err)
	return l
}

func TestCanAffordMatchesFormula(t *testing.T) {
	for _, balance := range []int{0, 3, 10, 39, 40, 500} {
		l := newLedger(t, balance)
		for _, tier := range domain.Tiers() {
			q, err := tier.Quota()
			require.NoError(t, err)
			for _, seconds := range []int{0, 1, 5, 7, 10, 20} {
				want := balance >= seconds*q.CreditsPerSecond
				assert.Equal(t, want, l.CanAfford(tier, seconds), "balance=%d tier=%s seconds=%d", balance, tier, seconds)
			}
		}
	}
}

func TestDebitRejectsOverdraftWithoutChange(t *testing.T) {
	l := newLedger(t, 15)

	_, err := l.Debit(domain.TierPremium, 10)
	require.ErrorIs(t, err, domain.ErrInsufficientCredits)
	assert.Equal(t, 15, l.Balance())

	balance, err := l.Debit(domain.TierMid, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, balance)

	_, err = l.DebitFlat(150)
	require.ErrorIs(t, err, domain.ErrInsufficientCredits)
	assert.Equal(t, 5, l.Balance())
}

func TestReserveCommitAndRelease(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, 200)

	hold, err := l.Reserve(Entry{Cost: 150, Reason: "extend"})
	require.NoError(t, err)
	assert.Equal(t, 200, l.Balance(), "reservation must not move the balance")
	assert.Equal(t, 50, l.Available())

	_, err = l.Reserve(Entry{Cost: 100})
	require.ErrorIs(t, err, domain.ErrInsufficientCredits)

	hold.Release()
	assert.Equal(t, 200, l.Available())

	hold, err = l.Reserve(Entry{Cost: 150})
	require.NoError(t, err)
	balance, err := hold.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, balance)
	assert.Equal(t, 50, l.Available())

	hold.Release()
	assert.Equal(t, 50, l.Balance(), "release after commit is a no-op")
	_, err = hold.Commit(ctx)
	assert.Error(t, err)
}

func TestConcurrentReservationsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, 1000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	committed := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hold, err := l.Reserve(Entry{Cost: 150})
			if err != nil {
				if !errors.Is(err, domain.ErrInsufficientCredits) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if _, err := hold.Commit(ctx); err != nil {
				t.Errorf("commit: %v", err)
				return
			}
			mu.Lock()
			committed++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 6, committed)
	assert.Equal(t, 100, l.Balance())
}

type recordingSink struct {
	entries []domain.LedgerEntry
	err     error
}

func (s *recordingSink) ApplyEntry(_ context.Context, e domain.LedgerEntry) (int, error) {
	s.entries = append(s.entries, e)
	return e.BalanceAfter, s.err
}

func TestSinkReceivesCommittedEntries(t *testing.T) {
	sink := &recordingSink{err: errors.New("db down")}
	l, err := New(Options{AccountID: "acct", Tier: domain.TierBasic, Balance: 100, Sink: sink})
	require.NoError(t, err)

	hold, err := l.Reserve(Entry{Cost: 50, Reason: "narration", ProjectID: "p1"})
	require.NoError(t, err)
	hold.Release()
	assert.Empty(t, sink.entries, "released holds are not recorded")

	hold, err = l.Reserve(Entry{Cost: 50, Reason: "narration", ProjectID: "p1"})
	require.NoError(t, err)
	balance, err := hold.Commit(context.Background())
	require.NoError(t, err, "sink failures do not undo the debit")
	assert.Equal(t, 50, balance)

	require.Len(t, sink.entries, 1)
	assert.Equal(t, "p1", sink.entries[0].ProjectID)
	assert.Equal(t, 50, sink.entries[0].Amount)
	assert.Equal(t, 50, sink.entries[0].BalanceAfter)

	_, err = l.Credit(context.Background(), 25, "top-up")
	require.NoError(t, err)
	assert.Equal(t, 75, l.Balance())
	assert.Equal(t, -25, sink.entries[1].Amount)
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(Options{Balance: -1})
	assert.Error(t, err)
	_, err = New(Options{Tier: "GOLD"})
	assert.ErrorIs(t, err, domain.ErrUnknownTier)
}

func TestChargeCost(t *testing.T) {
	p := DefaultPricing()

	cost, err := p.Initial.Cost(domain.TierMid)
	require.NoError(t, err)
	assert.Equal(t, 5, cost)

	cost, err = p.Initial.Cost(domain.TierPremium)
	require.NoError(t, err)
	assert.Equal(t, 10, cost)

	cost, err = p.Extension.Cost(domain.TierPremium)
	require.NoError(t, err)
	assert.Equal(t, 150, cost)

	_, err = Charge{Seconds: 5}.Cost("GOLD")
	assert.ErrorIs(t, err, domain.ErrUnknownTier)
}

func TestCheckCountsReservations(t *testing.T) {
	l := newLedger(t, 10)
	require.NoError(t, l.Check(10))

	hold, err := l.Reserve(Entry{Cost: 6, Reason: "initial"})
	require.NoError(t, err)
	require.ErrorIs(t, l.Check(5), domain.ErrInsufficientCredits)
	require.NoError(t, l.Check(4))
	require.ErrorIs(t, l.Check(-1), domain.ErrValidation)

	hold.Release()
	require.NoError(t, l.Check(10))
	assert.Equal(t, 10, l.Balance())
}
