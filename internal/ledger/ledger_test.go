// internal/ledger/ledger_test.go
package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func bal(t *testing.T, m *Memory, user uuid.UUID) Balance {
	t.Helper()
	b, err := m.Balance(context.Background(), user)
	require.NoError(t, err)
	return b
}

func TestMemoryLockReleaseCredit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	user := uuid.New()
	require.NoError(t, m.Deposit(ctx, user, d("5")))

	require.NoError(t, m.Lock(ctx, user, d("2")))
	b := bal(t, m, user)
	assert.True(t, b.Available.Equal(d("3")), "available = %s", b.Available)
	assert.True(t, b.Locked.Equal(d("2")), "locked = %s", b.Locked)

	require.NoError(t, m.Release(ctx, user, d("2")))
	require.NoError(t, m.Credit(ctx, user, d("3.8")))
	b = bal(t, m, user)
	assert.True(t, b.Available.Equal(d("6.8")), "available = %s", b.Available)
	assert.True(t, b.Locked.IsZero(), "locked = %s", b.Locked)
}

func TestMemoryLockInsufficientFunds(t *testing.T) {
	m := NewMemory()
	user := uuid.New()
	require.NoError(t, m.Deposit(context.Background(), user, d("0.5")))

	err := m.Lock(context.Background(), user, d("1"))
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	b := bal(t, m, user)
	assert.True(t, b.Available.Equal(d("0.5")))
	assert.True(t, b.Locked.IsZero())
}

func TestMemoryReleaseNeverNegative(t *testing.T) {
	m := NewMemory()
	user := uuid.New()
	require.NoError(t, m.Release(context.Background(), user, d("1")))
	assert.True(t, bal(t, m, user).Locked.IsZero())
}

// sequentialLedger hides Memory's Settler so Settle takes the two-step path.
type sequentialLedger struct {
	Ledger
	calls []string
}

func (s *sequentialLedger) Release(ctx context.Context, id uuid.UUID, a decimal.Decimal) error {
	s.calls = append(s.calls, "release")
	return s.Ledger.Release(ctx, id, a)
}

func (s *sequentialLedger) Credit(ctx context.Context, id uuid.UUID, a decimal.Decimal) error {
	s.calls = append(s.calls, "credit")
	return s.Ledger.Credit(ctx, id, a)
}

func TestSettleFallsBackToReleaseThenCredit(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	user := uuid.New()
	require.NoError(t, mem.Deposit(ctx, user, d("1")))
	require.NoError(t, mem.Lock(ctx, user, d("1")))

	seq := &sequentialLedger{Ledger: mem}
	require.NoError(t, Settle(ctx, seq, user, d("1"), d("1.8")))
	assert.Equal(t, []string{"release", "credit"}, seq.calls)
	assert.True(t, bal(t, mem, user).Available.Equal(d("1.8")))

	// A loss only releases.
	seq.calls = nil
	require.NoError(t, mem.Deposit(ctx, user, d("1")))
	require.NoError(t, mem.Lock(ctx, user, d("1")))
	require.NoError(t, Settle(ctx, seq, user, d("1"), decimal.Zero))
	assert.Equal(t, []string{"release"}, seq.calls)
	assert.True(t, bal(t, mem, user).Locked.IsZero())
}

func TestSettleUsesAtomicSettler(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	user := uuid.New()
	require.NoError(t, mem.Deposit(ctx, user, d("2")))
	require.NoError(t, mem.Lock(ctx, user, d("2")))

	require.NoError(t, Settle(ctx, mem, user, d("2"), d("3.6")))
	b := bal(t, mem, user)
	assert.True(t, b.Available.Equal(d("3.6")))
	assert.True(t, b.Locked.IsZero())
}
