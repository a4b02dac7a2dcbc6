// internal/ledger/ledger.go
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInsufficientFunds is returned by Lock when the available balance is too low.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Ledger is the balance store a match settles against.
type Ledger interface {
	// Lock moves amount from available to locked.
	Lock(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
	// Release removes amount from locked without crediting it anywhere.
	Release(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
	// Credit adds amount to available.
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
}

// Settler is implemented by ledgers that can release and credit in one
// atomic step.
type Settler interface {
	Settle(ctx context.Context, userID uuid.UUID, release, credit decimal.Decimal) error
}

// Settle releases and credits through l, atomically when l supports it.
func Settle(ctx context.Context, l Ledger, userID uuid.UUID, release, credit decimal.Decimal) error {
	if s, ok := l.(Settler); ok {
		return s.Settle(ctx, userID, release, credit)
	}
	if err := l.Release(ctx, userID, release); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	if credit.IsPositive() {
		if err := l.Credit(ctx, userID, credit); err != nil {
			return fmt.Errorf("credit: %w", err)
		}
	}
	return nil
}

// Account is the read/fund side of a ledger, used by the HTTP surface.
type Account interface {
	Balance(ctx context.Context, userID uuid.UUID) (Balance, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
}

// Balance is one user's funds.
type Balance struct {
	Available decimal.Decimal `json:"available"`
	Locked    decimal.Decimal `json:"locked"`
}

// Memory is an in-process Ledger.
type Memory struct {
	mu       sync.Mutex
	balances map[uuid.UUID]Balance
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{balances: make(map[uuid.UUID]Balance)}
}

// Deposit adds funds to a user's available balance.
func (m *Memory) Deposit(_ context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("deposit amount %s must be positive", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credit(userID, amount)
	return nil
}

// Balance returns the user's current balance.
func (m *Memory) Balance(_ context.Context, userID uuid.UUID) (Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID], nil
}

func (m *Memory) Lock(_ context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("negative lock amount %s", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.balances[userID]
	if b.Available.LessThan(amount) {
		return ErrInsufficientFunds
	}
	b.Available = b.Available.Sub(amount)
	b.Locked = b.Locked.Add(amount)
	m.balances[userID] = b
	return nil
}

func (m *Memory) Release(_ context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release(userID, amount)
	return nil
}

func (m *Memory) Credit(_ context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credit(userID, amount)
	return nil
}

// Settle releases and credits under a single lock.
func (m *Memory) Settle(_ context.Context, userID uuid.UUID, release, credit decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release(userID, release)
	m.credit(userID, credit)
	return nil
}

func (m *Memory) release(userID uuid.UUID, amount decimal.Decimal) {
	b := m.balances[userID]
	// Never drive locked below zero.
	b.Locked = decimal.Max(decimal.Zero, b.Locked.Sub(amount))
	m.balances[userID] = b
}

func (m *Memory) credit(userID uuid.UUID, amount decimal.Decimal) {
	b := m.balances[userID]
	b.Available = b.Available.Add(amount)
	m.balances[userID] = b
}
