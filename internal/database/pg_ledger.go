// internal/database/pg_ledger.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stakeduel/uno/internal/ledger"
)

// pgxConn is the subset of *pgxpool.Pool the ledger uses.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	lockSQL = `
		UPDATE balances
		SET available = available - $2::numeric, locked = locked + $2::numeric
		WHERE user_id = $1 AND available >= $2::numeric`
	releaseSQL = `
		UPDATE balances
		SET locked = GREATEST(locked - $2::numeric, 0)
		WHERE user_id = $1`
	creditSQL = `
		INSERT INTO balances (user_id, available) VALUES ($1, $2::numeric)
		ON CONFLICT (user_id) DO UPDATE SET available = balances.available + EXCLUDED.available`
	balanceSQL = `SELECT available::text, locked::text FROM balances WHERE user_id = $1`
)

// PgLedger keeps balances in the balances table.
type PgLedger struct {
	db pgxConn
}

// NewPgLedger returns a ledger backed by conn, normally the shared pool.
func NewPgLedger(conn pgxConn) *PgLedger {
	return &PgLedger{db: conn}
}

func (l *PgLedger) Lock(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("negative lock amount %s", amount)
	}
	tag, err := l.db.Exec(ctx, lockSQL, userID, amount.String())
	if err != nil {
		return fmt.Errorf("failed to lock stake: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrInsufficientFunds
	}
	return nil
}

func (l *PgLedger) Release(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	return release(ctx, l.db, userID, amount)
}

func (l *PgLedger) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	return credit(ctx, l.db, userID, amount)
}

// Settle releases and credits inside one transaction.
func (l *PgLedger) Settle(ctx context.Context, userID uuid.UUID, rel, cred decimal.Decimal) (err error) {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin settlement: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = release(ctx, tx, userID, rel); err != nil {
		return err
	}
	if cred.IsPositive() {
		if err = credit(ctx, tx, userID, cred); err != nil {
			return err
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit settlement: %w", err)
	}
	return nil
}

// Deposit funds a user's available balance.
func (l *PgLedger) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("deposit amount %s must be positive", amount)
	}
	return credit(ctx, l.db, userID, amount)
}

// Balance returns the stored balance, zero for unknown users.
func (l *PgLedger) Balance(ctx context.Context, userID uuid.UUID) (ledger.Balance, error) {
	var avail, locked string
	err := l.db.QueryRow(ctx, balanceSQL, userID).Scan(&avail, &locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Balance{}, nil
	}
	if err != nil {
		return ledger.Balance{}, fmt.Errorf("failed to read balance: %w", err)
	}
	var b ledger.Balance
	if b.Available, err = decimal.NewFromString(avail); err != nil {
		return ledger.Balance{}, fmt.Errorf("bad available balance %q: %w", avail, err)
	}
	if b.Locked, err = decimal.NewFromString(locked); err != nil {
		return ledger.Balance{}, fmt.Errorf("bad locked balance %q: %w", locked, err)
	}
	return b, nil
}

func release(ctx context.Context, db execer, userID uuid.UUID, amount decimal.Decimal) error {
	if _, err := db.Exec(ctx, releaseSQL, userID, amount.String()); err != nil {
		return fmt.Errorf("failed to release stake: %w", err)
	}
	return nil
}

func credit(ctx context.Context, db execer, userID uuid.UUID, amount decimal.Decimal) error {
	if _, err := db.Exec(ctx, creditSQL, userID, amount.String()); err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	return nil
}
