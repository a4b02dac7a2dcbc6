// internal/database/database.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// DB is the shared connection pool. Nil disables persistence.
var DB *pgxpool.Pool

const schema = `
CREATE TABLE IF NOT EXISTS balances (
	user_id   UUID PRIMARY KEY,
	available NUMERIC(30, 9) NOT NULL DEFAULT 0 CHECK (available >= 0),
	locked    NUMERIC(30, 9) NOT NULL DEFAULT 0 CHECK (locked >= 0)
);
CREATE TABLE IF NOT EXISTS matches (
	id            UUID PRIMARY KEY,
	initial_state JSONB,
	final_state   JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	ended_at      TIMESTAMPTZ
);`

// ConnectDB opens the pool, verifies it and applies the schema.
func ConnectDB(ctx context.Context, url string) error {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	DB = pool
	return nil
}

// Close releases the shared pool.
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
	}
}

// UpsertInitialGameState records the dealt state of a match.
// Intended to be run in its own goroutine; errors are logged.
func UpsertInitialGameState(matchID uuid.UUID, state interface{}) {
	if DB == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(state)
	if err != nil {
		logrus.WithError(err).WithField("match", matchID).Error("failed to marshal initial state")
		return
	}
	_, err = DB.Exec(ctx, `
		INSERT INTO matches (id, initial_state) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET initial_state = EXCLUDED.initial_state`,
		matchID, data)
	if err != nil {
		logrus.WithError(err).WithField("match", matchID).Error("failed to store initial state")
	}
}

// StoreFinalGameStateInDB records the terminal state and settlement of a match.
func StoreFinalGameStateInDB(ctx context.Context, matchID uuid.UUID, snapshot interface{}) {
	if DB == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := json.Marshal(snapshot)
	if err != nil {
		logrus.WithError(err).WithField("match", matchID).Error("failed to marshal final state")
		return
	}
	_, err = DB.Exec(ctx, `
		INSERT INTO matches (id, final_state, ended_at) VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET final_state = EXCLUDED.final_state, ended_at = now()`,
		matchID, data)
	if err != nil {
		logrus.WithError(err).WithField("match", matchID).Error("failed to store final state")
	}
}
