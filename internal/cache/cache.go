// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ActionsKey is the Redis list the match historian appends to.
const ActionsKey = "uno:actions"

// Rdb is the shared Redis client. Nil disables the historian.
var Rdb *redis.Client

// GameActionRecord is one entry in a match's action history.
type GameActionRecord struct {
	GameID        uuid.UUID              `json:"game_id"`
	ActionIndex   int                    `json:"action_index"`
	ActorUserID   uuid.UUID              `json:"actor_user_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// ConnectRedis initializes Rdb and verifies the connection.
func ConnectRedis(ctx context.Context, addr, password string) error {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	Rdb = client
	return nil
}

// PublishGameAction appends rec to the history list.
func PublishGameAction(ctx context.Context, rec GameActionRecord) error {
	if Rdb == nil {
		return fmt.Errorf("redis client not initialized")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal action record: %w", err)
	}
	if err := Rdb.RPush(ctx, ActionsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to push action record: %w", err)
	}
	return nil
}

// GameActions returns the recorded actions for one match in order.
func GameActions(ctx context.Context, gameID uuid.UUID) ([]GameActionRecord, error) {
	if Rdb == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}
	raw, err := Rdb.LRange(ctx, ActionsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read action records: %w", err)
	}
	var out []GameActionRecord
	for _, r := range raw {
		var rec GameActionRecord
		if err := json.Unmarshal([]byte(r), &rec); err != nil {
			continue
		}
		if rec.GameID == gameID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Close releases the shared client.
func Close() error {
	if Rdb == nil {
		return nil
	}
	err := Rdb.Close()
	Rdb = nil
	return err
}
