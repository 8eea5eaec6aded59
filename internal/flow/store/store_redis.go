package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lineacaptura/internal/flow"
)

const keyPrefix = "flow:session:"

// RedisStore keeps flow state in Redis so any replica can serve a session.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (flow.State, error) {
	raw, err := s.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return flow.State{}, nil
		}
		return flow.State{}, fmt.Errorf("load flow session: %w", err)
	}
	var state flow.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return flow.State{}, fmt.Errorf("decode flow session: %w", err)
	}
	return state, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, state flow.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode flow session: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+sessionID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save flow session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("delete flow session: %w", err)
	}
	return nil
}
