package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quantum-ratchet/common"
	"quantum-ratchet/configs"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each conversation as a list under configs.HistoryKey and
// indexes encrypted messages under configs.BeaconKey.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func historyKey(a, b string) string {
	first, second := conversationKey(a, b)
	return fmt.Sprintf(configs.HistoryKey, first, second)
}

func (s *RedisStore) Append(ctx context.Context, msg common.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, historyKey(msg.Sender, msg.Recipient), data)
	if msg.Beacon != "" {
		pipe.Set(ctx, fmt.Sprintf(configs.BeaconKey, msg.Beacon), data, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store message from %s to %s: %w", msg.Sender, msg.Recipient, err)
	}
	return nil
}

func (s *RedisStore) Conversation(ctx context.Context, a, b string) ([]common.Message, error) {
	raw, err := s.client.LRange(ctx, historyKey(a, b), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history of %s and %s: %w", a, b, err)
	}

	msgs := make([]common.Message, 0, len(raw))
	for _, r := range raw {
		var msg common.Message
		if err := json.Unmarshal([]byte(r), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode stored message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *RedisStore) FindByBeacon(ctx context.Context, beacon string) (common.Message, error) {
	raw, err := s.client.Get(ctx, fmt.Sprintf(configs.BeaconKey, beacon)).Result()
	if errors.Is(err, redis.Nil) {
		return common.Message{}, ErrNotFound
	}
	if err != nil {
		return common.Message{}, fmt.Errorf("failed to look up beacon %s: %w", beacon, err)
	}

	var msg common.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return common.Message{}, fmt.Errorf("failed to decode stored message: %w", err)
	}
	return msg, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
