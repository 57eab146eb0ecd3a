package store

import (
	"context"
	"fmt"

	"quantum-ratchet/configs"

	"github.com/redis/go-redis/v9"
)

// Open builds the history store selected by rt.StoreBackend.
func Open(ctx context.Context, rt configs.Runtime) (HistoryStore, error) {
	switch rt.StoreBackend {
	case "", configs.StoreMemory:
		return NewMemoryStore(), nil
	case configs.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: rt.RedisAddress})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", rt.RedisAddress, err)
		}
		return NewRedisStore(client), nil
	case configs.StoreSQLite:
		return NewSQLiteStore(rt.DatabasePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", rt.StoreBackend)
	}
}
