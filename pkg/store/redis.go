package store

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/newtgrade/pkg/model"
)

// RedisBackend stores each host/phase as one hash keyed
// newtgrade|<host>|<phase> with one field per document.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend creates a backend on the given Redis address and DB.
func NewRedisBackend(addr string, db int) *RedisBackend {
	return &RedisBackend{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
	}
}

// Connect tests the connection.
func (b *RedisBackend) Connect(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close closes the connection.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func redisKey(host string, phase model.Phase) string {
	return fmt.Sprintf("newtgrade|%s|%s", host, phase)
}

// Commit replaces the phase hash in a single MULTI/EXEC transaction.
func (b *RedisBackend) Commit(ctx context.Context, host string, phase model.Phase, docs map[string][]byte) error {
	key := redisKey(host, phase)
	args := make([]interface{}, 0, len(docs)*2)
	for name, data := range docs {
		args = append(args, name, data)
	}
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(args) > 0 {
			pipe.HSet(ctx, key, args...)
		}
		return nil
	})
	if err != nil && err != redis.Nil {
		return fmt.Errorf("pipeline exec: %w", err)
	}
	return nil
}

// Read returns one document field.
func (b *RedisBackend) Read(ctx context.Context, host string, phase model.Phase, name string) ([]byte, error) {
	data, err := b.client.HGet(ctx, redisKey(host, phase), name).Bytes()
	if err == redis.Nil {
		return nil, notFound(host, phase, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", redisKey(host, phase), err)
	}
	return data, nil
}
