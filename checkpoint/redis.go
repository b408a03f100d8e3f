package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/NikhilKumarMandal/multi-agent-system/core"
)

// DefaultRedisPrefix namespaces checkpoint keys.
const DefaultRedisPrefix = "assistant:checkpoint:"

// RedisOptions describes the Redis connection.
type RedisOptions struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// RedisStore keeps one string key per thread holding the history envelope.
// SET replaces the value atomically.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Address == "" {
		return nil, errors.New("checkpoint: redis address is empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStoreFromClient(client, opts.Prefix), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(threadID string) string { return s.prefix + threadID }

// Load returns the thread's history, or an empty history if unseen.
func (s *RedisStore) Load(ctx context.Context, threadID string) ([]core.Message, error) {
	if err := checkThreadID(threadID); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.key(threadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []core.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint %q: %w", threadID, err)
	}
	return Decode(data)
}

// Save replaces the thread's history.
func (s *RedisStore) Save(ctx context.Context, threadID string, msgs []core.Message) error {
	if err := checkThreadID(threadID); err != nil {
		return err
	}
	data, err := Encode(msgs)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(threadID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint %q: %w", threadID, err)
	}
	return nil
}

// Threads scans the key space under the prefix.
func (s *RedisStore) Threads(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete drops a thread.
func (s *RedisStore) Delete(ctx context.Context, threadID string) error {
	if err := s.client.Del(ctx, s.key(threadID)).Err(); err != nil {
		return fmt.Errorf("failed to delete checkpoint %q: %w", threadID, err)
	}
	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

var (
	_ Store   = (*RedisStore)(nil)
	_ Lister  = (*RedisStore)(nil)
	_ Deleter = (*RedisStore)(nil)
)
