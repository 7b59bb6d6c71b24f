package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache stores JSON-encoded values by key.
type Cache interface {
	// Get decodes the value stored at key into dest and reports whether
	// the key held a value.
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Add stores value unless key already holds a value or was invalidated
	// within the hold window.
	Add(ctx context.Context, key string, value any) error
	// Invalidate drops keys and blocks Add on them for the hold window, so
	// a reader that loaded a row before the write cannot put it back.
	Invalidate(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

// DefaultHold bounds how long a read may take and still be rejected after
// a concurrent write.
const DefaultHold = 10 * time.Second

func TaskKey(id int) string { return fmt.Sprintf("task:%d", id) }

func UserKey(id int) string { return fmt.Sprintf("user:%d", id) }

// Redis keeps values for ttl. An invalidated key holds an empty marker for
// hold; JSON values are never empty.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	hold   time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, hold: DefaultHold}
}

// WithHold replaces DefaultHold.
func (r *Redis) WithHold(hold time.Duration) *Redis {
	r.hold = hold
	return r
}

func (r *Redis) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) || (err == nil && len(data) == 0) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (r *Redis) Add(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.client.SetNX(ctx, key, data, r.ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	pipe := r.client.TxPipeline()
	for _, key := range keys {
		pipe.Set(ctx, key, "", r.hold)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Nop is used when no cache is configured. Every lookup misses.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Add(context.Context, string, any) error         { return nil }
func (Nop) Invalidate(context.Context, ...string) error    { return nil }
func (Nop) Ping(context.Context) error                     { return nil }
