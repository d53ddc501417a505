package valkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

const keyPrefix = "nextmetro:"

// Cache implements ports.CacheService using Valkey (Redis-compatible).
type Cache struct {
	client valkey.Client
}

// New creates a new Valkey cache client.
func New(addr string) (*Cache, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:      []string{addr},
		ConnWriteTimeout: 2 * time.Second,
		DisableCache:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Cache{client: client}, nil
}

// Get retrieves a value by key, returning ErrMiss for absent keys.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Do(ctx, c.client.B().Get().Key(prefixed(key)).Build()).AsBytes()
	if err != nil {
		return nil, mapGetErr(err)
	}
	return b, nil
}

// Set stores a value with a TTL in seconds.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	ttl, err := expiry(ttlSeconds)
	if err != nil {
		return err
	}
	cmd := c.client.B().Set().Key(prefixed(key)).Value(valkey.BinaryString(value)).
		Ex(ttl).Build()
	return c.client.Do(ctx, cmd).Error()
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Do(ctx, c.client.B().Del().Key(prefixed(key)).Build()).Error()
}

// Ping checks the server is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (c *Cache) Close() {
	c.client.Close()
}

func prefixed(key string) string {
	return keyPrefix + key
}

// expiry converts a TTL in seconds for SET EX, which rejects zero.
func expiry(ttlSeconds int) (time.Duration, error) {
	if ttlSeconds < 1 {
		return 0, fmt.Errorf("valkey set: ttl must be at least 1s, got %d", ttlSeconds)
	}
	return time.Duration(ttlSeconds) * time.Second, nil
}

func mapGetErr(err error) error {
	if valkey.IsValkeyNil(err) {
		return ErrMiss
	}
	return fmt.Errorf("valkey get: %w", err)
}
