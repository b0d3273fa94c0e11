// Package redis stores embeddings in Redis so they survive restarts and can
// be shared between hask processes.
package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/core/ports/driven"
)

// DefaultPrefix namespaces every key written by the cache.
const DefaultPrefix = "hask:embedding:"

// Ensure Cache implements the interface.
var _ driven.EmbeddingCache = (*Cache)(nil)

// Config holds connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int

	// TTL expires entries. Zero keeps them forever.
	TTL time.Duration

	// Prefix overrides DefaultPrefix.
	Prefix string

	// DialTimeout bounds connection setup.
	DialTimeout time.Duration
}

// Cache is a Redis-backed embedding cache. Vectors are stored as
// little-endian float32 bytes.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: redis address is required", domain.ErrInvalidInput)
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping %s: %w", domain.ErrStorage, cfg.Addr, err)
	}
	if pong != "PONG" {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping %s: expected PONG, got %s", domain.ErrStorage, cfg.Addr, pong)
	}
	return NewWithClient(client, cfg.TTL, cfg.Prefix), nil
}

// NewWithClient wraps an existing client without pinging it.
func NewWithClient(client redis.UniversalClient, ttl time.Duration, prefix string) *Cache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Cache{client: client, ttl: ttl, prefix: prefix}
}

// Get returns the cached vector. A missing key is a miss, not an error.
func (c *Cache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: redis get: %w", domain.ErrStorage, err)
	}
	vec, err := decodeVector(data)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Put stores vec with the configured TTL.
func (c *Cache) Put(ctx context.Context, key string, vec []float32) error {
	if err := c.client.Set(ctx, c.prefix+key, encodeVector(vec), c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %w", domain.ErrStorage, err)
	}
	return nil
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: cached vector has %d bytes", domain.ErrStorage, len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec, nil
}
