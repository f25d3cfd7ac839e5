// Package resultcache caches analyzer JSON summaries keyed by a dump's
// content hash, so batch re-runs over an unchanged directory of dumps
// skip re-decoding. It mirrors the resume-on-restart idea behind the
// teacher's checkpoint manager, backed by Redis instead of a local file.
package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "p7dtrace:summary:"

// Cache is a Redis-backed hash(content) -> JSON-summary store.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Config describes the connection and retention parameters.
type Config struct {
	Addr     string
	Password string
	DB       int
	// TTL is how long a cached summary survives; zero means no expiry.
	TTL time.Duration
	// Prefix overrides the default Redis key prefix.
	Prefix string
}

// Open dials Redis and verifies connectivity with a single Ping.
func Open(ctx context.Context, cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("resultcache: connect to %s: %w", cfg.Addr, err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Cache{client: client, prefix: prefix, ttl: cfg.TTL}, nil
}

// Close releases the underlying Redis connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Hash returns the content-hash key Cache uses for r's full contents.
func Hash(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("resultcache: hashing content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns a previously cached summary for hash, or ok == false on miss.
func (c *Cache) Get(ctx context.Context, hash string) (summary []byte, ok bool, err error) {
	val, err := c.client.Get(ctx, c.prefix+hash).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("resultcache: get %s: %w", hash, err)
	}
	return val, true, nil
}

// Put stores summary under hash, applying the cache's configured TTL.
func (c *Cache) Put(ctx context.Context, hash string, summary []byte) error {
	if err := c.client.Set(ctx, c.prefix+hash, summary, c.ttl).Err(); err != nil {
		return fmt.Errorf("resultcache: put %s: %w", hash, err)
	}
	return nil
}
