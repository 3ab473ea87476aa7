package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the Redis backed transient and option store.
//
// Transients expire through the Redis TTL; options never expire. Both are
// plain strings/bytes, callers own the encoding.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore creates a new Redis store. An empty prefix uses DefaultKeyPrefix.
func NewStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{
		client: client,
		prefix: prefix,
	}
}

// Get retrieves a transient. A missing or expired key is (nil, false, nil).
func (s *Store) Get(ctx context.Context, name string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.TransientKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil // Cache miss
		}
		return nil, false, fmt.Errorf("failed to get transient %s: %w", name, err)
	}
	return data, true, nil
}

// Set stores a transient for ttl. A ttl <= 0 is rejected: transients always expire.
func (s *Store) Set(ctx context.Context, name string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("transient %s: ttl must be > 0, got %v", name, ttl)
	}
	if err := s.client.Set(ctx, s.TransientKey(name), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set transient %s: %w", name, err)
	}
	return nil
}

// Delete removes a transient
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.client.Del(ctx, s.TransientKey(name)).Err(); err != nil {
		return fmt.Errorf("failed to delete transient %s: %w", name, err)
	}
	return nil
}

// FlushTransients removes every transient under the store prefix.
// SCAN matches a glob, so keys are checked against the literal prefix
// before deletion; a prefix holding glob characters cannot reach other keys.
func (s *Store) FlushTransients(ctx context.Context) (int, error) {
	iter := s.client.Scan(ctx, 0, s.TransientKey("*"), 0).Iterator()
	deleted := 0
	for iter.Next(ctx) {
		if _, ok := s.ExtractTransientName(iter.Val()); !ok {
			continue
		}
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("failed to delete transient key: %w", err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to flush transients: %w", err)
	}
	return deleted, nil
}

// GetOption returns an option value, "" when unset
func (s *Store) GetOption(ctx context.Context, name string) (string, error) {
	v, err := s.client.Get(ctx, s.OptionKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get option %s: %w", name, err)
	}
	return v, nil
}

// SetOption persists an option without expiry
func (s *Store) SetOption(ctx context.Context, name, value string) error {
	if err := s.client.Set(ctx, s.OptionKey(name), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set option %s: %w", name, err)
	}
	return nil
}

// DeleteOption removes an option
func (s *Store) DeleteOption(ctx context.Context, name string) error {
	if err := s.client.Del(ctx, s.OptionKey(name)).Err(); err != nil {
		return fmt.Errorf("failed to delete option %s: %w", name, err)
	}
	return nil
}

// Ping checks the connection, used by readiness probes
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
