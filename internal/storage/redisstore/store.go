// Package redisstore implements storage.PayloadStore on Redis
package redisstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sirosfoundation/go-payload/internal/storage"
)

const defaultKeyPrefix = "payload:"

// Config holds Redis connection settings
type Config struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
	// TTL expires stored payloads; zero keeps them until deleted
	TTL time.Duration
}

// Store keeps each payload as one Redis string value
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ storage.PayloadStore = (*Store)(nil)

// NewStore connects to Redis and verifies the connection
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil || cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewStoreWithClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewStoreWithClient wraps an existing client
func NewStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Store{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// StorePayload reads r fully and stores it under a new ID
func (s *Store) StorePayload(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read payload %q: %w", name, err)
	}

	id := uuid.New().String()
	if err := s.client.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store payload %q: %w", name, err)
	}
	return id, nil
}

func (s *Store) OpenPayload(ctx context.Context, id string) (io.ReadCloser, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load payload: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) DeletePayload(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete payload: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return nil
}

// Close closes the Redis client
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close()
}
