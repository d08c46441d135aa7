package mirror

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// DefaultPrefix namespaces the keys and channels a RedisSink writes
const DefaultPrefix = "scribble"

// RedisSink writes snapshots with SET and events with PUBLISH
type RedisSink struct {
	client *redis.Client
	prefix string
}

// NewRedisSink connects to the server at url (redis://...) and checks it is
// reachable
func NewRedisSink(ctx context.Context, url, prefix string) (*RedisSink, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	return NewRedisSinkFromClient(client, prefix), nil
}

// NewRedisSinkFromClient wraps an existing client
func NewRedisSinkFromClient(client *redis.Client, prefix string) *RedisSink {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisSink{client: client, prefix: prefix}
}

// Key returns the namespaced redis key or channel for name
func (s *RedisSink) Key(name string) string {
	return s.prefix + ":" + name
}

// Store implements Sink
func (s *RedisSink) Store(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, s.Key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", s.Key(key), err)
	}
	return nil
}

// Publish implements Sink
func (s *RedisSink) Publish(ctx context.Context, channel string, data []byte) error {
	if err := s.client.Publish(ctx, s.Key(channel), data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", s.Key(channel), err)
	}
	return nil
}

// Close implements Sink
func (s *RedisSink) Close() error {
	return s.client.Close()
}
