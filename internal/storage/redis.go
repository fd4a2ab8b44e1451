package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/starford/orgboard/internal/models"
	"github.com/starford/orgboard/internal/parser"
)

// DefaultRedisKey is the key holding the snapshot when none is configured.
const DefaultRedisKey = "orgboard:chart"

// RedisGateway stores the snapshot as a JSON string under a single key.
type RedisGateway struct {
	client *redis.Client
	key    string
}

// NewRedisGateway connects using a redis:// URL and verifies the connection.
func NewRedisGateway(ctx context.Context, url, key string) (*RedisGateway, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("storage: parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("storage: redis ping failed: %w", err)
	}
	return NewRedisGatewayFromClient(client, key), nil
}

// NewRedisGatewayFromClient wraps an existing client.
func NewRedisGatewayFromClient(client *redis.Client, key string) *RedisGateway {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisGateway{client: client, key: key}
}

func (g *RedisGateway) Load(ctx context.Context) (models.Chart, error) {
	data, err := g.client.Get(ctx, g.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.DefaultChart(), nil
	}
	if err != nil {
		return models.Chart{}, fmt.Errorf("storage: redis get: %w", err)
	}
	return parser.DecodeSnapshot(data)
}

func (g *RedisGateway) Save(ctx context.Context, c models.Chart) error {
	data, err := parser.EncodeSnapshot(c)
	if err != nil {
		return err
	}
	if err := g.client.Set(ctx, g.key, data, 0).Err(); err != nil {
		return fmt.Errorf("storage: redis set: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (g *RedisGateway) Close() error {
	return g.client.Close()
}
