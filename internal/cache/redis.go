package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect parses a redis://host:port[/db] URL and checks the connection.
func Connect(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	log.Printf("Connected to Redis at %s", opts.Addr)
	return client, nil
}

// RedisCache stores per-user unread notification counts.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) GetUnreadCount(ctx context.Context, userID int64) (int64, error) {
	return c.client.Get(ctx, UnreadKey(userID)).Int64()
}

func (c *RedisCache) SetUnreadCount(ctx context.Context, userID int64, count int64) error {
	return c.client.Set(ctx, UnreadKey(userID), count, c.ttl).Err()
}

func (c *RedisCache) InvalidateUnreadCount(ctx context.Context, userID int64) error {
	return c.client.Del(ctx, UnreadKey(userID)).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// UnreadKey generates the cache key of a user's unread count
// Format: "notifications:unread:<userID>"
func UnreadKey(userID int64) string {
	return fmt.Sprintf("notifications:unread:%d", userID)
}
