package db

import (
	"context"
	"fmt"
	"time"

	"echofm/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the shared Redis client, used for request accounting.
var RedisClient *redis.Client

// ConnectRedis initializes the Redis connection and verifies it with a ping.
// On failure RedisClient stays nil so callers can skip Redis entirely.
func ConnectRedis(cfg *config.Config) error {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	RedisClient = client
	return nil
}

// CloseRedis closes the Redis connection.
func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}
