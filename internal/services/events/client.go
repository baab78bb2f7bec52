package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// connectRetryDelay is the pause between pings while Redis is starting up.
const connectRetryDelay = 2 * time.Second

// NewRedisClient parses a redis:// URL and waits for the server to answer a
// ping. It keeps retrying until ctx is done.
func NewRedisClient(ctx context.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)
	for attempt := 1; ; attempt++ {
		err := rdb.Ping(ctx).Err()
		if err == nil {
			break
		}
		logger.Debug("Redis not ready yet", "error", err, "attempt", attempt)

		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", attempt, err)
		case <-time.After(connectRetryDelay):
		}
	}

	logger.Info("Connected to Redis for snapshot events", "addr", opt.Addr)
	return rdb, nil
}
