// Package cache holds the short-lived state of the application: preference wizard drafts and
// the exclusivity tokens of ranking lists. Both have a redis and an in-process implementation.
package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/khollendar/core"
)

const (
	draftPrefix = "khollendar:draft:"
	tokenPrefix = "khollendar:token:"
)

// NewRedisClient connects to redis and checks the connection.
func NewRedisClient(ctx context.Context, conf core.CacheConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}
