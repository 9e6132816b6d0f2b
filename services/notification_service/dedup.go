package notification_service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupPrefix = "notification:sent:"

// Deduper claims an event id so a redelivered message is not mailed twice.
type Deduper interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type RedisDeduper struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{Client: client, TTL: 7 * 24 * time.Hour}
}

func (d *RedisDeduper) Claim(ctx context.Context, eventID string) (bool, error) {
	return d.Client.SetNX(ctx, dedupPrefix+eventID, time.Now().Unix(), d.TTL).Result()
}

func (d *RedisDeduper) Release(ctx context.Context, eventID string) error {
	return d.Client.Del(ctx, dedupPrefix+eventID).Err()
}
