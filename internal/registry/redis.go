package registry

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"alphabot/pkg/logx"
)

// subscribersKey is the Redis set holding chat ids. The name predates this
// implementation; keeping it lets a deployment migrate without data loss.
const subscribersKey = "event_notification_groups"

type redisStore struct {
	rdb *redis.Client
	log logx.Logger
}

func openRedis(cfg Config, log logx.Logger) (Store, error) {
	addr := cfg.Addr
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Don't hard-fail startup on a transient outage; commands and sweeps
		// degrade per-call instead.
		log.Warn("redis ping failed at startup", logx.String("addr", addr), logx.Err(err))
	}

	return &redisStore{rdb: rdb, log: log}, nil
}

func (s *redisStore) Members(ctx context.Context) ([]int64, error) {
	raw, err := s.rdb.SMembers(ctx, subscribersKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(raw))
	for _, m := range raw {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			s.log.Warn("skipping malformed subscriber id", logx.String("member", m))
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (s *redisStore) Add(ctx context.Context, chatID int64) error {
	return s.rdb.SAdd(ctx, subscribersKey, strconv.FormatInt(chatID, 10)).Err()
}

func (s *redisStore) Remove(ctx context.Context, chatID int64) error {
	return s.rdb.SRem(ctx, subscribersKey, strconv.FormatInt(chatID, 10)).Err()
}

func (s *redisStore) MarkerExists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisStore) SetMarker(ctx context.Context, key string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, "1", ttl).Err()
}

func (s *redisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *redisStore) Close() error {
	return s.rdb.Close()
}
