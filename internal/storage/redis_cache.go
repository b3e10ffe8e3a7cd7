package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"airshark/internal/model"

	"github.com/codeGROOVE-dev/retry"
	"github.com/redis/go-redis/v9"
)

const postsZKey = "airshark:posts"

func postKey(id string) string {
	return fmt.Sprintf("airshark:post:%s", id)
}

// RedisCache persists retained posts as JSON blobs indexed by a sorted set scored by ingestion time.
type RedisCache struct {
	rdb      *redis.Client
	attempts uint
	delay    time.Duration
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb, attempts: 3, delay: 200 * time.Millisecond}
}

// Put stores the post with a TTL matching what is left of its retention.
func (c *RedisCache) Put(ctx context.Context, p model.Post, retainFor time.Duration) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	ttl := retainFor - time.Since(p.IngestedAt)
	if ttl <= 0 {
		return nil
	}
	return c.do(ctx, "put", func() error {
		pipe := c.rdb.TxPipeline()
		pipe.Set(ctx, postKey(p.ID), b, ttl)
		pipe.ZAdd(ctx, postsZKey, redis.Z{Score: float64(p.IngestedAt.Unix()), Member: p.ID})
		_, err := pipe.Exec(ctx)
		return err
	})
}

// Remove deletes superseded or swept posts.
func (c *RedisCache) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		keys[i] = postKey(id)
		members[i] = id
	}
	return c.do(ctx, "remove", func() error {
		pipe := c.rdb.TxPipeline()
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, postsZKey, members...)
		_, err := pipe.Exec(ctx)
		return err
	})
}

// LoadInto restores cached posts into the store, oldest first, and trims index
// entries that fell out of retention or whose blob already expired.
func (c *RedisCache) LoadInto(ctx context.Context, s *MemoryStore, now time.Time) (int, error) {
	cutoff := now.Add(-s.policy.RetainFor).Unix()
	if err := c.rdb.ZRemRangeByScore(ctx, postsZKey, "-inf", fmt.Sprintf("(%d", cutoff)).Err(); err != nil {
		return 0, err
	}
	ids, err := c.rdb.ZRange(ctx, postsZKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	restored := 0
	var missing []interface{}
	for _, id := range ids {
		b, err := c.rdb.Get(ctx, postKey(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return restored, err
		}
		var p model.Post
		if err := json.Unmarshal(b, &p); err != nil {
			slog.Warn("storage: skipping undecodable cached post", "id", id, "error", err)
			missing = append(missing, id)
			continue
		}
		if s.Restore(p, now) {
			restored++
		}
	}
	if len(missing) > 0 {
		if err := c.rdb.ZRem(ctx, postsZKey, missing...).Err(); err != nil {
			return restored, err
		}
	}
	return restored, nil
}

func (c *RedisCache) do(ctx context.Context, op string, fn func() error) error {
	err := retry.Do(
		fn,
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.MaxDelay(2*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			slog.Debug("storage: retrying redis write", "op", op, "attempt", n, "error", err)
		}),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
	)
	if err != nil {
		return fmt.Errorf("redis %s: %w", op, err)
	}
	return nil
}
