package categories

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/parley-forum/parley/internal/access"
)

// GrantSource is the persistent lookup behind the cache.
type GrantSource interface {
	FindGrant(ctx context.Context, userID, categoryID int64) (access.Level, error)
}

// GrantCache fronts grant lookups with Redis. Lookups run on the hot
// path of every private-category authorization, so cache misses are
// deduplicated with singleflight. The cache fails open: Redis errors
// fall through to the database.
type GrantCache struct {
	source GrantSource
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewGrantCache constructs a GrantCache.
func NewGrantCache(source GrantSource, client *redis.Client, ttl time.Duration) *GrantCache {
	return &GrantCache{source: source, client: client, ttl: ttl}
}

// FindGrant implements access.Grants.
func (c *GrantCache) FindGrant(ctx context.Context, userID, categoryID int64) (access.Level, error) {
	key := grantKey(userID, categoryID)
	if cached, err := c.client.Get(ctx, key).Result(); err == nil {
		if level, convErr := strconv.Atoi(cached); convErr == nil {
			return access.Level(level), nil
		}
	}

	result := c.group.DoChan(key, func() (any, error) {
		level, err := c.source.FindGrant(context.WithoutCancel(ctx), userID, categoryID)
		if err != nil {
			return nil, err
		}
		_ = c.client.Set(context.WithoutCancel(ctx), key, strconv.Itoa(int(level)), c.ttl).Err()
		return level, nil
	})

	select {
	case <-ctx.Done():
		return access.LevelNone, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return access.LevelNone, res.Err
		}
		return res.Val.(access.Level), nil
	}
}

// Forget drops the cached level for one (user, category) pair. Called
// after grant writes so revocation takes effect immediately.
func (c *GrantCache) Forget(ctx context.Context, userID, categoryID int64) error {
	return c.client.Del(ctx, grantKey(userID, categoryID)).Err()
}

// ForgetCategory drops every cached level for a category. Called when
// a privacy flip purges the category's grant rows.
func (c *GrantCache) ForgetCategory(ctx context.Context, categoryID int64) error {
	pattern := "grant:*:" + strconv.FormatInt(categoryID, 10)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func grantKey(userID, categoryID int64) string {
	return "grant:" + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(categoryID, 10)
}

var _ access.Grants = (*GrantCache)(nil)
