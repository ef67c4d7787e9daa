package categories

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-forum/parley/internal/access"
)

type countingSource struct {
	level access.Level
	calls atomic.Int64
}

func (s *countingSource) FindGrant(ctx context.Context, userID, categoryID int64) (access.Level, error) {
	s.calls.Add(1)
	return s.level, nil
}

func newTestCache(t *testing.T, source GrantSource) (*GrantCache, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewGrantCache(source, client, time.Minute), server
}

func TestGrantCacheMissThenHit(t *testing.T) {
	source := &countingSource{level: access.LevelWrite}
	cache, _ := newTestCache(t, source)
	ctx := context.Background()

	level, err := cache.FindGrant(ctx, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, access.LevelWrite, level)
	assert.Equal(t, int64(1), source.calls.Load())

	// Second lookup is served from Redis.
	level, err = cache.FindGrant(ctx, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, access.LevelWrite, level)
	assert.Equal(t, int64(1), source.calls.Load())
}

func TestGrantCacheForget(t *testing.T) {
	source := &countingSource{level: access.LevelRead}
	cache, _ := newTestCache(t, source)
	ctx := context.Background()

	_, err := cache.FindGrant(ctx, 7, 3)
	require.NoError(t, err)

	require.NoError(t, cache.Forget(ctx, 7, 3))

	_, err = cache.FindGrant(ctx, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), source.calls.Load(), "forget must force a fresh lookup")
}

func TestGrantCacheForgetCategory(t *testing.T) {
	source := &countingSource{level: access.LevelRead}
	cache, server := newTestCache(t, source)
	ctx := context.Background()

	// Warm entries for two users in category 3 and one in category 4.
	for _, pair := range [][2]int64{{7, 3}, {8, 3}, {7, 4}} {
		_, err := cache.FindGrant(ctx, pair[0], pair[1])
		require.NoError(t, err)
	}

	require.NoError(t, cache.ForgetCategory(ctx, 3))

	assert.False(t, server.Exists("grant:7:3"))
	assert.False(t, server.Exists("grant:8:3"))
	assert.True(t, server.Exists("grant:7:4"), "other categories keep their entries")
}

func TestGrantCacheFailsOpen(t *testing.T) {
	source := &countingSource{level: access.LevelRead}
	cache, server := newTestCache(t, source)
	ctx := context.Background()

	server.Close()

	level, err := cache.FindGrant(ctx, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, access.LevelRead, level)
	assert.Equal(t, int64(1), source.calls.Load())
}
