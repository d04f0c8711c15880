package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"knowledgehub/internal/models"
)

func TestScheduleUpdateDedupsAndInvalidates(t *testing.T) {
	t.Parallel()
	mr, rdb := newTestRedis(t)

	s := NewRankingService(nil, rdb, zaptest.NewLogger(t), time.Minute)
	s.cache.Set(trendingCacheKey, []TrendingPost{{ID: 1}}, time.Minute)
	require.NoError(t, mr.Set(trendingCacheKey, "[]"))

	s.ScheduleUpdate(7)
	s.ScheduleUpdate(7)
	s.ScheduleUpdate(8)
	assert.Len(t, s.queue, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.pending) == 0
	}, 3*time.Second, 20*time.Millisecond)

	_, ok := s.cache.Get(trendingCacheKey)
	assert.False(t, ok)
	assert.False(t, mr.Exists(trendingCacheKey))
}

func TestTrendingKeepsSharedSnapshotExpiry(t *testing.T) {
	t.Parallel()
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(trendingCacheKey, `[{"id":3,"title":"Cached","score":12}]`))
	mr.SetTTL(trendingCacheKey, 10*time.Second)

	s := NewRankingService(nil, rdb, zaptest.NewLogger(t), time.Minute)
	posts, remaining, ok := s.loadShared(ctx)
	require.True(t, ok)
	require.Len(t, posts, 1)
	assert.Equal(t, uint(3), posts[0].ID)
	assert.Equal(t, 10*time.Second, remaining)

	// no expiry on the key falls back to the configured ttl
	require.NoError(t, mr.Set(trendingCacheKey, `[{"id":3,"title":"Cached","score":12}]`))
	_, remaining, ok = s.loadShared(ctx)
	require.True(t, ok)
	assert.Equal(t, time.Minute, remaining)

	// a snapshot about to expire is not kept locally past its lifetime
	mr.SetTTL(trendingCacheKey, time.Millisecond)
	posts, err := s.Trending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	time.Sleep(5 * time.Millisecond)
	_, ok = s.cache.Get(trendingCacheKey)
	assert.False(t, ok)
}

func TestTrendingRanksRecentEngagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mr, rdb := newTestRedis(t)

	author := f.user(t, "author", models.RoleContributor)
	answerer := f.user(t, "answerer", models.RoleUser)
	hot := f.question(t, author, "Hot")
	mid := f.question(t, author, "Mid")
	stale := f.question(t, author, "Stale")
	quiet := f.question(t, author, "Quiet")
	pending, err := f.posts.CreatePost(ctx, answerer, PostInput{Title: "Pending", Content: "body"})
	require.NoError(t, err)
	c := f.answer(t, answerer, hot.ID)

	now := time.Now()
	set := func(id uint, cols map[string]any) {
		require.NoError(t, f.db.Model(&models.Post{}).Where("id = ?", id).UpdateColumns(cols).Error)
	}
	set(hot.ID, map[string]any{
		"comment_count": 4, "upvote_count": 10, "view_count": 200,
		"accepted_answer_id": c.ID, "last_activity_at": now.Add(-48 * time.Hour),
	})
	set(mid.ID, map[string]any{"upvote_count": 3, "last_activity_at": now.Add(-time.Hour)})
	set(stale.ID, map[string]any{"upvote_count": 100, "last_activity_at": now.Add(-8 * 24 * time.Hour)})
	set(quiet.ID, map[string]any{"last_activity_at": now})
	set(pending.ID, map[string]any{"upvote_count": 50, "last_activity_at": now})

	s := NewRankingService(f.db, rdb, zap.NewNop(), time.Minute)
	posts, err := s.Trending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, hot.ID, posts[0].ID)
	assert.InDelta(t, 420, posts[0].Score, 1e-6)
	assert.True(t, posts[0].HasAccepted)
	assert.Equal(t, mid.ID, posts[1].ID)
	assert.InDelta(t, 30, posts[1].Score, 1e-6)

	assert.True(t, mr.Exists(trendingCacheKey))

	// a second instance reads the shared snapshot instead of the database
	set(mid.ID, map[string]any{"upvote_count": 1000})
	other := NewRankingService(f.db, rdb, zap.NewNop(), time.Minute)
	posts, err = other.Trending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, hot.ID, posts[0].ID)

	other.Invalidate(ctx)
	assert.False(t, mr.Exists(trendingCacheKey))
	s.cache.Purge()

	posts, err = s.Trending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, mid.ID, posts[0].ID)
}
