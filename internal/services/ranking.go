package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"knowledgehub/internal/models"
	"knowledgehub/internal/utils"
)

const (
	trendingCacheKey = "trending:posts"
	maxTrendingPosts = 200
	batchSize        = 50
)

// TrendingPost is one entry of the trending list.
type TrendingPost struct {
	ID           uint      `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Score        float64   `json:"score"`
	CommentCount int       `json:"comment_count"`
	UpvoteCount  int       `json:"upvote_count"`
	ViewCount    int       `json:"view_count"`
	HasAccepted  bool      `json:"has_accepted_answer"`
	ActivityAt   time.Time `json:"activity_at"`
}

// TrendingScheduler is notified when a post's counters change.
type TrendingScheduler interface {
	ScheduleUpdate(postID uint)
}

// RankingService 计算热门列表并缓存，分数本身从不落库
type RankingService struct {
	db     *gorm.DB
	rdb    *redis.Client
	logger *zap.Logger
	cache  *utils.Cache[[]TrendingPost]
	ttl    time.Duration
	now    func() time.Time

	queue   chan uint // 待刷新的帖子 ID 队列
	pending map[uint]bool
	mu      sync.Mutex
}

// NewRankingService builds the service. rdb may be nil.
func NewRankingService(db *gorm.DB, rdb *redis.Client, logger *zap.Logger, ttl time.Duration) *RankingService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RankingService{
		db:      db,
		rdb:     rdb,
		logger:  logger.Named("ranking_service"),
		cache:   utils.NewCache[[]TrendingPost](16),
		ttl:     ttl,
		now:     time.Now,
		queue:   make(chan uint, 1000),
		pending: make(map[uint]bool),
	}
}

// Trending returns up to limit posts with a nonzero score, best first.
func (s *RankingService) Trending(ctx context.Context, limit int) ([]TrendingPost, error) {
	if limit <= 0 || limit > maxTrendingPosts {
		limit = maxTrendingPosts
	}

	posts, ok := s.cache.Get(trendingCacheKey)
	if !ok {
		var remaining time.Duration
		posts, remaining, ok = s.loadShared(ctx)
		if ok {
			// 本地副本与共享快照同时过期
			s.cache.Set(trendingCacheKey, posts, remaining)
		}
	}
	if !ok {
		var err error
		posts, err = s.Recompute(ctx)
		if err != nil {
			return nil, err
		}
	}

	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

// Recompute scores every approved post active within the window and refreshes both caches.
func (s *RankingService) Recompute(ctx context.Context) ([]TrendingPost, error) {
	asOf := s.now()

	var rows []models.Post
	err := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("id", "title", "slug", "comment_count", "upvote_count", "view_count",
			"accepted_answer_id", "last_activity_at", "published_at", "created_at").
		Where("status = ?", models.PostStatusApproved).
		Where("COALESCE(last_activity_at, published_at, created_at) >= ?", asOf.Add(-utils.TrendingWindow)).
		Find(&rows).Error
	if err != nil {
		return nil, transientError("failed to load trending candidates", err)
	}

	byID := make(map[uint]TrendingPost, len(rows))
	ranked := make([]utils.Ranked, 0, len(rows))
	for _, p := range rows {
		in := utils.TrendingInput{
			CommentCount:   p.CommentCount,
			UpvoteCount:    p.UpvoteCount,
			ViewCount:      p.ViewCount,
			HasAccepted:    p.AcceptedAnswerID != nil,
			LastActivityAt: p.LastActivityAt,
			PublishedAt:    p.PublishedAt,
			CreatedAt:      p.CreatedAt,
		}
		score := utils.TrendingScore(in, asOf)
		if score == 0 {
			continue
		}
		ranked = append(ranked, utils.Ranked{PostID: p.ID, Score: score, Activity: in.ActivityTime()})
		byID[p.ID] = TrendingPost{
			ID:           p.ID,
			Title:        p.Title,
			Slug:         p.Slug,
			Score:        score,
			CommentCount: p.CommentCount,
			UpvoteCount:  p.UpvoteCount,
			ViewCount:    p.ViewCount,
			HasAccepted:  in.HasAccepted,
			ActivityAt:   in.ActivityTime(),
		}
	}
	utils.SortTrending(ranked)

	if len(ranked) > maxTrendingPosts {
		ranked = ranked[:maxTrendingPosts]
	}
	posts := make([]TrendingPost, len(ranked))
	for i, r := range ranked {
		posts[i] = byID[r.PostID]
	}

	s.cache.Set(trendingCacheKey, posts, s.ttl)
	s.storeShared(ctx, posts)
	return posts, nil
}

// Invalidate drops the cached list everywhere.
func (s *RankingService) Invalidate(ctx context.Context) {
	s.cache.Delete(trendingCacheKey)
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, trendingCacheKey).Err(); err != nil {
		s.logger.Warn("Failed to invalidate shared trending cache", zap.Error(err))
	}
}

// loadShared returns the shared snapshot together with its remaining lifetime.
func (s *RankingService) loadShared(ctx context.Context) ([]TrendingPost, time.Duration, bool) {
	if s.rdb == nil {
		return nil, 0, false
	}
	pipe := s.rdb.Pipeline()
	get := pipe.Get(ctx, trendingCacheKey)
	pttl := pipe.PTTL(ctx, trendingCacheKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("Failed to read shared trending cache", zap.Error(err))
		return nil, 0, false
	}
	raw, err := get.Bytes()
	if err != nil {
		return nil, 0, false
	}
	remaining := pttl.Val()
	if remaining <= 0 || remaining > s.ttl {
		remaining = s.ttl
	}
	var posts []TrendingPost
	if err := sonic.Unmarshal(raw, &posts); err != nil {
		s.logger.Warn("Discarding undecodable trending cache", zap.Error(err))
		return nil, 0, false
	}
	return posts, remaining, true
}

func (s *RankingService) storeShared(ctx context.Context, posts []TrendingPost) {
	if s.rdb == nil {
		return
	}
	raw, err := sonic.Marshal(posts)
	if err != nil {
		s.logger.Warn("Failed to encode trending cache", zap.Error(err))
		return
	}
	if err := s.rdb.Set(ctx, trendingCacheKey, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("Failed to write shared trending cache", zap.Error(err))
	}
}

// ScheduleUpdate 将帖子加入刷新队列（异步，去重）
func (s *RankingService) ScheduleUpdate(postID uint) {
	s.mu.Lock()
	if s.pending[postID] {
		s.mu.Unlock()
		return
	}
	s.pending[postID] = true
	s.mu.Unlock()

	select {
	case s.queue <- postID:
	default:
		s.mu.Lock()
		delete(s.pending, postID)
		s.mu.Unlock()
		s.logger.Warn("Ranking queue full, skipping post", zap.Uint("post_id", postID))
	}
}

// Start runs the batching worker until ctx is cancelled.
func (s *RankingService) Start(ctx context.Context) {
	go s.worker(ctx)
}

func (s *RankingService) worker(ctx context.Context) {
	batch := make([]uint, 0, batchSize)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case postID := <-s.queue:
			batch = append(batch, postID)
			if len(batch) >= batchSize {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

// processBatch invalidates once for a whole batch of changed posts.
func (s *RankingService) processBatch(ctx context.Context, postIDs []uint) {
	s.Invalidate(ctx)

	s.mu.Lock()
	for _, id := range postIDs {
		delete(s.pending, id)
	}
	s.mu.Unlock()

	s.logger.Debug("Trending invalidated", zap.Int("posts", len(postIDs)))
}

// StartScheduledRefresh recomputes the list every interval until ctx is cancelled.
func (s *RankingService) StartScheduledRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				posts, err := s.Recompute(ctx)
				if err != nil {
					s.logger.Error("Scheduled trending refresh failed", zap.Error(err))
					continue
				}
				s.logger.Info("Trending refreshed", zap.Int("posts", len(posts)))
			}
		}
	}()
}
