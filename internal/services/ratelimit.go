package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// VoteLimiter decides whether a user may attempt another vote toggle.
type VoteLimiter interface {
	Allow(ctx context.Context, userID uint) (bool, error)
}

// Limits per user. A zero value disables that window.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

type window struct {
	name   string
	period time.Duration
	limit  int
}

func (l Limits) windows() []window {
	all := []window{
		{"m", time.Minute, l.PerMinute},
		{"h", time.Hour, l.PerHour},
		{"d", 24 * time.Hour, l.PerDay},
	}
	out := all[:0]
	for _, w := range all {
		if w.limit > 0 {
			out = append(out, w)
		}
	}
	return out
}

// RedisVoteLimiter counts attempts in fixed windows shared by every instance.
type RedisVoteLimiter struct {
	rdb    *redis.Client
	limits Limits
	prefix string
	now    func() time.Time
}

func NewRedisVoteLimiter(rdb *redis.Client, limits Limits) *RedisVoteLimiter {
	return &RedisVoteLimiter{rdb: rdb, limits: limits, prefix: "vote_rl", now: time.Now}
}

func (l *RedisVoteLimiter) Allow(ctx context.Context, userID uint) (bool, error) {
	windows := l.limits.windows()
	if len(windows) == 0 {
		return true, nil
	}
	now := l.now()

	incrs := make([]*redis.IntCmd, len(windows))
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, w := range windows {
			bucket := now.Unix() / int64(w.period/time.Second)
			key := fmt.Sprintf("%s:%d:%s:%d", l.prefix, userID, w.name, bucket)
			incrs[i] = pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, w.period)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to count vote attempts: %w", err)
	}

	for i, w := range windows {
		if incrs[i].Val() > int64(w.limit) {
			return false, nil
		}
	}
	return true, nil
}

type userLimiter struct {
	limiters []*rate.Limiter
	expires  time.Time
}

// MemoryVoteLimiter is the single-instance fallback used when Redis is not configured.
type MemoryVoteLimiter struct {
	limits Limits
	idle   time.Duration
	now    func() time.Time

	mu    sync.Mutex
	users map[uint]*userLimiter
}

func NewMemoryVoteLimiter(limits Limits) *MemoryVoteLimiter {
	return &MemoryVoteLimiter{
		limits: limits,
		idle:   24 * time.Hour,
		now:    time.Now,
		users:  make(map[uint]*userLimiter),
	}
}

func (l *MemoryVoteLimiter) Allow(_ context.Context, userID uint) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.cleanupLocked(now)

	u, ok := l.users[userID]
	if !ok {
		u = &userLimiter{}
		for _, w := range l.limits.windows() {
			u.limiters = append(u.limiters, rate.NewLimiter(rate.Every(w.period/time.Duration(w.limit)), w.limit))
		}
		l.users[userID] = u
	}
	u.expires = now.Add(l.idle)

	// 任何一个窗口超限都要撤销其它窗口已消耗的令牌
	reserved := make([]*rate.Reservation, 0, len(u.limiters))
	for _, lim := range u.limiters {
		r := lim.ReserveN(now, 1)
		if !r.OK() || r.DelayFrom(now) > 0 {
			r.CancelAt(now)
			for _, prev := range reserved {
				prev.CancelAt(now)
			}
			return false, nil
		}
		reserved = append(reserved, r)
	}
	return true, nil
}

func (l *MemoryVoteLimiter) cleanupLocked(now time.Time) {
	for id, u := range l.users {
		if now.After(u.expires) {
			delete(l.users, id)
		}
	}
}
