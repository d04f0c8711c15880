package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"knowledgehub/internal/config"
	"knowledgehub/internal/db"
	"knowledgehub/internal/logger"
	"knowledgehub/internal/router"
	"knowledgehub/internal/services"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Usage:   "Path to the TOML config file",
		Value:   config.DefaultConfigPath,
		Aliases: []string{"c"},
	}
}

// runtime holds the process-wide resources every command needs.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	rdb    *redis.Client
}

func setup(ctx context.Context, c *cli.Command) (*runtime, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	gdb, err := db.Open(cfg.DatabaseURL, cfg.Log.Level, log)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: log, db: gdb}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("Redis unavailable, falling back to in-process limiter and cache",
				zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = rdb.Close()
		} else {
			rt.rdb = rdb
		}
	}
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.rdb != nil {
		_ = rt.rdb.Close()
	}
	if sqlDB, err := rt.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = rt.logger.Sync()
}

// wire builds every service from the runtime.
func (rt *runtime) wire() (router.Deps, *services.Notifier) {
	cfg := rt.cfg

	reputation := services.NewReputationService(rt.db, rt.logger, cfg.Voting.DailyRewardLimit)
	ranking := services.NewRankingService(rt.db, rt.rdb, rt.logger, cfg.Trending.CacheTTL)
	follows := services.NewFollowService(rt.db, rt.logger)

	limits := services.Limits{
		PerMinute: cfg.Voting.PerMinute,
		PerHour:   cfg.Voting.PerHour,
		PerDay:    cfg.Voting.PerDay,
	}
	var limiter services.VoteLimiter = services.NewMemoryVoteLimiter(limits)
	if rt.rdb != nil {
		limiter = services.NewRedisVoteLimiter(rt.rdb, limits)
	}

	sinks := []services.Sink{services.NewDBSink(rt.db)}
	if mail := services.NewMailSink(cfg.SMTP, cfg.SiteURL); mail != nil {
		sinks = append(sinks, mail)
	} else {
		rt.logger.Info("Mail notifications disabled: SMTP is not configured")
	}
	notifier := services.NewNotifier(follows, rt.logger, sinks...)

	deps := router.Deps{
		Config:        cfg,
		DB:            rt.db,
		Logger:        rt.logger,
		Reputation:    reputation,
		Votes:         services.NewVoteService(rt.db, reputation, limiter, ranking, rt.logger),
		Ranking:       ranking,
		Answers:       services.NewAnswerService(rt.db, reputation, ranking, notifier, rt.logger),
		Posts:         services.NewPostService(rt.db, reputation, ranking, rt.logger),
		Follows:       follows,
		Notifications: services.NewNotificationService(rt.db),
	}
	return deps, notifier
}
