package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"knowledgehub/internal/db"
	"knowledgehub/internal/middleware"
	"knowledgehub/internal/models"
	"knowledgehub/internal/router"
	"knowledgehub/internal/services"
	"knowledgehub/internal/utils"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{configFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := setup(ctx, c)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := db.Migrate(rt.db, rt.logger); err != nil {
				return err
			}

			deps, notifier := rt.wire()
			deps.Ranking.Start(ctx)
			deps.Ranking.StartScheduledRefresh(ctx, rt.cfg.Trending.RefreshInterval)

			gin.SetMode(gin.ReleaseMode)
			srv := &http.Server{
				Addr:              ":" + rt.cfg.Port,
				Handler:           router.New(deps),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				rt.logger.Info("Server starting", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			rt.logger.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				rt.logger.Error("Server shutdown failed", zap.Error(err))
			}
			notifier.Wait()
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the database schema",
		Flags: []cli.Flag{configFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := setup(ctx, c)
			if err != nil {
				return err
			}
			defer rt.Close()
			return db.Migrate(rt.db, rt.logger)
		},
	}
}

func recomputeTrendingCommand() *cli.Command {
	return &cli.Command{
		Name:  "recompute-trending",
		Usage: "Recompute the trending list and refresh the shared cache",
		Flags: []cli.Flag{configFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := setup(ctx, c)
			if err != nil {
				return err
			}
			defer rt.Close()

			ranking := services.NewRankingService(rt.db, rt.rdb, rt.logger, rt.cfg.Trending.CacheTTL)
			posts, err := ranking.Recompute(ctx)
			if err != nil {
				return err
			}

			rt.logger.Info("Trending recomputed", zap.Int("posts", len(posts)))
			for i, p := range posts {
				if i == 10 {
					break
				}
				fmt.Printf("%2d. %8.1f  %s\n", i+1, p.Score, p.Title)
			}
			return nil
		},
	}
}

func issueTokenCommand() *cli.Command {
	return &cli.Command{
		Name:      "issue-token",
		Usage:     "Sign a bearer token for an existing user",
		ArgsUsage: "USER_ID",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "ttl",
				Usage: "Token lifetime",
				Value: "24h",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			userID := utils.ParseID(c.Args().First())
			if userID == 0 {
				return errors.New("USER_ID argument required")
			}
			ttl, err := time.ParseDuration(c.String("ttl"))
			if err != nil {
				return fmt.Errorf("invalid ttl: %w", err)
			}

			rt, err := setup(ctx, c)
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not configured")
			}

			var user models.User
			if err := rt.db.WithContext(ctx).First(&user, userID).Error; err != nil {
				return fmt.Errorf("failed to load user %d: %w", userID, err)
			}
			token, err := middleware.IssueToken(rt.cfg.JWTSecret, user, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}
