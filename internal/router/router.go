package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"knowledgehub/internal/config"
	"knowledgehub/internal/handlers"
	"knowledgehub/internal/middleware"
	"knowledgehub/internal/services"
)

// Deps are the services the HTTP surface exposes.
type Deps struct {
	Config        *config.Config
	DB            *gorm.DB
	Logger        *zap.Logger
	Reputation    *services.ReputationService
	Votes         *services.VoteService
	Ranking       *services.RankingService
	Answers       *services.AnswerService
	Posts         *services.PostService
	Follows       *services.FollowService
	Notifications *services.NotificationService
}

// New builds the engine with middleware and every route.
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(d.Logger))
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(cors.New(corsConfig(d.Config.AllowedOrigins)))

	store := cookie.NewStore([]byte(d.Config.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 30 * 24 * 3600, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("knowledgehub_session", store))
	r.Use(middleware.LoadUser(d.DB, d.Config.JWTSecret))

	RegisterRoutes(r, d)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	voteHandler := handlers.NewVoteHandler(d.Votes)
	postHandler := handlers.NewPostHandler(d.Posts)
	answerHandler := handlers.NewAnswerHandler(d.Answers)
	followHandler := handlers.NewFollowHandler(d.Follows)
	notificationHandler := handlers.NewNotificationHandler(d.Notifications)
	userHandler := handlers.NewUserHandler(d.Reputation)
	trendingHandler := handlers.NewTrendingHandler(d.Ranking, d.Config.Trending.Limit)
	categoryHandler := handlers.NewCategoryHandler(d.Posts)
	adminHandler := handlers.NewAdminHandler(d.Posts)
	seoHandler := handlers.NewSEOHandler(d.Posts, d.Config.SiteURL)

	r.GET("/health", handlers.Health(d.DB))
	r.GET("/robots.txt", seoHandler.RobotsTxt)
	r.GET("/sitemap.xml", seoHandler.SitemapXML)

	api := r.Group("/api")
	{
		api.GET("/trending", trendingHandler.List)               // 热门
		api.GET("/categories", categoryHandler.List)             // 分类
		api.GET("/posts/:id/versions", postHandler.Versions)     // 版本历史
		api.GET("/users/:id/reputation", userHandler.Reputation) // 声望
		api.POST("/posts/:id/view", voteHandler.View)            // 浏览计数
	}

	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/posts", postHandler.Create)
		authorized.PUT("/posts/:id", postHandler.Update)
		authorized.PUT("/posts/:id/status", postHandler.SetStatus)
		authorized.GET("/moderation/queue", adminHandler.Queue)
		authorized.POST("/vote/:type/:id", voteHandler.Vote)
		authorized.POST("/posts/:id/answers", answerHandler.Create)
		authorized.POST("/posts/:id/accept/:commentId", answerHandler.Accept)
		authorized.DELETE("/comments/:id/accept", answerHandler.Unaccept)
		authorized.POST("/posts/:id/follow", followHandler.Toggle)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
	}
}
