package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"knowledgehub/internal/db"
	"knowledgehub/internal/services"
	"knowledgehub/internal/utils"
)

type TrendingHandler struct {
	ranking      *services.RankingService
	defaultLimit int
}

func NewTrendingHandler(ranking *services.RankingService, defaultLimit int) *TrendingHandler {
	if defaultLimit <= 0 {
		defaultLimit = 30
	}
	return &TrendingHandler{ranking: ranking, defaultLimit: defaultLimit}
}

func (h *TrendingHandler) List(c *gin.Context) {
	limit := utils.StringToInt(c.Query("limit"), h.defaultLimit)
	posts, err := h.ranking.Trending(c.Request.Context(), limit)
	if err != nil {
		RenderError(c, err)
		return
	}
	utils.Success(c, posts)
}

// Health reports database connectivity.
func Health(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		if err := db.Health(ctx, gdb); err != nil {
			_ = c.Error(err)
			utils.Respond(c, http.StatusServiceUnavailable, 50300, "database unavailable", gin.H{"database": "down"})
			return
		}
		utils.Success(c, gin.H{"database": "up", "latency_ms": time.Since(start).Milliseconds()})
	}
}
