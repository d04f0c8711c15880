package handlers

import (
	"github.com/gin-gonic/gin"

	"knowledgehub/internal/middleware"
	"knowledgehub/internal/services"
	"knowledgehub/internal/utils"
)

// AdminHandler serves the moderation side of posts. Status changes go
// through PostHandler.SetStatus.
type AdminHandler struct {
	posts *services.PostService
}

func NewAdminHandler(posts *services.PostService) *AdminHandler {
	return &AdminHandler{posts: posts}
}

// Queue 待审核列表
func (h *AdminHandler) Queue(c *gin.Context) {
	posts, err := h.posts.ModerationQueue(c.Request.Context(), middleware.CurrentIdentity(c))
	if err != nil {
		RenderError(c, err)
		return
	}
	utils.Success(c, gin.H{"posts": posts, "count": len(posts)})
}
