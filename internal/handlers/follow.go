package handlers

import (
	"github.com/gin-gonic/gin"

	"knowledgehub/internal/middleware"
	"knowledgehub/internal/services"
	"knowledgehub/internal/utils"
)

type FollowHandler struct {
	follows *services.FollowService
}

func NewFollowHandler(follows *services.FollowService) *FollowHandler {
	return &FollowHandler{follows: follows}
}

// Toggle 切换关注状态
func (h *FollowHandler) Toggle(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	res, err := h.follows.ToggleFollow(c.Request.Context(), middleware.CurrentIdentity(c), postID)
	if err != nil {
		RenderError(c, err)
		return
	}
	utils.Success(c, res)
}
