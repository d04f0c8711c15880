package handlers

import (
	"github.com/gin-gonic/gin"

	"knowledgehub/internal/services"
	"knowledgehub/internal/utils"
)

type CategoryHandler struct {
	posts *services.PostService
}

func NewCategoryHandler(posts *services.PostService) *CategoryHandler {
	return &CategoryHandler{posts: posts}
}

// List 展示所有分类
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.posts.Categories(c.Request.Context())
	if err != nil {
		RenderError(c, err)
		return
	}
	utils.Success(c, categories)
}
