package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledgehub/internal/middleware"
	"knowledgehub/internal/models"
	"knowledgehub/internal/services"
	"knowledgehub/internal/utils"
)

type PostHandler struct {
	posts *services.PostService
}

func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

func (h *PostHandler) Create(c *gin.Context) {
	var in services.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, 40000, "invalid request body")
		return
	}

	post, err := h.posts.CreatePost(c.Request.Context(), middleware.CurrentIdentity(c), in)
	if err != nil {
		RenderError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, 0, "success", post)
}

func (h *PostHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in services.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, 40000, "invalid request body")
		return
	}

	post, err := h.posts.UpdatePost(c.Request.Context(), middleware.CurrentIdentity(c), id, in)
	if err != nil {
		RenderError(c, err)
		return
	}
	utils.Success(c, post)
}

type statusRequest struct {
	Status models.PostStatus `json:"status" binding:"required"`
}

func (h *PostHandler) SetStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, 40000, "status is required")
		return
	}

	post, err := h.posts.SetStatus(c.Request.Context(), middleware.CurrentIdentity(c), id, req.Status)
	if err != nil {
		RenderError(c, err)
		return
	}
	utils.Success(c, post)
}

func (h *PostHandler) Versions(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	versions, err := h.posts.Versions(c.Request.Context(), id)
	if err != nil {
		RenderError(c, err)
		return
	}
	utils.Success(c, versions)
}
