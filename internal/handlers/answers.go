package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledgehub/internal/middleware"
	"knowledgehub/internal/services"
	"knowledgehub/internal/utils"
)

type AnswerHandler struct {
	answers *services.AnswerService
}

func NewAnswerHandler(answers *services.AnswerService) *AnswerHandler {
	return &AnswerHandler{answers: answers}
}

type answerRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *AnswerHandler) Create(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, 40000, "content is required")
		return
	}

	comment, err := h.answers.CreateAnswer(c.Request.Context(), middleware.CurrentIdentity(c), postID, req.Content)
	if err != nil {
		RenderError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, 0, "success", comment)
}

func (h *AnswerHandler) Accept(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	commentID, ok := idParam(c, "commentId")
	if !ok {
		return
	}

	state, err := h.answers.Accept(c.Request.Context(), middleware.CurrentIdentity(c), postID, commentID)
	if err != nil {
		RenderError(c, err)
		return
	}
	utils.Success(c, state)
}

func (h *AnswerHandler) Unaccept(c *gin.Context) {
	commentID, ok := idParam(c, "id")
	if !ok {
		return
	}

	state, err := h.answers.Unaccept(c.Request.Context(), middleware.CurrentIdentity(c), commentID)
	if err != nil {
		RenderError(c, err)
		return
	}
	utils.Success(c, state)
}
