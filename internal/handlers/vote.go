package handlers

import (
	"github.com/gin-gonic/gin"

	"knowledgehub/internal/middleware"
	"knowledgehub/internal/models"
	"knowledgehub/internal/services"
	"knowledgehub/internal/utils"
)

type VoteHandler struct {
	votes *services.VoteService
}

func NewVoteHandler(votes *services.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

// Vote toggles the caller's upvote on a post or comment.
func (h *VoteHandler) Vote(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	res, err := h.votes.ToggleVote(c.Request.Context(), middleware.CurrentIdentity(c),
		models.TargetType(c.Param("type")), id)
	if err != nil {
		RenderError(c, err)
		return
	}
	utils.Success(c, res)
}

// View records a page view.
func (h *VoteHandler) View(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.votes.RecordView(c.Request.Context(), id); err != nil {
		RenderError(c, err)
		return
	}
	utils.Success(c, nil)
}
