package handlers

import (
	"github.com/gin-gonic/gin"

	"knowledgehub/internal/services"
	"knowledgehub/internal/utils"
)

type UserHandler struct {
	reputation *services.ReputationService
}

func NewUserHandler(reputation *services.ReputationService) *UserHandler {
	return &UserHandler{reputation: reputation}
}

// Reputation shows points, tier and activity counters.
func (h *UserHandler) Reputation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	standing, err := h.reputation.Get(c.Request.Context(), id)
	if err != nil {
		RenderError(c, err)
		return
	}
	utils.Success(c, standing)
}
