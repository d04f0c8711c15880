package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledgehub/internal/services"
	"knowledgehub/internal/utils"
)

// statusFor maps a service error kind to an HTTP status.
func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindRateLimited:
		return http.StatusTooManyRequests
	case services.KindInvalidInput:
		return http.StatusBadRequest
	case services.KindTransientStoreFailure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// RenderError writes err in the JSON envelope. Store failures keep their
// cause out of the response.
func RenderError(c *gin.Context, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		_ = c.Error(err)
		utils.Error(c, http.StatusInternalServerError, 50000, "internal error")
		return
	}

	status := statusFor(svcErr.Kind)
	msg := svcErr.Msg
	if svcErr.Kind == services.KindTransientStoreFailure {
		_ = c.Error(err)
		msg = "temporarily unavailable, please retry"
	}
	utils.Error(c, status, status*100+int(svcErr.Kind), msg)
}

// idParam returns the positive numeric path parameter or writes a 400.
func idParam(c *gin.Context, name string) (uint, bool) {
	id := utils.ParseID(c.Param(name))
	if id == 0 {
		utils.Error(c, http.StatusBadRequest, 40000, "invalid "+name)
		return 0, false
	}
	return id, true
}
