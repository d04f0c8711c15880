package utils

import "github.com/gin-gonic/gin"

// JSONResponse is the envelope of every API response.
type JSONResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func Respond(c *gin.Context, status int, code int, message string, data any) {
	c.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func Success(c *gin.Context, data any) {
	Respond(c, 200, 0, "success", data)
}

// Error writes an error envelope and aborts the chain.
func Error(c *gin.Context, status int, code int, message string) {
	c.AbortWithStatusJSON(status, JSONResponse{Code: code, Message: message})
}
