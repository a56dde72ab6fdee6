package utils

import "github.com/gin-gonic/gin"

// ErrorBody is the stable shape of every non-2xx response.
type ErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Respond writes data as JSON with the given status code.
func Respond(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, data)
}

// Success returns 200 with data.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, data)
}

// Error writes {message, error} and aborts the handler chain.
func Error(ctx *gin.Context, status int, kind, message string) {
	ctx.AbortWithStatusJSON(status, ErrorBody{Message: message, Error: kind})
}
