package utils

import (
	"github.com/gin-gonic/gin"
)

// ErrorBody is the shape of every non-validation error response.
type ErrorBody struct {
	Error string `json:"error"`
}

func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorBody{Error: message})
}

// ErrorResponseWithCause appends err to message when expose is set.
func ErrorResponseWithCause(c *gin.Context, code int, message string, err error, expose bool) {
	if expose && err != nil {
		message = message + ": " + err.Error()
	}
	ErrorResponse(c, code, message)
}
