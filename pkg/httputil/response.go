package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/geo-pricing/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, NewSuccessResponse(data))
}

// RespondWithError sends an error response. Application errors keep their
// message; anything else is reported as an internal error.
func RespondWithError(c *gin.Context, err error) {
	status := errors.StatusOf(err)
	message := "internal server error"

	if appErr, ok := errors.AsAppError(err); ok {
		message = appErr.Message
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, NewErrorResponse(message))
}
