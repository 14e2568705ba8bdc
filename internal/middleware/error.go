package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/geo-pricing/pkg/errors"
	"github.com/jwalitptl/geo-pricing/pkg/httputil"
)

// ErrorHandler logs errors attached to the context. When a handler left
// errors without writing a response, the last one is rendered.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			event := log.Warn()
			if apperrors.StatusOf(e.Err) >= 500 {
				event = log.Error()
			}
			event.
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}

		last := c.Errors.Last().Err
		message := "internal server error"
		if appErr, ok := apperrors.AsAppError(last); ok {
			message = appErr.Message
		}
		c.JSON(apperrors.StatusOf(last), httputil.NewErrorResponse(message))
	}
}
