package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/geo-pricing/pkg/httputil"
)

// Recovery turns a panic into a 500 response. The log line carries the
// client key and, when already resolved, the zone the request was priced in.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				z, _ := RegionFrom(c)
				log.Error().
					Interface("error", err).
					Str("stack", string(debug.Stack())).
					Str("method", c.Request.Method).
					Str("route", c.FullPath()).
					Str("client", ClientKey(c)).
					Str("region_code", string(z)).
					Str("request_id", c.GetString(ContextRequestID)).
					Msg("panic while serving request")

				c.AbortWithStatusJSON(http.StatusInternalServerError, httputil.NewErrorResponse("internal server error"))
			}
		}()
		c.Next()
	}
}
