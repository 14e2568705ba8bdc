package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/geo-pricing/internal/model"
	"github.com/jwalitptl/geo-pricing/internal/service/region"
	"github.com/jwalitptl/geo-pricing/internal/zone"
	apperrors "github.com/jwalitptl/geo-pricing/pkg/errors"
	"github.com/jwalitptl/geo-pricing/pkg/httputil"
)

const (
	HeaderXRegion     = "X-Region"
	HeaderXRegionCode = "X-Region-Code"

	ContextRegion       = "region_code"
	ContextRegionSource = "region_source"

	RegionSourceHeader   = "header"
	RegionSourceQuery    = "query"
	RegionSourceDetected = "detected"
	RegionSourceFallback = "fallback"
)

type RegionLocator interface {
	Locate(ctx context.Context, req region.Request) (region.Result, error)
}

// Region resolves the zone a request is priced in. An explicit X-Region
// header or region_code query wins; otherwise the caller is located
// through the cached detection path. Explicit codes must be known zones.
func Region(locator RegionLocator) gin.HandlerFunc {
	return func(c *gin.Context) {
		explicit, source := c.GetHeader(HeaderXRegion), RegionSourceHeader
		if explicit == "" {
			explicit, source = c.Query("region_code"), RegionSourceQuery
		}

		if explicit = strings.TrimSpace(explicit); explicit != "" {
			z := model.ZoneID(explicit)
			if !zone.IsValidZone(z) {
				httputil.RespondWithError(c, apperrors.BadRequest("unknown region code: "+explicit, nil))
				return
			}
			setRegion(c, z, source)
			c.Next()
			return
		}

		res, err := locator.Locate(c.Request.Context(), region.Request{
			ClientKey: ClientKey(c),
			IP:        c.ClientIP(),
		})
		if err != nil {
			httputil.RespondWithError(c, apperrors.Unavailable("failed to locate client", err))
			return
		}

		source = RegionSourceDetected
		if res.Fallback {
			source = RegionSourceFallback
		}
		setRegion(c, res.Location.RegionCode, source)
		c.Next()
	}
}

func setRegion(c *gin.Context, z model.ZoneID, source string) {
	c.Set(ContextRegion, z)
	c.Set(ContextRegionSource, source)
	c.Header(HeaderXRegionCode, string(z))
}

// RegionFrom returns the zone set by Region.
func RegionFrom(c *gin.Context) (model.ZoneID, bool) {
	v, ok := c.Get(ContextRegion)
	if !ok {
		return "", false
	}
	z, ok := v.(model.ZoneID)
	return z, ok
}
