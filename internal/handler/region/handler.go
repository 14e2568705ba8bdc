package region

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/geo-pricing/internal/middleware"
	"github.com/jwalitptl/geo-pricing/internal/service/location"
	"github.com/jwalitptl/geo-pricing/internal/service/region"
	apperrors "github.com/jwalitptl/geo-pricing/pkg/errors"
	"github.com/jwalitptl/geo-pricing/pkg/httputil"
)

type Service interface {
	Locate(ctx context.Context, req region.Request) (region.Result, error)
	Forget(ctx context.Context, clientKey string) error
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the region endpoints. Extra handlers, such as a
// rate limiter, run before detection.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, handlers ...gin.HandlerFunc) {
	regions := r.Group("/region", handlers...)
	{
		regions.GET("", h.GetRegion)
		regions.DELETE("", h.ClearRegion)
	}
}

type regionQuery struct {
	Lat     *float64 `form:"lat" binding:"omitempty,gte=-90,lte=90"`
	Lon     *float64 `form:"lon" binding:"omitempty,gte=-180,lte=180"`
	Refresh string   `form:"refresh"`
}

func (h *Handler) GetRegion(c *gin.Context) {
	var q regionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(apperrors.BadRequest("invalid query parameters", err))
		return
	}
	if (q.Lat == nil) != (q.Lon == nil) {
		httputil.RespondWithError(c, apperrors.BadRequest("lat and lon must be given together", nil))
		return
	}

	req := region.Request{
		ClientKey: middleware.ClientKey(c),
		IP:        c.ClientIP(),
	}
	if q.Refresh != "" {
		refresh, err := strconv.ParseBool(q.Refresh)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("refresh must be a boolean", err))
			return
		}
		req.Refresh = refresh
	}
	if q.Lat != nil {
		req.Position = &location.Coordinates{Latitude: *q.Lat, Longitude: *q.Lon}
	}

	res, err := h.service.Locate(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("failed to locate client", err))
		return
	}

	c.Header(middleware.HeaderXRegionCode, string(res.Location.RegionCode))
	httputil.RespondWithSuccess(c, res)
}

func (h *Handler) ClearRegion(c *gin.Context) {
	if err := h.service.Forget(c.Request.Context(), middleware.ClientKey(c)); err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"cleared": true})
}
