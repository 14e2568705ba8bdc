package pricing

import (
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/geo-pricing/internal/middleware"
	"github.com/jwalitptl/geo-pricing/internal/model"
	"github.com/jwalitptl/geo-pricing/internal/service/pricing"
	apperrors "github.com/jwalitptl/geo-pricing/pkg/errors"
	"github.com/jwalitptl/geo-pricing/pkg/httputil"
)

type Handler struct {
	matcher *pricing.Matcher
	catalog *pricing.Catalog
}

func NewHandler(matcher *pricing.Matcher, catalog *pricing.Catalog) *Handler {
	return &Handler{
		matcher: matcher,
		catalog: catalog,
	}
}

// RegisterRoutes mounts the pricing endpoints. The region handlers run
// before plan price lookups and must end with middleware.Region.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, region ...gin.HandlerFunc) {
	r.POST("/pricing/match", h.MatchPrice)

	plans := r.Group("/plans")
	{
		plans.GET("", h.ListPlans)
		plans.GET("/:plan/price", append(region, h.GetPlanPrice)...)
	}
}

type matchRequest struct {
	Entries    json.RawMessage `json:"entries"`
	RegionCode model.ZoneID    `json:"region_code" binding:"required,zone"`
}

type matchResponse struct {
	RegionCode model.ZoneID      `json:"region_code"`
	Entry      *model.PriceEntry `json:"entry"`
	Fallback   bool              `json:"fallback"`
}

// MatchPrice picks the entry for region_code out of a caller-supplied
// price list. Entries that are not a list yield a null entry.
func (h *Handler) MatchPrice(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest("invalid request body", err))
		return
	}

	entry, fallback := h.matcher.MatchRaw(req.Entries, req.RegionCode)
	httputil.RespondWithSuccess(c, matchResponse{
		RegionCode: req.RegionCode,
		Entry:      entry,
		Fallback:   fallback,
	})
}

func (h *Handler) ListPlans(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.catalog.Plans())
}

type planPriceResponse struct {
	model.PlanPrice
	RegionSource string `json:"region_source"`
}

func (h *Handler) GetPlanPrice(c *gin.Context) {
	z, ok := middleware.RegionFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Internal(errors.New("region not resolved")))
		return
	}

	price, err := h.catalog.PriceFor(c.Param("plan"), z)
	if err != nil {
		if errors.Is(err, pricing.ErrPlanNotFound) {
			httputil.RespondWithError(c, apperrors.NotFound("plan", err))
			return
		}
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}

	httputil.RespondWithSuccess(c, planPriceResponse{
		PlanPrice:    price,
		RegionSource: c.GetString(middleware.ContextRegionSource),
	})
}
