package zone

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/geo-pricing/internal/model"
	"github.com/jwalitptl/geo-pricing/internal/zone"
	apperrors "github.com/jwalitptl/geo-pricing/pkg/errors"
	"github.com/jwalitptl/geo-pricing/pkg/httputil"
)

// Handler serves the static zone table.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/zones", h.ListZones)
	r.GET("/zones/:zone/countries", h.ListCountries)
	r.GET("/countries/:code/zone", h.GetCountryZone)
}

func (h *Handler) ListZones(c *gin.Context) {
	httputil.RespondWithSuccess(c, zone.Zones())
}

type zoneCountriesResponse struct {
	RegionCode model.ZoneID        `json:"region_code"`
	RegionName string              `json:"region_name"`
	Countries  []model.CountryCode `json:"countries"`
}

func (h *Handler) ListCountries(c *gin.Context) {
	id := model.ZoneID(c.Param("zone"))
	if !zone.IsValidZone(id) {
		httputil.RespondWithError(c, apperrors.NotFound("zone", nil))
		return
	}

	httputil.RespondWithSuccess(c, zoneCountriesResponse{
		RegionCode: id,
		RegionName: zone.NameForZone(id),
		Countries:  zone.CountriesInZone(id),
	})
}

func (h *Handler) GetCountryZone(c *gin.Context) {
	httputil.RespondWithSuccess(c, zone.Resolve(model.CountryCode(c.Param("code"))))
}
