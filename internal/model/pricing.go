package model

// PriceEntry is a caller-supplied price for one zone. The zone may be
// carried under either region_code or region_zone.
type PriceEntry struct {
	RegionCode ZoneID  `json:"region_code,omitempty" mapstructure:"region_code" validate:"omitempty,zone"`
	RegionZone ZoneID  `json:"region_zone,omitempty" mapstructure:"region_zone" validate:"omitempty,zone"`
	Price      float64 `json:"price" mapstructure:"price" validate:"gte=0"`
	Currency   string  `json:"currency,omitempty" mapstructure:"currency"`
}

// Zone returns whichever zone field is populated, preferring RegionCode.
func (p PriceEntry) Zone() ZoneID {
	if p.RegionCode != "" {
		return p.RegionCode
	}
	return p.RegionZone
}

// Matches reports whether either zone field equals zone. An absent field
// never matches.
func (p PriceEntry) Matches(zone ZoneID) bool {
	if zone == "" {
		return false
	}
	return p.RegionCode == zone || p.RegionZone == zone
}

// Plan is a named product with per-zone prices.
type Plan struct {
	Name   string       `json:"name" mapstructure:"name" validate:"required"`
	Prices []PriceEntry `json:"prices" mapstructure:"prices" validate:"required,min=1,dive"`
}

// PlanPrice is the price resolved for a plan in a zone.
type PlanPrice struct {
	Plan       string      `json:"plan"`
	RegionCode ZoneID      `json:"region_code"`
	RegionName string      `json:"region_name"`
	Entry      *PriceEntry `json:"entry"`
	Fallback   bool        `json:"fallback"`
}
