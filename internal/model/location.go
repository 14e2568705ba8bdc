package model

import "time"

// Detection methods recorded on a Location.
const (
	MethodIP          = "ip"
	MethodGeolocation = "geolocation"
)

// UnknownCountryCode is reported when detection fails.
const UnknownCountryCode CountryCode = "XX"

// Location is the outcome of a region detection. It is built once per
// detection and never mutated afterwards.
type Location struct {
	Success     bool        `json:"success"`
	Country     string      `json:"country"`
	CountryCode CountryCode `json:"countryCode"`
	RegionCode  ZoneID      `json:"regionCode"`
	RegionName  string      `json:"regionName"`
	Currency    string      `json:"currency"`
	IP          string      `json:"ip,omitempty"`
	City        string      `json:"city,omitempty"`
	Latitude    *float64    `json:"latitude,omitempty"`
	Longitude   *float64    `json:"longitude,omitempty"`
	Method      string      `json:"method,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// CachedRegion is a Location together with the time it was stored.
type CachedRegion struct {
	Location Location  `json:"location"`
	CachedAt time.Time `json:"cached_at"`
}

// Age reports how long ago the region was cached relative to now.
func (c *CachedRegion) Age(now time.Time) time.Duration {
	return now.Sub(c.CachedAt)
}
