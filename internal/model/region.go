package model

// ZoneID identifies one of the eight pricing zones, e.g. "zone_2".
type ZoneID string

// CountryCode is a two-letter country identifier such as "US" or "DE".
// It is compared verbatim; callers supply upper-case codes.
type CountryCode string

// Zone is a pricing zone with its display name.
type Zone struct {
	ID           ZoneID `json:"region_code"`
	Name         string `json:"region_name"`
	CountryCount int    `json:"country_count"`
}

// CountryZone is the resolved zone for a single country.
type CountryZone struct {
	CountryCode CountryCode `json:"country_code"`
	RegionCode  ZoneID      `json:"region_code"`
	RegionName  string      `json:"region_name"`
	Mapped      bool        `json:"mapped"`
}
