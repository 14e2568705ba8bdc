// Package zone maps countries to the eight fixed pricing zones.
package zone

import "github.com/jwalitptl/geo-pricing/internal/model"

// ZoneForCountry returns the zone mapped to code, or Default when the code
// has no entry. Codes are matched exactly, without case folding.
func ZoneForCountry(code model.CountryCode) model.ZoneID {
	if z, ok := countryIndex[code]; ok {
		return z
	}
	return Default
}

// Lookup returns the zone for code and whether the code was in the table.
func Lookup(code model.CountryCode) (model.ZoneID, bool) {
	z, ok := countryIndex[code]
	if !ok {
		return Default, false
	}
	return z, true
}

// NameForZone returns the display name of id, or UnknownRegionName.
func NameForZone(id model.ZoneID) string {
	if name, ok := zoneNames[id]; ok {
		return name
	}
	return UnknownRegionName
}

// CountriesInZone lists the codes assigned to id in table order.
func CountriesInZone(id model.ZoneID) []model.CountryCode {
	codes := make([]model.CountryCode, 0)
	for _, e := range countryTable {
		if e.zone == id {
			codes = append(codes, e.code)
		}
	}
	return codes
}

// IsCountryInZone reports whether code resolves to id. Unmapped codes
// resolve to Default, so they are members of Default only.
func IsCountryInZone(code model.CountryCode, id model.ZoneID) bool {
	return ZoneForCountry(code) == id
}

// IsValidZone reports whether id is one of the eight zones.
func IsValidZone(id model.ZoneID) bool {
	_, ok := zoneNames[id]
	return ok
}

// Zones lists the eight zones in order.
func Zones() []model.Zone {
	counts := make(map[model.ZoneID]int, len(zoneOrder))
	for _, e := range countryTable {
		counts[e.zone]++
	}

	zones := make([]model.Zone, 0, len(zoneOrder))
	for _, id := range zoneOrder {
		zones = append(zones, model.Zone{
			ID:           id,
			Name:         zoneNames[id],
			CountryCount: counts[id],
		})
	}
	return zones
}

// Resolve returns the full zone record for code.
func Resolve(code model.CountryCode) model.CountryZone {
	z, mapped := Lookup(code)
	return model.CountryZone{
		CountryCode: code,
		RegionCode:  z,
		RegionName:  NameForZone(z),
		Mapped:      mapped,
	}
}
