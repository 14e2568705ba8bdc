package zone

import "github.com/jwalitptl/geo-pricing/internal/model"

const (
	Zone1 model.ZoneID = "zone_1"
	Zone2 model.ZoneID = "zone_2"
	Zone3 model.ZoneID = "zone_3"
	Zone4 model.ZoneID = "zone_4"
	Zone5 model.ZoneID = "zone_5"
	Zone6 model.ZoneID = "zone_6"
	Zone7 model.ZoneID = "zone_7"
	Zone8 model.ZoneID = "zone_8"
)

// Default is assigned to any country without a table entry.
const Default = Zone6

// UnknownRegionName is returned for identifiers outside the eight zones.
const UnknownRegionName = "Unknown Region"

// zoneOrder fixes the listing order of zones.
var zoneOrder = []model.ZoneID{Zone1, Zone2, Zone3, Zone4, Zone5, Zone6, Zone7, Zone8}

var zoneNames = map[model.ZoneID]string{
	Zone1: "North America",
	Zone2: "Western Europe",
	Zone3: "Oceania & Developed Asia",
	Zone4: "Eastern & Southern Europe",
	Zone5: "Latin America & Caribbean",
	Zone6: "Middle East, Asia & Others",
	Zone7: "South & Southeast Asia",
	Zone8: "Africa",
}

type entry struct {
	code model.CountryCode
	zone model.ZoneID
}

// countryTable is declaration-ordered; CountriesInZone preserves this order.
var countryTable = []entry{
	// North America
	{"US", Zone1}, {"CA", Zone1},

	// Western Europe
	{"GB", Zone2}, {"DE", Zone2}, {"FR", Zone2}, {"NL", Zone2}, {"BE", Zone2},
	{"LU", Zone2}, {"AT", Zone2}, {"CH", Zone2}, {"IE", Zone2}, {"DK", Zone2},
	{"SE", Zone2}, {"NO", Zone2}, {"FI", Zone2}, {"IS", Zone2}, {"IT", Zone2},
	{"ES", Zone2}, {"PT", Zone2}, {"MC", Zone2}, {"LI", Zone2}, {"AD", Zone2},
	{"SM", Zone2},

	// Oceania & developed Asia
	{"AU", Zone3}, {"NZ", Zone3}, {"JP", Zone3}, {"KR", Zone3}, {"SG", Zone3},
	{"HK", Zone3}, {"TW", Zone3},

	// Eastern & southern Europe
	{"PL", Zone4}, {"CZ", Zone4}, {"SK", Zone4}, {"HU", Zone4}, {"RO", Zone4},
	{"BG", Zone4}, {"HR", Zone4}, {"SI", Zone4}, {"EE", Zone4}, {"LV", Zone4},
	{"LT", Zone4}, {"RS", Zone4}, {"BA", Zone4}, {"ME", Zone4}, {"MK", Zone4},
	{"AL", Zone4}, {"UA", Zone4}, {"MD", Zone4}, {"BY", Zone4}, {"RU", Zone4},
	{"GR", Zone4}, {"CY", Zone4}, {"MT", Zone4},

	// Latin America & Caribbean
	{"MX", Zone5}, {"BR", Zone5}, {"AR", Zone5}, {"CL", Zone5}, {"CO", Zone5},
	{"PE", Zone5}, {"VE", Zone5}, {"EC", Zone5}, {"BO", Zone5}, {"PY", Zone5},
	{"UY", Zone5}, {"CR", Zone5}, {"PA", Zone5}, {"GT", Zone5}, {"HN", Zone5},
	{"SV", Zone5}, {"NI", Zone5}, {"DO", Zone5}, {"CU", Zone5}, {"PR", Zone5},
	{"JM", Zone5}, {"TT", Zone5}, {"HT", Zone5}, {"BS", Zone5}, {"BB", Zone5},

	// Middle East, central & east Asia
	{"AE", Zone6}, {"SA", Zone6}, {"QA", Zone6}, {"KW", Zone6}, {"BH", Zone6},
	{"OM", Zone6}, {"JO", Zone6}, {"LB", Zone6}, {"IQ", Zone6}, {"IR", Zone6},
	{"TR", Zone6}, {"IL", Zone6}, {"CN", Zone6}, {"KZ", Zone6}, {"UZ", Zone6},
	{"AZ", Zone6}, {"GE", Zone6}, {"AM", Zone6}, {"MN", Zone6}, {"KG", Zone6},
	{"TJ", Zone6}, {"TM", Zone6}, {"AF", Zone6}, {"SY", Zone6}, {"YE", Zone6},
	{"PS", Zone6}, {"MO", Zone6}, {"BN", Zone6}, {"MV", Zone6}, {"BT", Zone6},

	// South & southeast Asia
	{"IN", Zone7}, {"PK", Zone7}, {"BD", Zone7}, {"LK", Zone7}, {"NP", Zone7},
	{"ID", Zone7}, {"PH", Zone7}, {"VN", Zone7}, {"TH", Zone7}, {"MY", Zone7},
	{"KH", Zone7}, {"MM", Zone7}, {"LA", Zone7},

	// Africa
	{"NG", Zone8}, {"KE", Zone8}, {"ZA", Zone8}, {"GH", Zone8}, {"ET", Zone8},
	{"TZ", Zone8}, {"UG", Zone8}, {"MA", Zone8}, {"DZ", Zone8}, {"TN", Zone8},
	{"EG", Zone8}, {"SN", Zone8}, {"CI", Zone8}, {"CM", Zone8}, {"RW", Zone8},
	{"ZM", Zone8}, {"ZW", Zone8}, {"AO", Zone8}, {"MZ", Zone8}, {"BW", Zone8},
	{"NA", Zone8},
}

// countryIndex is built once from countryTable and never written afterwards.
var countryIndex = buildIndex(countryTable)

func buildIndex(table []entry) map[model.CountryCode]model.ZoneID {
	idx := make(map[model.CountryCode]model.ZoneID, len(table))
	for _, e := range table {
		if _, dup := idx[e.code]; dup {
			panic("zone: duplicate country code " + string(e.code))
		}
		if _, ok := zoneNames[e.zone]; !ok {
			panic("zone: unknown zone " + string(e.zone))
		}
		idx[e.code] = e.zone
	}
	return idx
}
