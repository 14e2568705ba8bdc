// Package pricing selects the price entry that applies to a zone.
package pricing

import (
	"encoding/json"
	"strconv"

	"github.com/jwalitptl/geo-pricing/internal/model"
	"github.com/jwalitptl/geo-pricing/pkg/logger"
	"github.com/jwalitptl/geo-pricing/pkg/metrics"
)

// MatchRegionalPrice returns the first entry whose region_code or
// region_zone equals zone. Without a match it returns the first entry and
// reports fallback. Nil or empty input yields nil.
func MatchRegionalPrice(entries []model.PriceEntry, zone model.ZoneID) (entry *model.PriceEntry, fallback bool) {
	if len(entries) == 0 {
		return nil, false
	}
	for i := range entries {
		if entries[i].Matches(zone) {
			return &entries[i], false
		}
	}
	return &entries[0], true
}

// DecodeEntries parses raw as a list of price entries. Only the list shape
// is checked: anything that is not a JSON array yields nil, while array
// elements are decoded leniently. Zone fields that are not strings never
// match, and elements that are not objects become empty entries that can
// still be returned as the fallback.
func DecodeEntries(raw json.RawMessage) []model.PriceEntry {
	if len(raw) == 0 {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}
	entries := make([]model.PriceEntry, len(elems))
	for i, elem := range elems {
		entries[i] = decodeEntry(elem)
	}
	return entries
}

type looseEntry struct {
	RegionCode json.RawMessage `json:"region_code"`
	RegionZone json.RawMessage `json:"region_zone"`
	Price      json.RawMessage `json:"price"`
	Currency   json.RawMessage `json:"currency"`
}

func decodeEntry(elem json.RawMessage) model.PriceEntry {
	var loose looseEntry
	if err := json.Unmarshal(elem, &loose); err != nil {
		return model.PriceEntry{}
	}
	return model.PriceEntry{
		RegionCode: model.ZoneID(stringField(loose.RegionCode)),
		RegionZone: model.ZoneID(stringField(loose.RegionZone)),
		Price:      priceField(loose.Price),
		Currency:   stringField(loose.Currency),
	}
}

func stringField(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// priceField accepts a number or a numeric string.
func priceField(raw json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	f, err := strconv.ParseFloat(stringField(raw), 64)
	if err != nil {
		return 0
	}
	return f
}

// Matcher is MatchRegionalPrice with logging and metrics.
type Matcher struct {
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewMatcher(m *metrics.Metrics, log *logger.Logger) *Matcher {
	if m == nil {
		m = metrics.New("pricing")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Matcher{
		logger:  log.Component("pricing"),
		metrics: m,
	}
}

func (m *Matcher) Match(entries []model.PriceEntry, zone model.ZoneID) (*model.PriceEntry, bool) {
	entry, fallback := MatchRegionalPrice(entries, zone)
	switch {
	case entry == nil:
		m.metrics.PriceMatches.WithLabelValues("empty").Inc()
	case fallback:
		m.metrics.PriceMatches.WithLabelValues("fallback").Inc()
		m.logger.Warn("no price for zone, using first entry",
			"region_code", string(zone),
			"fallback_zone", string(entry.Zone()),
			"entries", len(entries),
		)
	default:
		m.metrics.PriceMatches.WithLabelValues("matched").Inc()
	}
	return entry, fallback
}

// MatchRaw is Match for untyped input.
func (m *Matcher) MatchRaw(raw json.RawMessage, zone model.ZoneID) (*model.PriceEntry, bool) {
	return m.Match(DecodeEntries(raw), zone)
}
