// Package location detects a client's pricing zone from its IP address.
package location

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jwalitptl/geo-pricing/internal/model"
	"github.com/jwalitptl/geo-pricing/internal/zone"
	"github.com/jwalitptl/geo-pricing/pkg/circuitbreaker"
	"github.com/jwalitptl/geo-pricing/pkg/logger"
	"github.com/jwalitptl/geo-pricing/pkg/metrics"
)

const (
	fallbackCountry  = "Unknown"
	fallbackCurrency = "USD"
)

// FallbackError reports that a detection failed and the returned Location
// is the default one.
type FallbackError struct {
	Reason error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("region detection fell back to %s: %v", zone.Default, e.Reason)
}

func (e *FallbackError) Unwrap() error {
	return e.Reason
}

// IsFallback reports whether err came from a defaulted detection.
func IsFallback(err error) bool {
	var fe *FallbackError
	return errors.As(err, &fe)
}

type Options struct {
	FailureThreshold int
	OpenTimeout      time.Duration
}

// Detector turns provider lookups into Locations.
type Detector struct {
	provider Provider
	breaker  *circuitbreaker.CircuitBreaker
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

func NewDetector(provider Provider, opts Options, m *metrics.Metrics, log *logger.Logger) *Detector {
	if m == nil {
		m = metrics.New("location")
	}
	if log == nil {
		log = logger.Nop()
	}

	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:             "geolocation-provider",
		Timeout:          opts.OpenTimeout,
		FailureThreshold: opts.FailureThreshold,
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.BreakerState.WithLabelValues(name).Set(float64(to))
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: providerHealthy,
	})

	return &Detector{
		provider: provider,
		breaker:  breaker,
		metrics:  m,
		logger:   log.Component("location"),
	}
}

// Detect resolves the zone of the address the provider sees. The returned
// Location is always usable; a non-nil error is a *FallbackError meaning
// the Location is the default one.
func (d *Detector) Detect(ctx context.Context) (model.Location, error) {
	return d.detect(ctx, "")
}

// DetectIP is Detect for an explicit client address. Addresses no
// provider can place (private, loopback, link-local, unspecified) fall
// back without a lookup.
func (d *Detector) DetectIP(ctx context.Context, ip string) (model.Location, error) {
	if ip == "" {
		return d.detect(ctx, ip)
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return d.fallback(model.MethodIP, fmt.Errorf("invalid IP address %q", ip))
	}
	if !isPublic(parsed) {
		return d.fallback(model.MethodIP, fmt.Errorf("non-public IP address %s", ip))
	}
	return d.detect(ctx, ip)
}

func isPublic(ip net.IP) bool {
	return !ip.IsPrivate() &&
		!ip.IsLoopback() &&
		!ip.IsUnspecified() &&
		!ip.IsLinkLocalUnicast() &&
		!ip.IsLinkLocalMulticast() &&
		!ip.IsMulticast()
}

// providerHealthy keeps per-address refusals and caller cancellations from
// tripping the breaker shared by all clients.
func providerHealthy(err error) bool {
	return err == nil ||
		errors.Is(err, ErrLookupRejected) ||
		errors.Is(err, context.Canceled)
}

// DetectViaGeolocation asks source for coordinates, then resolves the zone
// through the IP lookup and attaches the coordinates to the result. A nil
// source yields ErrGeolocationUnsupported and a failed position request is
// returned as is; neither produces a Location.
func (d *Detector) DetectViaGeolocation(ctx context.Context, source CoordinateSource, ip string) (model.Location, error) {
	if source == nil {
		return model.Location{}, ErrGeolocationUnsupported
	}

	pos, err := source.Position(ctx)
	if err != nil {
		return model.Location{}, fmt.Errorf("failed to get position: %w", err)
	}

	// Coordinates are not reverse-geocoded; the zone comes from the IP path.
	loc, detectErr := d.DetectIP(ctx, ip)
	d.logger.Debug("zone resolved from IP, coordinates attached",
		"latitude", pos.Latitude,
		"longitude", pos.Longitude,
		"region_code", string(loc.RegionCode),
	)

	lat, lon := pos.Latitude, pos.Longitude
	loc.Latitude = &lat
	loc.Longitude = &lon
	loc.Method = model.MethodGeolocation

	return loc, detectErr
}

func (d *Detector) detect(ctx context.Context, ip string) (model.Location, error) {
	start := time.Now()

	var resp *ProviderResponse
	err := d.breaker.Execute(func() error {
		var lookupErr error
		resp, lookupErr = d.provider.Lookup(ctx, ip)
		return lookupErr
	})
	d.metrics.DetectionLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		return d.fallback(model.MethodIP, err)
	}

	code := model.CountryCode(resp.CountryCode)
	z := zone.ZoneForCountry(code)
	loc := model.Location{
		Success:     true,
		Country:     resp.CountryName,
		CountryCode: code,
		RegionCode:  z,
		RegionName:  zone.NameForZone(z),
		Currency:    resp.Currency,
		IP:          resp.IP,
		City:        resp.City,
		Latitude:    floatPtr(resp.Latitude),
		Longitude:   floatPtr(resp.Longitude),
		Method:      model.MethodIP,
	}

	d.metrics.Detections.WithLabelValues(model.MethodIP, "detected").Inc()
	d.logger.Debug("detected region",
		"ip", resp.IP,
		"country_code", resp.CountryCode,
		"region_code", string(z),
	)

	return loc, nil
}

func (d *Detector) fallback(method string, reason error) (model.Location, error) {
	d.metrics.Detections.WithLabelValues(method, "fallback").Inc()
	d.logger.Warn("region detection failed, using default zone", "error", reason.Error())
	return Fallback(reason), &FallbackError{Reason: reason}
}

// Fallback builds the default Location reported when detection fails.
func Fallback(reason error) model.Location {
	loc := model.Location{
		Success:     false,
		Country:     fallbackCountry,
		CountryCode: model.UnknownCountryCode,
		RegionCode:  zone.Default,
		RegionName:  zone.NameForZone(zone.Default),
		Currency:    fallbackCurrency,
		Method:      model.MethodIP,
	}
	if reason != nil {
		loc.Error = reason.Error()
	}
	return loc
}

func floatPtr(f float64) *float64 {
	return &f
}
