// Package region locates API clients by combining detection with the
// per-client region cache.
package region

import (
	"context"
	"fmt"

	"github.com/jwalitptl/geo-pricing/internal/model"
	"github.com/jwalitptl/geo-pricing/internal/service/location"
	"github.com/jwalitptl/geo-pricing/internal/service/regioncache"
	"github.com/jwalitptl/geo-pricing/pkg/logger"
)

// Detector is the subset of location.Detector the service needs.
type Detector interface {
	DetectIP(ctx context.Context, ip string) (model.Location, error)
	DetectViaGeolocation(ctx context.Context, source location.CoordinateSource, ip string) (model.Location, error)
}

// Request describes one client to locate.
type Request struct {
	ClientKey string
	IP        string
	// Position switches to the geolocation variant when set.
	Position *location.Coordinates
	// Refresh skips the cache read. A successful result is still stored.
	Refresh bool
}

type Result struct {
	Location model.Location `json:"location"`
	Cached   bool           `json:"cached"`
	Fallback bool           `json:"fallback"`
}

type Service struct {
	detector Detector
	cache    *regioncache.Cache
	logger   *logger.Logger
}

func NewService(detector Detector, cache *regioncache.Cache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		detector: detector,
		cache:    cache,
		logger:   log.Component("region"),
	}
}

// Locate returns the client's region, from its cache slot when fresh. The
// only error it returns is one that leaves no usable Location, such as a
// rejected position; detection failures are reported through Fallback.
func (s *Service) Locate(ctx context.Context, req Request) (Result, error) {
	cache := s.cache.ForClient(req.ClientKey)

	detect := func(ctx context.Context) (model.Location, error) {
		if req.Position != nil {
			return s.detector.DetectViaGeolocation(ctx, location.StaticSource(*req.Position), req.IP)
		}
		return s.detector.DetectIP(ctx, req.IP)
	}

	var (
		loc    model.Location
		cached bool
		err    error
	)
	if req.Refresh {
		loc, err = cache.Refresh(ctx, detect)
	} else {
		loc, cached, err = cache.DetectWithCache(ctx, detect)
	}

	if err != nil && !location.IsFallback(err) {
		return Result{}, err
	}
	if err != nil {
		s.logger.Debug("client located with default zone", "client", cache.Key(), "error", err.Error())
	}

	return Result{
		Location: loc,
		Cached:   cached,
		Fallback: err != nil,
	}, nil
}

// Forget clears the client's cache slot.
func (s *Service) Forget(ctx context.Context, clientKey string) error {
	if err := s.cache.ForClient(clientKey).Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cached region: %w", err)
	}
	return nil
}
