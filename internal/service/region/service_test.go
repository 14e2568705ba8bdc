package region

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/geo-pricing/internal/model"
	"github.com/jwalitptl/geo-pricing/internal/repository/memory"
	"github.com/jwalitptl/geo-pricing/internal/service/location"
	"github.com/jwalitptl/geo-pricing/internal/service/regioncache"
	"github.com/jwalitptl/geo-pricing/pkg/clock"
)

type stubDetector struct {
	calls  int
	ips    []string
	loc    model.Location
	err    error
	geoErr error
}

func (s *stubDetector) DetectIP(_ context.Context, ip string) (model.Location, error) {
	s.calls++
	s.ips = append(s.ips, ip)
	return s.loc, s.err
}

func (s *stubDetector) DetectViaGeolocation(ctx context.Context, source location.CoordinateSource, ip string) (model.Location, error) {
	if s.geoErr != nil {
		return model.Location{}, s.geoErr
	}
	pos, err := source.Position(ctx)
	if err != nil {
		return model.Location{}, err
	}
	loc, err := s.DetectIP(ctx, ip)
	loc.Latitude = &pos.Latitude
	loc.Longitude = &pos.Longitude
	loc.Method = model.MethodGeolocation
	return loc, err
}

func newTestService(d *stubDetector) *Service {
	store := memory.NewSlotStore(0, time.Minute)
	cache := regioncache.New(store, regioncache.Options{
		Clock: clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	})
	return NewService(d, cache, nil)
}

func germany() model.Location {
	return model.Location{Success: true, CountryCode: "DE", RegionCode: "zone_2", RegionName: "Western Europe", Method: model.MethodIP}
}

func TestLocate_CachesPerClient(t *testing.T) {
	ctx := context.Background()
	d := &stubDetector{loc: germany()}
	svc := newTestService(d)

	res, err := svc.Locate(ctx, Request{ClientKey: "a", IP: "203.0.113.7"})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.False(t, res.Fallback)
	assert.Equal(t, model.ZoneID("zone_2"), res.Location.RegionCode)

	res, err = svc.Locate(ctx, Request{ClientKey: "a", IP: "203.0.113.7"})
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, 1, d.calls)

	_, err = svc.Locate(ctx, Request{ClientKey: "b", IP: "198.51.100.1"})
	require.NoError(t, err)
	assert.Equal(t, 2, d.calls)
	assert.Equal(t, []string{"203.0.113.7", "198.51.100.1"}, d.ips)
}

func TestLocate_Refresh(t *testing.T) {
	ctx := context.Background()
	d := &stubDetector{loc: germany()}
	svc := newTestService(d)

	_, err := svc.Locate(ctx, Request{ClientKey: "a"})
	require.NoError(t, err)

	res, err := svc.Locate(ctx, Request{ClientKey: "a", Refresh: true})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 2, d.calls)
}

func TestLocate_FallbackNotCached(t *testing.T) {
	ctx := context.Background()
	reason := errors.New("provider down")
	d := &stubDetector{
		loc: location.Fallback(reason),
		err: &location.FallbackError{Reason: reason},
	}
	svc := newTestService(d)

	res, err := svc.Locate(ctx, Request{ClientKey: "a"})
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.False(t, res.Location.Success)
	assert.Equal(t, model.ZoneID("zone_6"), res.Location.RegionCode)

	_, err = svc.Locate(ctx, Request{ClientKey: "a"})
	require.NoError(t, err)
	assert.Equal(t, 2, d.calls)
}

func TestLocate_Position(t *testing.T) {
	ctx := context.Background()
	d := &stubDetector{loc: germany()}
	svc := newTestService(d)

	res, err := svc.Locate(ctx, Request{
		ClientKey: "a",
		Position:  &location.Coordinates{Latitude: 52.5, Longitude: 13.4},
	})
	require.NoError(t, err)
	assert.Equal(t, model.MethodGeolocation, res.Location.Method)
	require.NotNil(t, res.Location.Latitude)
	assert.InDelta(t, 52.5, *res.Location.Latitude, 0.0001)
}

func TestLocate_PositionErrorPropagates(t *testing.T) {
	d := &stubDetector{loc: germany(), geoErr: location.ErrGeolocationUnsupported}
	svc := newTestService(d)

	_, err := svc.Locate(context.Background(), Request{
		ClientKey: "a",
		Position:  &location.Coordinates{},
	})
	assert.ErrorIs(t, err, location.ErrGeolocationUnsupported)
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	d := &stubDetector{loc: germany()}
	svc := newTestService(d)

	_, err := svc.Locate(ctx, Request{ClientKey: "a"})
	require.NoError(t, err)
	require.NoError(t, svc.Forget(ctx, "a"))

	res, err := svc.Locate(ctx, Request{ClientKey: "a"})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 2, d.calls)
}
