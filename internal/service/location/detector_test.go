package location

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/geo-pricing/internal/model"
	"github.com/jwalitptl/geo-pricing/internal/zone"
	"github.com/jwalitptl/geo-pricing/pkg/circuitbreaker"
)

const germanPayload = `{
	"ip": "203.0.113.7",
	"city": "Berlin",
	"country_name": "Germany",
	"country_code": "DE",
	"currency": "EUR",
	"latitude": 52.52,
	"longitude": 13.405
}`

func newTestDetector(t *testing.T, handler http.HandlerFunc) (*Detector, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	d := NewDetector(NewHTTPProvider(srv.URL, 2*time.Second), Options{
		FailureThreshold: 3,
		OpenTimeout:      time.Minute,
	}, nil, nil)
	return d, srv
}

func TestDetect_Success(t *testing.T) {
	var path string
	d, _ := newTestDetector(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(germanPayload))
	})

	loc, err := d.Detect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/json/", path)
	assert.True(t, loc.Success)
	assert.Equal(t, model.CountryCode("DE"), loc.CountryCode)
	assert.Equal(t, "Germany", loc.Country)
	assert.Equal(t, zone.Zone2, loc.RegionCode)
	assert.Equal(t, "Western Europe", loc.RegionName)
	assert.Equal(t, "EUR", loc.Currency)
	assert.Equal(t, "Berlin", loc.City)
	assert.Equal(t, model.MethodIP, loc.Method)
	require.NotNil(t, loc.Latitude)
	assert.InDelta(t, 52.52, *loc.Latitude, 0.0001)
	assert.Empty(t, loc.Error)
}

func TestDetectIP_UsesAddressInPath(t *testing.T) {
	var path string
	d, _ := newTestDetector(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(germanPayload))
	})

	_, err := d.DetectIP(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, "/203.0.113.7/json/", path)
}

func TestDetectIP_InvalidAddress(t *testing.T) {
	var calls int32
	d, _ := newTestDetector(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	loc, err := d.DetectIP(context.Background(), "not-an-ip")
	require.Error(t, err)
	assert.True(t, IsFallback(err))
	assert.Equal(t, zone.Default, loc.RegionCode)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestDetect_Fallbacks(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error": true, "reason": "RateLimited"}`))
			},
		},
		{
			name: "provider reported error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"error": true, "reason": "Reserved IP Address"}`))
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>`))
			},
		},
		{
			name: "missing country",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"ip": "203.0.113.7"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDetector(t, tt.handler)

			loc, err := d.Detect(context.Background())
			require.Error(t, err)
			assert.True(t, IsFallback(err))

			assert.False(t, loc.Success)
			assert.Equal(t, model.UnknownCountryCode, loc.CountryCode)
			assert.Equal(t, "Unknown", loc.Country)
			assert.Equal(t, zone.Zone6, loc.RegionCode)
			assert.Equal(t, zone.NameForZone(zone.Zone6), loc.RegionName)
			assert.Equal(t, "USD", loc.Currency)
			assert.NotEmpty(t, loc.Error)
		})
	}
}

func TestDetect_UnreachableProvider(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	d := NewDetector(NewHTTPProvider(url, time.Second), Options{}, nil, nil)
	loc, err := d.Detect(context.Background())

	require.Error(t, err)
	assert.False(t, loc.Success)
	assert.Equal(t, zone.Default, loc.RegionCode)
}

func TestDetect_BreakerOpensAfterFailures(t *testing.T) {
	var calls int32
	d, _ := newTestDetector(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 3; i++ {
		_, err := d.Detect(context.Background())
		require.Error(t, err)
	}
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))

	loc, err := d.Detect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, circuitbreaker.ErrOpen))
	assert.Equal(t, zone.Default, loc.RegionCode)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestDetectIP_NonPublicAddressSkipsProvider(t *testing.T) {
	var calls int32
	d, _ := newTestDetector(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(germanPayload))
	})

	for _, ip := range []string{"10.0.0.1", "192.168.1.20", "127.0.0.1", "::1", "169.254.10.1", "fd00::1", "0.0.0.0"} {
		loc, err := d.DetectIP(context.Background(), ip)
		require.Error(t, err, ip)
		assert.True(t, IsFallback(err), ip)
		assert.Equal(t, zone.Default, loc.RegionCode, ip)
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestDetect_RejectedLookupsKeepBreakerClosed(t *testing.T) {
	const refused = "198.51.100.1"
	var calls int32
	d, _ := newTestDetector(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		switch r.URL.Path {
		case "/" + refused + "/json/":
			w.Write([]byte(`{"ip": "198.51.100.1", "error": true, "reason": "Reserved IP Address"}`))
		case "/198.51.100.2/json/":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Write([]byte(germanPayload))
		}
	})

	for i := 0; i < 5; i++ {
		_, err := d.DetectIP(context.Background(), refused)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrLookupRejected)

		_, err = d.DetectIP(context.Background(), "198.51.100.2")
		assert.ErrorIs(t, err, ErrLookupRejected)
	}
	assert.EqualValues(t, 10, atomic.LoadInt32(&calls))

	loc, err := d.DetectIP(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, loc.Success)
	assert.Equal(t, zone.Zone2, loc.RegionCode)
}

type failingSource struct{ err error }

func (f failingSource) Position(context.Context) (Coordinates, error) {
	return Coordinates{}, f.err
}

func TestDetectViaGeolocation(t *testing.T) {
	d, _ := newTestDetector(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(germanPayload))
	})

	t.Run("nil source is unsupported", func(t *testing.T) {
		loc, err := d.DetectViaGeolocation(context.Background(), nil, "")
		assert.ErrorIs(t, err, ErrGeolocationUnsupported)
		assert.Equal(t, model.Location{}, loc)
	})

	t.Run("position error propagates", func(t *testing.T) {
		denied := errors.New("permission denied")
		_, err := d.DetectViaGeolocation(context.Background(), failingSource{err: denied}, "")
		assert.ErrorIs(t, err, denied)
		assert.False(t, IsFallback(err))
	})

	t.Run("out of range coordinates", func(t *testing.T) {
		_, err := d.DetectViaGeolocation(context.Background(), StaticSource{Latitude: 91}, "")
		assert.Error(t, err)
	})

	t.Run("coordinates attached to IP result", func(t *testing.T) {
		loc, err := d.DetectViaGeolocation(context.Background(), StaticSource{Latitude: 48.85, Longitude: 2.35}, "")
		require.NoError(t, err)

		assert.Equal(t, model.MethodGeolocation, loc.Method)
		assert.Equal(t, zone.Zone2, loc.RegionCode)
		require.NotNil(t, loc.Latitude)
		require.NotNil(t, loc.Longitude)
		assert.InDelta(t, 48.85, *loc.Latitude, 0.0001)
		assert.InDelta(t, 2.35, *loc.Longitude, 0.0001)
	})
}

func TestDetectViaGeolocation_ProviderDown(t *testing.T) {
	d, _ := newTestDetector(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	loc, err := d.DetectViaGeolocation(context.Background(), StaticSource{Latitude: 1, Longitude: 2}, "")
	require.Error(t, err)
	assert.True(t, IsFallback(err))
	assert.Equal(t, model.MethodGeolocation, loc.Method)
	assert.Equal(t, zone.Default, loc.RegionCode)
	require.NotNil(t, loc.Latitude)
	assert.InDelta(t, 1.0, *loc.Latitude, 0.0001)
}
