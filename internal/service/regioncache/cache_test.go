package regioncache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/geo-pricing/internal/model"
	"github.com/jwalitptl/geo-pricing/internal/repository"
	"github.com/jwalitptl/geo-pricing/internal/repository/memory"
	"github.com/jwalitptl/geo-pricing/pkg/clock"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCache(t *testing.T) (*Cache, repository.SlotStore, *clock.Manual) {
	t.Helper()
	store := memory.NewSlotStore(0, time.Minute)
	clk := clock.NewManual(epoch)
	return New(store, Options{Clock: clk}), store, clk
}

func germany() model.Location {
	return model.Location{
		Success:     true,
		Country:     "Germany",
		CountryCode: "DE",
		RegionCode:  "zone_2",
		RegionName:  "Western Europe",
		Currency:    "EUR",
		Method:      model.MethodIP,
	}
}

func TestCache_PutGet(t *testing.T) {
	ctx := context.Background()
	cache, _, clk := newTestCache(t)

	cache.Put(ctx, germany())
	clk.Advance(time.Hour)

	cached, ok := cache.GetDefault(ctx)
	require.True(t, ok)
	assert.Equal(t, germany(), cached.Location)
	assert.True(t, cached.CachedAt.Equal(epoch))
	assert.Equal(t, time.Hour, cached.Age(clk.Now()))
}

func TestCache_GetMissing(t *testing.T) {
	cache, _, _ := newTestCache(t)

	cached, ok := cache.GetDefault(context.Background())
	assert.False(t, ok)
	assert.Nil(t, cached)
}

func TestCache_ExpiryEvictsSlot(t *testing.T) {
	ctx := context.Background()
	cache, store, clk := newTestCache(t)

	cache.Put(ctx, germany())
	clk.Advance(DefaultMaxAge + time.Second)

	cached, ok := cache.GetDefault(ctx)
	assert.False(t, ok)
	assert.Nil(t, cached)

	_, err := store.Get(ctx, cache.Key())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCache_ExactlyMaxAgeIsFresh(t *testing.T) {
	ctx := context.Background()
	cache, _, clk := newTestCache(t)

	cache.Put(ctx, germany())
	clk.Advance(DefaultMaxAge)

	_, ok := cache.GetDefault(ctx)
	assert.True(t, ok)
}

func TestCache_ZeroMaxAgeExpiresEverything(t *testing.T) {
	ctx := context.Background()
	cache, store, _ := newTestCache(t)

	cache.Put(ctx, germany())

	cached, ok := cache.Get(ctx, 0)
	assert.False(t, ok)
	assert.Nil(t, cached)

	_, err := store.Get(ctx, cache.Key())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCache_CorruptSlot(t *testing.T) {
	ctx := context.Background()
	cache, store, _ := newTestCache(t)

	require.NoError(t, store.Set(ctx, cache.Key(), []byte("{not json")))

	cached, ok := cache.GetDefault(ctx)
	assert.False(t, ok)
	assert.Nil(t, cached)
}

func TestCache_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	cache, _, clk := newTestCache(t)

	cache.Put(ctx, germany())
	clk.Advance(time.Minute)

	us := germany()
	us.CountryCode = "US"
	us.RegionCode = "zone_1"
	cache.Put(ctx, us)

	cached, ok := cache.GetDefault(ctx)
	require.True(t, ok)
	assert.Equal(t, model.ZoneID("zone_1"), cached.Location.RegionCode)
	assert.True(t, cached.CachedAt.Equal(epoch.Add(time.Minute)))
}

func TestCache_Clear(t *testing.T) {
	ctx := context.Background()
	cache, _, _ := newTestCache(t)

	cache.Put(ctx, germany())
	require.NoError(t, cache.Clear(ctx))
	require.NoError(t, cache.Clear(ctx))

	_, ok := cache.GetDefault(ctx)
	assert.False(t, ok)
}

func TestCache_DetectWithCache(t *testing.T) {
	ctx := context.Background()
	cache, _, clk := newTestCache(t)

	calls := 0
	detect := func(context.Context) (model.Location, error) {
		calls++
		return germany(), nil
	}

	loc, cached, err := cache.DetectWithCache(ctx, detect)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, germany(), loc)

	clk.Advance(time.Hour)
	loc, cached, err = cache.DetectWithCache(ctx, detect)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, germany(), loc)
	assert.Equal(t, 1, calls)

	clk.Advance(DefaultMaxAge)
	_, cached, err = cache.DetectWithCache(ctx, detect)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, calls)
}

func TestCache_FailuresAreNotCached(t *testing.T) {
	ctx := context.Background()
	cache, store, _ := newTestCache(t)

	reason := errors.New("provider down")
	fallback := model.Location{
		Success:     false,
		CountryCode: model.UnknownCountryCode,
		RegionCode:  "zone_6",
		Currency:    "USD",
		Error:       reason.Error(),
	}

	loc, cached, err := cache.DetectWithCache(ctx, func(context.Context) (model.Location, error) {
		return fallback, reason
	})
	assert.ErrorIs(t, err, reason)
	assert.False(t, cached)
	assert.Equal(t, fallback, loc)

	_, err = store.Get(ctx, cache.Key())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCache_ForClient(t *testing.T) {
	ctx := context.Background()
	cache, store, _ := newTestCache(t)

	alice := cache.ForClient("alice")
	bob := cache.ForClient("bob")

	assert.True(t, strings.HasPrefix(alice.Key(), "region:"))
	assert.NotContains(t, alice.Key(), "alice")
	assert.Equal(t, alice.Key(), cache.ForClient("alice").Key())
	assert.NotEqual(t, alice.Key(), bob.Key())
	assert.Equal(t, DefaultKey, cache.Key())

	alice.Put(ctx, germany())

	_, ok := bob.GetDefault(ctx)
	assert.False(t, ok)
	_, ok = cache.GetDefault(ctx)
	assert.False(t, ok)

	_, err := store.Get(ctx, alice.Key())
	assert.NoError(t, err)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errors.New("boom") }
func (brokenStore) Set(context.Context, string, []byte) error   { return errors.New("boom") }
func (brokenStore) Delete(context.Context, string) error        { return errors.New("boom") }
func (brokenStore) Ping(context.Context) error                  { return errors.New("boom") }

func TestCache_StoreFailuresAreAbsorbed(t *testing.T) {
	ctx := context.Background()
	cache := New(brokenStore{}, Options{Clock: clock.NewManual(epoch)})

	assert.NotPanics(t, func() { cache.Put(ctx, germany()) })

	_, ok := cache.GetDefault(ctx)
	assert.False(t, ok)

	loc, cached, err := cache.DetectWithCache(ctx, func(context.Context) (model.Location, error) {
		return germany(), nil
	})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, germany(), loc)

	assert.Error(t, cache.Clear(ctx))
}

func TestCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	cache, _, _ := newTestCache(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			cache.Put(ctx, germany())
		}()
		go func() {
			defer wg.Done()
			if cached, ok := cache.GetDefault(ctx); ok {
				assert.Equal(t, germany(), cached.Location)
			}
		}()
	}
	wg.Wait()

	cached, ok := cache.GetDefault(ctx)
	require.True(t, ok)
	assert.Equal(t, germany(), cached.Location)
}
