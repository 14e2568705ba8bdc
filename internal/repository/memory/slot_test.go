package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/geo-pricing/internal/repository"
)

func TestSlotStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSlotStore(0, time.Minute)

	_, err := store.Get(ctx, "region:a")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, store.Set(ctx, "region:a", []byte(`{"v":1}`)))
	require.NoError(t, store.Set(ctx, "region:a", []byte(`{"v":2}`)))

	got, err := store.Get(ctx, "region:a")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(got))

	require.NoError(t, store.Delete(ctx, "region:a"))
	_, err = store.Get(ctx, "region:a")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, store.Ping(ctx))
}

func TestSlotStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewSlotStore(0, time.Minute)

	buf := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", buf))
	buf[0] = 'z'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'z'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestSlotStore_Retention(t *testing.T) {
	ctx := context.Background()
	store := NewSlotStore(20*time.Millisecond, time.Minute)

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	time.Sleep(40 * time.Millisecond)

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
