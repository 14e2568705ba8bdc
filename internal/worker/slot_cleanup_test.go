package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/geo-pricing/pkg/clock"
	"github.com/jwalitptl/geo-pricing/pkg/metrics"
)

type fakePurger struct {
	mu      sync.Mutex
	cutoffs []time.Time
	removed int64
	err     error
}

func (f *fakePurger) Purge(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.removed, f.err
}

func (f *fakePurger) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, c.Write(&metric))
	return metric.GetCounter().GetValue()
}

func TestSlotCleanupWorker_RunOnce(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	purger := &fakePurger{removed: 3}
	m := metrics.New("test")
	w := NewSlotCleanupWorker(purger, time.Minute, clock.NewManual(now), nil, m)

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []time.Time{now}, purger.cutoffs)
	assert.Equal(t, 3.0, counterValue(t, m.SlotsPurged))
}

func TestSlotCleanupWorker_RunOnceError(t *testing.T) {
	purger := &fakePurger{err: errors.New("connection refused")}
	m := metrics.New("test")
	w := NewSlotCleanupWorker(purger, time.Minute, nil, nil, m)

	_, err := w.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 0.0, counterValue(t, m.SlotsPurged))
}

func TestSlotCleanupWorker_Start(t *testing.T) {
	purger := &fakePurger{}
	w := NewSlotCleanupWorker(purger, 10*time.Millisecond, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return purger.calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestNewSlotCleanupWorker_DefaultInterval(t *testing.T) {
	w := NewSlotCleanupWorker(&fakePurger{}, 0, nil, nil, nil)
	assert.Equal(t, defaultCleanupInterval, w.interval)
}
