// Package worker runs background maintenance for the region cache store.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/geo-pricing/internal/repository"
	"github.com/jwalitptl/geo-pricing/pkg/clock"
	"github.com/jwalitptl/geo-pricing/pkg/logger"
	"github.com/jwalitptl/geo-pricing/pkg/metrics"
)

const defaultCleanupInterval = time.Hour

// SlotCleanupWorker periodically removes expired region slots from stores
// that do not expire them on their own.
type SlotCleanupWorker struct {
	purger   repository.Purger
	interval time.Duration
	clock    clock.Clock
	log      *logger.Logger
	metrics  *metrics.Metrics
}

func NewSlotCleanupWorker(purger repository.Purger, interval time.Duration, c clock.Clock, log *logger.Logger, m *metrics.Metrics) *SlotCleanupWorker {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	if c == nil {
		c = clock.NewSystem()
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.New("worker")
	}
	return &SlotCleanupWorker{
		purger:   purger,
		interval: interval,
		clock:    c,
		log:      log.Component("slot_cleanup"),
		metrics:  m,
	}
}

// Start purges once immediately and then on every tick until ctx is done.
func (w *SlotCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("slot cleanup worker started", "interval", w.interval.String())
	for {
		if _, err := w.RunOnce(ctx); err != nil {
			w.log.Error(err, "slot cleanup failed")
		}

		select {
		case <-ctx.Done():
			w.log.Info("slot cleanup worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single purge pass.
func (w *SlotCleanupWorker) RunOnce(ctx context.Context) (int64, error) {
	cutoff := w.clock.Now()

	n, err := w.purger.Purge(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired slots: %w", err)
	}

	w.metrics.SlotsPurged.Add(float64(n))
	if n > 0 {
		w.log.Info("purged expired slots", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
