package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jwalitptl/geo-pricing/pkg/metrics"
)

type instrumentedStore struct {
	next    SlotStore
	backend string
	metrics *metrics.Metrics
}

// Instrument records operation counts and latency for store.
func Instrument(store SlotStore, backend string, m *metrics.Metrics) SlotStore {
	if m == nil {
		return store
	}
	return &instrumentedStore{next: store, backend: backend, metrics: m}
}

func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	status := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "miss"
	case err != nil:
		status = "error"
	}
	s.metrics.StoreOperations.WithLabelValues(s.backend, op, status).Inc()
	s.metrics.StoreLatency.WithLabelValues(s.backend, op).Observe(time.Since(start).Seconds())
}

func (s *instrumentedStore) Get(ctx context.Context, key string) (value []byte, err error) {
	defer func(start time.Time) { s.observe("get", start, err) }(time.Now())
	return s.next.Get(ctx, key)
}

func (s *instrumentedStore) Set(ctx context.Context, key string, value []byte) (err error) {
	defer func(start time.Time) { s.observe("set", start, err) }(time.Now())
	return s.next.Set(ctx, key, value)
}

func (s *instrumentedStore) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())
	return s.next.Delete(ctx, key)
}

// Purge forwards to the wrapped store when it supports purging. Stores that
// expire slots on their own report nothing removed.
func (s *instrumentedStore) Purge(ctx context.Context, cutoff time.Time) (n int64, err error) {
	p, ok := s.next.(Purger)
	if !ok {
		return 0, nil
	}
	defer func(start time.Time) { s.observe("purge", start, err) }(time.Now())
	return p.Purge(ctx, cutoff)
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}
