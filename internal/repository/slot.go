package repository

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by SlotStore.Get when the key holds no value.
var ErrNotFound = errors.New("slot not found")

// SlotStore is a flat key/value store holding serialized cache slots.
// Implementations must be safe for concurrent use.
type SlotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Purger is implemented by stores that keep expired slots until they are
// removed explicitly. Purge deletes slots that expired at or before cutoff
// and returns how many were removed.
type Purger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}
