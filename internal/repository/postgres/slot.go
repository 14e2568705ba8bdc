package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/geo-pricing/internal/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS region_slots (
	slot_key   TEXT PRIMARY KEY,
	payload    BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	expires_at TIMESTAMPTZ
)`

type slotRepository struct {
	db        *sqlx.DB
	retention time.Duration
}

// NewSlotRepository stores slots in the region_slots table. A positive
// retention makes rows invisible once untouched for that long.
func NewSlotRepository(db *sqlx.DB, retention time.Duration) repository.SlotStore {
	return &slotRepository{db: db, retention: retention}
}

// Migrate creates the region_slots table if needed.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create region_slots: %w", err)
	}
	return nil
}

func (r *slotRepository) Get(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT payload FROM region_slots
		WHERE slot_key = $1 AND (expires_at IS NULL OR expires_at > NOW())
	`

	var payload []byte
	if err := r.db.GetContext(ctx, &payload, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return payload, nil
}

func (r *slotRepository) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO region_slots (slot_key, payload, updated_at, expires_at)
		VALUES ($1, $2, NOW(), $3)
		ON CONFLICT (slot_key) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at
	`

	var expiresAt *time.Time
	if r.retention > 0 {
		t := time.Now().Add(r.retention)
		expiresAt = &t
	}

	if _, err := r.db.ExecContext(ctx, query, key, value, expiresAt); err != nil {
		return fmt.Errorf("failed to set slot: %w", err)
	}
	return nil
}

func (r *slotRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM region_slots WHERE slot_key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	return nil
}

// Purge removes rows whose retention ran out at or before cutoff. Get
// already hides them; this reclaims the space.
func (r *slotRepository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM region_slots WHERE expires_at IS NOT NULL AND expires_at <= $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge slots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged slots: %w", err)
	}
	return n, nil
}

func (r *slotRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
