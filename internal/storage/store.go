package storage

import (
	"context"
	"errors"
	"time"

	"secretsanta/internal/models"
)

// DefaultTTL is how long a draw is kept after its last write.
const DefaultTTL = 30 * 24 * time.Hour

var (
	ErrNotFound = errors.New("storage: draw not found")
	ErrNilDraw  = errors.New("storage: draw is nil")
	ErrEmptyID  = errors.New("storage: draw id is empty")
)

// Store is a keyed draw backend with per-record expiry.
// Get returns ErrNotFound for unknown and expired ids.
// Put replaces the whole record and restarts its expiry window; ttl <= 0 means no expiry.
type Store interface {
	Get(ctx context.Context, id string) (*models.Draw, error)
	Put(ctx context.Context, d *models.Draw, ttl time.Duration) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

func checkDraw(d *models.Draw) error {
	if d == nil {
		return ErrNilDraw
	}
	if d.ID == "" {
		return ErrEmptyID
	}
	return nil
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
