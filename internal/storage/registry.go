package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"secretsanta/internal/models"

	"github.com/google/logger"
	"github.com/google/uuid"
)

// Persistence tells the caller where a write actually landed.
type Persistence int

const (
	// PersistedLocallyOnly means the record lives only in this process and is
	// lost on restart.
	PersistedLocallyOnly Persistence = iota
	// PersistedDurably means the configured external store accepted the write.
	PersistedDurably
)

func (p Persistence) String() string {
	if p == PersistedDurably {
		return "durable"
	}
	return "local"
}

var errIDMismatch = errors.New("storage: draw id does not match key")

// Registry creates, loads and saves draws. It writes to the primary store
// when one is configured and falls back to local memory whenever the primary
// is unavailable.
type Registry struct {
	primary Store // nil when running on memory only
	local   *MemoryStore
	ttl     time.Duration
	newID   func() string
	now     func() time.Time
}

// Option customizes a Registry.
type Option func(*Registry)

// WithTTL sets the expiry window applied on every write.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.ttl = ttl }
}

// WithIDGenerator replaces the random draw id source.
func WithIDGenerator(newID func() string) Option {
	return func(r *Registry) { r.newID = newID }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry builds a Registry. primary may be nil.
func NewRegistry(primary Store, local *MemoryStore, opts ...Option) *Registry {
	if local == nil {
		local = NewMemoryStore()
	}
	r := &Registry{
		primary: primary,
		local:   local,
		ttl:     DefaultTTL,
		newID:   NewDrawID,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDrawID returns a 32 character hex token with 122 random bits.
func NewDrawID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create stores a new draw with no assignments. participants must already be cleaned.
func (r *Registry) Create(ctx context.Context, participants []string) (*models.Draw, Persistence, error) {
	d, err := models.NewDraw(r.newID(), participants, r.now().UnixMilli())
	if err != nil {
		return nil, PersistedLocallyOnly, err
	}

	persistence, err := r.put(ctx, d)
	if err != nil {
		return nil, persistence, fmt.Errorf("create draw: %w", err)
	}
	return d, persistence, nil
}

// Get loads the draw for id. When both backends hold a copy the one with more
// assignments is newer, because assignments only grow.
func (r *Registry) Get(ctx context.Context, id string) (*models.Draw, error) {
	if r.primary == nil {
		return r.local.Get(ctx, id)
	}

	remote, err := r.primary.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warningf("storage: primary read of draw %s failed, using local memory: %v", id, err)
		}
		remote = nil
	}

	local, lerr := r.local.Get(ctx, id)
	if lerr != nil {
		local = nil
	}

	switch {
	case remote == nil && local == nil:
		return nil, ErrNotFound
	case remote == nil:
		return local, nil
	case local == nil:
		return remote, nil
	case local.ClaimedCount() > remote.ClaimedCount():
		return local, nil
	default:
		return remote, nil
	}
}

// Update replaces the stored record for id with d and restarts its expiry.
func (r *Registry) Update(ctx context.Context, id string, d *models.Draw) (Persistence, error) {
	if d != nil && d.ID != id {
		return PersistedLocallyOnly, fmt.Errorf("%w: %q != %q", errIDMismatch, d.ID, id)
	}
	return r.put(ctx, d)
}

// Sweep drops expired records from both backends.
func (r *Registry) Sweep(ctx context.Context) (int, error) {
	now := r.now()
	removed, err := r.local.DeleteExpired(ctx, now)
	if err != nil {
		return removed, err
	}
	if r.primary == nil {
		return removed, nil
	}

	n, err := r.primary.DeleteExpired(ctx, now)
	return removed + n, err
}

// Durable reports whether an external store is configured.
func (r *Registry) Durable() bool {
	return r.primary != nil
}

func (r *Registry) put(ctx context.Context, d *models.Draw) (Persistence, error) {
	if err := checkDraw(d); err != nil {
		return PersistedLocallyOnly, err
	}

	if r.primary != nil {
		err := r.primary.Put(ctx, d, r.ttl)
		if err == nil {
			r.local.Delete(d.ID)
			return PersistedDurably, nil
		}
		logger.Warningf("storage: primary write of draw %s failed, keeping it in local memory only: %v", d.ID, err)
	}

	if err := r.local.Put(ctx, d, r.ttl); err != nil {
		return PersistedLocallyOnly, err
	}
	return PersistedLocallyOnly, nil
}
