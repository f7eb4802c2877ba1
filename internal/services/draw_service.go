package services

import (
	"context"
	"fmt"
	"time"

	"secretsanta/internal/models"
	"secretsanta/internal/storage"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/logger"
)

// ErrDrawNotFound is returned for unknown or expired draw ids.
var ErrDrawNotFound = storage.ErrNotFound

const sweepTimeout = 30 * time.Second

// DrawRegistry is the persistence the service needs.
type DrawRegistry interface {
	Create(ctx context.Context, participants []string) (*models.Draw, storage.Persistence, error)
	Get(ctx context.Context, id string) (*models.Draw, error)
	Update(ctx context.Context, id string, d *models.Draw) (storage.Persistence, error)
	Sweep(ctx context.Context) (int, error)
}

// ClaimResult is what a successful claim shows the claimant.
type ClaimResult struct {
	Recipient    string
	ClaimedCount int
	TotalCount   int
	Complete     bool
	Persistence  storage.Persistence
}

// DrawService runs the create and claim flows on top of a DrawRegistry.
type DrawService struct {
	registry DrawRegistry
	picker   Picker
	locks    stripedMutex
}

// NewDrawService creates a DrawService. A nil picker means RandomPicker.
func NewDrawService(registry DrawRegistry, picker Picker) *DrawService {
	if picker == nil {
		picker = RandomPicker
	}
	return &DrawService{
		registry: registry,
		picker:   picker,
	}
}

// CreateDraw stores a new draw for a cleaned participant list.
func (s *DrawService) CreateDraw(ctx context.Context, participants []string) (*models.Draw, storage.Persistence, error) {
	d, persistence, err := s.registry.Create(ctx, participants)
	if err != nil {
		return nil, persistence, err
	}
	logger.Infof("Created draw %s with %d participants (%s)", d.ID, d.TotalCount(), persistence)
	return d, persistence, nil
}

// GetDraw loads a draw by id.
func (s *DrawService) GetDraw(ctx context.Context, id string) (*models.Draw, error) {
	return s.registry.Get(ctx, id)
}

// ClaimAssignment draws a recipient for name in draw id and saves the result.
// Claims on the same id are serialized within this process only; two
// instances sharing a store can still overwrite each other.
func (s *DrawService) ClaimAssignment(ctx context.Context, id, name string) (*ClaimResult, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	d, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, recipient, err := Claim(d, name, s.picker)
	if err != nil {
		return nil, err
	}

	persistence, err := s.registry.Update(ctx, id, updated)
	if err != nil {
		return nil, fmt.Errorf("save claim on draw %s: %w", id, err)
	}
	logger.Infof("Draw %s: %d of %d participants have drawn (%s)", id, updated.ClaimedCount(), updated.TotalCount(), persistence)

	return &ClaimResult{
		Recipient:    recipient,
		ClaimedCount: updated.ClaimedCount(),
		TotalCount:   updated.TotalCount(),
		Complete:     updated.Complete(),
		Persistence:  persistence,
	}, nil
}

// CleanUpExpiredDraws removes draws past their expiry from every backend.
func (s *DrawService) CleanUpExpiredDraws() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	removed, err := s.registry.Sweep(ctx)
	if err != nil {
		logger.Errorf("Failed to clean up expired draws: %v", err)
		return
	}
	if removed > 0 {
		logger.Infof("Removed %d expired draws.", removed)
	}
}

// StartJanitor runs CleanUpExpiredDraws every interval until the returned
// scheduler is shut down.
func (s *DrawService) StartJanitor(interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.CleanUpExpiredDraws),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule expired draw cleanup: %w", err)
	}

	sched.Start()
	return sched, nil
}
