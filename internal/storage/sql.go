package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"secretsanta/internal/models"

	"github.com/goccy/go-json"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Supported values for the store driver setting.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrUnknownDriver = errors.New("storage: unknown driver")
	errMissingDB     = errors.New("storage: gorm db is missing")
)

// drawRecord is the row layout of the draws table. Participants and
// assignments are kept as JSON text so sqlite and postgres share one schema.
type drawRecord struct {
	ID           string     `gorm:"primaryKey;type:varchar(64)"`
	Participants string     `gorm:"type:text;not null"`
	Assignments  string     `gorm:"type:text;not null"`
	CreatedAtMs  int64      `gorm:"column:created_at_ms;not null"`
	ExpiresAt    *time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

func (drawRecord) TableName() string {
	return "draws"
}

// OpenSQL connects to the database behind driver/dsn.
func OpenSQL(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return db, nil
}

// SQLStore keeps draws in a SQL table through gorm.
type SQLStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSQLStore migrates the draws table and returns a store on top of db.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if db == nil {
		return nil, errMissingDB
	}
	if err := db.AutoMigrate(&drawRecord{}); err != nil {
		return nil, fmt.Errorf("migrate draws table: %w", err)
	}
	return &SQLStore{db: db, now: time.Now}, nil
}

// Get loads the draw for id, ignoring rows past their expiry.
func (s *SQLStore) Get(ctx context.Context, id string) (*models.Draw, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	var rec drawRecord
	err := s.db.WithContext(ctx).
		Where("id = ? AND (expires_at IS NULL OR expires_at > ?)", id, s.now().UTC()).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get draw %s: %w", id, err)
	}

	return restoreDraw(rec)
}

// Put inserts or fully replaces the row for d.ID.
func (s *SQLStore) Put(ctx context.Context, d *models.Draw, ttl time.Duration) error {
	if err := checkDraw(d); err != nil {
		return err
	}

	rec, err := newDrawRecord(d)
	if err != nil {
		return err
	}
	if exp := expiry(s.now().UTC(), ttl); !exp.IsZero() {
		rec.ExpiresAt = &exp
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("put draw %s: %w", d.ID, err)
	}
	return nil
}

// DeleteExpired removes rows whose expiry is at or before now.
func (s *SQLStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now.UTC()).
		Delete(&drawRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired draws: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func newDrawRecord(d *models.Draw) (drawRecord, error) {
	participants, err := json.Marshal(d.Participants)
	if err != nil {
		return drawRecord{}, fmt.Errorf("encode participants: %w", err)
	}
	assignments := d.Assignments
	if assignments == nil {
		assignments = map[string]string{}
	}
	encoded, err := json.Marshal(assignments)
	if err != nil {
		return drawRecord{}, fmt.Errorf("encode assignments: %w", err)
	}

	return drawRecord{
		ID:           d.ID,
		Participants: string(participants),
		Assignments:  string(encoded),
		CreatedAtMs:  d.CreatedAt,
	}, nil
}

// restoreDraw decodes a row and rejects records that break the draw invariants.
func restoreDraw(rec drawRecord) (*models.Draw, error) {
	d := &models.Draw{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAtMs,
	}
	if err := json.Unmarshal([]byte(rec.Participants), &d.Participants); err != nil {
		return nil, fmt.Errorf("decode participants of %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(rec.Assignments), &d.Assignments); err != nil {
		return nil, fmt.Errorf("decode assignments of %s: %w", rec.ID, err)
	}
	if d.Assignments == nil {
		d.Assignments = make(map[string]string)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("restore draw %s: %w", rec.ID, err)
	}
	return d, nil
}
