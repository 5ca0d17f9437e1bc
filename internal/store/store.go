// Package store is the relational storage layer: the containment hierarchy,
// message persistence, and the transactional claiming that gives the pipeline
// its exclusivity guarantee.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"contextd/internal/model"
)

// Store manages the SQLite database behind a gorm handle.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open opens (or creates) the database, applies pragmas and runs migrations.
func Open(dbPath string, logger zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	// WAL for concurrent readers, busy_timeout so competing claim
	// transactions queue instead of erroring, foreign_keys for cascades.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	s.logger.Info().Str("path", dbPath).Msg("store initialized")
	return s, nil
}

func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&model.Project{},
		&model.Space{},
		&model.Session{},
		&model.Message{},
		&model.Block{},
	)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn inside a scoped transaction: commit on nil return, rollback
// on error or panic. This is the sole mutual-exclusion mechanism for message
// claiming; callers must not hold ORM rows past the function's return.
func (s *Store) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// HealthCheck reports whether the database connection is alive.
func (s *Store) HealthCheck(ctx context.Context) bool {
	sqlDB, err := s.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}

// DB returns the underlying gorm handle (for tests).
func (s *Store) DB() *gorm.DB {
	return s.db
}
