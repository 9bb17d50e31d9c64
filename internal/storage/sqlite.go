// Package storage implements the persistence layer using SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mtowers/ledgermind/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the service.Storage interface using SQLite.
type SQLiteStorage struct {
	cacheExpiry   time.Time
	db            *sql.DB
	overrideCache map[string]*model.UserOverride
	dbPath        string
	cacheMutex    sync.RWMutex
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:            db,
		dbPath:        dbPath,
		overrideCache: make(map[string]*model.UserOverride),
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// overrideCacheKey joins user and merchant into the cache key.
func overrideCacheKey(userID, merchantKey string) string {
	return userID + "\x00" + merchantKey
}

// getCachedOverride retrieves an override from the cache.
func (s *SQLiteStorage) getCachedOverride(userID, merchantKey string) *model.UserOverride {
	s.cacheMutex.RLock()

	if time.Now().After(s.cacheExpiry) {
		// Cache expired, needs to be cleared
		s.cacheMutex.RUnlock()
		s.cacheMutex.Lock()
		defer s.cacheMutex.Unlock()

		// Double-check after acquiring write lock
		if time.Now().After(s.cacheExpiry) {
			s.overrideCache = make(map[string]*model.UserOverride)
		}
		return nil
	}

	override := s.overrideCache[overrideCacheKey(userID, merchantKey)]
	s.cacheMutex.RUnlock()
	return override
}

// cacheOverride adds an override to the cache.
func (s *SQLiteStorage) cacheOverride(override *model.UserOverride) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	if len(s.overrideCache) == 0 {
		// Set cache expiry on first entry
		s.cacheExpiry = time.Now().Add(5 * time.Minute)
	}
	s.overrideCache[overrideCacheKey(override.UserID, override.MerchantKey)] = override
}

// WarmOverrideCache loads all of a user's overrides into the cache.
func (s *SQLiteStorage) WarmOverrideCache(ctx context.Context, userID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	overrides, err := s.GetOverridesForUser(ctx, userID)
	if err != nil {
		return err
	}

	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	for i := range overrides {
		s.overrideCache[overrideCacheKey(overrides[i].UserID, overrides[i].MerchantKey)] = &overrides[i]
	}
	s.cacheExpiry = time.Now().Add(5 * time.Minute)
	return nil
}
