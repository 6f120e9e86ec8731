package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"slotnik/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB stores bookings in sqlite and caches the read-only business schedule
// data (services, weekly windows, exception dates) owned by the management
// surface.
type DB struct {
	db     *sql.DB
	logger *zerolog.Logger

	mu             sync.RWMutex
	businessesByID map[int64]models.Business
	slugIndex      map[string]int64
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// sqlite допускает одного писателя; один коннект также сохраняет
	// in-memory базу между запросами
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{
		db:             db,
		logger:         logger,
		businessesByID: make(map[int64]models.Business),
		slugIndex:      make(map[string]int64),
	}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            business_id INTEGER NOT NULL,
            service_id INTEGER NOT NULL,
            service_name TEXT NOT NULL,
            date TEXT NOT NULL,
            start_min INTEGER NOT NULL,
            duration_min INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            client_name TEXT NOT NULL,
            client_phone TEXT NOT NULL,
            note TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            version INTEGER NOT NULL DEFAULT 1
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_business_date ON bookings(business_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_client_phone ON bookings(client_phone)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("exec %q: %w", query, err)
		}
	}
	return nil
}

// SetBusinesses replaces the cached schedule data for all businesses.
func (db *DB) SetBusinesses(businesses []models.Business) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.businessesByID = make(map[int64]models.Business, len(businesses))
	db.slugIndex = make(map[string]int64, len(businesses))
	for _, b := range businesses {
		db.businessesByID[b.ID] = b
		db.slugIndex[b.Slug] = b.ID
	}
}

func (db *DB) GetBusinessBySlug(ctx context.Context, slug string) (*models.Business, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	id, ok := db.slugIndex[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBusiness, slug)
	}
	b := db.businessesByID[id]
	return &b, nil
}

func (db *DB) GetBusinessByID(ctx context.Context, id int64) (*models.Business, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	b, ok := db.businessesByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownBusiness, id)
	}
	return &b, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}
