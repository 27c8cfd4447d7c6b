// Package storage persists finished result sets. The column layout is
// the canonical persisted shape of a business record; the field name
// mapping from the in-memory record happens here and nowhere else.
package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"sync"

	_ "modernc.org/sqlite"

	"mapleads/internal/model"
)

type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS businesses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		type TEXT,
		address TEXT,
		phone TEXT,
		website TEXT,
		rating TEXT,
		reviews TEXT,
		open_state TEXT,
		description TEXT,
		service_options TEXT,
		latitude REAL,
		longitude REAL,
		search_query TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(title, address)
	);
	CREATE INDEX IF NOT EXISTS idx_businesses_search_query ON businesses(search_query);
	CREATE INDEX IF NOT EXISTS idx_businesses_type ON businesses(type);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// InsertBatch writes a result set in one transaction, skipping rows
// whose title/address pair is already stored. It returns the number of
// rows actually inserted.
func (s *Store) InsertBatch(records []model.BusinessRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO businesses
		(title, type, address, phone, website, rating, reviews,
		 open_state, description, service_options, latitude, longitude, search_query)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		lat, lng := coords(rec)
		res, err := stmt.Exec(
			rec.Title, rec.Category, rec.Address, rec.Phone, rec.Website,
			rec.Rating, rec.ReviewCount, rec.Hours, rec.Description,
			rec.ServiceOptions, lat, lng, rec.SourceQuery,
		)
		if err != nil {
			continue
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing tx: %w", err)
	}

	return inserted, nil
}

// coords converts the string coordinate pair to nullable floats. A
// record without coordinates stores NULLs, not zeroes.
func coords(rec model.BusinessRecord) (any, any) {
	if rec.Coordinates == nil {
		return nil, nil
	}
	lat, errLat := strconv.ParseFloat(rec.Coordinates.Latitude, 64)
	lng, errLng := strconv.ParseFloat(rec.Coordinates.Longitude, 64)
	if errLat != nil || errLng != nil {
		return nil, nil
	}
	return lat, lng
}

func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM businesses").Scan(&count)
	return count, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
