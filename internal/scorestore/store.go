package scorestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"veil/internal/config"
	"veil/internal/logging"
	"veil/internal/scores"
)

// Store manages score record persistence backed by SQLite with an in-memory
// read cache keyed by media id.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*scores.Record
}

// Open initializes or connects to the score database and verifies the schema.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "scores.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:     db,
		path:   dbPath,
		logger: logging.NewComponentLogger(logger, "scorestore"),
		cache:  make(map[string]*scores.Record),
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns the record for mediaID, or nil when no record exists. The
// cache is consulted first; on a miss the durable row is loaded lazily and
// populates the cache before returning.
func (s *Store) Get(ctx context.Context, mediaID string) (*scores.Record, error) {
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return nil, errors.New("media id is required")
	}

	s.mu.RLock()
	record, found := s.cache[mediaID]
	s.mu.RUnlock()
	if found {
		return record, nil
	}

	record, err := s.loadOne(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	s.mu.Lock()
	// Another goroutine may have raced the lazy load; the stored row is the
	// same either way, so last write wins.
	s.cache[mediaID] = record
	s.mu.Unlock()
	return record, nil
}

// ActiveSegments returns every segment of mediaID whose range contains t,
// inclusive of both bounds. No record means no active segments.
func (s *Store) ActiveSegments(ctx context.Context, mediaID string, t float64) ([]scores.Segment, error) {
	record, err := s.Get(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	return record.ActiveSegments(t), nil
}

// NextBoundary returns the smallest segment start strictly after t for
// mediaID; ok is false when no segment starts after t or no record exists.
func (s *Store) NextBoundary(ctx context.Context, mediaID string, t float64) (float64, bool, error) {
	record, err := s.Get(ctx, mediaID)
	if err != nil {
		return 0, false, err
	}
	next, ok := record.NextBoundary(t)
	return next, ok, nil
}

// Put validates the record, persists it durably, and replaces the cache
// entry. The replacement is wholesale: no merging with any prior version.
func (s *Store) Put(ctx context.Context, record *scores.Record) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	segmentsJSON, err := json.Marshal(record.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO score_records (media_id, version, created_at, content_hash, segments_json)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(media_id) DO UPDATE SET
             version = excluded.version,
             created_at = excluded.created_at,
             content_hash = excluded.content_hash,
             segments_json = excluded.segments_json`,
		record.MediaID,
		record.Version,
		record.CreatedAt.Format(time.RFC3339Nano),
		nullableString(record.ContentHash),
		string(segmentsJSON),
	); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}

	s.mu.Lock()
	s.cache[record.MediaID] = record
	s.mu.Unlock()

	s.logger.Debug("stored score record",
		logging.String(logging.FieldMediaID, record.MediaID),
		logging.Int("version", record.Version),
		logging.Int("segments", len(record.Segments)),
	)
	return nil
}

// Delete removes the record for mediaID from both the cache and durable
// storage. Deleting an absent record is a no-op.
func (s *Store) Delete(ctx context.Context, mediaID string) error {
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return errors.New("media id is required")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM score_records WHERE media_id = ?`, mediaID); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	s.mu.Lock()
	delete(s.cache, mediaID)
	s.mu.Unlock()
	return nil
}

// LoadAll bulk-hydrates the cache from durable storage and returns the
// number of records loaded. A corrupt or unreadable row is logged and
// skipped; it never aborts loading of the remaining records.
func (s *Store) LoadAll(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT media_id, version, created_at, content_hash, segments_json FROM score_records`)
	if err != nil {
		return 0, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	loaded := make(map[string]*scores.Record)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			s.logger.Warn("skipping unreadable score record",
				logging.Error(err),
				logging.String(logging.FieldEventType, "score_record_skipped"),
				logging.String(logging.FieldErrorHint, "re-run analysis for this media item"),
			)
			continue
		}
		loaded[record.MediaID] = record
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate records: %w", err)
	}

	s.mu.Lock()
	for mediaID, record := range loaded {
		s.cache[mediaID] = record
	}
	s.mu.Unlock()

	s.logger.Info("score cache hydrated", logging.Int("records", len(loaded)))
	return len(loaded), nil
}

// ReloadAll clears the cache and re-runs LoadAll. Policy changes never need
// this; it exists for rehydration after bulk reanalysis rewrites the rows.
func (s *Store) ReloadAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	s.cache = make(map[string]*scores.Record)
	s.mu.Unlock()
	return s.LoadAll(ctx)
}

// Count returns the number of cached records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Records returns a snapshot of all cached records sorted by media id.
func (s *Store) Records() []*scores.Record {
	s.mu.RLock()
	records := make([]*scores.Record, 0, len(s.cache))
	for _, record := range s.cache {
		records = append(records, record)
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].MediaID < records[j].MediaID
	})
	return records
}

// CheckIntegrity runs SQLite's integrity check against the database.
func (s *Store) CheckIntegrity(ctx context.Context) error {
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check reported %q", result)
	}
	return nil
}

func (s *Store) loadOne(ctx context.Context, mediaID string) (*scores.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT media_id, version, created_at, content_hash, segments_json
         FROM score_records WHERE media_id = ?`, mediaID)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	return record, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*scores.Record, error) {
	var (
		record       scores.Record
		createdAt    string
		contentHash  sql.NullString
		segmentsJSON string
	)
	if err := row.Scan(&record.MediaID, &record.Version, &createdAt, &contentHash, &segmentsJSON); err != nil {
		return nil, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for %q: %w", record.MediaID, err)
	}
	record.CreatedAt = parsed
	if contentHash.Valid {
		record.ContentHash = contentHash.String
	}
	if err := json.Unmarshal([]byte(segmentsJSON), &record.Segments); err != nil {
		return nil, fmt.Errorf("parse segments for %q: %w", record.MediaID, err)
	}
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("stored record %q: %w", record.MediaID, err)
	}
	return &record, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
