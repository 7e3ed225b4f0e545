package tool

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteStoreSchema = `
CREATE TABLE IF NOT EXISTS tools (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	lesson_id TEXT NOT NULL DEFAULT '',
	name TEXT,
	config BLOB NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tools_lesson
ON tools(lesson_id);`

const (
	defaultSQLiteStoreDir = ".toolcalc"
	defaultSQLiteStoreDB  = "toolcalc.db"
)

// SQLiteStoreConfig configures the SQLite-backed tool store.
type SQLiteStoreConfig struct {
	DSN string
}

// SQLiteStore persists tool records in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// DefaultSQLitePath returns the default SQLite path for CLI/server storage.
func DefaultSQLitePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("tool: resolve user home: %w", err)
	}
	return filepath.Join(home, defaultSQLiteStoreDir, defaultSQLiteStoreDB), nil
}

// NewSQLiteStore opens (or creates) a SQLite-backed tool store.
func NewSQLiteStore(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("tool: sqlite store dsn is required")
	}
	if !strings.HasPrefix(strings.ToLower(cfg.DSN), "file:") && cfg.DSN != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o755); err != nil {
			return nil, fmt.Errorf("tool: sqlite store create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("tool: sqlite store open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tool: sqlite store set WAL mode: %w", err)
	}

	if _, err := db.Exec(sqliteStoreSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tool: sqlite store create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// List returns all records in creation order.
func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, lesson_id, name, config, created_at, updated_at
FROM tools
ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("tool: sqlite list: %w", err)
	}
	return scanRecords(rows)
}

// ListByLesson returns the records attached to one lesson in creation order.
func (s *SQLiteStore) ListByLesson(ctx context.Context, lessonID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, lesson_id, name, config, created_at, updated_at
FROM tools
WHERE lesson_id = ?
ORDER BY seq ASC`, strings.TrimSpace(lessonID))
	if err != nil {
		return nil, fmt.Errorf("tool: sqlite list by lesson: %w", err)
	}
	return scanRecords(rows)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, lesson_id, name, config, created_at, updated_at
FROM tools
WHERE id = ?`, strings.TrimSpace(id))

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *SQLiteStore) Create(ctx context.Context, rec Record) error {
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.ID == "" {
		return errors.New("tool: record id is required")
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	config, err := json.Marshal(rec.Config)
	if err != nil {
		return fmt.Errorf("tool: sqlite marshal config: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO tools (id, lesson_id, name, config, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID,
		strings.TrimSpace(rec.LessonID),
		rec.Name,
		config,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrToolExists
		}
		return fmt.Errorf("tool: sqlite create: %w", err)
	}
	return nil
}

// Update replaces a record. A zero CreatedAt keeps the stored value.
func (s *SQLiteStore) Update(ctx context.Context, rec Record) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	config, err := json.Marshal(rec.Config)
	if err != nil {
		return fmt.Errorf("tool: sqlite marshal config: %w", err)
	}

	var createdAt any
	if !rec.CreatedAt.IsZero() {
		createdAt = rec.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE tools
SET lesson_id = ?, name = ?, config = ?, created_at = COALESCE(?, created_at), updated_at = ?
WHERE id = ?`,
		strings.TrimSpace(rec.LessonID),
		rec.Name,
		config,
		createdAt,
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
		strings.TrimSpace(rec.ID),
	)
	if err != nil {
		return fmt.Errorf("tool: sqlite update: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("tool: sqlite update affected rows: %w", err)
	}
	if affected == 0 {
		return ErrToolNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tools WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("tool: sqlite delete: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("tool: sqlite delete affected rows: %w", err)
	}
	if affected == 0 {
		return ErrToolNotFound
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type recordScanner interface {
	Scan(dest ...any) error
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tool: sqlite rows: %w", err)
	}
	return records, nil
}

func scanRecord(scanner recordScanner) (Record, error) {
	var (
		id        string
		lessonID  string
		name      sql.NullString
		configRaw []byte
		createdAt string
		updatedAt string
	)
	if err := scanner.Scan(&id, &lessonID, &name, &configRaw, &createdAt, &updatedAt); err != nil {
		return Record{}, err
	}

	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("tool: sqlite parse created_at: %w", err)
	}
	updated, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("tool: sqlite parse updated_at: %w", err)
	}

	var config Config
	if err := json.Unmarshal(configRaw, &config); err != nil {
		return Record{}, fmt.Errorf("tool: sqlite unmarshal config: %w", err)
	}

	return Record{
		ID:        id,
		LessonID:  lessonID,
		Name:      name.String,
		Config:    config,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

func isSQLiteUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed: tools.id")
}
