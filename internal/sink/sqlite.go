package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps records in a single-file database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps an in-memory database alive across calls.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		PRAGMA synchronous = NORMAL;

		CREATE TABLE IF NOT EXISTS book_parts (
			path TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			idx INTEGER NOT NULL,
			verse_count INTEGER NOT NULL,
			verse_start_index INTEGER NOT NULL,
			data TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS imports (
			mount TEXT PRIMARY KEY,
			content_hash TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_book_parts_kind ON book_parts(kind);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setup sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO book_parts (path, kind, idx, verse_count, verse_start_index, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, r := range records {
		data, err := r.Data()
		if err != nil {
			return fmt.Errorf("encode %s: %w", r.Path, err)
		}
		if _, err := stmt.ExecContext(ctx, r.Path, string(r.Kind), r.Index, r.VerseCount, r.VerseStartIndex, string(data), now); err != nil {
			return fmt.Errorf("upsert %s: %w", r.Path, err)
		}
	}
	return tx.Commit()
}

// Get returns the stored JSON body and kind of path, or "" kind when absent.
func (s *SQLiteStore) Get(ctx context.Context, path string) (RecordKind, []byte, error) {
	var kind, data string
	err := s.db.QueryRowContext(ctx, `SELECT kind, data FROM book_parts WHERE path = ?`, path).Scan(&kind, &data)
	if err == sql.ErrNoRows {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("get %s: %w", path, err)
	}
	return RecordKind(kind), []byte(data), nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM book_parts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Prune(ctx context.Context, mount string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM book_parts WHERE path = ? OR substr(path, 1, length(?)) = ?`,
		mount, mount+":", mount+":")
	if err != nil {
		return fmt.Errorf("prune %s: %w", mount, err)
	}
	return nil
}

func (s *SQLiteStore) ImportHash(ctx context.Context, mount string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT content_hash FROM imports WHERE mount = ?`, mount).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("import hash: %w", err)
	}
	return hash, nil
}

func (s *SQLiteStore) SetImportHash(ctx context.Context, mount, hash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO imports (mount, content_hash, updated_at) VALUES (?, ?, ?)`,
		mount, hash, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("set import hash: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
