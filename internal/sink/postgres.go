package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps records in a jsonb table behind a pgx pool.
type PostgresStore struct {
	pool    *pgxpool.Pool
	parts   string
	imports string
}

// OpenPostgres connects to databaseURL and ensures the schema. prefix is
// prepended to table names (dev_, test_).
func OpenPostgres(ctx context.Context, databaseURL, prefix string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	config.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{
		pool:    pool,
		parts:   pgx.Identifier{prefix + "book_parts"}.Sanitize(),
		imports: pgx.Identifier{prefix + "imports"}.Sanitize(),
	}
	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			path TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			idx INTEGER NOT NULL,
			verse_count INTEGER NOT NULL,
			verse_start_index INTEGER NOT NULL,
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.parts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			mount TEXT PRIMARY KEY,
			content_hash TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.imports),
	}
	for _, stmt := range ddl {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}
	return s, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, records []Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (path, kind, idx, verse_count, verse_start_index, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (path) DO UPDATE SET
			kind = EXCLUDED.kind,
			idx = EXCLUDED.idx,
			verse_count = EXCLUDED.verse_count,
			verse_start_index = EXCLUDED.verse_start_index,
			data = EXCLUDED.data,
			updated_at = now()`, s.parts)

	batch := &pgx.Batch{}
	for _, r := range records {
		data, err := r.Data()
		if err != nil {
			return fmt.Errorf("encode %s: %w", r.Path, err)
		}
		batch.Queue(query, r.Path, string(r.Kind), r.Index, r.VerseCount, r.VerseStartIndex, data)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Prune(ctx context.Context, mount string) error {
	_, err := s.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE path = $1 OR starts_with(path, $2)`, s.parts),
		mount, mount+":")
	if err != nil {
		return fmt.Errorf("prune %s: %w", mount, err)
	}
	return nil
}

func (s *PostgresStore) ImportHash(ctx context.Context, mount string) (string, error) {
	var hash string
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT content_hash FROM %s WHERE mount = $1`, s.imports), mount).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("import hash: %w", err)
	}
	return hash, nil
}

func (s *PostgresStore) SetImportHash(ctx context.Context, mount, hash string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (mount, content_hash) VALUES ($1, $2)
		ON CONFLICT (mount) DO UPDATE SET content_hash = EXCLUDED.content_hash, updated_at = now()`, s.imports),
		mount, hash)
	if err != nil {
		return fmt.Errorf("set import hash: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
