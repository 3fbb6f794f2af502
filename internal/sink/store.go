package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/corpusgest/internal/pathstore"
)

// Store persists records with upsert-by-path semantics: writing the same
// record twice leaves one copy.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Close() error
}

// Marker is implemented by stores that remember the content hash of the
// last completed import per mount path.
type Marker interface {
	ImportHash(ctx context.Context, mount string) (string, error)
	SetImportHash(ctx context.Context, mount, hash string) error
}

// Pruner is implemented by stores that can drop every record under a mount
// before a replacing import.
type Pruner interface {
	Prune(ctx context.Context, mount string) error
}

// Options selects and configures stores. Zero-valued fields are skipped.
type Options struct {
	PathstoreURL    string
	PathstoreAPIKey string
	PathstorePrefix string
	MaxConcurrent   int

	SQLitePath  string
	DatabaseURL string
	TablePrefix string
	SearchIndex string
}

// Open connects every configured store and fans writes out to all of them.
func Open(ctx context.Context, opts Options, log *slog.Logger) (*MultiStore, error) {
	var stores []Store
	fail := func(err error) (*MultiStore, error) {
		for _, s := range stores {
			s.Close()
		}
		return nil, err
	}

	if opts.PathstoreURL != "" {
		c := pathstore.NewClient(opts.PathstoreURL, opts.PathstoreAPIKey)
		stores = append(stores, NewPathstoreStore(c, opts.PathstorePrefix, opts.MaxConcurrent))
		log.Info("sink enabled", "store", "pathstore", "url", opts.PathstoreURL)
	}
	if opts.SQLitePath != "" {
		s, err := OpenSQLite(opts.SQLitePath)
		if err != nil {
			return fail(err)
		}
		stores = append(stores, s)
		log.Info("sink enabled", "store", "sqlite", "path", opts.SQLitePath)
	}
	if opts.DatabaseURL != "" {
		s, err := OpenPostgres(ctx, opts.DatabaseURL, opts.TablePrefix)
		if err != nil {
			return fail(err)
		}
		stores = append(stores, s)
		log.Info("sink enabled", "store", "postgres")
	}
	if opts.SearchIndex != "" {
		s, err := OpenSearch(opts.SearchIndex)
		if err != nil {
			return fail(err)
		}
		stores = append(stores, s)
		log.Info("sink enabled", "store", "search", "path", opts.SearchIndex)
	}
	if len(stores) == 0 {
		return nil, fmt.Errorf("no sink configured")
	}
	return NewMultiStore(stores...), nil
}

// MultiStore writes every batch to each of its stores in order.
type MultiStore struct {
	stores []Store
}

func NewMultiStore(stores ...Store) *MultiStore {
	return &MultiStore{stores: stores}
}

func (m *MultiStore) Upsert(ctx context.Context, records []Record) error {
	for _, s := range m.stores {
		if err := s.Upsert(ctx, records); err != nil {
			return fmt.Errorf("%T: %w", s, err)
		}
	}
	return nil
}

// ImportHash returns the hash every marking store agrees on, or "" when
// any of them differs or has none.
func (m *MultiStore) ImportHash(ctx context.Context, mount string) (string, error) {
	var hash string
	seen := false
	for _, s := range m.stores {
		mk, ok := s.(Marker)
		if !ok {
			continue
		}
		h, err := mk.ImportHash(ctx, mount)
		if err != nil {
			return "", err
		}
		if seen && h != hash {
			return "", nil
		}
		hash, seen = h, true
	}
	return hash, nil
}

func (m *MultiStore) SetImportHash(ctx context.Context, mount, hash string) error {
	for _, s := range m.stores {
		if mk, ok := s.(Marker); ok {
			if err := mk.SetImportHash(ctx, mount, hash); err != nil {
				return fmt.Errorf("%T: %w", s, err)
			}
		}
	}
	return nil
}

func (m *MultiStore) Prune(ctx context.Context, mount string) error {
	for _, s := range m.stores {
		if p, ok := s.(Pruner); ok {
			if err := p.Prune(ctx, mount); err != nil {
				return fmt.Errorf("%T: %w", s, err)
			}
		}
	}
	return nil
}

// Search queries the first store that supports full-text search.
func (m *MultiStore) Search(query string, size int) ([]Hit, error) {
	for _, s := range m.stores {
		if ss, ok := s.(*SearchStore); ok {
			return ss.Search(query, size)
		}
	}
	return nil, ErrNoSearch
}

// ErrNoSearch is returned by MultiStore.Search when no search index is open.
var ErrNoSearch = errors.New("no search index configured")

func (m *MultiStore) Close() error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
