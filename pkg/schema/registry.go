package schema

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Entry is a cached, normalized schema. Its identifier map is available
// through Schema.Identifiers. Entries are never mutated after insertion.
type Entry struct {
	Schema *Schema
}

// Loader fetches the raw metadata of one database.
type Loader func(ctx context.Context, dbID string) (RawSchema, error)

// Registry is an insert-once cache of schemas keyed by database id.
// Concurrent first lookups of the same id share a single load; failed loads
// are not cached.
type Registry struct {
	load   Loader
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]*Entry
	group   singleflight.Group
}

// NewRegistry creates a registry backed by the given loader.
// If logger is nil, a discard logger is used.
func NewRegistry(load Loader, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		load:    load,
		logger:  logger,
		entries: make(map[string]*Entry),
	}
}

// Get returns the cached entry for dbID, loading and normalizing it on first use.
func (r *Registry) Get(ctx context.Context, dbID string) (*Entry, error) {
	if e, ok := r.lookup(dbID); ok {
		return e, nil
	}

	v, err, _ := r.group.Do(dbID, func() (any, error) {
		if e, ok := r.lookup(dbID); ok {
			return e, nil
		}
		if r.load == nil {
			return nil, fmt.Errorf("no schema loader configured for %q", dbID)
		}

		raw, err := r.load(ctx, dbID)
		if err != nil {
			return nil, fmt.Errorf("failed to load schema %q: %w", dbID, err)
		}
		return r.insert(dbID, raw)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// Put normalizes raw and stores it under dbID unless an entry already exists,
// in which case the existing entry is returned.
func (r *Registry) Put(dbID string, raw RawSchema) (*Entry, error) {
	if e, ok := r.lookup(dbID); ok {
		return e, nil
	}
	return r.insert(dbID, raw)
}

// Len returns the number of cached schemas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) lookup(dbID string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[dbID]
	return e, ok
}

func (r *Registry) insert(dbID string, raw RawSchema) (*Entry, error) {
	s, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	e := &Entry{Schema: s}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[dbID]; ok {
		return existing, nil
	}
	r.entries[dbID] = e
	r.logger.Debug("schema cached", "db_id", dbID, "tables", len(s.tables))
	return e, nil
}

// StaticLoader serves raw schemas from an in-memory map, typically the
// result of LoadSpiderTables.
func StaticLoader(raws map[string]RawSchema) Loader {
	return func(_ context.Context, dbID string) (RawSchema, error) {
		raw, ok := raws[dbID]
		if !ok {
			return RawSchema{}, &UnknownDatabaseError{DBID: dbID}
		}
		return raw, nil
	}
}

// UnknownDatabaseError is returned when a loader has no metadata for a database.
type UnknownDatabaseError struct {
	DBID string
}

func (e *UnknownDatabaseError) Error() string {
	return fmt.Sprintf("unknown database %q", e.DBID)
}
