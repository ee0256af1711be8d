package execdb

import (
	"context"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Executor { return NewDuckDB(logger) })
}

// DuckDB executes queries against a DuckDB database file.
type DuckDB struct {
	BaseExecutor
}

// NewDuckDB creates an unconnected DuckDB executor.
// If logger is nil, a discard logger is used.
func NewDuckDB(logger *slog.Logger) *DuckDB {
	return &DuckDB{BaseExecutor: newBase(logger)}
}

// Driver returns the registered driver name.
func (e *DuckDB) Driver() string { return "duckdb" }

// Connect opens cfg.Path. Use ":memory:" as the path for an in-memory database.
func (e *DuckDB) Connect(ctx context.Context, cfg Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	dsn := path
	if cfg.ReadOnly && path != ":memory:" {
		dsn = path + "?access_mode=read_only"
	}

	e.Logger.Debug("connecting to duckdb", slog.String("path", path))
	return e.open(ctx, "duckdb", dsn, cfg)
}
