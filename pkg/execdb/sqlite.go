package execdb

import (
	"context"
	"log/slog"

	_ "modernc.org/sqlite" // sqlite driver
)

func init() {
	Register("sqlite", func(logger *slog.Logger) Executor { return NewSQLite(logger) })
}

// SQLite executes queries against a SQLite file, the format Spider-style
// benchmarks ship their databases in.
type SQLite struct {
	BaseExecutor
}

// NewSQLite creates an unconnected SQLite executor.
// If logger is nil, a discard logger is used.
func NewSQLite(logger *slog.Logger) *SQLite {
	return &SQLite{BaseExecutor: newBase(logger)}
}

// Driver returns the registered driver name.
func (e *SQLite) Driver() string { return "sqlite" }

// Connect opens cfg.Path. Use ":memory:" (or an empty path) for an
// in-memory database.
func (e *SQLite) Connect(ctx context.Context, cfg Config) error {
	dsn := cfg.Path
	switch {
	case dsn == "" || dsn == ":memory:":
		dsn = ":memory:"
	case cfg.ReadOnly:
		dsn = "file:" + dsn + "?mode=ro"
	}

	e.Logger.Debug("connecting to sqlite", slog.String("path", dsn))
	if err := e.open(ctx, "sqlite", dsn, cfg); err != nil {
		return err
	}
	if dsn == ":memory:" {
		// Each connection to :memory: is a separate database.
		e.DB.SetMaxOpenConns(1)
	}
	return nil
}
