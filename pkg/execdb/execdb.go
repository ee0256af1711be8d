// Package execdb runs SQL against live databases and compares result sets.
//
// Executors are registered by driver name, following the database/sql driver
// pattern: the sqlite, duckdb and postgres executors register themselves in
// init and are opened through Open.
package execdb

import (
	"context"
	"strings"
)

// Executor runs read-only queries against one database.
type Executor interface {
	// Driver returns the registered driver name.
	Driver() string
	// Connect opens the underlying connection.
	Connect(ctx context.Context, cfg Config) error
	// Query runs sql and materializes its result.
	Query(ctx context.Context, sql string) (*ResultSet, error)
	// Close releases the connection.
	Close() error
}

// Config describes how to reach a database.
// Path and DSN may contain the {db_id} placeholder.
type Config struct {
	Driver   string `koanf:"driver"`
	Path     string `koanf:"path"`
	DSN      string `koanf:"dsn"`
	ReadOnly bool   `koanf:"read_only"`
	MaxRows  int    `koanf:"max_rows"`
}

// ForDB returns a copy of cfg with {db_id} expanded.
func (c Config) ForDB(dbID string) Config {
	out := c
	out.Path = strings.ReplaceAll(c.Path, "{db_id}", dbID)
	out.DSN = strings.ReplaceAll(c.DSN, "{db_id}", dbID)
	return out
}
