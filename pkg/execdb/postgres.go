package execdb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

func init() {
	Register("postgres", func(logger *slog.Logger) Executor { return NewPostgres(logger) })
}

// Postgres executes queries against a PostgreSQL database.
type Postgres struct {
	BaseExecutor
}

// NewPostgres creates an unconnected PostgreSQL executor.
// If logger is nil, a discard logger is used.
func NewPostgres(logger *slog.Logger) *Postgres {
	return &Postgres{BaseExecutor: newBase(logger)}
}

// Driver returns the registered driver name.
func (e *Postgres) Driver() string { return "postgres" }

// Connect opens cfg.DSN, a key=value or URL connection string.
func (e *Postgres) Connect(ctx context.Context, cfg Config) error {
	if cfg.DSN == "" {
		return fmt.Errorf("postgres executor requires a dsn")
	}
	e.Logger.Debug("connecting to postgres")
	return e.open(ctx, "pgx", postgresDSN(cfg), cfg)
}

// postgresDSN appends the read-only runtime parameter when requested, so
// every pooled connection starts read-only.
func postgresDSN(cfg Config) string {
	if !cfg.ReadOnly {
		return cfg.DSN
	}
	const param = "default_transaction_read_only=on"
	if !strings.Contains(cfg.DSN, "://") {
		return cfg.DSN + " " + param
	}
	if strings.Contains(cfg.DSN, "?") {
		return cfg.DSN + "&" + param
	}
	return cfg.DSN + "?" + param
}
