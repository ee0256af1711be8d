package execdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// BaseExecutor provides the database/sql implementation shared by all
// executors. Embed it and implement Driver and Connect.
type BaseExecutor struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

func newBase(logger *slog.Logger) BaseExecutor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return BaseExecutor{Logger: logger}
}

// open opens and pings a database/sql handle.
func (b *BaseExecutor) open(ctx context.Context, driver, dsn string, cfg Config) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	b.DB = db
	b.Cfg = cfg
	return nil
}

// Close closes the database connection.
func (b *BaseExecutor) Close() error {
	if b.IsConnected() {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Query runs sqlStr and reads every row into memory. When Cfg.MaxRows is
// positive, reading more rows than that is an error.
func (b *BaseExecutor) Query(ctx context.Context, sqlStr string) (*ResultSet, error) {
	if !b.IsConnected() {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := b.DB.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	rs := &ResultSet{Columns: cols}
	for rows.Next() {
		if b.Cfg.MaxRows > 0 && len(rs.Rows) >= b.Cfg.MaxRows {
			return nil, fmt.Errorf("result exceeds %d rows", b.Cfg.MaxRows)
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range vals {
			if raw, ok := v.([]byte); ok {
				vals[i] = string(raw)
			}
		}
		rs.Rows = append(rs.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return rs, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseExecutor) IsConnected() bool {
	return b.DB != nil
}
