// Package commands implements the sqlgrade subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlgrade/internal/batch"
	"github.com/leapstack-labs/sqlgrade/internal/cli/config"
	"github.com/leapstack-labs/sqlgrade/internal/cli/output"
	"github.com/leapstack-labs/sqlgrade/pkg/execdb"
	"github.com/leapstack-labs/sqlgrade/pkg/schema"
)

// CommandContext holds common dependencies for command execution.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}
}

// getConfig returns the current configuration, loading defaults and
// environment variables when no command has loaded one yet.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		return &config.Config{
			Tables:    config.DefaultTables,
			DBDir:     config.DefaultDBDir,
			StatePath: config.DefaultStateFile,
			Workers:   config.DefaultWorkers,
			Output:    config.DefaultOutput,
		}
	}
	return cfg
}

// Schemas builds the schema registry. The tables metadata file is used when
// it exists; otherwise schemas are introspected from the SQLite databases
// under db_dir.
func (c *CommandContext) Schemas() (*schema.Registry, error) {
	if _, err := os.Stat(c.Cfg.Tables); err == nil {
		f, err := os.Open(c.Cfg.Tables)
		if err != nil {
			return nil, fmt.Errorf("failed to open tables metadata: %w", err)
		}
		defer func() { _ = f.Close() }()

		raws, err := schema.LoadSpiderTables(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Cfg.Tables, err)
		}
		c.Logger.Debug("loaded tables metadata",
			slog.String("path", c.Cfg.Tables),
			slog.Int("databases", len(raws)))
		return schema.NewRegistry(schema.StaticLoader(raws), c.Logger), nil
	}

	if _, err := os.Stat(c.Cfg.DBDir); err == nil {
		c.Logger.Debug("introspecting sqlite databases", slog.String("dir", c.Cfg.DBDir))
		return schema.NewRegistry(schema.SQLiteDirLoader(c.Cfg.DBDir), c.Logger), nil
	}

	return nil, fmt.Errorf("no schema source: neither %s nor %s exists\nHint: Use --tables or --db-dir", c.Cfg.Tables, c.Cfg.DBDir)
}

// Schema loads the schema of one database.
func (c *CommandContext) Schema(ctx context.Context, dbID string) (*schema.Schema, error) {
	reg, err := c.Schemas()
	if err != nil {
		return nil, err
	}
	entry, err := reg.Get(ctx, dbID)
	if err != nil {
		return nil, err
	}
	return entry.Schema, nil
}

// ExecOptions returns the execution grading options, or nil when no
// executor driver is configured.
func (c *CommandContext) ExecOptions() *batch.ExecOptions {
	if !c.Cfg.Exec.Enabled() {
		return nil
	}
	base := c.Cfg.Exec.ExecDB(c.Cfg.DBDir)
	return &batch.ExecOptions{
		Open: func(ctx context.Context, dbID string) (execdb.Executor, error) {
			return execdb.Open(ctx, base.ForDB(dbID), c.Logger)
		},
		Timeout:     c.Cfg.Exec.Timeout,
		Concurrency: c.Cfg.Exec.Concurrency,
		Thresholds:  c.Cfg.Exec.Thresholds,
	}
}
