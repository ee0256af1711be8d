// Package config provides configuration management for the sqlgrade CLI.
package config

import (
	"path/filepath"
	"time"

	"github.com/leapstack-labs/sqlgrade/pkg/execdb"
	"github.com/leapstack-labs/sqlgrade/pkg/hardness"
)

// Config holds all CLI configuration options.
type Config struct {
	Tables    string     `koanf:"tables"`
	DBDir     string     `koanf:"db_dir"`
	StatePath string     `koanf:"state_path"`
	Workers   int        `koanf:"workers"`
	Output    string     `koanf:"output"`
	Verbose   bool       `koanf:"verbose"`
	Exec      ExecConfig `koanf:"exec"`
}

// ExecConfig configures execution-based grading.
type ExecConfig struct {
	Driver      string              `koanf:"driver"`
	Path        string              `koanf:"path"`
	DSN         string              `koanf:"dsn"`
	MaxRows     int                 `koanf:"max_rows"`
	Timeout     time.Duration       `koanf:"timeout"`
	Concurrency int                 `koanf:"concurrency"`
	Thresholds  hardness.Thresholds `koanf:"thresholds"`
}

// Default configuration values.
const (
	DefaultTables          = "tables.json"
	DefaultDBDir           = "database"
	DefaultStateFile       = ".sqlgrade/state.db"
	DefaultWorkers         = 4
	DefaultOutput          = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultExecTimeout     = 30 * time.Second
	DefaultExecConcurrency = 4
	DefaultExecMaxRows     = 10000
)

// Enabled reports whether execution-based grading is configured.
func (e ExecConfig) Enabled() bool {
	return e.Driver != ""
}

// ExecDB returns the executor configuration. A sqlite driver without an
// explicit path reads the Spider layout under dbDir.
func (e ExecConfig) ExecDB(dbDir string) execdb.Config {
	cfg := execdb.Config{
		Driver:   e.Driver,
		Path:     e.Path,
		DSN:      e.DSN,
		ReadOnly: true,
		MaxRows:  e.MaxRows,
	}
	if cfg.Driver == "sqlite" && cfg.Path == "" && cfg.DSN == "" {
		cfg.Path = filepath.Join(dbDir, "{db_id}", "{db_id}.sqlite")
	}
	return cfg
}
