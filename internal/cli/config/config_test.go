package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlgrade/pkg/execdb"
	"github.com/leapstack-labs/sqlgrade/pkg/hardness"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sqlgrade.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultTables, cfg.Tables)
	assert.Equal(t, DefaultDBDir, cfg.DBDir)
	assert.Equal(t, DefaultStateFile, cfg.StatePath)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.False(t, cfg.Exec.Enabled())
	assert.Equal(t, DefaultExecTimeout, cfg.Exec.Timeout)
	assert.Equal(t, hardness.DefaultThresholds, cfg.Exec.Thresholds)
	assert.Same(t, cfg, GetCurrentConfig())
	assert.Empty(t, GetConfigFileUsed())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()

	path := writeConfig(t, `tables: spider/tables.json
db_dir: spider/database
workers: 8
output: json
exec:
  driver: sqlite
  timeout: 2s
  concurrency: 2
  thresholds:
    easy: 4
    medium: 3
    hard: 1
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, GetConfigFileUsed())
	assert.Equal(t, "spider/tables.json", cfg.Tables)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, "sqlite", cfg.Exec.Driver)
	assert.Equal(t, 2*time.Second, cfg.Exec.Timeout)
	assert.Equal(t, 2, cfg.Exec.Concurrency)
	assert.Equal(t, hardness.Thresholds{Easy: 4, Medium: 3, Hard: 1}, cfg.Exec.Thresholds)
	assert.Equal(t, DefaultExecMaxRows, cfg.Exec.MaxRows)
}

func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()

	path := writeConfig(t, "workers: 2\nstate_path: from_file.db\n")
	t.Setenv("SQLGRADE_WORKERS", "3")
	t.Setenv("SQLGRADE_STATE_PATH", "from_env.db")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("workers", 0, "workers")
	flags.String("state", "", "state database")
	require.NoError(t, flags.Set("workers", "5"))
	require.NoError(t, flags.Set("state", "from_flag.db"))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Workers, "flag value should override config file and env var")
	assert.Equal(t, "from_flag.db", cfg.StatePath)
}

func TestLoadConfig_EnvPrecedenceOverFile(t *testing.T) {
	ResetConfig()

	path := writeConfig(t, "workers: 2\nexec:\n  timeout: 1s\n")
	t.Setenv("SQLGRADE_WORKERS", "3")
	t.Setenv("SQLGRADE_EXEC__TIMEOUT", "750ms")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("workers", 0, "workers")
	// Not set, so Changed is false and env wins.

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 750*time.Millisecond, cfg.Exec.Timeout)
}

func TestLoadConfig_ExecFlags(t *testing.T) {
	ResetConfig()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("exec-driver", "", "driver")
	flags.Duration("exec-timeout", 0, "timeout")
	flags.String("db-dir", "", "databases")
	require.NoError(t, flags.Set("exec-driver", "duckdb"))
	require.NoError(t, flags.Set("exec-timeout", "10s"))
	require.NoError(t, flags.Set("db-dir", "dbs"))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.Exec.Driver)
	assert.Equal(t, 10*time.Second, cfg.Exec.Timeout)
	assert.Equal(t, "dbs", cfg.DBDir)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	ResetConfig()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Workers: 1,
			Output:  "text",
			Exec: ExecConfig{
				Driver:      "sqlite",
				Timeout:     time.Second,
				Concurrency: 1,
				Thresholds:  hardness.DefaultThresholds,
			},
		}
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "exec disabled skips exec checks", mutate: func(c *Config) { c.Exec = ExecConfig{} }},
		{name: "zero workers", mutate: func(c *Config) { c.Workers = 0 }, errSubstr: "workers must be at least 1"},
		{name: "bad output", mutate: func(c *Config) { c.Output = "xml" }, errSubstr: `invalid output "xml"`},
		{name: "unknown driver", mutate: func(c *Config) { c.Exec.Driver = "mysql" }, errSubstr: `unknown executor driver "mysql"`},
		{name: "zero timeout", mutate: func(c *Config) { c.Exec.Timeout = 0 }, errSubstr: "exec.timeout must be positive"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Exec.Concurrency = 0 }, errSubstr: "exec.concurrency"},
		{
			name:      "unordered thresholds",
			mutate:    func(c *Config) { c.Exec.Thresholds = hardness.Thresholds{Easy: 1, Medium: 5, Hard: 0} },
			errSubstr: "exec.thresholds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_ValidateTables(t *testing.T) {
	cfg := Config{Tables: filepath.Join(t.TempDir(), "tables.json")}
	err := cfg.ValidateTables()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tables metadata file does not exist")

	require.NoError(t, os.WriteFile(cfg.Tables, []byte("[]"), 0600))
	assert.NoError(t, cfg.ValidateTables())
}

func TestExecConfig_ExecDB(t *testing.T) {
	sqlite := ExecConfig{Driver: "sqlite", MaxRows: 10}.ExecDB("spider/database")
	assert.Equal(t, execdb.Config{
		Driver:   "sqlite",
		Path:     filepath.Join("spider/database", "{db_id}", "{db_id}.sqlite"),
		ReadOnly: true,
		MaxRows:  10,
	}, sqlite)
	assert.Equal(t, filepath.Join("spider/database", "singer", "singer.sqlite"), sqlite.ForDB("singer").Path)

	pg := ExecConfig{Driver: "postgres", DSN: "postgres://localhost/{db_id}"}.ExecDB("ignored")
	assert.Empty(t, pg.Path)
	assert.Equal(t, "postgres://localhost/{db_id}", pg.DSN)
}
