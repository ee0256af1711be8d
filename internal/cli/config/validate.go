package config

import (
	"fmt"
	"os"
	"slices"

	"github.com/leapstack-labs/sqlgrade/pkg/execdb"
)

// OutputModes lists the accepted values of the output key.
var OutputModes = []string{"auto", "text", "markdown", "json", "yaml"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if !slices.Contains(OutputModes, c.Output) {
		return fmt.Errorf("invalid output %q (expected one of %v)", c.Output, OutputModes)
	}
	if !c.Exec.Enabled() {
		return nil
	}

	if _, ok := execdb.Get(c.Exec.Driver); !ok {
		return &execdb.UnknownDriverError{Driver: c.Exec.Driver, Available: execdb.Drivers()}
	}
	if c.Exec.Timeout <= 0 {
		return fmt.Errorf("exec.timeout must be positive, got %s", c.Exec.Timeout)
	}
	if c.Exec.Concurrency < 1 {
		return fmt.Errorf("exec.concurrency must be at least 1, got %d", c.Exec.Concurrency)
	}
	if err := c.Exec.Thresholds.Validate(); err != nil {
		return fmt.Errorf("exec.thresholds: %w", err)
	}
	return nil
}

// ValidateTables checks that the tables metadata file exists.
func (c *Config) ValidateTables() error {
	if _, err := os.Stat(c.Tables); os.IsNotExist(err) {
		return fmt.Errorf("tables metadata file does not exist: %s\nHint: Use --tables to point at the benchmark's tables.json", c.Tables)
	}
	return nil
}
