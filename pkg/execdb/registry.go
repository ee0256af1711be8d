package execdb

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Factory creates an unconnected executor.
type Factory func(logger *slog.Logger) Executor

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds an executor factory to the registry.
// Called by executor implementations in their init() functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves an executor factory by name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// Drivers returns all registered driver names (sorted).
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates and connects the executor named by cfg.Driver.
// The logger is passed to the executor (nil uses a discard logger).
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Executor, error) {
	if cfg.Driver == "" {
		return nil, fmt.Errorf("executor driver not specified")
	}
	factory, ok := Get(cfg.Driver)
	if !ok {
		return nil, &UnknownDriverError{Driver: cfg.Driver, Available: Drivers()}
	}

	exec := factory(logger)
	if err := exec.Connect(ctx, cfg); err != nil {
		return nil, err
	}
	return exec, nil
}

// UnknownDriverError is returned when an unknown driver is requested.
type UnknownDriverError struct {
	Driver    string
	Available []string
}

func (e *UnknownDriverError) Error() string {
	return fmt.Sprintf("unknown executor driver %q\nAvailable drivers: %v\nHint: Check exec.driver in sqlgrade.yaml", e.Driver, e.Available)
}
