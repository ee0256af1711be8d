// Package state persists grading runs and per-record results in SQLite.
package state

import (
	"time"

	"github.com/leapstack-labs/sqlgrade/internal/batch"
	"github.com/leapstack-labs/sqlgrade/pkg/hardness"
	"github.com/leapstack-labs/sqlgrade/pkg/linking"
)

// Store defines the persistence operations of a grading run.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	// Run operations
	CreateRun(dataset string) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	LatestRun() (*Run, error)

	// Result operations
	SaveResults(runID string, results []batch.Result) error
	ListResults(runID string) ([]*RecordRow, error)
	TierCounts(runID string) (map[hardness.Tier]int, error)
}

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is one grading pass over a dataset.
type Run struct {
	ID          string     `json:"id"`
	Dataset     string     `json:"dataset"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// RecordRow is a stored per-record result.
type RecordRow struct {
	RunID      string              `json:"run_id"`
	Index      int                 `json:"index"`
	DBID       string              `json:"db_id"`
	Query      string              `json:"query"`
	Status     batch.Status        `json:"status"`
	Tier       hardness.Tier       `json:"tier,omitempty"`
	LiteTier   hardness.Tier       `json:"lite_tier"`
	ExecTier   hardness.Tier       `json:"exec_tier,omitempty"`
	Components hardness.Components `json:"components"`
	Used       linking.UsedSchema  `json:"used_schema"`
	Error      string              `json:"error,omitempty"`
	TokenIndex *int                `json:"token_index,omitempty"`
}
