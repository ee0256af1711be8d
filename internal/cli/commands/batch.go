package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlgrade/internal/batch"
	"github.com/leapstack-labs/sqlgrade/internal/cli/output"
	"github.com/leapstack-labs/sqlgrade/internal/dataset"
	"github.com/leapstack-labs/sqlgrade/internal/state"
	"github.com/leapstack-labs/sqlgrade/pkg/hardness"
)

// BatchOutput is the result of the batch command.
type BatchOutput struct {
	RunID   string         `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Dataset string         `json:"dataset" yaml:"dataset"`
	Summary batch.Summary  `json:"summary" yaml:"summary"`
	Results []batch.Result `json:"results,omitempty" yaml:"results,omitempty"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand() *cobra.Command {
	var (
		noState     bool
		showResults bool
	)

	cmd := &cobra.Command{
		Use:   "batch <dataset>",
		Short: "Grade every record of a dataset",
		Long: `Grade a dataset of training records (JSON array, JSONL or YAML) with the
strict, lite and, when exec.driver is set, execution classifiers, and link
each query to the schema elements it uses.

Records that cannot be parsed are reported as ungradable and never stop the
batch. Results are stored in the state database unless --no-state is given.`,
		Example: `  # Grade Spider's dev split
  sqlgrade batch spider/dev.json --tables spider/tables.json

  # Include execution grading with 8 workers
  sqlgrade batch train.jsonl --exec-driver sqlite --workers 8

  # Per-record results as JSON, without touching the state database
  sqlgrade batch dev.json --no-state --results -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args[0], noState, showResults)
		},
	}

	cmd.Flags().BoolVar(&noState, "no-state", false, "Do not store results in the state database")
	cmd.Flags().BoolVar(&showResults, "results", false, "Print per-record results")
	return cmd
}

func runBatch(cmd *cobra.Command, path string, noState, showResults bool) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()
	logger := cc.Logger

	records, err := dataset.Load(path)
	if err != nil {
		return err
	}
	schemas, err := cc.Schemas()
	if err != nil {
		return err
	}

	var (
		store *state.SQLiteStore
		run   *state.Run
	)
	if !noState {
		store, err = openStore(cc.Cfg.StatePath, logger)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if run, err = store.CreateRun(path); err != nil {
			return err
		}
	}

	runner := &batch.Runner{
		Schemas: schemas,
		Workers: cc.Cfg.Workers,
		Exec:    cc.ExecOptions(),
		Logger:  logger,
	}
	results, err := runner.Run(ctx, records)
	if err != nil {
		if run != nil {
			status := state.RunStatusFailed
			if errors.Is(err, ctx.Err()) {
				status = state.RunStatusCancelled
			}
			if cerr := store.CompleteRun(run.ID, status, err.Error()); cerr != nil {
				logger.Warn("failed to record run status", slog.String("error", cerr.Error()))
			}
		}
		return err
	}

	out := BatchOutput{Dataset: path, Summary: batch.Summarize(results)}
	if showResults {
		out.Results = results
	}
	if run != nil {
		if err := store.SaveResults(run.ID, results); err != nil {
			_ = store.CompleteRun(run.ID, state.RunStatusFailed, err.Error())
			return err
		}
		if err := store.CompleteRun(run.ID, state.RunStatusCompleted, ""); err != nil {
			return err
		}
		out.RunID = run.ID
	}

	r := cc.Renderer
	if r.Structured() {
		return r.Encode(out)
	}
	renderBatch(r, out)
	return nil
}

// openStore opens the state database, creating its directory and applying
// migrations.
func openStore(path string, logger *slog.Logger) (*state.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func renderBatch(r *output.Renderer, out BatchOutput) {
	styles := r.Styles()
	s := out.Summary

	if len(out.Results) > 0 {
		rows := make([][]string, 0, len(out.Results))
		for _, res := range out.Results {
			var execTier hardness.Tier
			if res.Exec != nil {
				execTier = res.Exec.Tier
			}
			rows = append(rows, []string{
				strconv.Itoa(res.Index),
				res.DBID,
				styles.Tier(res.Tier),
				styles.Tier(res.LiteTier),
				styles.Tier(execTier),
				res.Error,
			})
		}
		r.Table([]string{"#", "db_id", "tier", "lite", "exec", "error"}, rows)
		r.Println()
	}

	rows := make([][]string, 0, len(hardness.Tiers)+1)
	for _, tier := range hardness.Tiers {
		row := []string{styles.Tier(tier), strconv.Itoa(s.Tiers[tier]), strconv.Itoa(s.LiteTiers[tier])}
		if s.ExecTiers != nil {
			row = append(row, strconv.Itoa(s.ExecTiers[tier]))
		}
		rows = append(rows, row)
	}
	header := []string{"tier", "strict", "lite"}
	if s.ExecTiers != nil {
		header = append(header, "exec")
		rows = append(rows, []string{styles.Tier(hardness.GoldError), "", "", strconv.Itoa(s.ExecTiers[hardness.GoldError])})
	}
	r.Table(header, rows)

	r.Printf("%d records, %d ungradable\n", s.Total, s.Ungradable)
	if out.RunID != "" {
		r.Println(styles.Muted.Render("run " + out.RunID))
	}
}
