package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlgrade/internal/state"
	"github.com/leapstack-labs/sqlgrade/pkg/hardness"
)

// ReportOutput is the result of the report command.
type ReportOutput struct {
	Run     *state.Run            `json:"run" yaml:"run"`
	Tiers   map[hardness.Tier]int `json:"tiers" yaml:"tiers"`
	Results []*state.RecordRow    `json:"results,omitempty" yaml:"results,omitempty"`
}

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	var showResults bool

	cmd := &cobra.Command{
		Use:   "report [run_id]",
		Short: "Show a stored batch run",
		Long:  `Show the tier counts of a batch run from the state database. Without a run id the latest run is shown.`,
		Example: `  sqlgrade report
  sqlgrade report 5b7c2f7e-3a51-4c1e-9a7e-1f1b1fd0f2a1 --results -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, args, showResults)
		},
	}

	cmd.Flags().BoolVar(&showResults, "results", false, "Include per-record results")
	return cmd
}

func runReport(cmd *cobra.Command, args []string, showResults bool) error {
	cc := NewCommandContext(cmd)

	if _, err := os.Stat(cc.Cfg.StatePath); err != nil {
		return fmt.Errorf("state database not found: %s\nHint: Run 'sqlgrade batch' first", cc.Cfg.StatePath)
	}
	store, err := openStore(cc.Cfg.StatePath, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var run *state.Run
	if len(args) == 1 {
		run, err = store.GetRun(args[0])
	} else {
		run, err = store.LatestRun()
	}
	if err != nil {
		return err
	}
	if run == nil {
		return errors.New("no runs recorded")
	}

	out := ReportOutput{Run: run}
	if out.Tiers, err = store.TierCounts(run.ID); err != nil {
		return err
	}
	if showResults {
		if out.Results, err = store.ListResults(run.ID); err != nil {
			return err
		}
	}

	r := cc.Renderer
	if r.Structured() {
		return r.Encode(out)
	}

	styles := r.Styles()
	r.Println(styles.Header.Render(fmt.Sprintf("Run %s (%s)", run.ID, run.Status)))
	r.Printf("dataset: %s\nstarted: %s\n", run.Dataset, run.StartedAt.Format("2006-01-02 15:04:05"))
	if run.Error != "" {
		r.Printf("error: %s\n", run.Error)
	}
	r.Println()

	rows := make([][]string, 0, len(hardness.Tiers)+1)
	for _, tier := range hardness.Tiers {
		rows = append(rows, []string{styles.Tier(tier), strconv.Itoa(out.Tiers[tier])})
	}
	rows = append(rows, []string{"ungradable", strconv.Itoa(out.Tiers[""])})
	r.Table([]string{"tier", "records"}, rows)

	if len(out.Results) > 0 {
		r.Println()
		resultRows := make([][]string, 0, len(out.Results))
		for _, row := range out.Results {
			resultRows = append(resultRows, []string{
				strconv.Itoa(row.Index), row.DBID, styles.Tier(row.Tier), styles.Tier(row.LiteTier), styles.Tier(row.ExecTier), row.Query,
			})
		}
		r.Table([]string{"#", "db_id", "tier", "lite", "exec", "query"}, resultRows)
	}
	return nil
}
