package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlgrade/internal/cli/output"
	"github.com/leapstack-labs/sqlgrade/pkg/hardness"
)

var errDBIDRequired = errors.New("a db_id argument is required")

// ClassifyOutput is the result of the classify command.
type ClassifyOutput struct {
	DBID       string               `json:"db_id,omitempty" yaml:"db_id,omitempty"`
	Query      string               `json:"query" yaml:"query"`
	Tier       hardness.Tier        `json:"tier,omitempty" yaml:"tier,omitempty"`
	Components *hardness.Components `json:"components,omitempty" yaml:"components,omitempty"`
	LiteScore  int                  `json:"lite_score" yaml:"lite_score"`
	LiteTier   hardness.Tier        `json:"lite_tier" yaml:"lite_tier"`
	Exec       *hardness.ExecResult `json:"exec,omitempty" yaml:"exec,omitempty"`
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand() *cobra.Command {
	var (
		lite       bool
		candidates []string
	)

	cmd := &cobra.Command{
		Use:   "classify [db_id] <sql>",
		Short: "Classify the difficulty of a query",
		Long: `Classify a gold query into easy, medium, hard or extra.

The strict classifier parses the query against the schema of db_id and
counts its structural components. The lite classifier (--lite) scores the
query text with keyword rules and never fails.

With one or more --candidate queries and exec.driver configured, the gold
query and every candidate are run against the database and the tier is
derived from how many candidates return the gold result.`,
		Example: `  # Strict tier
  sqlgrade classify concert_singer "SELECT count(*) FROM singer"

  # Lite tier, no schema needed
  sqlgrade classify --lite "SELECT a FROM t WHERE b = 1 ORDER BY c"

  # Execution tier
  sqlgrade classify concert_singer "SELECT name FROM singer" \
    --exec-driver sqlite --candidate "SELECT name FROM singer ORDER BY age"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, args, lite, candidates)
		},
	}

	cmd.Flags().BoolVar(&lite, "lite", false, "Only compute the lite tier")
	cmd.Flags().StringArrayVar(&candidates, "candidate", nil, "Candidate query for execution grading (repeatable)")
	return cmd
}

func runClassify(cmd *cobra.Command, args []string, lite bool, candidates []string) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	sql := args[len(args)-1]
	out := ClassifyOutput{
		Query:     sql,
		LiteScore: hardness.LiteScore(sql),
		LiteTier:  hardness.ClassifyLite(sql),
	}

	if !lite {
		if len(args) != 2 {
			return errDBIDRequired
		}
		out.DBID = args[0]

		s, err := cc.Schema(ctx, out.DBID)
		if err != nil {
			return err
		}
		tier, comps, err := hardness.ClassifySQL(sql, s)
		if err != nil {
			return err
		}
		out.Tier = tier
		out.Components = &comps
	}

	if len(candidates) > 0 {
		if out.DBID == "" {
			return errDBIDRequired
		}
		opts := cc.ExecOptions()
		if opts == nil {
			return errors.New("execution grading requires exec.driver\nHint: Use --exec-driver sqlite")
		}
		exec, err := opts.Open(ctx, out.DBID)
		if err != nil {
			return fmt.Errorf("failed to open database %q: %w", out.DBID, err)
		}
		defer func() { _ = exec.Close() }()

		classifier := &hardness.ExecClassifier{
			Querier:     exec,
			Timeout:     opts.Timeout,
			Concurrency: opts.Concurrency,
			Thresholds:  opts.Thresholds,
			Logger:      cc.Logger,
		}
		res := classifier.Classify(ctx, sql, candidates)
		out.Exec = &res
	}

	r := cc.Renderer
	if r.Structured() {
		return r.Encode(out)
	}
	renderClassify(r, out)
	return nil
}

func renderClassify(r *output.Renderer, out ClassifyOutput) {
	styles := r.Styles()
	rows := [][]string{}
	if out.Components != nil {
		rows = append(rows,
			[]string{"tier", styles.Tier(out.Tier)},
			[]string{"structural", strconv.Itoa(out.Components.Structural)},
			[]string{"nesting", strconv.Itoa(out.Components.Nesting)},
			[]string{"other", strconv.Itoa(out.Components.Other)},
		)
	}
	rows = append(rows,
		[]string{"lite tier", styles.Tier(out.LiteTier)},
		[]string{"lite score", strconv.Itoa(out.LiteScore)},
	)
	if out.Exec != nil {
		rows = append(rows,
			[]string{"exec tier", styles.Tier(out.Exec.Tier)},
			[]string{"matches", fmt.Sprintf("%d/%d", out.Exec.Matches, out.Exec.Candidates)},
			[]string{"failed", strconv.Itoa(out.Exec.Failed)},
		)
		if out.Exec.GoldError != "" {
			rows = append(rows, []string{"gold error", out.Exec.GoldError})
		}
	}
	r.Table([]string{"metric", "value"}, rows)
}
