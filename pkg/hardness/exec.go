package hardness

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sqlgrade/pkg/execdb"
)

// Querier runs a query against a live database.
type Querier interface {
	Query(ctx context.Context, sql string) (*execdb.ResultSet, error)
}

// Thresholds map a number of matching candidates to a tier: at least Easy
// matches is easy, at least Medium is medium, at least Hard is hard, fewer
// is extra.
type Thresholds struct {
	Easy   int `koanf:"easy" json:"easy" yaml:"easy"`
	Medium int `koanf:"medium" json:"medium" yaml:"medium"`
	Hard   int `koanf:"hard" json:"hard" yaml:"hard"`
}

// DefaultThresholds suit ten candidates per record.
var DefaultThresholds = Thresholds{Easy: 8, Medium: 5, Hard: 2}

// Validate checks that the thresholds are ordered and non-negative.
func (t Thresholds) Validate() error {
	if t.Hard < 0 || t.Medium < t.Hard || t.Easy < t.Medium {
		return fmt.Errorf("thresholds must satisfy easy >= medium >= hard >= 0, got %d/%d/%d", t.Easy, t.Medium, t.Hard)
	}
	return nil
}

// TierFor returns the tier of a candidate match count.
func (t Thresholds) TierFor(matches int) Tier {
	switch {
	case matches >= t.Easy:
		return Easy
	case matches >= t.Medium:
		return Medium
	case matches >= t.Hard:
		return Hard
	default:
		return Extra
	}
}

// ExecResult is the outcome of grading one record by execution.
type ExecResult struct {
	Tier       Tier   `json:"tier" yaml:"tier"`
	Matches    int    `json:"matches" yaml:"matches"`
	Candidates int    `json:"candidates" yaml:"candidates"`
	Failed     int    `json:"failed" yaml:"failed"`
	GoldError  string `json:"gold_error,omitempty" yaml:"gold_error,omitempty"`
}

// ExecClassifier grades a gold query by how many candidate queries return
// the same result set on a live database.
type ExecClassifier struct {
	Querier     Querier
	Timeout     time.Duration // per query; zero means no timeout
	Concurrency int           // candidate queries in flight; <= 0 means 1
	Thresholds  Thresholds
	Logger      *slog.Logger
}

// Classify runs gold, then every candidate, and counts the matches. A gold
// failure yields GoldError without running the candidates; a candidate
// failure only counts as a non-match.
func (c *ExecClassifier) Classify(ctx context.Context, gold string, candidates []string) ExecResult {
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	res := ExecResult{Candidates: len(candidates)}

	want, err := c.run(ctx, gold)
	if err != nil {
		logger.Debug("gold query failed", "error", err)
		res.Tier = GoldError
		res.GoldError = err.Error()
		return res
	}

	var matches, failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(max(c.Concurrency, 1))
	for i, sql := range candidates {
		g.Go(func() error {
			got, err := c.run(ctx, sql)
			switch {
			case err != nil:
				failed.Add(1)
				logger.Debug("candidate query failed", "candidate", i, "error", err)
			case want.EqualUnordered(got):
				matches.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	res.Matches = int(matches.Load())
	res.Failed = int(failed.Load())
	res.Tier = c.Thresholds.TierFor(res.Matches)
	return res
}

func (c *ExecClassifier) run(ctx context.Context, sql string) (*execdb.ResultSet, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	rs, err := c.Querier.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	// Some drivers return partial results instead of an error on deadline.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return rs, nil
}
