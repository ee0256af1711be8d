// Package batch grades datasets of training records concurrently.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sqlgrade/internal/dataset"
	"github.com/leapstack-labs/sqlgrade/pkg/execdb"
	"github.com/leapstack-labs/sqlgrade/pkg/hardness"
	"github.com/leapstack-labs/sqlgrade/pkg/linking"
	"github.com/leapstack-labs/sqlgrade/pkg/parser"
	"github.com/leapstack-labs/sqlgrade/pkg/schema"
)

// Status is the outcome of grading one record.
type Status string

const (
	// StatusGraded means the strict classifier produced a tier.
	StatusGraded Status = "graded"
	// StatusUngradable means the record's query or schema could not be
	// parsed. Lite tier and schema linking are still filled in.
	StatusUngradable Status = "ungradable"
)

// Result is the grading of one record.
type Result struct {
	Index      int                  `json:"index" yaml:"index"`
	DBID       string               `json:"db_id" yaml:"db_id"`
	Query      string               `json:"query" yaml:"query"`
	Status     Status               `json:"status" yaml:"status"`
	Tier       hardness.Tier        `json:"tier,omitempty" yaml:"tier,omitempty"`
	Components hardness.Components  `json:"components" yaml:"components"`
	LiteTier   hardness.Tier        `json:"lite_tier" yaml:"lite_tier"`
	Exec       *hardness.ExecResult `json:"exec,omitempty" yaml:"exec,omitempty"`
	Used       linking.UsedSchema   `json:"used_schema" yaml:"used_schema"`
	Error      string               `json:"error,omitempty" yaml:"error,omitempty"`
	TokenIndex *int                 `json:"token_index,omitempty" yaml:"token_index,omitempty"`
}

// ExecOptions enable execution-based grading for records with candidates.
type ExecOptions struct {
	// Open returns an executor connected to the database of dbID. The
	// runner closes it after grading the record.
	Open        func(ctx context.Context, dbID string) (execdb.Executor, error)
	Timeout     time.Duration
	Concurrency int
	Thresholds  hardness.Thresholds
}

// Runner grades records against schemas from a registry.
type Runner struct {
	Schemas *schema.Registry
	Workers int
	Exec    *ExecOptions
	Logger  *slog.Logger
}

// Run grades every record and returns the results in input order. A failing
// record never aborts the batch; only cancellation of ctx does.
func (r *Runner) Run(ctx context.Context, records []dataset.Record) ([]Result, error) {
	logger := r.logger()
	results := make([]Result, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Workers, 1))

	start := time.Now()
	for i, rec := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.Grade(gctx, i, rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch cancelled: %w", err)
	}

	logger.Info("batch complete",
		slog.Int("records", len(records)),
		slog.Duration("elapsed", time.Since(start)))
	return results, nil
}

// Grade grades a single record.
func (r *Runner) Grade(ctx context.Context, index int, rec dataset.Record) Result {
	logger := r.logger().With(slog.Int("record", index), slog.String("db_id", rec.DBID))
	res := Result{
		Index:    index,
		DBID:     rec.DBID,
		Query:    rec.Query,
		Status:   StatusGraded,
		LiteTier: hardness.ClassifyLite(rec.Query),
		Used:     linking.UsedSchema{},
	}

	entry, err := r.Schemas.Get(ctx, rec.DBID)
	if err != nil {
		res.Status = StatusUngradable
		res.Error = err.Error()
		logger.Warn("record ungradable", slog.String("error", err.Error()))
		return res
	}

	res.Used = linking.LinkSchemaWithLogger(rec.Query, entry.Schema, logger)

	tier, comps, err := hardness.ClassifySQL(rec.Query, entry.Schema)
	if err != nil {
		res.Status = StatusUngradable
		res.Error = err.Error()
		attrs := []any{slog.String("error", err.Error())}
		if idx, ok := parser.TokenIndex(err); ok {
			res.TokenIndex = &idx
			attrs = append(attrs, slog.Int("token_index", idx))
		}
		logger.Warn("record ungradable", attrs...)
	} else {
		res.Tier = tier
		res.Components = comps
	}

	if r.Exec != nil && len(rec.Candidates) > 0 {
		res.Exec = r.execute(ctx, rec, logger)
	}
	return res
}

func (r *Runner) execute(ctx context.Context, rec dataset.Record, logger *slog.Logger) *hardness.ExecResult {
	exec, err := r.Exec.Open(ctx, rec.DBID)
	if err != nil {
		logger.Warn("failed to open executor", slog.String("error", err.Error()))
		return &hardness.ExecResult{Tier: hardness.GoldError, Candidates: len(rec.Candidates), GoldError: err.Error()}
	}
	defer func() {
		if err := exec.Close(); err != nil {
			logger.Debug("failed to close executor", slog.String("error", err.Error()))
		}
	}()

	c := &hardness.ExecClassifier{
		Querier:     exec,
		Timeout:     r.Exec.Timeout,
		Concurrency: r.Exec.Concurrency,
		Thresholds:  r.Exec.Thresholds,
		Logger:      logger,
	}
	res := c.Classify(ctx, rec.Query, rec.Candidates)
	return &res
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

// Summary counts results by tier.
type Summary struct {
	Total      int                   `json:"total" yaml:"total"`
	Ungradable int                   `json:"ungradable" yaml:"ungradable"`
	Tiers      map[hardness.Tier]int `json:"tiers" yaml:"tiers"`
	LiteTiers  map[hardness.Tier]int `json:"lite_tiers" yaml:"lite_tiers"`
	ExecTiers  map[hardness.Tier]int `json:"exec_tiers,omitempty" yaml:"exec_tiers,omitempty"`
}

// Summarize tallies results.
func Summarize(results []Result) Summary {
	s := Summary{
		Total:     len(results),
		Tiers:     make(map[hardness.Tier]int),
		LiteTiers: make(map[hardness.Tier]int),
	}
	for _, res := range results {
		if res.Status == StatusUngradable {
			s.Ungradable++
		} else {
			s.Tiers[res.Tier]++
		}
		s.LiteTiers[res.LiteTier]++
		if res.Exec != nil {
			if s.ExecTiers == nil {
				s.ExecTiers = make(map[hardness.Tier]int)
			}
			s.ExecTiers[res.Exec.Tier]++
		}
	}
	return s
}
