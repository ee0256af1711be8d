package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sqlgrade/internal/batch"
	"github.com/leapstack-labs/sqlgrade/pkg/hardness"
	"github.com/leapstack-labs/sqlgrade/pkg/linking"
)

// SaveResults stores the per-record results of a run in one transaction.
// Saving the same record index twice replaces the earlier row.
func (s *SQLiteStore) SaveResults(runID string, results []batch.Result) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO results (
		run_id, record_index, db_id, query, status, tier, lite_tier, exec_tier,
		structural, nesting, other, used_schema, error, token_index
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range results {
		used, err := json.Marshal(r.Used)
		if err != nil {
			return fmt.Errorf("failed to encode used schema of record %d: %w", r.Index, err)
		}

		var execTier sql.NullString
		if r.Exec != nil {
			execTier = nullString(string(r.Exec.Tier))
		}
		var tokenIndex sql.NullInt64
		if r.TokenIndex != nil {
			tokenIndex = sql.NullInt64{Int64: int64(*r.TokenIndex), Valid: true}
		}

		_, err = stmt.Exec(
			runID, r.Index, r.DBID, r.Query, string(r.Status),
			nullString(string(r.Tier)), string(r.LiteTier), execTier,
			r.Components.Structural, r.Components.Nesting, r.Components.Other,
			string(used), nullString(r.Error), tokenIndex,
		)
		if err != nil {
			return fmt.Errorf("failed to save record %d: %w", r.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	s.logger.Debug("results saved", slog.String("run_id", runID), slog.Int("count", len(results)))
	return nil
}

// ListResults returns the stored results of a run ordered by record index.
func (s *SQLiteStore) ListResults(runID string) ([]*RecordRow, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(`SELECT
		run_id, record_index, db_id, query, status, tier, lite_tier, exec_tier,
		structural, nesting, other, used_schema, error, token_index
	FROM results WHERE run_id = ? ORDER BY record_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*RecordRow
	for rows.Next() {
		var (
			row                    RecordRow
			status, liteTier, used string
			tier, execTier, errMsg sql.NullString
			tokenIndex             sql.NullInt64
		)
		err := rows.Scan(
			&row.RunID, &row.Index, &row.DBID, &row.Query, &status, &tier, &liteTier, &execTier,
			&row.Components.Structural, &row.Components.Nesting, &row.Components.Other,
			&used, &errMsg, &tokenIndex,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		row.Status = batch.Status(status)
		row.Tier = hardness.Tier(tier.String)
		row.LiteTier = hardness.Tier(liteTier)
		row.ExecTier = hardness.Tier(execTier.String)
		row.Error = errMsg.String
		if tokenIndex.Valid {
			idx := int(tokenIndex.Int64)
			row.TokenIndex = &idx
		}
		row.Used = linking.UsedSchema{}
		if err := json.Unmarshal([]byte(used), &row.Used); err != nil {
			return nil, fmt.Errorf("failed to decode used schema of record %d: %w", row.Index, err)
		}
		out = append(out, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}
	return out, nil
}

// TierCounts returns how many graded records of a run fall in each tier.
// Ungradable records are counted under the empty tier.
func (s *SQLiteStore) TierCounts(runID string) (map[hardness.Tier]int, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT COALESCE(tier, ''), COUNT(*) FROM results WHERE run_id = ? GROUP BY tier`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tiers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[hardness.Tier]int)
	for rows.Next() {
		var (
			tier  string
			count int
		)
		if err := rows.Scan(&tier, &count); err != nil {
			return nil, fmt.Errorf("failed to scan tier count: %w", err)
		}
		counts[hardness.Tier(tier)] = count
	}
	return counts, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
