package state

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlgrade/internal/batch"
	"github.com/leapstack-labs/sqlgrade/internal/testutil"
	"github.com/leapstack-labs/sqlgrade/pkg/hardness"
	"github.com/leapstack-labs/sqlgrade/pkg/linking"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate())
	return store
}

func intPtr(i int) *int { return &i }

func sampleResults() []batch.Result {
	return []batch.Result{
		{
			Index:      0,
			DBID:       "concert_singer",
			Query:      "SELECT count(*) FROM singer",
			Status:     batch.StatusGraded,
			Tier:       hardness.Easy,
			Components: hardness.Components{Structural: 0},
			LiteTier:   hardness.Easy,
			Used:       linking.UsedSchema{"singer": {}},
		},
		{
			Index:      1,
			DBID:       "concert_singer",
			Query:      "SELECT nope FROM singer",
			Status:     batch.StatusUngradable,
			LiteTier:   hardness.Easy,
			Used:       linking.UsedSchema{},
			Error:      `resolution error at token 1: unknown column "nope"`,
			TokenIndex: intPtr(1),
		},
		{
			Index:      2,
			DBID:       "concert_singer",
			Query:      "SELECT name FROM singer WHERE age > 1 ORDER BY age",
			Status:     batch.StatusGraded,
			Tier:       hardness.Medium,
			Components: hardness.Components{Structural: 2},
			LiteTier:   hardness.Medium,
			Exec:       &hardness.ExecResult{Tier: hardness.Hard, Matches: 3, Candidates: 10},
			Used:       linking.UsedSchema{"singer": {"age", "name"}},
		},
	}
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Close())
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)

	_, err := store.CreateRun("train.json")
	assert.EqualError(t, err, "database not opened")
	assert.EqualError(t, store.Migrate(), "database not opened")
	assert.EqualError(t, store.SaveResults("x", nil), "database not opened")
	_, err = store.TierCounts("x")
	assert.EqualError(t, err, "database not opened")
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate())

	for _, table := range []string{"runs", "results"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, "table %s", table)
		_ = rows.Close()
	}
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	tests := []struct {
		name       string
		status     RunStatus
		errMsg     string
		wantStatus RunStatus
		wantErr    string
	}{
		{name: "completed", status: RunStatusCompleted, wantStatus: RunStatusCompleted},
		{name: "failed", status: RunStatusFailed, errMsg: "dataset unreadable", wantStatus: RunStatusFailed, wantErr: "dataset unreadable"},
		{name: "cancelled", status: RunStatusCancelled, wantStatus: RunStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)

			run, err := store.CreateRun("dev.json")
			require.NoError(t, err)
			assert.Equal(t, RunStatusRunning, run.Status)
			assert.NotEmpty(t, run.ID)

			require.NoError(t, store.CompleteRun(run.ID, tt.status, tt.errMsg))

			got, err := store.GetRun(run.ID)
			require.NoError(t, err)
			assert.Equal(t, "dev.json", got.Dataset)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantErr, got.Error)
			require.NotNil(t, got.CompletedAt)
		})
	}
}

func TestSQLiteStore_GetRun_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetRun("missing")
	assert.EqualError(t, err, "run not found: missing")
	assert.EqualError(t, store.CompleteRun("missing", RunStatusCompleted, ""), "run not found: missing")
}

func TestSQLiteStore_LatestRun(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.LatestRun()
	require.NoError(t, err)
	assert.Nil(t, run)

	_, err = store.CreateRun("a.json")
	require.NoError(t, err)
	second, err := store.CreateRun("b.json")
	require.NoError(t, err)

	latest, err := store.LatestRun()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)
}

func TestSQLiteStore_Results(t *testing.T) {
	store := setupTestStore(t)
	run, err := store.CreateRun("dev.json")
	require.NoError(t, err)

	require.NoError(t, store.SaveResults(run.ID, sampleResults()))

	rows, err := store.ListResults(run.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, hardness.Easy, rows[0].Tier)
	assert.Equal(t, linking.UsedSchema{"singer": {}}, rows[0].Used)
	assert.Nil(t, rows[0].TokenIndex)

	assert.Equal(t, batch.StatusUngradable, rows[1].Status)
	assert.Empty(t, rows[1].Tier)
	require.NotNil(t, rows[1].TokenIndex)
	assert.Equal(t, 1, *rows[1].TokenIndex)
	assert.Contains(t, rows[1].Error, "nope")

	assert.Equal(t, hardness.Medium, rows[2].Tier)
	assert.Equal(t, hardness.Hard, rows[2].ExecTier)
	assert.Equal(t, 2, rows[2].Components.Structural)
	assert.Equal(t, linking.UsedSchema{"singer": {"age", "name"}}, rows[2].Used)

	counts, err := store.TierCounts(run.ID)
	require.NoError(t, err)
	assert.Equal(t, map[hardness.Tier]int{hardness.Easy: 1, hardness.Medium: 1, "": 1}, counts)
}

func TestSQLiteStore_SaveResults_Replace(t *testing.T) {
	store := setupTestStore(t)
	run, err := store.CreateRun("dev.json")
	require.NoError(t, err)

	results := sampleResults()
	require.NoError(t, store.SaveResults(run.ID, results))

	results[0].Tier = hardness.Extra
	require.NoError(t, store.SaveResults(run.ID, results[:1]))

	rows, err := store.ListResults(run.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, hardness.Extra, rows[0].Tier)
}

func TestSQLiteStore_SaveResults_UnknownRun(t *testing.T) {
	store := setupTestStore(t)

	err := store.SaveResults("missing", sampleResults())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save record 0")

	rows, err := store.ListResults("missing")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLiteStore_SaveResults_RollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := &SQLiteStore{db: db, logger: testutil.NewTestLogger(t)}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT OR REPLACE INTO results")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = store.SaveResults("run-1", sampleResults())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save record 1")
	assert.Contains(t, err.Error(), "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_TierCounts_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := &SQLiteStore{db: db, logger: testutil.NewTestLogger(t)}
	mock.ExpectQuery("SELECT COALESCE").WithArgs("run-1").WillReturnError(errors.New("locked"))

	_, err = store.TierCounts("run-1")
	assert.EqualError(t, err, "failed to count tiers: locked")
	require.NoError(t, mock.ExpectationsWereMet())
}
