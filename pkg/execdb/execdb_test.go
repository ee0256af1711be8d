package execdb

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlgrade/internal/testutil"
)

func TestBaseExecutor_Query(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		setupMock func(mock sqlmock.Sqlmock)
		maxRows   int
		wantRows  int
		errMsg    string
	}{
		{
			name:    "query without connection",
			setupDB: false,
			errMsg:  "database connection not established",
		},
		{
			name:    "query success",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "name"}).
					AddRow(1, []byte("alice")).
					AddRow(2, "bob")
				mock.ExpectQuery("SELECT").WillReturnRows(rows)
			},
			wantRows: 2,
		},
		{
			name:    "query error",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)
			},
			errMsg: "failed to execute query",
		},
		{
			name:    "row limit",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(3)
				mock.ExpectQuery("SELECT").WillReturnRows(rows)
			},
			maxRows: 2,
			errMsg:  "exceeds 2 rows",
		},
		{
			name:    "row error",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id"}).AddRow(1).RowError(0, errors.New("disk gone"))
				mock.ExpectQuery("SELECT").WillReturnRows(rows)
			},
			errMsg: "disk gone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := newBase(testutil.NewTestLogger(t))
			base.Cfg.MaxRows = tt.maxRows

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				defer func() { _ = db.Close() }()
				if tt.setupMock != nil {
					tt.setupMock(mock)
				}
				base.DB = db
			}

			rs, err := base.Query(context.Background(), "SELECT id, name FROM t")
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRows, rs.Len())
			assert.Equal(t, "alice", rs.Rows[0][1], "[]byte values are read as strings")
		})
	}
}

func TestBaseExecutor_Close(t *testing.T) {
	base := newBase(nil)
	assert.False(t, base.IsConnected())
	assert.NoError(t, base.Close())

	_, err := base.Query(context.Background(), "SELECT 1")
	assert.ErrorContains(t, err, "not established")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()
	base.DB = db
	assert.True(t, base.IsConnected())
	assert.NoError(t, base.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultSet_EqualUnordered(t *testing.T) {
	rs := func(rows ...[]any) *ResultSet { return &ResultSet{Rows: rows} }

	tests := []struct {
		name string
		a, b *ResultSet
		want bool
	}{
		{"both empty", rs(), rs(), true},
		{"nil and empty", nil, rs(), true},
		{"row order ignored", rs([]any{int64(1)}, []any{int64(2)}), rs([]any{int64(2)}, []any{int64(1)}), true},
		{"int equals float", rs([]any{int64(3), "x"}), rs([]any{3.0, "x"}), true},
		{"fraction differs", rs([]any{3.5}), rs([]any{int64(3)}), false},
		{"multiplicity matters", rs([]any{"a"}, []any{"a"}, []any{"b"}), rs([]any{"a"}, []any{"b"}, []any{"b"}), false},
		{"null distinct from string", rs([]any{nil}), rs([]any{"null"}), false},
		{"number distinct from string", rs([]any{int64(1)}), rs([]any{"1"}), false},
		{"bytes equal string", rs([]any{[]byte("a")}), rs([]any{"a"}), true},
		{"column order matters", rs([]any{"a", "b"}), rs([]any{"b", "a"}), false},
		{"length differs", rs([]any{"a"}), rs(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.EqualUnordered(tt.b))
			assert.Equal(t, tt.want, tt.b.EqualUnordered(tt.a))
		})
	}
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"duckdb", "postgres", "sqlite"}, Drivers())

	_, err := Open(context.Background(), Config{Driver: "oracle"}, nil)
	var unknown *UnknownDriverError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "oracle", unknown.Driver)

	_, err = Open(context.Background(), Config{}, nil)
	assert.Error(t, err)
}

func TestConfig_ForDB(t *testing.T) {
	cfg := Config{Driver: "sqlite", Path: "data/{db_id}/{db_id}.sqlite", DSN: "dbname={db_id}"}
	got := cfg.ForDB("pets_1")
	assert.Equal(t, "data/pets_1/pets_1.sqlite", got.Path)
	assert.Equal(t, "dbname=pets_1", got.DSN)
	assert.Equal(t, "data/{db_id}/{db_id}.sqlite", cfg.Path)
}

func TestPostgresDSN(t *testing.T) {
	assert.Equal(t, "host=db", postgresDSN(Config{DSN: "host=db"}))
	assert.Equal(t, "host=db default_transaction_read_only=on", postgresDSN(Config{DSN: "host=db", ReadOnly: true}))
	assert.Equal(t, "postgres://u@db/x?default_transaction_read_only=on", postgresDSN(Config{DSN: "postgres://u@db/x", ReadOnly: true}))
	assert.Equal(t, "postgres://u@db/x?sslmode=disable&default_transaction_read_only=on",
		postgresDSN(Config{DSN: "postgres://u@db/x?sslmode=disable", ReadOnly: true}))
}

func TestSQLite_InMemory(t *testing.T) {
	ctx := context.Background()
	exec, err := Open(ctx, Config{Driver: "sqlite", Path: ":memory:"}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = exec.Close() }()
	assert.Equal(t, "sqlite", exec.Driver())

	sqlite, ok := exec.(*SQLite)
	require.True(t, ok)
	_, err = sqlite.DB.ExecContext(ctx, "CREATE TABLE t (a INT, b TEXT); INSERT INTO t VALUES (1, 'x'), (2, 'y');")
	require.NoError(t, err)

	got, err := exec.Query(ctx, "SELECT a, b FROM t ORDER BY a DESC")
	require.NoError(t, err)
	want := &ResultSet{Rows: [][]any{{int64(1), "x"}, {int64(2), "y"}}}
	assert.True(t, want.EqualUnordered(got))
	assert.Equal(t, []string{"a", "b"}, got.Columns)
}
