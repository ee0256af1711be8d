package schema_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlgrade/internal/testutil"
	. "github.com/leapstack-labs/sqlgrade/pkg/schema"
)

func concertRaw() RawSchema {
	return RawSchema{
		DBID:       "concert_singer",
		TableNames: []string{"Stadium", " Singer ", "concert"},
		ColumnNames: []RawColumn{
			{TableIndex: -1, Name: "*"},
			{TableIndex: 0, Name: "Stadium_ID"},
			{TableIndex: 0, Name: "Name"},
			{TableIndex: 1, Name: "Singer_ID"},
			{TableIndex: 1, Name: "Name"},
			{TableIndex: 1, Name: "Age"},
			{TableIndex: 2, Name: "concert_ID"},
			{TableIndex: 2, Name: "Stadium_ID"},
		},
	}
}

func TestNormalize(t *testing.T) {
	s, err := Normalize(concertRaw())
	require.NoError(t, err)

	assert.Equal(t, "concert_singer", s.DBID())
	assert.Equal(t, []string{"stadium", "singer", "concert"}, s.Tables())
	assert.Equal(t, []string{"singer_id", "name", "age"}, s.Columns("singer"))
	assert.True(t, s.HasColumn("stadium", "stadium_id"))
	assert.False(t, s.HasColumn("stadium", "age"))
	assert.Nil(t, s.Columns("missing"))

	assert.Equal(t, []string{"stadium", "singer"}, s.Owners("name"))
	owner, ok := s.UniqueOwner("age")
	assert.True(t, ok)
	assert.Equal(t, "singer", owner)
	_, ok = s.UniqueOwner("name")
	assert.False(t, ok)
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  RawSchema
		want string
	}{
		{
			name: "duplicate after normalization",
			raw:  RawSchema{DBID: "db", TableNames: []string{"Singer", "singer "}},
			want: `duplicate table "singer"`,
		},
		{
			name: "column index out of range",
			raw: RawSchema{
				DBID:        "db",
				TableNames:  []string{"t"},
				ColumnNames: []RawColumn{{TableIndex: 3, Name: "x"}},
			},
			want: "references table index 3",
		},
		{
			name: "empty table name",
			raw:  RawSchema{DBID: "db", TableNames: []string{"  "}},
			want: "empty table name",
		},
		{
			name: "dotted table name",
			raw:  RawSchema{DBID: "db", TableNames: []string{"a.b"}},
			want: `table name "a.b" contains '.'`,
		},
		{
			name: "dotted column name",
			raw: RawSchema{
				DBID:        "db",
				TableNames:  []string{"a"},
				ColumnNames: []RawColumn{{TableIndex: 0, Name: "b.c"}},
			},
			want: `column name "b.c" of table "a" contains '.'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			require.Error(t, err)
			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNormalize_CollapsesDuplicateColumns(t *testing.T) {
	s, err := New("db", Table{Name: "T", Columns: []string{"A", "a ", "b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, s.Columns("t"))
}

func TestNormalizeName_NFC(t *testing.T) {
	// "E" followed by a combining acute accent composes to a single rune.
	assert.Equal(t, "caf\u00e9", NormalizeName(" CAFE\u0301 "))
}

func TestBuildIdentifierMap(t *testing.T) {
	s, err := Normalize(concertRaw())
	require.NoError(t, err)

	ids := BuildIdentifierMap(s)
	assert.Equal(t, AllColumns, ids["*"])
	assert.Equal(t, Symbol("__singer__"), ids["singer"])
	assert.Equal(t, Symbol("__singer.age__"), ids["singer.age"])

	seen := make(map[Symbol]string, len(ids))
	for key, sym := range ids {
		prev, dup := seen[sym]
		assert.False(t, dup, "symbol %s shared by %q and %q", sym, prev, key)
		seen[sym] = key
	}
	// 3 tables + 7 columns + "*"
	assert.Len(t, ids, 11)
	assert.Equal(t, ids, s.Identifiers())
}

func TestNew_DottedNamesCannotShareSymbols(t *testing.T) {
	// Both would otherwise map to __a.b.c__.
	_, err := New("db", Table{Name: "a.b", Columns: []string{"c"}}, Table{Name: "x", Columns: []string{"y"}})
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))

	_, err = New("db", Table{Name: "a", Columns: []string{"b.c"}})
	require.True(t, errors.As(err, &schemaErr))
}

func TestSymbol_Parts(t *testing.T) {
	table, col := ColumnSymbol("singer", "age").Parts()
	assert.Equal(t, "singer", table)
	assert.Equal(t, "age", col)

	table, col = TableSymbol("singer").Parts()
	assert.Equal(t, "singer", table)
	assert.Empty(t, col)
	assert.True(t, TableSymbol("singer").IsTable())
	assert.False(t, AllColumns.IsTable())
}

const tablesJSON = `[
  {
    "db_id": "pets_1",
    "table_names_original": ["Student", "Has_Pet"],
    "column_names_original": [[-1, "*"], [0, "StuID"], [0, "LName"], [1, "StuID"], [1, "PetID"]],
    "column_types": ["text", "number", "text", "number", "number"],
    "primary_keys": [1, [3, 4]],
    "foreign_keys": [[3, 1]]
  }
]`

func TestLoadSpiderTables(t *testing.T) {
	raws, err := LoadSpiderTables(strings.NewReader(tablesJSON))
	require.NoError(t, err)
	require.Contains(t, raws, "pets_1")

	raw := raws["pets_1"]
	assert.Equal(t, KeyList{1, 3, 4}, raw.PrimaryKeys)
	assert.Equal(t, [][2]int{{3, 1}}, raw.ForeignKeys)
	assert.Equal(t, RawColumn{TableIndex: 0, Name: "LName"}, raw.ColumnNames[2])

	s, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"stuid", "petid"}, s.Columns("has_pet"))
}

func TestLoadSpiderTables_DuplicateID(t *testing.T) {
	_, err := LoadSpiderTables(strings.NewReader(`[{"db_id":"a"},{"db_id":"a"}]`))
	var schemaErr *SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestRegistry_InsertOnce(t *testing.T) {
	var loads atomic.Int32
	reg := NewRegistry(func(_ context.Context, dbID string) (RawSchema, error) {
		loads.Add(1)
		raw := concertRaw()
		raw.DBID = dbID
		return raw, nil
	}, testutil.NewTestLogger(t))

	var wg sync.WaitGroup
	entries := make([]*Entry, 16)
	for i := range entries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := reg.Get(context.Background(), "concert_singer")
			assert.NoError(t, err)
			entries[i] = e
		}(i)
	}
	wg.Wait()

	for _, e := range entries {
		assert.Same(t, entries[0], e)
	}
	assert.LessOrEqual(t, loads.Load(), int32(2))
	assert.Equal(t, 1, reg.Len())

	again, err := reg.Put("concert_singer", RawSchema{DBID: "other", TableNames: []string{"x"}})
	require.NoError(t, err)
	assert.Same(t, entries[0], again)
}

func TestRegistry_FailuresNotCached(t *testing.T) {
	fail := true
	reg := NewRegistry(func(_ context.Context, dbID string) (RawSchema, error) {
		if fail {
			return RawSchema{}, errors.New("metadata store down")
		}
		return RawSchema{DBID: dbID, TableNames: []string{"t"}}, nil
	}, nil)

	_, err := reg.Get(context.Background(), "db")
	require.Error(t, err)
	assert.Equal(t, 0, reg.Len())

	fail = false
	e, err := reg.Get(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, []string{"t"}, e.Schema.Tables())
}

func TestStaticLoader_Unknown(t *testing.T) {
	reg := NewRegistry(StaticLoader(map[string]RawSchema{}), nil)
	_, err := reg.Get(context.Background(), "nope")
	var unknown *UnknownDatabaseError
	assert.True(t, errors.As(err, &unknown))
}

func TestIntrospectSQLite(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	_, err = db.ExecContext(ctx, `
		CREATE TABLE singer (singer_id INTEGER PRIMARY KEY, name TEXT, age INT);
		CREATE TABLE concert (concert_id INTEGER PRIMARY KEY, singer_id INT REFERENCES singer(singer_id));
	`)
	require.NoError(t, err)

	raw, err := IntrospectSQLite(ctx, db, "concert_singer")
	require.NoError(t, err)
	assert.Equal(t, []string{"singer", "concert"}, raw.TableNames)
	assert.Equal(t, RawColumn{TableIndex: -1, Name: "*"}, raw.ColumnNames[0])
	assert.Equal(t, KeyList{1, 4}, raw.PrimaryKeys)
	assert.Equal(t, [][2]int{{5, 1}}, raw.ForeignKeys)

	s, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"singer_id", "name", "age"}, s.Columns("singer"))
}
