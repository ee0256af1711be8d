package testutil

import (
	"testing"

	"github.com/leapstack-labs/sqlgrade/pkg/schema"
)

var concertSingerTables = []schema.Table{
	{Name: "stadium", Columns: []string{"stadium_id", "location", "name", "capacity", "highest", "lowest", "average"}},
	{Name: "singer", Columns: []string{"singer_id", "name", "country", "song_name", "song_release_year", "age", "is_male"}},
	{Name: "concert", Columns: []string{"concert_id", "concert_name", "theme", "stadium_id", "year"}},
	{Name: "singer_in_concert", Columns: []string{"concert_id", "singer_id"}},
}

// ConcertSinger returns the concert_singer schema used across package tests.
// "name" is owned by both stadium and singer.
func ConcertSinger(t testing.TB) *schema.Schema {
	t.Helper()
	s, err := schema.New("concert_singer", concertSingerTables...)
	if err != nil {
		t.Fatalf("concert_singer schema: %v", err)
	}
	return s
}

// ConcertSingerRaw returns the same schema in metadata-store form.
func ConcertSingerRaw() schema.RawSchema {
	raw := schema.RawSchema{
		DBID:        "concert_singer",
		ColumnNames: []schema.RawColumn{{TableIndex: -1, Name: "*"}},
		ColumnTypes: []string{"text"},
	}
	for i, table := range concertSingerTables {
		raw.TableNames = append(raw.TableNames, table.Name)
		for _, col := range table.Columns {
			raw.ColumnNames = append(raw.ColumnNames, schema.RawColumn{TableIndex: i, Name: col})
			raw.ColumnTypes = append(raw.ColumnTypes, "text")
		}
	}
	return raw
}

// ConcertSingerRegistry returns a registry that knows only concert_singer.
func ConcertSingerRegistry(t testing.TB) *schema.Registry {
	t.Helper()
	loader := schema.StaticLoader(map[string]schema.RawSchema{"concert_singer": ConcertSingerRaw()})
	return schema.NewRegistry(loader, NewTestLogger(t))
}
