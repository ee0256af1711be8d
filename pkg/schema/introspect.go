package schema

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// IntrospectSQLite reads table and column metadata from a live SQLite
// database, in sqlite_master order.
func IntrospectSQLite(ctx context.Context, db *sql.DB, dbID string) (RawSchema, error) {
	raw := RawSchema{
		DBID:        dbID,
		ColumnNames: []RawColumn{{TableIndex: -1, Name: "*"}},
		ColumnTypes: []string{"text"},
	}

	rows, err := db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid")
	if err != nil {
		return RawSchema{}, fmt.Errorf("failed to list tables: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return RawSchema{}, fmt.Errorf("failed to scan table name: %w", err)
		}
		raw.TableNames = append(raw.TableNames, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return RawSchema{}, fmt.Errorf("failed to list tables: %w", err)
	}
	rows.Close()

	// Column index of every "table.column", for foreign key resolution.
	colIndex := make(map[string]int)

	for ti, table := range raw.TableNames {
		cols, err := tableInfo(ctx, db, table)
		if err != nil {
			return RawSchema{}, err
		}
		for _, c := range cols {
			idx := len(raw.ColumnNames)
			raw.ColumnNames = append(raw.ColumnNames, RawColumn{TableIndex: ti, Name: c.name})
			raw.ColumnTypes = append(raw.ColumnTypes, strings.ToLower(c.typ))
			if c.pk > 0 {
				raw.PrimaryKeys = append(raw.PrimaryKeys, idx)
			}
			colIndex[NormalizeName(table)+"."+NormalizeName(c.name)] = idx
		}
	}

	for _, table := range raw.TableNames {
		fks, err := foreignKeys(ctx, db, table)
		if err != nil {
			return RawSchema{}, err
		}
		for _, fk := range fks {
			from, ok1 := colIndex[NormalizeName(table)+"."+NormalizeName(fk.from)]
			to, ok2 := colIndex[NormalizeName(fk.table)+"."+NormalizeName(fk.to)]
			if ok1 && ok2 {
				raw.ForeignKeys = append(raw.ForeignKeys, [2]int{from, to})
			}
		}
	}

	return raw, nil
}

type columnInfo struct {
	name string
	typ  string
	pk   int
}

func tableInfo(ctx context.Context, db *sql.DB, table string) ([]columnInfo, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []columnInfo
	for rows.Next() {
		var (
			cid     int
			c       columnInfo
			notNull int
			dflt    sql.NullString
		)
		if err := rows.Scan(&cid, &c.name, &c.typ, &notNull, &dflt, &c.pk); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

type foreignKey struct {
	table string
	from  string
	to    string
}

func foreignKeys(ctx context.Context, db *sql.DB, table string) ([]foreignKey, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign keys of %s: %w", table, err)
	}
	defer rows.Close()

	var fks []foreignKey
	for rows.Next() {
		var id, seq int
		var fk foreignKey
		var to sql.NullString
		var onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &fk.table, &fk.from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key of %s: %w", table, err)
		}
		fk.to = to.String
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SQLiteDirLoader loads schemas by introspecting <dir>/<db_id>/<db_id>.sqlite,
// the layout Spider-style benchmarks ship their databases in.
func SQLiteDirLoader(dir string) Loader {
	return func(ctx context.Context, dbID string) (RawSchema, error) {
		path := SQLitePath(dir, dbID)
		if _, err := os.Stat(path); err != nil {
			return RawSchema{}, &UnknownDatabaseError{DBID: dbID}
		}

		db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
		if err != nil {
			return RawSchema{}, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer db.Close()

		return IntrospectSQLite(ctx, db, dbID)
	}
}

// SQLitePath returns the database file path of dbID under dir.
func SQLitePath(dir, dbID string) string {
	return filepath.Join(dir, dbID, dbID+".sqlite")
}
