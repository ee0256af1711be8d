// Package schema normalizes and indexes database schemas.
//
// A RawSchema is the metadata record handed over by the external metadata
// store. Normalize turns it into a Schema (lower-cased, trimmed, ordered
// table -> columns mapping) together with its IdentifierMap, the opaque column
// and table symbols the parser resolves references to. Names may not contain
// '.', which keeps every symbol unique. Both are pure; the Registry adds a
// per-database insert-once cache on top.
package schema

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Schema maps normalized table names to their ordered, normalized columns.
// A Schema is immutable once built.
type Schema struct {
	dbID    string
	tables  []string
	columns map[string][]string
	colSet  map[string]map[string]struct{}
	owners  map[string][]string // column -> owning tables, in table order
	ids     IdentifierMap
}

// Table is one table of a schema, used to build schemas by hand.
type Table struct {
	Name    string
	Columns []string
}

// NormalizeName lower-cases and trims an identifier after NFC normalization.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(name)))
}

// Normalize builds a Schema from the raw metadata record.
// Table names that collide after normalization are a *SchemaError.
func Normalize(raw RawSchema) (*Schema, error) {
	tables := make([]Table, len(raw.TableNames))
	for i, name := range raw.TableNames {
		tables[i].Name = name
	}

	for _, col := range raw.ColumnNames {
		if col.TableIndex < 0 {
			// The "*" pseudo-column carries table index -1.
			continue
		}
		if col.TableIndex >= len(tables) {
			return nil, &SchemaError{
				DBID:    raw.DBID,
				Message: fmt.Sprintf("column %q references table index %d, schema has %d tables", col.Name, col.TableIndex, len(tables)),
			}
		}
		tables[col.TableIndex].Columns = append(tables[col.TableIndex].Columns, col.Name)
	}

	return New(raw.DBID, tables...)
}

// New builds a Schema from tables in the given order.
func New(dbID string, tables ...Table) (*Schema, error) {
	s := &Schema{
		dbID:    dbID,
		columns: make(map[string][]string, len(tables)),
		colSet:  make(map[string]map[string]struct{}, len(tables)),
		owners:  make(map[string][]string),
	}

	for _, t := range tables {
		name := NormalizeName(t.Name)
		if name == "" {
			return nil, &SchemaError{DBID: dbID, Message: fmt.Sprintf("empty table name (raw %q)", t.Name)}
		}
		if strings.Contains(name, ".") {
			return nil, &SchemaError{DBID: dbID, Message: fmt.Sprintf("table name %q contains '.'", name)}
		}
		if _, dup := s.columns[name]; dup {
			return nil, &SchemaError{DBID: dbID, Message: fmt.Sprintf("duplicate table %q after normalization", name)}
		}

		set := make(map[string]struct{}, len(t.Columns))
		cols := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			col := NormalizeName(c)
			if col == "" || col == "*" {
				continue
			}
			if strings.Contains(col, ".") {
				return nil, &SchemaError{DBID: dbID, Message: fmt.Sprintf("column name %q of table %q contains '.'", col, name)}
			}
			if _, seen := set[col]; seen {
				continue
			}
			set[col] = struct{}{}
			cols = append(cols, col)
			s.owners[col] = append(s.owners[col], name)
		}

		s.tables = append(s.tables, name)
		s.columns[name] = cols
		s.colSet[name] = set
	}

	s.ids = BuildIdentifierMap(s)
	return s, nil
}

// DBID returns the database id the schema was built for.
func (s *Schema) DBID() string { return s.dbID }

// Identifiers returns the identifier map built with the schema. Callers must
// not modify it.
func (s *Schema) Identifiers() IdentifierMap { return s.ids }

// Tables returns the normalized table names in schema order.
func (s *Schema) Tables() []string {
	out := make([]string, len(s.tables))
	copy(out, s.tables)
	return out
}

// Columns returns the ordered columns of a table, or nil if it is unknown.
func (s *Schema) Columns(table string) []string {
	cols, ok := s.columns[table]
	if !ok {
		return nil
	}
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

// HasTable reports whether the normalized table exists.
func (s *Schema) HasTable(table string) bool {
	_, ok := s.columns[table]
	return ok
}

// HasColumn reports whether the table owns the column.
func (s *Schema) HasColumn(table, column string) bool {
	set, ok := s.colSet[table]
	if !ok {
		return false
	}
	_, ok = set[column]
	return ok
}

// Owners returns the tables owning a column name, in schema order.
func (s *Schema) Owners(column string) []string {
	owners := s.owners[column]
	out := make([]string, len(owners))
	copy(out, owners)
	return out
}

// UniqueOwner returns the only table owning the column. It reports false when
// the column is unknown or owned by more than one table.
func (s *Schema) UniqueOwner(column string) (string, bool) {
	owners := s.owners[column]
	if len(owners) != 1 {
		return "", false
	}
	return owners[0], true
}

// Map returns a copy of the schema as a table -> columns map.
func (s *Schema) Map() map[string][]string {
	out := make(map[string][]string, len(s.tables))
	for _, t := range s.tables {
		out[t] = s.Columns(t)
	}
	return out
}
