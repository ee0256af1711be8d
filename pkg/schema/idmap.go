package schema

import "strings"

// Symbol is the opaque identifier the parser resolves references to.
type Symbol string

// AllColumns is the symbol of the "*" wildcard.
const AllColumns Symbol = "__all__"

// TableSymbol returns the symbol of a bare table.
func TableSymbol(table string) Symbol {
	return Symbol("__" + table + "__")
}

// ColumnSymbol returns the symbol of a table column.
func ColumnSymbol(table, column string) Symbol {
	return Symbol("__" + table + "." + column + "__")
}

// Parts decodes a symbol. The wildcard yields ("", "*"), a table symbol
// yields (table, "").
func (s Symbol) Parts() (table, column string) {
	if s == AllColumns {
		return "", "*"
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(string(s), "__"), "__")
	if i := strings.IndexByte(inner, '.'); i >= 0 {
		return inner[:i], inner[i+1:]
	}
	return inner, ""
}

// IsTable reports whether the symbol names a bare table.
func (s Symbol) IsTable() bool {
	if s == AllColumns || s == "" {
		return false
	}
	_, col := s.Parts()
	return col == ""
}

// IdentifierMap maps "table.column", "table" and "*" to their symbols.
type IdentifierMap map[string]Symbol

// BuildIdentifierMap derives the identifier map of a schema.
func BuildIdentifierMap(s *Schema) IdentifierMap {
	ids := IdentifierMap{"*": AllColumns}
	for _, table := range s.tables {
		ids[table] = TableSymbol(table)
		for _, col := range s.columns[table] {
			ids[table+"."+col] = ColumnSymbol(table, col)
		}
	}
	return ids
}

// Lookup returns the symbol for a key, reporting whether it exists.
func (m IdentifierMap) Lookup(key string) (Symbol, bool) {
	sym, ok := m[key]
	return sym, ok
}
