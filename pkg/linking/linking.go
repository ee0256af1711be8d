// Package linking finds the tables and columns a query actually touches.
//
// LinkSchema qualifies every unqualified column that only one schema table
// owns, re-parses the rewritten text into a generic syntax tree, then walks
// each SELECT scope attributing column references to the FROM tables in
// scope. Columns still ambiguous after the rewrite go to the first FROM
// table that owns them, innermost scope first.
package linking

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/leapstack-labs/sqlgrade/pkg/parser"
	"github.com/leapstack-labs/sqlgrade/pkg/schema"
	"github.com/leapstack-labs/sqlgrade/pkg/sqlast"
	"github.com/leapstack-labs/sqlgrade/pkg/token"
)

// UsedSchema maps each table a query reads to the sorted columns it uses.
// A table referenced in FROM whose columns are never named maps to an empty
// list.
type UsedSchema map[string][]string

// Tables returns the table names in sorted order.
func (u UsedSchema) Tables() []string {
	tables := make([]string, 0, len(u))
	for t := range u {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}

// LinkSchema returns the schema subset sql uses. Any failure yields an
// empty UsedSchema.
func LinkSchema(sql string, s *schema.Schema) UsedSchema {
	return LinkSchemaWithLogger(sql, s, nil)
}

// LinkSchemaWithLogger is LinkSchema with the reason for an empty result
// logged at debug level.
func LinkSchemaWithLogger(sql string, s *schema.Schema, logger *slog.Logger) UsedSchema {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	used, err := link(sql, s)
	if err != nil {
		logger.Debug("schema linking degraded to empty", "error", err)
		return UsedSchema{}
	}
	return used
}

func link(sql string, s *schema.Schema) (UsedSchema, error) {
	if s == nil {
		return nil, errors.New("no schema")
	}
	tokens, err := token.Tokenize(sql)
	if err != nil {
		return nil, err
	}
	aliases, err := parser.ResolveTables(tokens, s)
	if err != nil {
		return nil, err
	}

	rewritten := Qualify(sql, tokens, s, aliases)
	stmt, err := sqlast.Parse(rewritten)
	if err != nil {
		return nil, fmt.Errorf("re-parse qualified query: %w", err)
	}

	l := &linker{
		schema:  s,
		aliases: aliases,
		used:    make(map[string]map[string]struct{}),
		ctes:    make(map[string]struct{}),
	}
	if err := l.stmt(stmt, nil); err != nil {
		return nil, err
	}
	return l.result(), nil
}

// Qualify rewrites every unqualified column owned by exactly one schema
// table into qualifier.column, where the qualifier is the owner's alias
// (the lexicographically first when there are several) or else its name.
// Table names, aliases, function names and names declared after AS are
// left alone.
func Qualify(sql string, tokens []token.Token, s *schema.Schema, aliases parser.AliasMap) string {
	qualifiers := ownerQualifiers(aliases)

	var b strings.Builder
	last := 0
	for i, tok := range tokens {
		if !rewritable(tokens, i, aliases) {
			continue
		}
		owner, ok := s.UniqueOwner(tok.Text)
		if !ok {
			continue
		}
		qual := owner
		if alias, ok := qualifiers[owner]; ok {
			qual = alias
		}

		b.WriteString(sql[last:tok.Pos.Offset])
		b.WriteString(qual)
		b.WriteByte('.')
		b.WriteString(tok.Text)
		last = tok.End
	}
	b.WriteString(sql[last:])
	return b.String()
}

func rewritable(tokens []token.Token, i int, aliases parser.AliasMap) bool {
	tok := tokens[i]
	if tok.Kind != token.Identifier || strings.Contains(tok.Text, ".") {
		return false
	}
	if _, ok := aliases[tok.Text]; ok {
		return false
	}
	if i+1 < len(tokens) && tokens[i+1].Is("(") {
		return false
	}
	if i > 0 && tokens[i-1].Is("as") {
		return false
	}
	return true
}

// ownerQualifiers picks one alias per aliased table.
func ownerQualifiers(aliases parser.AliasMap) map[string]string {
	names := make([]string, 0, len(aliases))
	for alias := range aliases {
		names = append(names, alias)
	}
	sort.Strings(names)

	out := make(map[string]string)
	for _, alias := range names {
		table := aliases[alias]
		if alias == table {
			continue
		}
		if _, ok := out[table]; !ok {
			out[table] = alias
		}
	}
	return out
}

// scope is the name environment of one SELECT core.
type scope struct {
	tables  []string          // real FROM tables, in order
	names   map[string]string // alias or table name -> real table
	derived map[string]struct{}
	outer   *scope
}

func newScope(outer *scope) *scope {
	return &scope{
		names:   make(map[string]string),
		derived: make(map[string]struct{}),
		outer:   outer,
	}
}

type linker struct {
	schema  *schema.Schema
	aliases parser.AliasMap
	used    map[string]map[string]struct{}
	ctes    map[string]struct{}
}

func (l *linker) stmt(stmt *sqlast.SelectStmt, outer *scope) error {
	if stmt == nil {
		return nil
	}
	if stmt.With != nil {
		for _, cte := range stmt.With.CTEs {
			if err := l.stmt(cte.Select, outer); err != nil {
				return err
			}
			l.ctes[cte.Name] = struct{}{}
		}
	}
	for body := stmt.Body; body != nil; body = body.Right {
		if err := l.core(body.Left, outer); err != nil {
			return err
		}
	}
	return nil
}

func (l *linker) core(core *sqlast.SelectCore, outer *scope) error {
	if core == nil {
		return nil
	}
	sc := newScope(outer)

	var exprs []sqlast.Expr
	if core.From != nil {
		if err := l.tableRef(core.From.Source, sc); err != nil {
			return err
		}
		for _, join := range core.From.Joins {
			if err := l.tableRef(join.Right, sc); err != nil {
				return err
			}
			exprs = append(exprs, join.Condition)
			for _, col := range join.Using {
				exprs = append(exprs, &sqlast.ColumnRef{Column: col})
			}
		}
	}

	for _, item := range core.Columns {
		switch {
		case item.Star:
			for _, t := range sc.tables {
				l.addAll(t)
			}
		case item.TableStar != "":
			if t, ok := l.qualifier(item.TableStar, sc); ok {
				l.addAll(t)
			}
		default:
			exprs = append(exprs, item.Expr)
		}
	}

	exprs = append(exprs, core.Where, core.Having)
	exprs = append(exprs, core.GroupBy...)
	for _, item := range core.OrderBy {
		exprs = append(exprs, item.Expr)
	}

	var err error
	for _, expr := range exprs {
		if expr == nil {
			continue
		}
		sqlast.Walk(expr, func(node sqlast.Node) bool {
			if err != nil {
				return false
			}
			switch n := node.(type) {
			case *sqlast.SelectStmt:
				err = l.stmt(n, sc)
				return false
			case *sqlast.ColumnRef:
				l.column(n, sc)
			}
			return true
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *linker) tableRef(ref sqlast.TableRef, sc *scope) error {
	switch r := ref.(type) {
	case *sqlast.TableName:
		name := r.Name
		if _, ok := l.ctes[name]; ok {
			sc.derived[name] = struct{}{}
			if r.Alias != "" {
				sc.derived[r.Alias] = struct{}{}
			}
			return nil
		}
		if !l.schema.HasTable(name) {
			return fmt.Errorf("unknown table %q", name)
		}
		sc.tables = append(sc.tables, name)
		sc.names[name] = name
		if r.Alias != "" {
			sc.names[r.Alias] = name
		}
		l.touch(name)

	case *sqlast.DerivedTable:
		// Derived tables only see enclosing scopes, not their FROM siblings.
		if err := l.stmt(r.Select, sc.outer); err != nil {
			return err
		}
		if r.Alias != "" {
			sc.derived[r.Alias] = struct{}{}
		}
	}
	return nil
}

// column attributes ref to a FROM table in scope. References that resolve
// to nothing in scope (projection aliases, derived table columns) are
// skipped.
func (l *linker) column(ref *sqlast.ColumnRef, sc *scope) {
	if ref.Table != "" {
		if t, ok := l.qualifier(ref.Table, sc); ok && l.schema.HasColumn(t, ref.Column) {
			l.add(t, ref.Column)
		}
		return
	}

	for s := sc; s != nil; s = s.outer {
		for _, t := range s.tables {
			if l.schema.HasColumn(t, ref.Column) {
				l.add(t, ref.Column)
				return
			}
		}
		if len(s.derived) > 0 {
			return
		}
	}
}

// qualifier resolves a table qualifier to a real table present in the FROM
// of sc or an enclosing scope.
func (l *linker) qualifier(name string, sc *scope) (string, bool) {
	for s := sc; s != nil; s = s.outer {
		if t, ok := s.names[name]; ok {
			return t, true
		}
		if _, ok := s.derived[name]; ok {
			return "", false
		}
	}

	// Qualifiers introduced by the rewrite may name an alias declared in a
	// sibling scope; accept them when the table itself is in scope.
	t, ok := l.aliases.Resolve(name)
	if !ok {
		return "", false
	}
	for s := sc; s != nil; s = s.outer {
		if slices.Contains(s.tables, t) {
			return t, true
		}
	}
	return "", false
}

func (l *linker) touch(table string) map[string]struct{} {
	cols, ok := l.used[table]
	if !ok {
		cols = make(map[string]struct{})
		l.used[table] = cols
	}
	return cols
}

func (l *linker) add(table, column string) {
	l.touch(table)[column] = struct{}{}
}

func (l *linker) addAll(table string) {
	cols := l.touch(table)
	for _, c := range l.schema.Columns(table) {
		cols[c] = struct{}{}
	}
}

func (l *linker) result() UsedSchema {
	out := make(UsedSchema, len(l.used))
	for table, set := range l.used {
		cols := make([]string, 0, len(set))
		for c := range set {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		out[table] = cols
	}
	return out
}
