package parser

import (
	"github.com/leapstack-labs/sqlgrade/pkg/schema"
	"github.com/leapstack-labs/sqlgrade/pkg/token"
)

// AliasMap maps every alias and bare table name of a query to its real table.
type AliasMap map[string]string

// Resolve returns the real table behind name.
func (m AliasMap) Resolve(name string) (string, bool) {
	table, ok := m[name]
	return table, ok
}

// ScanAliases collects "X AS Y" declarations as Y -> X. It also picks up the
// implicit form "FROM x y" / "JOIN x y". A later declaration of the same alias
// overrides an earlier one.
func ScanAliases(tokens []token.Token) map[string]string {
	aliases := make(map[string]string)
	inFrom := false

	for i, tok := range tokens {
		switch {
		case tok.IsAny("from", "join"):
			inFrom = true
		case tok.IsAny("on", "where", "group", "having", "order", "limit", "select",
			"union", "intersect", "except"):
			inFrom = false
		}

		if tok.Is("as") && i > 0 && i+1 < len(tokens) {
			prev, next := tokens[i-1], tokens[i+1]
			if prev.Kind == token.Identifier && next.Kind == token.Identifier {
				aliases[next.Text] = prev.Text
			}
			continue
		}

		// Implicit alias: a table reference directly followed by a bare name.
		if !inFrom || tok.Kind != token.Identifier || i == 0 || i+1 >= len(tokens) {
			continue
		}
		prev, next := tokens[i-1], tokens[i+1]
		if prev.IsAny("from", "join", ",") && next.Kind == token.Identifier {
			aliases[next.Text] = tok.Text
		}
	}

	return aliases
}

// ResolveTables builds the AliasMap of a query: every schema table maps to
// itself, and every declared alias of a schema table maps to that table.
// Aliases of anything else (select expressions, derived tables) are left to
// the parser's scopes. Any declared alias equal to a real table name is an
// *AliasConflictError, whatever it aliases.
func ResolveTables(tokens []token.Token, s *schema.Schema) (AliasMap, error) {
	if s == nil {
		return nil, errNoSchema
	}
	if err := checkDeclaredAliases(tokens, s); err != nil {
		return nil, err
	}

	m := make(AliasMap)
	for _, table := range s.Tables() {
		m[table] = table
	}
	for alias, target := range ScanAliases(tokens) {
		if s.HasTable(target) {
			m[alias] = target
		}
	}
	return m, nil
}

// checkDeclaredAliases finds the first name introduced by "X AS Y", whatever
// X is, or by the implicit "FROM x y" form that equals a schema table. The
// type in CAST(x AS type) is not an alias.
func checkDeclaredAliases(tokens []token.Token, s *schema.Schema) error {
	var inCast []bool
	inFrom := false

	for i, tok := range tokens {
		decl, target := -1, ""
		switch {
		case tok.Is("("):
			inCast = append(inCast, i > 0 && tokens[i-1].Is("cast"))
		case tok.Is(")"):
			if n := len(inCast); n > 0 {
				inCast = inCast[:n-1]
			}
		case tok.IsAny("from", "join"):
			inFrom = true
		case tok.IsAny("on", "where", "group", "having", "order", "limit", "select",
			"union", "intersect", "except"):
			inFrom = false
		case tok.Is("as"):
			if n := len(inCast); n > 0 && inCast[n-1] {
				continue
			}
			decl = i + 1
			if i > 0 && tokens[i-1].Kind == token.Identifier {
				target = tokens[i-1].Text
			}
		case inFrom && tok.Kind == token.Identifier && i > 0 && tokens[i-1].IsAny("from", "join", ","):
			decl, target = i+1, tok.Text
		}

		if decl < 0 || decl >= len(tokens) {
			continue
		}
		if alias := tokens[decl]; alias.Kind == token.Identifier && s.HasTable(alias.Text) {
			if !s.HasTable(target) {
				target = ""
			}
			return &AliasConflictError{Index: decl, Alias: alias.Text, Table: target}
		}
	}
	return nil
}
