package sqlast

import (
	"fmt"

	"github.com/leapstack-labs/sqlgrade/pkg/token"
)

// FROM clause parsing.
//
// Grammar:
//
//	from_clause   → table_ref (join_clause | "," table_ref)*
//	join_clause   → [NATURAL] [join_type] JOIN table_ref [ON expr | USING "(" ident_list ")"]
//	join_type     → INNER | LEFT [OUTER] | RIGHT [OUTER] | FULL [OUTER] | CROSS
//	table_ref     → table_name [[AS] alias] | "(" statement ")" [[AS] alias]

func (p *Parser) parseFromClause() *FromClause {
	from := &FromClause{Source: p.parseTableRef()}

	for {
		if p.match(",") {
			from.Joins = append(from.Joins, &Join{Type: JoinComma, Right: p.parseTableRef()})
			continue
		}
		join, ok := p.parseJoin()
		if !ok {
			return from
		}
		from.Joins = append(from.Joins, join)
	}
}

func (p *Parser) parseJoin() (*Join, bool) {
	if !p.isJoinStart() {
		return nil, false
	}

	join := &Join{Type: JoinInner, Natural: p.match("natural")}
	switch {
	case p.match("inner"):
	case p.match("left"):
		join.Type = JoinLeft
	case p.match("right"):
		join.Type = JoinRight
	case p.match("full"):
		join.Type = JoinFull
	case p.match("cross"):
		join.Type = JoinCross
	}
	p.match("outer")
	p.expect("join")

	join.Right = p.parseTableRef()

	switch {
	case p.match("on"):
		join.Condition = p.parseExpression()
	case p.token.Kind == token.Identifier && p.token.Text == "using":
		p.nextToken()
		p.expect("(")
		for {
			if p.token.Kind != token.Identifier {
				p.addError("expected column name in USING")
				break
			}
			join.Using = append(join.Using, p.token.Text)
			p.nextToken()
			if !p.match(",") {
				break
			}
		}
		p.expect(")")
	}
	return join, true
}

func (p *Parser) isJoinStart() bool {
	return p.token.Kind == token.Keyword &&
		p.token.IsAny("join", "natural", "inner", "left", "right", "full", "cross")
}

func (p *Parser) parseTableRef() TableRef {
	if p.check("(") {
		p.nextToken()
		if !p.check("select") && !p.check("with") && !p.check("(") {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token, "subquery"))
			return &DerivedTable{}
		}
		derived := &DerivedTable{Select: p.parseStatement()}
		p.expect(")")
		derived.Alias = p.parseAlias()
		return derived
	}

	if p.token.Kind != token.Identifier {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token, "table name"))
		p.nextToken()
		return &TableName{}
	}
	table := &TableName{Name: p.token.Text}
	p.nextToken()
	table.Alias = p.parseAlias()
	return table
}

func (p *Parser) parseAlias() string {
	if p.match("as") {
		if p.token.Kind != token.Identifier {
			p.addError("expected alias after AS")
			return ""
		}
		alias := p.token.Text
		p.nextToken()
		return alias
	}
	if isAliasToken(p.token) {
		alias := p.token.Text
		p.nextToken()
		return alias
	}
	return ""
}
