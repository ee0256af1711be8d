package sqlast

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlgrade/pkg/token"
)

// Primary expression parsing: literals, column refs, function calls, CASE,
// CAST, EXISTS and parenthesized expressions.
//
// Grammar:
//
//	primary       → literal | column_ref | func_call | paren_expr | case_expr | cast_expr | exists_expr
//	literal       → NUMBER | STRING | TRUE | FALSE | NULL
//	column_ref    → [table "."] column
//	func_call     → identifier "(" [DISTINCT] [expr_list | "*"] ")"
//	case_expr     → CASE [expr] (WHEN expr THEN expr)+ [ELSE expr] END
//	cast_expr     → CAST "(" expr AS type_name ")"
//	exists_expr   → [NOT] EXISTS "(" statement ")"
//	paren_expr    → "(" expr ")" | "(" statement ")"

func (p *Parser) parsePrimary() Expr {
	tok := p.token

	switch {
	case tok.Kind == token.Number:
		p.nextToken()
		return &Literal{Type: LiteralNumber, Value: tok.Text}

	case tok.Kind == token.String:
		p.nextToken()
		return &Literal{Type: LiteralString, Value: tok.Text}

	case p.check("true"), p.check("false"):
		p.nextToken()
		return &Literal{Type: LiteralBool, Value: tok.Text}

	case p.check("null"):
		p.nextToken()
		return &Literal{Type: LiteralNull, Value: "null"}

	case p.check("case"):
		return p.parseCaseExpr()

	case p.check("not") && p.checkPeek("exists"):
		p.nextToken()
		return p.parseExistsExpr(true)

	case p.check("exists"):
		return p.parseExistsExpr(false)

	case p.check("("):
		return p.parseParenExpr()

	case p.check("*"):
		p.nextToken()
		return &StarExpr{}

	case tok.Kind == token.Identifier:
		return p.parseIdentifierExpr()
	}

	p.addError(fmt.Sprintf("unexpected token in expression: %s", tok))
	p.nextToken()
	return nil
}

// parseIdentifierExpr parses a column reference, t.*, or a function call.
func (p *Parser) parseIdentifierExpr() Expr {
	name := p.token.Text

	if table, ok := tableStar(p.token); ok {
		p.nextToken()
		return &StarExpr{Table: table}
	}
	p.nextToken()

	if p.check("(") {
		if name == "cast" {
			return p.parseCastExpr()
		}
		return p.parseFuncCall(name)
	}

	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		// schema.table.column keeps table.column
		table := name[:i]
		if j := strings.LastIndexByte(table, '.'); j >= 0 {
			table = table[j+1:]
		}
		return &ColumnRef{Table: table, Column: name[i+1:]}
	}
	return &ColumnRef{Column: name}
}

func (p *Parser) parseFuncCall(name string) Expr {
	fn := &FuncCall{Name: name}
	p.expect("(")

	switch {
	case p.check("*"):
		fn.Star = true
		p.nextToken()
	case !p.check(")"):
		fn.Distinct = p.match("distinct")
		fn.Args = p.parseExpressionList()
	}

	p.expect(")")
	return fn
}

func (p *Parser) parseCaseExpr() Expr {
	p.expect("case")
	c := &CaseExpr{}

	if !p.check("when") {
		c.Operand = p.parseExpression()
	}
	for p.match("when") {
		when := WhenClause{Condition: p.parseExpression()}
		p.expect("then")
		when.Result = p.parseExpression()
		c.Whens = append(c.Whens, when)
	}
	if len(c.Whens) == 0 {
		p.addError("expected WHEN in CASE")
	}
	if p.match("else") {
		c.Else = p.parseExpression()
	}
	p.expect("end")
	return c
}

// parseCastExpr parses the parenthesized part of CAST(expr AS type).
func (p *Parser) parseCastExpr() Expr {
	p.expect("(")
	cast := &CastExpr{Expr: p.parseExpression()}
	p.expect("as")
	cast.TypeName = p.parseTypeName()
	p.expect(")")
	return cast
}

// parseTypeName parses a type name with optional parameters, such as
// VARCHAR(255) or DECIMAL(10, 2).
func (p *Parser) parseTypeName() string {
	if p.token.Kind != token.Identifier {
		p.addError("expected type name")
		return ""
	}
	var b strings.Builder
	b.WriteString(p.token.Text)
	p.nextToken()

	if p.match("(") {
		b.WriteByte('(')
		for {
			if p.token.Kind == token.Number || p.token.Kind == token.Identifier {
				b.WriteString(p.token.Text)
				p.nextToken()
			}
			if !p.match(",") {
				break
			}
			b.WriteString(", ")
		}
		p.expect(")")
		b.WriteByte(')')
	}
	return b.String()
}

func (p *Parser) parseParenExpr() Expr {
	p.expect("(")

	if p.check("select") || p.check("with") {
		sub := &SubqueryExpr{Select: p.parseStatement()}
		p.expect(")")
		return sub
	}

	expr := p.parseExpression()
	p.expect(")")
	return &ParenExpr{Expr: expr}
}

func (p *Parser) parseExistsExpr(not bool) Expr {
	p.nextToken() // EXISTS
	p.expect("(")
	exists := &ExistsExpr{Not: not, Select: p.parseStatement()}
	p.expect(")")
	return exists
}
