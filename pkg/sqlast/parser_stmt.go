package sqlast

import "github.com/leapstack-labs/sqlgrade/pkg/token"

// Statement parsing: WITH clause, CTEs, SELECT body, SELECT list, ORDER BY.
//
// Grammar:
//
//	cte_list      → cte ("," cte)*
//	cte           → identifier AS "(" statement ")"
//	select_list   → select_item ("," select_item)*
//	select_item   → "*" | table ".*" | expr [[AS] identifier]
//	order_list    → order_item ("," order_item)*
//	order_item    → expr [ASC|DESC]

// parseStatement parses a complete SQL statement.
func (p *Parser) parseStatement() *SelectStmt {
	stmt := &SelectStmt{}
	if p.check("with") {
		stmt.With = p.parseWithClause()
	}
	stmt.Body = p.parseSelectBody()
	return stmt
}

func (p *Parser) parseWithClause() *WithClause {
	p.expect("with")
	with := &WithClause{Recursive: p.match("recursive")}

	for {
		with.CTEs = append(with.CTEs, p.parseCTE())
		if !p.match(",") {
			break
		}
	}
	return with
}

func (p *Parser) parseCTE() *CTE {
	cte := &CTE{}
	if p.token.Kind != token.Identifier {
		p.addError("expected CTE name")
		return cte
	}
	cte.Name = p.token.Text
	p.nextToken()

	p.expect("as")
	p.expect("(")
	cte.Select = p.parseStatement()
	p.expect(")")
	return cte
}

// parseSelectBody parses a SELECT core and any chained set operations. A
// parenthesized operand is accepted; its grouping is not kept.
func (p *Parser) parseSelectBody() *SelectBody {
	var body *SelectBody
	if p.check("(") && p.checkPeek("select") {
		p.nextToken()
		body = p.parseSelectBody()
		p.expect(")")
	} else {
		body = &SelectBody{Left: p.parseSelectCore()}
	}

	tail := body
	for tail.Right != nil {
		tail = tail.Right
	}

	switch {
	case p.match("union"):
		tail.Op = SetOpUnion
		if p.match("all") {
			tail.Op = SetOpUnionAll
			tail.All = true
		} else {
			p.match("distinct")
		}
	case p.match("intersect"):
		tail.Op = SetOpIntersect
		tail.All = p.match("all")
	case p.match("except"):
		tail.Op = SetOpExcept
		tail.All = p.match("all")
	default:
		return body
	}

	tail.Right = p.parseSelectBody()
	return body
}

// parseSelectCore parses a single SELECT block.
func (p *Parser) parseSelectCore() *SelectCore {
	core := &SelectCore{}
	if !p.expect("select") {
		return core
	}

	if p.match("distinct") {
		core.Distinct = true
	} else {
		p.match("all")
	}

	core.Columns = p.parseSelectList()

	if p.match("from") {
		core.From = p.parseFromClause()
	}
	if p.match("where") {
		core.Where = p.parseExpression()
	}
	if p.check("group") {
		p.nextToken()
		p.expect("by")
		core.GroupBy = p.parseExpressionList()
	}
	if p.match("having") {
		core.Having = p.parseExpression()
	}
	if p.check("order") {
		p.nextToken()
		p.expect("by")
		core.OrderBy = p.parseOrderByList()
	}
	if p.match("limit") {
		core.Limit = p.parseExpression()
		// LIMIT offset, count
		if p.match(",") {
			core.Offset = core.Limit
			core.Limit = p.parseExpression()
		}
	}
	if p.match("offset") {
		core.Offset = p.parseExpression()
	}
	return core
}

func (p *Parser) parseSelectList() []SelectItem {
	var items []SelectItem
	for {
		items = append(items, p.parseSelectItem())
		if !p.match(",") {
			break
		}
	}
	return items
}

func (p *Parser) parseSelectItem() SelectItem {
	item := SelectItem{}

	if p.check("*") {
		item.Star = true
		p.nextToken()
		return item
	}
	if table, ok := tableStar(p.token); ok {
		item.TableStar = table
		p.nextToken()
		return item
	}

	item.Expr = p.parseExpression()

	if p.match("as") {
		if p.token.Kind == token.Identifier || p.token.Kind == token.String {
			item.Alias = p.token.Text
			p.nextToken()
		} else {
			p.addError("expected alias after AS")
		}
	} else if isAliasToken(p.token) {
		item.Alias = p.token.Text
		p.nextToken()
	}
	return item
}

func (p *Parser) parseOrderByList() []OrderByItem {
	var items []OrderByItem
	for {
		item := OrderByItem{Expr: p.parseExpression()}
		if p.match("desc") {
			item.Desc = true
		} else {
			p.match("asc")
		}
		items = append(items, item)

		if !p.match(",") {
			break
		}
	}
	return items
}

func (p *Parser) parseExpressionList() []Expr {
	var exprs []Expr
	for {
		exprs = append(exprs, p.parseExpression())
		if !p.match(",") {
			break
		}
	}
	return exprs
}
