package parser

import "github.com/leapstack-labs/sqlgrade/pkg/token"

// parseFrom parses the table units after FROM. Units are separated by a
// comma or a JOIN; the ON conditions of all joins are AND-joined into one list.
func (p *parser) parseFrom(c Cursor, sc *scope) (From, Cursor, error) {
	var from From

	for {
		unit, next, err := p.parseTableUnit(c, sc)
		if err != nil {
			return From{}, next, err
		}
		from.TableUnits = append(from.TableUnits, unit)
		c = next

		if p.at(c).Is("on") {
			conds, next, err := p.parseConditions(c+1, sc)
			if err != nil {
				return From{}, next, err
			}
			if len(from.Conds) > 0 && len(conds) > 0 {
				conds[0].Connector = BoolAnd
			}
			from.Conds = append(from.Conds, conds...)
			c = next
		}

		if p.at(c).Is(",") {
			c++
			continue
		}
		if next, ok := p.skipJoin(c); ok {
			c = next
			continue
		}
		break
	}

	if !p.atClauseEnd(c) {
		return From{}, c, p.errorf(c, ErrUnexpectedToken, "JOIN, a clause keyword or end of statement")
	}
	return from, c, nil
}

// skipJoin consumes "[NATURAL] [INNER|CROSS|LEFT|RIGHT|FULL] [OUTER] JOIN".
func (p *parser) skipJoin(c Cursor) (Cursor, bool) {
	start := c
	if p.at(c).Is("natural") {
		c++
	}
	if p.at(c).IsAny("inner", "cross", "left", "right", "full") {
		c++
	}
	if p.at(c).Is("outer") {
		c++
	}
	if !p.at(c).Is("join") {
		return start, false
	}
	return c + 1, true
}

// parseTableUnit parses a table reference or a parenthesized subquery, each
// with an optional alias.
func (p *parser) parseTableUnit(c Cursor, sc *scope) (TableUnit, Cursor, error) {
	tok := p.at(c)

	if tok.Is("(") {
		if !p.at(c + 1).Is("select") {
			return TableUnit{}, c + 1, p.errorf(c+1, ErrUnexpectedToken, "subquery")
		}
		// Derived tables only see enclosing scopes, not their FROM siblings.
		q, next, err := p.parseSQL(c+1, sc.outer)
		if err != nil {
			return TableUnit{}, next, err
		}
		if next, err = p.expect(next, ")"); err != nil {
			return TableUnit{}, next, err
		}
		alias, next := p.parseAlias(next)
		if err := p.checkAlias(next-1, alias, ""); err != nil {
			return TableUnit{}, next, err
		}
		if alias == "" {
			alias = "subquery"
		}
		sc.derived = append(sc.derived, alias)
		return TableUnit{Query: q, Alias: alias}, next, nil
	}

	if tok.Kind != token.Identifier {
		return TableUnit{}, c, p.errorf(c, ErrUnexpectedToken, "table name")
	}
	table, _ := p.aliases.Resolve(tok.Text)
	sym, ok := p.tableSymbol(table)
	if !ok {
		return TableUnit{}, c, p.resolveErrorf(c, ErrUnknownTable, tok.Text)
	}

	alias, next := p.parseAlias(c + 1)
	if err := p.checkAlias(next-1, alias, table); err != nil {
		return TableUnit{}, next, err
	}
	sc.addTable(table, alias)
	return TableUnit{Table: sym, Alias: alias}, next, nil
}

// parseAlias reads "AS name" or a bare name following a table reference.
func (p *parser) parseAlias(c Cursor) (string, Cursor) {
	if p.at(c).Is("as") && p.at(c+1).Kind == token.Identifier {
		return p.at(c + 1).Text, c + 2
	}
	if tok := p.at(c); tok.Kind == token.Identifier {
		return tok.Text, c + 1
	}
	return "", c
}

// checkAlias rejects a declared alias at c that equals a real table name.
func (p *parser) checkAlias(c Cursor, alias, table string) error {
	if alias == "" || !p.schema.HasTable(alias) {
		return nil
	}
	return &AliasConflictError{Index: int(c), Alias: alias, Table: table}
}
