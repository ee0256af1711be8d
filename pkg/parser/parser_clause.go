package parser

import "github.com/leapstack-labs/sqlgrade/pkg/token"

// parseSelectList parses "[DISTINCT] item [AS alias], ..." up to FROM.
func (p *parser) parseSelectList(c Cursor, sc *scope) (Select, Cursor, error) {
	var sel Select
	switch {
	case p.at(c).Is("distinct"):
		sel.Distinct = true
		c++
	case p.at(c).Is("all"):
		c++
	}

	for !p.atClauseEnd(c) {
		item, next, err := p.parseSelectItem(c, sc)
		if err != nil {
			return Select{}, next, err
		}
		sel.Items = append(sel.Items, item)
		c = next

		if !p.at(c).Is(",") {
			break
		}
		c++
	}

	if len(sel.Items) == 0 {
		return Select{}, c, p.errorf(c, ErrUnexpectedToken, "select list")
	}
	return sel, c, nil
}

// parseSelectItem lifts a whole-item aggregate such as count(*) onto the
// item itself; an aggregate that is only one operand of arithmetic stays on
// its column unit.
func (p *parser) parseSelectItem(c Cursor, sc *scope) (SelectItem, Cursor, error) {
	var item SelectItem
	start := c

	if agg, ok := aggOf(p.at(c)); ok && p.at(c+1).Is("(") {
		if closeAt := p.matchParen(c + 1); closeAt >= 0 {
			if _, arith := unitOpOf(p.at(closeAt + 1)); !arith {
				item.Agg = agg
				start = c + 1
			}
		}
	}

	val, c, err := p.parseValUnit(start, sc)
	if err != nil {
		return SelectItem{}, c, err
	}
	item.Val = val

	switch {
	case p.at(c).Is("as") && p.at(c+1).Kind == token.Identifier:
		item.Alias = p.at(c + 1).Text
		c += 2
	case p.at(c).Kind == token.Identifier:
		item.Alias = p.at(c).Text
		c++
	}
	if err := p.checkAlias(c-1, item.Alias, ""); err != nil {
		return SelectItem{}, c, err
	}

	if item.Alias != "" && val.Right == nil {
		out := val.Left
		if item.Agg != AggNone {
			out.Agg = item.Agg
		}
		sc.outputs[item.Alias] = out
	}
	return item, c, nil
}

// parseGroupBy parses "GROUP BY col, ...".
func (p *parser) parseGroupBy(c Cursor, sc *scope) ([]ColUnit, Cursor, error) {
	c, err := p.expect(c+1, "by")
	if err != nil {
		return nil, c, err
	}

	var cols []ColUnit
	for {
		col, next, err := p.parseColUnit(c, sc)
		if err != nil {
			return nil, next, err
		}
		cols = append(cols, col)
		c = next

		if !p.at(c).Is(",") {
			return cols, c, nil
		}
		c++
	}
}

// parseOrderBy parses "ORDER BY val [ASC|DESC], ...". The last direction
// written applies to the whole clause.
func (p *parser) parseOrderBy(c Cursor, sc *scope) (*OrderBy, Cursor, error) {
	c, err := p.expect(c+1, "by")
	if err != nil {
		return nil, c, err
	}

	order := &OrderBy{Dir: Asc}
	for {
		val, next, err := p.parseValUnit(c, sc)
		if err != nil {
			return nil, next, err
		}
		order.Items = append(order.Items, val)
		c = next

		switch {
		case p.at(c).Is("asc"):
			order.Dir = Asc
			c++
		case p.at(c).Is("desc"):
			order.Dir = Desc
			c++
		}

		if !p.at(c).Is(",") {
			return order, c, nil
		}
		c++
	}
}
