package parser

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/sqlgrade/pkg/schema"
	"github.com/leapstack-labs/sqlgrade/pkg/token"
)

// parseValUnit parses "[(] col [op col] [)]" with op one of - + * /.
func (p *parser) parseValUnit(c Cursor, sc *scope) (ValUnit, Cursor, error) {
	block := p.at(c).Is("(") && !p.at(c+1).Is("select")
	if block {
		c++
	}

	left, c, err := p.parseColUnit(c, sc)
	if err != nil {
		return ValUnit{}, c, err
	}
	val := ValUnit{Left: left}

	if op, ok := unitOpOf(p.at(c)); ok {
		right, next, err := p.parseColUnit(c+1, sc)
		if err != nil {
			return ValUnit{}, next, err
		}
		val.Op = op
		val.Right = &right
		c = next
	}

	if block {
		if c, err = p.expect(c, ")"); err != nil {
			return ValUnit{}, c, err
		}
	}
	return val, c, nil
}

// parseColUnit parses "[(] agg([DISTINCT] target) [)]" or
// "[(] [DISTINCT] target [)]", where target is a column or function call.
func (p *parser) parseColUnit(c Cursor, sc *scope) (ColUnit, Cursor, error) {
	block := p.at(c).Is("(") && !p.at(c+1).Is("select")
	if block {
		c++
	}

	var (
		col ColUnit
		err error
	)
	if agg, ok := aggOf(p.at(c)); ok && p.at(c+1).Is("(") {
		c += 2
		distinct := false
		if p.at(c).Is("distinct") {
			distinct = true
			c++
		}
		if col, c, err = p.parseColTarget(c, sc); err != nil {
			return ColUnit{}, c, err
		}
		if c, err = p.expect(c, ")"); err != nil {
			return ColUnit{}, c, err
		}
		col.Agg = agg
		col.Distinct = col.Distinct || distinct
	} else {
		distinct := false
		if p.at(c).Is("distinct") {
			distinct = true
			c++
		}
		if col, c, err = p.parseColTarget(c, sc); err != nil {
			return ColUnit{}, c, err
		}
		col.Distinct = col.Distinct || distinct
	}

	if block {
		if c, err = p.expect(c, ")"); err != nil {
			return ColUnit{}, c, err
		}
	}
	return col, c, nil
}

// parseColTarget parses a function call, a projection alias, or a column.
func (p *parser) parseColTarget(c Cursor, sc *scope) (ColUnit, Cursor, error) {
	tok := p.at(c)

	if tok.Kind == token.Identifier && p.at(c+1).Is("(") {
		fn, next, err := p.parseFuncCall(c, sc)
		if err != nil {
			return ColUnit{}, next, err
		}
		return ColUnit{Func: fn}, next, nil
	}

	if out, ok := p.resolveOutput(sc, tok); ok {
		return out, c + 1, nil
	}

	sym, next, err := p.parseCol(c, sc)
	if err != nil {
		return ColUnit{}, next, err
	}
	return ColUnit{Column: sym}, next, nil
}

// parseFuncCall parses "name(arg, ...)". CAST additionally takes
// "AS <type>" after its argument.
func (p *parser) parseFuncCall(c Cursor, sc *scope) (*FuncCall, Cursor, error) {
	fn := &FuncCall{Name: p.at(c).Text}
	c += 2 // name (

	if p.at(c).Is(")") {
		return fn, c + 1, nil
	}

	for {
		arg, next, err := p.parseValue(c, sc)
		if err != nil {
			return nil, next, err
		}
		fn.Args = append(fn.Args, arg)
		c = next

		if fn.Name == "cast" && p.at(c).Is("as") {
			c++
			start := c
			for !p.done(c) && !p.at(c).Is(")") {
				if p.at(c).Is("(") {
					if closeAt := p.matchParen(c); closeAt >= 0 {
						c = closeAt
					}
				}
				c++
			}
			parts := make([]string, 0, c-start)
			for i := start; i < c; i++ {
				parts = append(parts, p.at(i).Text)
			}
			fn.Type = strings.Join(parts, " ")
		}

		if !p.at(c).Is(",") {
			break
		}
		c++
	}

	c, err := p.expect(c, ")")
	if err != nil {
		return nil, c, err
	}
	return fn, c, nil
}

// parseValue parses the right-hand side of a condition: a subquery, a
// parenthesized value or value list, a literal, or a column unit.
func (p *parser) parseValue(c Cursor, sc *scope) (Value, Cursor, error) {
	tok := p.at(c)

	switch {
	case tok.Is("(") && p.at(c+1).Is("select"):
		q, next, err := p.parseSQL(c+1, sc)
		if err != nil {
			return Value{}, next, err
		}
		if next, err = p.expect(next, ")"); err != nil {
			return Value{}, next, err
		}
		return Value{Kind: ValueQuery, Query: q}, next, nil

	case tok.Is("select"):
		q, next, err := p.parseSQL(c, sc)
		if err != nil {
			return Value{}, next, err
		}
		return Value{Kind: ValueQuery, Query: q}, next, nil

	case tok.Is("("):
		return p.parseValueList(c, sc)

	case tok.Kind == token.String:
		return Value{Kind: ValueString, Text: tok.Text}, c + 1, nil

	case tok.Kind == token.Number:
		return p.numberValue(c, tok.Text)

	case tok.Is("-") && p.at(c+1).Kind == token.Number:
		return p.numberValue(c+1, "-"+p.at(c+1).Text)

	case tok.IsAny("null", "true", "false"):
		return Value{Kind: ValueKeyword, Text: tok.Text}, c + 1, nil
	}

	col, next, err := p.parseColUnit(c, sc)
	if err != nil {
		return Value{}, next, err
	}
	return Value{Kind: ValueColumn, Col: &col}, next, nil
}

func (p *parser) parseValueList(c Cursor, sc *scope) (Value, Cursor, error) {
	c++ // (
	var items []Value
	for {
		item, next, err := p.parseValue(c, sc)
		if err != nil {
			return Value{}, next, err
		}
		items = append(items, item)
		c = next
		if !p.at(c).Is(",") {
			break
		}
		c++
	}

	c, err := p.expect(c, ")")
	if err != nil {
		return Value{}, c, err
	}
	if len(items) == 1 {
		return items[0], c, nil
	}
	return Value{Kind: ValueList, Items: items}, c, nil
}

func (p *parser) numberValue(c Cursor, text string) (Value, Cursor, error) {
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Value{}, c, p.errorf(c, "invalid number %q", text)
	}
	return Value{Kind: ValueNumber, Text: text, Number: n}, c + 1, nil
}

// parseCol resolves a column reference to its symbol. Qualified names go
// through the alias scopes; unqualified names take the first FROM table,
// innermost scope first, that owns the column.
func (p *parser) parseCol(c Cursor, sc *scope) (schema.Symbol, Cursor, error) {
	tok := p.at(c)
	if tok.Is("*") {
		return schema.AllColumns, c + 1, nil
	}
	if tok.Kind != token.Identifier {
		return "", c, p.errorf(c, ErrUnexpectedToken, "column")
	}

	name := tok.Text
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		qual, col := name[:i], name[i+1:]
		table, derived, ok := p.lookupTable(sc, qual)
		switch {
		case !ok:
			return "", c, p.resolveErrorf(c, ErrUnknownTable, qual)
		case col == "*":
			return schema.AllColumns, c + 1, nil
		case derived:
			return schema.ColumnSymbol(qual, col), c + 1, nil
		}
		sym, found := p.columnSymbol(table, col)
		if !found {
			return "", c, p.resolveErrorf(c, ErrUnknownColumn, name)
		}
		return sym, c + 1, nil
	}

	for s := sc; s != nil; s = s.outer {
		for _, table := range s.tables {
			if sym, found := p.columnSymbol(table, name); found {
				return sym, c + 1, nil
			}
		}
		// Columns of a derived table are not in the schema.
		if len(s.derived) > 0 {
			return schema.ColumnSymbol(s.derived[0], name), c + 1, nil
		}
	}
	return "", c, p.resolveErrorf(c, ErrUnknownColumn, name)
}

// resolveOutput maps an unqualified name that is not a FROM column onto the
// projection item it aliases, as in ORDER BY cnt.
func (p *parser) resolveOutput(sc *scope, tok token.Token) (ColUnit, bool) {
	if tok.Kind != token.Identifier || strings.Contains(tok.Text, ".") {
		return ColUnit{}, false
	}
	out, ok := sc.outputs[tok.Text]
	if !ok {
		return ColUnit{}, false
	}
	for _, table := range sc.tables {
		if p.schema.HasColumn(table, tok.Text) {
			return ColUnit{}, false
		}
	}
	return out, true
}

var aggOps = map[string]AggOp{
	"max":   AggMax,
	"min":   AggMin,
	"count": AggCount,
	"sum":   AggSum,
	"avg":   AggAvg,
}

func aggOf(tok token.Token) (AggOp, bool) {
	if tok.Kind != token.Identifier {
		return AggNone, false
	}
	agg, ok := aggOps[tok.Text]
	return agg, ok
}

func unitOpOf(tok token.Token) (UnitOp, bool) {
	if tok.Kind != token.Operator {
		return UnitNone, false
	}
	switch tok.Text {
	case "-":
		return UnitMinus, true
	case "+":
		return UnitPlus, true
	case "*":
		return UnitTimes, true
	case "/":
		return UnitDivide, true
	}
	return UnitNone, false
}
