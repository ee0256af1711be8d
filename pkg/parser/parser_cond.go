package parser

import "github.com/leapstack-labs/sqlgrade/pkg/token"

// parseConditions parses predicates joined by AND/OR. It stops at the first
// token that neither continues a predicate nor connects a new one: a clause
// keyword, a join keyword, ")" or ";".
//
// A parenthesized group of predicates is flattened into the list; its first
// predicate takes the connector written before the group.
func (p *parser) parseConditions(c Cursor, sc *scope) (Conditions, Cursor, error) {
	var conds Conditions
	connector := BoolNone

	for {
		if p.isConditionGroup(c) {
			inner, next, err := p.parseConditions(c+1, sc)
			if err != nil {
				return nil, next, err
			}
			if next, err = p.expect(next, ")"); err != nil {
				return nil, next, err
			}
			inner[0].Connector = connector
			conds = append(conds, inner...)
			c = next
		} else {
			cond, next, err := p.parseCondition(c, sc)
			if err != nil {
				return nil, next, err
			}
			cond.Connector = connector
			conds = append(conds, cond)
			c = next
		}

		switch {
		case p.at(c).Is("and"):
			connector = BoolAnd
		case p.at(c).Is("or"):
			connector = BoolOr
		default:
			return conds, c, nil
		}
		c++
	}
}

// isConditionGroup reports whether the "(" at c opens nested predicates
// rather than a subquery or a parenthesized value.
func (p *parser) isConditionGroup(c Cursor) bool {
	if !p.at(c).Is("(") || p.at(c+1).Is("select") {
		return false
	}
	depth := 0
	for i := c + 1; !p.done(i); i++ {
		tok := p.at(i)
		switch {
		case tok.Is("("):
			depth++
		case tok.Is(")"):
			if depth == 0 {
				return false
			}
			depth--
		case depth > 0:
		case tok.IsAny("and", "or", "not", "exists"):
			return true
		default:
			if _, ok := whereOpOf(tok); ok {
				return true
			}
		}
	}
	return false
}

// parseCondition parses "[NOT] EXISTS (subquery)" or
// "val [NOT] op value [AND value]", the AND form only for BETWEEN.
func (p *parser) parseCondition(c Cursor, sc *scope) (Condition, Cursor, error) {
	var cond Condition

	if p.at(c).Is("not") {
		cond.Not = true
		c++
	}

	if p.at(c).Is("exists") {
		cond.Op = OpExists
		val, next, err := p.parseValue(c+1, sc)
		if err != nil {
			return Condition{}, next, err
		}
		if !val.IsSubquery() {
			return Condition{}, c + 1, p.errorf(c+1, ErrUnexpectedToken, "subquery after EXISTS")
		}
		cond.Val1 = val
		return cond, next, nil
	}

	left, c, err := p.parseValUnit(c, sc)
	if err != nil {
		return Condition{}, c, err
	}
	cond.Left = left

	if p.at(c).Is("not") {
		cond.Not = !cond.Not
		c++
	}
	op, ok := whereOpOf(p.at(c))
	if !ok {
		return Condition{}, c, p.errorf(c, ErrUnexpectedToken, "comparison operator")
	}
	cond.Op = op
	c++

	if op == OpIs && p.at(c).Is("not") {
		cond.Not = !cond.Not
		c++
	}

	if cond.Val1, c, err = p.parseValue(c, sc); err != nil {
		return Condition{}, c, err
	}

	if op == OpBetween {
		if c, err = p.expect(c, "and"); err != nil {
			return Condition{}, c, err
		}
		val2, next, err := p.parseValue(c, sc)
		if err != nil {
			return Condition{}, next, err
		}
		cond.Val2 = &val2
		c = next
	}
	return cond, c, nil
}

var whereOps = map[string]WhereOp{
	"between": OpBetween,
	"=":       OpEq,
	">":       OpGt,
	"<":       OpLt,
	">=":      OpGe,
	"<=":      OpLe,
	"!=":      OpNe,
	"<>":      OpNe,
	"in":      OpIn,
	"like":    OpLike,
	"is":      OpIs,
}

func whereOpOf(tok token.Token) (WhereOp, bool) {
	if tok.IsLiteral() {
		return 0, false
	}
	op, ok := whereOps[tok.Text]
	return op, ok
}
