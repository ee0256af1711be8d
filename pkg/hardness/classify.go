package hardness

import (
	"github.com/leapstack-labs/sqlgrade/pkg/parser"
	"github.com/leapstack-labs/sqlgrade/pkg/schema"
)

// Classify returns the tier of a parsed query.
func Classify(q *parser.Query) Tier {
	return TierFor(Counts(q))
}

// ClassifySQL parses sql against s and classifies it. Parse errors are
// returned unchanged so callers can report the token index.
func ClassifySQL(sql string, s *schema.Schema) (Tier, Components, error) {
	q, err := parser.Parse(sql, s)
	if err != nil {
		return "", Components{}, err
	}
	c := Counts(q)
	return TierFor(c), c, nil
}

// Counts computes the three components of q. Nested queries contribute to
// Nesting only; their own clauses are not counted.
func Counts(q *parser.Query) Components {
	return Components{
		Structural: structural(q),
		Nesting:    nesting(q),
		Other:      other(q),
	}
}

func structural(q *parser.Query) int {
	n := 0
	if len(q.Where) > 0 {
		n++
	}
	if len(q.GroupBy) > 0 {
		n++
	}
	if q.OrderBy != nil && len(q.OrderBy.Items) > 0 {
		n++
	}
	if q.Limit != nil {
		n++
	}
	if len(q.From.TableUnits) > 0 {
		n += len(q.From.TableUnits) - 1
	}

	for _, conds := range []parser.Conditions{q.From.Conds, q.Where, q.Having} {
		for _, cond := range conds {
			if cond.Connector == parser.BoolOr {
				n++
			}
			if cond.Op == parser.OpLike {
				n++
			}
		}
	}
	return n
}

func nesting(q *parser.Query) int {
	n := 0
	for _, conds := range []parser.Conditions{q.From.Conds, q.Where, q.Having} {
		for _, cond := range conds {
			if cond.Val1.IsSubquery() {
				n++
			}
			if cond.Val2 != nil && cond.Val2.IsSubquery() {
				n++
			}
		}
	}
	for _, set := range []*parser.Query{q.Intersect, q.Union, q.Except} {
		if set != nil {
			n++
		}
	}
	return n
}

func other(q *parser.Query) int {
	n := 0
	if aggregates(q) > 1 {
		n++
	}
	if len(q.Select.Items) > 1 {
		n++
	}
	if len(q.Where) > 1 {
		n++
	}
	if len(q.GroupBy) > 1 {
		n++
	}
	return n
}

// aggregates counts aggregate usages across SELECT, WHERE, GROUP BY,
// ORDER BY and HAVING of q itself.
func aggregates(q *parser.Query) int {
	n := 0
	for _, item := range q.Select.Items {
		if item.Agg != parser.AggNone {
			n++
		}
		n += valAggregates(item.Val)
	}
	for _, cond := range q.Where {
		n += valAggregates(cond.Left)
	}
	for _, col := range q.GroupBy {
		n += colAggregates(col)
	}
	if q.OrderBy != nil {
		for _, val := range q.OrderBy.Items {
			n += valAggregates(val)
		}
	}
	for _, cond := range q.Having {
		n += valAggregates(cond.Left)
	}
	return n
}

func valAggregates(v parser.ValUnit) int {
	n := colAggregates(v.Left)
	if v.Right != nil {
		n += colAggregates(*v.Right)
	}
	return n
}

func colAggregates(c parser.ColUnit) int {
	n := 0
	if c.Agg != parser.AggNone {
		n++
	}
	if c.Func != nil {
		for _, arg := range c.Func.Args {
			if arg.Col != nil {
				n += colAggregates(*arg.Col)
			}
		}
	}
	return n
}
