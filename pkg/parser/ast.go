package parser

import (
	"fmt"

	"github.com/leapstack-labs/sqlgrade/pkg/schema"
)

// AggOp is the aggregate wrapped around a column unit or a select item.
type AggOp int

// Aggregate operators.
const (
	AggNone AggOp = iota
	AggMax
	AggMin
	AggCount
	AggSum
	AggAvg
)

var aggNames = [...]string{"none", "max", "min", "count", "sum", "avg"}

func (a AggOp) String() string { return enumName(aggNames[:], int(a)) }

// MarshalText renders the operator by name.
func (a AggOp) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnitOp is the arithmetic operator joining the two halves of a val unit.
type UnitOp int

// Unit operators.
const (
	UnitNone UnitOp = iota
	UnitMinus
	UnitPlus
	UnitTimes
	UnitDivide
)

var unitNames = [...]string{"none", "-", "+", "*", "/"}

func (u UnitOp) String() string { return enumName(unitNames[:], int(u)) }

// MarshalText renders the operator by name.
func (u UnitOp) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

// WhereOp is the comparison operator of a condition.
type WhereOp int

// Condition operators.
const (
	OpBetween WhereOp = iota
	OpEq
	OpGt
	OpLt
	OpGe
	OpLe
	OpNe
	OpIn
	OpLike
	OpIs
	OpExists
)

var whereNames = [...]string{"between", "=", ">", "<", ">=", "<=", "!=", "in", "like", "is", "exists"}

func (w WhereOp) String() string { return enumName(whereNames[:], int(w)) }

// MarshalText renders the operator by name.
func (w WhereOp) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

// BoolOp joins a condition to the one before it.
type BoolOp int

// Connectors. The first condition of a list always has BoolNone.
const (
	BoolNone BoolOp = iota
	BoolAnd
	BoolOr
)

var boolNames = [...]string{"none", "and", "or"}

func (b BoolOp) String() string { return enumName(boolNames[:], int(b)) }

// MarshalText renders the connector by name.
func (b BoolOp) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// OrderDir is the ORDER BY direction.
type OrderDir int

// Order directions. Asc is the default.
const (
	Asc OrderDir = iota
	Desc
)

func (d OrderDir) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// MarshalText renders the direction by name.
func (d OrderDir) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func enumName(names []string, i int) string {
	if i >= 0 && i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("op(%d)", i)
}

// Query is the structural decomposition of one SELECT statement.
type Query struct {
	Select  Select     `json:"select" yaml:"select"`
	From    From       `json:"from" yaml:"from"`
	Where   Conditions `json:"where,omitempty" yaml:"where,omitempty"`
	GroupBy []ColUnit  `json:"group_by,omitempty" yaml:"group_by,omitempty"`
	Having  Conditions `json:"having,omitempty" yaml:"having,omitempty"`
	OrderBy *OrderBy   `json:"order_by,omitempty" yaml:"order_by,omitempty"`
	Limit   *int       `json:"limit,omitempty" yaml:"limit,omitempty"`
	Offset  *int       `json:"offset,omitempty" yaml:"offset,omitempty"`

	Intersect *Query `json:"intersect,omitempty" yaml:"intersect,omitempty"`
	Union     *Query `json:"union,omitempty" yaml:"union,omitempty"`
	Except    *Query `json:"except,omitempty" yaml:"except,omitempty"`
}

// Select is the projection list.
type Select struct {
	Distinct bool         `json:"distinct,omitempty" yaml:"distinct,omitempty"`
	Items    []SelectItem `json:"items" yaml:"items"`
}

// SelectItem is one projected expression. Agg is set when the whole item is
// an aggregate call such as count(*).
type SelectItem struct {
	Agg   AggOp   `json:"agg" yaml:"agg"`
	Val   ValUnit `json:"val" yaml:"val"`
	Alias string  `json:"alias,omitempty" yaml:"alias,omitempty"`
}

// From holds the table units and the ON conditions of all joins, AND-joined.
type From struct {
	TableUnits []TableUnit `json:"table_units" yaml:"table_units"`
	Conds      Conditions  `json:"conds,omitempty" yaml:"conds,omitempty"`
}

// TableUnit is a schema table or a derived table.
type TableUnit struct {
	Table schema.Symbol `json:"table,omitempty" yaml:"table,omitempty"`
	Query *Query        `json:"query,omitempty" yaml:"query,omitempty"`
	Alias string        `json:"alias,omitempty" yaml:"alias,omitempty"`
}

// IsSubquery reports whether the unit is a derived table.
func (t TableUnit) IsSubquery() bool { return t.Query != nil }

// OrderBy is the ORDER BY clause. One direction applies to every item.
type OrderBy struct {
	Dir   OrderDir  `json:"dir" yaml:"dir"`
	Items []ValUnit `json:"items" yaml:"items"`
}

// ValUnit is one column unit, or two combined by an arithmetic operator.
type ValUnit struct {
	Op    UnitOp   `json:"op" yaml:"op"`
	Left  ColUnit  `json:"left" yaml:"left"`
	Right *ColUnit `json:"right,omitempty" yaml:"right,omitempty"`
}

// ColUnit is a column reference or function call, optionally aggregated.
type ColUnit struct {
	Agg      AggOp         `json:"agg" yaml:"agg"`
	Column   schema.Symbol `json:"column,omitempty" yaml:"column,omitempty"`
	Func     *FuncCall     `json:"func,omitempty" yaml:"func,omitempty"`
	Distinct bool          `json:"distinct,omitempty" yaml:"distinct,omitempty"`
}

// FuncCall is a scalar function wrapper such as round(x, 2) or cast(x AS int).
type FuncCall struct {
	Name string  `json:"name" yaml:"name"`
	Args []Value `json:"args,omitempty" yaml:"args,omitempty"`
	Type string  `json:"type,omitempty" yaml:"type,omitempty"` // cast target
}

// Condition is one predicate. Connector joins it to the previous condition
// in its list and is BoolNone for the first one.
type Condition struct {
	Connector BoolOp  `json:"connector" yaml:"connector"`
	Not       bool    `json:"not,omitempty" yaml:"not,omitempty"`
	Op        WhereOp `json:"op" yaml:"op"`
	Left      ValUnit `json:"left" yaml:"left"`
	Val1      Value   `json:"val1" yaml:"val1"`
	Val2      *Value  `json:"val2,omitempty" yaml:"val2,omitempty"`
}

// Conditions is an ordered predicate list.
type Conditions []Condition

// ValueKind tells which field of a Value is set.
type ValueKind int

// Value kinds.
const (
	ValueColumn ValueKind = iota
	ValueString
	ValueNumber
	ValueKeyword
	ValueQuery
	ValueList
)

var valueKindNames = [...]string{"column", "string", "number", "keyword", "query", "list"}

func (k ValueKind) String() string { return enumName(valueKindNames[:], int(k)) }

// MarshalText renders the kind by name.
func (k ValueKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Value is the right-hand side of a condition or a function argument.
// String literals keep their verbatim source text, quotes included.
type Value struct {
	Kind   ValueKind `json:"kind" yaml:"kind"`
	Text   string    `json:"text,omitempty" yaml:"text,omitempty"`
	Number float64   `json:"number,omitempty" yaml:"number,omitempty"`
	Col    *ColUnit  `json:"col,omitempty" yaml:"col,omitempty"`
	Query  *Query    `json:"query,omitempty" yaml:"query,omitempty"`
	Items  []Value   `json:"items,omitempty" yaml:"items,omitempty"`
}

// IsSubquery reports whether the value is a nested query.
func (v Value) IsSubquery() bool { return v.Kind == ValueQuery && v.Query != nil }
