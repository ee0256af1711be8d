package sqlast

// Node is implemented by every syntax tree node.
type Node interface {
	node()
}

// Expr is a marker interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// TableRef is a marker interface for FROM sources.
type TableRef interface {
	Node
	tableRef()
}

// ---------- Statements ----------

// SelectStmt is a complete SELECT statement with optional CTEs.
type SelectStmt struct {
	With *WithClause
	Body *SelectBody
}

// WithClause holds the common table expressions of a statement.
type WithClause struct {
	Recursive bool
	CTEs      []*CTE
}

// CTE is one named common table expression.
type CTE struct {
	Name   string
	Select *SelectStmt
}

// SetOpType is the operator joining two SELECT cores.
type SetOpType string

// Set operators.
const (
	SetOpNone      SetOpType = ""
	SetOpUnion     SetOpType = "UNION"
	SetOpUnionAll  SetOpType = "UNION ALL"
	SetOpIntersect SetOpType = "INTERSECT"
	SetOpExcept    SetOpType = "EXCEPT"
)

// SelectBody is a SELECT core optionally chained to further bodies by a
// set operator.
type SelectBody struct {
	Left  *SelectCore
	Op    SetOpType
	All   bool
	Right *SelectBody
}

// SelectCore is a single SELECT ... FROM ... block.
type SelectCore struct {
	Distinct bool
	Columns  []SelectItem
	From     *FromClause
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []OrderByItem
	Limit    Expr
	Offset   Expr
}

// SelectItem is one projection: *, t.* or an expression with an alias.
type SelectItem struct {
	Star      bool   // SELECT *
	TableStar string // SELECT t.*
	Expr      Expr
	Alias     string
}

// OrderByItem is one ORDER BY key.
type OrderByItem struct {
	Expr Expr
	Desc bool
}

// FromClause is the first FROM source and the joins that follow it.
type FromClause struct {
	Source TableRef
	Joins  []*Join
}

// JoinType names the join flavor. A comma join is recorded as JoinComma.
type JoinType string

// Join types.
const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
	JoinComma JoinType = ","
)

// Join is one joined source.
type Join struct {
	Type      JoinType
	Natural   bool
	Right     TableRef
	Condition Expr     // ON
	Using     []string // USING (a, b)
}

// TableName references a table by name.
type TableName struct {
	Name  string
	Alias string
}

// DerivedTable is a subquery in FROM.
type DerivedTable struct {
	Select *SelectStmt
	Alias  string
}

// ---------- Expressions ----------

// ColumnRef is a possibly qualified column name.
type ColumnRef struct {
	Table  string
	Column string
}

// StarExpr is * or t.* outside the projection, as in count(*).
type StarExpr struct {
	Table string
}

// FuncCall is a function or aggregate call.
type FuncCall struct {
	Name     string
	Distinct bool
	Star     bool // count(*)
	Args     []Expr
}

// CastExpr is CAST(expr AS type).
type CastExpr struct {
	Expr     Expr
	TypeName string
}

// BinaryExpr is an arithmetic, comparison or boolean operation.
type BinaryExpr struct {
	Left  Expr
	Op    string
	Right Expr
}

// UnaryExpr is NOT, unary minus or unary plus.
type UnaryExpr struct {
	Op   string
	Expr Expr
}

// InExpr is expr [NOT] IN (values) or expr [NOT] IN (subquery).
type InExpr struct {
	Expr   Expr
	Not    bool
	Values []Expr
	Query  *SelectStmt
}

// BetweenExpr is expr [NOT] BETWEEN low AND high.
type BetweenExpr struct {
	Expr Expr
	Not  bool
	Low  Expr
	High Expr
}

// LikeExpr is expr [NOT] LIKE pattern.
type LikeExpr struct {
	Expr    Expr
	Not     bool
	Pattern Expr
}

// IsNullExpr is expr IS [NOT] NULL.
type IsNullExpr struct {
	Expr Expr
	Not  bool
}

// ExistsExpr is [NOT] EXISTS (subquery).
type ExistsExpr struct {
	Not    bool
	Select *SelectStmt
}

// SubqueryExpr is a scalar subquery.
type SubqueryExpr struct {
	Select *SelectStmt
}

// CaseExpr is a simple or searched CASE.
type CaseExpr struct {
	Operand Expr // nil for searched CASE
	Whens   []WhenClause
	Else    Expr
}

// WhenClause is one WHEN ... THEN ... arm.
type WhenClause struct {
	Condition Expr
	Result    Expr
}

// ParenExpr is a parenthesized expression.
type ParenExpr struct {
	Expr Expr
}

// LiteralType classifies a literal.
type LiteralType int

// Literal types.
const (
	LiteralNumber LiteralType = iota
	LiteralString
	LiteralBool
	LiteralNull
)

// Literal is a constant. String literals keep their quotes.
type Literal struct {
	Type  LiteralType
	Value string
}

func (*SelectStmt) node()   {}
func (*WithClause) node()   {}
func (*CTE) node()          {}
func (*SelectBody) node()   {}
func (*SelectCore) node()   {}
func (*FromClause) node()   {}
func (*Join) node()         {}
func (*TableName) node()    {}
func (*DerivedTable) node() {}
func (*ColumnRef) node()    {}
func (*StarExpr) node()     {}
func (*FuncCall) node()     {}
func (*CastExpr) node()     {}
func (*BinaryExpr) node()   {}
func (*UnaryExpr) node()    {}
func (*InExpr) node()       {}
func (*BetweenExpr) node()  {}
func (*LikeExpr) node()     {}
func (*IsNullExpr) node()   {}
func (*ExistsExpr) node()   {}
func (*SubqueryExpr) node() {}
func (*CaseExpr) node()     {}
func (*ParenExpr) node()    {}
func (*Literal) node()      {}

func (*TableName) tableRef()    {}
func (*DerivedTable) tableRef() {}

func (*ColumnRef) exprNode()    {}
func (*StarExpr) exprNode()     {}
func (*FuncCall) exprNode()     {}
func (*CastExpr) exprNode()     {}
func (*BinaryExpr) exprNode()   {}
func (*UnaryExpr) exprNode()    {}
func (*InExpr) exprNode()       {}
func (*BetweenExpr) exprNode()  {}
func (*LikeExpr) exprNode()     {}
func (*IsNullExpr) exprNode()   {}
func (*ExistsExpr) exprNode()   {}
func (*SubqueryExpr) exprNode() {}
func (*CaseExpr) exprNode()     {}
func (*ParenExpr) exprNode()    {}
func (*Literal) exprNode()      {}
