package sqlast

// Walk traverses an AST depth-first and calls fn for each node.
// If fn returns false, the children of that node are skipped.
func Walk(node Node, fn func(node Node) bool) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	walkNode(node, fn)
}

func walkNode(node Node, fn func(node Node) bool) {
	switch n := node.(type) {
	case *SelectStmt:
		if n.With != nil {
			Walk(n.With, fn)
		}
		if n.Body != nil {
			Walk(n.Body, fn)
		}

	case *WithClause:
		for _, cte := range n.CTEs {
			Walk(cte, fn)
		}

	case *CTE:
		walkStmt(n.Select, fn)

	case *SelectBody:
		if n.Left != nil {
			Walk(n.Left, fn)
		}
		if n.Right != nil {
			Walk(n.Right, fn)
		}

	case *SelectCore:
		for _, col := range n.Columns {
			walkExpr(col.Expr, fn)
		}
		if n.From != nil {
			Walk(n.From, fn)
		}
		walkExpr(n.Where, fn)
		for _, expr := range n.GroupBy {
			walkExpr(expr, fn)
		}
		walkExpr(n.Having, fn)
		for _, item := range n.OrderBy {
			walkExpr(item.Expr, fn)
		}
		walkExpr(n.Limit, fn)
		walkExpr(n.Offset, fn)

	case *FromClause:
		Walk(n.Source, fn)
		for _, join := range n.Joins {
			Walk(join, fn)
		}

	case *Join:
		Walk(n.Right, fn)
		walkExpr(n.Condition, fn)

	case *TableName:
		// Leaf node

	case *DerivedTable:
		walkStmt(n.Select, fn)

	case *BinaryExpr:
		walkExpr(n.Left, fn)
		walkExpr(n.Right, fn)

	case *UnaryExpr:
		walkExpr(n.Expr, fn)

	case *FuncCall:
		for _, arg := range n.Args {
			walkExpr(arg, fn)
		}

	case *CaseExpr:
		walkExpr(n.Operand, fn)
		for _, when := range n.Whens {
			walkExpr(when.Condition, fn)
			walkExpr(when.Result, fn)
		}
		walkExpr(n.Else, fn)

	case *CastExpr:
		walkExpr(n.Expr, fn)

	case *InExpr:
		walkExpr(n.Expr, fn)
		for _, v := range n.Values {
			walkExpr(v, fn)
		}
		walkStmt(n.Query, fn)

	case *BetweenExpr:
		walkExpr(n.Expr, fn)
		walkExpr(n.Low, fn)
		walkExpr(n.High, fn)

	case *LikeExpr:
		walkExpr(n.Expr, fn)
		walkExpr(n.Pattern, fn)

	case *IsNullExpr:
		walkExpr(n.Expr, fn)

	case *ExistsExpr:
		walkStmt(n.Select, fn)

	case *SubqueryExpr:
		walkStmt(n.Select, fn)

	case *ParenExpr:
		walkExpr(n.Expr, fn)

	case *ColumnRef, *StarExpr, *Literal:
		// Leaf nodes
	}
}

func walkExpr(e Expr, fn func(node Node) bool) {
	if e != nil {
		Walk(e, fn)
	}
}

func walkStmt(s *SelectStmt, fn func(node Node) bool) {
	if s != nil {
		Walk(s, fn)
	}
}

// Subqueries returns the statements nested inside expr (IN, EXISTS and
// scalar subqueries) without descending into them.
func Subqueries(expr Expr) []*SelectStmt {
	var out []*SelectStmt
	walkExpr(expr, func(node Node) bool {
		if stmt, ok := node.(*SelectStmt); ok {
			out = append(out, stmt)
			return false
		}
		return true
	})
	return out
}
