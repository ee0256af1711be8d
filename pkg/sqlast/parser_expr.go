package sqlast

import (
	"fmt"

	"github.com/leapstack-labs/sqlgrade/pkg/token"
)

// Expression parsing by precedence climbing.
//
// Precedence levels:
//
//	precedenceOr         = 1
//	precedenceAnd        = 2
//	precedenceNot        = 3
//	precedenceComparison = 4  (=, !=, <>, <, >, <=, >=, IS, IN, BETWEEN, LIKE)
//	precedenceAddition   = 5  (+, -, ||)
//	precedenceMultiply   = 6  (*, /, %)
//	precedenceUnary      = 7  (-, +)

const (
	precedenceNone = iota
	precedenceOr
	precedenceAnd
	precedenceNot
	precedenceComparison
	precedenceAddition
	precedenceMultiply
	precedenceUnary
)

func (p *Parser) parseExpression() Expr {
	return p.parseExpressionWithPrecedence(precedenceNone + 1)
}

func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) Expr {
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	for {
		prec := p.infixPrecedence()
		if prec < minPrecedence {
			return left
		}
		left = p.parseInfixExpr(left, prec)
		if left == nil {
			return nil
		}
	}
}

func (p *Parser) parsePrefixExpr() Expr {
	switch {
	case p.check("not") && !p.checkPeek("exists"):
		p.nextToken()
		return &UnaryExpr{Op: "not", Expr: p.parseExpressionWithPrecedence(precedenceNot)}
	case p.check("-"), p.check("+"):
		op := p.token.Text
		p.nextToken()
		return &UnaryExpr{Op: op, Expr: p.parseExpressionWithPrecedence(precedenceUnary)}
	default:
		return p.parsePrimary()
	}
}

// infixPrecedence returns the precedence of the current token as an infix
// operator, or precedenceNone.
func (p *Parser) infixPrecedence() int {
	tok := p.token
	if tok.IsLiteral() {
		return precedenceNone
	}
	switch tok.Text {
	case "or":
		return precedenceOr
	case "and":
		return precedenceAnd
	case "=", "!=", "<>", "<", ">", "<=", ">=", "is", "in", "between", "like", "not":
		return precedenceComparison
	case "+", "-", "||":
		return precedenceAddition
	case "*", "/", "%":
		return precedenceMultiply
	}
	return precedenceNone
}

func (p *Parser) parseInfixExpr(left Expr, prec int) Expr {
	switch {
	case p.check("not"):
		return p.parseNotInfixExpr(left)
	case p.check("is"):
		return p.parseIsExpr(left)
	case p.match("in"):
		return p.parseInExpr(left, false)
	case p.match("between"):
		return p.parseBetweenExpr(left, false)
	case p.match("like"):
		return p.parseLikeExpr(left, false)
	}

	op := p.token.Text
	p.nextToken()
	right := p.parseExpressionWithPrecedence(prec + 1)
	if right == nil {
		return nil
	}
	return &BinaryExpr{Left: left, Op: op, Right: right}
}

// parseNotInfixExpr handles NOT IN, NOT BETWEEN and NOT LIKE.
func (p *Parser) parseNotInfixExpr(left Expr) Expr {
	p.nextToken() // NOT
	switch {
	case p.match("in"):
		return p.parseInExpr(left, true)
	case p.match("between"):
		return p.parseBetweenExpr(left, true)
	case p.match("like"):
		return p.parseLikeExpr(left, true)
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token, "IN, BETWEEN or LIKE after NOT"))
	return nil
}

// parseIsExpr parses IS [NOT] NULL. IS [NOT] TRUE/FALSE become comparisons.
func (p *Parser) parseIsExpr(left Expr) Expr {
	p.nextToken() // IS
	not := p.match("not")

	switch {
	case p.match("null"):
		return &IsNullExpr{Expr: left, Not: not}
	case p.check("true"), p.check("false"):
		op := "="
		if not {
			op = "!="
		}
		lit := &Literal{Type: LiteralBool, Value: p.token.Text}
		p.nextToken()
		return &BinaryExpr{Left: left, Op: op, Right: lit}
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token, "NULL, TRUE or FALSE after IS"))
	return nil
}

func (p *Parser) parseInExpr(left Expr, not bool) Expr {
	in := &InExpr{Expr: left, Not: not}
	if !p.expect("(") {
		return nil
	}
	if p.check("select") || p.check("with") {
		in.Query = p.parseStatement()
	} else {
		in.Values = p.parseExpressionList()
	}
	p.expect(")")
	return in
}

// parseBetweenExpr parses the bounds at addition precedence so the AND
// separating them is not taken as a boolean operator.
func (p *Parser) parseBetweenExpr(left Expr, not bool) Expr {
	between := &BetweenExpr{Expr: left, Not: not}
	between.Low = p.parseExpressionWithPrecedence(precedenceAddition)
	p.expect("and")
	between.High = p.parseExpressionWithPrecedence(precedenceAddition)
	return between
}

func (p *Parser) parseLikeExpr(left Expr, not bool) Expr {
	return &LikeExpr{Expr: left, Not: not, Pattern: p.parseExpressionWithPrecedence(precedenceAddition)}
}

// tableStar splits a qualified star token such as t1.* into its table.
func tableStar(tok token.Token) (string, bool) {
	if tok.Kind != token.Identifier || len(tok.Text) < 3 || tok.Text[len(tok.Text)-2:] != ".*" {
		return "", false
	}
	return tok.Text[:len(tok.Text)-2], true
}
