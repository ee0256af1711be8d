// Package sqlast parses SQL SELECT statements into a generic syntax tree.
//
// Unlike the structural parser, sqlast needs no schema: names are kept as
// written and resolved by the caller. It accepts a wider grammar than the
// structural form (CTEs, CASE, scalar subqueries anywhere) so that tools
// walking the tree see every reference.
//
// # Grammar Overview
//
//	statement     → [WITH cte_list] select_body
//	select_body   → select_core [(UNION|INTERSECT|EXCEPT) [ALL] select_body]
//	select_core   → SELECT [DISTINCT] select_list [FROM from_clause]
//	                [WHERE expr] [GROUP BY expr_list] [HAVING expr]
//	                [ORDER BY order_list] [LIMIT expr [OFFSET expr]]
//
// See each file for the grammar of its section.
package sqlast

import (
	"fmt"

	"github.com/leapstack-labs/sqlgrade/pkg/token"
)

// ParseError is a syntax error at a token position.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// ErrUnexpectedToken is the message format for a token mismatch.
const ErrUnexpectedToken = "unexpected token %s, expected %s"

// Parser parses a token stream into an AST.
type Parser struct {
	tokens []token.Token
	pos    int
	token  token.Token // current token
	errors []error
}

// NewParser creates a parser over already lexed tokens.
func NewParser(tokens []token.Token) *Parser {
	p := &Parser{tokens: tokens, pos: -1}
	p.nextToken()
	return p
}

// Parse lexes and parses sql. A trailing semicolon is allowed.
func Parse(sql string) (*SelectStmt, error) {
	tokens, err := token.Tokenize(sql)
	if err != nil {
		return nil, err
	}
	return ParseTokens(tokens)
}

// ParseTokens parses one statement that must span all of tokens.
func ParseTokens(tokens []token.Token) (*SelectStmt, error) {
	p := NewParser(tokens)
	stmt := p.parseStatement()
	for p.match(";") {
	}
	if p.token.Kind != token.EOF {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token, "end of statement"))
	}
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return stmt, nil
}

// ---------- Token Helpers ----------

// nextToken advances to the next token; past the end it stays on EOF.
func (p *Parser) nextToken() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
	p.token = p.peekAt(0)
}

// peekAt returns the token n positions after the current one.
func (p *Parser) peekAt(n int) token.Token {
	i := p.pos + n
	if i < 0 || i >= len(p.tokens) {
		end := token.Position{}
		if len(p.tokens) > 0 {
			last := p.tokens[len(p.tokens)-1]
			end = token.Position{Line: last.Pos.Line, Column: last.Pos.Column + last.End - last.Pos.Offset, Offset: last.End}
		}
		return token.Token{Kind: token.EOF, Pos: end}
	}
	return p.tokens[i]
}

// check returns true if the current token is the non-literal text.
func (p *Parser) check(text string) bool {
	return p.token.Is(text)
}

// checkPeek returns true if the next token is the non-literal text.
func (p *Parser) checkPeek(text string) bool {
	return p.peekAt(1).Is(text)
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(text string) bool {
	if p.check(text) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(text string) bool {
	if p.check(text) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token, fmt.Sprintf("%q", text)))
	return false
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{Pos: p.token.Pos, Message: msg})
}

// ---------- Keyword Helpers ----------

// nonAliasWords are identifiers that may follow a table reference without
// being its alias.
var nonAliasWords = map[string]struct{}{
	"using": {},
}

// isAliasToken reports whether tok can be a bare alias.
func isAliasToken(tok token.Token) bool {
	if tok.Kind != token.Identifier {
		return false
	}
	_, reserved := nonAliasWords[tok.Text]
	return !reserved
}
