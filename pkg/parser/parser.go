// Package parser builds the structural representation of a SELECT statement.
//
// The parser is recursive descent over an immutable token slice. Every parse
// function takes a Cursor and returns the value it built together with the
// Cursor just past it, so no function mutates shared position state.
//
// Clauses are parsed FROM first, then SELECT, WHERE, GROUP BY, HAVING,
// ORDER BY and LIMIT, because resolving an unqualified column in the
// projection needs the FROM table list. An unqualified column present in
// several FROM tables resolves to the first of them in FROM order.
package parser

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/leapstack-labs/sqlgrade/pkg/schema"
	"github.com/leapstack-labs/sqlgrade/pkg/token"
)

// Cursor is an index into the token slice.
type Cursor int

// parser holds the read-only inputs shared by every parse function.
type parser struct {
	tokens  []token.Token
	aliases AliasMap
	schema  *schema.Schema
	ids     schema.IdentifierMap
}

var errNoSchema = errors.New("parse requires a schema")

// Parse tokenizes sql, resolves its aliases against s and parses one SELECT
// statement, which must span the whole input.
func Parse(sql string, s *schema.Schema) (*Query, error) {
	if s == nil {
		return nil, errNoSchema
	}

	tokens, err := token.Tokenize(sql)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, &ParseError{Message: "empty query"}
	}

	aliases, err := ResolveTables(tokens, s)
	if err != nil {
		return nil, err
	}

	q, c, err := ParseSelect(tokens, 0, aliases, s)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	c = p.skipSemicolons(c)
	if !p.done(c) {
		return nil, p.errorf(c, ErrUnexpectedToken, "end of statement")
	}
	return q, nil
}

// ParseSelect parses one (possibly parenthesized) SELECT statement starting
// at c, including any trailing set operation.
func ParseSelect(tokens []token.Token, c Cursor, aliases AliasMap, s *schema.Schema) (*Query, Cursor, error) {
	if s == nil {
		return nil, c, errNoSchema
	}
	p := &parser{tokens: tokens, aliases: aliases, schema: s, ids: s.Identifiers()}
	return p.parseSQL(c, nil)
}

func (p *parser) parseSQL(c Cursor, outer *scope) (*Query, Cursor, error) {
	block := false
	if p.at(c).Is("(") {
		block = true
		c++
	}

	q, c, err := p.parseSelectCore(c, outer)
	if err != nil {
		return nil, c, err
	}

	c = p.skipSemicolons(c)
	if block {
		if c, err = p.expect(c, ")"); err != nil {
			return nil, c, err
		}
		c = p.skipSemicolons(c)
	}

	tok := p.at(c)
	if !tok.IsAny("intersect", "union", "except") {
		return q, c, nil
	}
	c++
	if p.at(c).Is("all") {
		c++
	}

	rhs, c, err := p.parseSQL(c, outer)
	if err != nil {
		return nil, c, err
	}
	switch tok.Text {
	case "intersect":
		q.Intersect = rhs
	case "union":
		q.Union = rhs
	case "except":
		q.Except = rhs
	}
	return q, c, nil
}

func (p *parser) parseSelectCore(c Cursor, outer *scope) (*Query, Cursor, error) {
	if !p.at(c).Is("select") {
		return nil, c, p.errorf(c, ErrUnexpectedToken, "SELECT")
	}
	fromAt, ok := p.findFrom(c + 1)
	if !ok {
		return nil, c, p.errorf(c, ErrMissingFrom)
	}

	sc := newScope(outer)
	q := &Query{}
	var err error

	end := fromAt + 1
	if q.From, end, err = p.parseFrom(end, sc); err != nil {
		return nil, end, err
	}

	selEnd := c + 1
	if q.Select, selEnd, err = p.parseSelectList(selEnd, sc); err != nil {
		return nil, selEnd, err
	}
	if selEnd != fromAt {
		return nil, selEnd, p.errorf(selEnd, ErrUnexpectedToken, "FROM")
	}

	c = end
	if p.at(c).Is("where") {
		if q.Where, c, err = p.parseConditions(c+1, sc); err != nil {
			return nil, c, err
		}
	}
	if p.at(c).Is("group") {
		if q.GroupBy, c, err = p.parseGroupBy(c, sc); err != nil {
			return nil, c, err
		}
	}
	if p.at(c).Is("having") {
		if q.Having, c, err = p.parseConditions(c+1, sc); err != nil {
			return nil, c, err
		}
	}
	if p.at(c).Is("order") {
		if q.OrderBy, c, err = p.parseOrderBy(c, sc); err != nil {
			return nil, c, err
		}
	}
	if p.at(c).Is("limit") {
		if c, err = p.parseLimit(c, q); err != nil {
			return nil, c, err
		}
	}
	return q, c, nil
}

// findFrom locates the FROM keyword of the statement starting at c, at the
// same parenthesis depth.
func (p *parser) findFrom(c Cursor) (Cursor, bool) {
	depth := 0
	for i := c; !p.done(i); i++ {
		tok := p.at(i)
		switch {
		case tok.Is("("):
			depth++
		case tok.Is(")"):
			if depth == 0 {
				return 0, false
			}
			depth--
		case depth > 0:
		case tok.Is("from"):
			return i, true
		case tok.IsAny(";", "union", "intersect", "except"):
			return 0, false
		}
	}
	return 0, false
}

func (p *parser) parseLimit(c Cursor, q *Query) (Cursor, error) {
	c++ // LIMIT
	tok := p.at(c)
	n, err := strconv.Atoi(tok.Text)
	if tok.Kind != token.Number || err != nil {
		return c, p.errorf(c, ErrInvalidLimit, tok.Text)
	}
	q.Limit = &n
	c++

	if p.at(c).Is("offset") {
		c++
		tok = p.at(c)
		off, err := strconv.Atoi(tok.Text)
		if tok.Kind != token.Number || err != nil {
			return c, p.errorf(c, ErrUnexpectedToken, "integer OFFSET")
		}
		q.Offset = &off
		c++
	}
	return c, nil
}

// --- token helpers ---

func (p *parser) at(c Cursor) token.Token {
	if c < 0 || int(c) >= len(p.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[c]
}

func (p *parser) done(c Cursor) bool {
	return int(c) >= len(p.tokens)
}

func (p *parser) expect(c Cursor, text string) (Cursor, error) {
	if !p.at(c).Is(text) {
		return c, p.errorf(c, ErrUnexpectedToken, strconv.Quote(text))
	}
	return c + 1, nil
}

func (p *parser) skipSemicolons(c Cursor) Cursor {
	for p.at(c).Is(";") {
		c++
	}
	return c
}

// matchParen returns the index of the ")" closing the "(" at c, or -1.
func (p *parser) matchParen(c Cursor) Cursor {
	depth := 0
	for i := c; !p.done(i); i++ {
		switch tok := p.at(i); {
		case tok.Is("("):
			depth++
		case tok.Is(")"):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (p *parser) errorf(c Cursor, format string, args ...any) error {
	tok := p.at(c)
	text := ""
	if tok.Kind != token.EOF {
		text = tok.Text
	}
	return &ParseError{Index: int(c), Token: text, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) resolveErrorf(c Cursor, format string, name string) error {
	return &ResolutionError{Index: int(c), Name: name, Message: fmt.Sprintf(format, name)}
}

var clauseKeywords = map[string]struct{}{
	"select": {}, "from": {}, "where": {}, "group": {}, "having": {}, "order": {},
	"limit": {}, "offset": {}, "intersect": {}, "union": {}, "except": {},
}

var joinKeywords = map[string]struct{}{
	"join": {}, "on": {}, "as": {}, "inner": {}, "left": {}, "right": {},
	"full": {}, "cross": {}, "outer": {}, "natural": {},
}

func isClauseKeyword(tok token.Token) bool {
	if tok.Kind != token.Keyword {
		return false
	}
	_, ok := clauseKeywords[tok.Text]
	return ok
}

func isJoinKeyword(tok token.Token) bool {
	if tok.Kind != token.Keyword {
		return false
	}
	_, ok := joinKeywords[tok.Text]
	return ok
}

// atClauseEnd reports whether c sits where a clause may legally stop.
func (p *parser) atClauseEnd(c Cursor) bool {
	tok := p.at(c)
	return tok.Kind == token.EOF || isClauseKeyword(tok) || tok.IsAny(")", ";")
}

// --- scopes ---

// scope is the name environment of one SELECT: its FROM tables in order,
// the aliases it declares, and its projection aliases.
type scope struct {
	tables  []string
	aliases map[string]string
	derived []string
	outputs map[string]ColUnit
	outer   *scope
}

func newScope(outer *scope) *scope {
	return &scope{
		aliases: make(map[string]string),
		outputs: make(map[string]ColUnit),
		outer:   outer,
	}
}

func (s *scope) addTable(table, alias string) {
	s.tables = append(s.tables, table)
	if alias != "" {
		s.aliases[alias] = table
	}
}

func (s *scope) isDerived(name string) bool {
	for _, d := range s.derived {
		if d == name {
			return true
		}
	}
	return false
}

// lookupTable resolves a qualifier through the scope chain first and the
// query-wide alias map last.
func (p *parser) lookupTable(sc *scope, name string) (table string, derived bool, ok bool) {
	for s := sc; s != nil; s = s.outer {
		if t, found := s.aliases[name]; found {
			return t, false, true
		}
		if s.isDerived(name) {
			return "", true, true
		}
	}
	if t, found := p.aliases.Resolve(name); found && p.schema.HasTable(t) {
		return t, false, true
	}
	return "", false, false
}

func (p *parser) tableSymbol(table string) (schema.Symbol, bool) {
	return p.ids.Lookup(table)
}

func (p *parser) columnSymbol(table, column string) (schema.Symbol, bool) {
	return p.ids.Lookup(table + "." + column)
}
