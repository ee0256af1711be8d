package token

import (
	"fmt"
	"strings"
)

// TokenizeError reports input the lexer cannot split into tokens.
// The only fatal case is a quoted literal that never closes.
type TokenizeError struct {
	Pos     Position
	Message string
}

func (e *TokenizeError) Error() string {
	return fmt.Sprintf("tokenize error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Lexer tokenizes SQL input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// Tokenize returns all tokens of the input, without a trailing EOF token.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind == EOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) currentPos() Position {
	return Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	if l.atEOF() {
		return Token{Kind: EOF, Pos: pos, End: len(l.input)}, nil
	}

	switch ch := l.ch; {
	case ch == '\'' || ch == '"':
		return l.readString(pos)
	case ch == '`':
		return l.readQuotedIdentifier(pos)
	case isLetter(ch) || ch == '_':
		word := l.readIdentifier()
		lower := strings.ToLower(word)
		kind := Identifier
		if IsKeyword(lower) {
			kind = Keyword
		}
		return Token{Kind: kind, Text: lower, Pos: pos, End: l.pos}, nil
	case isDigit(ch) || (ch == '.' && isDigit(l.peekChar())):
		num := l.readNumber()
		return Token{Kind: Number, Text: num, Pos: pos, End: l.pos}, nil
	}

	return l.readOperator(pos), nil
}

// readOperator reads operators and punctuation. Two-character comparison
// operators are decided here so no later pass has to merge tokens.
func (l *Lexer) readOperator(pos Position) Token {
	ch := l.ch
	next := l.peekChar()
	two := func(text string) Token {
		l.readChar()
		l.readChar()
		return Token{Kind: Operator, Text: text, Pos: pos, End: l.pos}
	}

	switch {
	case (ch == '!' || ch == '<' || ch == '>') && next == '=':
		return two(string(ch) + "=")
	case ch == '<' && next == '>':
		return two("<>")
	case ch == '|' && next == '|':
		return two("||")
	}

	kind := Punctuation
	switch ch {
	case '=', '<', '>', '+', '-', '*', '/', '%':
		kind = Operator
	}
	l.readChar()
	return Token{Kind: kind, Text: string(ch), Pos: pos, End: l.pos}
}

// skipWhitespaceAndComments skips whitespace and comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			for !l.atEOF() && (l.ch != '*' || l.peekChar() != '/') {
				l.readChar()
			}
			if !l.atEOF() {
				l.readChar()
				l.readChar()
			}
			continue
		}

		break
	}
}

// readString reads a quoted literal and returns its verbatim span.
// A doubled quote or a backslash escape does not close the literal.
func (l *Lexer) readString(pos Position) (Token, error) {
	quote := l.ch
	start := l.pos
	l.readChar() // skip opening quote

	for {
		if l.atEOF() {
			return Token{}, &TokenizeError{
				Pos:     pos,
				Message: fmt.Sprintf("unterminated %c-quoted literal", quote),
			}
		}
		switch {
		case l.ch == '\\':
			l.readChar()
			if !l.atEOF() {
				l.readChar()
			}
		case l.ch == quote && l.peekChar() == quote:
			l.readChar()
			l.readChar()
		case l.ch == quote:
			l.readChar()
			return Token{Kind: String, Text: l.input[start:l.pos], Pos: pos, End: l.pos}, nil
		default:
			l.readChar()
		}
	}
}

// readQuotedIdentifier reads a backtick-quoted identifier.
func (l *Lexer) readQuotedIdentifier(pos Position) (Token, error) {
	l.readChar() // skip opening backtick
	start := l.pos
	for l.ch != '`' {
		if l.atEOF() {
			return Token{}, &TokenizeError{Pos: pos, Message: "unterminated `-quoted identifier"}
		}
		l.readChar()
	}
	name := strings.ToLower(strings.TrimSpace(l.input[start:l.pos]))
	l.readChar() // skip closing backtick
	return Token{Kind: Identifier, Text: name, Pos: pos, End: l.pos}, nil
}

// readIdentifier reads an unquoted identifier, including dotted
// qualification (t1.name) and a trailing qualified star (t1.*).
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for {
		for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
		if l.ch != '.' {
			break
		}
		next := l.peekChar()
		if next == '*' {
			l.readChar()
			l.readChar()
			break
		}
		if !isLetter(next) && !isDigit(next) && next != '_' {
			break
		}
		l.readChar() // consume '.'
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '+' || l.peekChar() == '-') {
		l.readChar() // skip 'e' or 'E'
		if l.ch == '+' || l.ch == '-' {
			l.readChar() // skip sign
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

// isLetter treats every non-ASCII byte as a letter so UTF-8 identifiers
// stay in one piece.
func isLetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= 0x80
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
