// Package token lexes SQL text into the token stream consumed by the
// structural parser, the schema linker and the generic AST parser.
//
// The lexer is a single pass over the input. Quoted literals are kept as one
// String token whose text is the verbatim source span (quotes included), so a
// literal such as 'a=b' can never be mistaken for an operator. Every other
// token is lower-cased.
package token

import "fmt"

// Kind classifies a token.
type Kind int

const (
	// EOF marks the end of input.
	EOF Kind = iota
	// Keyword is a reserved SQL word (select, from, join, ...).
	Keyword
	// Identifier is a table, column, alias or function name. Qualified names
	// such as t1.name or t1.* are a single Identifier.
	Identifier
	// Operator is a comparison or arithmetic operator.
	Operator
	// String is a quoted literal, kept verbatim.
	String
	// Number is a numeric literal.
	Number
	// Punctuation is one of ( ) , ; or any character the lexer does not know.
	Punctuation
)

var kindNames = map[Kind]string{
	EOF:         "EOF",
	Keyword:     "KEYWORD",
	Identifier:  "IDENT",
	Operator:    "OPERATOR",
	String:      "STRING",
	Number:      "NUMBER",
	Punctuation: "PUNCT",
}

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND(%d)", k)
}

// Token is a lexical token backed by offsets into the original text.
type Token struct {
	Kind Kind
	Text string
	Pos  Position // start of the token
	End  int      // byte offset just past the token
}

// Is reports whether the token is a non-literal with the given text.
// Literal tokens never match, so a string literal 'from' is not the FROM keyword.
func (t Token) Is(text string) bool {
	return t.Kind != String && t.Kind != Number && t.Text == text
}

// IsAny reports whether the token matches any of the given texts.
func (t Token) IsAny(texts ...string) bool {
	for _, s := range texts {
		if t.Is(s) {
			return true
		}
	}
	return false
}

// IsLiteral reports whether the token is a string or number literal.
func (t Token) IsLiteral() bool {
	return t.Kind == String || t.Kind == Number
}

func (t Token) String() string {
	if t.Kind == EOF {
		return "EOF"
	}
	return fmt.Sprintf("%s(%s)", t.Kind, t.Text)
}

// keywords is the reserved word set. Aggregate and function names are left
// out on purpose: they are identifiers that happen to be followed by "(".
var keywords = map[string]struct{}{
	"all": {}, "and": {}, "as": {}, "asc": {}, "between": {}, "by": {},
	"case": {}, "cross": {}, "desc": {}, "distinct": {}, "else": {},
	"end": {}, "except": {}, "exists": {}, "false": {}, "from": {},
	"full": {}, "group": {}, "having": {}, "in": {}, "inner": {},
	"intersect": {}, "is": {}, "join": {}, "left": {}, "like": {},
	"limit": {}, "natural": {}, "not": {}, "null": {}, "offset": {},
	"on": {}, "or": {}, "order": {}, "outer": {}, "recursive": {},
	"right": {}, "select": {}, "then": {}, "true": {}, "union": {},
	"when": {}, "where": {}, "with": {},
}

// IsKeyword reports whether the lower-cased word is reserved.
func IsKeyword(word string) bool {
	_, ok := keywords[word]
	return ok
}
