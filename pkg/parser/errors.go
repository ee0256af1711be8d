package parser

import (
	"errors"
	"fmt"
)

// ParseError reports a malformed token sequence at a token index.
type ParseError struct {
	Index   int
	Token   string
	Message string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("parse error at token %d (end of input): %s", e.Index, e.Message)
	}
	return fmt.Sprintf("parse error at token %d (%q): %s", e.Index, e.Token, e.Message)
}

// ResolutionError reports a table or column reference the schema does not know.
type ResolutionError struct {
	Index   int
	Name    string
	Message string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution error at token %d: %s", e.Index, e.Message)
}

// AliasConflictError reports a declared alias that equals a real table name.
// Table is the aliased table, empty when an expression or subquery is aliased.
type AliasConflictError struct {
	Index int
	Alias string
	Table string
}

func (e *AliasConflictError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("alias %q at token %d shadows a real table", e.Alias, e.Index)
	}
	return fmt.Sprintf("alias %q for table %q shadows a real table", e.Alias, e.Table)
}

// Common error messages
const (
	ErrUnexpectedToken = "unexpected token, expected %s"
	ErrUnknownColumn   = "unknown column %q"
	ErrUnknownTable    = "unknown table or alias %q"
	ErrMissingFrom     = "missing FROM clause"
	ErrInvalidLimit    = "LIMIT requires an integer, got %q"
)

// TokenIndex extracts the offending token index from a parser error.
func TokenIndex(err error) (int, bool) {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Index, true
	}
	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		return resErr.Index, true
	}
	var conflict *AliasConflictError
	if errors.As(err, &conflict) {
		return conflict.Index, true
	}
	return 0, false
}
