package token

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Text
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "simple select",
			sql:  "SELECT name FROM singer",
			want: []string{"select", "name", "from", "singer"},
		},
		{
			name: "qualified names stay whole",
			sql:  "SELECT T1.Name, t2.* FROM singer AS T1",
			want: []string{"select", "t1.name", ",", "t2.*", "from", "singer", "as", "t1"},
		},
		{
			name: "two character operators",
			sql:  "a != 1 AND b >= 2 AND c <= 3 AND d <> 4",
			want: []string{"a", "!=", "1", "and", "b", ">=", "2", "and", "c", "<=", "3", "and", "d", "<>", "4"},
		},
		{
			name: "literal kept verbatim",
			sql:  "WHERE name = 'It''s A=B'",
			want: []string{"where", "name", "=", "'It''s A=B'"},
		},
		{
			name: "double quoted literal",
			sql:  `WHERE country = "France"`,
			want: []string{"where", "country", "=", `"France"`},
		},
		{
			name: "backslash escape",
			sql:  `WHERE x = 'a\'b'`,
			want: []string{"where", "x", "=", `'a\'b'`},
		},
		{
			name: "comments skipped",
			sql:  "SELECT a -- trailing\nFROM /* inline */ t",
			want: []string{"select", "a", "from", "t"},
		},
		{
			name: "numbers",
			sql:  "LIMIT 10 OFFSET 2.5e3",
			want: []string{"limit", "10", "offset", "2.5e3"},
		},
		{
			name: "backtick identifier",
			sql:  "SELECT `Song Name` FROM t",
			want: []string{"select", "song name", "from", "t"},
		},
		{
			name: "count star",
			sql:  "count(*)",
			want: []string{"count", "(", "*", ")"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.want, texts(tokens))
		})
	}
}

func TestTokenize_Kinds(t *testing.T) {
	tokens, err := Tokenize("SELECT max(age) FROM t WHERE name = 'x' AND n > 1;")
	require.NoError(t, err)

	kinds := make([]Kind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []Kind{
		Keyword, Identifier, Punctuation, Identifier, Punctuation,
		Keyword, Identifier, Keyword, Identifier, Operator, String,
		Keyword, Identifier, Operator, Number, Punctuation,
	}, kinds)
}

func TestTokenize_Offsets(t *testing.T) {
	sql := "SELECT  name\nFROM t"
	tokens, err := Tokenize(sql)
	require.NoError(t, err)
	require.Len(t, tokens, 4)

	for _, tok := range tokens {
		assert.Equal(t, tok.Text, lowerASCII(sql[tok.Pos.Offset:tok.End]))
	}
	assert.Equal(t, 2, tokens[2].Pos.Line)
	assert.Equal(t, 1, tokens[2].Pos.Column)
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func TestTokenize_Unterminated(t *testing.T) {
	for _, sql := range []string{
		"SELECT * FROM t WHERE a = 'open",
		`SELECT "open`,
		"SELECT `open",
		`WHERE a = 'ends with escape\'`,
	} {
		t.Run(sql, func(t *testing.T) {
			_, err := Tokenize(sql)
			require.Error(t, err)
			var tokErr *TokenizeError
			assert.True(t, errors.As(err, &tokErr))
		})
	}
}

func TestToken_Is(t *testing.T) {
	tokens, err := Tokenize("from 'from'")
	require.NoError(t, err)
	require.Len(t, tokens, 2)

	assert.True(t, tokens[0].Is("from"))
	assert.False(t, tokens[1].Is("from"))
	assert.True(t, tokens[1].IsLiteral())
}
