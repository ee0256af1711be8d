package hardness

import (
	"regexp"
	"strings"
)

// KnownFunctions are the scalar functions the lite classifier scores.
var KnownFunctions = []string{
	"cast", "substring", "substr", "date", "round", "coalesce",
	"strftime", "julianday", "ifnull", "length", "abs", "lower", "upper",
}

var (
	subqueryPattern = regexp.MustCompile(`(?i)\(\s*select\b`)
	joinPattern     = regexp.MustCompile(`(?i)\bjoin\b`)
	boolPattern     = regexp.MustCompile(`(?i)\b(and|or)\b`)
	predPattern     = regexp.MustCompile(`(?i)\b(in|exists|like)\b`)
	groupByPattern  = regexp.MustCompile(`(?i)\bgroup\s+by\b`)
	havingPattern   = regexp.MustCompile(`(?i)\bhaving\b`)
	orderByPattern  = regexp.MustCompile(`(?i)\border\s+by\b`)
	limitPattern    = regexp.MustCompile(`(?i)\blimit\b`)
	setOpPattern    = regexp.MustCompile(`(?i)\b(union|intersect|except)\b`)
	selectPattern   = regexp.MustCompile(`(?i)\bselect\b`)
	fromPattern     = regexp.MustCompile(`(?i)\bfrom\b`)
	funcPattern     = regexp.MustCompile(`(?i)\b(` + strings.Join(KnownFunctions, "|") + `)\s*\(`)
)

// LiteScore is the raw pattern score behind ClassifyLite.
func LiteScore(sql string) int {
	text := blankLiterals(sql)
	score := 0

	if subqueryPattern.MatchString(text) {
		score += 2
	}
	score += len(joinPattern.FindAllStringIndex(text, -1))
	if multiColumnSelect(text) {
		score++
	}
	if len(boolPattern.FindAllStringIndex(text, -1)) >= 2 {
		score++
	}
	for _, re := range []*regexp.Regexp{predPattern, groupByPattern, havingPattern, funcPattern, orderByPattern, limitPattern} {
		if re.MatchString(text) {
			score++
		}
	}
	if setOpPattern.MatchString(text) {
		score += 2
	}
	return score
}

// ClassifyLite grades raw SQL text without parsing it. It accepts any input.
func ClassifyLite(sql string) Tier {
	switch score := LiteScore(sql); {
	case score <= 2:
		return Easy
	case score <= 4:
		return Medium
	case score <= 6:
		return Hard
	default:
		return Extra
	}
}

// multiColumnSelect reports whether the first projection list has a
// top-level comma.
func multiColumnSelect(text string) bool {
	sel := selectPattern.FindStringIndex(text)
	if sel == nil {
		return false
	}
	rest := text[sel[1]:]
	if from := fromPattern.FindStringIndex(rest); from != nil {
		rest = rest[:from[0]]
	}

	depth := 0
	for _, r := range rest {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

// blankLiterals replaces the contents of quoted literals with spaces so that
// words inside them cannot score. An unterminated literal is blanked to the end.
func blankLiterals(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	var quote rune
	escaped := false
	for _, r := range sql {
		switch {
		case quote == 0:
			if r == '\'' || r == '"' {
				quote = r
			}
			b.WriteRune(r)
		case escaped:
			escaped = false
			b.WriteByte(' ')
		case r == '\\':
			escaped = true
			b.WriteByte(' ')
		case r == quote:
			quote = 0
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}
