package execdb

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ResultSet is a fully materialized query result.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// EqualUnordered reports whether both results hold the same rows as a
// multiset. Row order and column names are ignored; column order is not.
// Integers and floats holding the same number compare equal.
func (r *ResultSet) EqualUnordered(other *ResultSet) bool {
	if r.Len() != other.Len() {
		return false
	}
	if r.Len() == 0 {
		return true
	}

	counts := make(map[string]int, len(r.Rows))
	for _, row := range r.Rows {
		counts[rowKey(row)]++
	}
	for _, row := range other.Rows {
		key := rowKey(row)
		if counts[key] == 0 {
			return false
		}
		counts[key]--
	}
	return true
}

func rowKey(row []any) string {
	var b strings.Builder
	for i, v := range row {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(canonical(v))
	}
	return b.String()
}

// canonical renders a scanned value so that equal values render equally.
func canonical(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return "s:" + x
	case []byte:
		return "s:" + string(x)
	case bool:
		return "b:" + strconv.FormatBool(x)
	case int64:
		return "n:" + strconv.FormatInt(x, 10)
	case int32:
		return "n:" + strconv.FormatInt(int64(x), 10)
	case int:
		return "n:" + strconv.Itoa(x)
	case float32:
		return canonicalFloat(float64(x))
	case float64:
		return canonicalFloat(x)
	case time.Time:
		return "t:" + x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("v:%v", x)
	}
}

func canonicalFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return "n:" + strconv.FormatInt(int64(f), 10)
	}
	return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
}
