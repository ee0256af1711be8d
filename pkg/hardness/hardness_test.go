package hardness_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlgrade/internal/testutil"
	"github.com/leapstack-labs/sqlgrade/pkg/execdb"
	"github.com/leapstack-labs/sqlgrade/pkg/hardness"
	"github.com/leapstack-labs/sqlgrade/pkg/parser"
)

func counts(t *testing.T, sql string) hardness.Components {
	t.Helper()
	_, c, err := hardness.ClassifySQL(sql, testutil.ConcertSinger(t))
	require.NoError(t, err, sql)
	return c
}

// ---------- Decision Table Tests ----------

func TestTierFor(t *testing.T) {
	tests := []struct {
		c    hardness.Components
		want hardness.Tier
	}{
		{hardness.Components{Structural: 0, Other: 0, Nesting: 0}, hardness.Easy},
		{hardness.Components{Structural: 1, Other: 0, Nesting: 0}, hardness.Easy},
		{hardness.Components{Structural: 2, Other: 0, Nesting: 0}, hardness.Medium},
		{hardness.Components{Structural: 1, Other: 2, Nesting: 0}, hardness.Medium},
		{hardness.Components{Structural: 2, Other: 1, Nesting: 0}, hardness.Medium},
		{hardness.Components{Structural: 2, Other: 3, Nesting: 0}, hardness.Hard},
		{hardness.Components{Structural: 3, Other: 2, Nesting: 0}, hardness.Hard},
		{hardness.Components{Structural: 0, Other: 0, Nesting: 1}, hardness.Hard},
		{hardness.Components{Structural: 4, Other: 0, Nesting: 0}, hardness.Extra},
		{hardness.Components{Structural: 1, Other: 1, Nesting: 1}, hardness.Extra},
		{hardness.Components{Structural: 0, Other: 0, Nesting: 2}, hardness.Extra},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%+v", tt.c), func(t *testing.T) {
			assert.Equal(t, tt.want, hardness.TierFor(tt.c))
		})
	}
}

func TestTierFor_EasyMediumBoundary(t *testing.T) {
	c := hardness.Components{Structural: 1}
	assert.Equal(t, hardness.Easy, hardness.TierFor(c))
	c.Structural++
	assert.Equal(t, hardness.Medium, hardness.TierFor(c))
}

// ---------- Component Tests ----------

func TestCounts(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want hardness.Components
		tier hardness.Tier
	}{
		{
			name: "plain projection",
			sql:  "SELECT name FROM singer",
			want: hardness.Components{},
			tier: hardness.Easy,
		},
		{
			name: "count star",
			sql:  "SELECT count(*) FROM singer",
			want: hardness.Components{},
			tier: hardness.Easy,
		},
		{
			name: "where plus order",
			sql:  "SELECT name FROM singer WHERE age > 20 ORDER BY age",
			want: hardness.Components{Structural: 2},
			tier: hardness.Medium,
		},
		{
			name: "or and like",
			sql:  "SELECT name FROM singer WHERE name LIKE '%a%' OR country = 'France'",
			want: hardness.Components{Structural: 3, Other: 1},
			tier: hardness.Hard,
		},
		{
			name: "join group order limit",
			sql: `SELECT T2.name, count(*) FROM concert AS T1 JOIN stadium AS T2 ON T1.stadium_id = T2.stadium_id
				GROUP BY T1.stadium_id ORDER BY count(*) DESC LIMIT 1`,
			want: hardness.Components{Structural: 4, Other: 2},
			tier: hardness.Extra,
		},
		{
			name: "nested subquery",
			sql:  "SELECT name FROM stadium WHERE stadium_id NOT IN (SELECT stadium_id FROM concert)",
			want: hardness.Components{Structural: 1, Nesting: 1},
			tier: hardness.Hard,
		},
		{
			name: "set operation",
			sql:  "SELECT name FROM singer INTERSECT SELECT name FROM stadium",
			want: hardness.Components{Nesting: 1},
			tier: hardness.Hard,
		},
		{
			name: "aggregates counted across clauses",
			sql:  "SELECT max(age), min(age) FROM singer",
			want: hardness.Components{Other: 2},
			tier: hardness.Medium,
		},
		{
			name: "multiple where conditions and group columns",
			sql:  "SELECT country FROM singer WHERE age > 20 AND is_male = 'T' GROUP BY country, is_male",
			want: hardness.Components{Structural: 2, Other: 2},
			tier: hardness.Extra,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, c, err := hardness.ClassifySQL(tt.sql, testutil.ConcertSinger(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, c)
			assert.Equal(t, tt.tier, tier)
		})
	}
}

func TestCounts_JoinNeverLowersStructural(t *testing.T) {
	base := "SELECT T1.name FROM singer AS T1"
	joins := []string{
		" JOIN singer_in_concert AS T2 ON T1.singer_id = T2.singer_id",
		" JOIN concert AS T3 ON T2.concert_id = T3.concert_id",
		" JOIN stadium AS T4 ON T3.stadium_id = T4.stadium_id",
	}
	tail := " WHERE T1.age > 30 ORDER BY T1.age LIMIT 3"

	prev := counts(t, base+tail).Structural
	sql := base
	for _, join := range joins {
		sql += join
		got := counts(t, sql+tail).Structural
		assert.GreaterOrEqual(t, got, prev, sql)
		prev = got
	}
}

func TestClassify_Deterministic(t *testing.T) {
	s := testutil.ConcertSinger(t)
	sql := "SELECT country, count(*) FROM singer WHERE age > 20 OR is_male = 'F' GROUP BY country HAVING count(*) > 1"
	q, err := parser.Parse(sql, s)
	require.NoError(t, err)

	first := hardness.Classify(q)
	for range 10 {
		again, err := parser.Parse(sql, s)
		require.NoError(t, err)
		assert.Equal(t, first, hardness.Classify(again))
	}
}

func TestClassifySQL_ParseErrorReturned(t *testing.T) {
	_, _, err := hardness.ClassifySQL("SELECT nope FROM singer", testutil.ConcertSinger(t))
	var resErr *parser.ResolutionError
	assert.True(t, errors.As(err, &resErr))
}

// ---------- Lite Classifier Tests ----------

func TestClassifyLite(t *testing.T) {
	tests := []struct {
		sql   string
		score int
		want  hardness.Tier
	}{
		{"SELECT name FROM singer", 0, hardness.Easy},
		{"SELECT name, age FROM singer ORDER BY age LIMIT 1", 3, hardness.Medium},
		{"SELECT count(*) FROM singer WHERE country = 'France join union'", 0, hardness.Easy},
		{"SELECT T1.name FROM a AS T1 JOIN b AS T2 ON x = y JOIN c ON p = q WHERE T1.id IN (SELECT id FROM d)", 5, hardness.Hard},
		{"SELECT name FROM a UNION SELECT name FROM b GROUP BY x HAVING count(*) > 1 AND round(y) > 2 OR z LIKE 'q'", 7, hardness.Extra},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.score, hardness.LiteScore(tt.sql))
			assert.Equal(t, tt.want, hardness.ClassifyLite(tt.sql))
		})
	}
}

func TestClassifyLite_NeverFails(t *testing.T) {
	inputs := []string{
		"",
		"'",
		"SELECT 'unterminated",
		"((((((",
		")))) select from where",
		"\x00\xff\xfe",
		strings.Repeat("JOIN ", 100),
	}
	rng := rand.New(rand.NewPCG(1, 2))
	alphabet := []rune("SELECT FROM WHERE (),'\"\\*=<>!joinunion ")
	for range 200 {
		buf := make([]rune, rng.IntN(60))
		for i := range buf {
			buf[i] = alphabet[rng.IntN(len(alphabet))]
		}
		inputs = append(inputs, string(buf))
	}

	for _, in := range inputs {
		assert.NotPanics(t, func() {
			assert.Contains(t, hardness.Tiers, hardness.ClassifyLite(in))
		})
	}
}

// ---------- Execution Classifier Tests ----------

type fakeQuerier struct {
	results map[string]*execdb.ResultSet
	errs    map[string]error
	slow    map[string]bool
}

func (f *fakeQuerier) Query(ctx context.Context, sql string) (*execdb.ResultSet, error) {
	if f.slow[sql] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err, ok := f.errs[sql]; ok {
		return nil, err
	}
	return f.results[sql], nil
}

func rows(vals ...any) *execdb.ResultSet {
	rs := &execdb.ResultSet{Columns: []string{"v"}}
	for _, v := range vals {
		rs.Rows = append(rs.Rows, []any{v})
	}
	return rs
}

func TestThresholds(t *testing.T) {
	th := hardness.Thresholds{Easy: 3, Medium: 2, Hard: 1}
	require.NoError(t, th.Validate())
	assert.Equal(t, hardness.Easy, th.TierFor(4))
	assert.Equal(t, hardness.Easy, th.TierFor(3))
	assert.Equal(t, hardness.Medium, th.TierFor(2))
	assert.Equal(t, hardness.Hard, th.TierFor(1))
	assert.Equal(t, hardness.Extra, th.TierFor(0))

	assert.Error(t, hardness.Thresholds{Easy: 1, Medium: 2, Hard: 0}.Validate())
	assert.NoError(t, hardness.DefaultThresholds.Validate())
}

func TestExecClassifier(t *testing.T) {
	q := &fakeQuerier{
		results: map[string]*execdb.ResultSet{
			"gold":      rows(int64(1), int64(2)),
			"same":      rows(2.0, int64(1)),
			"reorder":   rows(int64(2), int64(1)),
			"different": rows(int64(1)),
		},
		errs: map[string]error{"broken": errors.New("no such column")},
		slow: map[string]bool{"slow": true},
	}
	c := &hardness.ExecClassifier{
		Querier:     q,
		Timeout:     20 * time.Millisecond,
		Concurrency: 3,
		Thresholds:  hardness.Thresholds{Easy: 4, Medium: 2, Hard: 1},
		Logger:      testutil.NewTestLogger(t),
	}

	res := c.Classify(context.Background(), "gold", []string{"same", "reorder", "different", "broken", "slow"})
	assert.Equal(t, hardness.Medium, res.Tier)
	assert.Equal(t, 2, res.Matches)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 5, res.Candidates)
	assert.Empty(t, res.GoldError)
}

func TestExecClassifier_GoldErrorEvenWhenCandidatesFail(t *testing.T) {
	q := &fakeQuerier{
		errs: map[string]error{"gold": errors.New("syntax error")},
		slow: map[string]bool{"a": true, "b": true},
	}
	c := &hardness.ExecClassifier{Querier: q, Timeout: 10 * time.Millisecond, Thresholds: hardness.DefaultThresholds}

	res := c.Classify(context.Background(), "gold", []string{"a", "b"})
	assert.Equal(t, hardness.GoldError, res.Tier)
	assert.Contains(t, res.GoldError, "syntax error")
}

func TestExecClassifier_GoldTimeout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT gold").
		WillDelayFor(time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow(1))

	exec := &execdb.BaseExecutor{DB: db}
	c := &hardness.ExecClassifier{
		Querier:    exec,
		Timeout:    20 * time.Millisecond,
		Thresholds: hardness.DefaultThresholds,
		Logger:     testutil.NewTestLogger(t),
	}

	res := c.Classify(context.Background(), "SELECT gold", []string{"SELECT slow_a", "SELECT slow_b"})
	assert.Equal(t, hardness.GoldError, res.Tier)
	assert.NotEqual(t, hardness.Extra, res.Tier)
	assert.Zero(t, res.Matches)
}
