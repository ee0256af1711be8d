package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlgrade/internal/cli/config"
	"github.com/leapstack-labs/sqlgrade/internal/cli/output"
	"github.com/leapstack-labs/sqlgrade/internal/testutil"
)

func TestNewCommands(t *testing.T) {
	tests := []struct {
		name  string
		cmd   func() *cobra.Command
		flags []string
	}{
		{name: "parse", cmd: NewParseCommand, flags: []string{"ast"}},
		{name: "classify", cmd: NewClassifyCommand, flags: []string{"lite", "candidate"}},
		{name: "link", cmd: NewLinkCommand},
		{name: "batch", cmd: NewBatchCommand, flags: []string{"no-state", "results"}},
		{name: "report", cmd: NewReportCommand, flags: []string{"results"}},
		{name: "repl", cmd: NewREPLCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := tt.cmd()
			assert.Equal(t, tt.name, cmd.Name())
			assert.NotEmpty(t, cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, cmd.Long, "Long should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3")
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.Run(cmd, nil)
	assert.Contains(t, out.String(), "sqlgrade v1.2.3")
}

func newTestSession(t *testing.T) (*replSession, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cc := &CommandContext{
		Cfg:      &config.Config{Output: "markdown"},
		Logger:   testutil.NewTestLogger(t),
		Renderer: output.NewRendererWithTTY(out, errOut, false, output.ModeMarkdown),
	}
	return &replSession{
		cc:      cc,
		schemas: testutil.ConcertSingerRegistry(t),
		out:     out,
		errOut:  errOut,
	}, out, errOut
}

func TestREPL_WithoutDatabase(t *testing.T) {
	sess, out, _ := newTestSession(t)
	ctx := context.Background()

	quit, pending := sess.handleLine(ctx, "SELECT a FROM t")
	assert.False(t, quit)
	assert.True(t, pending)
	assert.Empty(t, out.String())

	quit, pending = sess.handleLine(ctx, "ORDER BY a;")
	assert.False(t, quit)
	assert.False(t, pending)
	assert.Contains(t, out.String(), "| lite tier | easy |")
	assert.NotContains(t, out.String(), "structural")
}

func TestREPL_UseAndEvaluate(t *testing.T) {
	sess, out, errOut := newTestSession(t)
	ctx := context.Background()

	sess.handleLine(ctx, ".use concert_singer")
	assert.Contains(t, out.String(), "using concert_singer")
	require.NotNil(t, sess.schema)

	out.Reset()
	sess.handleLine(ctx, ".tables")
	assert.Contains(t, out.String(), "singer (")

	out.Reset()
	sess.handleLine(ctx, "SELECT name FROM singer WHERE age > 20 ORDER BY age;")
	assert.Contains(t, out.String(), "| tier | medium |")
	assert.Contains(t, out.String(), "| singer | age, name |")
	assert.Empty(t, errOut.String())

	out.Reset()
	sess.handleLine(ctx, "SELECT nope FROM singer;")
	assert.Contains(t, errOut.String(), "nope")
	assert.Contains(t, out.String(), "lite tier")
}

func TestREPL_DotCommands(t *testing.T) {
	sess, out, errOut := newTestSession(t)
	ctx := context.Background()

	quit, _ := sess.handleLine(ctx, ".help")
	assert.False(t, quit)
	assert.Contains(t, out.String(), ".use <db_id>")

	sess.handleLine(ctx, ".tables")
	assert.Contains(t, errOut.String(), "No database selected")

	sess.handleLine(ctx, ".use")
	assert.Contains(t, errOut.String(), "Usage: .use <db_id>")

	sess.handleLine(ctx, ".use world_1")
	assert.Contains(t, errOut.String(), "world_1")
	assert.Nil(t, sess.schema)

	sess.handleLine(ctx, ".bogus")
	assert.Contains(t, errOut.String(), "Unknown command: .bogus")

	quit, _ = sess.handleLine(ctx, ".quit")
	assert.True(t, quit)
}
