package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlgrade/pkg/hardness"
	"github.com/leapstack-labs/sqlgrade/pkg/linking"
	"github.com/leapstack-labs/sqlgrade/pkg/schema"
)

const (
	replPrompt     = "sqlgrade> "
	replContPrompt = "     ...> "
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl [db_id]",
		Short: "Grade queries interactively",
		Long: `Start an interactive session. Each statement ending in ";" is classified
and linked against the current database, selected with .use <db_id>.

Commands:
  .use <db_id>   switch database
  .tables        list tables of the current database
  .help          show this help
  .quit          exit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd, args)
		},
	}
}

// replSession evaluates REPL input against one schema registry.
type replSession struct {
	cc      *CommandContext
	schemas *schema.Registry
	dbID    string
	schema  *schema.Schema
	out     io.Writer
	errOut  io.Writer
	buf     strings.Builder
}

func runREPL(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)
	schemas, err := cc.Schemas()
	if err != nil {
		return err
	}

	sess := &replSession{cc: cc, schemas: schemas, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
	if len(args) == 1 {
		if err := sess.use(cmd.Context(), args[0]); err != nil {
			return err
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     filepath.Join(filepath.Dir(cc.Cfg.StatePath), "repl_history"),
		AutoComplete:    replCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(sess.out, "sqlgrade REPL")
	_, _ = fmt.Fprintln(sess.out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(sess.out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			sess.buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}

		quit, pending := sess.handleLine(cmd.Context(), line)
		if quit {
			return nil
		}
		if pending {
			rl.SetPrompt(replContPrompt)
		} else {
			rl.SetPrompt(replPrompt)
		}
	}
}

// handleLine processes one input line. It reports whether the session should
// end and whether a statement is still being accumulated.
func (s *replSession) handleLine(ctx context.Context, line string) (quit, pending bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, s.buf.Len() > 0
	}

	if s.buf.Len() == 0 && strings.HasPrefix(line, ".") {
		return s.dotCommand(ctx, line), false
	}

	s.buf.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		s.buf.WriteString(" ")
		return false, true
	}

	sql := strings.TrimSuffix(s.buf.String(), ";")
	s.buf.Reset()
	s.evaluate(sql)
	_, _ = fmt.Fprintln(s.out)
	return false, false
}

func (s *replSession) dotCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		_, _ = fmt.Fprintln(s.out, `.use <db_id>   switch database
.tables        list tables of the current database
.help          show this help
.quit          exit`)

	case ".use":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(s.errOut, "Usage: .use <db_id>")
			return false
		}
		if err := s.use(ctx, parts[1]); err != nil {
			_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
			return false
		}
		_, _ = fmt.Fprintf(s.out, "using %s\n", s.dbID)

	case ".tables":
		if s.schema == nil {
			_, _ = fmt.Fprintln(s.errOut, "No database selected (use .use <db_id>)")
			return false
		}
		for _, table := range s.schema.Tables() {
			_, _ = fmt.Fprintf(s.out, "%s (%s)\n", table, strings.Join(s.schema.Columns(table), ", "))
		}

	default:
		_, _ = fmt.Fprintf(s.errOut, "Unknown command: %s (type .help for commands)\n", parts[0])
	}
	return false
}

func (s *replSession) use(ctx context.Context, dbID string) error {
	entry, err := s.schemas.Get(ctx, dbID)
	if err != nil {
		return err
	}
	s.dbID = dbID
	s.schema = entry.Schema
	return nil
}

// evaluate prints the tiers and used schema of sql. Without a database only
// the lite tier is available.
func (s *replSession) evaluate(sql string) {
	out := ClassifyOutput{
		DBID:      s.dbID,
		Query:     sql,
		LiteScore: hardness.LiteScore(sql),
		LiteTier:  hardness.ClassifyLite(sql),
	}
	r := s.cc.Renderer

	if s.schema == nil {
		renderClassify(r, out)
		return
	}

	tier, comps, err := hardness.ClassifySQL(sql, s.schema)
	if err != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
	} else {
		out.Tier = tier
		out.Components = &comps
	}
	renderClassify(r, out)
	renderUsed(r, linking.LinkSchemaWithLogger(sql, s.schema, s.cc.Logger))
}

func replCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(".use"),
		readline.PcItem(".tables"),
		readline.PcItem(".help"),
		readline.PcItem(".quit"),
	)
}
