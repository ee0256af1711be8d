package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlgrade/pkg/parser"
	"github.com/leapstack-labs/sqlgrade/pkg/sqlast"
)

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	var generic bool

	cmd := &cobra.Command{
		Use:   "parse [db_id] <sql>",
		Short: "Parse a query into its structural form",
		Long: `Parse a SELECT statement against a database schema and print the
structural query: select items, table units, conditions and set operations
with every column resolved to its table.

With --ast the query is parsed into the generic syntax tree instead, which
needs no schema.`,
		Example: `  # Structural parse against concert_singer
  sqlgrade parse concert_singer "SELECT name FROM singer WHERE age > 20"

  # Generic syntax tree as YAML
  sqlgrade parse --ast "SELECT a FROM t" -o yaml`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, generic)
		},
	}

	cmd.Flags().BoolVar(&generic, "ast", false, "Print the generic syntax tree (no schema needed)")
	return cmd
}

func runParse(cmd *cobra.Command, args []string, generic bool) error {
	cc := NewCommandContext(cmd)

	if generic {
		stmt, err := sqlast.Parse(args[len(args)-1])
		if err != nil {
			return err
		}
		return cc.Renderer.Encode(stmt)
	}

	if len(args) != 2 {
		return errDBIDRequired
	}
	s, err := cc.Schema(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	q, err := parser.Parse(args[1], s)
	if err != nil {
		return err
	}
	return cc.Renderer.Encode(q)
}
