package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlgrade/internal/cli/output"
	"github.com/leapstack-labs/sqlgrade/pkg/linking"
)

// NewLinkCommand creates the link command.
func NewLinkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "link <db_id> <sql>",
		Short: "List the tables and columns a query uses",
		Long: `Resolve every column reference of a query to the table that owns it and
print the used schema. Linking never fails: a query that cannot be parsed
or resolved yields an empty result.`,
		Example: `  sqlgrade link concert_singer "SELECT T1.name FROM singer AS T1 WHERE T1.age > 20"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			s, err := cc.Schema(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			used := linking.LinkSchemaWithLogger(args[1], s, cc.Logger)
			if cc.Renderer.Structured() {
				return cc.Renderer.Encode(used)
			}
			renderUsed(cc.Renderer, used)
			return nil
		},
	}
}

func renderUsed(r *output.Renderer, used linking.UsedSchema) {
	if len(used) == 0 {
		r.Println(r.Styles().Muted.Render("(no schema elements)"))
		return
	}
	rows := make([][]string, 0, len(used))
	for _, table := range used.Tables() {
		cols := strings.Join(used[table], ", ")
		if cols == "" {
			cols = "-"
		}
		rows = append(rows, []string{table, cols})
	}
	r.Table([]string{"table", "columns"}, rows)
}
