package commands

import (
	"github.com/spf13/cobra"

	"github.com/fabriclift-labs/fabriclift/internal/cli/output"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded conversion runs",
		Example: `  # Show the last ten runs
  fabriclift runs

  # Show everything, as JSON
  fabriclift runs --limit 0 --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			runs, err := cmdCtx.Catalog.ListRuns(limit)
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(runs)
			}
			if len(runs) == 0 {
				r.Muted("No conversion runs recorded yet.")
				return nil
			}
			renderRunsTable(r, runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum runs to list (0 for all)")
	return cmd
}
