package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabriclift-labs/fabriclift/internal/cli/output"
	"github.com/fabriclift-labs/fabriclift/internal/pipeline"
)

// NewExtractCommand creates the extract command.
func NewExtractCommand() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "extract <bundle.qvf>",
		Short: "Extract a Qlik application to the intermediate store",
		Long: `Read a .qvf bundle and write its objects (metadata, variables,
dimensions, measures, tables, sheets, bookmarks, theme, load script) as
JSON files. Conversion can later resume from this store with
migrate --skip-extraction.`,
		Example: `  # Extract next to the bundle
  fabriclift extract sales.qvf

  # Extract into a chosen directory
  fabriclift extract sales.qvf --output-dir work/sales`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContextWithoutCatalog(cmd)
			if outputDir != "" {
				cmdCtx.Cfg.ExtractDir = outputDir
			}

			p := pipeline.New(pipeline.Config{
				ExtractDir: cmdCtx.Cfg.ExtractDir,
				OutputDir:  cmdCtx.Cfg.OutputDir,
				Logger:     cmdCtx.Logger,
			})
			res, err := p.Extract(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(res)
			}

			r.Header(1, fmt.Sprintf("Extracted %s", res.Name))
			r.StatusLine("Store", res.ExtractDir)
			if res.Summary != nil {
				for _, kind := range []string{"tables", "associations", "measures", "dimensions", "variables", "sheets", "visuals", "bookmarks"} {
					if n, ok := res.Summary.Counts[kind]; ok {
						r.StatusLine(kind, fmt.Sprintf("%d", n))
					}
				}
				for _, w := range res.Summary.Warnings {
					r.Warning(w)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for the intermediate store")
	return cmd
}
