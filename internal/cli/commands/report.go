package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabriclift-labs/fabriclift/internal/cli/output"
	"github.com/fabriclift-labs/fabriclift/internal/state"
)

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the conversion-coverage report for a run",
		Long: `Show what a conversion run produced and what needs manual review:
coverage rate, unconverted functions, synthetic keys, and warnings.
Defaults to the most recent run.`,
		Example: `  # Report on the latest run
  fabriclift report

  # Report on a specific run (ids from 'fabriclift runs')
  fabriclift report --run 4f1c2a

  # Machine-readable report
  fabriclift report --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			run, err := resolveRun(cmdCtx.Catalog, runID)
			if err != nil {
				return err
			}
			findings, err := cmdCtx.Catalog.ListFindings(run.ID)
			if err != nil {
				return err
			}
			return renderReport(cmdCtx.Renderer, run, findings)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run id to report on (default: latest)")
	return cmd
}

// resolveRun finds the requested run, accepting the short id prefix the
// runs table prints.
func resolveRun(catalog *state.Catalog, id string) (*state.Run, error) {
	if id == "" {
		run, err := catalog.LatestRun()
		if err != nil {
			return nil, err
		}
		if run == nil {
			return nil, fmt.Errorf("no conversion runs recorded yet, run 'fabriclift migrate' first")
		}
		return run, nil
	}

	if run, err := catalog.GetRun(id); err == nil {
		return run, nil
	}
	runs, err := catalog.ListRuns(0)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if len(id) >= 4 && len(runs[i].ID) >= len(id) && runs[i].ID[:len(id)] == id {
			return &runs[i], nil
		}
	}
	return nil, fmt.Errorf("run %s not found", id)
}

type reportOutput struct {
	Run           *state.Run `json:"run"`
	Unconverted   []string   `json:"unconverted,omitempty"`
	SyntheticKeys []string   `json:"synthetic_keys,omitempty"`
	Warnings      []string   `json:"warnings,omitempty"`
}

func renderReport(r *output.Renderer, run *state.Run, findings []state.Finding) error {
	out := reportOutput{Run: run}
	for _, f := range findings {
		switch f.Kind {
		case state.FindingUnconverted:
			out.Unconverted = append(out.Unconverted, f.Detail)
		case state.FindingSyntheticKey:
			out.SyntheticKeys = append(out.SyntheticKeys, f.Detail)
		default:
			out.Warnings = append(out.Warnings, f.Detail)
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	title := run.App
	if title == "" {
		title = run.Source
	}
	r.Header(1, fmt.Sprintf("Conversion report: %s", title))
	r.StatusLine("Run", run.ID)
	r.StatusLine("Status", string(run.Status))
	r.StatusLine("Source", run.Source)
	if run.Error != "" {
		r.Warning(run.Error)
		return nil
	}
	r.StatusLine("Output", run.OutputDir)
	r.StatusLine("Tables", fmt.Sprintf("%d", run.Tables))
	r.StatusLine("Pages", fmt.Sprintf("%d", run.Pages))
	r.StatusLine("Coverage", fmt.Sprintf("%.1f%% (%d mapped, %d unconverted)",
		run.Rate(), run.Mapped, run.Unconverted))

	if len(out.Unconverted) > 0 {
		r.Header(2, "Unconverted functions")
		for _, fn := range out.Unconverted {
			r.Println("  - " + fn)
		}
	}
	if len(out.SyntheticKeys) > 0 {
		r.Header(2, "Synthetic keys")
		r.Muted("Multi-field joins have no direct equivalent; model each as a link table.")
		for _, sk := range out.SyntheticKeys {
			r.Println("  - " + sk)
		}
	}
	if len(out.Warnings) > 0 {
		r.Header(2, "Warnings")
		for _, w := range out.Warnings {
			r.Println("  - " + w)
		}
	}
	return nil
}
