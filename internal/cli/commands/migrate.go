package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fabriclift-labs/fabriclift/internal/cli/output"
	intconfig "github.com/fabriclift-labs/fabriclift/internal/config"
	"github.com/fabriclift-labs/fabriclift/internal/pipeline"
	"github.com/fabriclift-labs/fabriclift/internal/state"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	var (
		outputDir      string
		extractDir     string
		skipExtraction bool
		workers        int
		watch          bool
		name           string
	)

	cmd := &cobra.Command{
		Use:   "migrate <bundle.qvf|dir>",
		Short: "Convert Qlik applications to Power BI projects",
		Long: `Convert one .qvf bundle, or every bundle in a directory, into PBIP
project folders. Extraction, transpilation, model conversion, and report
assembly run as one pipeline; each application's outcome lands in the
run catalog.`,
		Example: `  # Convert a single application
  fabriclift migrate sales.qvf

  # Convert every bundle in a directory, four at a time
  fabriclift migrate ./apps --workers 4

  # Re-run conversion from the intermediate store, skipping extraction
  fabriclift migrate sales.qvf --skip-extraction

  # Re-convert whenever the bundle changes
  fabriclift migrate sales.qvf --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if outputDir != "" {
				cmdCtx.Cfg.OutputDir = outputDir
			}
			if extractDir != "" {
				cmdCtx.Cfg.ExtractDir = extractDir
			}
			if workers > 0 {
				cmdCtx.Cfg.Workers = workers
			}

			pipeCfg, err := pipelineConfig(cmdCtx, skipExtraction, name)
			if err != nil {
				return err
			}

			source := args[0]
			if err := runMigration(cmd.Context(), cmdCtx, pipeCfg, source); err != nil && !watch {
				return err
			} else if err != nil {
				cmdCtx.Renderer.Warning(err.Error())
			}

			if watch {
				return watchAndRerun(cmd.Context(), cmdCtx, pipeCfg, source)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for the generated PBIP project(s)")
	cmd.Flags().StringVar(&extractDir, "extract-dir", "", "Directory for the intermediate store")
	cmd.Flags().BoolVar(&skipExtraction, "skip-extraction", false, "Resume from the intermediate store instead of re-reading the bundle")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent conversions for directory input")
	cmd.Flags().BoolVar(&watch, "watch", false, "Re-run the conversion whenever the source changes")
	cmd.Flags().StringVar(&name, "name", "", "Project name override (single bundle only)")

	return cmd
}

// pipelineConfig builds a pipeline configuration from the CLI config,
// loading mapping overrides when a file is configured.
func pipelineConfig(cmdCtx *CommandContext, skipExtraction bool, name string) (pipeline.Config, error) {
	cfg := pipeline.Config{
		OutputDir:      cmdCtx.Cfg.OutputDir,
		ExtractDir:     cmdCtx.Cfg.ExtractDir,
		SkipExtraction: skipExtraction,
		Workers:        cmdCtx.Cfg.Workers,
		Name:           name,
		Logger:         cmdCtx.Logger,
	}
	if cmdCtx.Cfg.MappingsFile != "" {
		m, err := intconfig.LoadMappings(cmdCtx.Cfg.MappingsFile)
		if err != nil {
			return pipeline.Config{}, err
		}
		cfg.DaxFunctions = m.DAX
		cfg.ScriptFunctions = m.MQuery
		cfg.VisualTypes = m.Visuals
	}
	return cfg, nil
}

func runMigration(ctx context.Context, cmdCtx *CommandContext, pipeCfg pipeline.Config, source string) error {
	sources, err := collectSources(source)
	if err != nil {
		return err
	}

	p := pipeline.New(pipeCfg)
	var results []*pipeline.Result
	if len(sources) == 1 {
		res, runErr := p.Run(ctx, sources[0])
		if res == nil {
			res = &pipeline.Result{Source: sources[0]}
		}
		res.Err = runErr
		results = []*pipeline.Result{res}
	} else {
		results = p.RunBatch(ctx, sources)
	}
	recordResults(cmdCtx, results)

	if err := renderResults(cmdCtx.Renderer, results); err != nil {
		return err
	}
	if failed := pipeline.Failed(results); failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", failed, len(results))
	}
	return nil
}

// collectSources expands a directory argument into its .qvf bundles.
func collectSources(source string) ([]string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read source %s: %w", source, err)
	}
	if !info.IsDir() {
		return []string{source}, nil
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read source directory %s: %w", source, err)
	}
	var sources []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".qvf") {
			sources = append(sources, filepath.Join(source, e.Name()))
		}
	}
	sort.Strings(sources)
	if len(sources) == 0 {
		return nil, fmt.Errorf("no .qvf bundles found in %s", source)
	}
	return sources, nil
}

// recordResults writes each conversion outcome to the run catalog.
// Catalog failures are logged, never fatal: history must not block
// conversions.
func recordResults(cmdCtx *CommandContext, results []*pipeline.Result) {
	if cmdCtx.Catalog == nil {
		return
	}
	for _, res := range results {
		run, err := cmdCtx.Catalog.CreateRun(res.Source)
		if err != nil {
			cmdCtx.Logger.Warn("failed to record run", "source", res.Source, "error", err)
			continue
		}
		if res.Err != nil {
			if err := cmdCtx.Catalog.FailRun(run.ID, res.Err.Error()); err != nil {
				cmdCtx.Logger.Warn("failed to record run failure", "run", run.ID, "error", err)
			}
			continue
		}

		mapped, unconverted := 0, 0
		if res.Coverage != nil {
			mapped, unconverted = res.Coverage.Counts()
		}
		if err := cmdCtx.Catalog.CompleteRun(run.ID, state.Metrics{
			App:         res.Name,
			OutputDir:   res.OutputDir,
			Tables:      res.Tables,
			Pages:       res.Pages,
			Mapped:      mapped,
			Unconverted: unconverted,
		}); err != nil {
			cmdCtx.Logger.Warn("failed to record run metrics", "run", run.ID, "error", err)
		}

		addRunFindings(cmdCtx, run.ID, res)
	}
}

func addRunFindings(cmdCtx *CommandContext, runID string, res *pipeline.Result) {
	if res.Coverage != nil {
		if err := cmdCtx.Catalog.AddFindings(runID, state.FindingUnconverted, res.Coverage.Unconverted); err != nil {
			cmdCtx.Logger.Warn("failed to record findings", "run", runID, "error", err)
		}
	}

	var keys []string
	for _, sk := range res.SyntheticKeys {
		keys = append(keys, fmt.Sprintf("%s: %s",
			strings.Join(sk.Tables, " + "), strings.Join(sk.Fields, ", ")))
	}
	if err := cmdCtx.Catalog.AddFindings(runID, state.FindingSyntheticKey, keys); err != nil {
		cmdCtx.Logger.Warn("failed to record findings", "run", runID, "error", err)
	}

	if err := cmdCtx.Catalog.AddFindings(runID, state.FindingWarning, res.Warnings); err != nil {
		cmdCtx.Logger.Warn("failed to record findings", "run", runID, "error", err)
	}
}

func renderResults(r *output.Renderer, results []*pipeline.Result) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(results)
	}

	if len(results) == 1 {
		renderSingleResult(r, results[0])
		return nil
	}
	renderBatchTable(r, results)
	return nil
}

func renderSingleResult(r *output.Renderer, res *pipeline.Result) {
	if res.Err != nil {
		r.Warning(fmt.Sprintf("%s: %v", res.Source, res.Err))
		return
	}

	r.Header(1, fmt.Sprintf("Converted %s", res.Name))
	r.StatusLine("Output", res.OutputDir)
	r.StatusLine("Tables", fmt.Sprintf("%d", res.Tables))
	r.StatusLine("Pages", fmt.Sprintf("%d", res.Pages))
	if res.Coverage != nil {
		mapped, unconverted := res.Coverage.Counts()
		r.StatusLine("Coverage", fmt.Sprintf("%.1f%% (%d mapped, %d unconverted)",
			res.Coverage.Rate(), mapped, unconverted))
		for _, fn := range res.Coverage.Unconverted {
			r.Muted("  unconverted: " + fn)
		}
	}
	for _, sk := range res.SyntheticKeys {
		r.Warning(fmt.Sprintf("synthetic key between %s on (%s): model the link table manually",
			strings.Join(sk.Tables, " and "), strings.Join(sk.Fields, ", ")))
	}
	for _, w := range res.Warnings {
		r.Warning(w)
	}
	r.StatusLine("Duration", res.Duration.Round(time.Millisecond).String())
}
