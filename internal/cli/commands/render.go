package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/fabriclift-labs/fabriclift/internal/cli/output"
	"github.com/fabriclift-labs/fabriclift/internal/pipeline"
	"github.com/fabriclift-labs/fabriclift/internal/state"
)

// renderBatchTable prints a per-app status table for a batch conversion.
func renderBatchTable(r *output.Renderer, results []*pipeline.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Source", "Status", "Tables", "Pages", "Coverage", "Duration"})

	converted := 0
	for _, res := range results {
		if res.Err != nil {
			t.AppendRow(table.Row{res.Source, "failed", "-", "-", "-", "-"})
			continue
		}
		converted++
		coverage := "-"
		if res.Coverage != nil {
			coverage = fmt.Sprintf("%.1f%%", res.Coverage.Rate())
		}
		t.AppendRow(table.Row{
			res.Source, "converted", res.Tables, res.Pages, coverage,
			res.Duration.Round(time.Millisecond),
		})
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	r.Printf("%d of %d converted\n", converted, len(results))

	for _, res := range results {
		if res.Err != nil {
			r.Warning(fmt.Sprintf("%s: %v", res.Source, res.Err))
		}
	}
}

// renderRunsTable prints catalog entries, newest first.
func renderRunsTable(r *output.Renderer, runs []state.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "App", "Status", "Started", "Tables", "Pages", "Coverage"})

	for _, run := range runs {
		app := run.App
		if app == "" {
			app = run.Source
		}
		coverage := "-"
		if run.Status == state.RunStatusCompleted {
			coverage = fmt.Sprintf("%.1f%%", run.Rate())
		}
		t.AppendRow(table.Row{
			shortRunID(run.ID), app, string(run.Status),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Tables, run.Pages, coverage,
		})
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
