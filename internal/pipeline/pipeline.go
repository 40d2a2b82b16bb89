// Package pipeline orchestrates a full conversion: bundle extraction
// into the intermediate store, the expression and script transpilers,
// the data model and connector generators, report assembly, and the
// project writer. Extraction strictly precedes conversion; the
// conversion stages run concurrently over the read-only application
// model and join before assembly.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fabriclift-labs/fabriclift/internal/pbip"
	"github.com/fabriclift-labs/fabriclift/internal/store"
	"github.com/fabriclift-labs/fabriclift/pkg/core"
	"github.com/fabriclift-labs/fabriclift/pkg/dax"
	"github.com/fabriclift-labs/fabriclift/pkg/mquery"
	"github.com/fabriclift-labs/fabriclift/pkg/mquery/connectors"
	"github.com/fabriclift-labs/fabriclift/pkg/qvf"
	"github.com/fabriclift-labs/fabriclift/pkg/report"
	"github.com/fabriclift-labs/fabriclift/pkg/tabular"
)

// defaultWorkers bounds batch parallelism when the config does not.
const defaultWorkers = 4

// Config carries everything a pipeline instance needs. The zero value
// derives output locations from the source path.
type Config struct {
	// OutputDir is the project target directory. Empty derives
	// "<source>-pbip" next to the bundle.
	OutputDir string

	// ExtractDir is the intermediate store directory. Empty derives
	// "<output>.extracted" beside the project.
	ExtractDir string

	// SkipExtraction resumes from an existing intermediate store
	// instead of reading the bundle.
	SkipExtraction bool

	// Workers bounds batch parallelism.
	Workers int

	// Name overrides the project name; the default is the application
	// title.
	Name string

	// DaxFunctions and ScriptFunctions are extra function mappings from
	// the overrides file; VisualTypes overrides visual type resolution.
	DaxFunctions    map[string]string
	ScriptFunctions map[string]string
	VisualTypes     map[string]string

	Logger *slog.Logger
}

// Result summarizes one application's conversion.
type Result struct {
	Source     string               `json:"source"`
	Name       string               `json:"name"`
	OutputDir  string               `json:"output_dir,omitempty"`
	ExtractDir string               `json:"extract_dir,omitempty"`
	Duration   time.Duration        `json:"duration"`
	Summary    *qvf.ExtractSummary  `json:"summary,omitempty"`
	Coverage   *core.ConversionReport `json:"coverage,omitempty"`
	Warnings   []string             `json:"warnings,omitempty"`
	// SyntheticKeys are composite-key findings that need modeling
	// review in the target.
	SyntheticKeys []tabular.SyntheticKey `json:"synthetic_keys,omitempty"`
	Tables        int                    `json:"tables"`
	Pages         int                    `json:"pages"`
	Err           error                  `json:"-"`
}

// Pipeline converts one application per Run call. Instances are cheap;
// the batch runner builds one per app so nothing mutable is shared.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New builds a pipeline from cfg.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{cfg: cfg, logger: logger}
}

// Run converts the bundle at source end to end and writes the project
// tree. The returned Result is also populated on extraction-only
// failures so callers can report partial progress.
func (p *Pipeline) Run(ctx context.Context, source string) (*Result, error) {
	start := time.Now()
	outDir := p.outputDirFor(source)
	extractDir := p.extractDirFor(outDir)
	res := &Result{Source: source, OutputDir: outDir, ExtractDir: extractDir}

	var (
		app *core.App
		err error
	)
	if p.cfg.SkipExtraction {
		app, err = store.Load(extractDir, p.logger)
		if err != nil {
			return res, fmt.Errorf("failed to resume from extracted state: %w", err)
		}
	} else {
		app, res.Summary, err = p.extract(source, extractDir)
		if err != nil {
			return res, err
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	res.Name = p.cfg.Name
	if res.Name == "" {
		res.Name = app.Title
	}
	if res.Name == "" {
		res.Name = displayName(appBase(source))
	}

	var (
		model        *tabular.Model
		daxCoverage  *core.ConversionReport
		mScript      string
		mCoverage    *core.ConversionReport
		queries      map[string]string
		shared       map[string]string
		connWarnings []string
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		model, daxCoverage, err = p.convertModel(app)
		return err
	})
	g.Go(func() error {
		conv := mquery.NewConverter(mquery.WithFunctions(p.cfg.ScriptFunctions))
		mScript, mCoverage = conv.ConvertScript(app.LoadScript)
		return nil
	})
	g.Go(func() error {
		queries, shared, connWarnings = p.generateQueries(app)
		return nil
	})
	if err := g.Wait(); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	coverage := core.NewConversionReport()
	coverage.Merge(daxCoverage)
	coverage.Merge(mCoverage)
	res.Coverage = coverage
	res.Warnings = append(res.Warnings, model.Warnings...)
	res.Warnings = append(res.Warnings, connWarnings...)
	res.SyntheticKeys = model.SyntheticKeys
	res.Tables = len(model.Tables)

	assembled, err := report.Assemble(app, model,
		report.WithName(res.Name), report.WithVisualTypes(p.cfg.VisualTypes))
	if err != nil {
		return res, err
	}
	res.Pages = len(assembled.Pages)

	// The converted script goes next to the intermediate store for
	// manual review; the per-table partitions come from the connector
	// catalog.
	if mScript != "" {
		scriptPath := filepath.Join(extractDir, "loadscript.m")
		if err := os.WriteFile(scriptPath, []byte(mScript), 0600); err != nil {
			return res, fmt.Errorf("failed to write converted script: %w", err)
		}
	}

	proj := &pbip.Project{
		Name:        res.Name,
		Model:       model,
		Queries:     queries,
		Expressions: shared,
		Report:      assembled,
		Theme:       app.Theme,
		Bookmarks:   app.Bookmarks,
	}
	if err := pbip.Write(outDir, proj, p.logger); err != nil {
		return res, err
	}

	res.Duration = time.Since(start)
	mapped, unconverted := coverage.Counts()
	p.logger.Info("conversion complete",
		"app", res.Name,
		"output", outDir,
		"tables", res.Tables,
		"pages", res.Pages,
		"mapped", mapped,
		"unconverted", unconverted,
		"duration", res.Duration,
	)
	return res, nil
}

// Extract runs stages one through three only: open the bundle, build
// the application model, persist the intermediate store.
func (p *Pipeline) Extract(ctx context.Context, source string) (*Result, error) {
	start := time.Now()
	extractDir := p.cfg.ExtractDir
	if extractDir == "" {
		extractDir = p.extractDirFor(p.outputDirFor(source))
	}
	res := &Result{Source: source, ExtractDir: extractDir}

	app, summary, err := p.extract(source, extractDir)
	if err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.Summary = summary
	res.Name = app.Title
	res.Tables = len(app.Tables)
	res.Duration = time.Since(start)
	return res, nil
}

// RunBatch converts every source with an independent pipeline per app,
// at most Workers at a time. A failed app records its error in the
// matching Result; the batch always continues.
func (p *Pipeline) RunBatch(ctx context.Context, sources []string) []*Result {
	results := make([]*Result, len(sources))
	workers := p.cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			cfg := p.cfg
			base := cfg.OutputDir
			if base == "" {
				base = filepath.Dir(src)
			}
			cfg.OutputDir = filepath.Join(base, appBase(src))
			if cfg.ExtractDir != "" {
				cfg.ExtractDir = filepath.Join(cfg.ExtractDir, appBase(src))
			}

			res, err := New(cfg).Run(ctx, src)
			if res == nil {
				res = &Result{Source: src}
			}
			res.Err = err
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Failed counts batch results that ended in an error.
func Failed(results []*Result) int {
	n := 0
	for _, r := range results {
		if r != nil && r.Err != nil {
			n++
		}
	}
	return n
}

func (p *Pipeline) extract(source, dir string) (*core.App, *qvf.ExtractSummary, error) {
	c, err := qvf.Open(source)
	if err != nil {
		return nil, nil, err
	}
	defer c.Close()

	app, summary, err := qvf.Extract(c, p.logger)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Save(dir, app, p.logger); err != nil {
		return nil, nil, err
	}
	return app, summary, nil
}

// convertModel runs the expression transpiler over the master measures
// and converts the associative model. The relationship skeleton is
// computed first so cross-table references in measures know which pairs
// are many-to-many.
func (p *Pipeline) convertModel(app *core.App) (*tabular.Model, *core.ConversionReport, error) {
	skeleton, err := tabular.Convert(app.Tables, app.Associations)
	if err != nil {
		return nil, nil, err
	}
	rels := make([]dax.Relation, 0, len(skeleton.Relationships))
	for _, r := range skeleton.Relationships {
		rels = append(rels, dax.Relation{
			FromTable:  r.FromTable,
			ToTable:    r.ToTable,
			ManyToMany: r.Cardinality == tabular.ManyToMany,
		})
	}

	vars := make(map[string]string, len(app.Variables))
	for _, v := range app.Variables {
		if !v.IsReserved {
			vars[v.Name] = v.Definition
		}
	}
	colTables := make(map[string]string)
	for _, t := range app.Tables {
		for _, c := range t.Columns {
			if _, ok := colTables[c.Name]; !ok {
				colTables[c.Name] = t.Name
			}
		}
	}

	tr := dax.NewTranspiler(
		dax.WithVariables(vars),
		dax.WithColumnTables(colTables),
		dax.WithFunctions(p.cfg.DaxFunctions),
		dax.WithRelations(rels),
	)
	measures := make([]tabular.Measure, 0, len(app.Measures))
	for _, m := range app.Measures {
		measures = append(measures, tabular.Measure{
			Name:         m.Name,
			Expression:   tr.Convert(m.Expression),
			FormatString: dax.ConvertFormat(m.FormatString),
			Description:  m.Label,
		})
	}

	model, err := tabular.Convert(app.Tables, app.Associations, tabular.WithMeasures(measures))
	if err != nil {
		return nil, nil, err
	}
	return model, tr.Report(), nil
}

// generateQueries builds one import expression per physical source.
// Tables sharing a location get reference partitions pointing at a
// shared expression; everything else gets its expression inline.
func (p *Pipeline) generateQueries(app *core.App) (queries, shared map[string]string, warnings []string) {
	catalog := connectors.NewCatalog()
	nameOf := make(map[string]string, len(app.Tables))
	claims := make(map[string]int)
	for _, t := range app.Tables {
		name, _, _ := catalog.Add(t)
		nameOf[t.Name] = name
		claims[name]++
	}

	exprs := make(map[string]string)
	for _, e := range catalog.Expressions() {
		exprs[e.Name] = e.Source
	}

	queries = make(map[string]string, len(app.Tables))
	shared = make(map[string]string)
	for _, t := range app.Tables {
		name := nameOf[t.Name]
		if claims[name] > 1 {
			shared[name] = exprs[name]
			queries[t.Name] = "let\n    Source = " + expressionRef(name) + "\nin\n    Source"
			continue
		}
		queries[t.Name] = exprs[name]
	}
	return queries, shared, catalog.Warnings()
}

// expressionRef renders an M reference to a shared expression name.
func expressionRef(name string) string {
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '.' {
			continue
		}
		return `#"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return name
}

func (p *Pipeline) outputDirFor(source string) string {
	if p.cfg.OutputDir != "" {
		return p.cfg.OutputDir
	}
	return filepath.Join(filepath.Dir(source), appBase(source)+"-pbip")
}

func (p *Pipeline) extractDirFor(outDir string) string {
	if p.cfg.ExtractDir != "" {
		return p.cfg.ExtractDir
	}
	return outDir + ".extracted"
}

func appBase(source string) string {
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var projectTitleCaser = cases.Title(language.English, cases.NoLower)

// displayName turns a file base like "sales_demo" into a presentable
// project name for applications without a title.
func displayName(base string) string {
	name := strings.NewReplacer("_", " ", "-", " ").Replace(base)
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return base
	}
	return projectTitleCaser.String(name)
}
