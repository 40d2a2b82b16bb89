package qvf

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
)

// ExtractSummary reports what extraction found, for progress output and
// the run catalog.
type ExtractSummary struct {
	Counts   map[string]int `json:"counts"`
	Warnings []string       `json:"warnings,omitempty"`
}

// Extract parses the bundle's entries into an application model. The
// metadata document is required; every other category is fault-isolated,
// so a malformed entry yields an empty sequence plus a warning instead of
// aborting the extraction.
func Extract(c *Container, logger *slog.Logger) (*core.App, *ExtractSummary, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &extraction{
		c:       c,
		logger:  logger,
		summary: &ExtractSummary{Counts: make(map[string]int)},
	}

	app := &core.App{}
	if err := e.metadata(app); err != nil {
		return nil, nil, err
	}

	e.script(app)
	e.variables(app)
	e.dimensions(app)
	e.measures(app)
	e.sheets(app)
	e.bookmarks(app)
	e.theme(app)

	counts := e.summary.Counts
	counts["variables"] = len(app.Variables)
	counts["dimensions"] = len(app.Dimensions)
	counts["measures"] = len(app.Measures)
	counts["tables"] = len(app.Tables)
	counts["associations"] = len(app.Associations)
	counts["sheets"] = len(app.Sheets)
	counts["bookmarks"] = len(app.Bookmarks)
	visuals := 0
	for _, s := range app.Sheets {
		visuals += len(s.Visuals)
	}
	counts["visuals"] = visuals

	logger.Info("extraction complete",
		"app", app.Title,
		"tables", counts["tables"],
		"sheets", counts["sheets"],
		"warnings", len(e.summary.Warnings))
	return app, e.summary, nil
}

type extraction struct {
	c       *Container
	logger  *slog.Logger
	summary *ExtractSummary
}

func (e *extraction) warnf(category, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	e.summary.Warnings = append(e.summary.Warnings, category+": "+msg)
	e.logger.Warn("extraction warning", "category", category, "detail", msg)
}

// readJSON reads the first matching entry into out. ok is false when no
// candidate entry exists or the document does not parse; both cases warn
// and leave the category empty.
func (e *extraction) readJSON(category string, out any, candidates ...string) bool {
	name, data, ok := e.c.Lookup(candidates...)
	if !ok {
		e.warnf(category, "no entry in bundle")
		return false
	}
	if err := json.Unmarshal([]byte(decodeText(data)), out); err != nil {
		e.warnf(category, "entry %s does not parse: %v", name, err)
		return false
	}
	return true
}

// appMetadata mirrors the metadata document. The root element name is not
// pinned and unknown elements are ignored, by the usual rule for
// loosely-typed source documents.
type appMetadata struct {
	Title        string `xml:"Title"`
	Name         string `xml:"Name"`
	AppID        string `xml:"AppId"`
	Description  string `xml:"Description"`
	Author       string `xml:"Author"`
	CreatedDate  string `xml:"CreatedDate"`
	ModifiedDate string `xml:"ModifiedDate"`
}

func (e *extraction) metadata(app *core.App) error {
	data, err := e.c.Entry("app.xml")
	if err != nil {
		return fmt.Errorf("failed to read application metadata: %w", err)
	}

	var meta appMetadata
	if err := xml.Unmarshal([]byte(decodeText(data)), &meta); err != nil {
		return fmt.Errorf("failed to parse application metadata: %w", err)
	}

	app.Title = meta.Title
	if app.Title == "" {
		app.Title = meta.Name
	}
	if app.Title == "" {
		base := filepath.Base(e.c.Path())
		app.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	app.AppID = meta.AppID
	app.Description = meta.Description
	app.Author = meta.Author
	app.CreatedAt = meta.CreatedDate
	app.ModifiedAt = meta.ModifiedDate
	return nil
}

func (e *extraction) script(app *core.App) {
	_, data, ok := e.c.Lookup("loadscript.txt", "loadscript.qvs", "script.qvs", ".qvs")
	if !ok {
		e.warnf("script", "no load script entry in bundle")
		return
	}
	app.LoadScript = decodeText(data)

	model := AnalyzeScript(app.LoadScript, e.logger)
	app.Tables = model.Tables
	app.Associations = model.Associations
	app.Variables = model.Variables
	e.summary.Warnings = append(e.summary.Warnings, model.Warnings...)
}

type variableDef struct {
	Name       string `json:"qName"`
	Definition string `json:"qDefinition"`
	Comment    string `json:"qComment"`
}

func (e *extraction) variables(app *core.App) {
	var defs []variableDef
	if !e.readJSON("variables", &defs, "variables.json") {
		return
	}

	// Script SET/LET definitions win over the registry: the script
	// reassigns them on every reload.
	byName := make(map[string]bool, len(app.Variables))
	for _, v := range app.Variables {
		byName[v.Name] = true
	}
	for _, d := range defs {
		if d.Name == "" || byName[d.Name] {
			continue
		}
		app.Variables = append(app.Variables, core.Variable{
			Name:       d.Name,
			Definition: d.Definition,
			Comment:    d.Comment,
			IsReserved: IsReservedVariable(d.Name),
		})
	}
}

type dimensionDef struct {
	Info struct {
		ID string `json:"qId"`
	} `json:"qInfo"`
	Dim struct {
		Grouping    string   `json:"qGrouping"`
		FieldDefs   []string `json:"qFieldDefs"`
		FieldLabels []string `json:"qFieldLabels"`
		Title       string   `json:"title"`
	} `json:"qDim"`
	Meta struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"qMetaDef"`
}

func (e *extraction) dimensions(app *core.App) {
	var defs []dimensionDef
	if !e.readJSON("dimensions", &defs, "dimensions.json") {
		return
	}

	for i, d := range defs {
		name := d.Meta.Title
		if name == "" {
			name = d.Dim.Title
		}
		if name == "" && len(d.Dim.FieldDefs) > 0 {
			name = strings.TrimPrefix(d.Dim.FieldDefs[0], "=")
		}
		if name == "" {
			e.warnf("dimensions", "entry %d has no name or field, skipped", i)
			continue
		}
		var label string
		if len(d.Dim.FieldLabels) > 0 {
			label = d.Dim.FieldLabels[0]
		}
		app.Dimensions = append(app.Dimensions, core.Dimension{
			Name:     name,
			Fields:   d.Dim.FieldDefs,
			Label:    label,
			Grouping: d.Dim.Grouping,
		})
	}
}

type measureDef struct {
	Info struct {
		ID string `json:"qId"`
	} `json:"qInfo"`
	Measure struct {
		Def       string `json:"qDef"`
		Label     string `json:"qLabel"`
		NumFormat struct {
			Fmt string `json:"qFmt"`
		} `json:"qNumFormat"`
	} `json:"qMeasure"`
	Meta struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"qMetaDef"`
}

func (e *extraction) measures(app *core.App) {
	var defs []measureDef
	if !e.readJSON("measures", &defs, "measures.json") {
		return
	}

	for i, d := range defs {
		name := d.Meta.Title
		if name == "" {
			name = d.Measure.Label
		}
		if name == "" {
			e.warnf("measures", "entry %d has no title or label, skipped", i)
			continue
		}
		if d.Measure.Def == "" {
			e.warnf("measures", "measure %q has no expression, skipped", name)
			continue
		}
		app.Measures = append(app.Measures, core.Measure{
			Name:         name,
			Expression:   d.Measure.Def,
			Label:        d.Measure.Label,
			FormatString: d.Measure.NumFormat.Fmt,
		})
	}
}

type sheetDef struct {
	Info struct {
		ID string `json:"qId"`
	} `json:"qInfo"`
	Meta struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"qMetaDef"`
	Rank  int       `json:"rank"`
	Cells []cellDef `json:"cells"`
}

type cellDef struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Title      string   `json:"title"`
	Col        int      `json:"col"`
	Row        int      `json:"row"`
	Colspan    int      `json:"colspan"`
	Rowspan    int      `json:"rowspan"`
	Dimensions []string `json:"dimensions"`
	Measures   []string `json:"measures"`
	Sort       []struct {
		Field      string `json:"field"`
		Descending bool   `json:"descending"`
	} `json:"sort"`
	Filters []struct {
		Field  string   `json:"field"`
		Values []string `json:"values"`
	} `json:"filters"`
	ConditionalFormats []struct {
		Field    string `json:"field"`
		Operator string `json:"operator"`
		Value    string `json:"value"`
		Value2   string `json:"value2"`
		Color    string `json:"color"`
	} `json:"conditionalFormats"`
	DrillTarget      string `json:"drillTarget"`
	TooltipRef       string `json:"tooltipRef"`
	NavigationTarget string `json:"navigationTarget"`
}

func (e *extraction) sheets(app *core.App) {
	var defs []sheetDef
	if !e.readJSON("sheets", &defs, "sheets.json") {
		return
	}

	for i, d := range defs {
		sheet := core.Sheet{
			ID:          d.Info.ID,
			Title:       d.Meta.Title,
			Description: d.Meta.Description,
			Rank:        d.Rank,
		}
		if sheet.ID == "" {
			sheet.ID = fmt.Sprintf("sheet-%d", i+1)
		}
		if sheet.Title == "" {
			sheet.Title = fmt.Sprintf("Sheet %d", i+1)
		}
		for j, cell := range d.Cells {
			sheet.Visuals = append(sheet.Visuals, visualFromCell(cell, j))
		}
		app.Sheets = append(app.Sheets, sheet)
	}

	sort.SliceStable(app.Sheets, func(i, j int) bool {
		return app.Sheets[i].Rank < app.Sheets[j].Rank
	})
}

func visualFromCell(cell cellDef, idx int) core.Visual {
	v := core.Visual{
		ID:         cell.Name,
		Type:       cell.Type,
		Title:      cell.Title,
		Dimensions: cell.Dimensions,
		Measures:   cell.Measures,
		Position: core.GridPosition{
			Row:     cell.Row,
			Col:     cell.Col,
			RowSpan: max(cell.Rowspan, 1),
			ColSpan: max(cell.Colspan, 1),
		},
		DrillTarget:      cell.DrillTarget,
		TooltipRef:       cell.TooltipRef,
		NavigationTarget: cell.NavigationTarget,
	}
	if v.ID == "" {
		v.ID = fmt.Sprintf("visual-%d", idx+1)
	}
	for _, s := range cell.Sort {
		v.Sort = append(v.Sort, core.SortField{Field: s.Field, Descending: s.Descending})
	}
	for _, f := range cell.Filters {
		v.Filters = append(v.Filters, core.FieldFilter{Field: f.Field, Values: f.Values})
	}
	for _, cf := range cell.ConditionalFormats {
		v.ConditionalFormats = append(v.ConditionalFormats, core.ConditionalFormat{
			Field:    cf.Field,
			Operator: cf.Operator,
			Value:    cf.Value,
			Value2:   cf.Value2,
			Color:    cf.Color,
		})
	}
	return v
}

type bookmarkDef struct {
	Info struct {
		ID string `json:"qId"`
	} `json:"qInfo"`
	Meta struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"qMetaDef"`
	SheetID    string `json:"sheetId"`
	Selections []struct {
		Field  string   `json:"field"`
		Values []string `json:"values"`
	} `json:"selections"`
}

func (e *extraction) bookmarks(app *core.App) {
	var defs []bookmarkDef
	if !e.readJSON("bookmarks", &defs, "bookmarks.json") {
		return
	}

	for i, d := range defs {
		b := core.Bookmark{
			ID:          d.Info.ID,
			Title:       d.Meta.Title,
			Description: d.Meta.Description,
			SheetID:     d.SheetID,
		}
		if b.ID == "" {
			b.ID = fmt.Sprintf("bookmark-%d", i+1)
		}
		for _, s := range d.Selections {
			b.Selections = append(b.Selections, core.FieldFilter{Field: s.Field, Values: s.Values})
		}
		app.Bookmarks = append(app.Bookmarks, b)
	}
}

type themeDef struct {
	Name        string   `json:"name"`
	DataColors  []string `json:"dataColors"`
	Background  string   `json:"background"`
	Foreground  string   `json:"foreground"`
	TableAccent string   `json:"tableAccent"`
}

func (e *extraction) theme(app *core.App) {
	var def themeDef
	if !e.readJSON("theme", &def, "theme.json") {
		return
	}
	app.Theme = &core.Theme{
		Name:        def.Name,
		DataColors:  def.DataColors,
		Background:  def.Background,
		Foreground:  def.Foreground,
		TableAccent: def.TableAccent,
	}
}
