package report

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
	"github.com/fabriclift-labs/fabriclift/pkg/tabular"
)

// Option configures assembly.
type Option func(*assembler)

// WithName overrides the report name; the default is the application
// title.
func WithName(name string) Option {
	return func(a *assembler) { a.name = name }
}

// WithVisualTypes adds source-tag to target-type mappings consulted
// before the built-in table. Keys are matched case-insensitively.
func WithVisualTypes(types map[string]string) Option {
	return func(a *assembler) {
		for tag, t := range types {
			a.typeOverrides[strings.ToLower(tag)] = t
		}
	}
}

// Assemble builds the report definition from an extracted application and
// its converted model. It fails with a *BindingError on the first field
// reference the model cannot satisfy.
func Assemble(app *core.App, model *tabular.Model, opts ...Option) (*Report, error) {
	a := &assembler{
		app:           app,
		name:          app.Title,
		colOwner:      map[string]string{},
		msrOwner:      map[string]string{},
		dimField:      map[string]string{},
		pageOf:        map[string]string{},
		typeOverrides: map[string]string{},
	}
	for _, o := range opts {
		o(a)
	}

	for _, t := range model.Tables {
		for _, c := range t.Columns {
			key := strings.ToLower(c.Name)
			if _, ok := a.colOwner[key]; !ok {
				a.colOwner[key] = t.Name
			}
		}
		for _, m := range t.Measures {
			key := strings.ToLower(m.Name)
			if _, ok := a.msrOwner[key]; !ok {
				a.msrOwner[key] = t.Name
			}
		}
	}
	for _, d := range app.Dimensions {
		if len(d.Fields) > 0 {
			a.dimField[strings.ToLower(d.Name)] = d.Fields[0]
		}
	}

	return a.assemble()
}

type assembler struct {
	app  *core.App
	name string

	// colOwner and msrOwner map lowercased names to their model table.
	colOwner map[string]string
	msrOwner map[string]string
	// dimField maps lowercased master-dimension names to their first field.
	dimField map[string]string
	// pageOf maps sheet ids and titles to section names.
	pageOf map[string]string
	// typeOverrides maps lowercased source tags to target visual types.
	typeOverrides map[string]string
}

func (a *assembler) assemble() (*Report, error) {
	sheets := append([]core.Sheet(nil), a.app.Sheets...)
	sort.SliceStable(sheets, func(i, j int) bool { return sheets[i].Rank < sheets[j].Rank })

	rep := &Report{Name: a.name}
	if a.app.Theme != nil {
		rep.ThemeColors = a.app.Theme.DataColors
	}

	// Sheets referenced as tooltips or drill targets become special pages.
	tooltip, drill := referencedSheets(sheets)

	for i, s := range sheets {
		name := sectionName(i)
		if s.ID != "" {
			a.pageOf[strings.ToLower(s.ID)] = name
		}
		if s.Title != "" {
			a.pageOf[strings.ToLower(s.Title)] = name
		}

		page := Page{
			Name:        name,
			DisplayName: s.Title,
			Ordinal:     i,
			Width:       PageWidth,
			Height:      PageHeight,
		}
		switch {
		case tooltip[sheetKey(s)]:
			page.Type = PageTypeTooltip
			page.Width, page.Height = TooltipPageWidth, TooltipPageHeight
		case drill[sheetKey(s)]:
			page.Type = PageTypeDrillthrough
		}
		rep.Pages = append(rep.Pages, page)
	}

	for i := range rep.Pages {
		s := sheets[i]
		for j, v := range s.Visuals {
			visual, err := a.buildVisual(s, v, j, &rep.Pages[i])
			if err != nil {
				return nil, err
			}
			rep.Pages[i].Visuals = append(rep.Pages[i].Visuals, visual)
		}
	}

	for _, p := range rep.Pages {
		if p.Type == PageTypeStandard {
			rep.ActivePage = p.Name
			break
		}
	}
	return rep, nil
}

func sectionName(ordinal int) string {
	if ordinal == 0 {
		return "ReportSection"
	}
	return fmt.Sprintf("ReportSection%d", ordinal)
}

func sheetKey(s core.Sheet) string {
	if s.ID != "" {
		return strings.ToLower(s.ID)
	}
	return strings.ToLower(s.Title)
}

// referencedSheets collects the sheets other visuals point at as tooltips
// or drill-through targets.
func referencedSheets(sheets []core.Sheet) (tooltip, drill map[string]bool) {
	tooltip, drill = map[string]bool{}, map[string]bool{}
	byRef := map[string]string{}
	for _, s := range sheets {
		byRef[strings.ToLower(s.ID)] = sheetKey(s)
		byRef[strings.ToLower(s.Title)] = sheetKey(s)
	}
	for _, s := range sheets {
		for _, v := range s.Visuals {
			if key, ok := byRef[strings.ToLower(v.TooltipRef)]; ok && v.TooltipRef != "" {
				tooltip[key] = true
			}
			if key, ok := byRef[strings.ToLower(v.DrillTarget)]; ok && v.DrillTarget != "" {
				drill[key] = true
			}
		}
	}
	return tooltip, drill
}

func (a *assembler) buildVisual(s core.Sheet, v core.Visual, index int, page *Page) (Visual, error) {
	pbiType, mapped := ResolveVisualType(v.Type)
	if override, ok := a.typeOverrides[strings.ToLower(strings.TrimSpace(v.Type))]; ok {
		pbiType, mapped = override, true
	}

	out := Visual{
		ID:         v.ID,
		Type:       pbiType,
		SourceType: v.Type,
		Review:     !mapped,
		Title:      v.Title,
		Position:   position(v.Position, index, page.Width),
	}
	if out.ID == "" {
		out.ID = fmt.Sprintf("visual-%d-%d", page.Ordinal, index)
	}

	roles, err := a.bindRoles(s, v, pbiType)
	if err != nil {
		return Visual{}, err
	}
	out.Roles = roles

	for _, sf := range v.Sort {
		table, err := a.resolveField(s, v, sf.Field)
		if err != nil {
			return Visual{}, err
		}
		out.Sort = append(out.Sort, SortBinding{Table: table, Field: sf.Field, Descending: sf.Descending})
	}
	for _, f := range v.Filters {
		table, err := a.resolveField(s, v, f.Field)
		if err != nil {
			return Visual{}, err
		}
		out.Filters = append(out.Filters, FilterBinding{Table: table, Field: f.Field, Values: f.Values})
	}
	for _, cf := range v.ConditionalFormats {
		table, err := a.resolveField(s, v, cf.Field)
		if err != nil {
			return Visual{}, err
		}
		out.ConditionalFormats = append(out.ConditionalFormats, ConditionalFormat{
			Table: table, Field: cf.Field,
			Operator: cf.Operator, Value: cf.Value, Value2: cf.Value2, Color: cf.Color,
		})
	}

	out.DrillTarget = a.pageRef(v.DrillTarget)
	out.TooltipPage = a.pageRef(v.TooltipRef)
	out.NavigationTarget = a.pageRef(v.NavigationTarget)
	return out, nil
}

func (a *assembler) pageRef(ref string) string {
	if ref == "" {
		return ""
	}
	return a.pageOf[strings.ToLower(ref)]
}

// position converts a source grid cell to pixels, tiling visuals without
// authored positions two per row.
func position(g core.GridPosition, index, pageWidth int) Position {
	pos := Position{Z: 1000 + index, TabOrder: 1000 + index}
	if g.ColSpan > 0 || g.RowSpan > 0 {
		cell := pageWidth / gridColumns
		pos.X = g.Col * cell
		pos.Y = g.Row * gridRowHeight
		pos.Width = g.ColSpan * cell
		pos.Height = g.RowSpan * gridRowHeight
		return pos
	}
	const margin, tileHeight, perRow = 10, 340, 2
	w := (pageWidth - margin*(perRow+1)) / perRow
	pos.X = margin + (index%perRow)*(w+margin)
	pos.Y = margin + (index/perRow)*(tileHeight+margin)
	pos.Width = w
	pos.Height = tileHeight
	return pos
}

func (a *assembler) bindRoles(s core.Sheet, v core.Visual, pbiType string) (map[string][]Projection, error) {
	roles, ok := visualRoles[pbiType]
	if !ok || (len(roles.dims) == 0 && len(roles.measures) == 0) {
		return nil, nil
	}

	var dims []Projection
	for _, d := range v.Dimensions {
		p, err := a.bindDimension(s, v, d)
		if err != nil {
			return nil, err
		}
		dims = append(dims, p)
	}
	var msrs []Projection
	for _, m := range v.Measures {
		p, err := a.bindMeasure(s, v, m)
		if err != nil {
			return nil, err
		}
		msrs = append(msrs, p)
	}
	if len(dims) == 0 && len(msrs) == 0 {
		return nil, nil
	}

	state := map[string][]Projection{}

	// The generic table shares one Values role across everything.
	if pbiType == fallbackVisualType {
		state["Values"] = append(dims, msrs...)
		return state, nil
	}

	for i, p := range dims {
		if len(roles.dims) == 0 {
			break
		}
		role := roles.dims[min(i, len(roles.dims)-1)]
		state[role] = append(state[role], p)
	}
	for i, p := range msrs {
		if len(roles.measures) == 0 {
			break
		}
		role := roles.measures[min(i, len(roles.measures)-1)]
		state[role] = append(state[role], p)
	}
	if len(state) == 0 {
		return nil, nil
	}
	return state, nil
}

// bindDimension resolves a dimension reference: a master dimension name
// first, then a direct column reference.
func (a *assembler) bindDimension(s core.Sheet, v core.Visual, ref string) (Projection, error) {
	field := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ref), "="))
	display := ""
	if f, ok := a.dimField[strings.ToLower(field)]; ok {
		display = field
		field = f
	}
	table, err := a.resolveField(s, v, field)
	if err != nil {
		return Projection{}, err
	}
	return Projection{
		Kind:        ProjectionColumn,
		Table:       table,
		Field:       field,
		QueryRef:    table + "." + field,
		NativeRef:   field,
		DisplayName: display,
		Active:      true,
	}, nil
}

var aggExprRe = regexp.MustCompile(`^(\w+)\s*\(\s*\[?([\w .]+?)\]?\s*\)$`)

// bindMeasure resolves a measure reference: a model measure by name, an
// aggregation expression over a column, or a bare column that defaults to
// a sum projection.
func (a *assembler) bindMeasure(s core.Sheet, v core.Visual, ref string) (Projection, error) {
	name := strings.TrimSpace(ref)
	if table, ok := a.msrOwner[strings.ToLower(name)]; ok {
		return Projection{
			Kind:        ProjectionMeasure,
			Table:       table,
			Field:       name,
			QueryRef:    table + "." + name,
			NativeRef:   name,
			DisplayName: name,
		}, nil
	}

	funcName, column := "sum", strings.TrimPrefix(strings.TrimSpace(name), "=")
	if m := aggExprRe.FindStringSubmatch(column); m != nil {
		if _, known := aggFunctions[strings.ToLower(m[1])]; known {
			funcName = strings.ToLower(m[1])
		}
		column = m[2]
	}
	table, err := a.resolveField(s, v, column)
	if err != nil {
		return Projection{}, err
	}
	aggName := strings.ToUpper(funcName[:1]) + funcName[1:]
	return Projection{
		Kind:        ProjectionAggregation,
		Table:       table,
		Field:       column,
		Function:    aggFunctions[funcName],
		QueryRef:    fmt.Sprintf("%s(%s.%s)", aggName, table, column),
		NativeRef:   column,
		DisplayName: name,
	}, nil
}

// resolveField returns the model table owning field, or a *BindingError.
func (a *assembler) resolveField(s core.Sheet, v core.Visual, field string) (string, error) {
	field = strings.TrimSpace(field)
	if table, ok := a.colOwner[strings.ToLower(field)]; ok {
		return table, nil
	}
	if table, ok := a.msrOwner[strings.ToLower(field)]; ok {
		return table, nil
	}
	return "", &BindingError{Sheet: s.Title, Visual: visualLabel(v), Field: field}
}

func visualLabel(v core.Visual) string {
	if v.Title != "" {
		return v.Title
	}
	return v.ID
}
