package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
	"github.com/fabriclift-labs/fabriclift/pkg/tabular"
)

func fixtureModel() *tabular.Model {
	return &tabular.Model{
		Tables: []tabular.Table{
			{
				Name: "Orders",
				Columns: []tabular.Column{
					{Name: "Region", DataType: tabular.TypeString},
					{Name: "Amount", DataType: tabular.TypeDouble},
					{Name: "OrderDate", DataType: tabular.TypeDateTime},
				},
				Measures: []tabular.Measure{
					{Name: "Total Sales", Expression: "SUM('Orders'[Amount])"},
				},
			},
		},
	}
}

func fixtureApp(visuals ...core.Visual) *core.App {
	return &core.App{
		Title: "Sales Analysis",
		Sheets: []core.Sheet{
			{ID: "sheet-1", Title: "Overview", Rank: 0, Visuals: visuals},
		},
	}
}

func TestAssembleBarChart(t *testing.T) {
	app := fixtureApp(core.Visual{
		ID:         "viz-1",
		Type:       "barchart",
		Title:      "Sales by Region",
		Dimensions: []string{"Region"},
		Measures:   []string{"Sum(Amount)"},
		Position:   core.GridPosition{Row: 0, Col: 0, RowSpan: 6, ColSpan: 12},
	})

	rep, err := Assemble(app, fixtureModel())
	require.NoError(t, err)
	require.Len(t, rep.Pages, 1)

	page := rep.Pages[0]
	assert.Equal(t, "ReportSection", page.Name)
	assert.Equal(t, "Overview", page.DisplayName)
	assert.Equal(t, PageWidth, page.Width)
	assert.Equal(t, PageHeight, page.Height)
	require.Len(t, page.Visuals, 1)

	v := page.Visuals[0]
	assert.Equal(t, "clusteredBarChart", v.Type)
	assert.False(t, v.Review)

	require.Len(t, v.Roles["Category"], 1)
	cat := v.Roles["Category"][0]
	assert.Equal(t, ProjectionColumn, cat.Kind)
	assert.Equal(t, "Orders", cat.Table)
	assert.Equal(t, "Orders.Region", cat.QueryRef)

	require.Len(t, v.Roles["Y"], 1)
	y := v.Roles["Y"][0]
	assert.Equal(t, ProjectionAggregation, y.Kind)
	assert.Equal(t, AggSum, y.Function)
	assert.Equal(t, "Sum(Orders.Amount)", y.QueryRef)
}

func TestAssembleGridPositionToPixels(t *testing.T) {
	app := fixtureApp(core.Visual{
		ID:       "viz-1",
		Type:     "table",
		Position: core.GridPosition{Row: 2, Col: 6, RowSpan: 4, ColSpan: 12},
	})

	rep, err := Assemble(app, fixtureModel())
	require.NoError(t, err)

	pos := rep.Pages[0].Visuals[0].Position
	cell := PageWidth / 24
	assert.Equal(t, 6*cell, pos.X)
	assert.Equal(t, 100, pos.Y)
	assert.Equal(t, 12*cell, pos.Width)
	assert.Equal(t, 200, pos.Height)
}

func TestAssembleModelMeasureBinding(t *testing.T) {
	app := fixtureApp(core.Visual{
		ID:       "viz-1",
		Type:     "kpi",
		Measures: []string{"Total Sales"},
	})

	rep, err := Assemble(app, fixtureModel())
	require.NoError(t, err)

	v := rep.Pages[0].Visuals[0]
	assert.Equal(t, "card", v.Type)
	require.Len(t, v.Roles["Fields"], 1)

	p := v.Roles["Fields"][0]
	assert.Equal(t, ProjectionMeasure, p.Kind)
	assert.Equal(t, "Orders", p.Table)
	assert.Equal(t, "Orders.Total Sales", p.QueryRef)
}

func TestAssembleUnknownTypeFallsBack(t *testing.T) {
	app := fixtureApp(core.Visual{
		ID:         "viz-1",
		Type:       "hypercubeviz",
		Dimensions: []string{"Region"},
		Measures:   []string{"Sum(Amount)"},
	})

	rep, err := Assemble(app, fixtureModel())
	require.NoError(t, err)

	v := rep.Pages[0].Visuals[0]
	assert.Equal(t, "tableEx", v.Type)
	assert.True(t, v.Review)
	// The generic table shares one Values role.
	assert.Len(t, v.Roles["Values"], 2)
}

func TestAssembleVisualTypeOverride(t *testing.T) {
	app := fixtureApp(core.Visual{
		ID:         "viz-1",
		Type:       "hypercubeviz",
		Dimensions: []string{"Region"},
		Measures:   []string{"Sum(Amount)"},
	})

	rep, err := Assemble(app, fixtureModel(), WithVisualTypes(map[string]string{
		"HyperCubeViz": "barChart",
	}))
	require.NoError(t, err)

	v := rep.Pages[0].Visuals[0]
	assert.Equal(t, "barChart", v.Type)
	assert.False(t, v.Review)
}

func TestAssembleDanglingBinding(t *testing.T) {
	app := fixtureApp(core.Visual{
		ID:         "viz-1",
		Type:       "barchart",
		Title:      "Broken",
		Dimensions: []string{"DroppedColumn"},
		Measures:   []string{"Sum(Amount)"},
	})

	_, err := Assemble(app, fixtureModel())

	var be *BindingError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "Overview", be.Sheet)
	assert.Equal(t, "Broken", be.Visual)
	assert.Equal(t, "DroppedColumn", be.Field)
}

func TestAssembleMasterDimension(t *testing.T) {
	app := fixtureApp(core.Visual{
		ID:         "viz-1",
		Type:       "piechart",
		Dimensions: []string{"Sales Region"},
		Measures:   []string{"Sum(Amount)"},
	})
	app.Dimensions = []core.Dimension{
		{Name: "Sales Region", Fields: []string{"Region"}},
	}

	rep, err := Assemble(app, fixtureModel())
	require.NoError(t, err)

	p := rep.Pages[0].Visuals[0].Roles["Category"][0]
	assert.Equal(t, "Region", p.Field)
	assert.Equal(t, "Sales Region", p.DisplayName)
}

func TestAssembleTooltipAndDrillPages(t *testing.T) {
	app := &core.App{
		Title: "App",
		Sheets: []core.Sheet{
			{ID: "s1", Title: "Main", Rank: 0, Visuals: []core.Visual{
				{ID: "v1", Type: "barchart",
					Dimensions:  []string{"Region"},
					Measures:    []string{"Sum(Amount)"},
					TooltipRef:  "s2",
					DrillTarget: "s3",
				},
			}},
			{ID: "s2", Title: "Hover Detail", Rank: 1},
			{ID: "s3", Title: "Detail", Rank: 2},
		},
	}

	rep, err := Assemble(app, fixtureModel())
	require.NoError(t, err)
	require.Len(t, rep.Pages, 3)

	tooltipPage := rep.Pages[1]
	assert.Equal(t, PageTypeTooltip, tooltipPage.Type)
	assert.Equal(t, TooltipPageWidth, tooltipPage.Width)
	assert.Equal(t, TooltipPageHeight, tooltipPage.Height)

	drillPage := rep.Pages[2]
	assert.Equal(t, PageTypeDrillthrough, drillPage.Type)

	v := rep.Pages[0].Visuals[0]
	assert.Equal(t, "ReportSection1", v.TooltipPage)
	assert.Equal(t, "ReportSection2", v.DrillTarget)
	assert.Equal(t, "ReportSection", rep.ActivePage)
}

func TestAssembleStructuralCopy(t *testing.T) {
	app := fixtureApp(core.Visual{
		ID:         "viz-1",
		Type:       "table",
		Dimensions: []string{"Region"},
		Measures:   []string{"Sum(Amount)"},
		Sort:       []core.SortField{{Field: "Amount", Descending: true}},
		Filters:    []core.FieldFilter{{Field: "Region", Values: []string{"North"}}},
		ConditionalFormats: []core.ConditionalFormat{
			{Field: "Amount", Operator: "gt", Value: "1000", Color: "#FF0000"},
		},
	})

	rep, err := Assemble(app, fixtureModel())
	require.NoError(t, err)

	v := rep.Pages[0].Visuals[0]
	require.Len(t, v.Sort, 1)
	assert.Equal(t, SortBinding{Table: "Orders", Field: "Amount", Descending: true}, v.Sort[0])
	require.Len(t, v.Filters, 1)
	assert.Equal(t, FilterBinding{Table: "Orders", Field: "Region", Values: []string{"North"}}, v.Filters[0])
	require.Len(t, v.ConditionalFormats, 1)
	assert.Equal(t, "gt", v.ConditionalFormats[0].Operator)
	assert.Equal(t, "Orders", v.ConditionalFormats[0].Table)
}

func TestAssembleSheetOrderByRank(t *testing.T) {
	app := &core.App{
		Title: "App",
		Sheets: []core.Sheet{
			{ID: "b", Title: "Second", Rank: 2},
			{ID: "a", Title: "First", Rank: 1},
		},
	}

	rep, err := Assemble(app, fixtureModel())
	require.NoError(t, err)
	require.Len(t, rep.Pages, 2)
	assert.Equal(t, "First", rep.Pages[0].DisplayName)
	assert.Equal(t, "Second", rep.Pages[1].DisplayName)
}

func TestResolveVisualType(t *testing.T) {
	tests := []struct {
		tag    string
		want   string
		mapped bool
	}{
		{"barchart", "clusteredBarChart", true},
		{"KPI", "card", true},
		{"filterpane", "slicer", true},
		{"combochart", "lineStackedColumnComboChart", true},
		{"mekko", "stackedBarChart", true},
		{"piechart", "pieChart", true},
		{"boxplot", "boxAndWhisker", true},
		{"somecustomext", "tableEx", false},
	}
	for _, tc := range tests {
		got, mapped := ResolveVisualType(tc.tag)
		assert.Equal(t, tc.want, got, tc.tag)
		assert.Equal(t, tc.mapped, mapped, tc.tag)
	}
}
