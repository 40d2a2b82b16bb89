package pbip

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabriclift-labs/fabriclift/internal/testutil"
	"github.com/fabriclift-labs/fabriclift/pkg/core"
	"github.com/fabriclift-labs/fabriclift/pkg/report"
	"github.com/fabriclift-labs/fabriclift/pkg/tabular"
)

func sampleProject() *Project {
	return &Project{
		Name: "Sales Dashboard",
		Model: &tabular.Model{
			Tables: []tabular.Table{
				{
					Name: "Orders",
					Columns: []tabular.Column{
						{Name: "OrderID", SourceColumn: "OrderID", DataType: tabular.TypeInt64, FormatString: "0", SummarizeBy: "none", IsKey: true},
						{Name: "CustomerID", SourceColumn: "CustomerID", DataType: tabular.TypeString, SummarizeBy: "none"},
						{Name: "Amount", SourceColumn: "Amount", DataType: tabular.TypeDouble, FormatString: "#,0.00", SummarizeBy: "sum"},
					},
					Measures: []tabular.Measure{
						{Name: "Total Sales", Expression: "SUM('Orders'[Amount])", FormatString: "#,0.00"},
					},
				},
				{
					Name: "Customers",
					Columns: []tabular.Column{
						{Name: "CustomerID", SourceColumn: "CustomerID", DataType: tabular.TypeString, SummarizeBy: "none"},
						{Name: "Name", SourceColumn: "Name", DataType: tabular.TypeString, SummarizeBy: "none"},
					},
				},
			},
			Relationships: []tabular.Relationship{
				{
					Name:        "Orders_Customers",
					FromTable:   "Orders",
					FromColumn:  "CustomerID",
					ToTable:     "Customers",
					ToColumn:    "CustomerID",
					Cardinality: tabular.ManyToOne,
					CrossFilter: tabular.FilterSingle,
					Active:      true,
				},
			},
		},
		Queries: map[string]string{
			"Orders":    "let\n    Source = Csv.Document(File.Contents(\"orders.csv\"))\nin\n    Source",
			"Customers": "let\n    Source = Csv.Document(File.Contents(\"customers.csv\"))\nin\n    Source",
		},
		Report: &report.Report{
			Name:       "Sales Dashboard",
			ActivePage: "ReportSection",
			Pages: []report.Page{
				{
					Name:        "ReportSection",
					DisplayName: "Overview",
					Width:       report.PageWidth,
					Height:      report.PageHeight,
					Visuals: []report.Visual{
						{
							ID:   "viz-1",
							Type: "barChart",
							Position: report.Position{
								X: 10, Y: 10, Z: 1000, Width: 620, Height: 340, TabOrder: 1000,
							},
							Roles: map[string][]report.Projection{
								"Category": {
									{Kind: report.ProjectionColumn, Table: "Customers", Field: "Name", QueryRef: "Customers.Name", NativeRef: "Name", Active: true},
								},
								"Y": {
									{Kind: report.ProjectionAggregation, Table: "Orders", Field: "Amount", Function: report.AggSum, QueryRef: "Sum(Orders.Amount)", NativeRef: "Amount"},
								},
							},
						},
					},
				},
			},
		},
		Theme: &core.Theme{
			Name:       "Corporate",
			DataColors: []string{"#118DFF", "#12239E"},
		},
		Bookmarks: []core.Bookmark{
			{ID: "bm-1", Title: "West Region"},
		},
	}
}

func TestWriteLayout(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, Write(out, sampleProject(), testutil.NewTestLogger(t)))

	expected := []string{
		".gitignore",
		"Sales Dashboard.pbip",
		"Sales Dashboard.SemanticModel/.platform",
		"Sales Dashboard.SemanticModel/definition.pbism",
		"Sales Dashboard.SemanticModel/diagramLayout.json",
		"Sales Dashboard.SemanticModel/definition/database.tmdl",
		"Sales Dashboard.SemanticModel/definition/model.tmdl",
		"Sales Dashboard.SemanticModel/definition/relationships.tmdl",
		"Sales Dashboard.SemanticModel/definition/tables/Orders.tmdl",
		"Sales Dashboard.SemanticModel/definition/tables/Customers.tmdl",
		"Sales Dashboard.SemanticModel/definition/cultures/en-US.tmdl",
		"Sales Dashboard.Report/.platform",
		"Sales Dashboard.Report/definition.pbir",
		"Sales Dashboard.Report/definition/version.json",
		"Sales Dashboard.Report/definition/report.json",
		"Sales Dashboard.Report/definition/pages/pages.json",
		"Sales Dashboard.Report/definition/pages/ReportSection/page.json",
	}
	for _, rel := range expected {
		_, err := os.Stat(filepath.Join(out, rel))
		assert.NoError(t, err, rel)
	}

	// Exactly one visual directory under the page.
	entries, err := os.ReadDir(filepath.Join(out, "Sales Dashboard.Report/definition/pages/ReportSection/visuals"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Name(), 20)
}

func TestTableTMDL(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, Write(out, sampleProject(), nil))

	data, err := os.ReadFile(filepath.Join(out, "Sales Dashboard.SemanticModel/definition/tables/Orders.tmdl"))
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "table Orders\n")
	assert.Contains(t, text, "\tcolumn OrderID\n")
	assert.Contains(t, text, "\t\tdataType: int64\n")
	assert.Contains(t, text, "\t\tisKey\n")
	assert.Contains(t, text, "\t\tformatString: #,0.00\n")
	assert.Contains(t, text, "\t\tsummarizeBy: sum\n")
	assert.Contains(t, text, "\t\tsourceColumn: OrderID\n")
	assert.Contains(t, text, "\tmeasure 'Total Sales' = SUM('Orders'[Amount])\n")
	assert.Contains(t, text, "\tpartition Orders = m\n")
	assert.Contains(t, text, "\t\tmode: import\n")
	assert.Contains(t, text, "\t\tsource =\n")
	assert.Contains(t, text, "\t\t\tlet\n")
}

func TestTMDLNameQuoting(t *testing.T) {
	p := sampleProject()
	p.Model.Tables[0].Name = "Order Lines"
	p.Model.Relationships = nil
	p.Queries = nil

	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, Write(out, p, nil))

	data, err := os.ReadFile(filepath.Join(out, "Sales Dashboard.SemanticModel/definition/tables/Order Lines.tmdl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "table 'Order Lines'\n")

	model, err := os.ReadFile(filepath.Join(out, "Sales Dashboard.SemanticModel/definition/model.tmdl"))
	require.NoError(t, err)
	assert.Contains(t, string(model), "ref table 'Order Lines'\n")
	assert.Contains(t, string(model), "ref table Customers\n")
}

func TestQuoteTMDL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Orders", "Orders"},
		{"space", "Order Lines", "'Order Lines'"},
		{"dash", "en-US", "'en-US'"},
		{"dot", "Sales.Fact", "'Sales.Fact'"},
		{"empty", "", "''"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quoteTMDL(tt.in))
		})
	}
}

func TestRelationshipsTMDL(t *testing.T) {
	p := sampleProject()
	p.Model.Relationships = append(p.Model.Relationships, tabular.Relationship{
		Name:        "Sales_Targets",
		FromTable:   "Orders",
		FromColumn:  "Region",
		ToTable:     "Customers",
		ToColumn:    "Region",
		Cardinality: tabular.ManyToMany,
		CrossFilter: tabular.FilterBoth,
		Active:      false,
	})

	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, Write(out, p, nil))

	data, err := os.ReadFile(filepath.Join(out, "Sales Dashboard.SemanticModel/definition/relationships.tmdl"))
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "relationship Orders_Customers\n")
	assert.Contains(t, text, "\tfromColumn: Orders.CustomerID\n")
	assert.Contains(t, text, "\ttoColumn: Customers.CustomerID\n")
	assert.Contains(t, text, "relationship Sales_Targets\n")
	assert.Contains(t, text, "\ttoCardinality: many\n")
	assert.Contains(t, text, "\tcrossFilteringBehavior: bothDirections\n")
	assert.Contains(t, text, "\tisActive: false\n")
	// The active single-direction relationship carries neither marker.
	firstBlock := text[:strings.Index(text, "relationship Sales_Targets")]
	assert.NotContains(t, firstBlock, "isActive")
	assert.NotContains(t, firstBlock, "crossFilteringBehavior")
}

func TestSidecarJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, Write(out, sampleProject(), nil))

	var pbir struct {
		Version          string `json:"version"`
		DatasetReference struct {
			ByPath struct {
				Path string `json:"path"`
			} `json:"byPath"`
		} `json:"datasetReference"`
	}
	data, err := os.ReadFile(filepath.Join(out, "Sales Dashboard.Report/definition.pbir"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &pbir))
	assert.Equal(t, "4.0", pbir.Version)
	assert.Equal(t, "../Sales Dashboard.SemanticModel", pbir.DatasetReference.ByPath.Path)

	var platform struct {
		Metadata struct {
			Type        string `json:"type"`
			DisplayName string `json:"displayName"`
		} `json:"metadata"`
		Config struct {
			Version   string `json:"version"`
			LogicalID string `json:"logicalId"`
		} `json:"config"`
	}
	data, err = os.ReadFile(filepath.Join(out, "Sales Dashboard.SemanticModel/.platform"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &platform))
	assert.Equal(t, "SemanticModel", platform.Metadata.Type)
	assert.Equal(t, "Sales Dashboard", platform.Metadata.DisplayName)
	assert.Equal(t, "2.0", platform.Config.Version)
	assert.Len(t, platform.Config.LogicalID, 36)

	var pages pagesFile
	data, err = os.ReadFile(filepath.Join(out, "Sales Dashboard.Report/definition/pages/pages.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &pages))
	assert.Equal(t, []string{"ReportSection"}, pages.PageOrder)
	assert.Equal(t, "ReportSection", pages.ActivePageName)

	var rpt struct {
		ThemeCollection struct {
			BaseTheme struct {
				Name string `json:"name"`
			} `json:"baseTheme"`
		} `json:"themeCollection"`
		Bookmarks []struct {
			DisplayName string `json:"displayName"`
		} `json:"bookmarks"`
	}
	data, err = os.ReadFile(filepath.Join(out, "Sales Dashboard.Report/definition/report.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &rpt))
	assert.Equal(t, "CY24SU06", rpt.ThemeCollection.BaseTheme.Name)
	require.Len(t, rpt.Bookmarks, 1)
	assert.Equal(t, "West Region", rpt.Bookmarks[0].DisplayName)
}

func TestVisualJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, Write(out, sampleProject(), nil))

	visualsDir := filepath.Join(out, "Sales Dashboard.Report/definition/pages/ReportSection/visuals")
	entries, err := os.ReadDir(visualsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var vf struct {
		Name     string `json:"name"`
		Position struct {
			X        int `json:"x"`
			TabOrder int `json:"tabOrder"`
		} `json:"position"`
		Visual struct {
			VisualType string `json:"visualType"`
			Query      struct {
				QueryState map[string]struct {
					Projections []struct {
						QueryRef string `json:"queryRef"`
						Field    struct {
							Column      *json.RawMessage `json:"Column"`
							Aggregation *struct {
								Function int `json:"Function"`
							} `json:"Aggregation"`
						} `json:"field"`
					} `json:"projections"`
				} `json:"queryState"`
			} `json:"query"`
		} `json:"visual"`
	}
	data, err := os.ReadFile(filepath.Join(visualsDir, entries[0].Name(), "visual.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &vf))

	assert.Equal(t, entries[0].Name(), vf.Name)
	assert.Equal(t, "barChart", vf.Visual.VisualType)
	assert.Equal(t, 10, vf.Position.X)
	assert.Equal(t, 1000, vf.Position.TabOrder)

	category, ok := vf.Visual.Query.QueryState["Category"]
	require.True(t, ok)
	require.Len(t, category.Projections, 1)
	assert.Equal(t, "Customers.Name", category.Projections[0].QueryRef)
	assert.NotNil(t, category.Projections[0].Field.Column)

	y, ok := vf.Visual.Query.QueryState["Y"]
	require.True(t, ok)
	require.Len(t, y.Projections, 1)
	assert.Equal(t, "Sum(Orders.Amount)", y.Projections[0].QueryRef)
	require.NotNil(t, y.Projections[0].Field.Aggregation)
	assert.Equal(t, report.AggSum, y.Projections[0].Field.Aggregation.Function)
}

func TestExpressionsTMDL(t *testing.T) {
	p := sampleProject()
	p.Expressions = map[string]string{
		"Data Root": "\"C:\\data\" meta [IsParameterQuery=true]",
	}

	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, Write(out, p, nil))

	data, err := os.ReadFile(filepath.Join(out, "Sales Dashboard.SemanticModel/definition/expressions.tmdl"))
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "expression 'Data Root' =\n")
	assert.Contains(t, text, "\t\t```\n")
	assert.Contains(t, text, "\tlineageTag: ")
}

func TestWriteIdempotent(t *testing.T) {
	tmp := t.TempDir()
	first := filepath.Join(tmp, "a", "out")
	second := filepath.Join(tmp, "b", "out")
	require.NoError(t, Write(first, sampleProject(), nil))
	require.NoError(t, Write(second, sampleProject(), nil))

	assert.Equal(t, treeSnapshot(t, first), treeSnapshot(t, second))
}

func TestWriteReplacesExistingTarget(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.MkdirAll(out, 0750))
	stale := filepath.Join(out, "stale.txt")
	require.NoError(t, os.WriteFile(stale, []byte("old run"), 0600))

	require.NoError(t, Write(out, sampleProject(), nil))

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(out, "Sales Dashboard.pbip"))
	assert.NoError(t, err)

	// No staging leftovers next to the target.
	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out", entries[0].Name())
}

func TestWriteFailureLeavesTargetIntact(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.MkdirAll(out, 0750))
	marker := filepath.Join(out, "keep.txt")
	require.NoError(t, os.WriteFile(marker, []byte("precious"), 0600))

	err := Write(out, &Project{Name: "X"}, nil)
	require.Error(t, err)

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "precious", string(data))
}

func TestEmptyReportGetsFallbackPage(t *testing.T) {
	p := sampleProject()
	p.Report = nil
	p.Bookmarks = nil

	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, Write(out, p, nil))

	var pf pageFile
	data, err := os.ReadFile(filepath.Join(out, "Sales Dashboard.Report/definition/pages/ReportSection/page.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &pf))
	assert.Equal(t, "Page 1", pf.DisplayName)
	assert.Equal(t, 1280, pf.Width)
	assert.Equal(t, 720, pf.Height)
}

func TestTooltipPageSize(t *testing.T) {
	p := sampleProject()
	p.Report.Pages = append(p.Report.Pages, report.Page{
		Name:        "ReportSection1",
		DisplayName: "Details Tooltip",
		Ordinal:     1,
		Width:       report.TooltipPageWidth,
		Height:      report.TooltipPageHeight,
		Type:        report.PageTypeTooltip,
	})

	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, Write(out, p, nil))

	var pf pageFile
	data, err := os.ReadFile(filepath.Join(out, "Sales Dashboard.Report/definition/pages/ReportSection1/page.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &pf))
	assert.Equal(t, "Tooltip", pf.PageType)
	assert.Equal(t, 480, pf.Width)
	assert.Equal(t, 320, pf.Height)
}

// treeSnapshot maps relative paths to file contents for a whole tree.
func treeSnapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	snapshot := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		snapshot[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return snapshot
}
