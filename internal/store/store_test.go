package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabriclift-labs/fabriclift/internal/testutil"
	"github.com/fabriclift-labs/fabriclift/pkg/core"
)

func sampleApp() *core.App {
	return &core.App{
		Title:      "Sales Dashboard",
		AppID:      "abc-123",
		Author:     "BI Team",
		CreatedAt:  "2023-04-01T10:00:00Z",
		LoadScript: "Sales:\nLOAD OrderID, Amount FROM [sales.csv];",
		Variables: []core.Variable{
			{Name: "vTarget", Definition: "1000000", Comment: "sales goal"},
			{Name: "ThousandSep", Definition: ",", IsReserved: true},
		},
		Dimensions: []core.Dimension{
			{Name: "Region", Fields: []string{"Region"}, Label: "Sales Region"},
		},
		Measures: []core.Measure{
			{Name: "Total Sales", Expression: "Sum(Amount)", FormatString: "#,##0.00"},
		},
		Tables: []core.Table{
			{
				Name: "Sales",
				Columns: []core.Column{
					{Name: "OrderID", Type: core.TypeInteger},
					{Name: "Amount", Type: core.TypeDecimal},
				},
				Source: &core.SourceRef{Kind: "csv", Location: "sales.csv"},
				Mode:   core.LoadModeFile,
			},
		},
		Associations: []core.Association{
			{TableA: "Sales", TableB: "Customers", Fields: []string{"CustomerID"}},
		},
		Sheets: []core.Sheet{
			{
				ID:    "sh1",
				Title: "Overview",
				Visuals: []core.Visual{
					{
						ID:         "v1",
						Type:       "barchart",
						Dimensions: []string{"Region"},
						Measures:   []string{"Sum(Amount)"},
						Position:   core.GridPosition{Row: 0, Col: 0, RowSpan: 8, ColSpan: 12},
						Sort:       []core.SortField{{Field: "Region"}},
					},
				},
			},
		},
		Bookmarks: []core.Bookmark{
			{ID: "bm1", Title: "North only", Selections: []core.FieldFilter{
				{Field: "Region", Values: []string{"North"}},
			}},
		},
		Theme: &core.Theme{
			Name:       "corporate",
			DataColors: []string{"#4477aa", "#ee6677"},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	logger := testutil.NewTestLogger(t)
	app := sampleApp()

	require.NoError(t, Save(dir, app, logger))

	loaded, err := Load(dir, logger)
	require.NoError(t, err)
	assert.Equal(t, app, loaded)
}

func TestSaveWritesEveryCategory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, &core.App{Title: "Empty"}, nil))

	for _, file := range []string{
		MetadataFile, VariablesFile, DimensionsFile, MeasuresFile,
		TablesFile, AssociationsFile, SheetsFile, BookmarksFile,
		ThemeFile, LoadScriptFile,
	} {
		_, err := os.Stat(filepath.Join(dir, file))
		assert.NoError(t, err, "category document %s should exist", file)
	}
}

func TestLoadMissingCategoriesAreEmpty(t *testing.T) {
	dir := t.TempDir()
	app := sampleApp()
	require.NoError(t, Save(dir, app, nil))

	// Simulate a trimmed directory.
	require.NoError(t, os.Remove(filepath.Join(dir, SheetsFile)))
	require.NoError(t, os.Remove(filepath.Join(dir, ThemeFile)))

	loaded, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Empty(t, loaded.Sheets)
	assert.Nil(t, loaded.Theme)
	assert.Equal(t, app.Tables, loaded.Tables)
}

func TestLoadMissingDirectoryFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent"), nil)
	require.Error(t, err)
}

func TestLoadMalformedDocumentFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, sampleApp(), nil))
	require.NoError(t, os.WriteFile(filepath.Join(dir, TablesFile), []byte("{broken"), 0600))

	_, err := Load(dir, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), TablesFile)
}
