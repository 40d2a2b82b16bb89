package mquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertScriptFileLoad(t *testing.T) {
	script := `Customers:
LOAD Upper(Name) as N
FROM [T.csv];`

	out, report := ConvertScript(script)

	assert.Contains(t, out, `Customers =`)
	assert.Contains(t, out, `Csv.Document(File.Contents("T.csv")`)
	assert.Contains(t, out, `Table.PromoteHeaders(Source, [PromoteAllScalars=true])`)
	assert.Contains(t, out, `Table.AddColumn(Base, "N", each Text.Upper([Name]))`)
	assert.Contains(t, out, `Table.SelectColumns(Added, {"N"})`)

	mapped, unconverted := report.Counts()
	assert.Equal(t, 1, mapped)
	assert.Zero(t, unconverted)
	assert.InDelta(t, 100.0, report.Rate(), 0.01)
}

func TestConvertScriptInline(t *testing.T) {
	script := `Regions:
LOAD * INLINE [
Region
North
South
];`

	out, _ := ConvertScript(script)

	assert.Contains(t, out, `Regions =`)
	assert.Contains(t, out, `#table({"Region"}, {{"North"}, {"South"}})`)
}

func TestConvertScriptResidentWhere(t *testing.T) {
	script := `Orders:
LOAD Id, Amount FROM [orders.csv];

Big:
LOAD Id RESIDENT Orders WHERE Amount > 100;`

	out, _ := ConvertScript(script)

	assert.Contains(t, out, "Big =")
	assert.Contains(t, out, "Base = Orders,")
	assert.Contains(t, out, `Table.SelectRows(Base, each ([Amount] > 100))`)
	assert.Contains(t, out, `Table.SelectColumns(Filtered, {"Id"})`)
}

func TestConvertScriptConcatenate(t *testing.T) {
	script := `Orders:
LOAD Id FROM [a.csv];

CONCATENATE (Orders)
LOAD Id FROM [b.csv];`

	out, _ := ConvertScript(script)

	// The combined step takes a deduplicated name and becomes the new home
	// of the table's rows, so the script result is the combined table.
	assert.Contains(t, out, "Orders2 =")
	assert.Contains(t, out, "Table.Combine({Orders, Loaded})")
	assert.Contains(t, out, "in\n    Orders2")
}

func TestConvertScriptSQLPassthrough(t *testing.T) {
	script := `LIB CONNECT TO 'SQL_Server_Finance';

Sales:
SQL SELECT OrderID, Amount FROM dbo.Sales;`

	out, _ := ConvertScript(script)

	assert.Contains(t, out, "Sales =")
	assert.Contains(t, out, "Sql.Database(")
	assert.Contains(t, out, `[Query="SELECT OrderID, Amount FROM dbo.Sales"]`)
}

func TestConvertScriptPrecedingLoad(t *testing.T) {
	script := `LIB CONNECT TO 'SQL_Server_Finance';

LOAD Upper(Name) as N;
SQL SELECT Name FROM dbo.Customers;`

	out, report := ConvertScript(script)

	assert.Contains(t, out, `Table.AddColumn(Base, "N", each Text.Upper([Name]))`)
	assert.Contains(t, out, `Table.SelectColumns(Added, {"N"})`)
	assert.Contains(t, report.Mapped, "Upper")
}

func TestConvertScriptVariableExpansion(t *testing.T) {
	script := `SET vPath = data;

Orders:
LOAD Id FROM [$(vPath)/orders.csv];`

	out, _ := ConvertScript(script)

	assert.Contains(t, out, `File.Contents("data/orders.csv")`)
	assert.NotContains(t, out, "$(vPath)")
}

func TestConvertScriptMappingLoad(t *testing.T) {
	script := `RegionMap:
MAPPING LOAD Code, Region FROM [map.csv];`

	out, _ := ConvertScript(script)

	assert.Contains(t, out, "// Mapping table consumed by ApplyMap")
	assert.Contains(t, out, "RegionMap =")
}

func TestConvertScriptPassthrough(t *testing.T) {
	script := `Orders:
LOAD Id FROM [a.csv];

STORE Orders INTO [out.qvd];`

	out, report := ConvertScript(script)

	assert.Contains(t, out, "// TODO review: unconverted Qlik statement")
	assert.Contains(t, out, "// STORE Orders INTO [out.qvd]")
	assert.Contains(t, out, "Unconverted = null")
	assert.Contains(t, report.Unconverted, "STORE")
}

func TestConvertScriptCommentsPreserved(t *testing.T) {
	script := `// orders as exported nightly
Orders:
LOAD Id FROM [a.csv];`

	out, _ := ConvertScript(script)

	assert.Contains(t, out, "// orders as exported nightly")
}

func TestConvertScriptEmpty(t *testing.T) {
	out, report := ConvertScript("")

	assert.Contains(t, out, "#table({}, {})")
	assert.InDelta(t, 100.0, report.Rate(), 0.01)
}

func TestConvertScriptStepNameQuoting(t *testing.T) {
	script := `[Order Lines]:
LOAD Id FROM [a.csv];`

	out, _ := ConvertScript(script)

	assert.Contains(t, out, `#"Order Lines" =`)
	assert.Contains(t, out, "in\n    #\"Order Lines\"")
}

func TestConvertScriptRename(t *testing.T) {
	script := `Orders:
LOAD OrderID as Id, Amount FROM [a.csv];`

	out, _ := ConvertScript(script)

	assert.Contains(t, out, `Table.RenameColumns(Base, {{"OrderID", "Id"}})`)
	assert.Contains(t, out, `Table.SelectColumns(Renamed, {"Id", "Amount"})`)
}

func TestConvertScriptWithFunctions(t *testing.T) {
	c := NewConverter(WithFunctions(map[string]string{"ApplyMap": "Custom.ApplyMap"}))

	out, report := c.ConvertScript(`Orders:
LOAD ApplyMap('RegionMap', Code) as Region FROM [a.csv];`)

	assert.Contains(t, out, `Custom.ApplyMap("RegionMap", [Code])`)
	require.Empty(t, report.Unconverted)
	assert.Contains(t, report.Mapped, "ApplyMap")
}
