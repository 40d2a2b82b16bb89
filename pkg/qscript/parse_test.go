package qscript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLoadFromFile(t *testing.T) {
	stmt := "Sales:\nLOAD\n    OrderID,\n    Amount,\n    Upper(Region) as Region\nFROM [lib://Data/sales.csv]\n(txt, utf8, embedded labels, delimiter is ',')"

	load, ok := ParseLoad(stmt)
	require.True(t, ok)

	assert.Equal(t, "Sales", load.Table)
	assert.False(t, load.Mapping)
	assert.Equal(t, "from", load.Source.Mode)
	assert.Equal(t, "lib://Data/sales.csv", load.Source.Location)
	assert.Equal(t, "txt, utf8, embedded labels, delimiter is ','", load.Source.Format)

	require.Len(t, load.Fields, 3)
	assert.Equal(t, Field{Name: "OrderID"}, load.Fields[0])
	assert.Equal(t, Field{Name: "Amount"}, load.Fields[1])
	assert.Equal(t, Field{Name: "Region", Expression: "Upper(Region)"}, load.Fields[2])
}

func TestParseLoadVariants(t *testing.T) {
	tests := []struct {
		name    string
		stmt    string
		table   string
		mode    string
		mapping bool
	}{
		{
			name:  "resident with where",
			stmt:  "Summary:\nLOAD Region, Sum(Amount) as Total RESIDENT Sales WHERE Amount > 0",
			table: "Summary",
			mode:  "resident",
		},
		{
			name:    "mapping load",
			stmt:    "CountryMap:\nMAPPING LOAD Code, Country FROM [countries.csv]",
			table:   "CountryMap",
			mode:    "from",
			mapping: true,
		},
		{
			name:  "inline",
			stmt:  "Regions:\nLOAD * INLINE [\nRegion\nNorth\nSouth\n]",
			table: "Regions",
			mode:  "inline",
		},
		{
			name:  "autogenerate",
			stmt:  "Calendar:\nLOAD RecNo() as Num AUTOGENERATE 365",
			table: "Calendar",
			mode:  "autogenerate",
		},
		{
			name:  "bracketed table name",
			stmt:  "[Order Lines]:\nLOAD * FROM [orders.qvd] (qvd)",
			table: "Order Lines",
			mode:  "from",
		},
		{
			name:  "anonymous preceding load",
			stmt:  "LOAD Code, Name",
			table: "",
			mode:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			load, ok := ParseLoad(tt.stmt)
			require.True(t, ok)
			assert.Equal(t, tt.table, load.Table)
			assert.Equal(t, tt.mode, load.Source.Mode)
			assert.Equal(t, tt.mapping, load.Mapping)
		})
	}
}

func TestParseLoadRejectsNonLoads(t *testing.T) {
	for _, stmt := range []string{
		"SET ThousandSep = ','",
		"DROP TABLE Temp",
		"LIB CONNECT TO 'SQL_Server_Prod'",
		"TRACE loading done",
	} {
		_, ok := ParseLoad(stmt)
		assert.False(t, ok, "statement %q should not parse as a load", stmt)
	}
}

func TestParseLoadResidentWhere(t *testing.T) {
	load, ok := ParseLoad("Summary:\nLOAD Region RESIDENT Sales WHERE Amount > 0")
	require.True(t, ok)
	assert.Equal(t, "Sales", load.Source.Location)
	assert.Equal(t, "Amount > 0", load.Where)
}

func TestSplitFields(t *testing.T) {
	tests := []struct {
		name string
		list string
		want []Field
	}{
		{
			name: "plain fields",
			list: "A, B, C",
			want: []Field{{Name: "A"}, {Name: "B"}, {Name: "C"}},
		},
		{
			name: "star",
			list: "*",
			want: []Field{{Name: "*", Star: true}},
		},
		{
			name: "comma inside function call does not split",
			list: "If(A > 1, 'hi', 'lo') as Flag, B",
			want: []Field{
				{Name: "Flag", Expression: "If(A > 1, 'hi', 'lo')"},
				{Name: "B"},
			},
		},
		{
			name: "bracketed and quoted names",
			list: `[Order ID], "Unit Price" as Price`,
			want: []Field{
				{Name: "Order ID"},
				{Name: "Price", Expression: `"Unit Price"`},
			},
		},
		{
			name: "rename keeps source expression",
			list: "CustomerID as Customer",
			want: []Field{{Name: "Customer", Expression: "CustomerID"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitFields(tt.list))
		})
	}
}

func TestParseSetLet(t *testing.T) {
	name, value, let, ok := ParseSetLet("SET ThousandSep = ','")
	require.True(t, ok)
	assert.Equal(t, "ThousandSep", name)
	assert.Equal(t, ",", value)
	assert.False(t, let)

	name, value, let, ok = ParseSetLet("LET vMaxDate = Num(Peek('Date'))")
	require.True(t, ok)
	assert.Equal(t, "vMaxDate", name)
	assert.Equal(t, "Num(Peek('Date'))", value)
	assert.True(t, let)

	_, _, _, ok = ParseSetLet("LOAD A FROM b.csv")
	assert.False(t, ok)
}

func TestParseConnect(t *testing.T) {
	name, ok := ParseConnect("LIB CONNECT TO 'SQL_Server_Prod'")
	require.True(t, ok)
	assert.Equal(t, "SQL_Server_Prod", name)

	name, ok = ParseConnect(`CONNECT TO [Provider=OLEDB;Data Source=srv]`)
	require.True(t, ok)
	assert.Equal(t, "Provider=OLEDB;Data Source=srv", name)

	_, ok = ParseConnect("SET a = 1")
	assert.False(t, ok)
}

func TestParseSQL(t *testing.T) {
	query, ok := ParseSQL("SQL SELECT ID, Name FROM dbo.Customers")
	require.True(t, ok)
	assert.Equal(t, "SELECT ID, Name FROM dbo.Customers", query)

	_, ok = ParseSQL("LOAD A FROM b.csv")
	assert.False(t, ok)
}

func TestDetectFileKind(t *testing.T) {
	tests := []struct {
		location string
		format   string
		want     string
	}{
		{"lib://Data/sales.csv", "", KindCSV},
		{"data/report.xlsx", "", KindExcel},
		{"orders.qvd", "qvd", KindQVD},
		{"config.json", "", KindJSON},
		{"catalog.xml", "", KindXML},
		{"scan.pdf", "", KindPDF},
		{"https://example.com/feed", "", KindWeb},
		{"https://docs.google.com/spreadsheets/d/abc/edit", "", KindGoogleSheet},
		{"https://corp.sharepoint.com/sites/x/list", "", KindSharePoint},
		{"lib://Files/data", "txt, utf8", KindTxt},
		{"unknown.dat", "", KindCSV},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFileKind(tt.location, tt.format))
		})
	}
}

func TestDetectConnectionKind(t *testing.T) {
	tests := []struct {
		conn string
		want string
	}{
		{"SQL_Server_Prod", KindSQLServer},
		{"PostgresFinance", KindPostgreSQL},
		{"Snowflake DWH", KindSnowflake},
		{"My BigQuery", KindBigQuery},
		{"SAP HANA Live", KindSAPHana},
		{"LegacyDSN", KindODBC},
	}

	for _, tt := range tests {
		t.Run(tt.conn, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectConnectionKind(tt.conn))
		})
	}
}
