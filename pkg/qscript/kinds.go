package qscript

import (
	"path"
	"strings"
)

// Source kinds shared by the extractor and the connector registry. File
// kinds come from the load location's extension; database kinds come from
// the active CONNECT statement at the time of the load.
const (
	KindCSV          = "csv"
	KindTxt          = "txt"
	KindExcel        = "excel"
	KindJSON         = "json"
	KindXML          = "xml"
	KindPDF          = "pdf"
	KindQVD          = "qvd"
	KindWeb          = "web"
	KindInline       = "inline"
	KindResident     = "resident"
	KindAutogenerate = "autogenerate"

	KindSQLServer   = "sqlserver"
	KindPostgreSQL  = "postgresql"
	KindMySQL       = "mysql"
	KindOracle      = "oracle"
	KindAzureSQL    = "azuresql"
	KindSynapse     = "synapse"
	KindTeradata    = "teradata"
	KindSAPHana     = "saphana"
	KindODBC        = "odbc"
	KindOLEDB       = "oledb"
	KindBigQuery    = "bigquery"
	KindSnowflake   = "snowflake"
	KindRedshift    = "redshift"
	KindDatabricks  = "databricks"
	KindSpark       = "spark"
	KindSalesforce  = "salesforce"
	KindGoogleSheet = "googlesheets"
	KindSharePoint  = "sharepoint"
)

var extensionKinds = map[string]string{
	".csv":  KindCSV,
	".txt":  KindTxt,
	".tsv":  KindTxt,
	".tab":  KindTxt,
	".xlsx": KindExcel,
	".xls":  KindExcel,
	".xlsm": KindExcel,
	".json": KindJSON,
	".xml":  KindXML,
	".pdf":  KindPDF,
	".qvd":  KindQVD,
	".qvx":  KindQVD,
}

// DetectFileKind classifies a FROM location by URL scheme and extension.
// Unknown extensions default to csv, the most common tabular format.
func DetectFileKind(location, format string) string {
	loc := strings.ToLower(strings.TrimSpace(location))

	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		if strings.Contains(loc, "docs.google.com/spreadsheets") {
			return KindGoogleSheet
		}
		if strings.Contains(loc, "sharepoint.com") {
			return KindSharePoint
		}
		return KindWeb
	}

	ext := path.Ext(stripLibPrefix(loc))
	if kind, ok := extensionKinds[ext]; ok {
		return kind
	}

	// The format spec names the format when the extension does not:
	// FROM [lib://Files/data] (txt, utf8, ...).
	f := strings.ToLower(format)
	switch {
	case strings.HasPrefix(f, "ooxml"), strings.HasPrefix(f, "biff"):
		return KindExcel
	case strings.HasPrefix(f, "json"):
		return KindJSON
	case strings.HasPrefix(f, "xml"):
		return KindXML
	case strings.HasPrefix(f, "qvd"):
		return KindQVD
	case strings.HasPrefix(f, "txt"):
		return KindTxt
	}
	return KindCSV
}

// stripLibPrefix removes a lib://space/ prefix so extension and path
// handling see the plain file path.
func stripLibPrefix(location string) string {
	if !strings.HasPrefix(location, "lib://") {
		return location
	}
	rest := location[len("lib://"):]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[i+1:]
	}
	return rest
}

// connectionKinds is checked in order; more specific driver tokens come
// before the generic ones they contain (azuresql before sqlserver).
var connectionKinds = []struct {
	token string
	kind  string
}{
	{"azuresql", KindAzureSQL},
	{"synapse", KindSynapse},
	{"sqlserver", KindSQLServer},
	{"mssql", KindSQLServer},
	{"postgres", KindPostgreSQL},
	{"mysql", KindMySQL},
	{"mariadb", KindMySQL},
	{"oracle", KindOracle},
	{"teradata", KindTeradata},
	{"hana", KindSAPHana},
	{"bigquery", KindBigQuery},
	{"snowflake", KindSnowflake},
	{"redshift", KindRedshift},
	{"databricks", KindDatabricks},
	{"spark", KindSpark},
	{"salesforce", KindSalesforce},
	{"oledb", KindOLEDB},
}

// DetectConnectionKind classifies a CONNECT TO connection name by the
// driver tokens Qlik embeds in it. Names are collapsed to lowercase
// alphanumerics first so "SQL_Server_Prod" and "SQL Server" both match.
// Unrecognized names fall back to odbc, the generic passthrough connector.
func DetectConnectionKind(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	collapsed := b.String()
	for _, ck := range connectionKinds {
		if strings.Contains(collapsed, ck.token) {
			return ck.kind
		}
	}
	return KindODBC
}
