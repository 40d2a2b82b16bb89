package connectors

import (
	"fmt"
	"strings"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
	"github.com/fabriclift-labs/fabriclift/pkg/qscript"
)

// Database-family connectors. Load scripts carry the connection name and
// the queried object, never the server; generators emit a placeholder
// server with a REVIEW note so the binding is explicit on the target side.

func init() {
	Register(qscript.KindSQLServer, databaseGenerator("Sql.Database", "dbo"))
	Register(qscript.KindAzureSQL, databaseGenerator("AzureSQL.Database", "dbo"))
	Register(qscript.KindSynapse, databaseGenerator("AzureSynapse.Database", "dbo"))
	Register(qscript.KindPostgreSQL, databaseGenerator("PostgreSQL.Database", "public"))
	Register(qscript.KindMySQL, databaseGenerator("MySQL.Database", ""))
	Register(qscript.KindRedshift, databaseGenerator("AmazonRedshift.Database", "public"))
	Register(qscript.KindOracle, generateOracle)
	Register(qscript.KindSAPHana, generateSAPHana)
	Register(qscript.KindTeradata, generateTeradata)
	Register(qscript.KindODBC, generateODBC)
	Register(qscript.KindOLEDB, generateOLEDB)
}

type dbParts struct {
	server   string
	database string
	schema   string
	object   string
	query    string // set when the load was a passthrough query
}

func dbSplit(t core.Table, defaultSchema string) dbParts {
	s := t.Source
	p := dbParts{
		server:   "localhost",
		database: s.Database,
		schema:   s.Schema,
		object:   strings.TrimSpace(s.Location),
	}
	if p.database == "" {
		p.database = "Database"
	}
	if p.schema == "" {
		p.schema = defaultSchema
	}
	if s.Format == "query" {
		p.query = strings.TrimSpace(s.Location)
		p.object = t.Name
	}
	return p
}

func reviewConnection(t core.Table) string {
	conn := t.Source.Database
	if conn == "" {
		conn = t.Source.Kind
	}
	return fmt.Sprintf("    // REVIEW: set the server for connection %q", conn)
}

// databaseGenerator covers the two-argument Database connectors sharing
// the Schema/Item navigation shape.
func databaseGenerator(fn, defaultSchema string) GenerateFunc {
	return func(t core.Table) string {
		p := dbSplit(t, defaultSchema)
		if p.query != "" {
			return joinLines(
				"let",
				reviewConnection(t),
				fmt.Sprintf("    Source = %s(%s, %s, [Query=%s])", fn, quoteM(p.server), quoteM(p.database), quoteM(p.query)),
				"in",
				"    Source",
			)
		}
		nav := fmt.Sprintf("    Data = Source{[Schema=%s,Item=%s]}[Data]", quoteM(p.schema), quoteM(p.object))
		if defaultSchema == "" {
			nav = fmt.Sprintf("    Data = Source{[Name=%s]}[Data]", quoteM(p.object))
		}
		return joinLines(
			"let",
			reviewConnection(t),
			fmt.Sprintf("    Source = %s(%s, %s),", fn, quoteM(p.server), quoteM(p.database)),
			nav,
			"in",
			"    Data",
		)
	}
}

func generateOracle(t core.Table) string {
	p := dbSplit(t, "SCHEMA")
	return joinLines(
		"let",
		reviewConnection(t),
		fmt.Sprintf("    Source = Oracle.Database(%s),", quoteM(p.server)),
		fmt.Sprintf("    Data = Source{[Schema=%s,Item=%s]}[Data]", quoteM(p.schema), quoteM(p.object)),
		"in",
		"    Data",
	)
}

func generateSAPHana(t core.Table) string {
	p := dbSplit(t, "_SYS_BIC")
	return joinLines(
		"let",
		reviewConnection(t),
		fmt.Sprintf("    Source = SapHana.Database(%s),", quoteM(p.server)),
		fmt.Sprintf("    Data = Source{[Schema=%s,Name=%s]}[Data]", quoteM(p.schema), quoteM(p.object)),
		"in",
		"    Data",
	)
}

func generateTeradata(t core.Table) string {
	p := dbSplit(t, "")
	return joinLines(
		"let",
		reviewConnection(t),
		fmt.Sprintf("    Source = Teradata.Database(%s, [Database=%s]),", quoteM(p.server), quoteM(p.database)),
		fmt.Sprintf("    Data = Source{[Name=%s]}[Data]", quoteM(p.object)),
		"in",
		"    Data",
	)
}

func generateODBC(t core.Table) string {
	p := dbSplit(t, "")
	dsn := "DSN=" + t.Source.Database
	if t.Source.Database == "" {
		dsn = "DSN=MyDSN"
	}
	if p.query != "" {
		return joinLines(
			"let",
			reviewConnection(t),
			fmt.Sprintf("    Source = Odbc.Query(%s, %s)", quoteM(dsn), quoteM(p.query)),
			"in",
			"    Source",
		)
	}
	return joinLines(
		"let",
		reviewConnection(t),
		fmt.Sprintf("    Source = Odbc.DataSource(%s),", quoteM(dsn)),
		fmt.Sprintf("    Data = Source{[Name=%s]}[Data]", quoteM(p.object)),
		"in",
		"    Data",
	)
}

func generateOLEDB(t core.Table) string {
	p := dbSplit(t, "")
	connStr := t.Source.Database
	if connStr == "" {
		connStr = "Provider=SQLOLEDB;Data Source=server;Initial Catalog=db"
	}
	return joinLines(
		"let",
		reviewConnection(t),
		fmt.Sprintf("    Source = OleDb.DataSource(%s),", quoteM(connStr)),
		fmt.Sprintf("    Data = Source{[Name=%s]}[Data]", quoteM(p.object)),
		"in",
		"    Data",
	)
}
