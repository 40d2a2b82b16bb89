package connectors

import (
	"fmt"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
	"github.com/fabriclift-labs/fabriclift/pkg/qscript"
)

// Cloud warehouse and SaaS connectors.

func init() {
	Register(qscript.KindBigQuery, generateBigQuery)
	Register(qscript.KindSnowflake, generateSnowflake)
	Register(qscript.KindDatabricks, generateDatabricks)
	Register(qscript.KindSpark, generateSpark)
	Register(qscript.KindSalesforce, generateSalesforce)
}

func generateBigQuery(t core.Table) string {
	p := dbSplit(t, "")
	project := t.Source.Database
	if project == "" {
		project = "my-project"
	}
	dataset := t.Source.Schema
	if dataset == "" {
		dataset = "my_dataset"
	}
	return joinLines(
		"let",
		reviewConnection(t),
		fmt.Sprintf("    Source = GoogleBigQuery.Database([BillingProject=%s]),", quoteM(project)),
		fmt.Sprintf("    Dataset = Source{[Name=%s]}[Data],", quoteM(dataset)),
		fmt.Sprintf("    Data = Dataset{[Name=%s]}[Data]", quoteM(p.object)),
		"in",
		"    Data",
	)
}

func generateSnowflake(t core.Table) string {
	p := dbSplit(t, "PUBLIC")
	return joinLines(
		"let",
		reviewConnection(t),
		fmt.Sprintf("    Source = Snowflake.Databases(%s, %s),", quoteM("account.snowflakecomputing.com"), quoteM("COMPUTE_WH")),
		fmt.Sprintf("    Database = Source{[Name=%s]}[Data],", quoteM(p.database)),
		fmt.Sprintf("    Schema = Database{[Name=%s]}[Data],", quoteM(p.schema)),
		fmt.Sprintf("    Data = Schema{[Name=%s]}[Data]", quoteM(p.object)),
		"in",
		"    Data",
	)
}

func generateDatabricks(t core.Table) string {
	p := dbSplit(t, "")
	return joinLines(
		"let",
		reviewConnection(t),
		fmt.Sprintf("    Source = Databricks.Catalogs(%s, %s),", quoteM("adb-workspace.azuredatabricks.net"), quoteM("/sql/1.0/warehouses/endpoint")),
		fmt.Sprintf("    Catalog = Source{[Name=%s]}[Data],", quoteM(p.database)),
		fmt.Sprintf("    Data = Catalog{[Name=%s]}[Data]", quoteM(p.object)),
		"in",
		"    Data",
	)
}

func generateSpark(t core.Table) string {
	p := dbSplit(t, "")
	return joinLines(
		"let",
		reviewConnection(t),
		fmt.Sprintf("    Source = SparkHive.Database(%s),", quoteM(p.server)),
		fmt.Sprintf("    Data = Source{[Name=%s]}[Data]", quoteM(p.object)),
		"in",
		"    Data",
	)
}

func generateSalesforce(t core.Table) string {
	p := dbSplit(t, "")
	return joinLines(
		"let",
		"    Source = Salesforce.Data(),",
		fmt.Sprintf("    Data = Source{[Name=%s]}[Data]", quoteM(p.object)),
		"in",
		"    Data",
	)
}
