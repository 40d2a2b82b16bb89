package connectors

import (
	"fmt"
	"strings"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
	"github.com/fabriclift-labs/fabriclift/pkg/qscript"
)

// File-family connectors. Delimited and workbook sources promote headers
// and declare column types; structured documents land as records first.

func init() {
	Register(qscript.KindCSV, generateDelimited)
	Register(qscript.KindTxt, generateDelimited)
	Register(qscript.KindExcel, generateExcel)
	Register(qscript.KindJSON, generateJSON)
	Register(qscript.KindXML, generateXML)
	Register(qscript.KindPDF, generatePDF)
	Register(qscript.KindQVD, generateQVD)
	Register(qscript.KindInline, generateInline)
	Register(qscript.KindAutogenerate, generateAutogenerate)
	Register(qscript.KindResident, generateResident)
}

func generateDelimited(t core.Table) string {
	delimiter := formatOption(t.Source.Format, "delimiter")
	if delimiter == "" {
		delimiter = ","
	}
	lines := []string{
		"let",
		fmt.Sprintf("    Source = Csv.Document(File.Contents(%s), [Delimiter=%s, Encoding=65001, QuoteStyle=QuoteStyle.None]),",
			quoteM(t.Source.Location), quoteM(delimiter)),
		"    PromotedHeaders = Table.PromoteHeaders(Source, [PromoteAllScalars=true])",
	}
	return typedTail(lines, t.Columns, "PromotedHeaders")
}

func generateExcel(t core.Table) string {
	sheet := formatOption(t.Source.Format, "table")
	if sheet == "" {
		sheet = "Sheet1"
	}
	lines := []string{
		"let",
		fmt.Sprintf("    Source = Excel.Workbook(File.Contents(%s), null, true),", quoteM(t.Source.Location)),
		fmt.Sprintf("    Sheet = Source{[Item=%s,Kind=\"Sheet\"]}[Data],", quoteM(sheet)),
		"    PromotedHeaders = Table.PromoteHeaders(Sheet, [PromoteAllScalars=true])",
	}
	return typedTail(lines, t.Columns, "PromotedHeaders")
}

func generateJSON(t core.Table) string {
	lines := []string{
		"let",
		fmt.Sprintf("    Source = Json.Document(File.Contents(%s)),", quoteM(t.Source.Location)),
		"    AsTable = Table.FromRecords(Source)",
	}
	return typedTail(lines, t.Columns, "AsTable")
}

func generateXML(t core.Table) string {
	lines := []string{
		"let",
		fmt.Sprintf("    Source = Xml.Tables(File.Contents(%s)),", quoteM(t.Source.Location)),
		"    AsTable = Source{0}[Table]",
	}
	return typedTail(lines, t.Columns, "AsTable")
}

func generatePDF(t core.Table) string {
	lines := []string{
		"let",
		fmt.Sprintf("    Source = Pdf.Tables(File.Contents(%s)),", quoteM(t.Source.Location)),
		"    AsTable = Source{[Id=\"Table001\"]}[Data]",
	}
	return typedTail(lines, t.Columns, "AsTable")
}

// generateQVD substitutes a CSV export since the QVD binary format needs
// a custom connector on the target side.
func generateQVD(t core.Table) string {
	csvPath := strings.TrimSuffix(t.Source.Location, ".qvd") + ".csv"
	lines := []string{
		"let",
		fmt.Sprintf("    // REVIEW: QVD source %s has no native connector; export it to CSV", t.Source.Location),
		fmt.Sprintf("    Source = Csv.Document(File.Contents(%s), [Delimiter=\",\", Encoding=65001]),", quoteM(csvPath)),
		"    PromotedHeaders = Table.PromoteHeaders(Source, [PromoteAllScalars=true])",
	}
	return typedTail(lines, t.Columns, "PromotedHeaders")
}

// generateInline materializes the inline block carried in the source
// location as a #table literal. The first line names the columns.
func generateInline(t core.Table) string {
	header, rows := parseInlineBlock(t.Source.Location)
	if len(header) == 0 {
		for _, c := range t.Columns {
			header = append(header, c.Name)
		}
	}
	cols := make([]string, 0, len(header))
	for _, h := range header {
		cols = append(cols, quoteM(h))
	}
	rowLits := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, quoteM(cell))
		}
		rowLits = append(rowLits, "{"+strings.Join(cells, ", ")+"}")
	}
	lines := []string{
		"let",
		fmt.Sprintf("    Source = #table({%s}, {%s})", strings.Join(cols, ", "), strings.Join(rowLits, ", ")),
	}
	return typedTail(lines, t.Columns, "Source")
}

func parseInlineBlock(data string) (header []string, rows [][]string) {
	var lines []string
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, nil
	}
	split := func(line string) []string {
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	header = split(lines[0])
	for _, line := range lines[1:] {
		rows = append(rows, split(line))
	}
	return header, rows
}

// generateAutogenerate produces a numbered-row scaffold; the generating
// expressions themselves stay with the extracted column definitions.
func generateAutogenerate(t core.Table) string {
	rows := strings.TrimSpace(t.Source.Location)
	if rows == "" {
		rows = "1"
	}
	lines := []string{
		"let",
		fmt.Sprintf("    Source = Table.FromList(List.Numbers(1, %s), Splitter.SplitByNothing(), {\"RowNumber\"})", rows),
	}
	return typedTail(lines, t.Columns, "Source")
}

// generateResident references the query of the table the load resided on.
func generateResident(t core.Table) string {
	return joinLines(
		"let",
		"    Source = "+mIdentifier(t.Source.Location),
		"in",
		"    Source",
	)
}
