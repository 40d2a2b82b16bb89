package connectors

import (
	"fmt"
	"path"
	"strings"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
	"github.com/fabriclift-labs/fabriclift/pkg/qscript"
)

// Web-family connectors: plain web pages, Google Sheets, SharePoint files.

func init() {
	Register(qscript.KindWeb, generateWeb)
	Register(qscript.KindGoogleSheet, generateGoogleSheets)
	Register(qscript.KindSharePoint, generateSharePoint)
}

func generateWeb(t core.Table) string {
	lines := []string{
		"let",
		fmt.Sprintf("    Source = Web.BrowserContents(%s),", quoteM(t.Source.Location)),
		"    AsTable = Html.Table(Source, {{\"Column1\", \"TABLE > TR > TD:nth-child(1)\"}})",
	}
	return typedTail(lines, t.Columns, "AsTable")
}

func generateGoogleSheets(t core.Table) string {
	return joinLines(
		"let",
		"    // REVIEW: Google Sheets needs the Web connector configured with OAuth",
		fmt.Sprintf("    Source = Web.BrowserContents(%s),", quoteM(t.Source.Location)),
		"    AsTable = Html.Table(Source, {{\"Column1\", \"Column1\"}}, [RowSelector=\".waffle\"])",
		"in",
		"    AsTable",
	)
}

func generateSharePoint(t core.Table) string {
	loc := t.Source.Location
	site := loc
	if i := strings.Index(loc, "/sites/"); i >= 0 {
		if j := strings.IndexByte(loc[i+len("/sites/"):], '/'); j >= 0 {
			site = loc[:i+len("/sites/")+j]
		}
	}
	file := path.Base(loc)
	lines := []string{
		"let",
		fmt.Sprintf("    Source = SharePoint.Files(%s, [ApiVersion = 15]),", quoteM(site)),
		fmt.Sprintf("    File = Source{[Name=%s]}[Content],", quoteM(file)),
		"    Workbook = Excel.Workbook(File, true),",
		"    Sheet = Workbook{[Item=\"Sheet1\",Kind=\"Sheet\"]}[Data]",
	}
	return typedTail(lines, t.Columns, "Sheet")
}
