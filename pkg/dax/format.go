package dax

import (
	"regexp"
	"strings"
)

// formatMap holds the exact-match translations for the formats Qlik
// offers in its property panels.
var formatMap = map[string]string{
	"#,##0":               "#,0",
	"#,##0.00":            "#,0.00",
	"0%":                  "0%",
	"0.00%":               "0.00%",
	"$ #,##0":             "$#,0",
	"$ #,##0.00":          "$#,0.00",
	"DD/MM/YYYY":          "dd/MM/yyyy",
	"MM/DD/YYYY":          "MM/dd/yyyy",
	"YYYY-MM-DD":          "yyyy-MM-dd",
	"YYYY-MM-DD hh:mm:ss": "yyyy-MM-dd hh:nn:ss",
	"hh:mm:ss":            "hh:nn:ss",
	"hh:mm":               "hh:nn",
}

// minuteTokenRe matches a minute token following an hour token. Qlik
// writes minutes as mm in time formats; DAX reserves mm for months and
// uses nn for minutes.
var minuteTokenRe = regexp.MustCompile(`(?i)(h{1,2}):mm`)

// ConvertFormat translates a Qlik number or date format string to its
// DAX equivalent. Unknown tokens pass through unchanged; an empty input
// stays empty.
func ConvertFormat(format string) string {
	if format == "" {
		return ""
	}
	if dax, ok := formatMap[format]; ok {
		return dax
	}

	dax := format
	dax = minuteTokenRe.ReplaceAllString(dax, "$1:nn")
	dax = strings.ReplaceAll(dax, "#,##", "#,")
	dax = strings.ReplaceAll(dax, "YYYY", "yyyy")
	dax = strings.ReplaceAll(dax, "DD", "dd")
	return dax
}
