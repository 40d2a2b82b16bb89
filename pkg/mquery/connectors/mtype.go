package connectors

import (
	"fmt"
	"strings"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
)

// mTypes maps inferred semantic column types onto Power Query M types.
var mTypes = map[core.TypeCode]string{
	core.TypeInteger:  "Int64.Type",
	core.TypeDecimal:  "type number",
	core.TypeString:   "type text",
	core.TypeDate:     "type date",
	core.TypeDateTime: "type datetime",
	core.TypeBoolean:  "type logical",
}

// MType returns the M type for a semantic column type, defaulting to text.
func MType(code core.TypeCode) string {
	if t, ok := mTypes[code]; ok {
		return t
	}
	return "type text"
}

// quoteM renders a name as an M string literal, doubling embedded quotes.
func quoteM(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// mIdentifier renders a step or query reference. Names that are not plain
// identifiers use the #"..." quoted form.
func mIdentifier(name string) string {
	for i := 0; i < len(name); i++ {
		b := name[i]
		plain := b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') ||
			(i > 0 && b >= '0' && b <= '9')
		if !plain {
			return `#` + quoteM(name)
		}
	}
	if name == "" {
		return `#""`
	}
	return name
}

// typeStep builds a Table.TransformColumnTypes step declaring every known
// column type, or "" when the table has no columns.
func typeStep(cols []core.Column, prev string) string {
	if len(cols) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(cols))
	for _, c := range cols {
		pairs = append(pairs, fmt.Sprintf("{%s, %s}", quoteM(c.Name), MType(c.Type)))
	}
	return fmt.Sprintf("    ChangedTypes = Table.TransformColumnTypes(%s, {%s})", prev, strings.Join(pairs, ", "))
}

// typedTail appends the optional type step and the closing in-clause.
func typedTail(lines []string, cols []core.Column, last string) string {
	if step := typeStep(cols, last); step != "" {
		lines[len(lines)-1] += ","
		lines = append(lines, step)
		last = "ChangedTypes"
	}
	lines = append(lines, "in", "    "+last)
	return joinLines(lines...)
}

// formatOption extracts a "<key> is <value>" option from a Qlik format
// specifier, e.g. delimiter is ',' or table is [Sheet1].
func formatOption(format, key string) string {
	lower := strings.ToLower(format)
	idx := strings.Index(lower, key+" is ")
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(format[idx+len(key)+4:])
	if rest == "" {
		return ""
	}
	switch rest[0] {
	case '\'', '"':
		if end := strings.IndexByte(rest[1:], rest[0]); end >= 0 {
			return rest[1 : end+1]
		}
	case '[':
		if end := strings.IndexByte(rest, ']'); end >= 0 {
			return rest[1:end]
		}
	}
	if end := strings.IndexAny(rest, ",)"); end >= 0 {
		return strings.TrimSpace(rest[:end])
	}
	return rest
}
