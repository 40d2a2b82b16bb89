package qscript

import (
	"regexp"
	"strings"
)

// LoadStmt is the parsed shape of a LOAD or mapping LOAD statement.
type LoadStmt struct {
	Table         string // target table name, "" when the load is anonymous
	Mapping       bool
	Concatenate   bool
	ConcatTarget  string // table named in CONCATENATE(name), "" for the previous table
	NoConcatenate bool
	Fields        []Field
	Source        Source
	Where         string // raw WHERE clause without the keyword, "" when absent
}

// Field is one entry of a LOAD field list.
type Field struct {
	// Name is the effective column name after aliasing.
	Name string
	// Expression holds the source expression when the field is derived or
	// renamed; it is empty for a plain field reference.
	Expression string
	// Star marks a LOAD * entry.
	Star bool
}

// Source identifies where a LOAD reads from.
type Source struct {
	// Mode is one of "from", "resident", "inline", "autogenerate", or ""
	// for a preceding-load / SQL-fed LOAD with no clause of its own.
	Mode string
	// Location is the file path for "from" (brackets and quotes stripped)
	// or the source table name for "resident".
	Location string
	// Format is the raw format-spec body for "from" sources, e.g.
	// "txt, utf8, embedded labels, delimiter is ','".
	Format string
	// InlineData is the raw data block for "inline" sources.
	InlineData string
	// Rows is the row-count expression for "autogenerate" sources.
	Rows string
}

var (
	tableLabelRe = regexp.MustCompile(`(?is)^\s*(?:"([^"]+)"|\[([^\]]+)\]|([A-Za-z_][\w.]*))\s*:\s*(.*)$`)
	loadHeadRe   = regexp.MustCompile(`(?is)^\s*(concatenate\s*(?:\([^)]*\))?\s+|noconcatenate\s+)?(mapping\s+)?(?:buffer\s+)?(?:add\s+)?(?:load|first\s+\d+\s+load)\b(.*)$`)
	sourceRe     = regexp.MustCompile(`(?is)^(.*?)\b(from|resident|inline|autogenerate)\b\s*(.*)$`)
	formatSpecRe = regexp.MustCompile(`(?is)^(.*?)\s*\(([^()]*(?:\([^()]*\)[^()]*)*)\)\s*$`)
	whereRe      = regexp.MustCompile(`(?is)^(.*?)\bwhere\b\s+(.*)$`)
	setLetRe     = regexp.MustCompile(`(?is)^\s*(set|let)\s+([\w.$#%]+)\s*=\s*(.*)$`)
	connectRe    = regexp.MustCompile(`(?is)^\s*(?:lib\s+)?connect\s+to\s+(?:'([^']+)'|"([^"]+)"|\[([^\]]+)\]|(\S+))`)
	sqlSelectRe  = regexp.MustCompile(`(?is)^\s*sql\b\s+(.*)$`)
)

// ParseLoad parses a LOAD-shaped statement. ok is false when the
// statement is not a load.
func ParseLoad(stmt string) (*LoadStmt, bool) {
	var out LoadStmt
	label, rest := SplitLabel(stmt)
	out.Table = label

	m := loadHeadRe.FindStringSubmatch(rest)
	if m == nil {
		return nil, false
	}
	prefix := strings.TrimSpace(m[1])
	lower := strings.ToLower(prefix)
	out.Concatenate = strings.HasPrefix(lower, "concatenate")
	out.NoConcatenate = strings.HasPrefix(lower, "noconcatenate")
	if out.Concatenate {
		if open := strings.IndexByte(prefix, '('); open >= 0 {
			if close := strings.IndexByte(prefix, ')'); close > open {
				out.ConcatTarget = trimName(prefix[open+1 : close])
			}
		}
	}
	out.Mapping = m[2] != ""
	rest = m[3]

	body := rest
	if sm := sourceRe.FindStringSubmatch(rest); sm != nil {
		body = sm[1]
		mode := strings.ToLower(sm[2])
		tail := strings.TrimSpace(sm[3])
		out.Source = parseSource(mode, tail, &out.Where)
	}

	out.Fields = SplitFields(body)
	return &out, true
}

func parseSource(mode, tail string, where *string) Source {
	src := Source{Mode: mode}

	switch mode {
	case "from":
		if wm := whereRe.FindStringSubmatch(tail); wm != nil {
			tail = strings.TrimSpace(wm[1])
			*where = strings.TrimSpace(wm[2])
		}
		if fm := formatSpecRe.FindStringSubmatch(tail); fm != nil {
			tail = strings.TrimSpace(fm[1])
			src.Format = strings.TrimSpace(fm[2])
		}
		src.Location = trimName(tail)
	case "resident":
		if wm := whereRe.FindStringSubmatch(tail); wm != nil {
			tail = strings.TrimSpace(wm[1])
			*where = strings.TrimSpace(wm[2])
		}
		src.Location = trimName(firstToken(tail))
	case "inline":
		src.InlineData = trimInline(tail)
	case "autogenerate":
		if wm := whereRe.FindStringSubmatch(tail); wm != nil {
			tail = strings.TrimSpace(wm[1])
			*where = strings.TrimSpace(wm[2])
		}
		src.Rows = strings.TrimSpace(tail)
	}
	return src
}

// SplitFields splits a LOAD field list on top-level commas and resolves
// "expr as alias" pairs. Commas inside parentheses, quotes, and brackets
// do not split.
func SplitFields(list string) []Field {
	parts := splitTopLevel(list, ',')
	fields := make([]Field, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if part == "*" {
			fields = append(fields, Field{Name: "*", Star: true})
			continue
		}
		expr, alias := splitAlias(part)
		if alias == "" {
			if name, plain := plainFieldName(expr); plain {
				fields = append(fields, Field{Name: name})
			} else {
				fields = append(fields, Field{Name: expr, Expression: expr})
			}
			continue
		}
		fields = append(fields, Field{Name: alias, Expression: expr})
	}
	return fields
}

var aliasRe = regexp.MustCompile(`(?is)^(.*\S)\s+as\s+("([^"]+)"|\[([^\]]+)\]|([\w.%$#]+))\s*$`)

// splitAlias splits "expr as alias" into its halves. The alias match is
// anchored at the end so AS inside the expression does not confuse it.
func splitAlias(part string) (expr, alias string) {
	m := aliasRe.FindStringSubmatch(part)
	if m == nil {
		return strings.TrimSpace(part), ""
	}
	return strings.TrimSpace(m[1]), firstNonEmpty(m[3], m[4], m[5])
}

// plainFieldName reports whether expr is a bare field reference and
// returns its unquoted name.
func plainFieldName(expr string) (string, bool) {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "[") && strings.HasSuffix(expr, "]") {
		inner := expr[1 : len(expr)-1]
		if !strings.ContainsAny(inner, "[]") {
			return inner, true
		}
		return "", false
	}
	if strings.HasPrefix(expr, `"`) && strings.HasSuffix(expr, `"`) && len(expr) > 1 {
		inner := expr[1 : len(expr)-1]
		if !strings.Contains(inner, `"`) {
			return inner, true
		}
		return "", false
	}
	for _, r := range expr {
		if !isIdentRune(r) {
			return "", false
		}
	}
	return expr, expr != ""
}

// ParseSetLet parses a SET or LET statement. let is true for LET.
func ParseSetLet(stmt string) (name, value string, let, ok bool) {
	m := setLetRe.FindStringSubmatch(stmt)
	if m == nil {
		return "", "", false, false
	}
	value = strings.TrimSpace(m[3])
	// SET values are often quoted; the quotes are not part of the value.
	if len(value) >= 2 && value[0] == '\'' && value[len(value)-1] == '\'' {
		value = value[1 : len(value)-1]
	}
	return m[2], value, strings.EqualFold(m[1], "let"), true
}

// ParseConnect parses a CONNECT TO / LIB CONNECT TO statement and returns
// the connection name.
func ParseConnect(stmt string) (string, bool) {
	m := connectRe.FindStringSubmatch(stmt)
	if m == nil {
		return "", false
	}
	return firstNonEmpty(m[1], m[2], m[3], m[4]), true
}

// ParseSQL parses an SQL passthrough statement and returns the query text.
func ParseSQL(stmt string) (string, bool) {
	m := sqlSelectRe.FindStringSubmatch(stmt)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// SplitLabel splits a leading "Name:" table label off a statement. It
// returns the unquoted label and the remainder, or "" and the statement
// unchanged when there is no label. Control keywords that happen to
// precede a colon are not labels.
func SplitLabel(stmt string) (label, rest string) {
	m := tableLabelRe.FindStringSubmatch(stmt)
	if m == nil {
		return "", stmt
	}
	label = firstNonEmpty(m[1], m[2], m[3])
	if isControlKeyword(label) {
		return "", stmt
	}
	return label, m[4]
}

// splitTopLevel splits s on sep, ignoring separators inside parentheses,
// quotes, and brackets.
func splitTopLevel(s string, sep rune) []string {
	var parts []string
	var cur strings.Builder
	var inSingle, inDouble bool
	parenDepth, bracketDepth := 0, 0

	for _, r := range s {
		if r == sep && !inSingle && !inDouble && parenDepth == 0 && bracketDepth == 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}
		switch {
		case inSingle:
			if r == '\'' {
				inSingle = false
			}
		case inDouble:
			if r == '"' {
				inDouble = false
			}
		case bracketDepth > 0:
			if r == ']' {
				bracketDepth--
			} else if r == '[' {
				bracketDepth++
			}
		default:
			switch r {
			case '\'':
				inSingle = true
			case '"':
				inDouble = true
			case '[':
				bracketDepth++
			case '(':
				parenDepth++
			case ')':
				if parenDepth > 0 {
					parenDepth--
				}
			}
		}
		cur.WriteRune(r)
	}
	parts = append(parts, cur.String())
	return parts
}

// trimName strips surrounding quotes or brackets from a file path or
// table name.
func trimName(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		switch {
		case s[0] == '[' && s[len(s)-1] == ']':
			return s[1 : len(s)-1]
		case s[0] == '\'' && s[len(s)-1] == '\'':
			return s[1 : len(s)-1]
		case s[0] == '"' && s[len(s)-1] == '"':
			return s[1 : len(s)-1]
		}
	}
	return s
}

// trimInline strips the [ ] or " " wrapper around an inline data block.
func trimInline(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		if end := strings.LastIndex(s, "]"); end > 0 {
			return s[1:end]
		}
		return s[1:]
	}
	if strings.HasPrefix(s, `"`) {
		if end := strings.LastIndex(s, `"`); end > 0 {
			return s[1:end]
		}
		return s[1:]
	}
	return s
}

func firstToken(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		if end := strings.Index(s, "]"); end > 0 {
			return s[:end+1]
		}
	}
	for i, r := range s {
		if isSpace(r) {
			return s[:i]
		}
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '.' || r == '%' || r == '$' || r == '#' ||
		(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

var controlKeywords = map[string]struct{}{
	"if": {}, "then": {}, "else": {}, "elseif": {}, "end": {},
	"for": {}, "next": {}, "do": {}, "loop": {}, "sub": {}, "call": {},
	"when": {}, "unless": {}, "switch": {}, "case": {}, "default": {},
}

func isControlKeyword(s string) bool {
	_, ok := controlKeywords[strings.ToLower(s)]
	return ok
}
