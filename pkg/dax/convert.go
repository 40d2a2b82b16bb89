package dax

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
)

// Relation describes one relationship endpoint pair from the converted
// model. Cross-table column references in calculated columns follow the
// many-to-one path with RELATED; many-to-many pairs fall back to
// LOOKUPVALUE.
type Relation struct {
	FromTable  string
	ToTable    string
	ManyToMany bool
}

// Transpiler converts Qlik expressions to DAX. A single instance carries
// the table context, variable definitions, and the column ownership map
// for one app, and accumulates a ConversionReport across calls.
type Transpiler struct {
	table     string
	vars      map[string]string
	colTables map[string]string      // lowercased column name -> home table
	manyMany  map[string]bool        // lowercased "from\x00to" pairs
	extra     map[string]funcMapping // user-supplied mapping overrides
	report    *core.ConversionReport
}

// Option configures a Transpiler.
type Option func(*Transpiler)

// WithTable sets the table context used to qualify bare field references
// and to scope set-analysis filters.
func WithTable(name string) Option {
	return func(t *Transpiler) { t.table = name }
}

// WithVariables supplies variable definitions for $(name) expansion.
// Reserved system variables must already be filtered out by the caller.
func WithVariables(vars map[string]string) Option {
	return func(t *Transpiler) { t.vars = vars }
}

// WithColumnTables maps column names to their home table, enabling
// RELATED/LOOKUPVALUE insertion for cross-table references in
// calculated columns.
func WithColumnTables(m map[string]string) Option {
	return func(t *Transpiler) {
		for col, tbl := range m {
			t.colTables[strings.ToLower(col)] = tbl
		}
	}
}

// WithFunctions adds or overrides name-for-name function mappings from a
// user-supplied mapping file. Keys are source function names, values the
// replacement DAX names.
func WithFunctions(m map[string]string) Option {
	return func(t *Transpiler) {
		for from, to := range m {
			t.extra[strings.ToLower(from)] = rename(to)
		}
	}
}

// WithRelations records which table pairs are many-to-many.
func WithRelations(rels []Relation) Option {
	return func(t *Transpiler) {
		for _, r := range rels {
			if !r.ManyToMany {
				continue
			}
			a := strings.ToLower(r.FromTable)
			b := strings.ToLower(r.ToTable)
			t.manyMany[a+"\x00"+b] = true
			t.manyMany[b+"\x00"+a] = true
		}
	}
}

// NewTranspiler builds a Transpiler for one app context.
func NewTranspiler(opts ...Option) *Transpiler {
	t := &Transpiler{
		colTables: make(map[string]string),
		manyMany:  make(map[string]bool),
		extra:     make(map[string]funcMapping),
		report:    core.NewConversionReport(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Report returns the accumulated conversion bookkeeping.
func (t *Transpiler) Report() *core.ConversionReport { return t.report }

// Convert rewrites a measure or chart expression to DAX. It never fails:
// constructs without a confident counterpart stay in the output behind a
// REVIEW marker and are recorded on the report.
func (t *Transpiler) Convert(expr string) string {
	return t.convert(expr, false)
}

// ConvertColumn rewrites a calculated-column expression. In addition to
// the measure pipeline, field references are qualified to 'Table'[Column]
// form and cross-table references are routed through RELATED or
// LOOKUPVALUE.
func (t *Transpiler) ConvertColumn(expr string) string {
	return t.convert(expr, true)
}

func (t *Transpiler) convert(expr string, column bool) string {
	expr = strings.TrimSpace(expr)
	expr = strings.TrimPrefix(expr, "=")
	if expr == "" {
		return ""
	}
	expr = ExpandVariables(expr, t.vars)
	expr = convertOperators(expr)
	expr = convertIfThen(expr)
	expr = t.convertSetAnalysis(expr)
	expr = t.convertTotal(expr)
	expr = t.convertAggr(expr)
	expr = t.applyFunctionMap(expr)
	if column {
		expr = t.qualifyReferences(expr)
	}
	return cleanup(expr)
}

// convertOperators rewrites the word operators. String concatenation with
// & is shared syntax and passes through untouched.
func convertOperators(expr string) string {
	var b strings.Builder
	for i := 0; i < len(expr); {
		if j, ok := skipRegion(expr, i); ok {
			b.WriteString(expr[i:j])
			i = j
			continue
		}
		if !isIdentStart(expr[i]) {
			b.WriteByte(expr[i])
			i++
			continue
		}
		name, j := scanIdent(expr, i)
		switch strings.ToLower(name) {
		case "and":
			b.WriteString("&&")
		case "or":
			b.WriteString("||")
		case "not":
			b.WriteString("NOT")
		case "xor":
			b.WriteString("<>") // boolean xor is inequality in DAX
		default:
			b.WriteString(name)
		}
		i = j
	}
	return b.String()
}

// Inline If ... Then ... Else ... End blocks appear in script-derived
// expressions. The call form If(...) is handled by the function map.
var (
	ifThenElseRe = regexp.MustCompile(`(?is)\bIf\b\s+(.+?)\s+\bThen\b\s+(.+?)\s+\bElse\b\s+(.+?)\s+\bEnd\b`)
	ifThenNestRe = regexp.MustCompile(`(?is)\bIf\b\s+(.+?)\s+\bThen\b\s+(.+?)\s+\bElseIf\b`)
)

func convertIfThen(expr string) string {
	expr = ifThenNestRe.ReplaceAllString(expr, "IF($1, $2, IF(")
	return ifThenElseRe.ReplaceAllString(expr, "IF($1, $2, $3)")
}

// applyFunctionMap performs the name-level rewrite pass. Already-DAX
// names, recognizable by their all-uppercase spelling, pass through
// without touching the report, so text emitted by earlier phases is not
// double counted.
func (t *Transpiler) applyFunctionMap(expr string) string {
	var b strings.Builder
	for i := 0; i < len(expr); {
		if j, ok := skipRegion(expr, i); ok {
			b.WriteString(expr[i:j])
			i = j
			continue
		}
		if !isIdentStart(expr[i]) {
			b.WriteByte(expr[i])
			i++
			continue
		}
		name, j := scanIdent(expr, i)
		k := skipSpaces(expr, j)
		if k >= len(expr) || expr[k] != '(' {
			b.WriteString(name)
			i = j
			continue
		}
		if isAllUpper(name) {
			b.WriteString(expr[i : k+1])
			i = k + 1
			continue
		}
		close := matchParen(expr, k)
		if close < 0 {
			b.WriteString(expr[i:])
			return b.String()
		}
		inner := expr[k+1 : close]
		lower := strings.ToLower(name)

		m, ok := t.extra[lower]
		if !ok && interRecordFunctions[lower] {
			b.WriteString("/* REVIEW: " + expr[i:close+1] + " */ BLANK()")
			t.report.RecordUnconverted(name)
			i = close + 1
			continue
		}
		if !ok {
			m, ok = functionMappings[lower]
		}
		if !ok {
			// Unknown function, kept verbatim for manual review. The
			// arguments still get the rewrite pass.
			t.report.RecordUnconverted(name)
			b.WriteString(name + "(" + t.applyFunctionMap(inner) + ")")
			i = close + 1
			continue
		}

		switch m.kind {
		case kindRename:
			t.report.RecordMapped(name)
			b.WriteString(m.target + "(" + t.applyFunctionMap(inner) + ")")
		case kindLiteral:
			t.report.RecordMapped(name)
			b.WriteString(m.target)
		case kindTemplate:
			args := splitArgs(inner)
			if len(args) < m.minArgs {
				t.report.RecordUnconverted(name)
				b.WriteString(name + "(" + t.applyFunctionMap(inner) + ")")
				break
			}
			for n := range args {
				args[n] = t.applyFunctionMap(args[n])
			}
			t.report.RecordMapped(name)
			b.WriteString(fillTemplate(m.target, args))
		case kindReview:
			t.report.RecordUnconverted(name)
			args := splitArgs(inner)
			for n := range args {
				args[n] = t.applyFunctionMap(args[n])
			}
			b.WriteString("/* REVIEW: " + expr[i:close+1] + " */ " + fillTemplate(m.fallback, args))
		}
		i = close + 1
	}
	return b.String()
}

// fillTemplate substitutes {0}, {1}, ... placeholders. Placeholders past
// the end of the argument list are replaced with blanks, which only
// happens for review fallbacks.
func fillTemplate(tpl string, args []string) string {
	for n := 0; n < 10; n++ {
		ph := "{" + strconv.Itoa(n) + "}"
		if !strings.Contains(tpl, ph) {
			continue
		}
		arg := ""
		if n < len(args) {
			arg = args[n]
		}
		tpl = strings.ReplaceAll(tpl, ph, arg)
	}
	return tpl
}

func isAllUpper(name string) bool {
	hasLetter := false
	for i := 0; i < len(name); i++ {
		b := name[i]
		if b >= 'a' && b <= 'z' {
			return false
		}
		if b >= 'A' && b <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}

// qualifyReferences qualifies bracketed and bare field references in a
// calculated-column expression, routing cross-table references through
// RELATED or LOOKUPVALUE by relationship cardinality.
func (t *Transpiler) qualifyReferences(expr string) string {
	var b strings.Builder
	for i := 0; i < len(expr); {
		if expr[i] == '[' {
			end := strings.IndexByte(expr[i:], ']')
			if end < 0 {
				b.WriteString(expr[i:])
				break
			}
			b.WriteString(t.columnRef(expr[i+1 : i+end]))
			i += end + 1
			continue
		}
		if j, ok := skipRegion(expr, i); ok {
			b.WriteString(expr[i:j])
			i = j
			continue
		}
		if !isIdentStart(expr[i]) {
			b.WriteByte(expr[i])
			i++
			continue
		}
		name, j := scanIdent(expr, i)
		k := skipSpaces(expr, j)
		_, known := t.colTables[strings.ToLower(name)]
		if known && (k >= len(expr) || expr[k] != '(') {
			b.WriteString(t.columnRef(name))
		} else {
			b.WriteString(name)
		}
		i = j
	}
	return b.String()
}

func (t *Transpiler) columnRef(col string) string {
	home := t.colTables[strings.ToLower(col)]
	switch {
	case home == "" || strings.EqualFold(home, t.table):
		if t.table == "" {
			return "[" + col + "]"
		}
		return "'" + t.table + "'[" + col + "]"
	case t.manyMany[strings.ToLower(t.table)+"\x00"+strings.ToLower(home)]:
		ref := "'" + home + "'[" + col + "]"
		return "LOOKUPVALUE(" + ref + ", " + ref + ", [" + col + "])"
	default:
		return "RELATED('" + home + "'[" + col + "])"
	}
}

// cleanup collapses runs of whitespace outside opaque regions and trims
// the result.
func cleanup(expr string) string {
	var b strings.Builder
	for i := 0; i < len(expr); {
		if j, ok := skipRegion(expr, i); ok {
			b.WriteString(expr[i:j])
			i = j
			continue
		}
		switch expr[i] {
		case ' ', '\t', '\r', '\n':
			i = skipSpaces(expr, i)
			b.WriteByte(' ')
		default:
			b.WriteByte(expr[i])
			i++
		}
	}
	out := strings.ReplaceAll(b.String(), "( )", "()")
	return strings.TrimSpace(out)
}
