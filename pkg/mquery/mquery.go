// Package mquery rewrites Qlik load scripts into Power Query (M)
// step pipelines. Statements are matched most-specific-first; whatever the
// matchers do not recognize becomes a verbatim passthrough step with a
// review comment, so conversion never fails outright.
package mquery

import (
	"strconv"
	"strings"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
	"github.com/fabriclift-labs/fabriclift/pkg/mquery/connectors"
	"github.com/fabriclift-labs/fabriclift/pkg/qscript"
)

// Converter turns load-script text into an M query. The zero value is
// usable; options layer user-supplied function mappings on top of the
// built-in table.
type Converter struct {
	extra map[string]mFunc
}

// Option configures a Converter.
type Option func(*Converter)

// WithFunctions adds scalar function mappings (source name to M function
// name) that override the built-in table. Keys match case-insensitively.
func WithFunctions(m map[string]string) Option {
	return func(c *Converter) {
		if c.extra == nil {
			c.extra = make(map[string]mFunc, len(m))
		}
		for k, v := range m {
			c.extra[strings.ToLower(k)] = mFunc{name: v}
		}
	}
}

// NewConverter returns a Converter with the given options applied.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ConvertScript converts script with a default Converter.
func ConvertScript(script string) (string, *core.ConversionReport) {
	return NewConverter().ConvertScript(script)
}

// ConvertScript rewrites a load script into a single "let ... in" M
// expression and reports scalar-function conversion coverage.
func (c *Converter) ConvertScript(script string) (string, *core.ConversionReport) {
	r := &run{
		report:    core.NewConversionReport(),
		used:      map[string]int{},
		tableStep: map[string]string{},
		vars:      map[string]string{},
	}
	r.expr = &exprConverter{extra: c.extra, report: r.report}

	for _, stmt := range qscript.Split(script) {
		r.statement(stmt)
	}
	r.flushPendingLoad()
	return r.render(), r.report
}

// step is one named entry of the output pipeline.
type step struct {
	name     string
	expr     string
	comments []string
}

// run holds the mutable state of a single script conversion.
type run struct {
	report *core.ConversionReport
	expr   *exprConverter

	steps []step
	// used counts lowercased step names for deterministic deduplication.
	used map[string]int
	// tableStep maps lowercased table name to the step currently holding
	// its rows; concatenate loads repoint it.
	tableStep map[string]string
	lastTable string

	// pending collects comment lines awaiting the next step.
	pending []string
	// pendingLoad is a source-less LOAD waiting for the SQL statement that
	// feeds it (the preceding-load form).
	pendingLoad    *qscript.LoadStmt
	pendingLoadRaw string

	vars map[string]string
	conn struct{ name, kind string }
}

func (r *run) statement(stmt qscript.Statement) {
	if stmt.IsComment {
		r.pending = append(r.pending, commentLines(stmt.Text)...)
		return
	}
	if name, value, _, ok := qscript.ParseSetLet(stmt.Text); ok {
		r.flushPendingLoad()
		r.vars[name] = value
		return
	}

	text := r.expand(stmt.Text)

	if name, ok := qscript.ParseConnect(text); ok {
		r.flushPendingLoad()
		r.conn.name = name
		r.conn.kind = qscript.DetectConnectionKind(name)
		return
	}

	label, rest := qscript.SplitLabel(text)
	if query, ok := qscript.ParseSQL(rest); ok {
		r.sqlStatement(label, query)
		return
	}

	if l, ok := qscript.ParseLoad(text); ok {
		r.flushPendingLoad()
		if l.Source.Mode == "" {
			// Preceding load; the feeding SQL statement comes next.
			r.pendingLoad = l
			r.pendingLoadRaw = text
			return
		}
		r.loadStatement(l)
		return
	}

	r.flushPendingLoad()
	r.passthrough(text)
}

// sqlStatement converts an SQL passthrough, folding in a preceding load's
// field list when one is waiting.
func (r *run) sqlStatement(label, query string) {
	l := r.pendingLoad
	r.pendingLoad = nil
	r.pendingLoadRaw = ""

	name := label
	if name == "" && l != nil {
		name = l.Table
	}
	if name == "" {
		name = "Query"
	}

	kind := r.conn.kind
	if kind == "" {
		kind = qscript.KindODBC
	}
	expr, _ := connectors.Generate(core.Table{
		Name: name,
		Source: &core.SourceRef{
			Kind:     kind,
			Location: query,
			Format:   "query",
			Database: r.conn.name,
		},
	})

	var fields []qscript.Field
	var where string
	if l != nil {
		fields = l.Fields
		where = l.Where
	}
	r.addTableStep(name, r.withTransforms(expr, fields, where), nil)
}

func (r *run) loadStatement(l *qscript.LoadStmt) {
	name := l.Table
	if name == "" {
		name = "Query"
	}

	var comments []string
	if l.Mapping {
		comments = append(comments, "// Mapping table consumed by ApplyMap; merge into its consumers with Table.Join")
	}

	var base string
	switch l.Source.Mode {
	case "resident":
		ref := r.tableStep[strings.ToLower(l.Source.Location)]
		if ref == "" {
			ref = l.Source.Location
			comments = append(comments, "// REVIEW: resident source "+l.Source.Location+" was not seen earlier in the script")
		}
		base = mRef(ref)
	default:
		src := &core.SourceRef{}
		switch l.Source.Mode {
		case "inline":
			src.Kind = qscript.KindInline
			src.Location = l.Source.InlineData
		case "autogenerate":
			src.Kind = qscript.KindAutogenerate
			src.Location = l.Source.Rows
		default:
			src.Kind = qscript.DetectFileKind(l.Source.Location, l.Source.Format)
			src.Location = l.Source.Location
			src.Format = l.Source.Format
		}
		base, _ = connectors.Generate(core.Table{Name: name, Source: src})
	}

	expr := r.withTransforms(base, l.Fields, l.Where)

	if l.Concatenate {
		r.concatenate(l.ConcatTarget, name, expr, comments)
		return
	}
	r.addTableStep(name, expr, comments)
}

// concatenate appends this load's rows to an earlier table's step and
// repoints the table at the combined result.
func (r *run) concatenate(target, name, expr string, comments []string) {
	if target == "" {
		target = r.lastTable
	}
	ref := r.tableStep[strings.ToLower(target)]
	if ref == "" {
		comments = append(comments, "// REVIEW: concatenate target "+target+" was not seen earlier in the script")
		r.addTableStep(name, expr, comments)
		return
	}
	combined := renderLet([]chainStep{
		{name: "Loaded", expr: expr},
		{name: "Combined", expr: "Table.Combine({" + mRef(ref) + ", Loaded})"},
	})
	r.addTableStep(target, combined, comments)
}

// passthrough emits a statement the matchers did not recognize.
func (r *run) passthrough(text string) {
	comments := []string{"// TODO review: unconverted Qlik statement"}
	comments = append(comments, commentLines(text)...)
	r.addStep(step{name: r.dedupe("Unconverted"), expr: "null", comments: comments})
	if tok := firstWord(text); tok != "" {
		r.report.RecordUnconverted(tok)
	}
}

// flushPendingLoad emits a stashed preceding load as a passthrough when no
// SQL statement arrived to feed it.
func (r *run) flushPendingLoad() {
	if r.pendingLoad == nil {
		return
	}
	raw := r.pendingLoadRaw
	r.pendingLoad = nil
	r.pendingLoadRaw = ""
	r.passthrough(raw)
}

// chainStep is one entry of a nested let built around a base expression.
type chainStep struct {
	name string
	expr string
}

// withTransforms wraps base in renames, derived columns, row filtering,
// and column pruning taken from the load's field list.
func (r *run) withTransforms(base string, fields []qscript.Field, where string) string {
	var renames [][2]string
	var derived []qscript.Field
	var keep []string
	star := len(fields) == 0

	for _, f := range fields {
		if f.Star {
			star = true
			continue
		}
		keep = append(keep, f.Name)
		if f.Expression == "" {
			continue
		}
		if plain, ok := plainRef(f.Expression); ok {
			if !strings.EqualFold(plain, f.Name) {
				renames = append(renames, [2]string{plain, f.Name})
			}
			continue
		}
		derived = append(derived, f)
	}

	if len(renames) == 0 && len(derived) == 0 && where == "" && star {
		return base
	}

	steps := []chainStep{{name: "Base", expr: base}}
	prev := "Base"

	if len(renames) > 0 {
		pairs := make([]string, 0, len(renames))
		for _, p := range renames {
			pairs = append(pairs, "{"+quoteText(p[0])+", "+quoteText(p[1])+"}")
		}
		steps = append(steps, chainStep{
			name: "Renamed",
			expr: "Table.RenameColumns(" + prev + ", {" + strings.Join(pairs, ", ") + "})",
		})
		prev = "Renamed"
	}
	for i, f := range derived {
		name := "Added"
		if i > 0 {
			name += strconv.Itoa(i + 1)
		}
		steps = append(steps, chainStep{
			name: name,
			expr: "Table.AddColumn(" + prev + ", " + quoteText(f.Name) + ", each " + r.expr.convert(f.Expression) + ")",
		})
		prev = name
	}
	if where != "" {
		steps = append(steps, chainStep{
			name: "Filtered",
			expr: "Table.SelectRows(" + prev + ", each (" + r.expr.convert(where) + "))",
		})
		prev = "Filtered"
	}
	if !star && len(keep) > 0 {
		cols := make([]string, 0, len(keep))
		for _, k := range keep {
			cols = append(cols, quoteText(k))
		}
		steps = append(steps, chainStep{
			name: "Selected",
			expr: "Table.SelectColumns(" + prev + ", {" + strings.Join(cols, ", ") + "})",
		})
	}
	return renderLet(steps)
}

// addTableStep records a step holding table's rows.
func (r *run) addTableStep(table, expr string, comments []string) {
	name := r.dedupe(table)
	r.addStep(step{name: name, expr: expr, comments: comments})
	r.tableStep[strings.ToLower(table)] = name
	r.lastTable = table
}

func (r *run) addStep(s step) {
	s.comments = append(r.pending, s.comments...)
	r.pending = nil
	r.steps = append(r.steps, s)
}

// dedupe returns name, or name2, name3, ... when earlier steps took it.
func (r *run) dedupe(name string) string {
	if name == "" {
		name = "Query"
	}
	lower := strings.ToLower(name)
	r.used[lower]++
	if n := r.used[lower]; n > 1 {
		return name + strconv.Itoa(n)
	}
	return name
}

// expand substitutes $(name) variable references, bounded so mutually
// recursive definitions terminate. Unknown names stay in place.
func (r *run) expand(s string) string {
	for depth := 0; depth < 5; depth++ {
		out, replaced := r.expandOnce(s)
		s = out
		if !replaced {
			break
		}
	}
	return s
}

func (r *run) expandOnce(s string) (string, bool) {
	var b strings.Builder
	replaced := false
	i := 0
	for i < len(s) {
		if s[i] == '$' && i+1 < len(s) && s[i+1] == '(' {
			if close := strings.IndexByte(s[i+2:], ')'); close >= 0 {
				name := s[i+2 : i+2+close]
				if val, ok := r.vars[name]; ok {
					b.WriteString(val)
					replaced = true
					i += close + 3
					continue
				}
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String(), replaced
}

func (r *run) render() string {
	if len(r.steps) == 0 {
		r.addStep(step{name: r.dedupe("Source"), expr: "#table({}, {})"})
	}
	var b strings.Builder
	b.WriteString("let\n")
	last := len(r.steps) - 1
	for i, s := range r.steps {
		for _, cl := range s.comments {
			b.WriteString("    " + cl + "\n")
		}
		block := "    " + mRef(s.name) + " ="
		if strings.Contains(s.expr, "\n") {
			block += "\n" + indent(s.expr, "        ")
		} else {
			block += " " + s.expr
		}
		if i < last {
			block += ","
		}
		b.WriteString(block + "\n")
	}
	b.WriteString("in\n    " + mRef(r.steps[last].name) + "\n")
	return b.String()
}

// renderLet assembles chain steps into a nested let expression.
func renderLet(steps []chainStep) string {
	var b strings.Builder
	b.WriteString("let\n")
	for i, s := range steps {
		block := "    " + s.name + " ="
		if strings.Contains(s.expr, "\n") {
			block += "\n" + indent(s.expr, "        ")
		} else {
			block += " " + s.expr
		}
		if i < len(steps)-1 {
			block += ","
		}
		b.WriteString(block + "\n")
	}
	b.WriteString("in\n    " + steps[len(steps)-1].name)
	return b.String()
}

// mRef renders a step reference, quoting names that are not plain
// identifiers.
func mRef(name string) string {
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch == '_':
		case ch >= '0' && ch <= '9' && i > 0:
		default:
			return `#"` + strings.ReplaceAll(name, `"`, `""`) + `"`
		}
	}
	if name == "" {
		return `#""`
	}
	return name
}

// quoteText renders an M string literal.
func quoteText(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// plainRef reports whether expr is a bare field reference and returns its
// unquoted name.
func plainRef(expr string) (string, bool) {
	expr = strings.TrimSpace(expr)
	if len(expr) >= 2 {
		if expr[0] == '[' && expr[len(expr)-1] == ']' && !strings.ContainsAny(expr[1:len(expr)-1], "[]") {
			return expr[1 : len(expr)-1], true
		}
		if expr[0] == '"' && expr[len(expr)-1] == '"' && !strings.Contains(expr[1:len(expr)-1], `"`) {
			return expr[1 : len(expr)-1], true
		}
	}
	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		if !(isIdentStart(ch) || ch >= '0' && ch <= '9' || ch == '.') {
			return "", false
		}
	}
	return expr, expr != ""
}

// commentLines normalizes statement text into M comment lines.
func commentLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "//") || strings.HasPrefix(line, "/*") || strings.HasPrefix(line, "*") {
			out = append(out, line)
			continue
		}
		out = append(out, "// "+line)
	}
	return out
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !(isIdentStart(ch) || ch >= '0' && ch <= '9') {
			return s[:i]
		}
	}
	return s
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
