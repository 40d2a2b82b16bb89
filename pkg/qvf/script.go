package qvf

import (
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
	"github.com/fabriclift-labs/fabriclift/pkg/qscript"
)

// ScriptModel is the data-model half of a load script: the tables it
// builds, the variables it sets, and the associations implied by shared
// field names.
type ScriptModel struct {
	Tables       []core.Table
	Variables    []core.Variable
	Associations []core.Association
	Warnings     []string
}

// reservedVariables are Qlik system variables. They are extracted for the
// record but expression conversion must not expand them as user variables.
var reservedVariables = map[string]bool{
	"ThousandSep": true, "DecimalSep": true, "MoneyThousandSep": true,
	"MoneyDecimalSep": true, "MoneyFormat": true, "TimeFormat": true,
	"DateFormat": true, "TimestampFormat": true, "FirstWeekDay": true,
	"BrokenWeeks": true, "ReferenceDay": true, "FirstMonthOfYear": true,
	"CollationLocale": true, "MonthNames": true, "LongMonthNames": true,
	"DayNames": true, "LongDayNames": true, "NumericalAbbreviation": true,
	"ErrorMode": true, "ScriptError": true, "ScriptErrorCount": true,
	"ScriptErrorList": true, "ErrorCount": true, "HidePrefix": true,
	"HideSuffix": true, "Include": true, "MustInclude": true,
	"CreateSearchIndexOnReload": true, "Floppy": true, "CD": true,
	"QvPath": true, "QvRoot": true, "QvWorkPath": true, "QvWorkRoot": true,
	"WinPath": true, "WinRoot": true, "OpenUrlTimeout": true,
	"StripComments": true, "Verbatim": true, "NullInterpret": true,
	"NullValue": true, "NullDisplay": true,
}

// IsReservedVariable reports whether name is a Qlik system variable.
func IsReservedVariable(name string) bool {
	return reservedVariables[name]
}

var (
	dropTableRe   = regexp.MustCompile(`(?is)^\s*drop\s+tables?\s+(.+)$`)
	renameTableRe = regexp.MustCompile(`(?is)^\s*rename\s+table\s+(\S+)\s+to\s+(\S+)\s*$`)
	sqlFromRe     = regexp.MustCompile(`(?is)\bfrom\s+((?:\[[^\]]+\]|"[^"]+"|[\w]+)(?:\s*\.\s*(?:\[[^\]]+\]|"[^"]+"|[\w]+))*)`)
)

// AnalyzeScript derives the data model from a load script. Parsing is
// best-effort: statements it cannot interpret become warnings, never
// errors, so one impenetrable script section does not lose the rest of
// the model.
func AnalyzeScript(script string, logger *slog.Logger) *ScriptModel {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &scriptBuilder{model: &ScriptModel{}, logger: logger}

	for _, stmt := range qscript.Split(script) {
		if stmt.IsComment {
			continue
		}
		b.statement(stmt)
	}
	return b.finish()
}

// activeConnection is the CONNECT statement in effect for subsequent
// database loads.
type activeConnection struct {
	name string
	kind string
}

type scriptBuilder struct {
	model   *ScriptModel
	logger  *slog.Logger
	tables  []*core.Table
	conn    *activeConnection
	pending *core.Table // labeled load waiting for the statement that feeds it
}

func (b *scriptBuilder) statement(stmt qscript.Statement) {
	text := stmt.Text

	if name, ok := qscript.ParseConnect(text); ok {
		b.flushPending()
		b.conn = &activeConnection{name: name, kind: qscript.DetectConnectionKind(name)}
		b.logger.Debug("script connect", "connection", name, "kind", b.conn.kind)
		return
	}

	if name, value, _, ok := qscript.ParseSetLet(text); ok {
		b.model.Variables = append(b.model.Variables, core.Variable{
			Name:       name,
			Definition: value,
			IsReserved: IsReservedVariable(name),
		})
		return
	}

	if load, ok := qscript.ParseLoad(text); ok {
		b.load(load, stmt.Line)
		return
	}

	label, rest := qscript.SplitLabel(text)
	if query, ok := qscript.ParseSQL(rest); ok {
		b.sql(label, query)
		return
	}

	if m := dropTableRe.FindStringSubmatch(text); m != nil {
		b.flushPending()
		for _, name := range strings.Split(m[1], ",") {
			b.drop(trimScriptName(name))
		}
		return
	}

	if m := renameTableRe.FindStringSubmatch(text); m != nil {
		b.flushPending()
		b.rename(trimScriptName(m[1]), trimScriptName(m[2]))
		return
	}
}

func (b *scriptBuilder) load(load *qscript.LoadStmt, line int) {
	cols := fieldsToColumns(load.Fields, load.Source)

	// An anonymous load with a source right after a sourceless labeled
	// load is a preceding-load chain: the earlier statement keeps its
	// field list and this one supplies the source.
	if b.pending != nil && load.Table == "" && load.Source.Mode != "" && !load.Mapping {
		b.pending.Source = b.sourceRef(load.Source)
		b.pending.Mode = loadMode(load.Source.Mode)
		if hasStar(b.pending.Columns) {
			mergeColumns(b.pending, cols)
		}
		b.commit(b.pending)
		b.pending = nil
		return
	}
	b.flushPending()

	if load.Concatenate {
		target := b.concatTarget(load.ConcatTarget)
		if target == nil {
			b.warnf("line %d: CONCATENATE has no target table", line)
			return
		}
		mergeColumns(target, cols)
		return
	}

	t := &core.Table{
		Name:    load.Table,
		Columns: cols,
		Mode:    loadMode(load.Source.Mode),
	}
	if load.Mapping {
		t.Mode = core.LoadModeMapping
	}

	if load.Source.Mode == "" {
		// Preceding load or SQL-fed load; the next statement resolves it.
		b.pending = t
		return
	}

	t.Source = b.sourceRef(load.Source)
	if t.Name == "" {
		t.Name = deriveTableName(load.Source, len(b.tables))
	}
	b.commit(t)
}

func (b *scriptBuilder) sql(label, query string) {
	src := b.sqlSourceRef(query)

	if b.pending != nil {
		b.pending.Source = src
		b.pending.Mode = core.LoadModeFile
		b.commit(b.pending)
		b.pending = nil
		return
	}

	t := &core.Table{Name: label, Mode: core.LoadModeFile, Source: src}
	for _, f := range qscript.SplitFields(selectList(query)) {
		if f.Star {
			continue
		}
		t.Columns = append(t.Columns, core.Column{
			Name:       f.Name,
			Type:       InferType(f.Name, f.Expression),
			Expression: f.Expression,
		})
	}
	if t.Name == "" {
		t.Name = deriveSQLTableName(query, len(b.tables))
	}
	b.commit(t)
}

// commit adds a table, folding a duplicate label into the existing table
// the way the Qlik engine auto-concatenates same-named loads.
func (b *scriptBuilder) commit(t *core.Table) {
	for _, existing := range b.tables {
		if strings.EqualFold(existing.Name, t.Name) {
			mergeColumns(existing, t.Columns)
			return
		}
	}
	b.tables = append(b.tables, t)
}

func (b *scriptBuilder) flushPending() {
	if b.pending == nil {
		return
	}
	b.warnf("table %q: load has no source clause and no statement feeds it", b.pending.Name)
	b.commit(b.pending)
	b.pending = nil
}

func (b *scriptBuilder) drop(name string) {
	kept := b.tables[:0]
	for _, t := range b.tables {
		if !strings.EqualFold(t.Name, name) {
			kept = append(kept, t)
		}
	}
	b.tables = kept
}

func (b *scriptBuilder) rename(from, to string) {
	for _, t := range b.tables {
		if strings.EqualFold(t.Name, from) {
			t.Name = to
		}
	}
}

func (b *scriptBuilder) concatTarget(name string) *core.Table {
	if name != "" {
		for _, t := range b.tables {
			if strings.EqualFold(t.Name, name) {
				return t
			}
		}
		return nil
	}
	if len(b.tables) == 0 {
		return nil
	}
	return b.tables[len(b.tables)-1]
}

func (b *scriptBuilder) warnf(format string, args ...any) {
	b.model.Warnings = append(b.model.Warnings, fmt.Sprintf(format, args...))
}

func (b *scriptBuilder) finish() *ScriptModel {
	b.flushPending()
	for _, t := range b.tables {
		b.model.Tables = append(b.model.Tables, *t)
	}
	b.model.Associations = inferAssociations(b.model.Tables)

	b.logger.Debug("script analyzed",
		"tables", len(b.model.Tables),
		"variables", len(b.model.Variables),
		"associations", len(b.model.Associations),
		"warnings", len(b.model.Warnings))
	return b.model
}

func (b *scriptBuilder) sourceRef(src qscript.Source) *core.SourceRef {
	switch src.Mode {
	case "from":
		return &core.SourceRef{
			Kind:     qscript.DetectFileKind(src.Location, src.Format),
			Location: src.Location,
			Format:   src.Format,
		}
	case "resident":
		return &core.SourceRef{Kind: qscript.KindResident, Location: src.Location}
	case "inline":
		return &core.SourceRef{Kind: qscript.KindInline, Location: src.InlineData}
	case "autogenerate":
		return &core.SourceRef{Kind: qscript.KindAutogenerate, Location: src.Rows}
	}
	return nil
}

// sqlSourceRef builds a database source from a passthrough query. Simple
// projections become a table reference; anything with joins or filters
// travels whole in Location with Format "query" so connectors wrap it as
// a native query.
func (b *scriptBuilder) sqlSourceRef(query string) *core.SourceRef {
	ref := &core.SourceRef{Kind: qscript.KindODBC, Format: "query", Location: query}
	if b.conn != nil {
		ref.Kind = b.conn.kind
		ref.Database = b.conn.name
	}
	if !simpleSelect(query) {
		return ref
	}

	if m := sqlFromRe.FindStringSubmatch(query); m != nil {
		parts := splitQualified(m[1])
		ref.Format = ""
		switch len(parts) {
		case 1:
			ref.Location = parts[0]
		case 2:
			ref.Schema = parts[0]
			ref.Location = parts[1]
		default:
			ref.Database = parts[0]
			ref.Schema = parts[1]
			ref.Location = parts[2]
		}
	}
	return ref
}

// simpleSelect reports whether query is a plain projection over a single
// object.
func simpleSelect(query string) bool {
	l := " " + strings.ToLower(query) + " "
	for _, kw := range []string{" where ", " join ", " group ", " union ", " having ", " order "} {
		if strings.Contains(l, kw) {
			return false
		}
	}
	return true
}

// fieldsToColumns converts a parsed field list. A star entry contributes
// the inline header columns when the source is inline; otherwise it stays
// a marker merged away once real columns arrive.
func fieldsToColumns(fields []qscript.Field, src qscript.Source) []core.Column {
	var cols []core.Column
	for _, f := range fields {
		if f.Star {
			if src.Mode == "inline" {
				cols = append(cols, inlineHeaderColumns(src.InlineData)...)
			} else {
				cols = append(cols, core.Column{Name: "*"})
			}
			continue
		}
		cols = append(cols, core.Column{
			Name:       f.Name,
			Type:       InferType(f.Name, f.Expression),
			Expression: f.Expression,
		})
	}
	return cols
}

// inlineHeaderColumns reads column names from the first line of an inline
// data block.
func inlineHeaderColumns(data string) []core.Column {
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sep := ","
		if strings.Contains(line, "\t") && !strings.Contains(line, ",") {
			sep = "\t"
		}
		var cols []core.Column
		for _, name := range strings.Split(line, sep) {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			cols = append(cols, core.Column{Name: name, Type: InferType(name, "")})
		}
		return cols
	}
	return nil
}

// splitQualified splits schema-qualified identifiers, honoring [bracketed]
// and "quoted" parts.
func splitQualified(ident string) []string {
	var parts []string
	var cur strings.Builder
	var inBracket, inQuote bool
	for _, r := range ident {
		switch {
		case inBracket:
			if r == ']' {
				inBracket = false
			} else {
				cur.WriteRune(r)
			}
		case inQuote:
			if r == '"' {
				inQuote = false
			} else {
				cur.WriteRune(r)
			}
		default:
			switch r {
			case '[':
				inBracket = true
			case '"':
				inQuote = true
			case '.':
				parts = append(parts, strings.TrimSpace(cur.String()))
				cur.Reset()
			default:
				cur.WriteRune(r)
			}
		}
	}
	parts = append(parts, strings.TrimSpace(cur.String()))
	return parts
}

// selectList returns the column list of a SELECT query, "" when the query
// has no recognizable shape.
func selectList(query string) string {
	lower := strings.ToLower(query)
	sel := strings.Index(lower, "select")
	if sel < 0 {
		return ""
	}
	rest := query[sel+len("select"):]
	lowerRest := lower[sel+len("select"):]
	if from := strings.Index(lowerRest, " from "); from >= 0 {
		rest = rest[:from]
	}
	rest = strings.TrimSpace(rest)
	if len(rest) > 9 && strings.EqualFold(rest[:9], "distinct ") {
		rest = rest[9:]
	}
	return rest
}

func loadMode(mode string) core.LoadMode {
	switch mode {
	case "inline":
		return core.LoadModeInline
	case "resident":
		return core.LoadModeResident
	case "autogenerate":
		return core.LoadModeAutogenerate
	default:
		return core.LoadModeFile
	}
}

// mergeColumns unions incoming columns into t by name, dropping any
// leftover star markers once real columns exist.
func mergeColumns(t *core.Table, cols []core.Column) {
	for _, c := range cols {
		if c.Name == "*" {
			continue
		}
		if t.HasColumn(c.Name) {
			continue
		}
		t.Columns = append(t.Columns, c)
	}
	if len(t.Columns) > 1 {
		kept := t.Columns[:0]
		for _, c := range t.Columns {
			if c.Name != "*" {
				kept = append(kept, c)
			}
		}
		t.Columns = kept
	}
}

func hasStar(cols []core.Column) bool {
	for _, c := range cols {
		if c.Name == "*" {
			return true
		}
	}
	return false
}

func trimScriptName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	s = strings.TrimSuffix(strings.TrimPrefix(s, `"`), `"`)
	return strings.TrimSpace(s)
}

// deriveTableName names an unlabeled load. File loads take the file's
// base name, the rest are numbered.
func deriveTableName(src qscript.Source, n int) string {
	if src.Mode == "from" {
		base := path.Base(strings.ReplaceAll(src.Location, "\\", "/"))
		if ext := path.Ext(base); ext != "" {
			base = base[:len(base)-len(ext)]
		}
		if base != "" && base != "." && base != "/" {
			return base
		}
	}
	if src.Mode == "resident" && src.Location != "" {
		return src.Location + "_copy"
	}
	return fmt.Sprintf("Table%d", n+1)
}

func deriveSQLTableName(query string, n int) string {
	if m := sqlFromRe.FindStringSubmatch(query); m != nil {
		parts := splitQualified(m[1])
		return parts[len(parts)-1]
	}
	return fmt.Sprintf("Table%d", n+1)
}

// inferAssociations pairs tables that share field names. Qlik associates
// on exact field-name equality, so the comparison is case-sensitive.
// Mapping tables never associate.
func inferAssociations(tables []core.Table) []core.Association {
	var assocs []core.Association
	for i := 0; i < len(tables); i++ {
		if tables[i].Mode == core.LoadModeMapping {
			continue
		}
		for j := i + 1; j < len(tables); j++ {
			if tables[j].Mode == core.LoadModeMapping {
				continue
			}
			shared := sharedFields(tables[i], tables[j])
			if len(shared) == 0 {
				continue
			}
			assocs = append(assocs, core.Association{
				TableA: tables[i].Name,
				TableB: tables[j].Name,
				Fields: shared,
			})
		}
	}
	return assocs
}

func sharedFields(a, b core.Table) []string {
	names := make(map[string]bool, len(a.Columns))
	for _, c := range a.Columns {
		if c.Name != "*" {
			names[c.Name] = true
		}
	}
	var shared []string
	for _, c := range b.Columns {
		if names[c.Name] {
			shared = append(shared, c.Name)
		}
	}
	return shared
}
