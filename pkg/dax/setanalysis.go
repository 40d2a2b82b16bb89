package dax

import (
	"strconv"
	"strings"
)

// Set analysis and the TOTAL qualifier restructure an aggregation call
// into CALCULATE with filter arguments:
//
//	Sum({<Year={2024}>} Sales)  ->  CALCULATE(SUM('T'[Sales]), 'T'[Year] = 2024)
//	Sum({1<Year={2024}>} Sales) ->  CALCULATE(SUM('T'[Sales]), ALL('T'), 'T'[Year] = 2024)
//	Count({$<Year=>} Distinct C) -> CALCULATE(DISTINCTCOUNT('T'[C]), REMOVEFILTERS('T'[Year]))
//	Sum(TOTAL Sales)            ->  CALCULATE(SUM('T'[Sales]), ALLSELECTED())

func (t *Transpiler) convertSetAnalysis(expr string) string {
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
			b.WriteString(expr[i:j])
			i = j
			continue
		}
		p := skipSpaces(expr, k+1)
		if p >= len(expr) || expr[p] != '{' {
			b.WriteString(expr[i : k+1])
			i = k + 1
			continue
		}
		braceEnd := matchBrace(expr, p)
		close := matchParen(expr, k)
		if braceEnd < 0 || close < 0 || braceEnd > close {
			b.WriteString(expr[i : k+1])
			i = k + 1
			continue
		}
		setExpr := expr[p+1 : braceEnd]
		field := strings.TrimSpace(expr[braceEnd+1 : close])
		b.WriteString(t.buildCalculate(name, setExpr, field))
		t.report.RecordMapped(name)
		i = close + 1
	}
	return b.String()
}

func (t *Transpiler) buildCalculate(aggName, setExpr, field string) string {
	hasAll := strings.HasPrefix(strings.TrimSpace(setExpr), "1")

	var totaled bool
	field, totaled = stripTotal(field)

	distinct := false
	if len(field) >= 9 && strings.EqualFold(field[:9], "distinct ") {
		distinct = true
		field = strings.TrimSpace(field[9:])
	}

	agg := t.mapAggregation(aggName, field, distinct)
	parts := []string{agg}
	if hasAll {
		parts = append(parts, "ALL("+t.qualifiedTable()+")")
	}
	if totaled {
		parts = append(parts, "ALLSELECTED()")
	}
	parts = append(parts, t.parseSetModifiers(setExpr)...)

	if len(parts) == 1 {
		return agg
	}
	return "CALCULATE(" + strings.Join(parts, ", ") + ")"
}

// convertTotal handles the TOTAL qualifier outside set analysis.
func (t *Transpiler) convertTotal(expr string) string {
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
			b.WriteString(expr[i:j])
			i = j
			continue
		}
		close := matchParen(expr, k)
		inner := ""
		if close > 0 {
			inner = strings.TrimSpace(expr[k+1 : close])
		}
		stripped, totaled := stripTotal(inner)
		if close < 0 || !totaled {
			b.WriteString(expr[i : k+1])
			i = k + 1
			continue
		}
		distinct := false
		if len(stripped) >= 9 && strings.EqualFold(stripped[:9], "distinct ") {
			distinct = true
			stripped = strings.TrimSpace(stripped[9:])
		}
		agg := t.mapAggregation(name, stripped, distinct)
		b.WriteString("CALCULATE(" + agg + ", ALLSELECTED())")
		t.report.RecordMapped(name)
		i = close + 1
	}
	return b.String()
}

// stripTotal removes a leading TOTAL token with its optional <Field, ...>
// dimension list and reports whether one was present.
func stripTotal(field string) (string, bool) {
	if len(field) < 5 || !strings.EqualFold(field[:5], "total") {
		return field, false
	}
	rest := field[5:]
	if rest != "" && isIdentByte(rest[0]) {
		return field, false
	}
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "<") {
		if end := strings.IndexByte(rest, '>'); end >= 0 {
			rest = strings.TrimSpace(rest[end+1:])
		}
	}
	return rest, true
}

// mapAggregation qualifies the operand and renames the aggregation.
// Unknown aggregation names keep their spelling uppercased so the result
// reads as DAX even when unverified.
func (t *Transpiler) mapAggregation(name, field string, distinct bool) string {
	qualified := t.qualifyField(field)
	rw, ok := aggregationRewrites[strings.ToLower(name)]
	if !ok {
		return strings.ToUpper(name) + "(" + qualified + ")"
	}
	fn := rw.name
	if distinct {
		if rw.distinct != "" {
			fn = rw.distinct
		} else {
			fn = "DISTINCTCOUNT"
		}
	}
	return fn + "(" + qualified + rw.trailingArgs + ")"
}

// qualifyField turns a bare field name into 'Table'[Field] when a table
// context is set. Expressions and already-qualified references pass
// through unchanged.
func (t *Transpiler) qualifyField(field string) string {
	field = strings.TrimSpace(field)
	if t.table == "" || field == "" {
		return field
	}
	name := trimBrackets(field)
	for i := 0; i < len(name); i++ {
		if !isIdentByte(name[i]) && name[i] != ' ' {
			return field
		}
	}
	if strings.ContainsAny(name, ".#") {
		return field
	}
	return "'" + t.table + "'[" + name + "]"
}

func (t *Transpiler) qualifiedTable() string {
	if t.table == "" {
		return "'Table'"
	}
	return "'" + t.table + "'"
}

// parseSetModifiers turns <Field={values}, Field=> modifiers into
// CALCULATE filter arguments. Advanced modifier forms (search strings,
// P()/E() element functions, += operators) are skipped; the
// surrounding call still converts and the filters are simply absent.
func (t *Transpiler) parseSetModifiers(setExpr string) []string {
	s := strings.TrimSpace(setExpr)
	s = strings.TrimLeft(s, "$01 \t")
	s = strings.TrimPrefix(s, "<")
	s = strings.TrimSuffix(strings.TrimSpace(s), ">")
	if strings.TrimSpace(s) == "" {
		return nil
	}

	tbl := t.qualifiedTable()
	var filters []string
	for _, part := range splitArgs(s) {
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			continue
		}
		field := strings.TrimSpace(part[:eq])
		if field == "" || strings.ContainsAny(field, "+-*/") {
			continue
		}
		field = trimBrackets(field)
		value := strings.TrimSpace(part[eq+1:])

		if value == "" {
			filters = append(filters, "REMOVEFILTERS("+tbl+"["+field+"])")
			continue
		}
		if !strings.HasPrefix(value, "{") || !strings.HasSuffix(value, "}") {
			continue
		}
		values := splitArgs(value[1 : len(value)-1])
		var terms []string
		for _, v := range values {
			v = trimSetValue(v)
			if v == "" {
				continue
			}
			terms = append(terms, tbl+"["+field+"] = "+formatSetValue(v))
		}
		switch len(terms) {
		case 0:
			filters = append(filters, "REMOVEFILTERS("+tbl+"["+field+"])")
		case 1:
			filters = append(filters, terms[0])
		default:
			filters = append(filters, "("+strings.Join(terms, " || ")+")")
		}
	}
	return filters
}

func trimSetValue(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

func formatSetValue(v string) string {
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v
	}
	return `"` + v + `"`
}

// convertAggr rewrites Aggr(expr, dims...) into a summarized column scan.
func (t *Transpiler) convertAggr(expr string) string {
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
		if !strings.EqualFold(name, "aggr") || k >= len(expr) || expr[k] != '(' {
			b.WriteString(expr[i:j])
			i = j
			continue
		}
		close := matchParen(expr, k)
		if close < 0 {
			b.WriteString(expr[i:])
			return b.String()
		}
		args := splitArgs(expr[k+1 : close])
		if len(args) < 2 {
			t.report.RecordUnconverted(name)
			b.WriteString(expr[i : close+1])
			i = close + 1
			continue
		}
		dims := make([]string, 0, len(args)-1)
		for _, d := range args[1:] {
			dims = append(dims, t.qualifyField(d))
		}
		b.WriteString("ADDCOLUMNS(SUMMARIZE(" + t.qualifiedTable() + ", " +
			strings.Join(dims, ", ") + `), "@value", ` + t.convertAggr(args[0]) + ")")
		t.report.RecordMapped(name)
		i = close + 1
	}
	return b.String()
}
