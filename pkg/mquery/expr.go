package mquery

import (
	"strings"
	"unicode"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
)

// exprConverter rewrites a Qlik field expression into the body of an M
// "each" function. Field references become record accesses, scalar calls
// are renamed through mFunctions, and literals are requoted.
type exprConverter struct {
	extra  map[string]mFunc
	report *core.ConversionReport
}

func (c *exprConverter) convert(expr string) string {
	var b strings.Builder
	i := 0
	for i < len(expr) {
		ch := expr[i]
		switch {
		case ch == '\'':
			// Qlik string literal; M uses double quotes.
			lit, next := scanQuoted(expr, i, '\'')
			b.WriteString(`"` + strings.ReplaceAll(lit, `"`, `""`) + `"`)
			i = next
		case ch == '"':
			// Quoted field reference.
			lit, next := scanQuoted(expr, i, '"')
			b.WriteString("[" + lit + "]")
			i = next
		case ch == '[':
			end := strings.IndexByte(expr[i:], ']')
			if end < 0 {
				b.WriteString(expr[i:])
				return b.String()
			}
			b.WriteString(expr[i : i+end+1])
			i += end + 1
		case isIdentStart(ch):
			name, next := scanWord(expr, i)
			j := skipBlanks(expr, next)
			if j < len(expr) && expr[j] == '(' {
				i = c.writeCall(&b, expr, name, j)
				continue
			}
			b.WriteString(c.bareWord(name))
			i = next
		default:
			b.WriteByte(ch)
			i++
		}
	}
	return b.String()
}

// writeCall emits the converted form of name(...) starting at the open
// paren and returns the index just past the closing paren.
func (c *exprConverter) writeCall(b *strings.Builder, expr, name string, open int) int {
	close := matchArgParen(expr, open)
	if close < 0 {
		b.WriteString(name)
		return open
	}
	args := splitCallArgs(expr[open+1 : close])
	for k, a := range args {
		args[k] = c.convert(strings.TrimSpace(a))
	}

	lower := strings.ToLower(name)
	m, ok := c.extra[lower]
	if !ok {
		m, ok = mFunctions[lower]
	}
	if !ok {
		c.report.RecordUnconverted(name)
		b.WriteString(name + "(" + strings.Join(args, ", ") + ")")
		return close + 1
	}
	c.report.RecordMapped(name)
	switch {
	case m.tpl != "":
		b.WriteString(fillArgTemplate(m.tpl, args))
	case m.lit != "":
		b.WriteString(m.lit)
	default:
		b.WriteString(m.name + "(" + strings.Join(args, ", ") + ")")
	}
	return close + 1
}

// bareWord maps a standalone identifier: keywords lowercase, everything
// else is treated as a column of the current row.
func (c *exprConverter) bareWord(name string) string {
	lower := strings.ToLower(name)
	if mKeywords[lower] {
		switch lower {
		case "like", "is", "as":
			// No M counterpart at this position; keep verbatim for review.
			return name
		}
		return lower
	}
	return "[" + name + "]"
}

func fillArgTemplate(tpl string, args []string) string {
	out := tpl
	for k, a := range args {
		out = strings.ReplaceAll(out, "{"+string(rune('0'+k))+"}", a)
	}
	// An IF without an else branch yields null.
	out = strings.ReplaceAll(out, "{2}", "null")
	return out
}

func scanQuoted(s string, start int, q byte) (string, int) {
	var b strings.Builder
	i := start + 1
	for i < len(s) {
		if s[i] == q {
			if i+1 < len(s) && s[i+1] == q {
				b.WriteByte(q)
				i += 2
				continue
			}
			return b.String(), i + 1
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String(), i
}

func scanWord(s string, start int) (string, int) {
	i := start
	for i < len(s) && (isIdentStart(s[i]) || s[i] >= '0' && s[i] <= '9' || s[i] == '#') {
		i++
	}
	return s[start:i], i
}

func skipBlanks(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch >= 0x80 || unicode.IsLetter(rune(ch))
}

// matchArgParen returns the index of the paren closing s[open], honoring
// nesting and both quote styles, or -1.
func matchArgParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '\'', '"':
			_, next := scanQuoted(s, i, s[i])
			i = next - 1
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitCallArgs splits on top-level commas.
func splitCallArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var args []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'', '"':
			_, next := scanQuoted(s, i, s[i])
			i = next - 1
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, s[start:i])
				start = i + 1
			}
		}
	}
	args = append(args, s[start:])
	return args
}
