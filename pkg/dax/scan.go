package dax

import "strings"

// Low-level text helpers shared by the conversion phases. Every phase walks
// expression text and must treat string literals, quoted table names,
// bracketed field references, and comments as opaque regions.

// skipRegion returns the index just past the opaque region opening at i and
// true, or (i, false) when s[i] does not open one. Regions are double-quoted
// strings (with "" escapes), single-quoted names ('' escapes), bracketed
// names, and both comment forms.
func skipRegion(s string, i int) (int, bool) {
	switch s[i] {
	case '"':
		return skipQuoted(s, i, '"'), true
	case '\'':
		return skipQuoted(s, i, '\''), true
	case '[':
		for j := i + 1; j < len(s); j++ {
			if s[j] == ']' {
				return j + 1, true
			}
		}
		return len(s), true
	case '/':
		if i+1 < len(s) && s[i+1] == '*' {
			if end := strings.Index(s[i+2:], "*/"); end >= 0 {
				return i + 2 + end + 2, true
			}
			return len(s), true
		}
		if i+1 < len(s) && s[i+1] == '/' {
			for j := i + 2; j < len(s); j++ {
				if s[j] == '\n' {
					return j, true
				}
			}
			return len(s), true
		}
	}
	return i, false
}

// skipQuoted advances past a quoted region where a doubled quote character
// is an escape, not a terminator.
func skipQuoted(s string, i int, quote byte) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != quote {
			continue
		}
		if j+1 < len(s) && s[j+1] == quote {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

// matchParen returns the index of the ')' closing the '(' at open, or -1.
func matchParen(s string, open int) int {
	return matchPair(s, open, '(', ')')
}

// matchBrace returns the index of the '}' closing the '{' at open, or -1.
func matchBrace(s string, open int) int {
	return matchPair(s, open, '{', '}')
}

func matchPair(s string, open int, lo, hi byte) int {
	depth := 0
	for i := open; i < len(s); {
		if j, ok := skipRegion(s, i); ok {
			i = j
			continue
		}
		switch s[i] {
		case lo:
			depth++
		case hi:
			depth--
			if depth == 0 {
				return i
			}
		}
		i++
	}
	return -1
}

// splitArgs splits s on top-level commas, honoring nested parentheses,
// braces, and opaque regions. Arguments come back trimmed; an all-blank
// input yields nil.
func splitArgs(s string) []string {
	var args []string
	depth := 0
	start := 0
	for i := 0; i < len(s); {
		if j, ok := skipRegion(s, i); ok {
			i = j
			continue
		}
		switch s[i] {
		case '(', '{':
			depth++
		case ')', '}':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
		i++
	}
	tail := strings.TrimSpace(s[start:])
	if tail != "" || len(args) > 0 {
		args = append(args, tail)
	}
	return args
}

// scanIdent reads the identifier starting at i, returning it and the index
// just past it. Qlik function names may carry a trailing '#' (Date#, Num#)
// and dotted forms appear in emitted DAX names (STDEV.S).
func scanIdent(s string, i int) (string, int) {
	j := i
	for j < len(s) && isIdentByte(s[j]) {
		j++
	}
	return s[i:j], j
}

func isIdentStart(b byte) bool {
	return b == '_' || b == '%' || b >= 0x80 ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentByte(b byte) bool {
	return isIdentStart(b) || b == '.' || b == '#' || (b >= '0' && b <= '9')
}

// skipSpaces returns the index of the first non-whitespace byte at or after i.
func skipSpaces(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			i++
		default:
			return i
		}
	}
	return i
}

// trimBrackets strips one surrounding [ ] pair from a field reference.
func trimBrackets(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' {
		return s[1 : len(s)-1]
	}
	return s
}
