// Package qscript parses Qlik load-script text into statements and
// statement shapes. It is a pattern-matching parser over statement text,
// not a grammar: the extractor uses it to derive tables and variables, and
// the script transpiler uses it to rewrite statements. Unrecognized
// statements stay available verbatim so callers can pass them through.
package qscript

import "strings"

// Statement is one semicolon-terminated script statement.
type Statement struct {
	// Text is the statement text without the terminating semicolon,
	// trimmed of surrounding whitespace. Comment-only fragments between
	// statements are emitted as their own Statement with IsComment set.
	Text string
	// Line is the 1-based line the statement starts on.
	Line int
	// IsComment marks a fragment that contains only comments.
	IsComment bool
}

// Split scans script into statements. The scanner is quote- and
// bracket-aware: semicolons inside single/double quotes, [bracketed]
// names, inline data blocks, and // or /* */ comments do not terminate a
// statement. Comment runs between statements come back with IsComment set
// so rewriters can preserve them. REM remarks terminate at the semicolon
// like any other statement.
func Split(script string) []Statement {
	var stmts []Statement
	var cur strings.Builder

	line := 1
	startLine := 1
	started := false

	var inSingle, inDouble, inLineComment, inBlockComment bool
	bracketDepth := 0

	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' {
			line++
			inLineComment = false
		}

		if !started && !isSpace(r) {
			started = true
			startLine = line
		}

		switch {
		case inLineComment:
			// fall through to write
		case inBlockComment:
			if r == '*' && i+1 < len(runes) && runes[i+1] == '/' {
				inBlockComment = false
				cur.WriteRune(r)
				cur.WriteRune(runes[i+1])
				i++
				continue
			}
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
				bracketDepth = 1
			case '/':
				if i+1 < len(runes) {
					if runes[i+1] == '/' {
						inLineComment = true
					} else if runes[i+1] == '*' {
						inBlockComment = true
					}
				}
			case ';':
				stmts = emit(stmts, cur.String(), startLine)
				cur.Reset()
				started = false
				continue
			}
		}

		cur.WriteRune(r)
	}

	stmts = emit(stmts, cur.String(), startLine)
	return stmts
}

// emit appends the statement chunk, peeling leading blank and // comment
// lines into a separate comment statement first. Block comments stay
// attached to the statement they precede.
func emit(stmts []Statement, chunk string, startLine int) []Statement {
	text := strings.TrimSpace(chunk)
	if text == "" {
		return stmts
	}

	lines := strings.Split(text, "\n")
	cut := 0
	for cut < len(lines) {
		t := strings.TrimSpace(lines[cut])
		if t != "" && !strings.HasPrefix(t, "//") {
			break
		}
		cut++
	}

	if cut > 0 && cut < len(lines) {
		lead := strings.TrimSpace(strings.Join(lines[:cut], "\n"))
		stmts = append(stmts, Statement{Text: lead, Line: startLine, IsComment: true})
		text = strings.TrimSpace(strings.Join(lines[cut:], "\n"))
		startLine += cut
	}

	return append(stmts, Statement{
		Text:      text,
		Line:      startLine,
		IsComment: commentOnly(text),
	})
}

// commentOnly reports whether every non-blank line of text is a comment.
func commentOnly(text string) bool {
	inBlock := false
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		if inBlock {
			if strings.Contains(ln, "*/") {
				rest := strings.TrimSpace(ln[strings.Index(ln, "*/")+2:])
				if rest != "" {
					return false
				}
				inBlock = false
			}
			continue
		}
		switch {
		case strings.HasPrefix(ln, "//"):
		case strings.HasPrefix(strings.ToUpper(ln), "REM "):
		case strings.HasPrefix(ln, "/*"):
			if !strings.Contains(ln, "*/") {
				inBlock = true
			} else if rest := strings.TrimSpace(ln[strings.Index(ln, "*/")+2:]); rest != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}
