package dax

import (
	"regexp"
	"strings"
)

// maxExpansionDepth bounds iterative variable substitution so cyclic
// definitions terminate with the residual reference left in place.
const maxExpansionDepth = 5

var variableRefRe = regexp.MustCompile(`\$\(([A-Za-z_][\w.]*)\)`)

// ExpandVariables substitutes $(name) references with their definitions,
// iterating so definitions may reference further variables. Expansion stops
// after maxExpansionDepth rounds or when a round changes nothing; unknown
// or still-cyclic references stay in the text unchanged. It never fails.
//
// Dollar expansions that are not plain variable references, such as
// $(=expression) evaluation or parameterized calls, are left untouched.
func ExpandVariables(expr string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(expr, "$(") {
		return expr
	}
	for depth := 0; depth < maxExpansionDepth; depth++ {
		replaced := false
		expr = variableRefRe.ReplaceAllStringFunc(expr, func(ref string) string {
			name := ref[2 : len(ref)-1]
			def, ok := vars[name]
			if !ok {
				return ref
			}
			replaced = true
			return def
		})
		if !replaced {
			break
		}
	}
	return expr
}
