// Package dax converts Qlik expression syntax into DAX measure and
// calculated-column formulas.
//
// The conversion is pattern-based rather than grammar-based: each phase
// walks the expression text with quote- and bracket-aware scanning and
// rewrites one concern (variable expansion, set analysis, the TOTAL
// qualifier, function names, inter-record functions). Constructs with no
// confident DAX counterpart stay in the output wrapped in a REVIEW marker
// comment and are recorded on the ConversionReport, so conversion coverage
// stays measurable and nothing is silently dropped.
package dax
