package dax

// How a source function call is rewritten. Lookups are by lowercased
// function name; the scanned name is preserved on the ConversionReport.
type mapKind int

const (
	// kindRename swaps the function name, keeping the argument list.
	kindRename mapKind = iota
	// kindLiteral replaces a zero-argument call with a fixed expression.
	kindLiteral
	// kindTemplate substitutes the split argument list into a template
	// where {0}, {1}, ... stand for the positional arguments.
	kindTemplate
	// kindReview has no confident DAX counterpart. The original call is
	// preserved in a REVIEW comment, followed by the fallback template,
	// and the function is recorded unconverted.
	kindReview
)

type funcMapping struct {
	kind     mapKind
	target   string
	minArgs  int // templates only; fewer arguments means review instead
	fallback string
}

func rename(target string) funcMapping  { return funcMapping{kind: kindRename, target: target} }
func literal(target string) funcMapping { return funcMapping{kind: kindLiteral, target: target} }
func template(target string, minArgs int) funcMapping {
	return funcMapping{kind: kindTemplate, target: target, minArgs: minArgs}
}
func review(fallback string) funcMapping {
	return funcMapping{kind: kindReview, fallback: fallback}
}

// functionMappings rewrites scalar and aggregation calls. Aggregations
// wrapped in set analysis or a TOTAL qualifier are restructured before
// this table applies, so by the time it runs every remaining call is a
// plain name-for-name rewrite or an argument template.
var functionMappings = map[string]funcMapping{
	// Conditional
	"if":       rename("IF"),
	"match":    rename("SWITCH"),
	"mixmatch": rename("SWITCH"),
	"pick":     rename("SWITCH"),
	"alt":      rename("COALESCE"),

	// Null handling and logic
	"isnull":       rename("ISBLANK"),
	"null":         literal("BLANK()"),
	"isnum":        rename("ISNUMBER"),
	"istext":       rename("ISTEXT"),
	"nullcount":    rename("COUNTBLANK"),
	"missingcount": rename("COUNTBLANK"),
	"not":          rename("NOT"),
	"true":         literal("TRUE()"),
	"false":        literal("FALSE()"),

	// Aggregation
	"sum":             rename("SUM"),
	"avg":             rename("AVERAGE"),
	"count":           rename("COUNT"),
	"countdistinct":   rename("DISTINCTCOUNT"),
	"min":             rename("MIN"),
	"max":             rename("MAX"),
	"median":          rename("MEDIAN"),
	"stdev":           rename("STDEV.S"),
	"only":            template("FIRSTNONBLANK({0}, 1)", 1),
	"fractile":        rename("PERCENTILE.INC"),
	"rangesum":        rename("SUMX"),
	"rangeavg":        rename("AVERAGEX"),
	"rangemin":        rename("MINX"),
	"rangemax":        rename("MAXX"),
	"firstsortedvalue": template("MINX(TOPN(1, {0}, {1}), {0})", 2),
	"correl":          review("0"),
	"skew":            review("{0}"),
	"mode": template(
		"MINX(TOPN(1, ADDCOLUMNS(VALUES({0}), \"@cnt\", CALCULATE(COUNTROWS(VALUES({0})))), [@cnt], DESC), {0})", 1),

	// Date and time
	"year":           rename("YEAR"),
	"month":          rename("MONTH"),
	"day":            rename("DAY"),
	"hour":           rename("HOUR"),
	"minute":         rename("MINUTE"),
	"second":         rename("SECOND"),
	"weekday":        rename("WEEKDAY"),
	"week":           rename("WEEKNUM"),
	"weekyear":       rename("WEEKNUM"),
	"today":          literal("TODAY()"),
	"now":            literal("NOW()"),
	"reloadtime":     literal("NOW()"),
	"date":           rename("DATE"),
	"makedate":       rename("DATE"),
	"maketime":       rename("TIME"),
	"time":           rename("TIME"),
	"date#":          rename("DATEVALUE"),
	"timestamp#":     rename("DATEVALUE"),
	"timestamp":      rename("VALUE"),
	"monthstart":     rename("STARTOFMONTH"),
	"monthend":       rename("ENDOFMONTH"),
	"monthname":      template("FORMAT({0}, \"MMMM\")", 1),
	"yearstart":      rename("STARTOFYEAR"),
	"yearend":        rename("ENDOFYEAR"),
	"quarterstart":   rename("STARTOFQUARTER"),
	"quarterend":     rename("ENDOFQUARTER"),
	"quartername":    template("FORMAT({0}, \"\\QQ YYYY\")", 1),
	"weekstart":      template("DATE(YEAR({0}), 1, 1) + (WEEKNUM({0}) - 1) * 7", 1),
	"weekend":        template("DATE(YEAR({0}), 1, 1) + WEEKNUM({0}) * 7 - 1", 1),
	"addmonths":      rename("EDATE"),
	"addyears":       template("DATE(YEAR({0}) + {1}, MONTH({0}), DAY({0}))", 2),
	"yeartodate":     template("TOTALYTD({0}, {0})", 1),
	"inyear":         template("YEAR({0}) = YEAR({1})", 2),
	"inyeartodate":   template("{0} <= {1} && YEAR({0}) = YEAR({1})", 2),
	"inmonth":        template("YEAR({0}) = YEAR({1}) && MONTH({0}) = MONTH({1})", 2),
	"inquarter":      template("YEAR({0}) = YEAR({1}) && QUARTER({0}) = QUARTER({1})", 2),
	"age":            template("DATEDIFF({0}, {1}, YEAR)", 2),
	"networkdays":    review("DATEDIFF({0}, {1}, DAY)"),
	"daynumberofyear": template("DATEDIFF(DATE(YEAR({0}), 1, 1), {0}, DAY) + 1", 1),

	// String
	"upper":          rename("UPPER"),
	"lower":          rename("LOWER"),
	"len":            rename("LEN"),
	"left":           rename("LEFT"),
	"right":          rename("RIGHT"),
	"mid":            rename("MID"),
	"trim":           rename("TRIM"),
	"ltrim":          rename("TRIM"),
	"rtrim":          rename("TRIM"),
	"replace":        rename("SUBSTITUTE"),
	"purgechar":      rename("SUBSTITUTE"),
	"repeat":         rename("REPT"),
	"ord":            rename("UNICODE"),
	"chr":            rename("UNICHAR"),
	"applymap":       rename("LOOKUPVALUE"),
	"wildmatch":      rename("CONTAINSSTRING"),
	"substringcount": template("(LEN({0}) - LEN(SUBSTITUTE({0}, {1}, \"\"))) / LEN({1})", 2),
	"capitalize":     template("UPPER(LEFT({0}, 1)) & LOWER(MID({0}, 2, LEN({0})))", 1),
	"textbetween": template(
		"MID({0}, SEARCH({1}, {0}) + LEN({1}), SEARCH({2}, {0}, SEARCH({1}, {0}) + LEN({1})) - SEARCH({1}, {0}) - LEN({1}))", 3),
	"keepchar":     review("{0}"),
	"subfield":     review("{0}"),
	"mapsubstring": review("{1}"),
	"evaluate":     review("{0}"),
	"hash128":      review("{0}"),
	"hash160":      review("{0}"),
	"hash256":      review("{0}"),

	// Math
	"abs":      rename("ABS"),
	"ceil":     rename("CEILING"),
	"floor":    rename("FLOOR"),
	"round":    rename("ROUND"),
	"sqrt":     rename("SQRT"),
	"log":      rename("LOG"),
	"log10":    rename("LOG10"),
	"exp":      rename("EXP"),
	"pow":      rename("POWER"),
	"mod":      rename("MOD"),
	"sign":     rename("SIGN"),
	"fact":     rename("FACT"),
	"combin":   rename("COMBIN"),
	"permut":   rename("PERMUT"),
	"div":      rename("DIVIDE"),
	"frac":     template("{0} - INT({0})", 1),
	"pi":       literal("PI()"),
	"rand":     literal("RAND()"),
	"sin":      rename("SIN"),
	"cos":      rename("COS"),
	"tan":      rename("TAN"),
	"asin":     rename("ASIN"),
	"acos":     rename("ACOS"),
	"atan":     rename("ATAN"),
	"atan2":    template("ATAN(DIVIDE({1}, {0}))", 2),
	"bitcount": review("0"),

	// Type conversion
	"num":      rename("VALUE"),
	"num#":     rename("VALUE"),
	"text":     rename("FORMAT"),
	"money":    template("FORMAT({0}, \"$#,0.00\")", 1),
	"dual":     template("VALUE({1})", 2),
	"interval": review("VALUE({0})"),
	"class": template(
		"INT(DIVIDE({0}, {1})) * {1} & \" - \" & (INT(DIVIDE({0}, {1})) + 1) * {1}", 2),

	// Statistical
	"norminv":  rename("NORM.INV"),
	"normdist": rename("NORM.DIST"),
	"chidist":  rename("CHISQ.DIST"),
	"chiinv":   rename("CHISQ.INV"),
	"tdist":    rename("T.DIST"),
	"tinv":     rename("T.INV"),
	"fdist":    rename("F.DIST"),
	"finv":     rename("F.INV"),

	// Session and document functions have no model-side meaning; they
	// collapse to stable placeholders so dependent expressions stay valid.
	"osuser":           literal("USERPRINCIPALNAME()"),
	"getactivesheetid": literal("\"__sheet__\""),
	"documentname":     literal("\"__document__\""),
	"documenttitle":    literal("\"__document__\""),
	"documentpath":     literal("\"__path__\""),
}

// aggregationRewrites builds the inner aggregation when set analysis or a
// TOTAL qualifier restructures a call into CALCULATE. Keys are lowercase;
// unknown aggregations keep their name uppercased.
var aggregationRewrites = map[string]struct {
	name         string
	distinct     string // used when the field carries a DISTINCT qualifier
	trailingArgs string
}{
	"sum":           {name: "SUM"},
	"avg":           {name: "AVERAGE"},
	"count":         {name: "COUNT", distinct: "DISTINCTCOUNT"},
	"countdistinct": {name: "DISTINCTCOUNT"},
	"min":           {name: "MIN"},
	"max":           {name: "MAX"},
	"median":        {name: "MEDIAN"},
	"stdev":         {name: "STDEV.S"},
	"fractile":      {name: "PERCENTILE.INC"},
	"only":          {name: "FIRSTNONBLANK", trailingArgs: ", 1"},
}

// interRecordFunctions depend on load or chart row order, which has no
// counterpart in a tabular model. Calls are preserved in a REVIEW comment
// and recorded unconverted.
var interRecordFunctions = map[string]bool{
	"above":    true,
	"below":    true,
	"top":      true,
	"bottom":   true,
	"before":   true,
	"after":    true,
	"peek":     true,
	"previous": true,
	"rowno":    true,
	"recno":    true,
	"iterno":   true,
	"fieldvalue": true,
}
