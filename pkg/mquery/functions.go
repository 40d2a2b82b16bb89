package mquery

// mFunc describes how a scalar call inside a field expression or WHERE
// clause maps into the Power Query standard library.
type mFunc struct {
	// name is the M function for a plain rename; empty when tpl/lit apply.
	name string
	// tpl substitutes split arguments into {0}, {1}, ... placeholders.
	tpl string
	// lit replaces a zero-argument call outright.
	lit string
}

// mFunctions is keyed by lowercased source function name.
var mFunctions = map[string]mFunc{
	// Text
	"upper":    {name: "Text.Upper"},
	"lower":    {name: "Text.Lower"},
	"len":      {name: "Text.Length"},
	"trim":     {name: "Text.Trim"},
	"ltrim":    {name: "Text.TrimStart"},
	"rtrim":    {name: "Text.TrimEnd"},
	"subfield": {name: "Text.Split"},
	"left":     {name: "Text.Start"},
	"right":    {name: "Text.End"},
	"mid":      {name: "Text.Middle"},
	"replace":  {name: "Text.Replace"},
	"repeat":   {name: "Text.Repeat"},
	"chr":      {name: "Character.FromNumber"},
	"ord":      {name: "Character.ToNumber"},

	// Date and time
	"date":       {name: "Date.From"},
	"date#":      {name: "Date.FromText"},
	"today":      {lit: "Date.From(DateTime.LocalNow())"},
	"now":        {lit: "DateTime.LocalNow()"},
	"year":       {name: "Date.Year"},
	"month":      {name: "Date.Month"},
	"day":        {name: "Date.Day"},
	"hour":       {name: "Time.Hour"},
	"minute":     {name: "Time.Minute"},
	"second":     {name: "Time.Second"},
	"monthname":  {name: "Date.MonthName"},
	"weekday":    {name: "Date.DayOfWeek"},
	"week":       {name: "Date.WeekOfYear"},
	"yearstart":  {name: "Date.StartOfYear"},
	"yearend":    {name: "Date.EndOfYear"},
	"monthstart": {name: "Date.StartOfMonth"},
	"monthend":   {name: "Date.EndOfMonth"},
	"addmonths":  {name: "Date.AddMonths"},
	"addyears":   {name: "Date.AddYears"},

	// Numbers
	"round": {name: "Number.Round"},
	"floor": {name: "Number.RoundDown"},
	"ceil":  {name: "Number.RoundUp"},
	"abs":   {name: "Number.Abs"},
	"sqrt":  {name: "Number.Sqrt"},
	"exp":   {name: "Number.Exp"},
	"log":   {name: "Number.Log"},
	"mod":   {name: "Number.Mod"},
	"pow":   {name: "Number.Power"},
	"sign":  {name: "Number.Sign"},
	"num":   {name: "Number.From"},
	"num#":  {name: "Number.FromText"},
	"text":  {name: "Text.From"},
	"rand":  {lit: "Number.Random()"},

	// Conditionals and null handling. M has no IF function; the call form
	// becomes an if-then-else expression.
	"if":     {tpl: "if {0} then {1} else {2}"},
	"isnull": {tpl: "({0} = null)"},
	"null":   {lit: "null"},
	"alt":    {tpl: "(if {0} <> null then {0} else {1})"},

	// Aggregations appear in field expressions only through resident
	// GROUP BY loads; List forms are the closest M counterparts.
	"sum":   {name: "List.Sum"},
	"avg":   {name: "List.Average"},
	"count": {name: "List.Count"},
	"min":   {name: "List.Min"},
	"max":   {name: "List.Max"},
}

// mKeywords never turn into column references.
var mKeywords = map[string]bool{
	"if":    true,
	"then":  true,
	"else":  true,
	"each":  true,
	"and":   true,
	"or":    true,
	"not":   true,
	"true":  true,
	"false": true,
	"null":  true,
	"let":   true,
	"in":    true,
	"type":  true,
	"is":    true,
	"as":    true,
	"like":  true,
}
