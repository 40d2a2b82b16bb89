package report

import "strings"

// visualTypes maps source visualization tags to target visual types. Tags
// are matched lowercased. Anything absent falls back to a generic table
// with a review flag.
var visualTypes = map[string]string{
	// Bar charts
	"barchart":            "clusteredBarChart",
	"bar":                 "clusteredBarChart",
	"stackedbarchart":     "stackedBarChart",
	"stacked-bar":         "stackedBarChart",
	"100stackedbarchart":  "hundredPercentStackedBarChart",
	"100-stacked-bar":     "hundredPercentStackedBarChart",
	"clusteredbarchart":   "clusteredBarChart",

	// Column charts
	"columnchart":           "clusteredColumnChart",
	"column":                "clusteredColumnChart",
	"stackedcolumnchart":    "stackedColumnChart",
	"stacked-column":        "stackedColumnChart",
	"100stackedcolumnchart": "hundredPercentStackedColumnChart",
	"100-stacked-column":    "hundredPercentStackedColumnChart",
	"histogram":             "clusteredColumnChart",
	"clusteredcolumnchart":  "clusteredColumnChart",

	// Line and area
	"linechart":            "lineChart",
	"line":                 "lineChart",
	"sparkline":            "lineChart",
	"areachart":            "areaChart",
	"area":                 "areaChart",
	"stackedareachart":     "stackedAreaChart",
	"stacked-area":         "stackedAreaChart",
	"100stackedareachart":  "hundredPercentStackedAreaChart",

	// Combo
	"combo":                           "lineStackedColumnComboChart",
	"combochart":                      "lineStackedColumnComboChart",
	"linecolumnchart":                 "lineStackedColumnComboChart",
	"lineclusteredcolumncombochart":   "lineClusteredColumnComboChart",
	"linestackedcolumncombochart":     "lineStackedColumnComboChart",

	// Pie, donut, funnel
	"piechart":    "pieChart",
	"pie":         "pieChart",
	"donutchart":  "donutChart",
	"donut":       "donutChart",
	"funnel":      "funnel",
	"funnelchart": "funnel",

	// Scatter and bubble
	"scatter":          "scatterChart",
	"scatterplot":      "scatterChart",
	"scatterchart":     "scatterChart",
	"bubble":           "scatterChart",
	"bubblechart":      "scatterChart",
	"distributionplot": "scatterChart",
	"correlationplot":  "scatterChart",
	"densityplot":      "scatterChart",

	// Maps
	"map":       "map",
	"geomap":    "map",
	"filledmap": "filledMap",
	"shapemap":  "shapeMap",
	"azuremap":  "azureMap",

	// Tables and matrices
	"table":          "tableEx",
	"straight-table": "tableEx",
	"straighttable":  "tableEx",
	"tableex":        "tableEx",
	"pivot-table":    "pivotTable",
	"pivottable":     "pivotTable",
	"pivot":          "pivotTable",
	"matrix":         "pivotTable",

	// KPI, card, gauge
	"kpi":          "card",
	"card":         "card",
	"multirowcard": "multiRowCard",
	"multi-kpi":    "multiRowCard",
	"gauge":        "gauge",
	"meter":        "gauge",

	// Hierarchies
	"treemap":           "treemap",
	"sunburst":          "sunburst",
	"decompositiontree": "decompositionTree",

	// Waterfall, box, bullet
	"waterfall":       "waterfallChart",
	"waterfallchart":  "waterfallChart",
	"boxplot":         "boxAndWhisker",
	"box-and-whisker": "boxAndWhisker",
	"bullet":          "bulletChart",
	"bulletchart":     "bulletChart",

	// Text, image, buttons
	"text-image":   "textbox",
	"textbox":      "textbox",
	"text":         "textbox",
	"image":        "image",
	"container":    "actionButton",
	"tabcontainer": "actionButton",
	"button":       "actionButton",
	"actionbutton": "actionButton",

	// Filtering
	"filterpane": "slicer",
	"slicer":     "slicer",
	"listbox":    "slicer",

	// Specialty
	"wordcloud":    "wordCloud",
	"word-cloud":   "wordCloud",
	"ribbonchart":  "ribbonChart",
	"ribbon":       "ribbonChart",
	"mekko":        "stackedBarChart",
	"mekkochart":   "stackedBarChart",
	"sankey":       "sankeyDiagram",
	"networkgraph": "forceGraph",
}

// fallbackVisualType is used for tags without a mapping.
const fallbackVisualType = "tableEx"

// ResolveVisualType maps a source visual tag to the target type. mapped is
// false when the tag fell back to the generic table.
func ResolveVisualType(tag string) (pbiType string, mapped bool) {
	if t, ok := visualTypes[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return t, true
	}
	return fallbackVisualType, false
}

// visualRoles lists, per target visual type, the data roles dimensions and
// measures project into, in binding order.
var visualRoles = map[string]struct {
	dims     []string
	measures []string
}{
	"card":                             {dims: nil, measures: []string{"Fields"}},
	"multiRowCard":                     {dims: nil, measures: []string{"Values"}},
	"clusteredBarChart":                {dims: []string{"Category"}, measures: []string{"Y"}},
	"stackedBarChart":                  {dims: []string{"Category", "Series"}, measures: []string{"Y"}},
	"hundredPercentStackedBarChart":    {dims: []string{"Category", "Series"}, measures: []string{"Y"}},
	"clusteredColumnChart":             {dims: []string{"Category"}, measures: []string{"Y"}},
	"stackedColumnChart":               {dims: []string{"Category", "Series"}, measures: []string{"Y"}},
	"hundredPercentStackedColumnChart": {dims: []string{"Category", "Series"}, measures: []string{"Y"}},
	"lineChart":                        {dims: []string{"Category"}, measures: []string{"Y"}},
	"areaChart":                        {dims: []string{"Category"}, measures: []string{"Y"}},
	"stackedAreaChart":                 {dims: []string{"Category", "Series"}, measures: []string{"Y"}},
	"hundredPercentStackedAreaChart":   {dims: []string{"Category", "Series"}, measures: []string{"Y"}},
	"pieChart":                         {dims: []string{"Category"}, measures: []string{"Y"}},
	"donutChart":                       {dims: []string{"Category"}, measures: []string{"Y"}},
	"waterfallChart":                   {dims: []string{"Category"}, measures: []string{"Y"}},
	"funnel":                           {dims: []string{"Category"}, measures: []string{"Y"}},
	"gauge":                            {dims: nil, measures: []string{"Y", "MinValue", "MaxValue", "TargetValue"}},
	"treemap":                          {dims: []string{"Group"}, measures: []string{"Values"}},
	"sunburst":                         {dims: []string{"Group"}, measures: []string{"Values"}},
	"scatterChart":                     {dims: []string{"Category", "Details"}, measures: []string{"X", "Y", "Size"}},
	"tableEx":                          {dims: []string{"Values"}, measures: []string{"Values"}},
	"pivotTable":                       {dims: []string{"Rows", "Columns"}, measures: []string{"Values"}},
	"slicer":                           {dims: []string{"Values"}, measures: nil},
	"lineStackedColumnComboChart":      {dims: []string{"Category"}, measures: []string{"ColumnY", "LineY"}},
	"lineClusteredColumnComboChart":    {dims: []string{"Category"}, measures: []string{"ColumnY", "LineY"}},
	"map":                              {dims: []string{"Category", "Location"}, measures: []string{"Size", "Color"}},
	"filledMap":                        {dims: []string{"Location"}, measures: []string{"Color"}},
	"ribbonChart":                      {dims: []string{"Category", "Series"}, measures: []string{"Y"}},
	"boxAndWhisker":                    {dims: []string{"Category", "Sampling"}, measures: []string{"Value"}},
	"bulletChart":                      {dims: []string{"Category"}, measures: []string{"Value", "TargetValue", "Minimum", "Maximum"}},
	"decompositionTree":                {dims: []string{"TreeItems"}, measures: []string{"Values"}},
	"wordCloud":                        {dims: []string{"Category"}, measures: []string{"Values"}},
	"textbox":                          {},
	"image":                            {},
	"actionButton":                     {},
}

// Aggregation function ids of the target query language.
const (
	AggSum          = 1
	AggMin          = 2
	AggMax          = 3
	AggCount        = 4
	AggCountNonNull = 5
	AggAverage      = 6
)

// aggFunctions maps source aggregation names to function ids.
var aggFunctions = map[string]int{
	"sum":          AggSum,
	"min":          AggMin,
	"max":          AggMax,
	"count":        AggCount,
	"countnonnull": AggCountNonNull,
	"avg":          AggAverage,
	"average":      AggAverage,
}
