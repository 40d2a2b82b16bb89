package core

// Sheet is a UI sheet holding positioned visuals. One sheet becomes one
// report page.
type Sheet struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	// Rank is the sheet's position in the application's sheet order.
	Rank    int      `json:"rank"`
	Visuals []Visual `json:"visuals,omitempty"`
}

// Visual is a single chart/object on a sheet.
type Visual struct {
	ID string `json:"id"`
	// Type is the source visual type tag (barchart, kpi, table, ...).
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
	// Dimensions and Measures are the bound field/expression references,
	// in binding order.
	Dimensions []string `json:"dimensions,omitempty"`
	Measures   []string `json:"measures,omitempty"`
	// Position is the cell on the sheet's layout grid.
	Position GridPosition `json:"position"`
	// Sort is the explicit sort order, when authored.
	Sort []SortField `json:"sort,omitempty"`
	// Filters are visual-scope field filters.
	Filters []FieldFilter `json:"filters,omitempty"`
	// ConditionalFormats are value-driven formatting rules.
	ConditionalFormats []ConditionalFormat `json:"conditional_formats,omitempty"`
	// DrillTarget names the sheet a drill-through action points at.
	DrillTarget string `json:"drill_target,omitempty"`
	// TooltipRef names the sheet used as a custom tooltip.
	TooltipRef string `json:"tooltip_ref,omitempty"`
	// NavigationTarget names the sheet a button navigates to.
	NavigationTarget string `json:"navigation_target,omitempty"`
}

// GridPosition locates a visual on the source's 24-column sheet grid.
type GridPosition struct {
	Row     int `json:"row"`
	Col     int `json:"col"`
	RowSpan int `json:"rowspan"`
	ColSpan int `json:"colspan"`
}

// SortField is one entry of a visual's sort order.
type SortField struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending,omitempty"`
}

// FieldFilter is a field with the values it is restricted to.
type FieldFilter struct {
	Field  string   `json:"field"`
	Values []string `json:"values,omitempty"`
}

// ConditionalFormat is a value-driven formatting rule on a visual.
type ConditionalFormat struct {
	Field string `json:"field"`
	// Operator is the comparison (gt, lt, eq, between).
	Operator string `json:"operator"`
	Value    string `json:"value"`
	// Value2 is the upper bound for "between".
	Value2 string `json:"value2,omitempty"`
	Color  string `json:"color"`
}
