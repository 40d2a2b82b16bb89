// Package report assembles converted sheets and visuals into report pages
// with validated field bindings. Every binding is resolved against the
// converted model before anything is emitted; a dangling reference is a
// hard error, never a silently dropped visual.
package report

import "fmt"

// Page dimensions in pixels.
const (
	PageWidth  = 1280
	PageHeight = 720

	TooltipPageWidth  = 480
	TooltipPageHeight = 320

	// gridColumns is the source layout grid width.
	gridColumns = 24
	// gridRowHeight is the pixel height of one source grid row.
	gridRowHeight = 50
)

// Page display option values.
const (
	PageTypeStandard     = ""
	PageTypeTooltip      = "Tooltip"
	PageTypeDrillthrough = "Drillthrough"
)

// Report is the assembled report definition.
type Report struct {
	Name  string `json:"name"`
	Pages []Page `json:"pages"`
	// ActivePage is the section name of the first standard page.
	ActivePage string `json:"active_page,omitempty"`
	// ThemeColors carries the source palette for the report theme file.
	ThemeColors []string `json:"theme_colors,omitempty"`
}

// Page is one report page.
type Page struct {
	// Name is the ordinal section name (ReportSection, ReportSection1, ...).
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Ordinal     int    `json:"ordinal"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	// Type marks tooltip and drill-through pages; standard pages leave it
	// empty.
	Type    string   `json:"type,omitempty"`
	Visuals []Visual `json:"visuals,omitempty"`
}

// Visual is one positioned visual container on a page.
type Visual struct {
	ID string `json:"id"`
	// Type is the resolved target visual type.
	Type string `json:"type"`
	// SourceType is the original tag, kept for traceability.
	SourceType string `json:"source_type,omitempty"`
	// Review marks visuals whose source tag had no mapping and fell back
	// to the generic table.
	Review   bool     `json:"review,omitempty"`
	Title    string   `json:"title,omitempty"`
	Position Position `json:"position"`
	// Roles maps data-role names to their projections, in binding order.
	Roles map[string][]Projection `json:"roles,omitempty"`

	Sort               []SortBinding       `json:"sort,omitempty"`
	Filters            []FilterBinding     `json:"filters,omitempty"`
	ConditionalFormats []ConditionalFormat `json:"conditional_formats,omitempty"`

	// DrillTarget, TooltipPage, and NavigationTarget are section names of
	// the referenced pages.
	DrillTarget      string `json:"drill_target,omitempty"`
	TooltipPage      string `json:"tooltip_page,omitempty"`
	NavigationTarget string `json:"navigation_target,omitempty"`
}

// Position locates a visual on its page, in pixels.
type Position struct {
	X        int `json:"x"`
	Y        int `json:"y"`
	Z        int `json:"z"`
	Width    int `json:"width"`
	Height   int `json:"height"`
	TabOrder int `json:"tab_order"`
}

// Projection kinds.
const (
	ProjectionColumn      = "column"
	ProjectionMeasure     = "measure"
	ProjectionAggregation = "aggregation"
)

// Projection binds one field into a data role.
type Projection struct {
	Kind  string `json:"kind"`
	Table string `json:"table"`
	Field string `json:"field"`
	// Function is the aggregation function id for aggregation projections.
	Function int `json:"function,omitempty"`
	// QueryRef is the stable projection reference (Table.Field or
	// Agg(Table.Field)).
	QueryRef    string `json:"query_ref"`
	NativeRef   string `json:"native_ref"`
	DisplayName string `json:"display_name,omitempty"`
	Active      bool   `json:"active,omitempty"`
}

// SortBinding is a resolved sort entry.
type SortBinding struct {
	Table      string `json:"table"`
	Field      string `json:"field"`
	Descending bool   `json:"descending,omitempty"`
}

// FilterBinding is a resolved field filter.
type FilterBinding struct {
	Table  string   `json:"table"`
	Field  string   `json:"field"`
	Values []string `json:"values,omitempty"`
}

// ConditionalFormat is a resolved value-driven formatting rule.
type ConditionalFormat struct {
	Table    string `json:"table"`
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
	Value2   string `json:"value2,omitempty"`
	Color    string `json:"color"`
}

// BindingError reports a visual bound to a field that does not exist in
// the converted model. Emitting the binding anyway would corrupt the
// output project, so assembly stops here.
type BindingError struct {
	Sheet  string
	Visual string
	Field  string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("report: sheet %q visual %q binds unknown field %q", e.Sheet, e.Visual, e.Field)
}
