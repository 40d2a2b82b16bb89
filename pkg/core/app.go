package core

// App is the normalized in-memory form of an extracted Qlik application.
// It is assembled once by the extractor and treated as read-only by every
// conversion stage, which makes concurrent conversion safe without locking.
type App struct {
	// Title is the application display name.
	Title string `json:"title"`
	// AppID is the source application identifier, when present.
	AppID string `json:"app_id,omitempty"`
	// Description is the application description.
	Description string `json:"description,omitempty"`
	// Author is the last known author recorded in the bundle metadata.
	Author string `json:"author,omitempty"`
	// CreatedAt and ModifiedAt are kept as the raw timestamp strings from
	// the bundle metadata; they are informational and never parsed.
	CreatedAt  string `json:"created_at,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`

	// Variables are script/UI variables in extraction order.
	Variables []Variable `json:"variables,omitempty"`
	// Dimensions are master dimensions in extraction order.
	Dimensions []Dimension `json:"dimensions,omitempty"`
	// Measures are master measures in extraction order.
	Measures []Measure `json:"measures,omitempty"`
	// Tables are the data tables derived from the load script.
	Tables []Table `json:"tables,omitempty"`
	// Associations are implicit join keys shared between table pairs.
	Associations []Association `json:"associations,omitempty"`
	// Sheets are the UI sheets with their visuals, ordered by rank.
	Sheets []Sheet `json:"sheets,omitempty"`
	// Bookmarks are saved selection states.
	Bookmarks []Bookmark `json:"bookmarks,omitempty"`
	// Theme holds the color palette, when the bundle carries one.
	Theme *Theme `json:"theme,omitempty"`
	// LoadScript is the raw load script text.
	LoadScript string `json:"load_script,omitempty"`
}

// Variable is a script or UI variable.
type Variable struct {
	// Name is unique within the application.
	Name string `json:"name"`
	// Definition is the raw definition string, exactly as authored.
	Definition string `json:"definition"`
	// Comment is the optional author comment.
	Comment string `json:"comment,omitempty"`
	// IsReserved marks Qlik system variables (ScriptError, QvPath, ...),
	// which are never substituted during expression conversion.
	IsReserved bool `json:"is_reserved,omitempty"`
}

// Dimension is a master dimension. A single-field dimension binds directly
// to a model column; a dimension whose field definition is an expression
// becomes a calculated column during model conversion.
type Dimension struct {
	Name string `json:"name"`
	// Fields are the field definitions (one for a flat dimension, several
	// for a drill-down group).
	Fields []string `json:"fields"`
	Label  string   `json:"label,omitempty"`
	// Grouping is the source grouping tag ("N" flat, "H" drill-down).
	Grouping string `json:"grouping,omitempty"`
}

// Measure is a master measure with a formula-language expression.
type Measure struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Label      string `json:"label,omitempty"`
	// FormatString is the source-side display format, converted token by
	// token during expression transpilation.
	FormatString string `json:"format_string,omitempty"`
}

// Association is an implicit join between two tables on one or more shared
// fields. Both tables must exist in the owning App. More than one shared
// field signals a synthetic-key condition: the model converter records the
// pair for manual resolution instead of inventing a merged key.
type Association struct {
	TableA string   `json:"table_a"`
	TableB string   `json:"table_b"`
	Fields []string `json:"fields"`
}

// Bookmark is a saved selection state.
type Bookmark struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	// SheetID is the sheet the bookmark was captured on, when recorded.
	SheetID string `json:"sheet_id,omitempty"`
	// Selections are the captured field selections.
	Selections []FieldFilter `json:"selections,omitempty"`
}

// Theme is the application's color palette.
type Theme struct {
	Name string `json:"name,omitempty"`
	// DataColors are the categorical series colors, in palette order.
	DataColors  []string `json:"data_colors,omitempty"`
	Background  string   `json:"background,omitempty"`
	Foreground  string   `json:"foreground,omitempty"`
	TableAccent string   `json:"table_accent,omitempty"`
}
