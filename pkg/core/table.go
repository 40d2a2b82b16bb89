package core

import "strings"

// TypeCode is the semantic column type inferred during extraction.
// Model conversion maps these onto the target's declared type vocabulary.
type TypeCode string

// Semantic type codes.
const (
	TypeString   TypeCode = "string"
	TypeInteger  TypeCode = "integer"
	TypeDecimal  TypeCode = "decimal"
	TypeDate     TypeCode = "date"
	TypeDateTime TypeCode = "datetime"
	TypeBoolean  TypeCode = "boolean"
)

// LoadMode describes how a table's load statement sources its rows.
type LoadMode string

// Load modes recognized by the script parser.
const (
	// LoadModeFile loads from an external file or database source.
	LoadModeFile LoadMode = "load"
	// LoadModeInline loads from an inline data block.
	LoadModeInline LoadMode = "inline"
	// LoadModeMapping loads a two-column mapping table.
	LoadModeMapping LoadMode = "mapping"
	// LoadModeResident re-loads from a previously loaded table.
	LoadModeResident LoadMode = "resident"
	// LoadModeAutogenerate synthesizes rows from expressions.
	LoadModeAutogenerate LoadMode = "autogenerate"
)

// Table is a data table derived from the load script.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	// Source describes the physical origin, when the load statement names
	// one. Inline and autogenerated tables have Source.Kind set accordingly
	// with an empty location.
	Source *SourceRef `json:"source,omitempty"`
	// Mode records the load statement shape the table came from.
	Mode LoadMode `json:"mode,omitempty"`
}

// Column is a table column with its inferred semantic type.
type Column struct {
	// Name is the effective column name after any "as" alias.
	Name string `json:"name"`
	Type TypeCode `json:"type"`
	// Expression is the raw source expression when the column is derived
	// (e.g. "Upper(Name)"), empty for a plain field reference.
	Expression string `json:"expression,omitempty"`
}

// SourceRef describes a physical data source named by a load statement.
type SourceRef struct {
	// Kind is the connector kind (csv, excel, sqlserver, snowflake, ...).
	Kind string `json:"kind"`
	// Location is the file path, URL, or connection target.
	Location string `json:"location,omitempty"`
	// Format is the raw format specifier from the load statement, e.g.
	// "txt, utf8, embedded labels, delimiter is ','".
	Format string `json:"format,omitempty"`
	// Database and Schema qualify database sources, when stated.
	Database string `json:"database,omitempty"`
	Schema   string `json:"schema,omitempty"`
}

// SyntheticName reports whether a table or field name is one of Qlik's
// auto-generated synthetic-key artifacts ($Syn prefixed). Synthetic tables
// and key fields are dropped during model conversion and recorded for
// manual resolution.
func SyntheticName(name string) bool {
	return strings.HasPrefix(strings.TrimSpace(name), "$Syn")
}

// Column returns the named column and true when the table has it.
// Matching is case-insensitive, following the source platform's field
// resolution rules.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}
