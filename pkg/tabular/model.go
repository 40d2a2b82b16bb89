// Package tabular converts an associative table graph into a relational
// semantic model: typed columns, directed relationships with explicit
// cardinality, and synthetic-key findings for the composite joins the
// source engine resolved automatically.
package tabular

import "strings"

// Cardinality of a relationship, many side first.
type Cardinality string

// Relationship cardinalities.
const (
	OneToMany  Cardinality = "OneToMany"
	ManyToOne  Cardinality = "ManyToOne"
	OneToOne   Cardinality = "OneToOne"
	ManyToMany Cardinality = "ManyToMany"
)

// CrossFilter is the filter propagation direction of a relationship.
type CrossFilter string

// Cross-filter directions.
const (
	FilterSingle CrossFilter = "Single"
	FilterBoth   CrossFilter = "Both"
)

// Data types of the target model's column vocabulary.
const (
	TypeString   = "string"
	TypeInt64    = "int64"
	TypeDouble   = "double"
	TypeDateTime = "dateTime"
	TypeBoolean  = "boolean"
)

// Model is the converted semantic model. Ordering everywhere follows input
// insertion order so repeated conversions are byte-identical.
type Model struct {
	Tables        []Table        `json:"tables"`
	Relationships []Relationship `json:"relationships,omitempty"`
	// SyntheticKeys lists table sets joined on composite or auto-generated
	// keys. No relationship is emitted for them; the caller surfaces the
	// entries for manual resolution.
	SyntheticKeys []SyntheticKey `json:"synthetic_keys,omitempty"`
	// Warnings records inputs the converter skipped or downgraded.
	Warnings []string `json:"warnings,omitempty"`
}

// Table is one model table.
type Table struct {
	Name        string      `json:"name"`
	Columns     []Column    `json:"columns"`
	Measures    []Measure   `json:"measures,omitempty"`
	Hierarchies []Hierarchy `json:"hierarchies,omitempty"`
}

// Column is a typed model column.
type Column struct {
	Name string `json:"name"`
	// SourceColumn is the column name in the source query feeding the table.
	SourceColumn string `json:"source_column,omitempty"`
	DataType     string `json:"data_type"`
	FormatString string `json:"format_string,omitempty"`
	// SummarizeBy is "sum" for plain numeric columns, "none" for keys,
	// dates, and non-numerics.
	SummarizeBy string `json:"summarize_by"`
	// IsKey marks columns that participate in a relationship or a
	// synthetic-key finding.
	IsKey bool `json:"is_key,omitempty"`
	// Expression holds the calculated-column formula; empty for columns
	// sourced from the partition query.
	Expression string `json:"expression,omitempty"`
}

// Measure is a model measure with a converted formula.
type Measure struct {
	Name         string `json:"name"`
	Expression   string `json:"expression"`
	FormatString string `json:"format_string,omitempty"`
	Description  string `json:"description,omitempty"`
}

// Hierarchy is a drill path over one table's columns.
type Hierarchy struct {
	Name   string  `json:"name"`
	Levels []Level `json:"levels"`
}

// Level is one hierarchy level.
type Level struct {
	Name   string `json:"name"`
	Column string `json:"column"`
}

// Relationship is a directed join, many side first. At most one
// relationship per table pair is active.
type Relationship struct {
	Name        string      `json:"name"`
	FromTable   string      `json:"from_table"`
	FromColumn  string      `json:"from_column"`
	ToTable     string      `json:"to_table"`
	ToColumn    string      `json:"to_column"`
	Cardinality Cardinality `json:"cardinality"`
	CrossFilter CrossFilter `json:"cross_filter"`
	Active      bool        `json:"active"`
	// Review flags relationships that need a modeling decision, such as
	// many-to-many joins.
	Review bool `json:"review,omitempty"`
}

// SyntheticKey records tables joined through a composite or auto-generated
// key that the converter refuses to invent a merged column for.
type SyntheticKey struct {
	Tables []string `json:"tables"`
	Fields []string `json:"fields"`
}

// Table returns the named model table, or nil.
func (m *Model) Table(name string) *Table {
	for i := range m.Tables {
		if strings.EqualFold(m.Tables[i].Name, name) {
			return &m.Tables[i]
		}
	}
	return nil
}

// Column returns the named column and true when the table has it.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}
