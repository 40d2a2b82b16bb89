package tabular

import (
	"fmt"
	"strings"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
)

// Option configures a conversion.
type Option func(*converter)

// WithMeasures attaches already-transpiled measures. Each measure is homed
// on the first table its expression references, falling back to the table
// owning the first bare column reference, then to the first model table.
func WithMeasures(measures []Measure) Option {
	return func(c *converter) { c.measures = measures }
}

// DuplicateTableError reports two input tables sharing a name; the target
// model requires unique table names.
type DuplicateTableError struct {
	Name string
}

func (e *DuplicateTableError) Error() string {
	return fmt.Sprintf("tabular: duplicate table name %q", e.Name)
}

// Convert derives a relational model from extracted tables and their
// associations. Synthetic ($Syn) tables are dropped and recorded as
// synthetic-key findings, never emitted as model tables.
func Convert(tables []core.Table, associations []core.Association, opts ...Option) (*Model, error) {
	c := &converter{
		model:     &Model{},
		colOwner:  map[string]string{},
		pairSeen:  map[string]bool{},
		nameSeen:  map[string]bool{},
		keyFields: map[string]bool{},
	}
	for _, o := range opts {
		o(c)
	}

	if err := c.addTables(tables); err != nil {
		return nil, err
	}
	c.markKeys(associations)
	c.buildColumns(tables)
	c.addRelationships(associations)
	c.attachMeasures()
	return c.model, nil
}

type converter struct {
	model    *Model
	measures []Measure

	// colOwner maps a lowercased column name to the first table owning it.
	colOwner map[string]string
	// keyFields marks lower(table)+"\x00"+lower(field) pairs that join.
	keyFields map[string]bool
	// pairSeen tracks unordered table pairs with an active relationship.
	pairSeen map[string]bool
	// nameSeen tracks relationship names for deterministic deduplication.
	nameSeen map[string]bool
}

func (c *converter) addTables(tables []core.Table) error {
	seen := map[string]bool{}
	for _, t := range tables {
		if core.SyntheticName(t.Name) {
			c.recordSyntheticTable(t)
			continue
		}
		lower := strings.ToLower(t.Name)
		if seen[lower] {
			return &DuplicateTableError{Name: t.Name}
		}
		seen[lower] = true
		c.model.Tables = append(c.model.Tables, Table{Name: t.Name})
		for _, col := range t.Columns {
			if _, ok := c.colOwner[strings.ToLower(col.Name)]; !ok {
				c.colOwner[strings.ToLower(col.Name)] = t.Name
			}
		}
	}
	return nil
}

// recordSyntheticTable turns an auto-generated key table into a finding.
func (c *converter) recordSyntheticTable(t core.Table) {
	var fields []string
	for _, col := range t.Columns {
		if !core.SyntheticName(col.Name) {
			fields = append(fields, col.Name)
		}
	}
	c.model.SyntheticKeys = append(c.model.SyntheticKeys, SyntheticKey{
		Tables: []string{t.Name},
		Fields: fields,
	})
	c.model.Warnings = append(c.model.Warnings,
		fmt.Sprintf("synthetic table %s dropped; resolve its composite key manually", t.Name))
}

func (c *converter) markKeys(associations []core.Association) {
	for _, a := range associations {
		for _, f := range a.Fields {
			c.keyFields[pairKey(a.TableA, f)] = true
			c.keyFields[pairKey(a.TableB, f)] = true
		}
	}
}

func (c *converter) buildColumns(tables []core.Table) {
	for _, t := range tables {
		mt := c.model.Table(t.Name)
		if mt == nil {
			continue
		}
		for _, col := range t.Columns {
			isKey := c.keyFields[pairKey(t.Name, col.Name)]
			mc := buildColumn(col, isKey)
			mt.Columns = append(mt.Columns, mc)
			if mc.DataType == TypeDateTime {
				mt.Hierarchies = append(mt.Hierarchies, dateHierarchy(mc.Name))
			}
		}
	}
}

// buildColumn maps one extracted column onto the model vocabulary.
func buildColumn(col core.Column, isKey bool) Column {
	mc := Column{
		Name:         col.Name,
		SourceColumn: col.Name,
		DataType:     dataType(col.Type),
		SummarizeBy:  "none",
		IsKey:        isKey,
	}
	switch mc.DataType {
	case TypeInt64:
		mc.FormatString = "0"
	case TypeDouble:
		mc.FormatString = "#,0.00"
	case TypeDateTime:
		mc.FormatString = "Long Date"
	}
	if !isKey && (mc.DataType == TypeInt64 || mc.DataType == TypeDouble) {
		mc.SummarizeBy = "sum"
	}
	return mc
}

func dataType(code core.TypeCode) string {
	switch code {
	case core.TypeInteger:
		return TypeInt64
	case core.TypeDecimal:
		return TypeDouble
	case core.TypeDate, core.TypeDateTime:
		return TypeDateTime
	case core.TypeBoolean:
		return TypeBoolean
	default:
		return TypeString
	}
}

func dateHierarchy(column string) Hierarchy {
	return Hierarchy{
		Name: column + " Hierarchy",
		Levels: []Level{
			{Name: "Year", Column: column},
			{Name: "Quarter", Column: column},
			{Name: "Month", Column: column},
			{Name: "Day", Column: column},
		},
	}
}

func (c *converter) addRelationships(associations []core.Association) {
	for _, a := range associations {
		ta, tb := c.model.Table(a.TableA), c.model.Table(a.TableB)
		if ta == nil || tb == nil {
			c.model.Warnings = append(c.model.Warnings,
				fmt.Sprintf("association %s-%s references a table outside the model", a.TableA, a.TableB))
			continue
		}
		if len(a.Fields) == 0 {
			continue
		}
		if len(a.Fields) > 1 {
			// A composite key the source engine would resolve with an
			// auto-generated table. Never invent a merged column.
			c.model.SyntheticKeys = append(c.model.SyntheticKeys, SyntheticKey{
				Tables: []string{ta.Name, tb.Name},
				Fields: append([]string(nil), a.Fields...),
			})
			continue
		}
		c.addRelationship(ta, tb, a.Fields[0])
	}
}

func (c *converter) addRelationship(ta, tb *Table, field string) {
	uniqueA := uniqueEndpoint(ta.Name, field)
	uniqueB := uniqueEndpoint(tb.Name, field)

	// Many side first: from = fact, to = dimension.
	from, to := ta, tb
	if uniqueA && !uniqueB {
		from, to = tb, ta
		uniqueA, uniqueB = uniqueB, uniqueA
	}

	rel := Relationship{
		FromTable:   from.Name,
		FromColumn:  field,
		ToTable:     to.Name,
		ToColumn:    field,
		Cardinality: ManyToOne,
		CrossFilter: FilterSingle,
	}
	switch {
	case uniqueA && uniqueB:
		rel.Cardinality = OneToOne
	case !uniqueA && !uniqueB:
		rel.Cardinality = ManyToMany
		rel.CrossFilter = FilterBoth
		rel.Review = true
		c.model.Warnings = append(c.model.Warnings,
			fmt.Sprintf("many-to-many relationship %s.%s = %s.%s needs review", from.Name, field, to.Name, field))
	}

	pair := unorderedPair(from.Name, to.Name)
	if !c.pairSeen[pair] {
		rel.Active = true
		c.pairSeen[pair] = true
	}
	rel.Name = c.relationshipName(from.Name, to.Name, field)
	c.model.Relationships = append(c.model.Relationships, rel)
}

// relationshipName yields Table_Table, widening to Table_Table_Column when
// a pair joins on more than one field.
func (c *converter) relationshipName(from, to, column string) string {
	name := from + "_" + to
	if c.nameSeen[strings.ToLower(name)] {
		name = name + "_" + column
	}
	c.nameSeen[strings.ToLower(name)] = true
	return name
}

// uniqueEndpoint reports whether field is plausibly unique per row of
// table: either the table's own identifier ("ID", "Key") or an identifier
// whose prefix names the table ("CustomerID" in "Customers"). The source
// bundle carries no row data, so uniqueness is judged from naming, the way
// the original associative engine's users named their keys.
func uniqueEndpoint(table, field string) bool {
	low := strings.ToLower(field)
	if low == "id" || low == "key" {
		return true
	}
	for _, suffix := range []string{"id", "key"} {
		if !strings.HasSuffix(low, suffix) {
			continue
		}
		prefix := strings.TrimSuffix(low, suffix)
		prefix = strings.TrimRight(prefix, "_")
		if prefix != "" && stem(prefix) == stem(table) {
			return true
		}
	}
	return false
}

// stem collapses simple plural endings so "Customers" matches "customer".
func stem(s string) string {
	s = strings.ToLower(s)
	for _, suffix := range []string{"ies", "es", "s"} {
		if len(s) > 3 && strings.HasSuffix(s, suffix) {
			return strings.TrimSuffix(s, suffix)
		}
	}
	return s
}

// attachMeasures homes each measure on the table its expression uses.
func (c *converter) attachMeasures() {
	if len(c.measures) == 0 {
		return
	}
	for _, m := range c.measures {
		home := c.measureHome(m.Expression)
		if home == nil {
			if len(c.model.Tables) == 0 {
				c.model.Warnings = append(c.model.Warnings,
					fmt.Sprintf("measure %s has no table to live on", m.Name))
				continue
			}
			home = &c.model.Tables[0]
		}
		home.Measures = append(home.Measures, m)
	}
}

// measureHome finds the first table referenced as 'Table'[Column], then
// the owner of the first bare [Column] reference.
func (c *converter) measureHome(expr string) *Table {
	for i := 0; i < len(expr); i++ {
		if expr[i] != '\'' {
			continue
		}
		end := strings.IndexByte(expr[i+1:], '\'')
		if end < 0 {
			break
		}
		if t := c.model.Table(expr[i+1 : i+1+end]); t != nil {
			return t
		}
		i += end + 1
	}
	for i := 0; i < len(expr); i++ {
		if expr[i] != '[' {
			continue
		}
		end := strings.IndexByte(expr[i:], ']')
		if end < 0 {
			break
		}
		col := strings.ToLower(expr[i+1 : i+end])
		if owner, ok := c.colOwner[col]; ok {
			return c.model.Table(owner)
		}
		i += end
	}
	return nil
}

func pairKey(a, b string) string {
	return strings.ToLower(a) + "\x00" + strings.ToLower(b)
}

// unorderedPair keys a table pair independent of direction.
func unorderedPair(a, b string) string {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}
