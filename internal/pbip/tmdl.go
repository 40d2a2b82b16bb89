package pbip

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fabriclift-labs/fabriclift/pkg/tabular"
)

// pbismFile is the semantic model definition sidecar.
type pbismFile struct {
	Schema   string   `json:"$schema"`
	Version  string   `json:"version"`
	Settings struct{} `json:"settings"`
}

// diagramLayoutFile stays minimal; Power BI Desktop fills it in.
type diagramLayoutFile struct {
	Version  string `json:"version"`
	Diagrams []any  `json:"diagrams"`
}

func (w *writer) writeSemanticModel(dir string) error {
	defDir := filepath.Join(dir, "definition")
	tablesDir := filepath.Join(defDir, "tables")
	culturesDir := filepath.Join(defDir, "cultures")
	for _, d := range []string{tablesDir, culturesDir} {
		if err := os.MkdirAll(d, 0750); err != nil {
			return fmt.Errorf("failed to create semantic model directory: %w", err)
		}
	}

	if err := w.writePlatform(filepath.Join(dir, ".platform"), "SemanticModel"); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "definition.pbism"), pbismFile{
		Schema:  schemaPBISM,
		Version: "4.0",
	}); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "diagramLayout.json"), diagramLayoutFile{
		Version:  "1.1.0",
		Diagrams: []any{},
	}); err != nil {
		return err
	}

	if err := writeText(filepath.Join(defDir, "database.tmdl"), databaseTMDL()); err != nil {
		return err
	}
	if err := writeText(filepath.Join(defDir, "model.tmdl"), w.modelTMDL()); err != nil {
		return err
	}
	if len(w.project.Model.Relationships) > 0 {
		if err := writeText(filepath.Join(defDir, "relationships.tmdl"), w.relationshipsTMDL()); err != nil {
			return err
		}
	}
	if len(w.project.Expressions) > 0 {
		if err := writeText(filepath.Join(defDir, "expressions.tmdl"), w.expressionsTMDL()); err != nil {
			return err
		}
	}
	for _, t := range w.project.Model.Tables {
		name := sanitizeName(t.Name) + ".tmdl"
		if err := writeText(filepath.Join(tablesDir, name), w.tableTMDL(t)); err != nil {
			return err
		}
	}
	return writeText(filepath.Join(culturesDir, "en-US.tmdl"), cultureTMDL())
}

func databaseTMDL() string {
	return "database\n\tcompatibilityLevel: 1600\n"
}

func (w *writer) modelTMDL() string {
	var b strings.Builder
	b.WriteString("model Model\n")
	b.WriteString("\tculture: en-US\n")
	b.WriteString("\tdefaultPowerBIDataSourceVersion: powerBI_V3\n")
	b.WriteString("\tdiscourageImplicitMeasures\n")
	if len(w.project.Model.Tables) > 0 {
		b.WriteString("\n")
		for _, t := range w.project.Model.Tables {
			fmt.Fprintf(&b, "ref table %s\n", quoteTMDL(t.Name))
		}
	}
	return b.String()
}

func (w *writer) tableTMDL(t tabular.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "table %s\n", quoteTMDL(t.Name))
	fmt.Fprintf(&b, "\tlineageTag: %s\n", w.tag("table", t.Name))

	for _, c := range t.Columns {
		b.WriteString("\n")
		if c.Expression != "" {
			fmt.Fprintf(&b, "\tcolumn %s = %s\n", quoteTMDL(c.Name), c.Expression)
		} else {
			fmt.Fprintf(&b, "\tcolumn %s\n", quoteTMDL(c.Name))
		}
		fmt.Fprintf(&b, "\t\tdataType: %s\n", c.DataType)
		if c.IsKey {
			b.WriteString("\t\tisKey\n")
		}
		if c.FormatString != "" {
			fmt.Fprintf(&b, "\t\tformatString: %s\n", c.FormatString)
		}
		fmt.Fprintf(&b, "\t\tlineageTag: %s\n", w.tag("table", t.Name, "column", c.Name))
		fmt.Fprintf(&b, "\t\tsummarizeBy: %s\n", c.SummarizeBy)
		if c.Expression == "" {
			source := c.SourceColumn
			if source == "" {
				source = c.Name
			}
			fmt.Fprintf(&b, "\t\tsourceColumn: %s\n", source)
		}
	}

	for _, m := range t.Measures {
		b.WriteString("\n")
		fmt.Fprintf(&b, "\tmeasure %s = %s\n", quoteTMDL(m.Name), m.Expression)
		fmt.Fprintf(&b, "\t\tlineageTag: %s\n", w.tag("table", t.Name, "measure", m.Name))
		if m.FormatString != "" {
			fmt.Fprintf(&b, "\t\tformatString: %s\n", m.FormatString)
		}
		if m.Description != "" {
			fmt.Fprintf(&b, "\t\tdescription: %s\n", m.Description)
		}
	}

	for _, h := range t.Hierarchies {
		b.WriteString("\n")
		fmt.Fprintf(&b, "\thierarchy %s\n", quoteTMDL(h.Name))
		fmt.Fprintf(&b, "\t\tlineageTag: %s\n", w.tag("table", t.Name, "hierarchy", h.Name))
		for _, l := range h.Levels {
			fmt.Fprintf(&b, "\t\tlevel %s\n", quoteTMDL(l.Name))
			fmt.Fprintf(&b, "\t\t\tcolumn: %s\n", quoteTMDL(l.Column))
		}
	}

	if expr, ok := w.project.Queries[t.Name]; ok && expr != "" {
		b.WriteString("\n")
		fmt.Fprintf(&b, "\tpartition %s = m\n", quoteTMDL(t.Name))
		b.WriteString("\t\tmode: import\n")
		b.WriteString("\t\tsource =\n")
		for _, line := range strings.Split(strings.TrimRight(expr, "\n"), "\n") {
			fmt.Fprintf(&b, "\t\t\t%s\n", line)
		}
	}

	return b.String()
}

func (w *writer) relationshipsTMDL() string {
	var b strings.Builder
	for _, r := range w.project.Model.Relationships {
		fmt.Fprintf(&b, "relationship %s\n", quoteTMDL(r.Name))
		fmt.Fprintf(&b, "\tfromColumn: %s.%s\n", quoteTMDL(r.FromTable), quoteTMDL(r.FromColumn))
		fmt.Fprintf(&b, "\ttoColumn: %s.%s\n", quoteTMDL(r.ToTable), quoteTMDL(r.ToColumn))
		switch r.Cardinality {
		case tabular.OneToOne:
			b.WriteString("\tfromCardinality: one\n")
		case tabular.ManyToMany:
			b.WriteString("\ttoCardinality: many\n")
		}
		if r.CrossFilter == tabular.FilterBoth {
			b.WriteString("\tcrossFilteringBehavior: bothDirections\n")
		}
		if !r.Active {
			b.WriteString("\tisActive: false\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (w *writer) expressionsTMDL() string {
	names := make([]string, 0, len(w.project.Expressions))
	for name := range w.project.Expressions {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "expression %s =\n", quoteTMDL(name))
		b.WriteString("\t\t```\n")
		for _, line := range strings.Split(strings.TrimRight(w.project.Expressions[name], "\n"), "\n") {
			fmt.Fprintf(&b, "\t\t%s\n", line)
		}
		b.WriteString("\t\t```\n")
		fmt.Fprintf(&b, "\tlineageTag: %s\n", w.tag("expression", name))
		b.WriteString("\n")
	}
	return b.String()
}

func cultureTMDL() string {
	return "culture 'en-US'\n"
}

// quoteTMDL wraps a TMDL identifier in single quotes when it contains
// spaces or characters with meaning in the grammar.
func quoteTMDL(name string) string {
	if name == "" {
		return "''"
	}
	if strings.ContainsAny(name, " .-+/\\(){}[]") {
		return "'" + name + "'"
	}
	return name
}
