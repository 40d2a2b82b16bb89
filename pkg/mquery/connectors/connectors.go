// Package connectors generates Power Query M source expressions for the
// physical data sources a load script names. Each connector kind registers
// a generator in its family file's init(); dispatch is by SourceRef.Kind.
package connectors

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fabriclift-labs/fabriclift/pkg/core"
)

// GenerateFunc builds a complete M query (let ... in Result) for one table.
type GenerateFunc func(t core.Table) string

var (
	registryMu sync.RWMutex
	registry   = make(map[string]GenerateFunc)
)

// Register adds a connector generator to the registry. Called by the
// family files in their init() functions.
func Register(kind string, fn GenerateFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = fn
}

// Get retrieves a generator by kind.
func Get(kind string) (GenerateFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[kind]
	return fn, ok
}

// Kinds returns all registered connector kinds (sorted).
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// UnknownKindError reports a source kind with no registered connector.
// Generation still succeeds with a sample expression; the error signals
// that the emitted source needs manual configuration.
type UnknownKindError struct {
	Table string
	Kind  string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("no connector registered for source kind %q (table %q): sample source emitted", e.Kind, e.Table)
}

// Generate builds the M source expression for a table. Unknown kinds and
// tables without a source produce a #table sample expression alongside an
// *UnknownKindError, so the model still loads while the gap stays visible.
func Generate(t core.Table) (string, error) {
	if t.Source == nil {
		return sampleExpression(t), &UnknownKindError{Table: t.Name}
	}
	fn, ok := Get(t.Source.Kind)
	if !ok {
		return sampleExpression(t), &UnknownKindError{Table: t.Name, Kind: t.Source.Kind}
	}
	return fn(t), nil
}

// sampleExpression emits an empty #table with the known column shape.
func sampleExpression(t core.Table) string {
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		cols = append(cols, quoteM(c.Name))
	}
	if len(cols) == 0 {
		cols = []string{quoteM("Column1")}
	}
	return joinLines(
		"let",
		fmt.Sprintf("    // TODO: configure the data source for table %q", t.Name),
		fmt.Sprintf("    Source = #table({%s}, {})", strings.Join(cols, ", ")),
		"in",
		"    Source",
	)
}

// Expression is one generated M query with the name partitions reference
// it by.
type Expression struct {
	Name   string
	Source string
}

// Catalog deduplicates generated expressions by normalized physical
// location. The first table to claim a location names the expression;
// later tables sharing it reference that name instead of repeating the
// source definition.
type Catalog struct {
	order    []string
	byName   map[string]string
	byLoc    map[string]string
	warnings []string
}

// NewCatalog returns an empty expression catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byName: make(map[string]string),
		byLoc:  make(map[string]string),
	}
}

// Add generates (or reuses) the expression for a table. It returns the
// expression name to reference and whether this call created it.
func (c *Catalog) Add(t core.Table) (string, bool, error) {
	key := locationKey(t)
	if name, ok := c.byLoc[key]; ok {
		return name, false, nil
	}

	expr, err := Generate(t)
	if err != nil {
		c.warnings = append(c.warnings, err.Error())
	}
	name := t.Name
	c.byLoc[key] = name
	c.byName[name] = expr
	c.order = append(c.order, name)
	return name, true, err
}

// Expressions returns generated expressions in insertion order.
func (c *Catalog) Expressions() []Expression {
	out := make([]Expression, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, Expression{Name: name, Source: c.byName[name]})
	}
	return out
}

// Warnings returns the fallback notices accumulated so far.
func (c *Catalog) Warnings() []string { return c.warnings }

// locationKey normalizes the physical identity of a table's source.
// Sourceless, inline, and autogenerated tables are keyed by table name so
// they never collapse together.
func locationKey(t core.Table) string {
	s := t.Source
	if s == nil || strings.TrimSpace(s.Location) == "" {
		return "table\x00" + strings.ToLower(t.Name)
	}
	loc := strings.ToLower(strings.TrimSpace(s.Location))
	return strings.Join([]string{s.Kind, loc, strings.ToLower(s.Database), strings.ToLower(s.Schema)}, "\x00")
}

func joinLines(lines ...string) string {
	return strings.Join(lines, "\n")
}
