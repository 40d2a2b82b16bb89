package core

// ConversionReport tracks function-level conversion coverage for one
// transpile call. Callers merge per-call reports into an aggregate for the
// run. Not safe for concurrent use; each conversion stage owns its own
// report and the pipeline merges them after the join barrier.
type ConversionReport struct {
	// Encountered lists every source function seen, in first-seen order.
	Encountered []string `json:"encountered,omitempty"`
	// Mapped lists functions successfully rewritten to the target language.
	Mapped []string `json:"mapped,omitempty"`
	// Unconverted lists functions left for manual review. Never silently
	// dropped: every unconverted entry also appears in Encountered.
	Unconverted []string `json:"unconverted,omitempty"`

	seen map[string]bool
}

// NewConversionReport returns an empty report.
func NewConversionReport() *ConversionReport {
	return &ConversionReport{seen: make(map[string]bool)}
}

// RecordMapped records a successfully converted function. Duplicate names
// are counted once.
func (r *ConversionReport) RecordMapped(name string) {
	if r.record(name) {
		r.Mapped = append(r.Mapped, name)
	}
}

// RecordUnconverted records a function left unconverted. Duplicate names
// are counted once.
func (r *ConversionReport) RecordUnconverted(name string) {
	if r.record(name) {
		r.Unconverted = append(r.Unconverted, name)
	}
}

// record adds name to Encountered, returning false for duplicates.
func (r *ConversionReport) record(name string) bool {
	if r.seen == nil {
		r.seen = make(map[string]bool)
	}
	if r.seen[name] {
		return false
	}
	r.seen[name] = true
	r.Encountered = append(r.Encountered, name)
	return true
}

// Merge folds other into r, preserving first-seen order across reports.
func (r *ConversionReport) Merge(other *ConversionReport) {
	if other == nil {
		return
	}
	for _, name := range other.Mapped {
		r.RecordMapped(name)
	}
	for _, name := range other.Unconverted {
		r.RecordUnconverted(name)
	}
}

// Counts returns the mapped and unconverted totals.
func (r *ConversionReport) Counts() (mapped, unconverted int) {
	return len(r.Mapped), len(r.Unconverted)
}

// Rate returns the conversion rate as a percentage:
// mapped / (mapped + unconverted) * 100. A report with no functions at all
// converts trivially and reports 100.
func (r *ConversionReport) Rate() float64 {
	mapped, unconverted := r.Counts()
	total := mapped + unconverted
	if total == 0 {
		return 100.0
	}
	return float64(mapped) / float64(total) * 100.0
}
