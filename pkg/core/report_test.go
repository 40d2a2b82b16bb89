package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversionReport_Rate(t *testing.T) {
	tests := []struct {
		name        string
		mapped      []string
		unconverted []string
		want        float64
	}{
		{
			name: "empty report converts trivially",
			want: 100.0,
		},
		{
			name:   "all mapped",
			mapped: []string{"Sum", "Avg"},
			want:   100.0,
		},
		{
			name:        "half mapped",
			mapped:      []string{"Sum"},
			unconverted: []string{"Peek"},
			want:        50.0,
		},
		{
			name:        "none mapped",
			unconverted: []string{"Peek", "Above"},
			want:        0.0,
		},
		{
			name:        "three of four",
			mapped:      []string{"Sum", "Avg", "Count"},
			unconverted: []string{"Aggr2"},
			want:        75.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewConversionReport()
			for _, name := range tt.mapped {
				r.RecordMapped(name)
			}
			for _, name := range tt.unconverted {
				r.RecordUnconverted(name)
			}
			assert.InDelta(t, tt.want, r.Rate(), 0.001)

			mapped, unconverted := r.Counts()
			assert.Equal(t, len(tt.mapped), mapped)
			assert.Equal(t, len(tt.unconverted), unconverted)
		})
	}
}

func TestConversionReport_DuplicatesCountOnce(t *testing.T) {
	r := NewConversionReport()
	r.RecordMapped("Sum")
	r.RecordMapped("Sum")
	r.RecordMapped("Sum")
	r.RecordUnconverted("Peek")
	r.RecordUnconverted("Peek")

	mapped, unconverted := r.Counts()
	assert.Equal(t, 1, mapped)
	assert.Equal(t, 1, unconverted)
	assert.Equal(t, []string{"Sum", "Peek"}, r.Encountered)
}

func TestConversionReport_Merge(t *testing.T) {
	a := NewConversionReport()
	a.RecordMapped("Sum")
	a.RecordUnconverted("Peek")

	b := NewConversionReport()
	b.RecordMapped("Avg")
	b.RecordMapped("Sum") // duplicate across reports
	b.RecordUnconverted("Above")

	a.Merge(b)

	require.Equal(t, []string{"Sum", "Avg"}, a.Mapped)
	require.Equal(t, []string{"Peek", "Above"}, a.Unconverted)
	assert.Equal(t, []string{"Sum", "Peek", "Avg", "Above"}, a.Encountered)
	assert.InDelta(t, 50.0, a.Rate(), 0.001)
}

func TestConversionReport_MergeNil(t *testing.T) {
	r := NewConversionReport()
	r.RecordMapped("Sum")
	r.Merge(nil)
	assert.Equal(t, []string{"Sum"}, r.Mapped)
}

func TestConversionReport_RecordOnZeroValue(t *testing.T) {
	// A zero-value report must be usable without NewConversionReport.
	var r ConversionReport
	r.RecordMapped("Sum")
	r.RecordUnconverted("Peek")
	assert.Equal(t, []string{"Sum", "Peek"}, r.Encountered)
}
