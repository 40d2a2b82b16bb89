// Package core defines the shared language of the Fabriclift system.
//
// This package contains:
//   - Source-side entities extracted from a Qlik application bundle
//     (App, Variable, Dimension, Measure, Table, Association, Sheet, ...)
//   - Conversion bookkeeping (ConversionReport)
//   - The semantic type vocabulary shared by extraction and model conversion
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
