// Package report owns the per-video metrics report and its text rendering.
//
// A Builder collects metric values in insertion order while the analyzer
// runs. Each key may be written once; the first misuse or non-finite value
// is remembered and returned by Finalize. Finalize yields an immutable
// Metrics value that WriteTable renders as one row of the batch table.
//
// Numbers render with up to five decimals and at least one ("1.0",
// "0.12346"); a missing value renders as NULL.
package report
