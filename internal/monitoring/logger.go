// Package monitoring owns process-wide logging for the larva pipeline.
//
// Two layers are provided: Logf, a swappable printf-style sink used by
// command entry points, and three leveled streams (ops, diag, trace) used by
// the reconciliation and analysis packages.
package monitoring

import "log"

// Logf is the package-level logger used by the CLIs and the batch driver. It
// defaults to log.Printf and can be redirected or muted with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
