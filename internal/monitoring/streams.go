package monitoring

import (
	"io"
	"log"
	"sync"
)

const streamPrefix = "[larva] "

// LogWriters holds the destination of each logging stream. A nil writer
// disables that stream.
type LogWriters struct {
	// Ops receives failures a person has to act on (a video was skipped, a
	// consistency assertion fired).
	Ops io.Writer
	// Diag receives per-video repair summaries.
	Diag io.Writer
	// Trace receives per-frame decisions.
	Trace io.Writer
}

var (
	mu          sync.RWMutex
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures all three streams at once.
func SetLogWriters(w LogWriters) {
	mu.Lock()
	defer mu.Unlock()
	opsLogger = newLogger(w.Ops)
	diagLogger = newLogger(w.Diag)
	traceLogger = newLogger(w.Trace)
}

func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, streamPrefix, log.LstdFlags|log.Lmicroseconds)
}

func printTo(l **log.Logger, format string, args []interface{}) {
	mu.RLock()
	logger := *l
	mu.RUnlock()
	if logger != nil {
		logger.Printf(format, args...)
	}
}

// Opsf logs to the ops stream.
func Opsf(format string, args ...interface{}) { printTo(&opsLogger, format, args) }

// Diagf logs to the diag stream.
func Diagf(format string, args ...interface{}) { printTo(&diagLogger, format, args) }

// Tracef logs to the trace stream.
func Tracef(format string, args ...interface{}) { printTo(&traceLogger, format, args) }
