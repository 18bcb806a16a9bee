package report

import (
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/larva.report/internal/failure"
)

// Metrics is a finalized, read-only metrics report.
type Metrics struct {
	keys   []string
	values map[string]string
}

// Len returns the number of metrics.
func (m *Metrics) Len() int { return len(m.keys) }

// Keys returns the metric names in insertion order.
func (m *Metrics) Keys() []string { return append([]string(nil), m.keys...) }

// Get returns the rendered value of key.
func (m *Metrics) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Values returns the rendered values in key order.
func (m *Metrics) Values() []string {
	out := make([]string, len(m.keys))
	for i, k := range m.keys {
		out[i] = m.values[k]
	}
	return out
}

// Builder accumulates metrics for one video.
type Builder struct {
	stage  string
	keys   []string
	values map[string]string
	err    error
	done   bool
}

// NewBuilder returns an empty builder whose errors carry the given stage.
func NewBuilder(stage string) *Builder {
	return &Builder{stage: stage, values: make(map[string]string)}
}

func (b *Builder) fail(format string, args ...interface{}) {
	if b.err == nil {
		b.err = failure.New(b.stage, failure.StatisticalInvariantViolation, format, args...)
	}
}

func (b *Builder) put(key, value string) {
	switch {
	case b.err != nil:
		return
	case b.done:
		b.fail("metric %q written after finalize", key)
		return
	}
	if _, dup := b.values[key]; dup {
		b.fail("metric %q written twice", key)
		return
	}
	b.keys = append(b.keys, key)
	b.values[key] = value
}

// Text writes a literal value.
func (b *Builder) Text(key, value string) { b.put(key, value) }

// Null writes a missing value.
func (b *Builder) Null(key string) { b.put(key, Null) }

// Int writes an integer.
func (b *Builder) Int(key string, n int) { b.put(key, strconv.Itoa(n)) }

// Number writes a formatted number. A non-finite value is an invariant
// violation.
func (b *Builder) Number(key string, v float64) {
	s, err := FormatNumber(v)
	if err != nil {
		b.fail("metric %q: %w", key, err)
		return
	}
	b.put(key, s)
}

// Optional writes v when ok, NULL otherwise.
func (b *Builder) Optional(key string, v float64, ok bool) {
	if !ok {
		b.Null(key)
		return
	}
	b.Number(key, v)
}

// Percent writes a fraction that must lie in [0, 1].
func (b *Builder) Percent(key string, v float64) {
	if !(v >= 0 && v <= 1) {
		b.fail("metric %q = %v outside [0,1]", key, v)
		return
	}
	b.Number(key, v)
}

// Stats writes <key>_mean, <key>_stdev and <name>_n, where name is key
// without its bracketed unit. The stdev is the sample standard deviation;
// a single value has stdev 0 and an empty set renders NULL.
func (b *Builder) Stats(key string, values []float64) {
	switch len(values) {
	case 0:
		b.Null(key + "_mean")
		b.Null(key + "_stdev")
	case 1:
		b.Number(key+"_mean", values[0])
		b.Number(key+"_stdev", 0)
	default:
		mean, sd := stat.MeanStdDev(values, nil)
		b.Number(key+"_mean", mean)
		b.Number(key+"_stdev", sd)
	}
	name := key
	if cut := strings.Index(name, "["); cut >= 0 {
		name = name[:cut]
	}
	b.Int(name+"_n", len(values))
}

// Err returns the first error recorded, if any.
func (b *Builder) Err() error { return b.err }

// Finalize freezes the builder and returns the report.
func (b *Builder) Finalize() (*Metrics, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.done = true
	values := make(map[string]string, len(b.values))
	for k, v := range b.values {
		values[k] = v
	}
	return &Metrics{keys: append([]string(nil), b.keys...), values: values}, nil
}
