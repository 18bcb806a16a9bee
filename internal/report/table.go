package report

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/banshee-data/larva.report/internal/failure"
)

// TableStage tags errors from the metrics table writer.
const TableStage = "report"

// WriteTable writes the batch metrics table: a '#'-prefixed header of metric
// names followed by one tab-separated row per report. Every report must
// carry the same keys in the same order as the first.
func WriteTable(w io.Writer, rows []*Metrics) error {
	if len(rows) == 0 {
		return nil
	}
	header := rows[0].keys
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "#%s\n", strings.Join(header, "\t")); err != nil {
		return fmt.Errorf("write metrics header: %w", err)
	}
	for i, m := range rows {
		if !slices.Equal(header, m.keys) {
			larva, _ := m.Get("larvae")
			return failure.New(TableStage, failure.MalformedRecord,
				"row %d (%s) has %d metrics, header has %d or a different order", i+1, larva, len(m.keys), len(header))
		}
		if _, err := fmt.Fprintln(bw, strings.Join(m.Values(), "\t")); err != nil {
			return fmt.Errorf("write metrics row %d: %w", i+1, err)
		}
	}
	return bw.Flush()
}
