package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/larva.report/internal/midline"
)

// DetailRow is one frame of the per-frame details table.
type DetailRow struct {
	Timestamp  float64
	BodyLength float64
	// Stride is the stride number covering the frame, 0 when not striding.
	Stride   int
	SpeedAt  [midline.Count]float64
	HasSpeed bool
	Points   midline.Skeleton
}

// DetailsHeader returns the header line of the details table.
func DetailsHeader() string {
	var sb strings.Builder
	sb.WriteString("#Timestamp (seconds)\tLength\tStride(zero means not striding)")
	for k := 1; k <= midline.Count; k++ {
		fmt.Fprintf(&sb, "\tspeed_pt%d", k)
	}
	for k := 1; k <= midline.Count; k++ {
		fmt.Fprintf(&sb, "\tx_%d\ty_%d", k, k)
	}
	return sb.String()
}

// WriteDetails writes the per-frame details table. Undefined speeds are
// empty cells.
func WriteDetails(w io.Writer, rows []DetailRow) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, DetailsHeader()); err != nil {
		return fmt.Errorf("write details header: %w", err)
	}
	cells := make([]string, 0, 3+3*midline.Count)
	for i, row := range rows {
		cells = cells[:0]
		add := func(v float64) error {
			s, err := FormatDetail(v)
			if err != nil {
				return fmt.Errorf("details row %d: %w", i, err)
			}
			cells = append(cells, s)
			return nil
		}
		if err := add(row.Timestamp); err != nil {
			return err
		}
		if err := add(row.BodyLength); err != nil {
			return err
		}
		cells = append(cells, strconv.Itoa(row.Stride))
		for _, v := range row.SpeedAt {
			if !row.HasSpeed {
				cells = append(cells, "")
				continue
			}
			if err := add(v); err != nil {
				return err
			}
		}
		for _, p := range row.Points {
			if err := add(p.X); err != nil {
				return err
			}
			if err := add(p.Y); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(bw, strings.Join(cells, "\t")); err != nil {
			return fmt.Errorf("write details row %d: %w", i, err)
		}
	}
	return bw.Flush()
}
