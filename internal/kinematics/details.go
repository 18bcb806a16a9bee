package kinematics

import (
	"github.com/banshee-data/larva.report/internal/failure"
	"github.com/banshee-data/larva.report/internal/report"
)

// DetailRows pairs every analysed frame with its timestamp for the
// per-frame details table.
func (r *Result) DetailRows(timestamps []float64) ([]report.DetailRow, error) {
	if len(timestamps) != len(r.Frames) {
		return nil, stageErr(failure.MalformedRecord, "%d timestamps for %d frames", len(timestamps), len(r.Frames))
	}
	rows := make([]report.DetailRow, len(r.Frames))
	for i, f := range r.Frames {
		rows[i] = report.DetailRow{
			Timestamp:  timestamps[i],
			BodyLength: f.BodyLength,
			Stride:     r.StrideOf[i],
			SpeedAt:    f.SpeedAt,
			HasSpeed:   f.HasSpeed,
			Points:     f.Points,
		}
	}
	return rows, nil
}
