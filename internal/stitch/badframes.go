package stitch

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/larva.report/internal/midline"
	"github.com/banshee-data/larva.report/internal/monitoring"
)

// lengthStats returns the per-frame arc length (zero for invalid frames) and
// the sample standard deviation over valid, positive lengths.
func lengthStats(frames []midline.Frame) (lengths []float64, stdev float64, ok bool) {
	lengths = make([]float64, len(frames))
	sample := make([]float64, 0, len(frames))
	for f, fr := range frames {
		if !fr.Valid {
			continue
		}
		lengths[f] = fr.Points.ArcLength()
		if lengths[f] > 0 {
			sample = append(sample, lengths[f])
		}
	}
	if len(sample) < 2 {
		return lengths, 0, false
	}
	_, stdev = stat.MeanStdDev(sample, nil)
	return lengths, stdev, true
}

// DetectBadFramesViaLength invalidates frames whose skeleton length jumps
// away from both neighbours, or drops steeply from the previous frame. It
// returns the number of frames invalidated.
func (r *Reconciler) DetectBadFramesViaLength() int {
	lengths, sd, ok := lengthStats(r.frames)
	if !ok {
		return 0
	}
	jump := r.opts.JumpSigmas * sd
	drop := r.opts.DropSigmas * sd

	n := len(r.frames)
	invalidated := 0
	for f := 0; f < n; f++ {
		if !r.frames[f].Valid {
			continue
		}
		hasPrev := f > 0 && r.frames[f-1].Valid
		hasNext := f+1 < n && r.frames[f+1].Valid

		if hasPrev && hasNext {
			dPrev := math.Abs(lengths[f] - lengths[f-1])
			dNext := math.Abs(lengths[f] - lengths[f+1])
			if dPrev > jump && dNext > jump {
				monitoring.Tracef("stitch: frame %d invalidated, length %.2f vs neighbours %.2f/%.2f", f, lengths[f], lengths[f-1], lengths[f+1])
				r.frames[f] = midline.Missing()
				invalidated++
				continue
			}
		}
		if hasPrev && lengths[f] < lengths[f-1] && lengths[f-1]-lengths[f] > drop {
			monitoring.Tracef("stitch: frame %d invalidated, length dropped %.2f -> %.2f", f, lengths[f-1], lengths[f])
			r.frames[f] = midline.Missing()
			invalidated++
		}
	}
	r.diag.FramesInvalidated += invalidated
	monitoring.Diagf("stitch: %d frames invalidated by length (stdev %.3f)", invalidated, sd)
	return invalidated
}
