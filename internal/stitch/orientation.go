package stitch

import (
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/larva.report/internal/midline"
	"github.com/banshee-data/larva.report/internal/monitoring"
)

// orientationGaps returns the mean per-point distance from ref to cur, in
// cur's order and in reversed order, after shifting cur by -offset.
func orientationGaps(ref, cur midline.Skeleton, offset midline.Point) (forward, reversed float64) {
	moved := cur.Translate(offset)
	for i := range ref {
		forward += midline.Distance(moved[i], ref[i])
		reversed += midline.Distance(moved[midline.Count-1-i], ref[i])
	}
	return forward / midline.Count, reversed / midline.Count
}

// shiftEstimate estimates the translation between ref and cur from the
// per-point deltas. The reversed pairing is used instead when its deltas
// are tighter on both axes.
func shiftEstimate(ref, cur midline.Skeleton) midline.Point {
	var fx, fy, rx, ry [midline.Count]float64
	for i := range ref {
		fx[i] = cur[i].X - ref[i].X
		fy[i] = cur[i].Y - ref[i].Y
		rx[i] = cur[midline.Count-1-i].X - ref[i].X
		ry[i] = cur[midline.Count-1-i].Y - ref[i].Y
	}
	mfx, sfx := stat.MeanStdDev(fx[:], nil)
	mfy, sfy := stat.MeanStdDev(fy[:], nil)
	mrx, srx := stat.MeanStdDev(rx[:], nil)
	mry, sry := stat.MeanStdDev(ry[:], nil)
	if srx < sfx && sry < sfy {
		return midline.Point{X: mrx, Y: mry}
	}
	return midline.Point{X: mfx, Y: mfy}
}

// DetectAndFixOrientationSwaps compares each valid frame with the last valid
// frame before it and reverses its point order when the reversed pairing is
// clearly closer. Frames where neither pairing is clearly closer are treated
// as likely stage shifts: the translation is estimated and removed before
// the comparison is repeated. It returns the number of frames reversed.
func (r *Reconciler) DetectAndFixOrientationSwaps() int {
	ratio := r.opts.SwapRatio
	var smallGaps []float64
	swaps := 0
	ref := -1

	// decide reports whether cur should be reversed and whether the
	// comparison was unambiguous.
	decide := func(forward, reversed float64) (swap, clear bool) {
		if reversed*ratio < forward {
			smallGaps = append(smallGaps, reversed)
			return true, true
		}
		if forward*ratio < reversed {
			smallGaps = append(smallGaps, forward)
			return false, true
		}
		return false, false
	}

	for f := range r.frames {
		if !r.frames[f].Valid {
			continue
		}
		if ref < 0 {
			ref = f
			continue
		}
		prev := r.frames[ref].Points
		cur := r.frames[f].Points

		swap, clear := decide(orientationGaps(prev, cur, midline.Point{}))
		if !clear {
			r.diag.LikelyStageShifts = append(r.diag.LikelyStageShifts, f)
			offset := shiftEstimate(prev, cur)
			swap, clear = decide(orientationGaps(prev, cur, offset))
			monitoring.Tracef("stitch: frame %d likely stage shift, offset (%.1f, %.1f), resolved=%v", f, offset.X, offset.Y, clear)
		}
		if swap {
			r.frames[f].Points = cur.Reversed()
			swaps++
			monitoring.Tracef("stitch: frame %d reversed", f)
		}
		ref = f
	}

	r.diag.SwapsFixed += swaps
	r.diag.SmallGapSamples = len(smallGaps)
	if len(smallGaps) >= r.opts.SmallGapMinSamples {
		r.diag.SmallGapMean = stat.Mean(smallGaps, nil)
		r.diag.HasSmallGapMean = true
		monitoring.Diagf("stitch: small-gap reference distance %.3f over %d samples", r.diag.SmallGapMean, len(smallGaps))
	}
	monitoring.Diagf("stitch: %d orientation swaps fixed, %d likely stage shifts", swaps, len(r.diag.LikelyStageShifts))
	return swaps
}
