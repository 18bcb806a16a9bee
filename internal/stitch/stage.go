package stitch

import (
	"github.com/banshee-data/larva.report/internal/midline"
	"github.com/banshee-data/larva.report/internal/monitoring"
)

// AssignStagePositionIndex maps every frame to the stage position active at
// its timestamp. The active index advances when a frame's timestamp has
// passed both the current and the next stage position. When the last two
// frames would share an index while another stage position is still
// pending, the last frame is moved onto that pending position.
func (r *Reconciler) AssignStagePositionIndex() []int {
	n := len(r.frames)
	idx := make([]int, n)
	pos := 0
	hasNext := len(r.stage) > 1

	for f := 0; f < n; f++ {
		t := r.timing.Timestamps[f]
		idx[f] = pos
		if hasNext && t >= r.stage[pos].Time && t > r.stage[pos+1].Time {
			pos++
			idx[f] = pos
			hasNext = pos+1 < len(r.stage)
		}
	}
	if hasNext && n >= 2 && idx[n-1] == pos && idx[n-2] == pos {
		idx[n-1] = pos + 1
	}
	r.stageIndex = idx
	return idx
}

// toPlate converts one pixel point to plate millimetres at the given stage
// position. Image y grows downward; plate y grows upward.
func (r *Reconciler) toPlate(p midline.Point, s midline.StagePosition) midline.Point {
	halfW := float64(r.calib.ImageWidth) / 2
	halfH := float64(r.calib.ImageHeight) / 2
	return midline.Point{
		X: ((p.X-halfW)*r.calib.XStepsPerPixel - s.X) / 1000,
		Y: ((halfH-p.Y)*r.calib.YStepsPerPixel + s.Y) / 1000,
	}
}

// scaleRange rewrites abs[lo..hi] from the pixel frames using indexMap.
func (r *Reconciler) scaleRange(abs []midline.Frame, indexMap []int, lo, hi int) {
	for f := lo; f <= hi; f++ {
		if !r.frames[f].Valid {
			abs[f] = midline.Missing()
			continue
		}
		s := r.stage[indexMap[f]]
		var out midline.Skeleton
		for i, p := range r.frames[f].Points {
			out[i] = r.toPlate(p, s)
		}
		abs[f] = midline.Found(out)
	}
}

// ToAbsoluteScale converts every valid frame to plate millimetres using the
// given frame-to-stage index map. Invalid frames stay invalid.
func (r *Reconciler) ToAbsoluteScale(indexMap []int) []midline.Frame {
	abs := make([]midline.Frame, len(r.frames))
	r.scaleRange(abs, indexMap, 0, len(abs)-1)
	return abs
}

// DistanceTraveled sums the centroid hops between consecutive valid frames,
// bridging invalid frames.
func DistanceTraveled(abs []midline.Frame) float64 {
	var total float64
	prev := -1
	for f, fr := range abs {
		if !fr.Valid {
			continue
		}
		if prev >= 0 {
			total += midline.Distance(abs[prev].Points.Centroid(), fr.Points.Centroid())
		}
		prev = f
	}
	return total
}

// relabel moves the boundary between stage indices si-1 and si inside
// [lo, hi] so that it falls at split.
func relabel(idx []int, lo, hi, si, split int) {
	for f := lo; f <= hi; f++ {
		if idx[f] != si-1 && idx[f] != si {
			continue
		}
		if f < split {
			idx[f] = si - 1
		} else {
			idx[f] = si
		}
	}
}

// RefineStageShiftBoundaries searches a window around each stage boundary,
// in increasing stage order, for the split frame that minimises total
// centroid path length. The running best starts at baseline and carries
// across boundaries; a boundary that cannot beat it keeps its split. It
// returns the number of boundaries moved.
func (r *Reconciler) RefineStageShiftBoundaries(baseline float64) int {
	n := len(r.frames)
	work := append([]int(nil), r.stageIndex...)
	abs := r.ToAbsoluteScale(work)
	best := baseline
	moved := 0

	for si := 1; si < len(r.stage); si++ {
		first := -1
		for f, v := range work {
			if v == si {
				first = f
				break
			}
		}
		if first < 0 {
			monitoring.Diagf("stitch: no frame carries stage index %d, refinement stops", si)
			break
		}
		lo := max(0, first-r.opts.RefineWindow)
		hi := min(n-1, first+r.opts.RefineWindow)

		bestSplit := first
		for split := lo; split <= hi; split++ {
			if work[split] != si-1 && work[split] != si {
				continue
			}
			relabel(work, lo, hi, si, split)
			r.scaleRange(abs, work, lo, hi)
			if d := DistanceTraveled(abs); d < best {
				best = d
				bestSplit = split
			}
		}
		relabel(work, lo, hi, si, bestSplit)
		r.scaleRange(abs, work, lo, hi)
		if bestSplit != first {
			moved++
			monitoring.Tracef("stitch: stage boundary %d moved from frame %d to %d", si, first, bestSplit)
		}
	}

	r.stageIndex = work
	r.diag.BoundariesMoved += moved
	monitoring.Diagf("stitch: path length %.3f mm before refinement, %.3f after, %d boundaries moved", baseline, best, moved)
	return moved
}
