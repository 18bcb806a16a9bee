package kinematics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/larva.report/internal/midline"
)

// Valid reports whether the run has at least minStrides strides.
func (r *Run) Valid(minStrides int) bool { return len(r.Strides) >= minStrides }

// add appends s when it starts within Cushion frames of the last stride's
// end.
func (r *Run) add(s Stride) bool {
	if n := len(r.Strides); n > 0 && s.FirstMinimum > r.Strides[n-1].SecondMinimum+r.Cushion {
		return false
	}
	r.Strides = append(r.Strides, s)
	return true
}

// findRuns groups strides into runs. The cushion is half the mean stride
// length in frames. A stride that cannot extend the current run starts a
// new one; the current run is kept only if it is already valid.
func (a *analyzer) findRuns() {
	if len(a.strides) < 2 {
		return
	}
	lengths := make([]float64, len(a.strides))
	for i, s := range a.strides {
		lengths[i] = float64(s.Frames())
	}
	cushion := int(math.Floor(stat.Mean(lengths, nil) / 2))

	var all []*Run
	var cur *Run
	for _, s := range a.strides {
		if cur == nil {
			cur = &Run{Number: len(all) + 1, Cushion: cushion}
			all = append(all, cur)
		}
		if cur.add(s) {
			continue
		}
		if cur.Valid(a.opts.MinRunStrides) {
			cur = &Run{Number: len(all) + 1, Cushion: cushion}
			all = append(all, cur)
		} else {
			cur.Strides = cur.Strides[:0]
		}
		cur.add(s)
	}
	for _, r := range all {
		if r.Valid(a.opts.MinRunStrides) {
			a.runs = append(a.runs, *r)
		}
	}
}

// runDistance sums centroid hops over floor(frameRate)-frame segments
// bounded by the run.
func (a *analyzer) runDistance(r Run) float64 {
	step := max(int(a.rate), 1)
	first := r.Strides[0].FirstMinimum
	last := r.Strides[len(r.Strides)-1].SecondMinimum
	var total float64
	for start := first; start < last; start += step {
		end := min(start+step, last)
		total += midline.Distance(a.frames[start].Points.Centroid(), a.frames[end].Points.Centroid())
	}
	return total
}

func (a *analyzer) writeRunStatistics() {
	var distance, duration, strides []float64
	for _, r := range a.runs {
		first := r.Strides[0].FirstMinimum
		last := r.Strides[len(r.Strides)-1].SecondMinimum
		distance = append(distance, a.runDistance(r))
		duration = append(duration, a.seconds(last-first))
		strides = append(strides, float64(len(r.Strides)))
	}
	a.b.Stats("run_distance[mm]", distance)
	a.b.Stats("run_duration[second]", duration)
	a.b.Stats("strides_per_run", strides)
	a.b.Number("runs_per_minute", float64(len(a.runs))/(a.seconds(len(a.frames))/60))
}
