package kinematics

import (
	"fmt"

	"github.com/banshee-data/larva.report/internal/midline"
	"github.com/banshee-data/larva.report/internal/monitoring"
)

// findStrides pairs consecutive local minima into strides. A pair qualifies
// when the tail midpoint moved more than mean/StrideDivisor, no frame in
// the interval bends its body past the threshold, and at most one frame
// bends its head past it.
func (a *analyzer) findStrides() {
	threshold := a.lengthMean / a.opts.StrideDivisor
	prev := -1
	number := 0
	for f := range a.frames {
		if !a.frames[f].LocalMinimum {
			continue
		}
		if prev >= 0 {
			if s, ok := a.qualifyStride(prev, f, threshold); ok {
				number++
				s.Number = number
				a.strides = append(a.strides, s)
			}
		}
		prev = f
	}
}

func (a *analyzer) qualifyStride(first, second int, threshold float64) (Stride, bool) {
	from, to := a.frames[first].Points, a.frames[second].Points
	tail := midline.Distance(from.TailMidpoint(), to.TailMidpoint())
	if tail <= threshold {
		monitoring.Tracef("minima %d..%d: tail moved %.3f mm, below %.3f", first, second, tail, threshold)
		return Stride{}, false
	}

	headBends := 0
	for q := first; q <= second; q++ {
		if a.frames[q].BendingBody >= a.opts.BendingThreshold {
			monitoring.Tracef("minima %d..%d: body bending at frame %d", first, second, q)
			return Stride{}, false
		}
		if a.frames[q].BendingHead >= a.opts.BendingThreshold {
			headBends++
		}
	}
	if headBends >= 2 {
		monitoring.Tracef("minima %d..%d: %d head-bending frames", first, second, headBends)
		return Stride{}, false
	}

	s := Stride{
		FirstMinimum:   first,
		SecondMinimum:  second,
		DistanceCenter: midline.Distance(from.Centroid(), to.Centroid()),
		OverRepellent:  a.anyOutside(first, second),
	}
	for k := range s.DistanceAt {
		s.DistanceAt[k] = midline.Distance(from[k], to[k])
	}
	return s, true
}

// computeContractionRates locates the extended frame of every stride and
// derives its extension and contraction rates. Strides with no interior
// extended frame or with a negative rate are discarded.
func (a *analyzer) computeContractionRates() {
	kept := a.strides[:0]
	for _, s := range a.strides {
		firstLen := a.frames[s.FirstMinimum].BodyLength
		secondLen := a.frames[s.SecondMinimum].BodyLength
		extended, extendedLen := -1, min(firstLen, secondLen)
		for f := s.FirstMinimum + 1; f < s.SecondMinimum; f++ {
			if a.frames[f].BodyLength > extendedLen {
				extended, extendedLen = f, a.frames[f].BodyLength
			}
		}
		if extended < 0 {
			monitoring.Tracef("stride %d has no extended frame, discarded", s.Number)
			continue
		}
		s.Extended = extended
		s.ExtensionRate = (extendedLen - firstLen) / a.seconds(extended-s.FirstMinimum)
		s.ContractionRate = (extendedLen - secondLen) / a.seconds(s.SecondMinimum-extended)
		if s.ExtensionRate < 0 || s.ContractionRate < 0 {
			monitoring.Tracef("stride %d has a negative rate (extension %.3f, contraction %.3f), discarded",
				s.Number, s.ExtensionRate, s.ContractionRate)
			continue
		}
		kept = append(kept, s)
	}
	a.strides = kept
}

func (a *analyzer) markStriding() {
	for _, s := range a.strides {
		for f := s.FirstMinimum; f <= s.SecondMinimum; f++ {
			a.frames[f].Striding = true
		}
	}
}

func (a *analyzer) strideSeconds(s Stride) float64 { return a.seconds(s.Frames()) }

func (a *analyzer) writeStrideStatistics() {
	var stridingSeconds float64
	for _, s := range a.strides {
		stridingSeconds += a.strideSeconds(s)
	}
	var in, out int
	for _, f := range a.frames {
		if !f.Striding {
			continue
		}
		if f.Outside {
			out++
		} else {
			in++
		}
	}
	total := a.seconds(len(a.frames))
	_, inside, outside := a.zoneRatio(in, out)
	a.b.Percent("time_striding_overall[%]", stridingSeconds/total)
	a.b.Percent("time_striding_inside[%]", inside)
	a.b.Percent("time_striding_outside[%]", outside)
	a.b.Number("strides_per_minute", float64(len(a.strides))/(total/60))

	for _, zone := range zones {
		var values []float64
		for _, s := range a.strides {
			if zone.match(s.OverRepellent) {
				values = append(values, a.strideSeconds(s))
			}
		}
		a.b.Stats(fmt.Sprintf("stride_duration_%s[second]", zone.name), values)
	}
	for _, zone := range zones {
		var values []float64
		for _, s := range a.strides {
			if zone.match(s.OverRepellent) {
				values = append(values, s.DistanceCenter)
			}
		}
		a.b.Stats(fmt.Sprintf("stride_distance_%s[mm]", zone.name), values)
	}
	for _, zone := range zones {
		for k := 0; k < midline.Count; k++ {
			var values []float64
			for _, s := range a.strides {
				if zone.match(s.OverRepellent) {
					values = append(values, s.DistanceAt[k]/a.strideSeconds(s))
				}
			}
			a.b.Stats(fmt.Sprintf("speed_striding_%s_at_point_%d[mm/second]", zone.name, k), values)
		}
	}
}

func (a *analyzer) writeContractionRates() {
	for _, zone := range zones {
		var values []float64
		for _, s := range a.strides {
			if zone.match(s.OverRepellent) {
				values = append(values, s.ContractionRate)
			}
		}
		a.b.Stats(fmt.Sprintf("contraction_rate_%s[mm/second]", zone.name), values)
	}
	for _, zone := range zones {
		var values []float64
		for _, s := range a.strides {
			if zone.match(s.OverRepellent) {
				values = append(values, s.ExtensionRate)
			}
		}
		a.b.Stats(fmt.Sprintf("extension_rate_%s[mm/second]", zone.name), values)
	}
}
