package kinematics

import (
	"math"

	"github.com/banshee-data/larva.report/internal/monitoring"
)

// smoothingWeights apply at offsets -2..+2. Offsets past either end are
// dropped from both the sum and the divisor.
var smoothingWeights = [5]float64{1, 3, 6, 3, 1}

func (a *analyzer) smoothBodyLength() {
	n := len(a.frames)
	for f := range a.frames {
		var sum, div float64
		for k, w := range smoothingWeights {
			i := f + k - 2
			if i < 0 || i >= n {
				continue
			}
			sum += a.frames[i].BodyLength * w
			div += w
		}
		a.frames[f].SmoothBodyLength = sum / div
	}
}

// extremaHalfWindow is floor(frameRate/2).
func (a *analyzer) extremaHalfWindow() int {
	return int(math.Floor(a.rate / 2))
}

// detectExtrema flags local maxima and minima of the smoothed length. A
// frame is a candidate when it holds the window extreme, ties going to the
// later index. Two maxima with no minimum between them keep only the
// larger; minima are symmetric. The last processable frame becomes a
// forced minimum when the curve is still falling from the last maximum.
//
// Running it again over flagged frames leaves every flag unchanged.
func (a *analyzer) detectExtrema() {
	p := a.extremaHalfWindow()
	n := len(a.frames)
	last := n - p - 1
	prevMax, prevMin := -1, -1
	for f := p; f <= last; f++ {
		maxIdx, minIdx := f, f
		for m := f - p; m <= f+p; m++ {
			if a.frames[maxIdx].SmoothBodyLength <= a.frames[m].SmoothBodyLength {
				maxIdx = m
			}
			if a.frames[minIdx].SmoothBodyLength >= a.frames[m].SmoothBodyLength {
				minIdx = m
			}
		}

		if maxIdx == f {
			if prevMax != -1 && prevMin < prevMax {
				if a.frames[f].SmoothBodyLength >= a.frames[prevMax].SmoothBodyLength {
					a.frames[prevMax].LocalMaximum = false
				} else {
					maxIdx = prevMax
				}
			}
			a.frames[maxIdx].LocalMaximum = true
			prevMax = maxIdx
		}

		if minIdx == f {
			if prevMin != -1 && prevMax < prevMin {
				if a.frames[f].SmoothBodyLength <= a.frames[prevMin].SmoothBodyLength {
					a.frames[prevMin].LocalMinimum = false
				} else {
					minIdx = prevMin
				}
			}
			a.frames[minIdx].LocalMinimum = true
			prevMin = minIdx
		}

		if f == last && prevMax != -1 && prevMin < prevMax &&
			a.frames[f].BodyLength < a.frames[prevMax].BodyLength {
			a.frames[f].LocalMinimum = true
		}
	}
}

// filterSpuriousMinima drops a minimum whose following rise is too small to
// be a real contraction. For each minimum followed by a maximum, a minimum
// and a maximum, when the raw peak before the middle minimum and the raw
// trough around it differ by less than mean/SpuriousDivisor, the higher of
// the two minima and the maximum between them are cleared.
func (a *analyzer) filterSpuriousMinima() {
	threshold := a.lengthMean / a.opts.SpuriousDivisor
	var idx []int
	for f := range a.frames {
		if a.frames[f].LocalMinimum || a.frames[f].LocalMaximum {
			idx = append(idx, f)
		}
	}

	for i, f := range idx {
		if !a.frames[f].LocalMinimum || i+4 >= len(idx) {
			continue
		}
		firstMax, midMin, secondMax := idx[i+1], idx[i+2], idx[i+3]
		if !a.frames[firstMax].LocalMaximum || !a.frames[midMin].LocalMinimum || !a.frames[secondMax].LocalMaximum {
			monitoring.Tracef("extrema after frame %d do not alternate; spurious check skipped", f)
			continue
		}

		peak := a.frames[f].BodyLength
		for q := f; q < midMin; q++ {
			peak = max(peak, a.frames[q].BodyLength)
		}
		trough := a.frames[firstMax].BodyLength
		for q := firstMax; q <= secondMax; q++ {
			trough = min(trough, a.frames[q].BodyLength)
		}
		if peak-trough >= threshold {
			continue
		}
		if a.frames[f].BodyLength < a.frames[midMin].BodyLength {
			a.frames[midMin].LocalMinimum = false
			monitoring.Tracef("spurious minimum at frame %d cleared", midMin)
		} else {
			a.frames[f].LocalMinimum = false
			monitoring.Tracef("spurious minimum at frame %d cleared", f)
		}
		a.frames[firstMax].LocalMaximum = false
	}
}

func (a *analyzer) writeExtendedContracted() {
	var contracted, extended []float64
	for _, f := range a.frames {
		if f.LocalMinimum {
			contracted = append(contracted, f.BodyLength)
		}
		if f.LocalMaximum {
			extended = append(extended, f.BodyLength)
		}
	}
	a.b.Stats("body_length_contracted[mm]", contracted)
	a.b.Stats("body_length_extended[mm]", extended)
}
