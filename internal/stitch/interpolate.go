package stitch

import (
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/larva.report/internal/failure"
	"github.com/banshee-data/larva.report/internal/midline"
	"github.com/banshee-data/larva.report/internal/monitoring"
)

// InterpolateMissingPoints fills interior gaps shorter than MaxGapSeconds
// by linear interpolation between the bounding valid frames. Invalid frames
// at either end, or a longer interior gap, fail the video.
func (r *Reconciler) InterpolateMissingPoints() error {
	abs := r.abs
	n := len(abs)
	if midline.CountValid(abs) < MinFrames {
		return stageErr(failure.InsufficientData, "%w: %d of %d frames valid", ErrTooFewValidFrames, midline.CountValid(abs), n)
	}

	lead := 0
	for lead < n && !abs[lead].Valid {
		lead++
	}
	if lead > 0 {
		return stageErr(failure.UnrecoverableGap, "%w: %d invalid frames at the start", ErrBoundaryGap, lead)
	}
	trail := 0
	for trail < n && !abs[n-1-trail].Valid {
		trail++
	}
	if trail > 0 {
		return stageErr(failure.UnrecoverableGap, "%w: %d invalid frames at the end", ErrBoundaryGap, trail)
	}

	limit := r.opts.MaxGapSeconds * r.frameRate
	start := 0
	filled := 0
	for f := 1; f < n; f++ {
		if !abs[f].Valid {
			continue
		}
		span := f - start
		if span > 1 {
			if float64(span) >= limit {
				return stageErr(failure.UnrecoverableGap, "%w: frames %d-%d (%d frames, limit %.1f)",
					ErrInteriorGap, start+1, f-1, span-1, limit)
			}
			a, c := abs[start].Points, abs[f].Points
			for j := start + 1; j < f; j++ {
				t := float64(j-start) / float64(span)
				var s midline.Skeleton
				for k := range s {
					s[k] = midline.Lerp(a[k], c[k], t)
				}
				abs[j] = midline.Found(s)
				filled++
			}
		}
		start = f
	}
	r.diag.FramesInterpolated += filled
	monitoring.Diagf("stitch: %d frames interpolated", filled)
	return nil
}

// FixGlobalHeadTailAmbiguity reverses every frame when the first four
// points move less, on average, than the last four. The head leads
// crawling, so after this pass index 0 is the more mobile end. It reports
// whether the video was flipped.
func (r *Reconciler) FixGlobalHeadTailAmbiguity() bool {
	const ends = 4
	var front, back []float64
	for f := 1; f < len(r.abs); f++ {
		if !r.abs[f].Valid || !r.abs[f-1].Valid {
			continue
		}
		prev, cur := r.abs[f-1].Points, r.abs[f].Points
		for i := 0; i < ends; i++ {
			front = append(front, midline.Distance(prev[i], cur[i]))
			back = append(back, midline.Distance(prev[midline.Count-1-i], cur[midline.Count-1-i]))
		}
	}
	if len(front) == 0 {
		return false
	}
	frontMean := stat.Mean(front, nil)
	backMean := stat.Mean(back, nil)
	if frontMean >= backMean {
		return false
	}
	for f := range r.abs {
		if r.abs[f].Valid {
			r.abs[f].Points = r.abs[f].Points.Reversed()
		}
	}
	r.diag.HeadTailFlipped = true
	monitoring.Diagf("stitch: head/tail flipped video-wide (front hop %.4f < back hop %.4f)", frontMean, backMean)
	return true
}
