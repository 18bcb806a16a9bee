package kinematics

import (
	"fmt"

	"github.com/banshee-data/larva.report/internal/midline"
)

var (
	headChordWeights = []float64{1, 1, 1}
	bodyChordWeights = []float64{1, 2, 1}
)

// bendingAngles returns the head and body bending of one skeleton in
// degrees, both folded to [0, 180].
func bendingAngles(s midline.Skeleton) (head, body float64) {
	head = midline.FoldedAngle(
		s[0], s[1],
		midline.Weighted(s[1:4], headChordWeights),
		midline.Weighted(s[3:6], headChordWeights),
	)
	body = midline.FoldedAngle(
		midline.Weighted(s[0:3], bodyChordWeights),
		midline.Weighted(s[3:6], bodyChordWeights),
		midline.Weighted(s[7:10], bodyChordWeights),
		midline.Weighted(s[10:13], bodyChordWeights),
	)
	return head, body
}

func (a *analyzer) computeBending() {
	for i := range a.frames {
		a.frames[i].BendingHead, a.frames[i].BendingBody = bendingAngles(a.frames[i].Points)
	}
}

func (a *analyzer) writeBendingPercentages() {
	limit := a.opts.BendingThreshold
	var head, body, either [2]int
	for _, f := range a.frames {
		zone := 0
		if f.Outside {
			zone = 1
		}
		h, b := f.BendingHead >= limit, f.BendingBody >= limit
		if h {
			head[zone]++
		}
		if b {
			body[zone]++
		}
		if h || b {
			either[zone]++
		}
	}
	a.writeZonePercent("time_head_bending", head[0], head[1])
	a.writeZonePercent("time_body_bending", body[0], body[1])
	a.writeZonePercent("time_bending", either[0], either[1])
}

// computeSpeed fills the central-difference speed of the centroid and of
// every point. Frames within SpeedPadding of either end have no speed.
func (a *analyzer) computeSpeed() {
	p := a.opts.SpeedPadding
	dt := float64(2*p) / a.rate
	for f := p; f+p < len(a.frames); f++ {
		before, after := a.frames[f-p].Points, a.frames[f+p].Points
		fr := &a.frames[f]
		fr.Speed = midline.Distance(before.Centroid(), after.Centroid()) / dt
		for k := range fr.SpeedAt {
			fr.SpeedAt[k] = midline.Distance(before[k], after[k]) / dt
		}
		fr.HasSpeed = true
	}
}

func (a *analyzer) writeSpeedStatistics() {
	var overall, inside, outside []float64
	for _, f := range a.frames {
		if !f.HasSpeed {
			continue
		}
		overall = append(overall, f.Speed)
		if f.Outside {
			outside = append(outside, f.Speed)
		} else {
			inside = append(inside, f.Speed)
		}
	}
	a.b.Stats("speed_overall[mm/second]", overall)
	a.b.Stats("speed_inside[mm/second]", inside)
	a.b.Stats("speed_outside[mm/second]", outside)

	for _, zone := range zones {
		for k := 0; k < midline.Count; k++ {
			var values []float64
			for _, f := range a.frames {
				if f.HasSpeed && zone.match(f.Outside) {
					values = append(values, f.SpeedAt[k])
				}
			}
			a.b.Stats(fmt.Sprintf("speed_%s_at_point_%d[mm/second]", zone.name, k), values)
		}
	}
}

// computeDirectionChange measures, for every interior frame, the turn
// between the chord from the nearest earlier frame whose centroid is at
// least DirectionDistance away and the chord to the nearest such later
// frame. Frames lacking either neighbour have no direction change.
func (a *analyzer) computeDirectionChange() {
	limit := a.opts.DirectionDistance
	n := len(a.frames)
	for f := 1; f < n-1; f++ {
		c := a.frames[f].Points.Centroid()
		before := -1
		for q := f - 1; q >= 0; q-- {
			if midline.Distance(c, a.frames[q].Points.Centroid()) >= limit {
				before = q
				break
			}
		}
		if before < 0 {
			continue
		}
		after := -1
		for q := f + 1; q < n; q++ {
			if midline.Distance(c, a.frames[q].Points.Centroid()) >= limit {
				after = q
				break
			}
		}
		if after < 0 {
			continue
		}
		a.frames[f].DirectionChange = midline.FoldedAngle(
			a.frames[before].Points.Centroid(), c,
			c, a.frames[after].Points.Centroid(),
		)
		a.frames[f].HasDirectionChange = true
	}
}

func (a *analyzer) writeDirectionChange() {
	var measured, inside, outside int
	for _, f := range a.frames {
		if !f.HasDirectionChange {
			continue
		}
		measured++
		if f.DirectionChange < a.opts.DirectionAngle {
			continue
		}
		if f.Outside {
			outside++
		} else {
			inside++
		}
	}
	if measured == 0 {
		a.b.Null("direction_change_overall[%]")
		a.b.Null("direction_change_inside[%]")
		a.b.Null("direction_change_outside[%]")
		return
	}
	a.writeZonePercent("direction_change", inside, outside)
}

// writeDistancePerMinute sums centroid hops over consecutive segments of
// floor(frameRate) frames. A segment touching the outside zone counts as
// outside.
func (a *analyzer) writeDistancePerMinute() {
	n := len(a.frames)
	step := max(int(a.rate), 1)
	var inside, outside float64
	for start := 0; start < n; start += step {
		end := min(start+step, n-1)
		if start == end {
			break
		}
		d := midline.Distance(a.frames[start].Points.Centroid(), a.frames[end].Points.Centroid())
		if a.anyOutside(start, end) {
			outside += d
		} else {
			inside += d
		}
	}
	perMinute := func(mm float64, frames int) float64 {
		return mm / (a.seconds(frames) / 60)
	}
	a.b.Number("distance_traveled_per_minute_overall[mm]", perMinute(inside+outside, n))
	a.b.Number("distance_traveled_per_minute_inside[mm]", perMinute(inside, a.inside))
	if a.outside > 0 {
		a.b.Number("distance_traveled_per_minute_outside[mm]", perMinute(outside, a.outside))
	} else {
		a.b.Number("distance_traveled_per_minute_outside[mm]", 0)
	}
}

func (a *analyzer) anyOutside(lo, hi int) bool {
	for f := lo; f <= hi; f++ {
		if a.frames[f].Outside {
			return true
		}
	}
	return false
}

type zoneFilter struct {
	name string
	// outside is nil for the overall partition.
	outside *bool
}

func (z zoneFilter) match(outside bool) bool {
	return z.outside == nil || *z.outside == outside
}

var (
	isInside  = false
	isOutside = true
	zones     = []zoneFilter{
		{name: "overall"},
		{name: "inside", outside: &isInside},
		{name: "outside", outside: &isOutside},
	}
)
