package midline

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
)

func straight(step float64) Skeleton {
	var s Skeleton
	for i := range s {
		s[i] = Point{X: float64(i) * step}
	}
	return s
}

func TestArcLength(t *testing.T) {
	assert.InDelta(t, 12*0.5, straight(0.5).ArcLength(), 1e-12)
	assert.Zero(t, Skeleton{}.ArcLength())
}

func TestReversedRoundTrip(t *testing.T) {
	s := straight(1)
	s[3] = Point{X: 3, Y: 2}
	r := s.Reversed()
	assert.Equal(t, s[0], r[Count-1])
	assert.Equal(t, s[3], r[Count-4])
	if diff := cmp.Diff(s, r.Reversed()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCentroidAndTail(t *testing.T) {
	s := straight(1)
	assert.Equal(t, Point{X: 6}, s.Centroid())
	assert.Equal(t, Point{X: 11.5}, s.TailMidpoint())
}

func TestWeighted(t *testing.T) {
	got := Weighted([]Point{{X: 0}, {X: 1}, {X: 2}}, []float64{1, 2, 1})
	assert.Equal(t, Point{X: 1}, got)
}

func TestFoldedAngle(t *testing.T) {
	t.Parallel()
	o := Point{}
	tests := []struct {
		name   string
		a1, a2 Point
		b1, b2 Point
		want   float64
	}{
		{"parallel", o, Point{X: 1}, o, Point{X: 1}, 0},
		{"right angle", o, Point{X: 1}, o, Point{Y: 1}, 90},
		{"opposite", o, Point{X: 1}, Point{X: 1}, o, 180},
		{"wraps past 180", Point{X: -1, Y: 0.01}, o, Point{X: -1, Y: -0.01}, o, 2 * math.Atan2(0.01, 1) * 180 / math.Pi},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := FoldedAngle(tt.a1, tt.a2, tt.b1, tt.b2)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("FoldedAngle mismatch (-want +got):\n%s", diff)
			}
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 180.0)
		})
	}
}

func TestCountValid(t *testing.T) {
	frames := []Frame{Found(straight(1)), Missing(), Found(straight(2))}
	assert.Equal(t, 2, CountValid(frames))
}
