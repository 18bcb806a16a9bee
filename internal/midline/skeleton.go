package midline

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// Count is the number of midline points per frame.
	Count = 13
	// Center is the index of the centroid point used for displacement.
	Center = Count / 2
	// Head and Tail are the conventional end indices after orientation fixing.
	Head = 0
	Tail = Count - 1
)

// Point is a 2D coordinate.
type Point struct {
	X, Y float64
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Lerp returns the point t of the way from a to b.
func Lerp(a, b Point, t float64) Point {
	return Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

// Weighted returns the weighted mean of pts. pts and weights must have the
// same length and the weights must not sum to zero.
func Weighted(pts []Point, weights []float64) Point {
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}
	sum := floats.Sum(weights)
	return Point{X: floats.Dot(xs, weights) / sum, Y: floats.Dot(ys, weights) / sum}
}

// Skeleton is the ordered midline of one frame, head first.
type Skeleton [Count]Point

// ArcLength is the sum of distances between consecutive points.
func (s Skeleton) ArcLength() float64 {
	var total float64
	for i := 1; i < Count; i++ {
		total += Distance(s[i-1], s[i])
	}
	return total
}

// Reversed returns the skeleton with its point order flipped.
func (s Skeleton) Reversed() Skeleton {
	var out Skeleton
	for i := range s {
		out[i] = s[Count-1-i]
	}
	return out
}

// Centroid returns the center point.
func (s Skeleton) Centroid() Point { return s[Center] }

// TailMidpoint returns the midpoint of the last two points.
func (s Skeleton) TailMidpoint() Point { return Lerp(s[Count-2], s[Count-1], 0.5) }

// Translate returns the skeleton shifted by -offset.
func (s Skeleton) Translate(offset Point) Skeleton {
	var out Skeleton
	for i, p := range s {
		out[i] = p.Sub(offset)
	}
	return out
}

// heading is the direction of the chord pointing from b to a, in radians.
func heading(a, b Point) float64 {
	return math.Atan2(a.Y-b.Y, a.X-b.X)
}

// FoldedAngle returns the angle in degrees between chord a1-a2 and chord
// b1-b2, wrapped into [-180, 180] and folded to [0, 180].
func FoldedAngle(a1, a2, b1, b2 Point) float64 {
	d := (heading(a1, a2) - heading(b1, b2)) * 180 / math.Pi
	if d < -180 {
		d += 360
	}
	if d > 180 {
		d = 360 - d
	}
	return math.Abs(d)
}
