package kinematics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/larva.report/internal/failure"
	"github.com/banshee-data/larva.report/internal/midline"
	"github.com/banshee-data/larva.report/internal/report"
)

// straight lays a skeleton of the given length along +x, head first,
// centred on (cx, cy).
func straight(cx, cy, length float64) midline.Skeleton {
	var s midline.Skeleton
	for k := range s {
		s[k] = midline.Point{X: cx + length/2 - float64(k)*length/float64(midline.Count-1), Y: cy}
	}
	return s
}

// crawl builds n frames whose length follows a triangle wave with minima
// every period frames while the centroid advances dx per frame.
func crawl(n, period int, amplitude, dx float64) []midline.Skeleton {
	half := float64(period) / 2
	out := make([]midline.Skeleton, n)
	for f := range out {
		tri := amplitude * (1 - math.Abs(float64(f%period)-half)/half)
		out[f] = straight(-3+dx*float64(f), 0, 3+tri)
	}
	return out
}

func newTestAnalyzer(skeletons []midline.Skeleton, rate float64) *analyzer {
	a := &analyzer{
		opts:   DefaultOptions(),
		rate:   rate,
		frames: make([]Frame, len(skeletons)),
		b:      report.NewBuilder(Stage),
	}
	for i, s := range skeletons {
		a.frames[i].Points = s
	}
	return a
}

func metric(t *testing.T, res *Result, key string) string {
	t.Helper()
	v, ok := res.Metrics.Get(key)
	require.True(t, ok, "metric %q missing", key)
	return v
}

func TestAnalyzeTriangleWave(t *testing.T) {
	res, err := Analyze("L1", crawl(200, 30, 1.0, 0.02), 10, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, res.Strides, 200/30-1)
	for i, s := range res.Strides {
		assert.Equal(t, 30*(i+1), s.FirstMinimum, "stride %d", i)
		assert.Equal(t, 30*(i+2), s.SecondMinimum, "stride %d", i)
		assert.Equal(t, s.FirstMinimum+15, s.Extended)
		assert.Greater(t, s.SecondMinimum, s.FirstMinimum)
		assert.InDelta(t, 1/1.5, s.ExtensionRate, 1e-9)
		assert.InDelta(t, 1/1.5, s.ContractionRate, 1e-9)
		assert.InDelta(t, 0.6, s.DistanceCenter, 1e-9)
		assert.False(t, s.OverRepellent)
	}

	assert.Zero(t, res.OutsideFrames)
	assert.Equal(t, 200, res.InsideFrames)
	assert.Equal(t, "1.0", metric(t, res, "time_not_over_repellent[%]"))
	assert.Equal(t, "0.0", metric(t, res, "time_bending_overall[%]"))
	assert.Equal(t, "15.0", metric(t, res, "strides_per_minute"))
	assert.Equal(t, "11.94", metric(t, res, "distance_traveled_per_minute_overall[mm]"))
	assert.Equal(t, "0.0", metric(t, res, "distance_traveled_per_minute_outside[mm]"))
	assert.Equal(t, report.Null, metric(t, res, "direction_change_overall[%]"))
	assert.Equal(t, "5", metric(t, res, "stride_duration_overall_n"))
	assert.Equal(t, "3.0", metric(t, res, "stride_duration_overall[second]_mean"))
	assert.Equal(t, report.Null, metric(t, res, "stride_duration_outside[second]_mean"))
	assert.Equal(t, "3.0", metric(t, res, "runs_per_minute"))
	assert.Equal(t, "5.0", metric(t, res, "strides_per_run_mean"))

	require.Len(t, res.Runs, 1)
	assert.Equal(t, 15, res.Runs[0].Cushion)
	assert.Len(t, res.Runs[0].Strides, 5)

	assert.Equal(t, 0, res.StrideOf[10])
	assert.Equal(t, 1, res.StrideOf[30])
	assert.Equal(t, 1, res.StrideOf[60], "shared boundary belongs to the earlier stride")
	assert.Equal(t, 2, res.StrideOf[61])
	assert.True(t, res.Frames[45].Striding)
	assert.False(t, res.Frames[190].Striding)

	assert.False(t, res.Frames[1].HasSpeed)
	assert.False(t, res.Frames[198].HasSpeed)
	require.True(t, res.Frames[100].HasSpeed)
	assert.InDelta(t, 0.2, res.Frames[100].Speed, 1e-9)
	assert.InDelta(t, 0.2, res.Frames[100].SpeedAt[midline.Center], 1e-9)

	keys := res.Metrics.Keys()
	assert.Equal(t, []string{"larvae", "frame_rate[fps]", "video_length[seconds]"}, keys[:3])
	assert.Equal(t, "time_not_over_repellent[%]", keys[len(keys)-1])
	assert.Equal(t, "L1", metric(t, res, "larvae"))
	assert.Equal(t, "20.0", metric(t, res, "video_length[seconds]"))
}

func TestAnalyzeKeysAreStable(t *testing.T) {
	moving, err := Analyze("a", crawl(200, 30, 1.0, 0.02), 10, DefaultOptions())
	require.NoError(t, err)

	still := make([]midline.Skeleton, 40)
	for i := range still {
		still[i] = straight(0, 0, 3)
	}
	idle, err := Analyze("b", still, 7.5, DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, idle.Strides)
	assert.Empty(t, idle.Runs)
	assert.Equal(t, moving.Metrics.Keys(), idle.Metrics.Keys())
	assert.Equal(t, report.Null, metric(t, idle, "run_distance[mm]_mean"))
	assert.Equal(t, "0", metric(t, idle, "run_distance_n"))
	assert.Equal(t, "0.0", metric(t, idle, "runs_per_minute"))
}

func TestAnalyzeRejects(t *testing.T) {
	t.Parallel()
	far := make([]midline.Skeleton, 10)
	for i := range far {
		far[i] = straight(40, 0, 3)
	}
	tests := []struct {
		name      string
		skeletons []midline.Skeleton
		rate      float64
	}{
		{"two frames", crawl(2, 30, 1, 0), 10},
		{"slow frame rate", crawl(50, 30, 1, 0), 1.5},
		{"nan frame rate", crawl(50, 30, 1, 0), math.NaN()},
		{"all outside", far, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := Analyze("x", tt.skeletons, tt.rate, DefaultOptions())
			assert.Nil(t, res)
			assert.ErrorIs(t, err, failure.InsufficientData)
			assert.Equal(t, Stage, failure.StageOf(err))
		})
	}
}

func TestSmoothingDropsMissingOffsets(t *testing.T) {
	a := newTestAnalyzer(make([]midline.Skeleton, 4), 10)
	for i, l := range []float64{1, 2, 3, 4} {
		a.frames[i].BodyLength = l
	}
	a.smoothBodyLength()
	assert.InDelta(t, (6*1+3*2+1*3)/10.0, a.frames[0].SmoothBodyLength, 1e-12)
	assert.InDelta(t, (3*1+6*2+3*3+1*4)/13.0, a.frames[1].SmoothBodyLength, 1e-12)
	assert.InDelta(t, (1*2+3*3+6*4)/10.0, a.frames[3].SmoothBodyLength, 1e-12)
}

func TestDetectExtremaIsIdempotent(t *testing.T) {
	a := newTestAnalyzer(crawl(120, 24, 0.8, 0.01), 8)
	a.measureBodyLength()
	a.smoothBodyLength()
	a.detectExtrema()

	type flags struct{ max, min bool }
	snapshot := func() []flags {
		out := make([]flags, len(a.frames))
		for i, f := range a.frames {
			out[i] = flags{f.LocalMaximum, f.LocalMinimum}
		}
		return out
	}
	first := snapshot()
	a.detectExtrema()
	assert.Equal(t, first, snapshot())

	var minima []int
	for i, f := range a.frames {
		if f.LocalMinimum {
			minima = append(minima, i)
		}
	}
	assert.Equal(t, []int{24, 48, 72, 96, 115}, minima, "115 is the forced trailing minimum")
}

func TestDetectExtremaForcesTrailingMinimum(t *testing.T) {
	lengths := []float64{3, 3.2, 3.4, 3.6, 3.8, 4, 3.8, 3.6, 3.5, 3.4, 3.3, 3.2}
	a := newTestAnalyzer(make([]midline.Skeleton, len(lengths)), 4)
	for i, l := range lengths {
		a.frames[i].BodyLength = l
	}
	a.smoothBodyLength()
	a.detectExtrema()

	assert.True(t, a.frames[5].LocalMaximum)
	last := len(lengths) - a.extremaHalfWindow() - 1
	assert.True(t, a.frames[last].LocalMinimum)
}

func TestFilterSpuriousMinima(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		firstPeak  float64
		wantClear  []int
		wantRemain []int
	}{
		{"shallow rise is noise", 3.01, []int{2, 4}, []int{6, 8, 10}},
		{"real rise is kept", 3.5, nil, []int{2, 4, 6, 8, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := newTestAnalyzer(make([]midline.Skeleton, 12), 10)
			for i := range a.frames {
				a.frames[i].BodyLength = 3
			}
			a.frames[4].BodyLength = tt.firstPeak
			a.frames[6].BodyLength = 2.99
			a.frames[8].BodyLength = 3.5
			for _, i := range []int{2, 6, 10} {
				a.frames[i].LocalMinimum = true
			}
			for _, i := range []int{4, 8} {
				a.frames[i].LocalMaximum = true
			}
			a.lengthMean = 3

			a.filterSpuriousMinima()

			flagged := func(i int) bool { return a.frames[i].LocalMinimum || a.frames[i].LocalMaximum }
			for _, i := range tt.wantClear {
				assert.False(t, flagged(i), "frame %d", i)
			}
			for _, i := range tt.wantRemain {
				assert.True(t, flagged(i), "frame %d", i)
			}
		})
	}
}

func TestBendingAngles(t *testing.T) {
	var s midline.Skeleton
	for k := range s {
		s[k] = midline.Point{X: -float64(k)}
	}
	head, body := bendingAngles(s)
	assert.InDelta(t, 0, head, 1e-9)
	assert.InDelta(t, 0, body, 1e-9)

	s[0] = midline.Point{X: -1, Y: 1}
	head, body = bendingAngles(s)
	assert.InDelta(t, 90, head, 1e-9)
	assert.Less(t, body, 45.0)
}

func TestClassifyZonesUsesInclusiveRadius(t *testing.T) {
	skeletons := []midline.Skeleton{straight(0, 0, 3), straight(0, 0, 3)}
	skeletons[1][midline.Tail] = midline.Point{X: 0, Y: -23}
	a := newTestAnalyzer(skeletons, 10)
	require.NoError(t, a.classifyZones())
	assert.False(t, a.frames[0].Outside)
	assert.True(t, a.frames[1].Outside)
	assert.Equal(t, 1, a.inside)
	assert.Equal(t, 1, a.outside)
}

func TestContractionRatesDiscardStrides(t *testing.T) {
	lengths := []float64{
		3, 3.5, 3.2, 3.1, // stride 1: 0..4
		3, 3, 3, 3, // stride 2: 4..7, flat
		2, 2.5, 2.5, 2.5, 3, // stride 3: 8..12, still growing
	}
	a := newTestAnalyzer(make([]midline.Skeleton, len(lengths)), 10)
	for i, l := range lengths {
		a.frames[i].BodyLength = l
	}
	a.strides = []Stride{
		{Number: 1, FirstMinimum: 0, SecondMinimum: 4},
		{Number: 2, FirstMinimum: 4, SecondMinimum: 7},
		{Number: 3, FirstMinimum: 8, SecondMinimum: 12},
	}
	a.computeContractionRates()

	require.Len(t, a.strides, 1)
	s := a.strides[0]
	assert.Equal(t, 1, s.Number)
	assert.Equal(t, 1, s.Extended)
	assert.InDelta(t, 0.5/0.1, s.ExtensionRate, 1e-9)
	assert.InDelta(t, 0.5/0.3, s.ContractionRate, 1e-9)
}

func TestFindRuns(t *testing.T) {
	t.Parallel()
	stride := func(n, first, second int) Stride {
		return Stride{Number: n, FirstMinimum: first, SecondMinimum: second}
	}
	tests := []struct {
		name    string
		strides []Stride
		want    [][]int
	}{
		{
			name:    "trailing short run dropped",
			strides: []Stride{stride(1, 0, 10), stride(2, 10, 20), stride(3, 20, 30), stride(4, 50, 60), stride(5, 60, 70)},
			want:    [][]int{{1, 2, 3}},
		},
		{
			name:    "short leading run reset",
			strides: []Stride{stride(1, 0, 10), stride(2, 30, 40), stride(3, 40, 50), stride(4, 50, 60)},
			want:    [][]int{{2, 3, 4}},
		},
		{
			name:    "gap within cushion",
			strides: []Stride{stride(1, 0, 10), stride(2, 15, 25), stride(3, 25, 35)},
			want:    [][]int{{1, 2, 3}},
		},
		{
			name:    "single stride",
			strides: []Stride{stride(1, 0, 10)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := newTestAnalyzer(make([]midline.Skeleton, 80), 10)
			a.strides = tt.strides
			a.findRuns()

			var got [][]int
			for _, r := range a.runs {
				var numbers []int
				for i, s := range r.Strides {
					numbers = append(numbers, s.Number)
					if i > 0 {
						assert.LessOrEqual(t, s.FirstMinimum, r.Strides[i-1].SecondMinimum+r.Cushion)
					}
				}
				assert.GreaterOrEqual(t, len(r.Strides), 3)
				got = append(got, numbers)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirectionChange(t *testing.T) {
	skeletons := make([]midline.Skeleton, 21)
	for f := range skeletons {
		c := midline.Point{X: 0.5 * float64(min(f, 10)), Y: 0.5 * float64(max(f-10, 0))}
		for k := range skeletons[f] {
			skeletons[f][k] = c
		}
	}
	a := newTestAnalyzer(skeletons, 10)
	a.computeDirectionChange()

	assert.False(t, a.frames[0].HasDirectionChange)
	assert.False(t, a.frames[3].HasDirectionChange, "no frame 2.25 mm behind")
	require.True(t, a.frames[10].HasDirectionChange)
	assert.InDelta(t, 90, a.frames[10].DirectionChange, 1e-9)
	require.True(t, a.frames[8].HasDirectionChange)
	assert.Less(t, a.frames[8].DirectionChange, 90.0)
}

func TestDetailRows(t *testing.T) {
	res, err := Analyze("L1", crawl(60, 30, 1.0, 0.02), 10, DefaultOptions())
	require.NoError(t, err)

	_, err = res.DetailRows(make([]float64, 3))
	assert.ErrorIs(t, err, failure.MalformedRecord)

	ts := make([]float64, len(res.Frames))
	for i := range ts {
		ts[i] = float64(i) / 10
	}
	rows, err := res.DetailRows(ts)
	require.NoError(t, err)
	require.Len(t, rows, 60)
	assert.Equal(t, 0.5, rows[5].Timestamp)
	assert.Equal(t, res.Frames[5].BodyLength, rows[5].BodyLength)
	assert.Equal(t, res.StrideOf[5], rows[5].Stride)
}

func TestQualifyStride(t *testing.T) {
	at := func(dx float64) midline.Skeleton {
		var s midline.Skeleton
		for k := range s {
			s[k] = midline.Point{X: dx}
		}
		return s
	}
	const threshold = 0.15

	tests := []struct {
		name       string
		tail       float64
		bodyBends  []int
		headBends  []int
		wantStride bool
	}{
		{name: "tail at threshold", tail: threshold},
		{name: "one body bend", tail: 1, bodyBends: []int{2}},
		{name: "two head bends", tail: 1, headBends: []int{1, 2}},
		{name: "one head bend", tail: 1, headBends: []int{1}, wantStride: true},
		{name: "straight crawl", tail: 1, wantStride: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer([]midline.Skeleton{at(0), at(0), at(0), at(tt.tail)}, 10)
			for _, f := range tt.bodyBends {
				a.frames[f].BendingBody = 50
			}
			for _, f := range tt.headBends {
				a.frames[f].BendingHead = 50
			}

			s, ok := a.qualifyStride(0, 3, threshold)
			require.Equal(t, tt.wantStride, ok)
			if !ok {
				return
			}
			assert.Equal(t, 0, s.FirstMinimum)
			assert.Equal(t, 3, s.SecondMinimum)
			assert.InDelta(t, tt.tail, s.DistanceCenter, 1e-12)
			assert.False(t, s.OverRepellent)
			for k, d := range s.DistanceAt {
				assert.InDelta(t, tt.tail, d, 1e-12, "point %d", k)
			}
		})
	}
}
