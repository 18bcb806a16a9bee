package kinematics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/larva.report/internal/failure"
	"github.com/banshee-data/larva.report/internal/midline"
	"github.com/banshee-data/larva.report/internal/monitoring"
	"github.com/banshee-data/larva.report/internal/report"
)

// Frame is the analysis of one reconciled skeleton.
type Frame struct {
	Points           midline.Skeleton
	BodyLength       float64
	SmoothBodyLength float64
	LocalMaximum     bool
	LocalMinimum     bool
	BendingHead      float64
	BendingBody      float64
	// Outside is true when any point lies on or beyond the repellent radius.
	Outside bool
	// Speed and SpeedAt are defined only when HasSpeed is set.
	Speed    float64
	SpeedAt  [midline.Count]float64
	HasSpeed bool
	// DirectionChange is defined only when HasDirectionChange is set.
	DirectionChange    float64
	HasDirectionChange bool
	Striding           bool
}

// Stride is the interval between two consecutive qualifying minima.
type Stride struct {
	Number        int
	FirstMinimum  int
	SecondMinimum int
	// Extended is the frame of maximal raw length strictly inside the stride.
	Extended        int
	DistanceAt      [midline.Count]float64
	DistanceCenter  float64
	OverRepellent   bool
	ContractionRate float64
	ExtensionRate   float64
}

// Frames returns the stride length in frames.
func (s Stride) Frames() int { return s.SecondMinimum - s.FirstMinimum }

// Run is a sequence of strides with gaps no longer than Cushion frames.
type Run struct {
	Number  int
	Cushion int
	Strides []Stride
}

// Result is the outcome of analyzing one video.
type Result struct {
	Name      string
	FrameRate float64
	Frames    []Frame
	Strides   []Stride
	Runs      []Run
	// StrideOf maps a frame index to the number of the first stride that
	// covers it, 0 when the frame is not striding.
	StrideOf      []int
	InsideFrames  int
	OutsideFrames int
	Metrics       *report.Metrics
}

type analyzer struct {
	opts       Options
	rate       float64
	frames     []Frame
	strides    []Stride
	runs       []Run
	inside     int
	outside    int
	lengthMean float64
	b          *report.Builder
}

// Analyze computes every kinematic measurement for one trajectory. name is
// written as the "larvae" metric.
func Analyze(name string, skeletons []midline.Skeleton, frameRate float64, opts Options) (*Result, error) {
	if len(skeletons) < MinFrames {
		return nil, stageErr(failure.InsufficientData, "%d frames, need at least %d", len(skeletons), MinFrames)
	}
	if math.IsNaN(frameRate) || math.IsInf(frameRate, 0) || frameRate < opts.MinFrameRate {
		return nil, stageErr(failure.InsufficientData, "frame rate %.3f below minimum %.3f", frameRate, opts.MinFrameRate)
	}

	a := &analyzer{
		opts:   opts,
		rate:   frameRate,
		frames: make([]Frame, len(skeletons)),
		b:      report.NewBuilder(Stage),
	}
	for i, s := range skeletons {
		a.frames[i].Points = s
	}

	a.b.Text("larvae", name)
	a.b.Number("frame_rate[fps]", frameRate)
	a.b.Number("video_length[seconds]", a.seconds(len(a.frames)))

	a.measureBodyLength()
	a.smoothBodyLength()
	a.detectExtrema()
	a.filterSpuriousMinima()
	a.writeExtendedContracted()

	if err := a.classifyZones(); err != nil {
		return nil, err
	}
	a.computeBending()
	a.writeBendingPercentages()

	a.computeSpeed()
	a.writeSpeedStatistics()

	a.findStrides()
	a.computeContractionRates()
	a.markStriding()
	a.writeStrideStatistics()
	a.writeContractionRates()

	a.writeDistancePerMinute()

	a.computeDirectionChange()
	a.writeDirectionChange()

	a.findRuns()
	a.writeRunStatistics()

	a.b.Percent("time_not_over_repellent[%]", float64(a.inside)/float64(len(a.frames)))

	metrics, err := a.b.Finalize()
	if err != nil {
		return nil, err
	}
	monitoring.Diagf("%s: %d frames at %.2f fps, %d strides, %d runs, %d outside frames",
		name, len(a.frames), frameRate, len(a.strides), len(a.runs), a.outside)

	return &Result{
		Name:          name,
		FrameRate:     frameRate,
		Frames:        a.frames,
		Strides:       a.strides,
		Runs:          a.runs,
		StrideOf:      strideTable(len(a.frames), a.strides),
		InsideFrames:  a.inside,
		OutsideFrames: a.outside,
		Metrics:       metrics,
	}, nil
}

func (a *analyzer) seconds(frames int) float64 { return float64(frames) / a.rate }

func (a *analyzer) measureBodyLength() {
	lengths := make([]float64, len(a.frames))
	for i := range a.frames {
		a.frames[i].BodyLength = a.frames[i].Points.ArcLength()
		lengths[i] = a.frames[i].BodyLength
	}
	a.lengthMean = stat.Mean(lengths, nil)
	a.b.Stats("body_length[mm]", lengths)
}

// classifyZones flags outside frames. A video with no inside frame cannot
// be normalised and is rejected.
func (a *analyzer) classifyZones() error {
	origin := midline.Point{}
	for i := range a.frames {
		f := &a.frames[i]
		for _, p := range f.Points {
			if midline.Distance(origin, p) >= a.opts.RepellentRadius {
				f.Outside = true
				break
			}
		}
		if f.Outside {
			a.outside++
		} else {
			a.inside++
		}
	}
	if a.inside == 0 {
		return stageErr(failure.InsufficientData, "no frame inside the %.1f mm repellent radius", a.opts.RepellentRadius)
	}
	return nil
}

// zoneRatio returns the overall, inside and outside shares of the counted
// frames. The outside share is 0 when no frame is outside.
func (a *analyzer) zoneRatio(inside, outside int) (overall, in, out float64) {
	overall = float64(inside+outside) / float64(len(a.frames))
	in = float64(inside) / float64(a.inside)
	if a.outside > 0 {
		out = float64(outside) / float64(a.outside)
	}
	return overall, in, out
}

func (a *analyzer) writeZonePercent(prefix string, inside, outside int) {
	overall, in, out := a.zoneRatio(inside, outside)
	a.b.Percent(prefix+"_overall[%]", overall)
	a.b.Percent(prefix+"_inside[%]", in)
	a.b.Percent(prefix+"_outside[%]", out)
}

func strideTable(n int, strides []Stride) []int {
	table := make([]int, n)
	for _, s := range strides {
		for f := s.FirstMinimum; f <= s.SecondMinimum; f++ {
			if table[f] == 0 {
				table[f] = s.Number
			}
		}
	}
	return table
}
