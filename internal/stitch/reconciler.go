package stitch

import (
	"github.com/banshee-data/larva.report/internal/failure"
	"github.com/banshee-data/larva.report/internal/midline"
	"github.com/banshee-data/larva.report/internal/monitoring"
)

// Input is everything the reconciler needs for one video.
type Input struct {
	Frames      []midline.Frame
	Timing      midline.FrameTiming
	Stage       []midline.StagePosition
	Calibration midline.Calibration
}

// Diagnostics summarises the repairs applied to one video.
type Diagnostics struct {
	FramesInvalidated  int
	SwapsFixed         int
	LikelyStageShifts  []int
	SmallGapSamples    int
	SmallGapMean       float64
	HasSmallGapMean    bool
	BaselineDistance   float64
	RefinedDistance    float64
	BoundariesMoved    int
	FramesInterpolated int
	HeadTailFlipped    bool
}

// Trajectory is the reconciled output. Every frame is valid.
type Trajectory struct {
	Frames      []midline.Skeleton
	FrameRate   float64
	StageIndex  []int
	Diagnostics Diagnostics
}

// Reconciler runs the repair passes for one video. It is single use.
type Reconciler struct {
	opts       Options
	frames     []midline.Frame // pixel space
	timing     midline.FrameTiming
	stage      []midline.StagePosition
	calib      midline.Calibration
	frameRate  float64
	stageIndex []int
	abs        []midline.Frame // millimetres
	diag       Diagnostics
	ran        bool
}

// New validates the input and copies the frames into a buffer owned by the
// returned Reconciler.
func New(in Input, opts Options) (*Reconciler, error) {
	if len(in.Timing.Timestamps) == 0 || in.Timing.DurationSeconds <= 0 {
		return nil, stageErr(failure.MissingOrUnreadableInput, "%w", ErrTimingMissing)
	}
	if len(in.Frames) != len(in.Timing.Timestamps) || in.Timing.TotalFrames != len(in.Timing.Timestamps) {
		return nil, stageErr(failure.MalformedRecord, "%w: %d point frames, %d timestamps, %d declared",
			ErrFrameCountMismatch, len(in.Frames), len(in.Timing.Timestamps), in.Timing.TotalFrames)
	}
	if len(in.Stage) == 0 {
		return nil, stageErr(failure.InsufficientData, "%w", ErrNoStagePositions)
	}
	if in.Calibration.ImageWidth <= 0 || in.Calibration.ImageHeight <= 0 {
		return nil, stageErr(failure.MalformedRecord, "%w: %dx%d",
			ErrBadCalibration, in.Calibration.ImageWidth, in.Calibration.ImageHeight)
	}
	if len(in.Frames) < MinFrames {
		return nil, stageErr(failure.InsufficientData, "%w: video has %d frames", ErrTooFewValidFrames, len(in.Frames))
	}
	frames := make([]midline.Frame, len(in.Frames))
	copy(frames, in.Frames)
	return &Reconciler{
		opts:      opts,
		frames:    frames,
		timing:    in.Timing,
		stage:     in.Stage,
		calib:     in.Calibration,
		frameRate: float64(len(frames)) / in.Timing.DurationSeconds,
	}, nil
}

// FrameRate is the measured frame rate: frame count over total duration.
func (r *Reconciler) FrameRate() float64 { return r.frameRate }

// Run applies every pass in order and returns the reconciled trajectory.
// No trajectory is returned on error.
func (r *Reconciler) Run() (*Trajectory, error) {
	if r.ran {
		return nil, failure.Wrap(Stage, failure.StatisticalInvariantViolation, ErrAlreadyRun)
	}
	r.ran = true

	r.DetectBadFramesViaLength()
	r.DetectAndFixOrientationSwaps()
	r.AssignStagePositionIndex()

	r.abs = r.ToAbsoluteScale(r.stageIndex)
	r.diag.BaselineDistance = DistanceTraveled(r.abs)
	r.RefineStageShiftBoundaries(r.diag.BaselineDistance)
	r.abs = r.ToAbsoluteScale(r.stageIndex)
	r.diag.RefinedDistance = DistanceTraveled(r.abs)

	if err := r.InterpolateMissingPoints(); err != nil {
		return nil, err
	}
	r.FixGlobalHeadTailAmbiguity()

	out := make([]midline.Skeleton, len(r.abs))
	for f, fr := range r.abs {
		out[f] = fr.Points
	}
	d := r.diag
	monitoring.Diagf("stitch: %d frames at %.3f fps, %d invalidated, %d swaps, %d likely shifts, %d boundaries moved, %d interpolated, flipped=%v",
		len(out), r.frameRate, d.FramesInvalidated, d.SwapsFixed, len(d.LikelyStageShifts), d.BoundariesMoved, d.FramesInterpolated, d.HeadTailFlipped)
	return &Trajectory{
		Frames:      out,
		FrameRate:   r.frameRate,
		StageIndex:  append([]int(nil), r.stageIndex...),
		Diagnostics: d,
	}, nil
}
