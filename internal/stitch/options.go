package stitch

import (
	"errors"

	"github.com/banshee-data/larva.report/internal/failure"
)

// Stage is the failure stage tag for reconciler errors.
const Stage = "stitch"

// Sentinel causes, each wrapped in a *failure.Error.
var (
	ErrTimingMissing      = errors.New("frame timing missing or empty")
	ErrFrameCountMismatch = errors.New("frame count differs between points and timing")
	ErrNoStagePositions   = errors.New("stage position log is empty")
	ErrBadCalibration     = errors.New("calibration has no image size")
	ErrTooFewValidFrames  = errors.New("too few valid frames")
	ErrBoundaryGap        = errors.New("invalid frames at video boundary")
	ErrInteriorGap        = errors.New("interior gap exceeds interpolation limit")
	ErrAlreadyRun         = errors.New("reconciler already ran")
)

// MinFrames is the smallest video the reconciler accepts.
const MinFrames = 3

// Options holds the reconciler thresholds.
type Options struct {
	// JumpSigmas invalidates a frame whose length differs from both
	// neighbours by more than this many standard deviations.
	JumpSigmas float64
	// DropSigmas invalidates a frame shorter than its predecessor by more
	// than this many standard deviations.
	DropSigmas float64
	// SwapRatio is how much closer one orientation must be than the other
	// before the frame is considered unambiguous.
	SwapRatio float64
	// SmallGapMinSamples is the sample count needed before the small-gap
	// reference distance is reported.
	SmallGapMinSamples int
	// RefineWindow is the half-width, in frames, of the stage boundary search.
	RefineWindow int
	// MaxGapSeconds bounds the interior gaps that are interpolated.
	MaxGapSeconds float64
}

// DefaultOptions returns the thresholds used by the acquisition lab.
func DefaultOptions() Options {
	return Options{
		JumpSigmas:         3,
		DropSigmas:         5,
		SwapRatio:          3,
		SmallGapMinSamples: 100,
		RefineWindow:       10,
		MaxGapSeconds:      5,
	}
}

func stageErr(kind failure.Kind, format string, args ...interface{}) error {
	return failure.New(Stage, kind, format, args...)
}
