package kinematics

import "github.com/banshee-data/larva.report/internal/failure"

// Stage is the failure stage tag for analyzer errors.
const Stage = "kinematics"

// MinFrames is the shortest trajectory Analyze accepts.
const MinFrames = 3

// Options holds the analyzer thresholds.
type Options struct {
	// MinFrameRate keeps the extrema half-window at one frame or more.
	MinFrameRate float64
	// SpuriousDivisor sets the spurious-minimum threshold to mean length / divisor.
	SpuriousDivisor float64
	// StrideDivisor sets the minimum tail displacement to mean length / divisor.
	StrideDivisor float64
	// BendingThreshold is the angle, in degrees, at which a frame counts as bending.
	BendingThreshold float64
	// RepellentRadius is the distance from the plate origin, in mm, where
	// the outside zone starts.
	RepellentRadius float64
	// SpeedPadding is the half-width, in frames, of the speed central difference.
	SpeedPadding int
	// DirectionDistance is the centroid travel, in mm, used to build the
	// before and after chords of a direction change.
	DirectionDistance float64
	// DirectionAngle is the angle, in degrees, at which a frame counts as a
	// direction change.
	DirectionAngle float64
	// MinRunStrides is the smallest number of strides in a valid run.
	MinRunStrides int
}

// DefaultOptions returns the thresholds used by the acquisition lab.
func DefaultOptions() Options {
	return Options{
		MinFrameRate:      2,
		SpuriousDivisor:   60,
		StrideDivisor:     20,
		BendingThreshold:  45,
		RepellentRadius:   23,
		SpeedPadding:      2,
		DirectionDistance: 2.25,
		DirectionAngle:    25,
		MinRunStrides:     3,
	}
}

func stageErr(kind failure.Kind, format string, args ...interface{}) error {
	return failure.New(Stage, kind, format, args...)
}
