package midline

// Frame is one video frame's midline. Valid is false when the vision stage
// found no skeleton or a repair pass rejected it; Points is then undefined.
type Frame struct {
	Points Skeleton
	Valid  bool
}

// Missing returns an invalid frame.
func Missing() Frame { return Frame{} }

// Found wraps a skeleton as a valid frame.
func Found(s Skeleton) Frame { return Frame{Points: s, Valid: true} }

// CountValid returns the number of valid frames.
func CountValid(frames []Frame) int {
	n := 0
	for _, f := range frames {
		if f.Valid {
			n++
		}
	}
	return n
}

// StagePosition is the microscope stage offset, in stage steps, recorded at
// Time seconds into the video.
type StagePosition struct {
	Time float64
	X, Y float64
}

// Calibration maps pixels to stage steps for one rig setup.
type Calibration struct {
	ImageWidth     int
	ImageHeight    int
	XStepsPerPixel float64
	YStepsPerPixel float64
}

// FrameTiming is the declared frame count, total duration and per-frame
// timestamps of one video.
type FrameTiming struct {
	TotalFrames     int
	DurationSeconds float64
	Timestamps      []float64
}

// NoData is the text token that marks a frame without a skeleton in the
// points and absolute-points files.
const NoData = "-1.#IND00"
