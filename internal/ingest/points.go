package ingest

import (
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/larva.report/internal/failure"
	"github.com/banshee-data/larva.report/internal/midline"
)

// ReadPoints parses points.txt: per frame an x row then a y row, each a
// frame index followed by 13 whitespace-separated pixel coordinates. A row
// whose first coordinate is midline.NoData marks a frame without a skeleton.
func ReadPoints(r io.Reader) ([]midline.Frame, error) {
	sc := newScanner(r)
	line := 0
	next := func() ([]string, bool) {
		for sc.Scan() {
			line++
			if fields := strings.Fields(sc.Text()); len(fields) > 0 {
				return fields, true
			}
		}
		return nil, false
	}

	var frames []midline.Frame
	for {
		xs, ok := next()
		if !ok {
			break
		}
		ys, ok := next()
		if !ok {
			return nil, malformed(PointsFile, line, "frame %d has no y row", len(frames))
		}
		for _, row := range [][]string{xs, ys} {
			if n, err := strconv.Atoi(row[0]); err != nil || n != len(frames) {
				return nil, malformed(PointsFile, line, "frame index %q, want %d", row[0], len(frames))
			}
		}
		if len(xs) > 1 && strings.EqualFold(xs[1], midline.NoData) {
			frames = append(frames, midline.Missing())
			continue
		}
		if len(xs) != midline.Count+1 || len(ys) != midline.Count+1 {
			return nil, malformed(PointsFile, line, "%d x and %d y values, want %d", len(xs)-1, len(ys)-1, midline.Count)
		}
		var s midline.Skeleton
		for k := range s {
			x, errX := strconv.ParseFloat(xs[k+1], 64)
			y, errY := strconv.ParseFloat(ys[k+1], 64)
			if errX != nil || errY != nil {
				return nil, malformed(PointsFile, line, "point %d (%q, %q) is not numeric", k, xs[k+1], ys[k+1])
			}
			s[k] = midline.Point{X: x, Y: y}
		}
		frames = append(frames, midline.Found(s))
	}
	if err := sc.Err(); err != nil {
		return nil, unreadable(PointsFile, err)
	}
	if len(frames) == 0 {
		return nil, failure.New(Stage, failure.InsufficientData, "%s has no frames", PointsFile)
	}
	return frames, nil
}

// ReadFrameTiming parses frametime.txt. The first row holds the frame count
// and the total duration in seconds; each further row is a frame index and
// its timestamp. Every frame must have exactly one timestamp.
func ReadFrameTiming(r io.Reader) (midline.FrameTiming, error) {
	var timing midline.FrameTiming
	sc := newScanner(r)
	line := 0
	var seen []bool
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != 2 {
			return timing, malformed(FrameTimeFile, line, "%d fields, want 2", len(fields))
		}
		if seen == nil {
			total, err := strconv.Atoi(fields[0])
			if err != nil || total < 0 {
				return timing, malformed(FrameTimeFile, line, "frame count %q", fields[0])
			}
			duration, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return timing, malformed(FrameTimeFile, line, "duration %q", fields[1])
			}
			timing = midline.FrameTiming{TotalFrames: total, DurationSeconds: duration, Timestamps: make([]float64, total)}
			seen = make([]bool, total)
			continue
		}
		i, err := strconv.Atoi(fields[0])
		if err != nil || i < 0 || i >= timing.TotalFrames {
			return timing, malformed(FrameTimeFile, line, "frame index %q outside 0..%d", fields[0], timing.TotalFrames-1)
		}
		if seen[i] {
			return timing, malformed(FrameTimeFile, line, "frame %d listed twice", i)
		}
		t, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return timing, malformed(FrameTimeFile, line, "timestamp %q", fields[1])
		}
		timing.Timestamps[i] = t
		seen[i] = true
	}
	if err := sc.Err(); err != nil {
		return timing, unreadable(FrameTimeFile, err)
	}
	if seen == nil {
		return timing, failure.New(Stage, failure.InsufficientData, "%s is empty", FrameTimeFile)
	}
	for i, ok := range seen {
		if !ok {
			return timing, malformed(FrameTimeFile, line, "frame %d has no timestamp", i)
		}
	}
	return timing, nil
}
