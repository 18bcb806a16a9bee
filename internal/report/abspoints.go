package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/larva.report/internal/failure"
	"github.com/banshee-data/larva.report/internal/midline"
)

// FrameRatePrefix starts the header line of an absolute-points file.
const FrameRatePrefix = ">frame rate:"

// WriteAbsolutePoints writes frames in millimetres: a frame-rate header,
// then an x row and a y row per frame, each led by the frame index.
// Invalid frames carry midline.NoData in every cell.
func WriteAbsolutePoints(w io.Writer, frameRate float64, frames []midline.Frame) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\t%s\n", FrameRatePrefix, strconv.FormatFloat(frameRate, 'f', -1, 64))
	xs := make([]string, midline.Count)
	ys := make([]string, midline.Count)
	for f, fr := range frames {
		for k, p := range fr.Points {
			if !fr.Valid {
				xs[k], ys[k] = midline.NoData, midline.NoData
				continue
			}
			xs[k] = strconv.FormatFloat(p.X, 'f', -1, 64)
			ys[k] = strconv.FormatFloat(p.Y, 'f', -1, 64)
		}
		fmt.Fprintf(bw, "%d\t%s\n", f, strings.Join(xs, "\t"))
		fmt.Fprintf(bw, "%d\t%s\n", f, strings.Join(ys, "\t"))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write absolute points: %w", err)
	}
	return nil
}

// ReadAbsolutePoints parses a file written by WriteAbsolutePoints.
func ReadAbsolutePoints(r io.Reader) (float64, []midline.Frame, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	malformed := func(line int, format string, args ...interface{}) error {
		return failure.New(TableStage, failure.MalformedRecord, "line %d: "+format, append([]interface{}{line}, args...)...)
	}

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return 0, nil, failure.Wrap(TableStage, failure.MissingOrUnreadableInput, err)
		}
		return 0, nil, failure.New(TableStage, failure.InsufficientData, "absolute points file is empty")
	}
	header := sc.Text()
	if !strings.HasPrefix(header, FrameRatePrefix) {
		return 0, nil, malformed(1, "missing %q header", FrameRatePrefix)
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(header, FrameRatePrefix)), 64)
	if err != nil {
		return 0, nil, malformed(1, "frame rate: %w", err)
	}

	var frames []midline.Frame
	line := 1
	readRow := func() ([]string, bool, error) {
		if !sc.Scan() {
			return nil, false, failure.Wrap(TableStage, failure.MissingOrUnreadableInput, sc.Err())
		}
		line++
		fields := strings.Split(sc.Text(), "\t")
		if len(fields) != midline.Count+1 {
			return nil, false, malformed(line, "%d fields, want %d", len(fields), midline.Count+1)
		}
		if n, err := strconv.Atoi(fields[0]); err != nil || n != len(frames) {
			return nil, false, malformed(line, "frame index %q, want %d", fields[0], len(frames))
		}
		return fields[1:], true, nil
	}

	for {
		xs, ok, err := readRow()
		if err != nil {
			return 0, nil, err
		}
		if !ok {
			break
		}
		ys, ok, err := readRow()
		if err != nil {
			return 0, nil, err
		}
		if !ok {
			return 0, nil, malformed(line, "frame %d has no y row", len(frames))
		}
		if xs[0] == midline.NoData {
			frames = append(frames, midline.Missing())
			continue
		}
		var s midline.Skeleton
		for k := range s {
			if s[k].X, err = strconv.ParseFloat(xs[k], 64); err != nil {
				return 0, nil, malformed(line-1, "x[%d]: %w", k, err)
			}
			if s[k].Y, err = strconv.ParseFloat(ys[k], 64); err != nil {
				return 0, nil, malformed(line, "y[%d]: %w", k, err)
			}
		}
		frames = append(frames, midline.Found(s))
	}
	if len(frames) == 0 {
		return 0, nil, failure.New(TableStage, failure.InsufficientData, "absolute points file has no frames")
	}
	return rate, frames, nil
}
