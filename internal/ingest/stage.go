package ingest

import (
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/larva.report/internal/midline"
	"github.com/banshee-data/larva.report/internal/monitoring"
)

// ReadStageLog parses log.csv. Rows are "realtime,h:m:s,EVENT,x,y,..."; rows
// with fewer than five fields are skipped and only STAGE events are read. A
// position is recorded only when it differs from the previous one.
func ReadStageLog(r io.Reader) ([]midline.StagePosition, error) {
	sc := newScanner(r)
	line := 0
	var out []midline.StagePosition
	for sc.Scan() {
		line++
		fields := strings.Split(sc.Text(), ",")
		if len(fields) < 5 {
			monitoring.Tracef("%s line %d: %d fields, skipped", StageLogFile, line, len(fields))
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(fields[2]), "STAGE") {
			continue
		}
		t, err := parseClock(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, malformed(StageLogFile, line, "media time %q: %v", fields[1], err)
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(fields[4]), 64)
		if errX != nil || errY != nil {
			return nil, malformed(StageLogFile, line, "stage position (%q, %q)", fields[3], fields[4])
		}
		if n := len(out); n > 0 && out[n-1].X == x && out[n-1].Y == y {
			continue
		}
		out = append(out, midline.StagePosition{Time: t, X: x, Y: y})
	}
	if err := sc.Err(); err != nil {
		return nil, unreadable(StageLogFile, err)
	}
	return out, nil
}

// parseClock converts "h:m:s.s" to seconds.
func parseClock(s string) (float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, errors.New("want h:m:s")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}
	return float64(h*60+m)*60 + sec, nil
}

// ReadCalibration parses info.xml. It reads steps/equivalent/pixels/{x,y}
// and resolution/{width,height} wherever they sit in the document. Steps
// per pixel default to 1 when absent.
func ReadCalibration(r io.Reader) (midline.Calibration, error) {
	cal := midline.Calibration{XStepsPerPixel: 1, YStepsPerPixel: 1}
	dec := xml.NewDecoder(r)
	var path []string
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			line, _ := dec.InputPos()
			return cal, malformed(InfoFile, line, "%v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			path = append(path, t.Name.Local)
			text.Reset()
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if err := assignCalibration(&cal, path, strings.TrimSpace(text.String())); err != nil {
				line, _ := dec.InputPos()
				return cal, malformed(InfoFile, line, "%s: %v", strings.Join(path, "/"), err)
			}
			path = path[:len(path)-1]
			text.Reset()
		}
	}
	return cal, nil
}

func hasSuffix(path []string, suffix ...string) bool {
	if len(path) < len(suffix) {
		return false
	}
	tail := path[len(path)-len(suffix):]
	for i := range suffix {
		if tail[i] != suffix[i] {
			return false
		}
	}
	return true
}

type calibrationField struct {
	suffix []string
	set    func(c *midline.Calibration, v string) error
}

var calibrationFields = []calibrationField{
	{[]string{"steps", "equivalent", "pixels", "x"}, func(c *midline.Calibration, v string) (err error) {
		c.XStepsPerPixel, err = strconv.ParseFloat(v, 64)
		return err
	}},
	{[]string{"steps", "equivalent", "pixels", "y"}, func(c *midline.Calibration, v string) (err error) {
		c.YStepsPerPixel, err = strconv.ParseFloat(v, 64)
		return err
	}},
	{[]string{"resolution", "width"}, func(c *midline.Calibration, v string) (err error) {
		c.ImageWidth, err = strconv.Atoi(v)
		return err
	}},
	{[]string{"resolution", "height"}, func(c *midline.Calibration, v string) (err error) {
		c.ImageHeight, err = strconv.Atoi(v)
		return err
	}},
}

func assignCalibration(c *midline.Calibration, path []string, value string) error {
	for _, f := range calibrationFields {
		if hasSuffix(path, f.suffix...) {
			return f.set(c, value)
		}
	}
	return nil
}
