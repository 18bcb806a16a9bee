// Package testutil provides shared test fixtures: synthetic video folders
// and requests for the loopback-only debug routes.
package testutil

import (
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/larva.report/internal/fsutil"
	"github.com/banshee-data/larva.report/internal/ingest"
	"github.com/banshee-data/larva.report/internal/midline"
)

// CrawlVideo describes a synthetic video of a larva crawling along +x on a
// 640x480 image at 10 stage steps per pixel, with one stage position.
type CrawlVideo struct {
	Frames          int
	DurationSeconds float64
	// LengthPixels and AmplitudePixels shape the body length, which
	// oscillates with a period of PeriodFrames.
	LengthPixels    float64
	AmplitudePixels float64
	PeriodFrames    int
	// HeadSpeed is the head advance per frame in pixels.
	HeadSpeed float64
}

// DefaultCrawl is 80 frames over 8 seconds with a 20-frame stride period.
func DefaultCrawl() CrawlVideo {
	return CrawlVideo{
		Frames:          80,
		DurationSeconds: 8,
		LengthPixels:    200,
		AmplitudePixels: 30,
		PeriodFrames:    20,
		HeadSpeed:       0.8,
	}
}

// Files renders the four input files of the video.
func (v CrawlVideo) Files() map[string]string {
	var points, timing strings.Builder
	fmt.Fprintf(&timing, "%d\t%g\n", v.Frames, v.DurationSeconds)
	for f := 0; f < v.Frames; f++ {
		length := v.LengthPixels + v.AmplitudePixels*math.Sin(2*math.Pi*float64(f)/float64(v.PeriodFrames))
		head := 300 + v.HeadSpeed*float64(f)
		var xs, ys strings.Builder
		fmt.Fprintf(&xs, "%d", f)
		fmt.Fprintf(&ys, "%d", f)
		for k := 0; k < midline.Count; k++ {
			fmt.Fprintf(&xs, "\t%.3f", head-float64(k)*length/float64(midline.Count-1))
			fmt.Fprintf(&ys, "\t%.3f", 240.0)
		}
		points.WriteString(xs.String() + "\n" + ys.String() + "\n")
		fmt.Fprintf(&timing, "%d\t%g\n", f, float64(f)*v.DurationSeconds/float64(v.Frames))
	}
	return map[string]string{
		ingest.PointsFile:    points.String(),
		ingest.FrameTimeFile: timing.String(),
		ingest.StageLogFile:  "t0,0:00:00.0,STAGE,0,0,x\n",
		ingest.InfoFile:      "<info><resolution><width>640</width><height>480</height></resolution><steps><equivalent><pixels><x>10</x><y>10</y></pixels></equivalent></steps></info>",
	}
}

// WriteVideo writes the video's input files into dir.
func (v CrawlVideo) WriteVideo(t *testing.T, fsys fsutil.FileSystem, dir string) {
	t.Helper()
	for name, body := range v.Files() {
		require.NoError(t, fsys.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
}

// NewDebugRequest returns a request from a loopback address, which the
// debug routes require.
func NewDebugRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "127.0.0.1:40000"
	return req
}
