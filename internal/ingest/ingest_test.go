package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/larva.report/internal/failure"
	"github.com/banshee-data/larva.report/internal/fsutil"
	"github.com/banshee-data/larva.report/internal/midline"
)

// pointsRows renders one frame of points.txt with x = base+k, y = 2*base+k.
func pointsRows(f, base int) string {
	var xs, ys strings.Builder
	fmt.Fprintf(&xs, "%d", f)
	fmt.Fprintf(&ys, "%d", f)
	for k := 0; k < midline.Count; k++ {
		fmt.Fprintf(&xs, "\t%d", base+k)
		fmt.Fprintf(&ys, "\t%d", 2*base+k)
	}
	return xs.String() + "\n" + ys.String() + "\n"
}

func missingRows(f int) string {
	row := fmt.Sprintf("%d", f) + strings.Repeat("\t"+midline.NoData, midline.Count) + "\n"
	return row + row
}

const sampleFrameTime = "3\t0.3\n0\t0.0\n1\t0.1\n2\t0.2\n"

const sampleLog = `12:00:00,0:00:00.0,START
12:00:01,0:00:00.5,STAGE,100,200,x
12:00:02,0:00:01.0,stage,100,200,x
12:00:03,0:00:01.5,FOCUS,1,1,x
12:00:04,0:01:02.25,STAGE,150,200,x
`

const sampleInfo = `<?xml version="1.0"?>
<info>
  <resolution><width>640</width><height>480</height></resolution>
  <steps><equivalent><pixels><x>10.5</x><y>11</y></pixels></equivalent></steps>
</info>`

func TestReadPoints(t *testing.T) {
	t.Parallel()
	input := pointsRows(0, 10) + missingRows(1) + "\n" + pointsRows(2, 20)
	frames, err := ReadPoints(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, frames, 3)

	assert.True(t, frames[0].Valid)
	assert.False(t, frames[1].Valid)
	assert.True(t, frames[2].Valid)
	assert.Equal(t, midline.Point{X: 20, Y: 40}, frames[2].Points[0])
	assert.Equal(t, midline.Point{X: 32, Y: 52}, frames[2].Points[midline.Tail])
}

func TestReadPointsErrors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		input string
		kind  failure.Kind
	}{
		{"empty", "", failure.InsufficientData},
		{"no y row", strings.SplitAfter(pointsRows(0, 1), "\n")[0], failure.MalformedRecord},
		{"index gap", pointsRows(0, 1) + pointsRows(2, 1), failure.MalformedRecord},
		{"short row", "0\t1\t2\n0\t1\t2\n", failure.MalformedRecord},
		{"not numeric", strings.Replace(pointsRows(0, 1), "\t5", "\tabc", 1), failure.MalformedRecord},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadPoints(strings.NewReader(tc.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)
			assert.Equal(t, Stage, failure.StageOf(err))
		})
	}
}

func TestReadFrameTiming(t *testing.T) {
	t.Parallel()
	timing, err := ReadFrameTiming(strings.NewReader("3\t0.3\n2\t0.2\n0\t0.0\n1\t0.1\n"))
	require.NoError(t, err)
	want := midline.FrameTiming{TotalFrames: 3, DurationSeconds: 0.3, Timestamps: []float64{0, 0.1, 0.2}}
	if diff := cmp.Diff(want, timing); diff != "" {
		t.Errorf("timing mismatch (-want +got):\n%s", diff)
	}
}

func TestReadFrameTimingErrors(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"missing frame": "3\t0.3\n0\t0.0\n1\t0.1\n",
		"duplicate":     "2\t0.2\n0\t0.0\n0\t0.1\n",
		"out of range":  "2\t0.2\n0\t0.0\n5\t0.1\n",
		"bad header":    "x\t0.2\n",
		"three fields":  "2\t0.2\t9\n",
		"bad timestamp": "1\t0.2\n0\tnow\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadFrameTiming(strings.NewReader(input))
			assert.ErrorIs(t, err, failure.MalformedRecord)
		})
	}

	_, err := ReadFrameTiming(strings.NewReader(""))
	assert.ErrorIs(t, err, failure.InsufficientData)
}

func TestReadStageLog(t *testing.T) {
	t.Parallel()
	got, err := ReadStageLog(strings.NewReader(sampleLog))
	require.NoError(t, err)
	want := []midline.StagePosition{
		{Time: 0.5, X: 100, Y: 200},
		{Time: 62.25, X: 150, Y: 200},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stage positions mismatch (-want +got):\n%s", diff)
	}

	_, err = ReadStageLog(strings.NewReader("a,1:00,STAGE,1,2\n"))
	assert.ErrorIs(t, err, failure.MalformedRecord)
	_, err = ReadStageLog(strings.NewReader("a,0:00:01,STAGE,left,2\n"))
	assert.ErrorIs(t, err, failure.MalformedRecord)
}

func TestReadCalibration(t *testing.T) {
	t.Parallel()
	cal, err := ReadCalibration(strings.NewReader(sampleInfo))
	require.NoError(t, err)
	assert.Equal(t, midline.Calibration{ImageWidth: 640, ImageHeight: 480, XStepsPerPixel: 10.5, YStepsPerPixel: 11}, cal)

	cal, err = ReadCalibration(strings.NewReader("<info><resolution><width>320</width><height>240</height></resolution></info>"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, cal.XStepsPerPixel)
	assert.Equal(t, 1.0, cal.YStepsPerPixel)

	_, err = ReadCalibration(strings.NewReader("<info><resolution><width>wide</width></resolution></info>"))
	assert.ErrorIs(t, err, failure.MalformedRecord)
	_, err = ReadCalibration(strings.NewReader("<info><resolution>"))
	assert.ErrorIs(t, err, failure.MalformedRecord)
}

func writeVideo(t *testing.T, fsys *fsutil.MemoryFileSystem, dir string) {
	t.Helper()
	files := map[string]string{
		PointsFile:    pointsRows(0, 10) + pointsRows(1, 11) + pointsRows(2, 12),
		FrameTimeFile: sampleFrameTime,
		StageLogFile:  sampleLog,
		InfoFile:      sampleInfo,
	}
	for name, body := range files {
		require.NoError(t, fsys.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
}

func TestLoadInput(t *testing.T) {
	t.Parallel()
	fsys := fsutil.NewMemoryFileSystem()
	writeVideo(t, fsys, "data/larva1")

	in, err := LoadInput(fsys, "data/larva1")
	require.NoError(t, err)
	assert.Len(t, in.Frames, 3)
	assert.Equal(t, 3, in.Timing.TotalFrames)
	assert.Len(t, in.Stage, 2)
	assert.Equal(t, 640, in.Calibration.ImageWidth)
}

func TestLoadInputMissingFile(t *testing.T) {
	t.Parallel()
	fsys := fsutil.NewMemoryFileSystem()
	writeVideo(t, fsys, "data/larva1")
	fsys2 := fsutil.NewMemoryFileSystem()
	for _, name := range []string{PointsFile, FrameTimeFile, InfoFile} {
		data, err := fsys.ReadFile(filepath.Join("data/larva1", name))
		require.NoError(t, err)
		require.NoError(t, fsys2.WriteFile(filepath.Join("data/larva1", name), data, 0o644))
	}

	_, err := LoadInput(fsys2, "data/larva1")
	require.Error(t, err)
	assert.ErrorIs(t, err, failure.MissingOrUnreadableInput)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), StageLogFile)
}

func TestDiscover(t *testing.T) {
	t.Parallel()
	fsys := fsutil.NewMemoryFileSystem()
	writeVideo(t, fsys, "batch/b")
	writeVideo(t, fsys, "batch/a")
	writeVideo(t, fsys, "batch/group/c")
	writeVideo(t, fsys, "batch/bad_runs/d")
	writeVideo(t, fsys, "batch/BadLight")
	require.NoError(t, fsys.WriteFile("batch/empty/readme.txt", []byte("x"), 0o644))

	folders, err := Discover(fsys, "batch")
	require.NoError(t, err)
	want := []Folder{
		{Name: "a", Dir: filepath.Join("batch", "a")},
		{Name: "b", Dir: filepath.Join("batch", "b")},
		{Name: "c", Dir: filepath.Join("batch", "group", "c")},
	}
	if diff := cmp.Diff(want, folders); diff != "" {
		t.Errorf("folders mismatch (-want +got):\n%s", diff)
	}

	_, err = Discover(fsys, "nowhere")
	assert.ErrorIs(t, err, failure.MissingOrUnreadableInput)
}
