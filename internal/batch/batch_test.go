package batch

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/larva.report/internal/config"
	"github.com/banshee-data/larva.report/internal/failure"
	"github.com/banshee-data/larva.report/internal/fsutil"
	"github.com/banshee-data/larva.report/internal/ingest"
	"github.com/banshee-data/larva.report/internal/midline"
	"github.com/banshee-data/larva.report/internal/monitoring"
	"github.com/banshee-data/larva.report/internal/report"
	"github.com/banshee-data/larva.report/internal/store"
	"github.com/banshee-data/larva.report/internal/testutil"
	"github.com/banshee-data/larva.report/internal/timeutil"
)

var testFrames = testutil.DefaultCrawl().Frames

type memRecorder struct {
	mu   sync.Mutex
	runs []store.Run
}

func (m *memRecorder) SaveRun(_ context.Context, r *store.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *r)
	return nil
}

func writeCrawlVideo(t *testing.T, fsys *fsutil.MemoryFileSystem, dir string) {
	t.Helper()
	testutil.DefaultCrawl().WriteVideo(t, fsys, dir)
}

func newTestDriver(fsys fsutil.FileSystem, rec Recorder) *Driver {
	return &Driver{
		FS:       fsys,
		Clock:    timeutil.NewMockClock(time.Unix(1700000000, 0)),
		Config:   config.EmptyTuningConfig(),
		Recorder: rec,
		BatchID:  "batch-1",
	}
}

func captureOps(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	monitoring.SetLogWriters(monitoring.LogWriters{Ops: &buf})
	t.Cleanup(func() { monitoring.SetLogWriters(monitoring.LogWriters{}) })
	return &buf
}

func TestRunContinuesPastFailingVideo(t *testing.T) {
	ops := captureOps(t)
	fsys := fsutil.NewMemoryFileSystem()
	writeCrawlVideo(t, fsys, "plate/a")
	writeCrawlVideo(t, fsys, "plate/c")
	writeCrawlVideo(t, fsys, "plate/b")
	require.NoError(t, fsys.WriteFile("plate/b/info.xml", []byte("<info><resolution>"), 0o644))

	rec := &memRecorder{}
	sum, err := newTestDriver(fsys, rec).Run(context.Background(), "plate")
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Processed)
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, "b", sum.Failures[0].Folder.Name)
	assert.ErrorIs(t, sum.Failures[0].Err, failure.MalformedRecord)
	assert.Contains(t, ops.String(), "skipping plate/b [ingest/malformed-record]")

	for _, dir := range []string{"plate/a", "plate/c"} {
		assert.True(t, fsys.Exists(filepath.Join(dir, ingest.AbsolutePointsFile)), dir)
		assert.True(t, fsys.Exists(filepath.Join(dir, ingest.DetailsFile)), dir)
		assert.False(t, fsys.Exists(filepath.Join(dir, BodyLengthPlotFile)), dir)
	}

	table, err := fsys.ReadFile("plate/datadm.txt")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(table), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "#larvae\t"))
	assert.True(t, strings.HasPrefix(lines[1], "a\t"))
	assert.True(t, strings.HasPrefix(lines[2], "c\t"))

	require.Len(t, rec.runs, 3)
	assert.Equal(t, store.StatusOK, rec.runs[0].Status())
	assert.Equal(t, store.StatusFailed, rec.runs[1].Status())
	assert.Equal(t, store.StatusOK, rec.runs[2].Status())
	assert.NotNil(t, rec.runs[0].Repairs)
	assert.Nil(t, rec.runs[1].Analysis)
	for _, r := range rec.runs {
		assert.Equal(t, "batch-1", r.BatchID)
	}
}

func TestDetailsMatchFrames(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeCrawlVideo(t, fsys, "plate/a")

	res, err := newTestDriver(fsys, nil).Process(context.Background(), ingest.Folder{Name: "a", Dir: "plate/a"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Len(t, res.Frames, testFrames)
	assert.InDelta(t, 10, res.FrameRate, 1e-9)

	details, err := fsys.ReadFile("plate/a/details.txt")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(details), "\n"), "\n")
	require.Len(t, lines, testFrames+1)
	assert.Equal(t, report.DetailsHeader(), lines[0])
}

func TestStitchOnlyThenAnalyzeFromAbsolutePoints(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeCrawlVideo(t, fsys, "plate/a")

	d := newTestDriver(fsys, nil)
	d.Mode = StitchOnly
	sum, err := d.Run(context.Background(), "plate")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Empty(t, sum.Metrics)
	assert.True(t, fsys.Exists("plate/a/abs_points.txt"))
	assert.False(t, fsys.Exists("plate/a/details.txt"))
	assert.False(t, fsys.Exists("plate/datadm.txt"))

	d.Mode = FromAbsolutePoints
	sum, err = d.Run(context.Background(), "plate")
	require.NoError(t, err)
	require.Len(t, sum.Metrics, 1)
	rate, ok := sum.Metrics[0].Get("frame_rate[fps]")
	require.True(t, ok)
	assert.Equal(t, "10.0", rate)
	assert.True(t, fsys.Exists("plate/datadm.txt"))
}

func TestFromAbsolutePointsRejectsInvalidFrames(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeCrawlVideo(t, fsys, "plate/a")
	var buf bytes.Buffer
	frames := []midline.Frame{midline.Found(midline.Skeleton{}), midline.Missing(), midline.Found(midline.Skeleton{})}
	require.NoError(t, report.WriteAbsolutePoints(&buf, 10, frames))
	require.NoError(t, fsys.WriteFile("plate/a/abs_points.txt", buf.Bytes(), 0o644))

	d := newTestDriver(fsys, nil)
	d.Mode = FromAbsolutePoints
	_, err := d.Process(context.Background(), ingest.Folder{Name: "a", Dir: "plate/a"})
	assert.ErrorIs(t, err, failure.UnrecoverableGap)
}

func TestWritePlots(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeCrawlVideo(t, fsys, "plate/a")

	d := newTestDriver(fsys, nil)
	plots := true
	d.Config.WritePlots = &plots
	_, err := d.Process(context.Background(), ingest.Folder{Name: "a", Dir: "plate/a"})
	require.NoError(t, err)
	assert.True(t, fsys.Exists("plate/a/"+BodyLengthPlotFile))
	assert.True(t, fsys.Exists("plate/a/"+TrajectoryFile))
}

func TestRunStopsOnCancel(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	writeCrawlVideo(t, fsys, "plate/a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := newTestDriver(fsys, nil).Run(ctx, "plate")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sum.Processed)
}

func TestLogFailureFlagsAssertions(t *testing.T) {
	ops := captureOps(t)
	folder := ingest.Folder{Name: "x", Dir: "plate/x"}
	logFailure(folder, failure.New("kinematics", failure.StatisticalInvariantViolation, "duplicate key %q", "k"))
	logFailure(folder, failure.New("stitch", failure.UnrecoverableGap, "gap"))

	out := ops.String()
	assert.Contains(t, out, "ASSERTION FAILED in plate/x [kinematics]")
	assert.Contains(t, out, "skipping plate/x [stitch/unrecoverable-gap]")
}
