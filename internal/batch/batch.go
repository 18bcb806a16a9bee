// Package batch drives the pipeline over a tree of video folders: reconcile
// coordinates, analyze kinematics, write per-video outputs, persist each run
// and finally write the batch metrics table.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/larva.report/internal/config"
	"github.com/banshee-data/larva.report/internal/failure"
	"github.com/banshee-data/larva.report/internal/fsutil"
	"github.com/banshee-data/larva.report/internal/ingest"
	"github.com/banshee-data/larva.report/internal/kinematics"
	"github.com/banshee-data/larva.report/internal/midline"
	"github.com/banshee-data/larva.report/internal/monitoring"
	"github.com/banshee-data/larva.report/internal/report"
	"github.com/banshee-data/larva.report/internal/stitch"
	"github.com/banshee-data/larva.report/internal/store"
	"github.com/banshee-data/larva.report/internal/timeutil"
	"github.com/banshee-data/larva.report/internal/visual"
)

// Per-video chart file names.
const (
	BodyLengthPlotFile = "bodylength.png"
	TrajectoryFile     = "trajectory.html"
)

// Recorder persists processed runs. *store.DB implements it.
type Recorder interface {
	SaveRun(ctx context.Context, r *store.Run) error
}

// Mode selects how far each video is processed.
type Mode int

const (
	// Full reconciles, analyzes and writes every output.
	Full Mode = iota
	// StitchOnly reconciles and writes abs_points.txt.
	StitchOnly
	// FromAbsolutePoints skips reconciliation and analyzes an existing
	// abs_points.txt.
	FromAbsolutePoints
)

// Driver processes video folders sequentially. A nil Recorder disables
// persistence.
type Driver struct {
	FS       fsutil.FileSystem
	Clock    timeutil.Clock
	Config   *config.TuningConfig
	Recorder Recorder
	Mode     Mode
	BatchID  string
}

// NewDriver returns a Driver on the OS filesystem and real clock.
func NewDriver(cfg *config.TuningConfig, rec Recorder) *Driver {
	return &Driver{
		FS:       fsutil.OSFileSystem{},
		Clock:    timeutil.RealClock{},
		Config:   cfg,
		Recorder: rec,
		BatchID:  store.NewBatchID(),
	}
}

// Failure is a video that could not be processed.
type Failure struct {
	Folder ingest.Folder
	Err    error
}

// Summary reports what a batch did.
type Summary struct {
	Processed int
	Failures  []Failure
	// Metrics holds one entry per analyzed video, in folder order.
	Metrics []*report.Metrics
}

// Run discovers video folders under root and processes each one. A failing
// video is logged, recorded and skipped. In analysis modes the metrics
// table is written to root when at least one video succeeded.
func (d *Driver) Run(ctx context.Context, root string) (*Summary, error) {
	folders, err := ingest.Discover(d.FS, root)
	if err != nil {
		return nil, err
	}
	monitoring.Opsf("batch %s: %d video folders under %s", d.BatchID, len(folders), root)

	sum := &Summary{}
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res, err := d.Process(ctx, folder)
		if err != nil {
			sum.Failures = append(sum.Failures, Failure{Folder: folder, Err: err})
			logFailure(folder, err)
			continue
		}
		sum.Processed++
		if res != nil {
			sum.Metrics = append(sum.Metrics, res.Metrics)
		}
	}

	if d.Mode != StitchOnly && len(sum.Metrics) > 0 {
		path := filepath.Join(root, d.Config.GetMetricsFilename())
		if err := d.create(path, func(w io.Writer) error { return report.WriteTable(w, sum.Metrics) }); err != nil {
			return sum, err
		}
		monitoring.Opsf("wrote %s (%d videos)", path, len(sum.Metrics))
	}
	monitoring.Opsf("batch %s: %d processed, %d failed", d.BatchID, sum.Processed, len(sum.Failures))
	return sum, nil
}

func logFailure(folder ingest.Folder, err error) {
	if failure.IsAssertion(err) {
		monitoring.Opsf("ASSERTION FAILED in %s [%s]: %v", folder.Dir, failure.StageOf(err), err)
		return
	}
	kind, _ := failure.KindOf(err)
	monitoring.Opsf("skipping %s [%s/%s]: %v", folder.Dir, failure.StageOf(err), kind, err)
}

// Process runs one video folder according to d.Mode and records the run.
// The returned Result is nil in StitchOnly mode.
func (d *Driver) Process(ctx context.Context, folder ingest.Folder) (*kinematics.Result, error) {
	run := &store.Run{
		BatchID: d.BatchID,
		Larva:   folder.Name,
		Folder:  folder.Dir,
		Started: d.Clock.Now(),
	}
	res, err := d.process(folder, run)
	run.Elapsed = d.Clock.Since(run.Started)
	run.Err = err
	run.Analysis = res
	if d.Recorder != nil {
		if serr := d.Recorder.SaveRun(ctx, run); serr != nil {
			return res, errors.Join(err, fmt.Errorf("record %s: %w", folder.Dir, serr))
		}
	}
	return res, err
}

func (d *Driver) process(folder ingest.Folder, run *store.Run) (*kinematics.Result, error) {
	var skeletons []midline.Skeleton
	var frameRate float64
	var timestamps []float64

	switch d.Mode {
	case FromAbsolutePoints:
		rate, frames, err := d.readAbsolutePoints(folder)
		if err != nil {
			return nil, err
		}
		timing, err := d.readTiming(folder)
		if err != nil {
			return nil, err
		}
		skeletons, frameRate, timestamps = framesToSkeletons(frames), rate, timing.Timestamps
		if skeletons == nil {
			return nil, failure.New(stitch.Stage, failure.UnrecoverableGap, "%s holds invalid frames; rerun reconciliation", ingest.AbsolutePointsFile)
		}

	default:
		in, err := ingest.LoadInput(d.FS, folder.Dir)
		if err != nil {
			return nil, err
		}
		traj, err := d.reconcile(in)
		if err != nil {
			return nil, err
		}
		run.Repairs = &traj.Diagnostics
		if err := d.writeAbsolutePoints(folder, traj); err != nil {
			return nil, err
		}
		if d.Mode == StitchOnly {
			return nil, nil
		}
		skeletons, frameRate, timestamps = traj.Frames, traj.FrameRate, in.Timing.Timestamps
	}

	return d.analyze(folder, skeletons, frameRate, timestamps)
}

func (d *Driver) reconcile(in stitch.Input) (*stitch.Trajectory, error) {
	r, err := stitch.New(in, d.Config.ReconcilerOptions())
	if err != nil {
		return nil, err
	}
	return r.Run()
}

func (d *Driver) analyze(folder ingest.Folder, skeletons []midline.Skeleton, frameRate float64, timestamps []float64) (*kinematics.Result, error) {
	res, err := kinematics.Analyze(folder.Name, skeletons, frameRate, d.Config.AnalyzerOptions())
	if err != nil {
		return nil, err
	}
	rows, err := res.DetailRows(timestamps)
	if err != nil {
		return nil, err
	}
	if err := d.create(filepath.Join(folder.Dir, ingest.DetailsFile), func(w io.Writer) error {
		return report.WriteDetails(w, rows)
	}); err != nil {
		return nil, err
	}
	if d.Config.GetWritePlots() {
		if err := d.writePlots(folder, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (d *Driver) writeAbsolutePoints(folder ingest.Folder, traj *stitch.Trajectory) error {
	frames := make([]midline.Frame, len(traj.Frames))
	for i, s := range traj.Frames {
		frames[i] = midline.Found(s)
	}
	return d.create(filepath.Join(folder.Dir, ingest.AbsolutePointsFile), func(w io.Writer) error {
		return report.WriteAbsolutePoints(w, traj.FrameRate, frames)
	})
}

func (d *Driver) writePlots(folder ingest.Folder, res *kinematics.Result) error {
	err := d.create(filepath.Join(folder.Dir, BodyLengthPlotFile), func(w io.Writer) error {
		return visual.WriteBodyLengthPNG(w, res)
	})
	if err != nil {
		return err
	}
	return d.create(filepath.Join(folder.Dir, TrajectoryFile), func(w io.Writer) error {
		return visual.WriteTrajectoryHTML(w, res, d.Config.GetRepellentRadiusMM())
	})
}

// framesToSkeletons returns nil when any frame is invalid.
func framesToSkeletons(frames []midline.Frame) []midline.Skeleton {
	out := make([]midline.Skeleton, len(frames))
	for i, f := range frames {
		if !f.Valid {
			return nil
		}
		out[i] = f.Points
	}
	return out
}

// create writes a file through fn and closes it, reporting the first error.
func (d *Driver) create(path string, fn func(io.Writer) error) error {
	f, err := d.FS.Create(path)
	if err != nil {
		return failure.New(report.TableStage, failure.MissingOrUnreadableInput, "create %s: %w", path, err)
	}
	werr := fn(f)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("write %s: %w", path, werr)
	}
	if cerr != nil {
		return failure.New(report.TableStage, failure.MissingOrUnreadableInput, "close %s: %w", path, cerr)
	}
	return nil
}

func (d *Driver) open(path string, fn func(io.Reader) error) error {
	f, err := d.FS.Open(path)
	if err != nil {
		return failure.New(ingest.Stage, failure.MissingOrUnreadableInput, "%s: %w", path, err)
	}
	defer f.Close()
	return fn(f)
}

func (d *Driver) readAbsolutePoints(folder ingest.Folder) (rate float64, frames []midline.Frame, err error) {
	err = d.open(filepath.Join(folder.Dir, ingest.AbsolutePointsFile), func(r io.Reader) error {
		rate, frames, err = report.ReadAbsolutePoints(r)
		return err
	})
	return rate, frames, err
}

func (d *Driver) readTiming(folder ingest.Folder) (timing midline.FrameTiming, err error) {
	err = d.open(filepath.Join(folder.Dir, ingest.FrameTimeFile), func(r io.Reader) error {
		timing, err = ingest.ReadFrameTiming(r)
		return err
	})
	return timing, err
}
