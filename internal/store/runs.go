package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/larva.report/internal/failure"
	"github.com/banshee-data/larva.report/internal/kinematics"
	"github.com/banshee-data/larva.report/internal/stitch"
)

// Run status values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one video processed by a batch. Repairs and Analysis are nil when
// processing failed before the corresponding stage completed.
type Run struct {
	ID       string
	BatchID  string
	Larva    string
	Folder   string
	Started  time.Time
	Elapsed  time.Duration
	Repairs  *stitch.Diagnostics
	Analysis *kinematics.Result
	Err      error
}

// NewBatchID returns a fresh identifier grouping the runs of one batch.
func NewBatchID() string { return uuid.NewString() }

// Status returns StatusFailed when the run carries an error.
func (r *Run) Status() string {
	if r.Err != nil {
		return StatusFailed
	}
	return StatusOK
}

// SaveRun stores r and everything it carries in one transaction. An empty
// r.ID is replaced by a new UUID.
func (db *DB) SaveRun(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", r.ID, err)
	}
	defer tx.Rollback()

	var stage, kind, message sql.NullString
	if r.Err != nil {
		message = sql.NullString{String: r.Err.Error(), Valid: true}
		if s := failure.StageOf(r.Err); s != "" {
			stage = sql.NullString{String: s, Valid: true}
		}
		if k, ok := failure.KindOf(r.Err); ok {
			kind = sql.NullString{String: string(k), Valid: true}
		}
	}
	var frameRate sql.NullFloat64
	var frames sql.NullInt64
	if r.Analysis != nil {
		frameRate = sql.NullFloat64{Float64: r.Analysis.FrameRate, Valid: true}
		frames = sql.NullInt64{Int64: int64(len(r.Analysis.Frames)), Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO analysis_runs (
			run_id, batch_id, larva, folder, status,
			failure_stage, failure_kind, failure_message,
			frame_rate, frames, started_unix_nano, elapsed_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.BatchID, r.Larva, r.Folder, r.Status(),
		stage, kind, message,
		frameRate, frames, r.Started.UnixNano(), r.Elapsed.Milliseconds(),
	); err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}

	if d := r.Repairs; d != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_repairs (
				run_id, frames_invalidated, swaps_fixed, likely_stage_shifts,
				boundaries_moved, frames_interpolated, baseline_distance,
				refined_distance, head_tail_flipped
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, d.FramesInvalidated, d.SwapsFixed, len(d.LikelyStageShifts),
			d.BoundariesMoved, d.FramesInterpolated, d.BaselineDistance,
			d.RefinedDistance, d.HeadTailFlipped,
		); err != nil {
			return fmt.Errorf("insert repairs for %s: %w", r.ID, err)
		}
	}

	if a := r.Analysis; a != nil {
		if err := insertAnalysis(ctx, tx, r.ID, a); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", r.ID, err)
	}
	return nil
}

func insertAnalysis(ctx context.Context, tx *sql.Tx, runID string, a *kinematics.Result) error {
	if a.Metrics != nil {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_metrics (run_id, ordinal, key, value) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare metrics: %w", err)
		}
		defer stmt.Close()
		values := a.Metrics.Values()
		for i, key := range a.Metrics.Keys() {
			if _, err := stmt.ExecContext(ctx, runID, i, key, values[i]); err != nil {
				return fmt.Errorf("insert metric %s: %w", key, err)
			}
		}
	}

	for _, s := range a.Strides {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_strides (
				run_id, stride_number, first_minimum, second_minimum, extended_frame,
				distance_mm, over_repellent, contraction_rate, extension_rate
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, s.Number, s.FirstMinimum, s.SecondMinimum, s.Extended,
			s.DistanceCenter, s.OverRepellent, s.ContractionRate, s.ExtensionRate,
		); err != nil {
			return fmt.Errorf("insert stride %d: %w", s.Number, err)
		}
	}

	for _, run := range a.Runs {
		first, last := run.Strides[0].FirstMinimum, run.Strides[len(run.Strides)-1].SecondMinimum
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_crawls (run_id, crawl_number, cushion, strides, first_frame, last_frame)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, run.Number, run.Cushion, len(run.Strides), first, last,
		); err != nil {
			return fmt.Errorf("insert crawl %d: %w", run.Number, err)
		}
	}
	return nil
}

// Summary is the stored row of one analysis run.
type Summary struct {
	ID             string    `json:"run_id"`
	BatchID        string    `json:"batch_id"`
	Larva          string    `json:"larva"`
	Folder         string    `json:"folder"`
	Status         string    `json:"status"`
	FailureStage   string    `json:"failure_stage,omitempty"`
	FailureKind    string    `json:"failure_kind,omitempty"`
	FailureMessage string    `json:"failure_message,omitempty"`
	FrameRate      float64   `json:"frame_rate"`
	Frames         int       `json:"frames"`
	Started        time.Time `json:"started"`
}

// ListRuns returns the runs of a batch in insertion order.
func (db *DB) ListRuns(ctx context.Context, batchID string) ([]Summary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, batch_id, larva, folder, status,
		       COALESCE(failure_stage, ''), COALESCE(failure_kind, ''), COALESCE(failure_message, ''),
		       COALESCE(frame_rate, 0), COALESCE(frames, 0), started_unix_nano
		FROM analysis_runs
		WHERE batch_id = ?
		ORDER BY rowid`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		var started int64
		if err := rows.Scan(&s.ID, &s.BatchID, &s.Larva, &s.Folder, &s.Status,
			&s.FailureStage, &s.FailureKind, &s.FailureMessage,
			&s.FrameRate, &s.Frames, &started); err != nil {
			return nil, err
		}
		s.Started = time.Unix(0, started)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Metric is one stored key/value pair.
type Metric struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RunMetrics returns the metrics of a run in the order they were written.
func (db *DB) RunMetrics(ctx context.Context, runID string) ([]Metric, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM run_metrics WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Metric
	for rows.Next() {
		var m Metric
		if err := rows.Scan(&m.Key, &m.Value); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// StrideCount returns the number of stored strides for a run.
func (db *DB) StrideCount(ctx context.Context, runID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_strides WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}
