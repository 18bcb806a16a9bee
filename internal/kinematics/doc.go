// Package kinematics derives locomotion measurements from a reconciled
// midline trajectory.
//
// Analyze runs the full pipeline for one video: body length and its
// smoothed curve, local extrema with spurious-minimum suppression, head and
// body bending, zone classification against the repellent ring, per-point
// speed, direction change, stride and run segmentation, and the ordered
// metrics report. Every intermediate is kept on the returned Result so the
// details table and plots can be rendered from it.
//
// Stride membership is a side table (Result.StrideOf) indexed by frame; a
// Frame never points at a Stride.
package kinematics
