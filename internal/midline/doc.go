// Package midline owns the shared data model of the larva pipeline.
//
// Responsibilities: the 13-point midline skeleton and its geometry, the
// optional per-frame wrapper used before reconciliation, and the stage,
// calibration and timing records that come from the acquisition rig.
//
// Key types: Point, Skeleton, Frame, StagePosition, Calibration,
// FrameTiming.
//
// Coordinates are pixels before reconciliation and millimetres after. The
// package does not know which; callers keep track.
package midline
