// Package stitch owns the coordinate reconciler: it turns per-frame pixel
// midlines plus the stage log into a millimetre trajectory.
//
// Responsibilities: length-based bad-frame rejection, head/tail swap
// repair, stage index assignment and boundary refinement, conversion to
// plate coordinates, short-gap interpolation and the video-wide head/tail
// convention.
//
// A Reconciler exclusively owns the frame buffers it is built from; each
// repair pass mutates them in place and nothing else holds a reference.
//
// Key types: Input, Options, Reconciler, Trajectory, Diagnostics.
package stitch
