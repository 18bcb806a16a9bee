// Package ingest reads the per-video acquisition files into the midline
// data model and discovers video folders under a batch root.
//
// A video folder holds:
//
//	points.txt     raw pixel midlines, an x row and a y row per frame
//	frametime.txt  frame count and duration, then one timestamp per frame
//	log.csv        stage controller log; STAGE rows carry the stage offset
//	info.xml       camera resolution and stage steps per pixel
//
// Every parse error is a *failure.Error of kind MalformedRecord naming the
// file and line; a missing file is MissingOrUnreadableInput.
package ingest
