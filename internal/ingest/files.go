package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/banshee-data/larva.report/internal/failure"
	"github.com/banshee-data/larva.report/internal/fsutil"
	"github.com/banshee-data/larva.report/internal/stitch"
)

// Stage is the failure stage tag for ingest errors.
const Stage = "ingest"

// File names inside a video folder.
const (
	PointsFile         = "points.txt"
	FrameTimeFile      = "frametime.txt"
	StageLogFile       = "log.csv"
	InfoFile           = "info.xml"
	AbsolutePointsFile = "abs_points.txt"
	DetailsFile        = "details.txt"
)

// RequiredFiles lists the inputs every video folder must hold.
var RequiredFiles = []string{PointsFile, FrameTimeFile, StageLogFile, InfoFile}

// maxLine bounds a single input line.
const maxLine = 1 << 20

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	return sc
}

func malformed(file string, line int, format string, args ...interface{}) error {
	return failure.New(Stage, failure.MalformedRecord, "%s line %d: %s", file, line, fmt.Sprintf(format, args...))
}

func unreadable(file string, err error) error {
	return failure.New(Stage, failure.MissingOrUnreadableInput, "%s: %w", file, err)
}

// LoadInput reads all four input files of the video folder dir.
func LoadInput(fsys fsutil.FileSystem, dir string) (stitch.Input, error) {
	var in stitch.Input
	open := func(name string, parse func(io.Reader) error) error {
		path := filepath.Join(dir, name)
		r, err := fsys.Open(path)
		if err != nil {
			return unreadable(path, err)
		}
		defer r.Close()
		return parse(r)
	}

	err := errors.Join(
		open(PointsFile, func(r io.Reader) (err error) {
			in.Frames, err = ReadPoints(r)
			return err
		}),
		open(FrameTimeFile, func(r io.Reader) (err error) {
			in.Timing, err = ReadFrameTiming(r)
			return err
		}),
		open(StageLogFile, func(r io.Reader) (err error) {
			in.Stage, err = ReadStageLog(r)
			return err
		}),
		open(InfoFile, func(r io.Reader) (err error) {
			in.Calibration, err = ReadCalibration(r)
			return err
		}),
	)
	if err != nil {
		return stitch.Input{}, fmt.Errorf("load %s: %w", dir, err)
	}
	return in, nil
}

// Folder is a video folder found under a batch root.
type Folder struct {
	// Name is the folder's base name, used as the "larvae" label.
	Name string
	Dir  string
}

// Discover walks root and returns every folder holding a points file, in
// lexical order. Directories whose name starts with "bad" are skipped with
// their whole subtree.
func Discover(fsys fsutil.FileSystem, root string) ([]Folder, error) {
	var out []Folder
	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := fsys.ReadDir(dir)
		if err != nil {
			return unreadable(dir, err)
		}
		if hasFile(entries, PointsFile) {
			out = append(out, Folder{Name: filepath.Base(dir), Dir: dir})
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			if strings.HasPrefix(strings.ToLower(e.Name()), "bad") {
				continue
			}
			if err := walk(filepath.Join(dir, e.Name())); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(filepath.Clean(root)); err != nil {
		return nil, err
	}
	return out, nil
}

func hasFile(entries []fs.DirEntry, name string) bool {
	for _, e := range entries {
		if !e.IsDir() && e.Name() == name {
			return true
		}
	}
	return false
}
