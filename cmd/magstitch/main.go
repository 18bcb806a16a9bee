// Command magstitch reconciles raw midlines into absolute plate
// coordinates and writes abs_points.txt into every video folder.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/larva.report/internal/batch"
	"github.com/banshee-data/larva.report/internal/config"
	"github.com/banshee-data/larva.report/internal/monitoring"
	"github.com/banshee-data/larva.report/internal/store"
	"github.com/banshee-data/larva.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a tuning JSON file (defaults built in)")
	dbPath      = flag.String("db", "", "SQLite database for run records (empty disables)")
	debug       = flag.Bool("debug", false, "Log per-video repair summaries")
	trace       = flag.Bool("trace", false, "Log per-frame decisions")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <root> [root...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	os.Exit(run())
}

func run() int {
	if *showVersion {
		fmt.Println("magstitch", version.String())
		return 0
	}
	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	w := monitoring.LogWriters{Ops: os.Stderr, Diag: io.Discard, Trace: io.Discard}
	if *debug {
		w.Diag = os.Stderr
	}
	if *trace {
		w.Trace = os.Stderr
	}
	monitoring.SetLogWriters(w)

	cfg := config.DefaultTuningConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadTuningConfig(*configPath); err != nil {
			log.Printf("failed to load config: %v", err)
			return 1
		}
	}

	var rec batch.Recorder
	if *dbPath != "" {
		db, err := store.Open(*dbPath)
		if err != nil {
			log.Printf("failed to open database: %v", err)
			return 1
		}
		defer db.Close()
		rec = db
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := batch.NewDriver(cfg, rec)
	d.Mode = batch.StitchOnly

	failed := 0
	for _, root := range flag.Args() {
		sum, err := d.Run(ctx, root)
		if err != nil {
			log.Printf("batch %s stopped: %v", root, err)
			failed++
			continue
		}
		failed += len(sum.Failures)
		monitoring.Logf("%s: %d videos stitched, %d skipped", root, sum.Processed, len(sum.Failures))
	}
	if failed > 0 {
		return 1
	}
	return 0
}
