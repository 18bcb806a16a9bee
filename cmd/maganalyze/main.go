// Command maganalyze reconciles and analyzes every video folder under the
// given roots, writing per-video details, the batch metrics table and an
// SQLite record of each run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/larva.report/internal/batch"
	"github.com/banshee-data/larva.report/internal/config"
	"github.com/banshee-data/larva.report/internal/monitoring"
	"github.com/banshee-data/larva.report/internal/store"
	"github.com/banshee-data/larva.report/internal/timeutil"
	"github.com/banshee-data/larva.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to a tuning JSON file (defaults built in)")
	dbPath      = flag.String("db", "larva.db", "SQLite database for run records (empty disables)")
	plots       = flag.Bool("plots", false, "Render body length and trajectory charts per video")
	fromAbs     = flag.Bool("from-abs", false, "Analyze existing abs_points.txt instead of reconciling")
	listen      = flag.String("listen", "", "Serve the debug SQL console on this address after the batch")
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
		fmt.Println("maganalyze", version.String())
		return 0
	}
	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	monitoring.SetLogWriters(logWriters(*debug, *trace))

	cfg := config.DefaultTuningConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadTuningConfig(*configPath); err != nil {
			log.Printf("failed to load config: %v", err)
			return 1
		}
	}
	if *plots {
		cfg.WritePlots = plots
	}

	var db *store.DB
	var rec batch.Recorder
	if *dbPath != "" {
		var err error
		if db, err = store.Open(*dbPath); err != nil {
			log.Printf("failed to open database: %v", err)
			return 1
		}
		defer db.Close()
		rec = db
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := batch.NewDriver(cfg, rec)
	if *fromAbs {
		d.Mode = batch.FromAbsolutePoints
	}

	failed := 0
	for _, root := range flag.Args() {
		sum, err := d.Run(ctx, root)
		if err != nil {
			log.Printf("batch %s stopped: %v", root, err)
			failed++
			continue
		}
		failed += len(sum.Failures)
		monitoring.Logf("%s: %d videos analyzed, %d skipped", root, sum.Processed, len(sum.Failures))
	}

	if *listen != "" && db != nil {
		if err := serve(ctx, db, *listen); err != nil {
			log.Printf("debug console: %v", err)
			return 1
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func logWriters(debug, trace bool) monitoring.LogWriters {
	w := monitoring.LogWriters{Ops: os.Stderr, Diag: io.Discard, Trace: io.Discard}
	if debug {
		w.Diag = os.Stderr
	}
	if trace {
		w.Trace = os.Stderr
	}
	return w
}

// serve runs the debug console until ctx is cancelled. A bind or serve
// failure is returned so the caller can still close the database.
func serve(ctx context.Context, db *store.DB, addr string) error {
	mux := http.NewServeMux()
	if err := db.AttachAdminRoutes(mux, timeutil.RealClock{}); err != nil {
		return fmt.Errorf("attach admin routes: %w", err)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	server := &http.Server{Handler: mux}

	errc := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	log.Printf("debug console on http://%s/debug/tailsql/", ln.Addr())

	select {
	case err := <-errc:
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	return nil
}
