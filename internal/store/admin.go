package store

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/larva.report/internal/monitoring"
	"github.com/banshee-data/larva.report/internal/timeutil"
)

// AttachAdminRoutes mounts the tailsql console, JSON views of the stored
// runs and a backup download under /debug/ on mux.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux, clock timeutil.Clock) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(db.path), db.DB, &tailsql.DBOptions{
		Label: "Larva analysis runs",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("runs", "Analysis runs of a batch (JSON, ?batch=ID)", http.HandlerFunc(db.handleRuns))
	debug.Handle("metrics", "Ordered metrics of one run (JSON, ?run=ID)", http.HandlerFunc(db.handleRunMetrics))

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		db.serveBackup(w, r, clock)
	}))
	return nil
}

func (db *DB) serveBackup(w http.ResponseWriter, r *http.Request, clock timeutil.Clock) {
	dir, err := os.MkdirTemp("", "larva-backup-")
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup dir: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			monitoring.Opsf("failed to remove backup dir %s: %v", dir, err)
		}
	}()

	name := fmt.Sprintf("backup-%d.db", clock.Now().Unix())
	backupPath := filepath.Join(dir, name)
	if _, err := db.ExecContext(r.Context(), "VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}
	f, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", name))
	w.Header().Set("Content-Type", "application/gzip")
	gz := gzip.NewWriter(w)
	defer gz.Close()
	if _, err := io.Copy(gz, f); err != nil {
		monitoring.Opsf("backup stream interrupted: %v", err)
	}
}
