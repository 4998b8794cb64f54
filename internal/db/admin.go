package db

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// TableStats is a row count for one application table.
type TableStats struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

// DatabaseStats summarises the application tables.
type DatabaseStats struct {
	Tables []TableStats `json:"tables"`
}

var statsTables = []string{"tf_static_links", "tf_sessions"}

// Stats counts rows in each application table.
func (db *DB) Stats() (DatabaseStats, error) {
	stats := DatabaseStats{Tables: []TableStats{}}
	for _, table := range statsTables {
		var n int64
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return stats, fmt.Errorf("count %s: %w", table, err)
		}
		stats.Tables = append(stats.Tables, TableStats{Name: table, Rows: n})
	}
	return stats, nil
}

// AttachAdminRoutes mounts the database debug pages on r: JSON stats and a
// gzipped backup under /debug/db, plus the tsweb debug index with a tailsql
// console under /debug/tailsql/. The tsweb pages only answer loopback and
// tailnet callers.
func (db *DB) AttachAdminRoutes(r chi.Router) {
	r.Get("/debug/db/stats", db.handleStats)
	r.Get("/debug/db/backup", db.handleBackup)

	mux := http.NewServeMux()
	debug := tsweb.Debugger(mux)
	debug.URL("/debug/db/stats", "Row counts for the transform tables")
	debug.URL("/debug/db/backup", "Create and download a backup of the database now")

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Printf("failed to create tailsql server: %v", err)
	} else {
		tsql.SetDB("sqlite://tfgraph.db", db.DB, &tailsql.DBOptions{
			Label:        "tfgraph DB",
			NamedQueries: namedQueries,
		})
		debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	}
	r.Handle("/debug/*", mux)
}

var namedQueries = map[string]string{
	"links":    `SELECT parent_frame, child_frame, tx, ty, tz, qx, qy, qz, qw FROM tf_static_links ORDER BY child_frame`,
	"sessions": `SELECT session_id, reason, started_at_ns, ended_at_ns, frame_count, sample_count FROM tf_sessions ORDER BY started_at_ns DESC`,
}

func (db *DB) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := db.Stats()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Printf("Failed to encode db stats: %v", err)
	}
}

func (db *DB) handleBackup(w http.ResponseWriter, r *http.Request) {
	dir, err := os.MkdirTemp("", "tfgraph-backup-")
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup dir: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("Failed to remove backup dir: %v", err)
		}
	}()

	name := fmt.Sprintf("backup-%d.db", time.Now().Unix())
	backupPath := filepath.Join(dir, name)
	if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}

	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer backupFile.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", name))
	w.Header().Set("Content-Type", "application/gzip")

	gz := gzip.NewWriter(w)
	defer gz.Close()
	if _, err := io.Copy(gz, backupFile); err != nil {
		log.Printf("Failed to write backup: %v", err)
	}
}
