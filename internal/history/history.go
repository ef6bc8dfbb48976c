// Package history keeps a local ledger of pacscout runs in SQLite, one row
// per generated manifest or plan, so operators can see what past runs found
// without keeping every document around.
package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pacscout/pacscout/internal/errdefs"
)

// Run kinds recorded in the ledger
const (
	KindManifest = "manifest"
	KindPlan     = "plan"
)

// Record is one recorded run
type Record struct {
	ID               int64     `json:"id"`
	Kind             string    `json:"kind"`
	StartedAt        time.Time `json:"started_at"`
	TotalPackages    int       `json:"total_packages"`
	UpdatesAvailable int       `json:"updates_available"`
	ErrorCount       int       `json:"error_count"`
	Blocked          bool      `json:"blocked"`
	AvailableBytes   *uint64   `json:"available_bytes,omitempty"`
	CheckedPath      string    `json:"checked_path,omitempty"`
}

// Ledger is an open history database
type Ledger struct {
	db *sql.DB
}

// Open opens the ledger at path, creating the file, its parent directory,
// and the schema as needed.
func Open(path string) (*Ledger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errdefs.Filesystem("creating "+dir, err)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errdefs.Filesystem("opening history database", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errdefs.Filesystem("opening history database", err)
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id                INTEGER PRIMARY KEY,
  kind              TEXT NOT NULL CHECK (kind IN ('manifest','plan')),
  started_at        DATETIME NOT NULL,
  total_packages    INTEGER NOT NULL DEFAULT 0,
  updates_available INTEGER NOT NULL DEFAULT 0,
  error_count       INTEGER NOT NULL DEFAULT 0,
  blocked           INTEGER NOT NULL DEFAULT 0 CHECK (blocked IN (0,1)),
  available_bytes   INTEGER,
  checked_path      TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_time ON runs(started_at);
	`); err != nil {
		db.Close()
		return nil, errdefs.Filesystem("preparing history schema", err)
	}

	return &Ledger{db: db}, nil
}

// Close releases the database handle
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Append records one run. A zero StartedAt is stamped with the current
// time.
func (l *Ledger) Append(rec Record) error {
	started := rec.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	var available sql.NullInt64
	if rec.AvailableBytes != nil {
		available = sql.NullInt64{Int64: int64(*rec.AvailableBytes), Valid: true}
	}
	var checked sql.NullString
	if rec.CheckedPath != "" {
		checked = sql.NullString{String: rec.CheckedPath, Valid: true}
	}

	_, err := l.db.Exec(
		`INSERT INTO runs(kind, started_at, total_packages, updates_available, error_count, blocked, available_bytes, checked_path)
		 VALUES(?,?,?,?,?,?,?,?)`,
		rec.Kind,
		started.UTC().Format(time.RFC3339),
		rec.TotalPackages,
		rec.UpdatesAvailable,
		rec.ErrorCount,
		boolToInt(rec.Blocked),
		available,
		checked,
	)
	if err != nil {
		return errdefs.Filesystem("recording run", err)
	}
	return nil
}

// Recent returns the latest n runs, newest first
func (l *Ledger) Recent(n int) ([]Record, error) {
	rows, err := l.db.Query(
		`SELECT id, kind, started_at, total_packages, updates_available, error_count, blocked, available_bytes, checked_path
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, errdefs.Filesystem("reading history", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec       Record
			started   string
			blocked   int
			available sql.NullInt64
			checked   sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Kind, &started, &rec.TotalPackages,
			&rec.UpdatesAvailable, &rec.ErrorCount, &blocked, &available, &checked); err != nil {
			return nil, errdefs.Filesystem("reading history", err)
		}
		if ts, err := time.Parse(time.RFC3339, started); err == nil {
			rec.StartedAt = ts
		}
		rec.Blocked = blocked == 1
		if available.Valid {
			v := uint64(available.Int64)
			rec.AvailableBytes = &v
		}
		rec.CheckedPath = checked.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errdefs.Filesystem("reading history", err)
	}
	return records, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
