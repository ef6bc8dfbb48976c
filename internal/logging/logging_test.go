package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newTestLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.DebugLevel)
	return l
}

func TestFileSinkLineFormat(t *testing.T) {
	dir := t.TempDir()
	l := newTestLogger()

	sink, err := Attach(l, dir)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	l.WithField("code", "SPACE").Warnf("only %s available", "1.00 GiB")
	l.Infof("plain message")

	if err := sink.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	body, err := os.ReadFile(sink.Path())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), string(body))
	}

	lineRe := regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} \[[A-Z]+\] \[[A-Z]+\] .+$`)
	for i, line := range lines {
		if !lineRe.MatchString(line) {
			t.Errorf("line %d does not match format: %q", i, line)
		}
	}
	if !strings.Contains(lines[0], "[WARN] [SPACE] only 1.00 GiB available") {
		t.Errorf("coded warn line wrong: %q", lines[0])
	}
	if !strings.Contains(lines[1], "[INFO] [MAIN] plain message") {
		t.Errorf("uncoded line should default to MAIN: %q", lines[1])
	}
}

func TestFinalizeWritesHashSidecar(t *testing.T) {
	dir := t.TempDir()
	l := newTestLogger()

	sink, err := Attach(l, dir)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	l.Infof("one line")

	if err := sink.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	body, err := os.ReadFile(sink.Path())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	digest := sha256.Sum256(body)

	sidecar, err := os.ReadFile(sink.Path() + ".hash")
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	want := hex.EncodeToString(digest[:]) + "\n"
	if string(sidecar) != want {
		t.Errorf("sidecar %q, want %q", string(sidecar), want)
	}

	// Finalize twice is a no-op
	if err := sink.Finalize(); err != nil {
		t.Errorf("second Finalize: %v", err)
	}
}

func writeLogFile(t *testing.T, dir, name string, size int, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	mt := time.Now().Add(-age)
	if err := os.Chtimes(path, mt, mt); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
	return path
}

func TestPruneByAge(t *testing.T) {
	dir := t.TempDir()
	old := writeLogFile(t, dir, "2020-01-01_00-00-00.log", 10, 90*24*time.Hour)
	writeLogFile(t, dir, "2020-01-01_00-00-00.log.hash", 65, 90*24*time.Hour)
	fresh := writeLogFile(t, dir, "2026-01-01_00-00-00.log", 10, time.Hour)

	removed, err := Prune(dir, 30, 0)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Errorf("old log still present")
	}
	if _, err := os.Stat(old + ".hash"); !os.IsNotExist(err) {
		t.Errorf("old sidecar still present")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh log removed: %v", err)
	}
}

func TestPruneBySize(t *testing.T) {
	dir := t.TempDir()
	// Three half-megabyte logs, oldest first, 1 MiB cap: oldest must go.
	oldest := writeLogFile(t, dir, "a.log", 512*1024, 3*time.Hour)
	writeLogFile(t, dir, "b.log", 512*1024, 2*time.Hour)
	newest := writeLogFile(t, dir, "c.log", 512*1024, time.Hour)

	removed, err := Prune(dir, 0, 1)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(oldest); !os.IsNotExist(err) {
		t.Errorf("oldest log should have been pruned")
	}
	if _, err := os.Stat(newest); err != nil {
		t.Errorf("newest log removed: %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	writeLogFile(t, dir, "a.log", 5, 2*time.Hour)
	writeLogFile(t, dir, "b.log", 5, time.Hour)
	writeLogFile(t, dir, "b.log.hash", 65, time.Hour)
	writeLogFile(t, dir, "notes.txt", 5, time.Minute)

	logs, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if filepath.Base(logs[0].Path) != "b.log" {
		t.Errorf("newest first: got %s", logs[0].Path)
	}
	if !logs[0].Hashed {
		t.Errorf("b.log should be marked hashed")
	}
	if logs[1].Hashed {
		t.Errorf("a.log should not be marked hashed")
	}
}

func TestListMissingDir(t *testing.T) {
	logs, err := List(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("List on missing dir: %v", err)
	}
	if logs != nil {
		t.Errorf("expected nil, got %v", logs)
	}
}
