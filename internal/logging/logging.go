// Package logging configures the shared logrus logger: colored console
// output on stderr plus an optional per-run log file with an integrity
// sidecar and retention pruning.
package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	defaultLogger *logrus.Logger
	once          sync.Once

	mu          sync.Mutex
	defaultSink *FileSink
)

// Default returns the process-wide logger instance
func Default() *logrus.Logger {
	once.Do(func() {
		defaultLogger = logrus.New()
		defaultLogger.SetOutput(os.Stderr)
		defaultLogger.SetLevel(logrus.InfoLevel)
		defaultLogger.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: true,
		})
	})
	return defaultLogger
}

// SetVerbose enables debug output
func SetVerbose(verbose bool) {
	if verbose {
		Default().SetLevel(logrus.DebugLevel)
	}
}

// SetQuiet disables all output except errors
func SetQuiet(quiet bool) {
	if quiet {
		Default().SetLevel(logrus.ErrorLevel)
	}
}

// SetLevel sets the logging level by name (debug, info, warn, error)
func SetLevel(name string) error {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("unknown log level %q", name)
	}
	Default().SetLevel(level)
	return nil
}

// WithCode tags an entry with a short component code; the code appears in
// the run log file between brackets
func WithCode(code string) *logrus.Entry {
	return Default().WithField("code", code)
}

// Package-level convenience functions
func Debugf(format string, args ...interface{}) { Default().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { Default().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { Default().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { Default().Errorf(format, args...) }

// LogDir returns the default log directory path
func LogDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	xdgState := os.Getenv("XDG_STATE_HOME")
	if xdgState == "" {
		xdgState = filepath.Join(home, ".local", "state")
	}

	return filepath.Join(xdgState, "pacscout", "logs"), nil
}

// FileSink writes every entry passing the logger's level to a per-run log
// file in the format "2006-01-02 15:04:05 [LEVEL] [CODE] message".
type FileSink struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// Attach creates the run log file under dir (default LogDir when empty) and
// registers the sink as a hook on l. The file is named from the current time.
func Attach(l *logrus.Logger, dir string) (*FileSink, error) {
	if dir == "" {
		var err error
		dir, err = LogDir()
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	name := time.Now().Format("2006-01-02_15-04-05") + ".log"
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	sink := &FileSink{file: f, path: path}
	l.AddHook(sink)
	return sink, nil
}

// Path returns the log file path
func (s *FileSink) Path() string {
	return s.path
}

// Levels implements logrus.Hook
func (s *FileSink) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook
func (s *FileSink) Fire(entry *logrus.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}

	code, _ := entry.Data["code"].(string)
	if code == "" {
		code = "MAIN"
	}
	line := fmt.Sprintf("%s [%s] [%s] %s\n",
		entry.Time.Format("2006-01-02 15:04:05"), levelName(entry.Level), code, entry.Message)
	_, err := s.file.WriteString(line)
	return err
}

func levelName(level logrus.Level) string {
	if level == logrus.WarnLevel {
		return "WARN"
	}
	return strings.ToUpper(level.String())
}

// Finalize closes the log file and writes a sidecar file holding the hex
// SHA-256 of the log contents. Safe to call once; later calls are no-ops.
func (s *FileSink) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}

	if err := s.file.Close(); err != nil {
		return err
	}
	s.file = nil

	body, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read back log file: %w", err)
	}
	digest := sha256.Sum256(body)
	sidecar := s.path + ".hash"
	return os.WriteFile(sidecar, []byte(hex.EncodeToString(digest[:])+"\n"), 0600)
}

// EnableFileLogging attaches a run log file to the default logger
func EnableFileLogging(dir string) (string, error) {
	mu.Lock()
	defer mu.Unlock()
	sink, err := Attach(Default(), dir)
	if err != nil {
		return "", err
	}
	defaultSink = sink
	return sink.Path(), nil
}

// Finalize finishes the default logger's run log file, if one is attached
func Finalize() error {
	mu.Lock()
	defer mu.Unlock()
	if defaultSink == nil {
		return nil
	}
	err := defaultSink.Finalize()
	defaultSink = nil
	return err
}

// LogFile describes one run log on disk
type LogFile struct {
	Path    string
	Size    int64
	ModTime time.Time
	Hashed  bool
}

// List returns the run logs under dir, newest first
func List(dir string) ([]LogFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var logs []LogFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		_, hashErr := os.Stat(path + ".hash")
		logs = append(logs, LogFile{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Hashed:  hashErr == nil,
		})
	}

	sort.Slice(logs, func(i, j int) bool { return logs[i].ModTime.After(logs[j].ModTime) })
	return logs, nil
}

// Prune removes run logs (and their sidecars) older than retentionDays,
// then keeps removing oldest-first until the directory's log footprint is
// within retentionMegabytes. Returns the number of log files removed.
func Prune(dir string, retentionDays, retentionMegabytes int) (int, error) {
	logs, err := List(dir)
	if err != nil {
		return 0, err
	}
	if len(logs) == 0 {
		return 0, nil
	}

	removed := 0
	var kept []LogFile
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for _, lf := range logs {
		if retentionDays > 0 && lf.ModTime.Before(cutoff) {
			if err := removeWithSidecar(lf.Path); err != nil {
				return removed, err
			}
			removed++
			continue
		}
		kept = append(kept, lf)
	}

	if retentionMegabytes <= 0 {
		return removed, nil
	}

	var total int64
	for _, lf := range kept {
		total += lf.Size + sidecarSize(lf.Path)
	}

	limit := int64(retentionMegabytes) * 1024 * 1024
	// kept is newest first; trim from the tail
	for i := len(kept) - 1; i >= 0 && total > limit; i-- {
		lf := kept[i]
		side := sidecarSize(lf.Path)
		if err := removeWithSidecar(lf.Path); err != nil {
			return removed, err
		}
		total -= lf.Size + side
		removed++
	}

	return removed, nil
}

func removeWithSidecar(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(path + ".hash"); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func sidecarSize(path string) int64 {
	info, err := os.Stat(path + ".hash")
	if err != nil {
		return 0
	}
	return info.Size()
}
