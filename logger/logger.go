// Package logger owns the process-wide structured logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/zhubert/gitcore/paths"
)

var (
	root     *slog.Logger
	levelVar = new(slog.LevelVar)
	logFile  *os.File
	mu       sync.Mutex
	logPath  string
	initDone bool
)

// DefaultLogPath returns the default log file path.
func DefaultLogPath() (string, error) {
	dir, err := paths.LogsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "gitcore.log"), nil
}

// SetDebug enables or disables debug level logging
func SetDebug(enabled bool) {
	if enabled {
		levelVar.Set(slog.LevelDebug)
	} else {
		levelVar.Set(slog.LevelInfo)
	}
}

// Rotation limits. A log past maxLogBytes is moved aside when the logger
// opens it; only the newest keepRotated copies are kept.
var (
	maxLogBytes int64 = 10 << 20
	keepRotated       = 3
)

// rotatedPattern matches the rotated copies of path: gitcore.log rotates to
// gitcore-20240102-150405.log.
func rotatedPattern(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(filepath.Dir(path), stem+"-*"+filepath.Ext(path))
}

// rotate moves path aside when it has outgrown maxLogBytes and prunes the
// oldest rotated copies. Timestamped names sort chronologically.
func rotate(path string, now time.Time) error {
	info, err := os.Stat(path)
	if err != nil || info.Size() < maxLogBytes {
		return nil
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	aside := filepath.Join(filepath.Dir(path), stem+"-"+now.Format("20060102-150405")+filepath.Ext(path))
	if err := os.Rename(path, aside); err != nil {
		return fmt.Errorf("rotating %s: %w", path, err)
	}

	rotated, err := filepath.Glob(rotatedPattern(path))
	if err != nil {
		return err
	}
	slices.Sort(rotated)
	for len(rotated) > keepRotated {
		if err := os.Remove(rotated[0]); err != nil && !os.IsNotExist(err) {
			return err
		}
		rotated = rotated[1:]
	}
	return nil
}

// openLocked opens path for appending and installs a text handler on it,
// rotating an oversized file first. Caller must hold mu.
func openLocked(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	if err := rotate(path, time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	logPath = path
	logFile = f
	root = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: levelVar}))
	initDone = true

	root.Info("logger initialized", "path", path)
	return nil
}

// Init initializes the logger with a custom path. Must be called before logging.
// If not called, the default path will be used on first log call.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if initDone {
		return nil
	}
	return openLocked(path)
}

// InitWriter sends log output to w instead of a file. The CLI uses this for
// --log-stderr.
func InitWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if initDone {
		return
	}
	root = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelVar}))
	initDone = true
}

// ensureInit initializes the logger with default settings if not already initialized.
// Caller must hold mu.
func ensureInit() {
	if initDone {
		return
	}

	defaultPath, err := DefaultLogPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to get default log path: %v\n", err)
		return
	}
	if err := openLocked(defaultPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// Get returns the root logger instance.
func Get() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	ensureInit()

	if root == nil {
		return slog.Default()
	}
	return root
}

// WithWorkspace returns a logger with the workspace ID attached.
//
//	log := logger.WithWorkspace(id)
//	log.Info("root resolved", "root", root)
//	// Output: level=INFO msg="root resolved" workspace=abc root=/path
func WithWorkspace(workspaceID string) *slog.Logger {
	return Get().With("workspace", workspaceID)
}

// WithComponent returns a logger with the component name attached.
//
//	log := logger.WithComponent("git")
//	log.Info("commit created", "sha", sha)
//	// Output: level=INFO msg="commit created" component=git sha=abc123
func WithComponent(component string) *slog.Logger {
	return Get().With("component", component)
}

// Path returns the file currently receiving log output, or "" when logging
// goes to a writer or is not yet initialized.
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}

// Close closes the log file
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	root = nil
}

// Reset resets the logger state, allowing reinitialization.
// This is primarily for testing purposes.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	initDone = false
	logPath = ""
	root = nil
	levelVar = new(slog.LevelVar)
}

// ClearLogs removes gitcore log files from the logs directory, including
// rotated copies named gitcore-*.log.
func ClearLogs() (int, error) {
	defaultPath, err := DefaultLogPath()
	if err != nil {
		return 0, fmt.Errorf("failed to get default log path: %w", err)
	}

	rotated, err := filepath.Glob(rotatedPattern(defaultPath))
	if err != nil {
		return 0, err
	}

	count := 0
	for _, p := range append([]string{defaultPath}, rotated...) {
		if err := os.Remove(p); err == nil {
			count++
		} else if !os.IsNotExist(err) {
			return count, err
		}
	}
	return count, nil
}
