// Package logging provides the leveled line logger for rtcheck.
// Entries go to the global log file (<log_dir>/rtcheck.log) when a log
// directory is configured, otherwise to a writer such as stderr. The most
// recent entries are also kept in memory for the live monitor.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/runoshun/rtcheck/internal/domain"
)

// Ensure Logger implements domain.Logger interface.
var _ domain.Logger = (*Logger)(nil)

// DefaultHistory is how many recent entries are kept in memory.
const DefaultHistory = 64

// Logger writes formatted entries to a file or writer.
// Fields are ordered to minimize memory padding.
type Logger struct {
	out     io.Writer
	file    *os.File
	now     func() time.Time
	logDir  string
	recent  []string
	next    int
	mu      sync.Mutex
	level   slog.Level
	wrapped bool
}

// New creates a Logger. If logDir is set, entries are appended to the
// global log file in it; otherwise they go to w. A nil w with an empty
// logDir keeps entries in memory only.
func New(logDir string, level slog.Level, w io.Writer) *Logger {
	return &Logger{
		out:    w,
		logDir: logDir,
		level:  level,
		now:    time.Now,
		recent: make([]string, DefaultHistory),
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return New("", slog.LevelError+1, nil)
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Path returns the log file path, or "" when not logging to a file.
func (l *Logger) Path() string {
	if l.logDir == "" {
		return ""
	}
	return domain.GlobalLogPath(l.logDir)
}

// writerLocked opens the global log file on first use. l.mu must be held.
func (l *Logger) writerLocked() (io.Writer, error) {
	if l.logDir == "" {
		return l.out, nil
	}
	if l.file != nil {
		return l.file, nil
	}

	if err := os.MkdirAll(l.logDir, 0o750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	// G302: log files are append-only and readable by the owner's group
	f, err := os.OpenFile(domain.GlobalLogPath(l.logDir), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // Log file readable by owner and group
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	l.file = f
	return f, nil
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Recent returns up to n of the latest entries, oldest first, without
// trailing newlines.
func (l *Logger) Recent(n int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	size := l.next
	if l.wrapped {
		size = len(l.recent)
	}
	if n > size {
		n = size
	}
	out := make([]string, 0, n)
	for i := size - n; i < size; i++ {
		idx := i
		if l.wrapped {
			idx = (l.next + i) % len(l.recent)
		}
		out = append(out, l.recent[idx])
	}
	return out
}

// formatLog formats a log entry.
// Format: [2025-12-30 09:32:51] [INFO] [task-1] [category] message
func formatLog(t time.Time, level slog.Level, taskID int, category, msg string) string {
	taskStr := "global"
	if taskID > 0 {
		taskStr = fmt.Sprintf("task-%d", taskID)
	}
	return fmt.Sprintf("[%s] [%s] [%s] [%s] %s",
		t.Format("2006-01-02 15:04:05"),
		levelToString(level),
		taskStr,
		category,
		msg,
	)
}

func levelToString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (l *Logger) log(level slog.Level, taskID int, category, msg string) {
	if level < l.level {
		return
	}
	entry := formatLog(l.now(), level, taskID, category, msg)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.recent[l.next] = entry
	l.next++
	if l.next == len(l.recent) {
		l.next = 0
		l.wrapped = true
	}

	if w, err := l.writerLocked(); err == nil && w != nil {
		_, _ = io.WriteString(w, entry+"\n")
	}
}

// Info logs an info message.
func (l *Logger) Info(taskID int, category, msg string) {
	l.log(slog.LevelInfo, taskID, category, msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(taskID int, category, msg string) {
	l.log(slog.LevelDebug, taskID, category, msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(taskID int, category, msg string) {
	l.log(slog.LevelWarn, taskID, category, msg)
}

// Error logs an error message.
func (l *Logger) Error(taskID int, category, msg string) {
	l.log(slog.LevelError, taskID, category, msg)
}
