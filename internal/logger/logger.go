package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Level names double as log file stems (info.log, warning.log, error.log).
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Levels lists every level that has its own log file.
var Levels = []string{LevelInfo, LevelWarning, LevelError}

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	logDir     string
	files      []*os.File
	mu         sync.Mutex
}

// NewLogger creates a Logger writing into logDir, creating the directory if needed.
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	l := &Logger{logDir: logDir}

	writers := make(map[string]io.Writer, len(Levels))
	for _, level := range Levels {
		file, err := os.OpenFile(l.FilePath(level), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("open log file %s: %w", level, err)
		}
		l.files = append(l.files, file)
		writers[level] = file
	}

	l.setupLoggers(
		io.MultiWriter(os.Stdout, writers[LevelInfo]),
		io.MultiWriter(os.Stdout, writers[LevelWarning]),
		io.MultiWriter(os.Stderr, writers[LevelError]),
	)
	return l, nil
}

// NewWriterLogger sends every level to w. Used by the CLI and in tests.
func NewWriterLogger(w io.Writer) *Logger {
	l := &Logger{}
	l.setupLoggers(w, w, w)
	return l
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return NewWriterLogger(io.Discard)
}

func (l *Logger) setupLoggers(info, warning, errw io.Writer) {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	l.infoLog = log.New(info, "INFO    ", flags)
	l.warningLog = log.New(warning, "WARNING ", flags)
	l.errorLog = log.New(errw, "ERROR   ", flags)
}

// FilePath returns the log file backing level.
func (l *Logger) FilePath(level string) string {
	return filepath.Join(l.logDir, level+".log")
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Output(2, fmt.Sprintf(format, v...))
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Output(2, fmt.Sprintf(format, v...))
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Output(2, fmt.Sprintf(format, v...))
}

// CleanLogs truncates the log file for level.
func (l *Logger) CleanLogs(level string) error {
	if l.logDir == "" {
		return fmt.Errorf("logger has no log directory")
	}
	if !validLevel(level) {
		return fmt.Errorf("unknown log level %q", level)
	}

	l.mu.Lock()
	err := os.Truncate(l.FilePath(level), 0)
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("truncate %s log: %w", level, err)
	}

	l.Info("Log file %s.log has been cleared", level)
	return nil
}

// Close releases the log files.
func (l *Logger) Close() error {
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}

// HasLevel reports whether level has its own log file.
func (l *Logger) HasLevel(level string) bool {
	return validLevel(level)
}

func validLevel(level string) bool {
	for _, known := range Levels {
		if level == known {
			return true
		}
	}
	return false
}
