// Package logger provides levelled logging for faersight.
// Warnings and errors always reach stderr. The --verbose flag adds debug and
// info messages so users can follow case selection, cache lookups and
// provider retries.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level orders log messages by severity.
type Level int

// Levels from most to least verbose.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelTags = [...]string{
	LevelDebug: "[DEBUG] ",
	LevelInfo:  "[INFO] ",
	LevelWarn:  "[WARN] ",
	LevelError: "[ERROR] ",
}

var (
	mu        sync.RWMutex
	threshold           = LevelWarn
	output    io.Writer = os.Stderr
)

// SetVerbose switches between debug output and warnings only.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	if v {
		threshold = LevelDebug
	} else {
		threshold = LevelWarn
	}
}

// IsVerbose returns true if debug messages are printed.
func IsVerbose() bool {
	return Enabled(LevelDebug)
}

// Enabled reports whether messages at level are printed.
func Enabled(level Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return level >= threshold
}

// SetOutput sets the output writer. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func logf(level Level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if level < threshold {
		return
	}
	fmt.Fprintf(output, levelTags[level]+format+"\n", args...)
}

// Debug prints a message in verbose mode.
func Debug(format string, args ...any) {
	logf(LevelDebug, format, args...)
}

// Section prints a section header in verbose mode.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if threshold <= LevelDebug {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message in verbose mode.
func Info(format string, args ...any) {
	logf(LevelInfo, format, args...)
}

// Warn prints a warning.
func Warn(format string, args ...any) {
	logf(LevelWarn, format, args...)
}

// Error prints an error.
func Error(format string, args ...any) {
	logf(LevelError, format, args...)
}
