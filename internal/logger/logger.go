// Package logger provides verbose logging for the scorpius indexing and
// retrieval pipeline. When verbose mode is enabled via the --verbose flag,
// debug messages are printed to stderr so operators can follow chunking,
// embedding and retrieval decisions. Warnings are always printed, since
// they report degraded behaviour (cache outages, failed synthesis) the
// operator should see.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs. Defaults to os.Stderr.
// Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// logf prints one tagged line. Callers hold no lock.
func logf(tag, format string, args []any) {
	fmt.Fprintf(output, "["+tag+"] "+format+"\n", args...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		logf("DEBUG", format, args)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		logf("INFO", format, args)
	}
}

// Warn prints a warning message regardless of verbose mode.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	logf("WARN", format, args)
}

// Section prints a section header if verbose mode is enabled. Used to
// delimit per-document pipeline runs in the output.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
