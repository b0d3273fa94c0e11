// Package logger traces hask's pipelines on stderr.
//
// Each save, query and index rebuild opens a section naming its subject.
// Ingest runs then report every stage they reach, and queries report the
// refinement stages that fell back to a cheaper result. All of this is
// printed only with --verbose. Errors always print: a provider that breaks
// its contract must be visible without rerunning the command.
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

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects all log lines. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func printf(always bool, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if always || verbose {
		fmt.Fprintf(output, format, args...)
	}
}

// Section opens a pipeline run. subject is the URL, query or other input
// the run is about; an empty subject prints the name alone.
func Section(name, subject string) {
	if subject == "" {
		printf(false, "\n=== %s ===\n", name)
		return
	}
	printf(false, "\n=== %s: %s ===\n", name, subject)
}

// Stage records that an ingest run for url reached stage.
func Stage(stage fmt.Stringer, url string) {
	printf(false, "[STAGE] %-8s %s\n", stage, url)
}

// Degraded records a query refinement that fell back instead of failing.
func Degraded(step string, err error) {
	printf(false, "[DEGRADED] %s: %v\n", step, err)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	printf(false, "[DEBUG] "+format+"\n", args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	printf(false, "[INFO] "+format+"\n", args...)
}

// Warn prints a warning if verbose mode is enabled.
func Warn(format string, args ...any) {
	printf(false, "[WARN] "+format+"\n", args...)
}

// Error prints an error message regardless of verbosity.
func Error(format string, args ...any) {
	printf(true, "[ERROR] "+format+"\n", args...)
}
