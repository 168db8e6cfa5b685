// Package debug provides the build-flag-gated diagnostic log used while
// bisecting roundtrip mismatches. It is disabled by default.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnableDebug can be overridden at build time:
//
//	go build -ldflags "-X github.com/rvltools/rkit/internal/debug.EnableDebug=true"
var EnableDebug = "false"

var (
	mu     sync.Mutex
	output io.Writer
	file   *os.File
)

// Enabled reports whether debug diagnostics are active.
func Enabled() bool {
	if EnableDebug == "true" {
		return true
	}
	mu.Lock()
	defer mu.Unlock()
	return output != nil
}

// SetOutput routes debug output to w. Pass nil to disable.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// InitLogFile routes debug output to a timestamped file under the system
// temp directory and returns its path. Call Close when done.
func InitLogFile() (string, error) {
	mu.Lock()
	defer mu.Unlock()

	dir := filepath.Join(os.TempDir(), "rkit-debug-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("debug-%s.log", time.Now().Format("2006-01-02T150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}
	file = f
	output = f
	return path, nil
}

// Close flushes and closes the debug log file, if one is open.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
		file = nil
	}
	output = nil
}

// Logf writes one categorized debug line. Category is a short domain tag
// such as "stream" or "bmd/shp1".
func Logf(category, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	w := output
	if w == nil {
		if EnableDebug != "true" {
			return
		}
		w = os.Stderr
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", time.Now().Format("15:04:05.000"), category, fmt.Sprintf(format, args...))
}
