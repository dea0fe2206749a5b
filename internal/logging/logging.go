// Package logging provides the engine's structured, level-gated logger.
// It mirrors the teacher's debug package: a mutex-guarded writer that
// can be swapped at runtime and silenced entirely when the boundary
// runs over a stdio transport that must not be polluted with log lines.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Level controls which subsystem lines are emitted.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	default:
		return LevelError
	}
}

var (
	mu        sync.Mutex
	out       io.Writer = os.Stderr
	level               = LevelInfo
	stdioMode           = false // suppressed entirely when true (boundary owns stdio)
)

// SetStdioMode suppresses all log output when the boundary is framing
// JSON-RPC over the same stdio streams; logs must never interleave with
// protocol bytes.
func SetStdioMode(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	stdioMode = enabled
}

// SetOutput redirects log output. Passing nil disables logging.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

func logf(l Level, subsystem, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if stdioMode || out == nil || l > level {
		return
	}
	log.New(out, "", log.LstdFlags).Printf("[%s] %s", subsystem, fmt.Sprintf(format, args...))
}

func Errorf(subsystem, format string, args ...any) { logf(LevelError, subsystem, format, args...) }
func Warnf(subsystem, format string, args ...any)  { logf(LevelWarn, subsystem, format, args...) }
func Infof(subsystem, format string, args ...any)  { logf(LevelInfo, subsystem, format, args...) }
func Debugf(subsystem, format string, args ...any) { logf(LevelDebug, subsystem, format, args...) }

// Subsystem tags used across the engine, so call sites read like
// logging.Infof(logging.Compiler, "...") rather than scattering string
// literals.
const (
	Parser      = "parser"
	Compiler    = "compiler"
	Workspace   = "workspace"
	Diagnostics = "diagnostics"
	Coordinator = "coordinator"
	Symbols     = "symbols"
	Status      = "status"
	Boundary    = "boundary"
	Config      = "config"
)
