// Package logging provides prefixed loggers for the keymap engine's
// subsystems, one per component, in the same style as every other ambient
// concern in this codebase: stdlib only, no structured-logging library.
//
// Ported from pkg/lualib/log.go's prefix convention (one *log.Logger per
// named source, "[INFO]"/"[WARN]"/"[ERROR]"/"[DEBUG]" level tags), minus
// the Lua-module-table wrapping, which has no equivalent outside a Lua VM.
package logging

import (
	"log"
	"os"
)

// Logger wraps a stdlib *log.Logger with level-tagged helpers.
type Logger struct {
	l *log.Logger
}

// New returns a Logger that writes to stderr with the given component
// prefix, e.g. New("engine") logs lines like
// "[engine] 2006/01/02 15:04:05 [INFO] tick 42".
func New(component string) *Logger {
	return &Logger{l: log.New(os.Stderr, "["+component+"] ", log.LstdFlags)}
}

// NewWithOutput is New with an explicit output writer, for tests and
// replay tooling that want to capture log lines.
func NewWithOutput(component string, out *os.File) *Logger {
	return &Logger{l: log.New(out, "["+component+"] ", log.LstdFlags)}
}

func (lg *Logger) Info(args ...any)  { lg.l.Println(append([]any{"[INFO]"}, args...)...) }
func (lg *Logger) Warn(args ...any)  { lg.l.Println(append([]any{"[WARN]"}, args...)...) }
func (lg *Logger) Error(args ...any) { lg.l.Println(append([]any{"[ERROR]"}, args...)...) }
func (lg *Logger) Debug(args ...any) { lg.l.Println(append([]any{"[DEBUG]"}, args...)...) }

func (lg *Logger) Infof(format string, args ...any)  { lg.l.Printf("[INFO] "+format, args...) }
func (lg *Logger) Warnf(format string, args ...any)  { lg.l.Printf("[WARN] "+format, args...) }
func (lg *Logger) Errorf(format string, args ...any) { lg.l.Printf("[ERROR] "+format, args...) }
func (lg *Logger) Debugf(format string, args ...any) { lg.l.Printf("[DEBUG] "+format, args...) }
