package logger

import (
	"io"
	"log"
	"os"
	"sync/atomic"
)

// Log flags
const (
	LstdFlags     = log.LstdFlags
	Lmicroseconds = log.Lmicroseconds
)

// Logger wraps the standard log.Logger with optional debug output
type Logger struct {
	*log.Logger
	debug atomic.Bool
}

// New creates a new logger writing to stdout
func New() *Logger {
	return &Logger{
		Logger: log.New(os.Stdout, "", log.LstdFlags),
	}
}

// NewWriter creates a new logger that writes to the provided writer
func NewWriter(w io.Writer) *Logger {
	return &Logger{
		Logger: log.New(w, "", log.LstdFlags),
	}
}

// SetDebug toggles debug output
func (l *Logger) SetDebug(on bool) {
	l.debug.Store(on)
}

// Debugf logs a formatted message only when debug output is enabled
func (l *Logger) Debugf(format string, v ...any) {
	if l.debug.Load() {
		l.Printf("DEBUG "+format, v...)
	}
}

// SetFlags sets the output flags for the logger
func (l *Logger) SetFlags(flag int) {
	l.Logger.SetFlags(flag)
}
