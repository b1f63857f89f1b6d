package vision

import (
	"io"
	"log"
	"sync"
)

// LogWriters selects where each log stream goes. A nil writer silences
// that stream. The layer packages keep their own loggers;
// pipeline.SetLogWriters routes all of them from one value.
type LogWriters struct {
	Ops   io.Writer // failed initialisation, frame errors, unusable durations
	Diag  io.Writer // one line per run or session transition
	Trace io.Writer // per-frame and per-point detail
}

type stream int

const (
	opsStream stream = iota
	diagStream
	traceStream
	numStreams
)

const logPrefix = "[vision] "

var (
	mu      sync.RWMutex
	loggers [numStreams]*log.Logger
)

// SetLogWriters replaces all three streams at once.
func SetLogWriters(w LogWriters) {
	next := [numStreams]*log.Logger{
		opsStream:   newLogger(w.Ops),
		diagStream:  newLogger(w.Diag),
		traceStream: newLogger(w.Trace),
	}
	mu.Lock()
	loggers = next
	mu.Unlock()
}

func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, logPrefix, log.LstdFlags|log.Lmicroseconds)
}

func logf(s stream, format string, args ...interface{}) {
	mu.RLock()
	l := loggers[s]
	mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Opsf logs something an operator should act on.
func Opsf(format string, args ...interface{}) { logf(opsStream, format, args...) }

// Diagf logs run-level diagnostics.
func Diagf(format string, args ...interface{}) { logf(diagStream, format, args...) }

// Tracef logs per-frame telemetry.
func Tracef(format string, args ...interface{}) { logf(traceStream, format, args...) }
