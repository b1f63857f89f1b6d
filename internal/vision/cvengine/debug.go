package cvengine

import (
	"io"
	"log"
)

var traceLogger *log.Logger

// SetLogWriters configures the OpenCV backend's trace stream. Pass nil
// to disable it.
func SetLogWriters(trace io.Writer) {
	if trace == nil {
		traceLogger = nil
		return
	}
	traceLogger = log.New(trace, "[cvengine] ", log.LstdFlags|log.Lmicroseconds)
}

// tracef logs to the trace stream (per-frame decode telemetry).
func tracef(format string, args ...interface{}) {
	if traceLogger != nil {
		traceLogger.Printf(format, args...)
	}
}
