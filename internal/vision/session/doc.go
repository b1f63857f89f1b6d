// Package session owns the tracking session controller: the lifecycle
// state machine, the single worker goroutine that runs the engine, and
// the result and error channels callers read from.
//
// Frames cross into the worker as deep copies, so callers may reuse
// their buffers as soon as ProcessFrame returns. Results are delivered
// in submission order. Anything computed after Dispose is discarded.
package session
