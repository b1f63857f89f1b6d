// Package sqlite persists analysis runs: one summary row per run plus the
// reconstructed path and the raw tracked points. The schema is managed by
// embedded golang-migrate migrations applied on Open.
//
// Storage is a caller-side concern; nothing under internal/vision outside
// this package knows about it.
package sqlite
