// Package vision holds the shared data model of the barbell tracker.
//
// Responsibilities: raster frames, tracked points, reconstructed path
// points, detector settings, the error taxonomy, and the ops/diag/trace
// log streams used by every layer.
//
// Layer packages build on these types in order:
//
//	l1frames   frame extraction from a seekable source
//	l2features corner detection on the seed frame
//	l3flow     pyramidal Lucas-Kanade frame-to-frame tracking
//	l4path     per-frame clustering and path smoothing
//
// Dependency rule: vision depends on no other package in this module.
package vision
