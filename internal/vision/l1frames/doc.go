// Package l1frames owns Layer 1 (Frames) of the vision data model.
//
// Responsibilities: pulling a deterministic, rate-limited sequence of
// frames from a seekable source, normalising resolution so every frame
// of a run has the same dimensions, and tolerating sources whose
// duration is missing or invalid.
// Key types: Source, Options, ImageSequence.
//
// Dependency rule: L1 may depend on the vision root package only.
package l1frames
