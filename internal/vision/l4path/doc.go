// Package l4path owns Layer 4 (Path) of the vision data model.
//
// Responsibilities: grouping each frame's tracked points into spatial
// clusters, scoring clusters for how barbell-like they look, choosing one
// representative point per frame and damping implausible jumps.
// Key types: Params, Cluster.
//
// The weights and thresholds in Params are tunable heuristics, not
// physical invariants.
//
// Dependency rule: L4 may depend on the vision root package only. It
// never sees frames, only points.
package l4path
