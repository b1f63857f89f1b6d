// Package l2features owns Layer 2 (Features) of the video tracking data model.
//
// Responsibilities: selecting up to N strong, well-separated corners in the
// seed frame, optionally restricted to a caller-supplied region or a
// weighting mask.
// Key entry points: Detect, DetectWithOptions, CentreFocusMask.
//
// Dependency rule: L2 may depend on vision and L1 types, never on L3+.
package l2features
