// Package l3flow owns Layer 3 (Flow) of the vision data model.
//
// Responsibilities: Gaussian image pyramids and pyramidal Lucas-Kanade
// tracking of a point set from one frame to the next, dropping points
// that leave the frame or lose a confident match.
// Key types: Tracker, Config.
//
// Dependency rule: L3 may depend on the vision root package and L1-L2,
// but never on L4 or the session controller.
package l3flow
