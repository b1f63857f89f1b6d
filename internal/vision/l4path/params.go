package l4path

import (
	"fmt"

	"github.com/banshee-data/barpath/internal/config"
)

// Params holds the reconstruction heuristics.
type Params struct {
	SmallFrameMax   int     // Frames with at most this many points form one cluster
	ClusterDistance float64 // Join a cluster when closer than this to its centroid (px)
	MinClusterSize  int     // Smaller clusters are not scored

	WeightSize       float64
	WeightCentrality float64
	WeightVertical   float64
	WeightForeground float64

	JumpThreshold float64 // Moves longer than this are damped (px)
	JumpDamping   float64 // Fraction of a long move that is kept

	// FrameWidth and FrameHeight, when both positive, give the true frame
	// centre for the centrality score. Otherwise the centre is estimated
	// from the frame's points.
	FrameWidth  int
	FrameHeight int
}

// DefaultParams returns Params loaded from the canonical tuning defaults
// file (config/tuning.defaults.json).
// Panics if the file cannot be found; intended for tests.
func DefaultParams() Params {
	return ParamsFromTuning(config.MustLoadDefaultConfig())
}

// ParamsFromTuning builds Params from a loaded TuningConfig. Frame
// dimensions are left unset; the caller fills them when known.
func ParamsFromTuning(cfg *config.TuningConfig) Params {
	return Params{
		SmallFrameMax:    cfg.GetSmallFrameMax(),
		ClusterDistance:  cfg.GetClusterDistance(),
		MinClusterSize:   cfg.GetMinClusterSize(),
		WeightSize:       cfg.GetWeightSize(),
		WeightCentrality: cfg.GetWeightCentrality(),
		WeightVertical:   cfg.GetWeightVertical(),
		WeightForeground: cfg.GetWeightForeground(),
		JumpThreshold:    cfg.GetJumpThreshold(),
		JumpDamping:      cfg.GetJumpDamping(),
	}
}

// Validate checks the parameter invariants.
func (p Params) Validate() error {
	if p.SmallFrameMax < 0 || p.MinClusterSize < 1 {
		return fmt.Errorf("cluster sizes out of range: small_frame_max=%d min_cluster_size=%d",
			p.SmallFrameMax, p.MinClusterSize)
	}
	if p.ClusterDistance <= 0 {
		return fmt.Errorf("cluster distance must be positive, got %f", p.ClusterDistance)
	}
	if p.JumpThreshold < 0 || p.JumpDamping < 0 || p.JumpDamping > 1 {
		return fmt.Errorf("jump smoothing out of range: threshold=%f damping=%f", p.JumpThreshold, p.JumpDamping)
	}
	return nil
}

func (p Params) knownFrame() bool {
	return p.FrameWidth > 0 && p.FrameHeight > 0
}
