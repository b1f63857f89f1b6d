package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tracker tuning
// parameters. Every field is optional; the Get* accessors supply the
// defaults for anything the JSON omits.
type TuningConfig struct {
	// Corner detector params
	MaxPoints    *int     `json:"max_points,omitempty"`
	QualityLevel *float64 `json:"quality_level,omitempty"`
	MinDistance  *float64 `json:"min_distance,omitempty"`
	BlockSize    *int     `json:"block_size,omitempty"`
	UseHarris    *bool    `json:"use_harris,omitempty"`
	HarrisK      *float64 `json:"harris_k,omitempty"`

	// Seeding params
	MinSeedPoints        *int     `json:"min_seed_points,omitempty"`
	LenientMaxPoints     *int     `json:"lenient_max_points,omitempty"`
	LenientQualityLevel  *float64 `json:"lenient_quality_level,omitempty"`
	LenientMinDistance   *float64 `json:"lenient_min_distance,omitempty"`
	RegionPadding        *float64 `json:"region_padding,omitempty"`
	CentreFocus          *bool    `json:"centre_focus,omitempty"`
	InitTimeout          *string  `json:"init_timeout,omitempty"` // duration string like "10s"
	Engine               *string  `json:"engine,omitempty"`
	SessionResultsBuffer *int     `json:"session_results_buffer,omitempty"`

	// Optical flow params
	PyramidLevels     *int     `json:"pyramid_levels,omitempty"`
	WindowSize        *int     `json:"window_size,omitempty"`
	MaxIterations     *int     `json:"max_iterations,omitempty"`
	Epsilon           *float64 `json:"epsilon,omitempty"`
	MinEigenThreshold *float64 `json:"min_eigen_threshold,omitempty"`
	MaxError          *float64 `json:"max_error,omitempty"`
	EdgeMargin        *float64 `json:"edge_margin,omitempty"`

	// Frame extraction params
	TargetFPS      *float64 `json:"target_fps,omitempty"`
	MaxWidth       *int     `json:"max_width,omitempty"`
	MaxHeight      *int     `json:"max_height,omitempty"`
	FallbackFrames *int     `json:"fallback_frames,omitempty"`
	FallbackStep   *string  `json:"fallback_step,omitempty"` // duration string like "100ms"

	// Path reconstruction params
	SmallFrameMax    *int     `json:"small_frame_max,omitempty"`
	ClusterDistance  *float64 `json:"cluster_distance,omitempty"`
	MinClusterSize   *int     `json:"min_cluster_size,omitempty"`
	WeightSize       *float64 `json:"weight_size,omitempty"`
	WeightCentrality *float64 `json:"weight_centrality,omitempty"`
	WeightVertical   *float64 `json:"weight_vertical,omitempty"`
	WeightForeground *float64 `json:"weight_foreground,omitempty"`
	JumpThreshold    *float64 `json:"jump_threshold,omitempty"`
	JumpDamping      *float64 `json:"jump_damping,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the JSON file fall back to the Get* defaults, so partial configs
// are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,          // from internal/config/
		"../../../" + DefaultConfigPath,       // from internal/vision/l3flow/
		"../../../../" + DefaultConfigPath,    // from internal/vision/storage/sqlite/
		"../../../../../" + DefaultConfigPath, // even deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.MaxPoints != nil && *c.MaxPoints <= 0 {
		return fmt.Errorf("max_points must be positive, got %d", *c.MaxPoints)
	}
	if c.QualityLevel != nil && (*c.QualityLevel <= 0 || *c.QualityLevel > 1) {
		return fmt.Errorf("quality_level must be in (0,1], got %f", *c.QualityLevel)
	}
	if c.MinDistance != nil && *c.MinDistance <= 0 {
		return fmt.Errorf("min_distance must be positive, got %f", *c.MinDistance)
	}
	if c.BlockSize != nil && (*c.BlockSize < 3 || *c.BlockSize%2 == 0) {
		return fmt.Errorf("block_size must be odd and >= 3, got %d", *c.BlockSize)
	}
	if c.LenientQualityLevel != nil && (*c.LenientQualityLevel <= 0 || *c.LenientQualityLevel > 1) {
		return fmt.Errorf("lenient_quality_level must be in (0,1], got %f", *c.LenientQualityLevel)
	}
	if c.WindowSize != nil && (*c.WindowSize < 3 || *c.WindowSize%2 == 0) {
		return fmt.Errorf("window_size must be odd and >= 3, got %d", *c.WindowSize)
	}
	if c.PyramidLevels != nil && (*c.PyramidLevels < 1 || *c.PyramidLevels > 8) {
		return fmt.Errorf("pyramid_levels must be between 1 and 8, got %d", *c.PyramidLevels)
	}
	if c.TargetFPS != nil && *c.TargetFPS <= 0 {
		return fmt.Errorf("target_fps must be positive, got %f", *c.TargetFPS)
	}
	if c.JumpDamping != nil && (*c.JumpDamping < 0 || *c.JumpDamping > 1) {
		return fmt.Errorf("jump_damping must be between 0 and 1, got %f", *c.JumpDamping)
	}

	for name, v := range map[string]*string{
		"init_timeout":  c.InitTimeout,
		"fallback_step": c.FallbackStep,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, *v)
		}
	}
	return nil
}

// GetMaxPoints returns the max_points value or the default.
func (c *TuningConfig) GetMaxPoints() int {
	if c.MaxPoints == nil {
		return 50
	}
	return *c.MaxPoints
}

// GetQualityLevel returns the quality_level value or the default.
func (c *TuningConfig) GetQualityLevel() float64 {
	if c.QualityLevel == nil {
		return 0.01
	}
	return *c.QualityLevel
}

// GetMinDistance returns the min_distance value or the default.
func (c *TuningConfig) GetMinDistance() float64 {
	if c.MinDistance == nil {
		return 10
	}
	return *c.MinDistance
}

// GetBlockSize returns the block_size value or the default.
func (c *TuningConfig) GetBlockSize() int {
	if c.BlockSize == nil {
		return 3
	}
	return *c.BlockSize
}

// GetUseHarris returns the use_harris value or the default.
func (c *TuningConfig) GetUseHarris() bool {
	if c.UseHarris == nil {
		return false
	}
	return *c.UseHarris
}

// GetHarrisK returns the harris_k value or the default.
func (c *TuningConfig) GetHarrisK() float64 {
	if c.HarrisK == nil {
		return 0.04
	}
	return *c.HarrisK
}

// GetMinSeedPoints returns the min_seed_points value or the default.
func (c *TuningConfig) GetMinSeedPoints() int {
	if c.MinSeedPoints == nil {
		return 5
	}
	return *c.MinSeedPoints
}

// GetLenientMaxPoints returns the lenient_max_points value or the default.
func (c *TuningConfig) GetLenientMaxPoints() int {
	if c.LenientMaxPoints == nil {
		return 100
	}
	return *c.LenientMaxPoints
}

// GetLenientQualityLevel returns the lenient_quality_level value or the default.
func (c *TuningConfig) GetLenientQualityLevel() float64 {
	if c.LenientQualityLevel == nil {
		return 0.005
	}
	return *c.LenientQualityLevel
}

// GetLenientMinDistance returns the lenient_min_distance value or the default.
func (c *TuningConfig) GetLenientMinDistance() float64 {
	if c.LenientMinDistance == nil {
		return 5
	}
	return *c.LenientMinDistance
}

// GetRegionPadding returns the region_padding value or the default.
func (c *TuningConfig) GetRegionPadding() float64 {
	if c.RegionPadding == nil {
		return 20
	}
	return *c.RegionPadding
}

// GetCentreFocus returns the centre_focus value or the default.
func (c *TuningConfig) GetCentreFocus() bool {
	if c.CentreFocus == nil {
		return false
	}
	return *c.CentreFocus
}

// GetInitTimeout parses and returns the InitTimeout as a time.Duration.
func (c *TuningConfig) GetInitTimeout() time.Duration {
	return parseDurationOr(c.InitTimeout, 10*time.Second)
}

// GetEngine returns the engine name or the default.
func (c *TuningConfig) GetEngine() string {
	if c.Engine == nil || *c.Engine == "" {
		return "native"
	}
	return *c.Engine
}

// GetSessionResultsBuffer returns the session_results_buffer value or the default.
func (c *TuningConfig) GetSessionResultsBuffer() int {
	if c.SessionResultsBuffer == nil {
		return 64
	}
	return *c.SessionResultsBuffer
}

// GetPyramidLevels returns the pyramid_levels value or the default.
func (c *TuningConfig) GetPyramidLevels() int {
	if c.PyramidLevels == nil {
		return 3
	}
	return *c.PyramidLevels
}

// GetWindowSize returns the window_size value or the default.
func (c *TuningConfig) GetWindowSize() int {
	if c.WindowSize == nil {
		return 15
	}
	return *c.WindowSize
}

// GetMaxIterations returns the max_iterations value or the default.
func (c *TuningConfig) GetMaxIterations() int {
	if c.MaxIterations == nil {
		return 20
	}
	return *c.MaxIterations
}

// GetEpsilon returns the epsilon value or the default.
func (c *TuningConfig) GetEpsilon() float64 {
	if c.Epsilon == nil {
		return 0.01
	}
	return *c.Epsilon
}

// GetMinEigenThreshold returns the min_eigen_threshold value or the default.
func (c *TuningConfig) GetMinEigenThreshold() float64 {
	if c.MinEigenThreshold == nil {
		return 1e-4
	}
	return *c.MinEigenThreshold
}

// GetMaxError returns the max_error value or the default.
func (c *TuningConfig) GetMaxError() float64 {
	if c.MaxError == nil {
		return 40
	}
	return *c.MaxError
}

// GetEdgeMargin returns the edge_margin value or the default.
func (c *TuningConfig) GetEdgeMargin() float64 {
	if c.EdgeMargin == nil {
		return 0
	}
	return *c.EdgeMargin
}

// GetTargetFPS returns the target_fps value or the default.
func (c *TuningConfig) GetTargetFPS() float64 {
	if c.TargetFPS == nil {
		return 15
	}
	return *c.TargetFPS
}

// GetMaxWidth returns the max_width value or the default.
func (c *TuningConfig) GetMaxWidth() int {
	if c.MaxWidth == nil {
		return 720
	}
	return *c.MaxWidth
}

// GetMaxHeight returns the max_height value or the default.
func (c *TuningConfig) GetMaxHeight() int {
	if c.MaxHeight == nil {
		return 540
	}
	return *c.MaxHeight
}

// GetFallbackFrames returns the fallback_frames value or the default.
func (c *TuningConfig) GetFallbackFrames() int {
	if c.FallbackFrames == nil {
		return 30
	}
	return *c.FallbackFrames
}

// GetFallbackStep parses and returns the FallbackStep as a time.Duration.
func (c *TuningConfig) GetFallbackStep() time.Duration {
	return parseDurationOr(c.FallbackStep, 100*time.Millisecond)
}

// GetSmallFrameMax returns the small_frame_max value or the default.
func (c *TuningConfig) GetSmallFrameMax() int {
	if c.SmallFrameMax == nil {
		return 5
	}
	return *c.SmallFrameMax
}

// GetClusterDistance returns the cluster_distance value or the default.
func (c *TuningConfig) GetClusterDistance() float64 {
	if c.ClusterDistance == nil {
		return 60
	}
	return *c.ClusterDistance
}

// GetMinClusterSize returns the min_cluster_size value or the default.
func (c *TuningConfig) GetMinClusterSize() int {
	if c.MinClusterSize == nil {
		return 3
	}
	return *c.MinClusterSize
}

// GetWeightSize returns the weight_size value or the default.
func (c *TuningConfig) GetWeightSize() float64 {
	if c.WeightSize == nil {
		return 0.3
	}
	return *c.WeightSize
}

// GetWeightCentrality returns the weight_centrality value or the default.
func (c *TuningConfig) GetWeightCentrality() float64 {
	if c.WeightCentrality == nil {
		return 0.3
	}
	return *c.WeightCentrality
}

// GetWeightVertical returns the weight_vertical value or the default.
func (c *TuningConfig) GetWeightVertical() float64 {
	if c.WeightVertical == nil {
		return 0.2
	}
	return *c.WeightVertical
}

// GetWeightForeground returns the weight_foreground value or the default.
func (c *TuningConfig) GetWeightForeground() float64 {
	if c.WeightForeground == nil {
		return 0.2
	}
	return *c.WeightForeground
}

// GetJumpThreshold returns the jump_threshold value or the default.
func (c *TuningConfig) GetJumpThreshold() float64 {
	if c.JumpThreshold == nil {
		return 150
	}
	return *c.JumpThreshold
}

// GetJumpDamping returns the jump_damping value or the default.
func (c *TuningConfig) GetJumpDamping() float64 {
	if c.JumpDamping == nil {
		return 0.7
	}
	return *c.JumpDamping
}

func parseDurationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def // default on parse error
	}
	return d
}
