package l3flow

import (
	"fmt"

	"github.com/banshee-data/barpath/internal/config"
)

// Config holds the Lucas-Kanade parameters.
type Config struct {
	Levels            int     // Pyramid levels including the base image
	WindowSize        int     // Odd side length of the integration window
	MaxIterations     int     // Per-level iteration cap
	Epsilon           float64 // Stop when the update is smaller than this (px)
	MinEigenThreshold float64 // Minimum normalised eigenvalue of the gradient matrix
	MaxError          float64 // Maximum mean absolute patch residual (grey levels)
	EdgeMargin        float64 // Points closer than this to any border are dropped
}

// DefaultConfig returns tracker configuration loaded from the canonical
// tuning defaults file (config/tuning.defaults.json).
// Panics if the file cannot be found; intended for tests.
func DefaultConfig() Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Levels:            cfg.GetPyramidLevels(),
		WindowSize:        cfg.GetWindowSize(),
		MaxIterations:     cfg.GetMaxIterations(),
		Epsilon:           cfg.GetEpsilon(),
		MinEigenThreshold: cfg.GetMinEigenThreshold(),
		MaxError:          cfg.GetMaxError(),
		EdgeMargin:        cfg.GetEdgeMargin(),
	}
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if c.Levels < 1 {
		return fmt.Errorf("levels must be >= 1, got %d", c.Levels)
	}
	if c.WindowSize < 3 || c.WindowSize%2 == 0 {
		return fmt.Errorf("window size must be odd and >= 3, got %d", c.WindowSize)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be >= 1, got %d", c.MaxIterations)
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %f", c.Epsilon)
	}
	if c.MinEigenThreshold < 0 || c.MaxError < 0 || c.EdgeMargin < 0 {
		return fmt.Errorf("thresholds must be non-negative")
	}
	return nil
}
