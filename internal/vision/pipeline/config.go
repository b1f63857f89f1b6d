package pipeline

import (
	"fmt"

	"github.com/banshee-data/barpath/internal/config"
	"github.com/banshee-data/barpath/internal/timeutil"
	"github.com/banshee-data/barpath/internal/vision"
	"github.com/banshee-data/barpath/internal/vision/engine"
	"github.com/banshee-data/barpath/internal/vision/l1frames"
	"github.com/banshee-data/barpath/internal/vision/l3flow"
	"github.com/banshee-data/barpath/internal/vision/l4path"
	"github.com/banshee-data/barpath/internal/vision/session"
)

// Config bundles everything one analysis run needs.
type Config struct {
	Engine       string
	EngineConfig engine.Config

	Extract  l1frames.Options
	Settings vision.Settings
	Region   *vision.Rect // optional seed region in output-frame pixels

	// Session carries the session options. Its Engine field is ignored;
	// Analyse creates the engine named by Engine.
	Session session.Options

	// Path parameters. Frame dimensions are filled in by Analyse.
	Path l4path.Params

	Clock timeutil.Clock
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Engine:       cfg.GetEngine(),
		EngineConfig: engine.Config{Flow: l3flow.ConfigFromTuning(cfg)},
		Extract:      l1frames.OptionsFromTuning(cfg),
		Settings:     session.SettingsFromTuning(cfg),
		Session:      session.OptionsFromTuning(cfg, nil),
		Path:         l4path.ParamsFromTuning(cfg),
		Clock:        timeutil.RealClock{},
	}
}

// DefaultConfig returns a Config loaded from the canonical tuning
// defaults file (config/tuning.defaults.json).
// Panics if the file cannot be found; intended for tests.
func DefaultConfig() Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// Validate checks the parts of the configuration that are not checked
// by the components themselves.
func (c Config) Validate() error {
	if c.Engine == "" {
		return fmt.Errorf("pipeline: engine name is empty")
	}
	if err := c.Settings.Validate(); err != nil {
		return fmt.Errorf("pipeline: settings: %w", err)
	}
	if err := c.Path.Validate(); err != nil {
		return fmt.Errorf("pipeline: path: %w", err)
	}
	if c.Region != nil && c.Region.Empty() {
		return fmt.Errorf("pipeline: seed region %+v is empty", *c.Region)
	}
	return nil
}
