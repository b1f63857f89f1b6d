package session

import (
	"time"

	"github.com/banshee-data/barpath/internal/config"
	"github.com/banshee-data/barpath/internal/timeutil"
	"github.com/banshee-data/barpath/internal/vision"
	"github.com/banshee-data/barpath/internal/vision/engine"
)

// Options configures a Session.
type Options struct {
	// Engine runs on the worker goroutine. The session owns it and closes
	// it when the worker exits.
	Engine engine.Engine

	Clock       timeutil.Clock // defaults to timeutil.RealClock
	InitTimeout time.Duration  // bounded wait for worker readiness

	// MinSeedPoints triggers one retry with LenientSettings when the first
	// detection finds fewer corners. A nil LenientSettings disables it.
	MinSeedPoints   int
	LenientSettings *vision.Settings

	// RegionPadding grows a caller-supplied seed region on every side.
	RegionPadding float64
	// CentreFocus weights seeding toward the frame centre when no region
	// is supplied.
	CentreFocus bool

	// Buffer is the capacity of the Results and Errors channels.
	Buffer int
}

// OptionsFromTuning builds Options from a loaded TuningConfig.
func OptionsFromTuning(cfg *config.TuningConfig, e engine.Engine) Options {
	lenient := vision.Settings{
		MaxPoints:    cfg.GetLenientMaxPoints(),
		QualityLevel: cfg.GetLenientQualityLevel(),
		MinDistance:  cfg.GetLenientMinDistance(),
		BlockSize:    cfg.GetBlockSize(),
		UseHarris:    cfg.GetUseHarris(),
		HarrisK:      cfg.GetHarrisK(),
	}
	return Options{
		Engine:          e,
		Clock:           timeutil.RealClock{},
		InitTimeout:     cfg.GetInitTimeout(),
		MinSeedPoints:   cfg.GetMinSeedPoints(),
		LenientSettings: &lenient,
		RegionPadding:   cfg.GetRegionPadding(),
		CentreFocus:     cfg.GetCentreFocus(),
		Buffer:          cfg.GetSessionResultsBuffer(),
	}
}

// SettingsFromTuning builds the detector settings from a loaded
// TuningConfig.
func SettingsFromTuning(cfg *config.TuningConfig) vision.Settings {
	return vision.Settings{
		MaxPoints:    cfg.GetMaxPoints(),
		QualityLevel: cfg.GetQualityLevel(),
		MinDistance:  cfg.GetMinDistance(),
		BlockSize:    cfg.GetBlockSize(),
		UseHarris:    cfg.GetUseHarris(),
		HarrisK:      cfg.GetHarrisK(),
	}
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = timeutil.RealClock{}
	}
	if o.InitTimeout <= 0 {
		o.InitTimeout = 10 * time.Second
	}
	if o.Buffer < 0 {
		o.Buffer = 0
	}
	return o
}
