package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoadTuningConfig(t *testing.T) {
	path := writeConfig(t, "test_config.json", `{
  "max_points": 80,
  "quality_level": 0.02,
  "use_harris": true,
  "init_timeout": "3s",
  "fallback_step": "50ms",
  "cluster_distance": 45.5
}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.MaxPoints == nil || *cfg.MaxPoints != 80 {
		t.Errorf("Expected MaxPoints 80, got %v", cfg.MaxPoints)
	}
	if cfg.GetQualityLevel() != 0.02 {
		t.Errorf("GetQualityLevel() = %f, want 0.02", cfg.GetQualityLevel())
	}
	if !cfg.GetUseHarris() {
		t.Error("GetUseHarris() = false, want true")
	}
	if cfg.GetInitTimeout() != 3*time.Second {
		t.Errorf("GetInitTimeout() = %v, want 3s", cfg.GetInitTimeout())
	}
	if cfg.GetFallbackStep() != 50*time.Millisecond {
		t.Errorf("GetFallbackStep() = %v, want 50ms", cfg.GetFallbackStep())
	}
	if cfg.GetClusterDistance() != 45.5 {
		t.Errorf("GetClusterDistance() = %f, want 45.5", cfg.GetClusterDistance())
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	path := writeConfig(t, "invalid_config.json", `{
  "max_points": "many"
`)
	if _, err := LoadTuningConfig(path); err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr bool
	}{
		{"empty", `{}`, false},
		{"valid detector", `{"max_points": 10, "quality_level": 1, "min_distance": 0.5}`, false},
		{"zero max points", `{"max_points": 0}`, true},
		{"quality above one", `{"quality_level": 1.5}`, true},
		{"quality zero", `{"quality_level": 0}`, true},
		{"negative min distance", `{"min_distance": -1}`, true},
		{"even block size", `{"block_size": 4}`, true},
		{"even window", `{"window_size": 10}`, true},
		{"too many levels", `{"pyramid_levels": 12}`, true},
		{"zero fps", `{"target_fps": 0}`, true},
		{"damping above one", `{"jump_damping": 1.2}`, true},
		{"bad init timeout", `{"init_timeout": "soon"}`, true},
		{"negative fallback step", `{"fallback_step": "-10ms"}`, true},
		{"lenient quality zero", `{"lenient_quality_level": 0}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "cfg.json", tt.json)
			_, err := LoadTuningConfig(path)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadTuningConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg, err := LoadTuningConfig("../../config/tuning.defaults.json")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}

	empty := EmptyTuningConfig()
	// The canonical file and the Get* fallbacks must agree.
	checks := []struct {
		name      string
		got, want interface{}
	}{
		{"max_points", cfg.GetMaxPoints(), empty.GetMaxPoints()},
		{"quality_level", cfg.GetQualityLevel(), empty.GetQualityLevel()},
		{"min_distance", cfg.GetMinDistance(), empty.GetMinDistance()},
		{"block_size", cfg.GetBlockSize(), empty.GetBlockSize()},
		{"harris_k", cfg.GetHarrisK(), empty.GetHarrisK()},
		{"min_seed_points", cfg.GetMinSeedPoints(), empty.GetMinSeedPoints()},
		{"lenient_max_points", cfg.GetLenientMaxPoints(), empty.GetLenientMaxPoints()},
		{"lenient_quality_level", cfg.GetLenientQualityLevel(), empty.GetLenientQualityLevel()},
		{"lenient_min_distance", cfg.GetLenientMinDistance(), empty.GetLenientMinDistance()},
		{"region_padding", cfg.GetRegionPadding(), empty.GetRegionPadding()},
		{"centre_focus", cfg.GetCentreFocus(), empty.GetCentreFocus()},
		{"init_timeout", cfg.GetInitTimeout(), empty.GetInitTimeout()},
		{"engine", cfg.GetEngine(), empty.GetEngine()},
		{"session_results_buffer", cfg.GetSessionResultsBuffer(), empty.GetSessionResultsBuffer()},
		{"pyramid_levels", cfg.GetPyramidLevels(), empty.GetPyramidLevels()},
		{"window_size", cfg.GetWindowSize(), empty.GetWindowSize()},
		{"max_iterations", cfg.GetMaxIterations(), empty.GetMaxIterations()},
		{"epsilon", cfg.GetEpsilon(), empty.GetEpsilon()},
		{"min_eigen_threshold", cfg.GetMinEigenThreshold(), empty.GetMinEigenThreshold()},
		{"max_error", cfg.GetMaxError(), empty.GetMaxError()},
		{"edge_margin", cfg.GetEdgeMargin(), empty.GetEdgeMargin()},
		{"target_fps", cfg.GetTargetFPS(), empty.GetTargetFPS()},
		{"max_width", cfg.GetMaxWidth(), empty.GetMaxWidth()},
		{"max_height", cfg.GetMaxHeight(), empty.GetMaxHeight()},
		{"fallback_frames", cfg.GetFallbackFrames(), empty.GetFallbackFrames()},
		{"fallback_step", cfg.GetFallbackStep(), empty.GetFallbackStep()},
		{"small_frame_max", cfg.GetSmallFrameMax(), empty.GetSmallFrameMax()},
		{"cluster_distance", cfg.GetClusterDistance(), empty.GetClusterDistance()},
		{"min_cluster_size", cfg.GetMinClusterSize(), empty.GetMinClusterSize()},
		{"weight_size", cfg.GetWeightSize(), empty.GetWeightSize()},
		{"weight_centrality", cfg.GetWeightCentrality(), empty.GetWeightCentrality()},
		{"weight_vertical", cfg.GetWeightVertical(), empty.GetWeightVertical()},
		{"weight_foreground", cfg.GetWeightForeground(), empty.GetWeightForeground()},
		{"jump_threshold", cfg.GetJumpThreshold(), empty.GetJumpThreshold()},
		{"jump_damping", cfg.GetJumpDamping(), empty.GetJumpDamping()},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: defaults file has %v, getter default is %v", c.name, c.got, c.want)
		}
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.GetTargetFPS() != 15 {
		t.Errorf("GetTargetFPS() = %f, want 15", cfg.GetTargetFPS())
	}
}

func TestLoadTuningConfigPartial(t *testing.T) {
	path := writeConfig(t, "partial.json", `{
  "jump_threshold": 90
}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("Failed to load partial config: %v", err)
	}
	if cfg.GetJumpThreshold() != 90 {
		t.Errorf("Expected overridden JumpThreshold 90, got %f", cfg.GetJumpThreshold())
	}
	if cfg.GetJumpDamping() != 0.7 {
		t.Errorf("Expected default JumpDamping 0.7, got %f", cfg.GetJumpDamping())
	}
	if cfg.GetInitTimeout() != 10*time.Second {
		t.Errorf("Expected default InitTimeout 10s, got %v", cfg.GetInitTimeout())
	}
	if cfg.GetMaxWidth() != 720 || cfg.GetMaxHeight() != 540 {
		t.Errorf("Expected default 720x540, got %dx%d", cfg.GetMaxWidth(), cfg.GetMaxHeight())
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	if _, err := LoadTuningConfig("/some/path/config.yaml"); err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
	if _, err := LoadTuningConfig("../../etc/passwd"); err == nil {
		t.Error("Expected error for non-.json path, got nil")
	}
}

func TestLoadTuningConfigRejectsLargeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "large.json")
	if err := os.WriteFile(path, make([]byte, 2*1024*1024), 0644); err != nil {
		t.Fatalf("Failed to write large file: %v", err)
	}
	if _, err := LoadTuningConfig(path); err == nil {
		t.Error("Expected error for file size > 1MB, got nil")
	}
}

func TestGetDurationFallbacks(t *testing.T) {
	bad := "not-a-duration"
	empty := ""
	tests := []struct {
		name string
		cfg  *TuningConfig
		want time.Duration
	}{
		{"nil", &TuningConfig{}, 10 * time.Second},
		{"empty", &TuningConfig{InitTimeout: &empty}, 10 * time.Second},
		{"unparseable", &TuningConfig{InitTimeout: &bad}, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetInitTimeout(); got != tt.want {
				t.Errorf("GetInitTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
	if got := (&TuningConfig{FallbackStep: &bad}).GetFallbackStep(); got != 100*time.Millisecond {
		t.Errorf("GetFallbackStep() = %v, want 100ms", got)
	}
}

func TestGetEngineDefault(t *testing.T) {
	empty := ""
	if got := (&TuningConfig{Engine: &empty}).GetEngine(); got != "native" {
		t.Errorf("GetEngine() = %q, want native", got)
	}
	name := "opencv"
	if got := (&TuningConfig{Engine: &name}).GetEngine(); got != "opencv" {
		t.Errorf("GetEngine() = %q, want opencv", got)
	}
}
