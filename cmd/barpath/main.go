// Command barpath tracks a barbell through a lift and reconstructs its
// path. Input is a directory of frame images, a video file (gocv builds)
// or a built-in synthetic clip. The path can be written as JSON, stored
// in SQLite and rendered as a plot or chart page.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/banshee-data/barpath/internal/config"
	"github.com/banshee-data/barpath/internal/fsutil"
	"github.com/banshee-data/barpath/internal/version"
	"github.com/banshee-data/barpath/internal/vision"
	"github.com/banshee-data/barpath/internal/vision/l1frames"
	"github.com/banshee-data/barpath/internal/vision/monitor"
	"github.com/banshee-data/barpath/internal/vision/pipeline"
	"github.com/banshee-data/barpath/internal/vision/storage/sqlite"
	"github.com/banshee-data/barpath/internal/vision/synth"
)

func main() {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "barpath: %v\n", err)
		os.Exit(2)
	}
	if o.version {
		fmt.Println(version.String("barpath"))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, fsutil.OSFileSystem{}, os.Stdout, os.Stderr); err != nil {
		log.Fatalf("barpath: %v", err)
	}
}

// run analyses the selected input and writes the requested artefacts. JSON
// and chart output go through fsys; the plot and database need real paths.
func run(ctx context.Context, o *options, fsys fsutil.FileSystem, stdout, stderr io.Writer) error {
	setLogging(o, stderr)

	tuning, err := loadTuning(o)
	if err != nil {
		return err
	}
	cfg := pipeline.ConfigFromTuning(tuning)
	cfg.Region = o.region

	src, label, closeSrc, err := openSource(o)
	if err != nil {
		return err
	}
	defer closeSrc()

	a, err := pipeline.Analyse(ctx, src, cfg)
	if err != nil {
		return fmt.Errorf("analyse %s: %w", label, err)
	}
	a.Source = label

	if err := writeOutputs(ctx, o, a, fsys, stdout); err != nil {
		return err
	}
	if o.outPath != "-" {
		fmt.Fprintf(stdout, "run %s: %s, %d frames, %d path points, %d frame errors, %v\n",
			a.RunID, label, len(a.Frames), len(a.Path), len(a.FrameErrors), a.Duration)
	}
	return nil
}

func setLogging(o *options, stderr io.Writer) {
	stream := func(on bool) io.Writer {
		if on {
			return stderr
		}
		return nil
	}
	w := vision.LogWriters{Ops: stream(o.logOps), Diag: stream(o.logDiag), Trace: stream(o.logTrace)}
	pipeline.SetLogWriters(w)
	sqlite.SetLogWriters(w.Ops, w.Diag)
	setVideoLogWriters(w.Trace)
}

// loadTuning reads -config, or starts from built-in defaults, and applies
// the command-line overrides.
func loadTuning(o *options) (*config.TuningConfig, error) {
	tuning := config.EmptyTuningConfig()
	if o.configPath != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(o.configPath); err != nil {
			return nil, err
		}
	}
	if o.engine != "" {
		tuning.Engine = &o.engine
	}
	if o.maxPoints != 0 {
		tuning.MaxPoints = &o.maxPoints
	}
	if o.quality != 0 {
		tuning.QualityLevel = &o.quality
	}
	if o.minDistance != 0 {
		tuning.MinDistance = &o.minDistance
	}
	if err := tuning.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}
	return tuning, nil
}

func openSource(o *options) (l1frames.Source, string, func(), error) {
	nop := func() {}
	switch {
	case o.demo:
		src, err := synth.NewSource(synth.DemoScene())
		return src, "demo", nop, err
	case o.framesDir != "":
		src, err := l1frames.NewImageSequence(o.framesDir, o.fps)
		return src, o.framesDir, nop, err
	default:
		src, closeFn, err := openVideo(o.videoPath)
		return src, o.videoPath, closeFn, err
	}
}

func writeOutputs(ctx context.Context, o *options, a *pipeline.Analysis, fsys fsutil.FileSystem, stdout io.Writer) error {
	if o.outPath != "" {
		if err := writeJSON(fsys, o.outPath, a, stdout); err != nil {
			return err
		}
	}
	for _, p := range []string{o.dbPath, o.plotPath} {
		if p != "" {
			if err := fsys.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				return fmt.Errorf("create directory for %s: %w", p, err)
			}
		}
	}
	if o.dbPath != "" {
		db, err := sqlite.Open(o.dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := sqlite.NewRunStore(db).Insert(ctx, a); err != nil {
			return fmt.Errorf("store run: %w", err)
		}
	}
	if o.plotPath != "" {
		if err := monitor.PlotPath(a, o.plotPath); err != nil {
			return err
		}
	}
	if o.chartPath != "" {
		f, err := fsutil.CreateAll(fsys, o.chartPath)
		if err != nil {
			return err
		}
		if err := monitor.RenderChart(f, a); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close chart: %w", err)
		}
	}
	return nil
}

func writeJSON(fsys fsutil.FileSystem, path string, a *pipeline.Analysis, stdout io.Writer) error {
	if path == "-" {
		return encodeAnalysis(stdout, a)
	}
	f, err := fsutil.CreateAll(fsys, path)
	if err != nil {
		return err
	}
	if err := encodeAnalysis(f, a); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func encodeAnalysis(w io.Writer, a *pipeline.Analysis) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("write analysis: %w", err)
	}
	return nil
}
