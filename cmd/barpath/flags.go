package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/barpath/internal/vision"
)

type options struct {
	framesDir string
	fps       float64
	videoPath string
	demo      bool

	configPath  string
	engine      string
	maxPoints   int
	quality     float64
	minDistance float64
	region      *vision.Rect

	outPath   string
	dbPath    string
	plotPath  string
	chartPath string

	logOps   bool
	logDiag  bool
	logTrace bool

	version bool
}

var errInputRequired = errors.New("exactly one of -frames, -video or -demo is required")

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	var region string

	fs := flag.NewFlagSet("barpath", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.framesDir, "frames", "", "Directory of numbered frame images (png, jpg, bmp, tiff, webp)")
	fs.Float64Var(&o.fps, "fps", 0, "Frame rate of -frames images (0 = unknown, fall back to fixed steps)")
	fs.StringVar(&o.videoPath, "video", "", "Video file to analyse (requires a gocv build)")
	fs.BoolVar(&o.demo, "demo", false, "Analyse a synthetic moving-square clip")
	fs.StringVar(&o.configPath, "config", "", "Tuning config JSON (defaults apply to omitted keys)")
	fs.StringVar(&o.engine, "engine", "", "Tracking engine (overrides config)")
	fs.IntVar(&o.maxPoints, "max-points", 0, "Max corners to seed (0 = config)")
	fs.Float64Var(&o.quality, "quality", 0, "Corner quality level in (0,1] (0 = config)")
	fs.Float64Var(&o.minDistance, "min-distance", 0, "Min corner separation in px (0 = config)")
	fs.StringVar(&region, "region", "", "Seed region x,y,w,h in output-frame pixels")
	fs.StringVar(&o.outPath, "out", "", "Write the analysis as JSON to this file ('-' for stdout)")
	fs.StringVar(&o.dbPath, "db", "", "Store the run in this SQLite database")
	fs.StringVar(&o.plotPath, "plot", "", "Save a path plot (png, svg or pdf)")
	fs.StringVar(&o.chartPath, "chart", "", "Save an HTML chart page")
	fs.BoolVar(&o.logOps, "log-ops", true, "Log actionable warnings and errors to stderr")
	fs.BoolVar(&o.logDiag, "log-diag", false, "Log per-run diagnostics to stderr")
	fs.BoolVar(&o.logTrace, "log-trace", false, "Log per-frame telemetry to stderr")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if o.version {
		return o, nil
	}

	inputs := 0
	for _, set := range []bool{o.framesDir != "", o.videoPath != "", o.demo} {
		if set {
			inputs++
		}
	}
	if inputs != 1 {
		return nil, errInputRequired
	}
	if o.fps < 0 {
		return nil, fmt.Errorf("-fps must not be negative, got %v", o.fps)
	}
	if region != "" {
		r, err := parseRegion(region)
		if err != nil {
			return nil, err
		}
		o.region = r
	}
	return o, nil
}

// parseRegion parses "x,y,w,h".
func parseRegion(s string) (*vision.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid region %q: want x,y,w,h", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid region value '%s': %w", p, err)
		}
		v[i] = f
	}
	r := &vision.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if r.Empty() {
		return nil, fmt.Errorf("invalid region %q: width and height must be positive", s)
	}
	return r, nil
}
