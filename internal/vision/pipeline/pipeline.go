// Package pipeline composes the vision layers into one analysis run:
// frames are pulled from a source, the first frame seeds a tracking
// session, every later frame is tracked on the session worker, and the
// accumulated points are reduced to a barbell path.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/barpath/internal/timeutil"
	"github.com/banshee-data/barpath/internal/vision"
	"github.com/banshee-data/barpath/internal/vision/engine"
	"github.com/banshee-data/barpath/internal/vision/l1frames"
	"github.com/banshee-data/barpath/internal/vision/l2features"
	"github.com/banshee-data/barpath/internal/vision/l3flow"
	"github.com/banshee-data/barpath/internal/vision/l4path"
	"github.com/banshee-data/barpath/internal/vision/session"
)

// FrameError records a frame the tracker could not process.
type FrameError struct {
	Frame   int    `json:"frame"`
	Message string `json:"message"`
}

// FrameResult summarises the tracked points of one frame.
type FrameResult struct {
	Frame       int     `json:"frame"`
	TimestampMs float64 `json:"timestamp_ms"`
	Points      int     `json:"points"`
}

// Analysis is the outcome of one run.
type Analysis struct {
	RunID       string                `json:"run_id"`
	Source      string                `json:"source,omitempty"` // set by the caller
	Engine      string                `json:"engine"`
	Width       int                   `json:"width"`
	Height      int                   `json:"height"`
	TotalFrames int                   `json:"total_frames"`
	Frames      []FrameResult         `json:"frames"`
	Raw         []vision.TrackedPoint `json:"raw"`
	Path        []vision.PathPoint    `json:"path"`
	FrameErrors []FrameError          `json:"frame_errors,omitempty"`
	Warnings    []string              `json:"warnings,omitempty"`
	StartedAt   time.Time             `json:"started_at"`
	Duration    time.Duration         `json:"duration_ns"`
}

// SetLogWriters routes the ops, diag and trace streams of every vision
// layer. Nil writers disable a stream.
func SetLogWriters(w vision.LogWriters) {
	vision.SetLogWriters(w)
	l1frames.SetLogWriters(w.Ops, w.Diag, w.Trace)
	l2features.SetLogWriters(w.Diag, w.Trace)
	l3flow.SetLogWriters(w.Diag, w.Trace)
	l4path.SetLogWriters(w.Diag, w.Trace)
	session.SetLogWriters(w.Ops, w.Diag, w.Trace)
}

// Analyse runs src through extraction, tracking and path reconstruction.
// Analyse returns once every submitted frame has produced either a
// result or a frame error.
func Analyse(ctx context.Context, src l1frames.Source, cfg Config) (*Analysis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	eng, err := engine.New(cfg.Engine, cfg.EngineConfig)
	if err != nil {
		return nil, err
	}
	sessOpts := cfg.Session
	sessOpts.Engine = eng
	sess := session.New(sessOpts)

	a := &Analysis{
		RunID:     uuid.NewString(),
		Engine:    eng.Name(),
		StartedAt: clock.Now(),
	}
	col := newCollector()
	go col.run(sess.Results(), sess.Errors())
	defer func() {
		sess.Dispose()
		<-col.done
	}()

	extract := cfg.Extract
	userWarn := extract.OnWarning
	extract.OnWarning = func(w error) {
		a.Warnings = append(a.Warnings, w.Error())
		if userWarn != nil {
			userWarn(w)
		}
	}

	submitted := 0
	onFrame := func(f *vision.Frame, ts float64, idx, total int) error {
		if idx == 0 {
			a.Width, a.Height, a.TotalFrames = f.Width, f.Height, total
			col.seedTimestamp(ts)
			if err := sess.Initialize(ctx, f, cfg.Settings, cfg.Region); err != nil {
				return fmt.Errorf("initialize tracker: %w", err)
			}
			return nil
		}
		if err := sess.ProcessFrame(f, idx, ts); err != nil {
			return fmt.Errorf("submit frame %d: %w", idx, err)
		}
		submitted++
		return nil
	}
	if err := l1frames.Extract(ctx, src, onFrame, extract); err != nil {
		return nil, err
	}
	if a.TotalFrames == 0 {
		return nil, fmt.Errorf("pipeline: source produced no frames")
	}

	if err := col.wait(ctx, submitted); err != nil {
		return nil, err
	}
	sess.Dispose()
	<-col.done

	a.Frames, a.Raw, a.FrameErrors = col.snapshot()
	params := cfg.Path
	params.FrameWidth, params.FrameHeight = a.Width, a.Height
	a.Path = l4path.Reconstruct(a.Raw, params)
	a.Duration = clock.Since(a.StartedAt)

	vision.Diagf("run %s: %d frames, %d tracked, %d errors, %d path points in %v",
		a.RunID, len(a.Frames), len(a.Raw), len(a.FrameErrors), len(a.Path), a.Duration)
	for _, fe := range a.FrameErrors {
		vision.Opsf("run %s: frame %d: %s", a.RunID, fe.Frame, fe.Message)
	}
	return a, nil
}

// collector drains the session channels on its own goroutine.
type collector struct {
	mu      sync.Mutex
	seedTs  float64
	frames  []FrameResult
	raw     []vision.TrackedPoint
	errs    []FrameError
	handled int // non-seed results plus frame errors

	changed chan struct{}
	done    chan struct{}
}

func newCollector() *collector {
	return &collector{
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (c *collector) seedTimestamp(ts float64) {
	c.mu.Lock()
	c.seedTs = ts
	c.mu.Unlock()
}

func (c *collector) run(results <-chan session.Result, errs <-chan error) {
	defer close(c.done)
	for results != nil || errs != nil {
		select {
		case r, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			c.addResult(r)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.addError(err)
		}
	}
}

func (c *collector) addResult(r session.Result) {
	c.mu.Lock()
	ts := r.TimestampMs
	if r.Seed {
		ts = c.seedTs
	} else {
		c.handled++
	}
	c.frames = append(c.frames, FrameResult{Frame: r.Frame, TimestampMs: ts, Points: len(r.Points)})
	for _, p := range r.Points {
		p.Frame, p.TimestampMs = r.Frame, ts
		c.raw = append(c.raw, p)
	}
	c.mu.Unlock()
	c.notify()
}

func (c *collector) addError(err error) {
	var fe *vision.TrackingFrameError
	if !errors.As(err, &fe) {
		// Initialisation failures are returned by Initialize as well.
		return
	}
	c.mu.Lock()
	c.errs = append(c.errs, FrameError{Frame: fe.Frame, Message: fe.Err.Error()})
	c.handled++
	c.mu.Unlock()
	c.notify()
}

func (c *collector) notify() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

// wait blocks until n frames have been accounted for.
func (c *collector) wait(ctx context.Context, n int) error {
	for {
		c.mu.Lock()
		handled := c.handled
		c.mu.Unlock()
		if handled >= n {
			return nil
		}
		select {
		case <-c.changed:
		case <-c.done:
			return fmt.Errorf("pipeline: session closed with %d of %d frames outstanding", n-handled, n)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *collector) snapshot() ([]FrameResult, []vision.TrackedPoint, []FrameError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	frames := append([]FrameResult(nil), c.frames...)
	sort.SliceStable(frames, func(i, j int) bool { return frames[i].Frame < frames[j].Frame })
	return frames, append([]vision.TrackedPoint(nil), c.raw...), append([]FrameError(nil), c.errs...)
}
