package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/banshee-data/barpath/internal/vision"
	"github.com/banshee-data/barpath/internal/vision/l2features"
)

// State is the session lifecycle state.
type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
	Processing
	Disposed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Processing:
		return "processing"
	case Disposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is the point set produced for one frame. The seed result of a
// successful Initialize has Seed set and Frame 0.
type Result struct {
	Frame       int
	TimestampMs float64
	Points      []vision.TrackedPoint
	Seed        bool
}

type requestKind int

const (
	reqInit requestKind = iota
	reqTrack
	reqReset
)

type request struct {
	kind  requestKind
	epoch uint64
	frame *vision.Frame
	index int
	ts    float64

	// init only
	settings vision.Settings
	region   *vision.Rect
	reply    chan initReply
}

type initReply struct {
	points []vision.TrackedPoint
	err    error
}

// Session owns one tracking worker. All methods are safe for concurrent
// use, but frames are processed strictly one at a time in submission
// order.
type Session struct {
	opts Options

	mu        sync.Mutex
	cond      *sync.Cond // queue changes, for the worker
	sendCond  *sync.Cond // in-flight sends finished
	state     State
	epoch     uint64
	abort     chan struct{} // closed when epoch is superseded
	sending   map[uint64]int
	queue     []request
	pending   int // track requests of the current epoch not yet finished
	lastIndex int

	ready   chan struct{}
	warmErr error

	cancel context.CancelFunc

	results chan Result
	errs    chan error

	// Worker-owned.
	prev   *vision.Frame
	points []vision.TrackedPoint
}

// New starts a session and its worker goroutine. The worker warms the
// engine up immediately; Initialize waits for that to finish.
func New(opts Options) *Session {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		opts:    opts,
		ready:   make(chan struct{}),
		abort:   make(chan struct{}),
		sending: make(map[uint64]int),
		cancel:  cancel,
		results: make(chan Result, opts.Buffer),
		errs:    make(chan error, opts.Buffer),
	}
	s.cond = sync.NewCond(&s.mu)
	s.sendCond = sync.NewCond(&s.mu)
	go s.run(ctx)
	return s
}

// Results delivers seed and per-frame point sets in FIFO order. It is
// closed by Dispose.
func (s *Session) Results() <-chan Result { return s.results }

// Errors delivers initialisation failures and *vision.TrackingFrameError
// values. It is closed by Dispose. Callers must drain both channels.
func (s *Session) Errors() <-chan error { return s.errs }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Initialize seeds the session from first. It is accepted in the
// Uninitialized and Ready states; while another Initialize runs or frames
// are still being processed it returns vision.ErrBusy. It waits for the
// worker to become ready, bounded by the configured InitTimeout, then runs
// corner detection on the worker. On success the session is Ready and the
// seed points are delivered on Results as frame 0. On failure the session
// returns to Uninitialized and the error is both returned and delivered
// on Errors. A Reset before completion makes Initialize return
// vision.ErrSuperseded.
func (s *Session) Initialize(ctx context.Context, first *vision.Frame, settings vision.Settings, region *vision.Rect) error {
	s.mu.Lock()
	switch s.state {
	case Disposed:
		s.mu.Unlock()
		return vision.ErrDisposed
	case Initializing, Processing:
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: session is %s", vision.ErrBusy, state)
	}
	s.state = Initializing
	s.advanceEpochLocked()
	epoch, abort := s.epoch, s.abort
	s.queue = nil
	s.pending = 0
	s.mu.Unlock()

	points, err := s.initialize(ctx, epoch, abort, first, settings, region)
	if err != nil {
		s.mu.Lock()
		owner := s.epoch == epoch && s.state == Initializing
		if owner {
			s.state = Uninitialized
			s.advanceEpochLocked() // discard anything the worker still produces
		}
		failEpoch := s.epoch
		s.mu.Unlock()
		if owner {
			opsf("initialize failed: %v", err)
			s.publishErr(failEpoch, err)
		}
		return err
	}

	s.publishResult(epoch, Result{Frame: 0, Points: points, Seed: true})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.state != Initializing {
		if s.state == Disposed {
			return vision.ErrDisposed
		}
		return vision.ErrSuperseded
	}
	s.state = Ready
	s.lastIndex = 0
	diagf("session ready with %d seed points", len(points))
	return nil
}

func (s *Session) initialize(ctx context.Context, epoch uint64, abort <-chan struct{}, first *vision.Frame, settings vision.Settings, region *vision.Rect) ([]vision.TrackedPoint, error) {
	if err := first.Validate(); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("tracking settings: %w", err)
	}
	if err := s.waitReady(ctx, abort); err != nil {
		return nil, err
	}

	var r *vision.Rect
	if region != nil {
		padded := region.Pad(s.opts.RegionPadding)
		r = &padded
	}
	reply := make(chan initReply, 1)
	if !s.enqueue(request{
		kind:     reqInit,
		epoch:    epoch,
		frame:    first.Clone(),
		settings: settings,
		region:   r,
		reply:    reply,
	}) {
		return nil, vision.ErrDisposed
	}

	select {
	case rep := <-reply:
		return rep.points, rep.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-abort:
		return nil, s.supersededErr()
	}
}

// supersededErr tells a Dispose apart from a Reset or a newer Initialize.
func (s *Session) supersededErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Disposed {
		return vision.ErrDisposed
	}
	return vision.ErrSuperseded
}

// waitReady blocks until the worker has warmed up. Only the wait itself
// is timed; a retry after a timeout waits again.
func (s *Session) waitReady(ctx context.Context, abort <-chan struct{}) error {
	select {
	case <-s.ready:
		return s.warmErr
	default:
	}

	timer := s.opts.Clock.NewTimer(s.opts.InitTimeout)
	defer timer.Stop()
	select {
	case <-s.ready:
		return s.warmErr
	case <-timer.C():
		return &vision.InitializationTimeoutError{Timeout: s.opts.InitTimeout}
	case <-ctx.Done():
		return ctx.Err()
	case <-abort:
		return s.supersededErr()
	}
}

// ProcessFrame submits f for tracking against the previous frame and
// returns without waiting for the result. The result, possibly empty,
// arrives on Results; a failure arrives on Errors as a
// *vision.TrackingFrameError and leaves the session usable. Frame
// indices must not decrease.
func (s *Session) ProcessFrame(f *vision.Frame, frameIndex int, timestampMs float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Disposed:
		return vision.ErrDisposed
	case Uninitialized, Initializing:
		return vision.ErrNotInitialized
	}
	if frameIndex < s.lastIndex {
		return fmt.Errorf("%w: %d after %d", vision.ErrFrameOrder, frameIndex, s.lastIndex)
	}
	if err := f.Validate(); err != nil {
		return err
	}

	s.lastIndex = frameIndex
	s.state = Processing
	s.pending++
	s.queue = append(s.queue, request{
		kind:  reqTrack,
		epoch: s.epoch,
		frame: f.Clone(),
		index: frameIndex,
		ts:    timestampMs,
	})
	s.cond.Signal()
	return nil
}

// Reset drops the point state and any queued frames and returns the
// session to Uninitialized. A pending Initialize returns
// vision.ErrSuperseded. Once Reset returns, nothing produced before it is
// delivered.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Disposed {
		return vision.ErrDisposed
	}
	s.state = Uninitialized
	s.advanceEpochLocked()
	s.pending = 0
	s.queue = append(s.queue[:0], request{kind: reqReset, epoch: s.epoch})
	s.cond.Signal()
	s.waitSendsLocked()
	diagf("session reset")
	return nil
}

// Dispose stops the worker, discards undelivered and in-flight results,
// and closes the Results and Errors channels. It is safe to call more
// than once and from any state. Dispose does not wait for an in-flight
// frame to finish; its result is dropped when it does.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.state == Disposed {
		s.mu.Unlock()
		return
	}
	s.state = Disposed
	s.advanceEpochLocked()
	s.queue = nil
	s.pending = 0
	s.cond.Broadcast()
	s.waitSendsLocked()
	s.mu.Unlock()

	s.cancel()

	// No send can start once the state is Disposed.
	close(s.results)
	close(s.errs)
	for range s.results {
	}
	for range s.errs {
	}
	diagf("session disposed")
}

// enqueue adds a request unless the session has been disposed.
func (s *Session) enqueue(r request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Disposed {
		return false
	}
	s.queue = append(s.queue, r)
	s.cond.Signal()
	return true
}

// current reports whether epoch is still live.
func (s *Session) current(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch == epoch && s.state != Disposed
}

// advanceEpochLocked supersedes the current epoch and wakes anything
// waiting on its behalf.
func (s *Session) advanceEpochLocked() {
	s.epoch++
	close(s.abort)
	s.abort = make(chan struct{})
}

// beginSend registers a send for epoch if it is still live. The check
// and the registration happen under s.mu, so an epoch change either sees
// the send and waits for it or the send is refused.
func (s *Session) beginSend(epoch uint64) (<-chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.state == Disposed {
		return nil, false
	}
	s.sending[epoch]++
	return s.abort, true
}

func (s *Session) endSend(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sending[epoch]--; s.sending[epoch] <= 0 {
		delete(s.sending, epoch)
	}
	s.sendCond.Broadcast()
}

// waitSendsLocked blocks until no send of a superseded epoch is in
// flight. Those sends watch their closed abort channel, so they finish
// without a reader.
func (s *Session) waitSendsLocked() {
	for s.staleSendsLocked() {
		s.sendCond.Wait()
	}
}

func (s *Session) staleSendsLocked() bool {
	for e := range s.sending {
		if e < s.epoch {
			return true
		}
	}
	return false
}

func (s *Session) publishResult(epoch uint64, r Result) {
	abort, ok := s.beginSend(epoch)
	if !ok {
		tracef("drop stale result for frame %d", r.Frame)
		return
	}
	defer s.endSend(epoch)
	select {
	case s.results <- r:
	case <-abort:
		tracef("drop superseded result for frame %d", r.Frame)
	}
}

func (s *Session) publishErr(epoch uint64, err error) {
	abort, ok := s.beginSend(epoch)
	if !ok {
		tracef("drop stale error: %v", err)
		return
	}
	defer s.endSend(epoch)
	select {
	case s.errs <- err:
	case <-abort:
	}
}

// detectSeeds runs on the worker.
func (s *Session) detectSeeds(req request) ([]vision.TrackedPoint, error) {
	opts := l2features.Options{Region: req.region}
	if req.region == nil && s.opts.CentreFocus {
		opts.Mask = l2features.CentreFocusMask(req.frame.Width, req.frame.Height)
	}

	pts, err := s.opts.Engine.Detect(req.frame, req.settings, opts)
	if err != nil {
		return nil, err
	}
	if len(pts) < s.opts.MinSeedPoints && s.opts.LenientSettings != nil {
		diagf("only %d seed corners, retrying with lenient settings", len(pts))
		retry, err := s.opts.Engine.Detect(req.frame, *s.opts.LenientSettings, opts)
		if err != nil {
			return nil, err
		}
		if len(retry) > len(pts) {
			pts = retry
		}
	}
	if len(pts) == 0 {
		return nil, vision.ErrNoFeatures
	}
	return pts, nil
}
