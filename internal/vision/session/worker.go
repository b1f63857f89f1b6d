package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/barpath/internal/vision"
)

var errNoEngine = errors.New("session: no engine configured")

// run is the single worker goroutine. It owns the engine and the
// previous frame and point set; nothing else touches them.
func (s *Session) run(ctx context.Context) {
	defer func() {
		if s.opts.Engine != nil {
			if err := s.opts.Engine.Close(); err != nil {
				opsf("engine close: %v", err)
			}
		}
		s.prev = nil
		s.points = nil
		diagf("worker stopped")
	}()

	if s.opts.Engine == nil {
		s.warmErr = errNoEngine
	} else {
		s.warmErr = s.opts.Engine.Warmup(ctx)
	}
	if s.warmErr != nil {
		opsf("engine warmup: %v", s.warmErr)
	} else {
		diagf("engine %s warm", s.opts.Engine.Name())
	}
	close(s.ready)

	for {
		req, ok := s.next()
		if !ok {
			return
		}
		switch req.kind {
		case reqReset:
			s.prev = nil
			s.points = nil
		case reqInit:
			s.handleInit(req)
		case reqTrack:
			s.handleTrack(req)
		}
	}
}

// next blocks until a request is queued or the session is disposed.
func (s *Session) next() (request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 && s.state != Disposed {
		s.cond.Wait()
	}
	if s.state == Disposed {
		return request{}, false
	}
	r := s.queue[0]
	s.queue[0] = request{}
	s.queue = s.queue[1:]
	return r, true
}

func (s *Session) handleInit(req request) {
	var rep initReply
	if s.warmErr != nil {
		rep.err = s.warmErr
	} else {
		rep.points, rep.err = s.safeDetect(req)
	}
	if rep.err == nil && s.current(req.epoch) {
		s.prev = req.frame
		s.points = rep.points
	}
	req.reply <- rep
}

func (s *Session) handleTrack(req request) {
	if !s.current(req.epoch) {
		tracef("skip stale frame %d", req.index)
		return
	}

	pts, err := s.safeTrack(req)
	s.prev = req.frame
	if err != nil {
		tracef("frame %d: %v", req.index, err)
		s.publishErr(req.epoch, &vision.TrackingFrameError{Frame: req.index, Err: err})
	} else {
		s.points = pts
		s.publishResult(req.epoch, Result{Frame: req.index, TimestampMs: req.ts, Points: pts})
	}
	s.finish(req.epoch)
}

// finish marks one track request done and returns the session to Ready
// once nothing of the current epoch is outstanding.
func (s *Session) finish(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.pending == 0 {
		return
	}
	s.pending--
	if s.pending == 0 && s.state == Processing {
		s.state = Ready
	}
}

func (s *Session) safeDetect(req request) (pts []vision.TrackedPoint, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detect panic: %v", r)
		}
	}()
	return s.detectSeeds(req)
}

func (s *Session) safeTrack(req request) (pts []vision.TrackedPoint, err error) {
	if s.prev == nil {
		return nil, vision.ErrNotInitialized
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("track panic: %v", r)
		}
	}()
	return s.opts.Engine.Track(s.prev, req.frame, s.points, req.index, req.ts)
}
