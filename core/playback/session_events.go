package playback

import (
	"artlens/logger"
)

// listener binds media events to the generation they were created for.
func (s *Session) listener(gen uint64) Listener {
	return func(ev Event) {
		s.handleEvent(gen, ev)
	}
}

// handleEvent routes an event to its transition. Events from a superseded
// generation or a closed session are dropped.
func (s *Session) handleEvent(gen uint64, ev Event) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}

	var (
		released Media
		changed  bool
	)
	switch ev.Type {
	case EventMetadata:
		changed = s.onMetadata(ev)
	case EventTimeUpdate:
		changed = s.onTimeUpdate(ev)
	case EventPlay:
		changed = s.onPlaybackStarted()
	case EventPause:
		changed = s.onPaused()
	case EventEnded:
		released, changed = s.onEnded()
	case EventError:
		released, changed = s.onError(ev)
	}

	var (
		version uint64
		st      State
	)
	if changed {
		version, st = s.changedLocked()
	}
	s.mu.Unlock()

	releaseMedia(released)
	if changed {
		s.publish(version, st)
	}
}

// onMetadata records the duration. Status is unchanged.
func (s *Session) onMetadata(ev Event) bool {
	if ev.Duration <= 0 || ev.Duration == s.total {
		return false
	}
	s.total = ev.Duration
	return true
}

func (s *Session) onTimeUpdate(ev Event) bool {
	changed := false
	if ev.Duration > 0 && ev.Duration != s.total {
		s.total = ev.Duration
		changed = true
	}
	if s.status == StatusPlaying && ev.Position > s.position {
		s.position = ev.Position
		changed = true
	}
	return changed
}

// onPlaybackStarted moves loading or paused to playing and starts the ticker.
func (s *Session) onPlaybackStarted() bool {
	if s.status != StatusLoading && s.status != StatusPaused {
		return false
	}
	if s.loadTimer != nil {
		s.loadTimer.Stop()
		s.loadTimer = nil
	}
	s.status = StatusPlaying
	s.startProgressLocked(s.gen)
	return true
}

func (s *Session) onPaused() bool {
	if s.status != StatusPlaying {
		return false
	}
	s.status = StatusPaused
	s.stopProgressLocked()
	return true
}

// onEnded clears the track after a natural end. After a user stop it does nothing.
func (s *Session) onEnded() (Media, bool) {
	if s.stoppedByUser {
		return nil, false
	}
	media := s.detachLocked()
	s.status = StatusEnded
	s.current = nil
	s.position = 0
	s.total = 0
	logger.Debug("track ended", logger.String("session", s.opts.Name))
	return media, true
}

// onError clears the track whatever stopped it.
func (s *Session) onError(ev Event) (Media, bool) {
	track := ""
	if s.current != nil {
		track = s.current.ID
	}
	logger.Warn("playback failed",
		logger.String("session", s.opts.Name),
		logger.String("trackID", track),
		logger.String("status", s.status.String()),
		logger.ErrorField(ev.Err))

	media := s.detachLocked()
	s.status = StatusErrored
	s.current = nil
	s.position = 0
	s.total = 0
	return media, true
}

// fail reports an asynchronous load or play failure for gen.
func (s *Session) fail(gen uint64, err error) {
	s.handleEvent(gen, Event{Type: EventError, Err: err})
}

// loadTimedOut fails gen if it never left loading.
func (s *Session) loadTimedOut(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen || s.status != StatusLoading {
		s.mu.Unlock()
		return
	}
	released, _ := s.onError(Event{Type: EventError, Err: ErrLoadTimeout})
	version, st := s.changedLocked()
	s.mu.Unlock()

	releaseMedia(released)
	s.publish(version, st)
}
