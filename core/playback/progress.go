package playback

import (
	"time"
)

// startProgressLocked samples the resource while playing. The ticker runs
// if and only if the status is playing.
func (s *Session) startProgressLocked(gen uint64) {
	if s.tickerStop != nil {
		return
	}
	stop := make(chan struct{})
	s.tickerStop = stop
	go s.runProgress(gen, stop)
}

func (s *Session) stopProgressLocked() {
	if s.tickerStop != nil {
		close(s.tickerStop)
		s.tickerStop = nil
	}
}

func (s *Session) progressRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickerStop != nil
}

func (s *Session) runProgress(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(s.opts.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.sampleProgress(gen)
		}
	}
}

func (s *Session) sampleProgress(gen uint64) {
	s.mu.Lock()
	media := s.media
	live := !s.closed && gen == s.gen && s.status == StatusPlaying
	s.mu.Unlock()
	if !live || media == nil {
		return
	}

	// Sampled outside the lock: a resource may block briefly here.
	pos, total := media.Position(), media.Duration()

	s.mu.Lock()
	if s.closed || gen != s.gen || s.status != StatusPlaying {
		s.mu.Unlock()
		return
	}
	changed := false
	if pos > s.position {
		s.position = pos
		changed = true
	}
	if total > 0 && total != s.total {
		s.total = total
		changed = true
	}
	var (
		version uint64
		st      State
	)
	if changed {
		version, st = s.changedLocked()
	}
	s.mu.Unlock()

	if changed {
		s.publish(version, st)
	}
}
