package playback

import (
	"context"
	"sync"
	"time"

	"artlens/logger"
)

const (
	DefaultLoadTimeout      = 15 * time.Second
	DefaultProgressInterval = 100 * time.Millisecond
)

// Options tune a Session. Zero values select the defaults.
type Options struct {
	// LoadTimeout bounds how long a track may stay loading. Negative disables it.
	LoadTimeout      time.Duration
	ProgressInterval time.Duration

	// OnChange receives a snapshot after every transition, outside the session
	// lock. Snapshots are delivered in order; stale ones are skipped. It must not
	// call back into the Session synchronously.
	OnChange func(State)

	// Name tags log lines.
	Name string
}

// Session owns at most one media resource and tracks its playback state.
// Create one per view and call Cleanup when the view goes away.
type Session struct {
	loader Loader
	opts   Options

	mu            sync.Mutex
	gen           uint64 // identifies the attached or loading resource
	version       uint64 // bumped on every observable change
	current       *Track
	status        Status
	position      time.Duration
	total         time.Duration
	muted         bool
	stoppedByUser bool
	closed        bool

	media      Media
	cancelLoad context.CancelFunc
	loadTimer  *time.Timer
	tickerStop chan struct{}

	notifyMu  sync.Mutex
	published uint64
}

// NewSession creates an idle session that builds media with loader.
func NewSession(loader Loader, opts Options) *Session {
	if opts.LoadTimeout == 0 {
		opts.LoadTimeout = DefaultLoadTimeout
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	return &Session{loader: loader, opts: opts}
}

// Play replaces whatever is loaded with track and starts it asynchronously.
// Failures are logged and surface only as StatusErrored.
func (s *Session) Play(ctx context.Context, track Track) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		logger.Debug("play ignored on closed session", logger.String("session", s.opts.Name))
		return
	}

	s.stoppedByUser = false
	// 先摘下旧资源，换代后旧资源的事件都会被丢弃
	old := s.detachLocked()

	gen := s.gen
	t := track
	s.current = &t
	s.status = StatusLoading
	s.position = 0
	s.total = 0

	loadCtx, cancel := context.WithCancel(ctx)
	s.cancelLoad = cancel
	if s.opts.LoadTimeout > 0 {
		s.loadTimer = time.AfterFunc(s.opts.LoadTimeout, func() { s.loadTimedOut(gen) })
	}
	muted := s.muted
	version, st := s.changedLocked()
	s.mu.Unlock()

	// 锁外释放旧资源
	releaseMedia(old)
	s.publish(version, st)

	logger.Info("loading track",
		logger.String("session", s.opts.Name),
		logger.String("trackID", track.ID),
		logger.String("kind", string(track.Kind)))

	go s.load(loadCtx, gen, track, muted)
}

func (s *Session) load(ctx context.Context, gen uint64, track Track, muted bool) {
	media, err := s.loader.Load(ctx, track.URL, s.listener(gen))
	if err != nil {
		s.fail(gen, err)
		return
	}

	// Nothing else can reach media yet, so the mute preference cannot race.
	media.SetMuted(muted)

	s.mu.Lock()
	if s.closed || gen != s.gen {
		// 加载期间被停止或换了曲目
		s.mu.Unlock()
		releaseMedia(media)
		return
	}
	s.media = media
	s.mu.Unlock()

	if err := media.Play(ctx); err != nil {
		s.fail(gen, err)
	}
}

// Pause is a no-op unless playing.
func (s *Session) Pause() {
	s.mu.Lock()
	if s.closed || s.status != StatusPlaying {
		s.mu.Unlock()
		return
	}
	s.status = StatusPaused
	s.stopProgressLocked()
	media := s.media
	version, st := s.changedLocked()
	s.mu.Unlock()

	if media != nil {
		media.Pause()
	}
	s.publish(version, st)
}

// Resume is a no-op unless paused. The session moves to playing when the
// resource confirms; a rejected resume leaves the status unchanged.
func (s *Session) Resume(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.status != StatusPaused || s.media == nil {
		s.mu.Unlock()
		return
	}
	media := s.media
	s.mu.Unlock()

	if err := media.Play(ctx); err != nil {
		logger.Warn("resume failed",
			logger.String("session", s.opts.Name),
			logger.ErrorField(err))
	}
}

// Stop releases the resource and returns to idle. It is synchronous and idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stoppedByUser = true
	media, version, st, changed := s.resetLocked()
	s.mu.Unlock()

	releaseMedia(media)
	if changed {
		s.publish(version, st)
	}
}

// Cleanup stops playback and makes the session permanently inert.
func (s *Session) Cleanup() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stoppedByUser = true
	s.closed = true
	media, version, st, changed := s.resetLocked()
	s.mu.Unlock()

	releaseMedia(media)
	if changed {
		s.publish(version, st)
	}
}

// ToggleMute flips mute on the attached resource. Without one it does nothing.
func (s *Session) ToggleMute() {
	s.mu.Lock()
	if s.closed || s.media == nil {
		s.mu.Unlock()
		return
	}
	s.muted = !s.muted
	media, muted := s.media, s.muted
	version, st := s.changedLocked()
	s.mu.Unlock()

	media.SetMuted(muted)
	s.publish(version, st)
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Closed reports whether Cleanup has run.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// resetLocked tears down the resource and clears the track.
func (s *Session) resetLocked() (Media, uint64, State, bool) {
	media := s.detachLocked()
	changed := media != nil || s.current != nil || s.status != StatusIdle || s.position != 0 || s.total != 0

	s.current = nil
	s.status = StatusIdle
	s.position = 0
	s.total = 0

	if !changed {
		return nil, 0, State{}, false
	}
	version, st := s.changedLocked()
	return media, version, st, true
}

// detachLocked invalidates the current generation and hands back the resource
// for release outside the lock.
func (s *Session) detachLocked() Media {
	s.gen++
	s.stopProgressLocked()
	if s.loadTimer != nil {
		s.loadTimer.Stop()
		s.loadTimer = nil
	}
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	media := s.media
	s.media = nil
	return media
}

func (s *Session) snapshotLocked() State {
	st := State{
		Status:    s.status,
		IsPlaying: s.status == StatusPlaying,
		IsMuted:   s.muted,
		Progress:  s.position,
		Duration:  s.total,
	}
	if s.current != nil {
		t := *s.current
		st.Track = &t
	}
	return st
}

func (s *Session) changedLocked() (uint64, State) {
	s.version++
	return s.version, s.snapshotLocked()
}

func (s *Session) publish(version uint64, st State) {
	if s.opts.OnChange == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if version <= s.published {
		return
	}
	s.published = version
	s.opts.OnChange(st)
}

// releaseMedia pauses and closes a superseded resource.
func releaseMedia(media Media) {
	if media == nil {
		return
	}
	media.Pause()
	if err := media.Close(); err != nil {
		logger.Warn("failed to release media", logger.ErrorField(err))
	}
}
