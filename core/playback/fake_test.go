package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeMedia mimics an audio element: Play and Pause report back synchronously.
type fakeMedia struct {
	url  string
	emit Listener

	mu       sync.Mutex
	position time.Duration
	duration time.Duration
	muted    bool
	playing  bool
	closed   bool
	plays    int
	playErr  func(n int) error
}

func (m *fakeMedia) Play(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMediaClosed
	}
	m.plays++
	if m.playErr != nil {
		if err := m.playErr(m.plays); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	m.playing = true
	m.mu.Unlock()

	m.emit(Event{Type: EventPlay})
	return nil
}

func (m *fakeMedia) Pause() {
	m.mu.Lock()
	wasPlaying := m.playing && !m.closed
	m.playing = false
	m.mu.Unlock()
	if wasPlaying {
		m.emit(Event{Type: EventPause})
	}
}

func (m *fakeMedia) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *fakeMedia) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *fakeMedia) SetMuted(muted bool) {
	m.mu.Lock()
	m.muted = muted
	m.mu.Unlock()
}

func (m *fakeMedia) Close() error {
	m.mu.Lock()
	m.closed = true
	m.playing = false
	m.mu.Unlock()
	return nil
}

func (m *fakeMedia) setPosition(d time.Duration) {
	m.mu.Lock()
	m.position = d
	m.mu.Unlock()
}

func (m *fakeMedia) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *fakeMedia) playCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plays
}

func (m *fakeMedia) isMuted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

// fakeLoader hands out fakeMedia. Durations map URLs to the length reported
// with metadata.
type fakeLoader struct {
	durations map[string]time.Duration
	loadErr   error
	gate      chan struct{} // when set, Load blocks until it is closed or ctx ends
	playErr   func(n int) error

	mu    sync.Mutex
	media []*fakeMedia
	done  int
}

func (l *fakeLoader) Load(ctx context.Context, url string, emit Listener) (Media, error) {
	defer func() {
		l.mu.Lock()
		l.done++
		l.mu.Unlock()
	}()

	if l.gate != nil {
		select {
		case <-l.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if l.loadErr != nil {
		return nil, l.loadErr
	}

	m := &fakeMedia{url: url, emit: emit, duration: l.durations[url], playErr: l.playErr}
	l.mu.Lock()
	l.media = append(l.media, m)
	l.mu.Unlock()

	if m.duration > 0 {
		emit(Event{Type: EventMetadata, Duration: m.duration})
	}
	return m, nil
}

func (l *fakeLoader) loaded() []*fakeMedia {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*fakeMedia(nil), l.media...)
}

func (l *fakeLoader) finished() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

func (l *fakeLoader) open() []*fakeMedia {
	var out []*fakeMedia
	for _, m := range l.loaded() {
		if !m.isClosed() {
			out = append(out, m)
		}
	}
	return out
}

// recorder collects published snapshots.
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(st State) {
	r.mu.Lock()
	r.states = append(r.states, st)
	r.mu.Unlock()
}

func (r *recorder) count(status Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, st := range r.states {
		if st.Status == status {
			n++
		}
	}
	return n
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *recorder) last() (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return State{}, false
	}
	return r.states[len(r.states)-1], true
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitStatus(t *testing.T, s *Session, want Status) State {
	t.Helper()
	waitFor(t, "status "+want.String(), func() bool { return s.State().Status == want })
	return s.State()
}

var errRejected = errors.New("play() rejected")
