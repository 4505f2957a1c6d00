package playback

import (
	"context"
	"sync"
	"time"

	"artlens/logger"
)

// Command is sent to the client that owns the audio element.
type Command struct {
	Type  string `json:"type"` // load, play, pause, mute, unload
	Token uint64 `json:"token"`
	URL   string `json:"url,omitempty"`
	Muted *bool  `json:"muted,omitempty"`
}

// CommandSink delivers commands to the client. Send must not block on the
// client's replies.
type CommandSink interface {
	Send(cmd Command) error
}

// RemoteLoader drives a browser audio element. Each loaded resource gets a
// token; the client tags its element events with it and they are routed back
// through Dispatch.
type RemoteLoader struct {
	sink CommandSink

	mu    sync.Mutex
	next  uint64
	media map[uint64]*remoteMedia
}

func NewRemoteLoader(sink CommandSink) *RemoteLoader {
	return &RemoteLoader{
		sink:  sink,
		media: make(map[uint64]*remoteMedia),
	}
}

func (l *RemoteLoader) Load(ctx context.Context, url string, emit Listener) (Media, error) {
	l.mu.Lock()
	l.next++
	m := &remoteMedia{loader: l, token: l.next, emit: emit}
	l.media[m.token] = m
	l.mu.Unlock()

	if err := l.sink.Send(Command{Type: "load", Token: m.token, URL: url}); err != nil {
		l.forget(m.token)
		return nil, err
	}
	return m, nil
}

// Dispatch routes a client event to the resource holding token. Events for
// released resources are dropped.
func (l *RemoteLoader) Dispatch(token uint64, ev Event) {
	l.mu.Lock()
	m := l.media[token]
	l.mu.Unlock()
	if m == nil {
		logger.Debug("dropping event for released media",
			logger.Uint64("token", token),
			logger.String("event", ev.Type.String()))
		return
	}
	m.observe(ev)
	m.emit(ev)
}

// Active returns how many resources are still attached on the client.
func (l *RemoteLoader) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.media)
}

func (l *RemoteLoader) forget(token uint64) {
	l.mu.Lock()
	delete(l.media, token)
	l.mu.Unlock()
}

type remoteMedia struct {
	loader *RemoteLoader
	token  uint64
	emit   Listener

	mu       sync.Mutex
	position time.Duration
	duration time.Duration
	closed   bool
}

func (m *remoteMedia) observe(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.Position > 0 {
		m.position = ev.Position
	}
	if ev.Duration > 0 {
		m.duration = ev.Duration
	}
	if ev.Type == EventEnded {
		m.position = 0
	}
}

func (m *remoteMedia) send(cmd Command) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return ErrMediaClosed
	}
	cmd.Token = m.token
	return m.loader.sink.Send(cmd)
}

func (m *remoteMedia) Play(ctx context.Context) error {
	return m.send(Command{Type: "play"})
}

func (m *remoteMedia) Pause() {
	if err := m.send(Command{Type: "pause"}); err != nil && err != ErrMediaClosed {
		logger.Warn("failed to send pause", logger.ErrorField(err))
	}
}

func (m *remoteMedia) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *remoteMedia) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *remoteMedia) SetMuted(muted bool) {
	if err := m.send(Command{Type: "mute", Muted: &muted}); err != nil && err != ErrMediaClosed {
		logger.Warn("failed to send mute", logger.ErrorField(err))
	}
}

func (m *remoteMedia) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.position = 0
	m.mu.Unlock()

	m.loader.forget(m.token)
	return m.loader.sink.Send(Command{Type: "unload", Token: m.token})
}
