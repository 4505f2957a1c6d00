//go:build (linux && cgo) || windows || darwin

package playback

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

// AudioAvailable reports whether this build can drive the local speaker.
const AudioAvailable = true

// speakerRate is the rate the speaker is initialized with; tracks are resampled to it.
const speakerRate = beep.SampleRate(44100)

var (
	speakerOnce    sync.Once
	speakerInitErr error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerInitErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	return speakerInitErr
}

// SpeakerLoader plays MP3 audio on the local output device.
type SpeakerLoader struct {
	client *http.Client
}

// NewSpeakerLoader uses client for https sources; nil selects a 30s timeout client.
func NewSpeakerLoader(client *http.Client) *SpeakerLoader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &SpeakerLoader{client: client}
}

func (l *SpeakerLoader) Load(ctx context.Context, url string, emit Listener) (Media, error) {
	data, err := fetchSource(ctx, l.client, url)
	if err != nil {
		return nil, err
	}

	streamer, format, err := mp3.Decode(nopCloser{bytes.NewReader(data)})
	if err != nil {
		return nil, fmt.Errorf("failed to decode mp3: %w", err)
	}
	if err := initSpeaker(); err != nil {
		streamer.Close()
		return nil, fmt.Errorf("%w: %w", ErrAudioUnavailable, err)
	}

	m := &speakerMedia{
		streamer: streamer,
		format:   format,
		emit:     emit,
	}
	m.ctrl = &beep.Ctrl{Streamer: beep.Resample(4, format.SampleRate, speakerRate, streamer), Paused: true}
	m.volume = &effects.Volume{Streamer: m.ctrl, Base: 2}

	emit(Event{Type: EventMetadata, Duration: m.Duration()})
	return m, nil
}

type speakerMedia struct {
	mu       sync.Mutex
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	emit     Listener
	started  bool
	closed   bool
}

func (m *speakerMedia) Play(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMediaClosed
	}
	speaker.Lock()
	m.ctrl.Paused = false
	speaker.Unlock()

	if !m.started {
		m.started = true
		speaker.Play(beep.Seq(m.volume, beep.Callback(func() {
			// Runs on the speaker goroutine with its lock held.
			go m.emit(Event{Type: EventEnded})
		})))
	}
	m.mu.Unlock()

	m.emit(Event{Type: EventPlay, Position: m.Position(), Duration: m.Duration()})
	return nil
}

func (m *speakerMedia) Pause() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	speaker.Lock()
	m.ctrl.Paused = true
	speaker.Unlock()
	m.mu.Unlock()

	m.emit(Event{Type: EventPause, Position: m.Position()})
}

func (m *speakerMedia) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0
	}
	speaker.Lock()
	pos := m.streamer.Position()
	speaker.Unlock()
	return m.format.SampleRate.D(pos)
}

func (m *speakerMedia) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0
	}
	return m.format.SampleRate.D(m.streamer.Len())
}

func (m *speakerMedia) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	speaker.Lock()
	m.volume.Silent = muted
	speaker.Unlock()
}

func (m *speakerMedia) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	speaker.Lock()
	m.ctrl.Paused = true
	m.ctrl.Streamer = nil
	speaker.Unlock()
	return m.streamer.Close()
}

// nopCloser wraps a bytes.Reader to implement io.ReadCloser.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
