package playback

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAudioUnavailable is returned by loaders that cannot produce sound in this build.
	ErrAudioUnavailable = errors.New("audio output unavailable")
	// ErrLoadTimeout moves a session to errored when a track never starts.
	ErrLoadTimeout = errors.New("timed out loading track")
	// ErrMediaClosed is returned when a released resource is asked to play.
	ErrMediaClosed = errors.New("media resource closed")
)

// EventType enumerates what a media resource reports.
type EventType int

const (
	EventMetadata EventType = iota
	EventTimeUpdate
	EventPlay
	EventPause
	EventEnded
	EventError
)

var eventNames = [...]string{"metadata", "timeupdate", "play", "pause", "ended", "error"}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// ParseEventType maps a wire name back to an EventType.
func ParseEventType(name string) (EventType, bool) {
	for i, n := range eventNames {
		if n == name {
			return EventType(i), true
		}
	}
	return 0, false
}

// Event is emitted by a Media. Position and Duration are set when known.
type Event struct {
	Type     EventType
	Position time.Duration
	Duration time.Duration
	Err      error
}

// Listener receives media events. It may be called from any goroutine,
// including synchronously from inside Media methods.
type Listener func(Event)

// Loader constructs a media resource for a URL and wires its events to emit.
// The URL is opaque: remote https and data: URLs are handled alike.
type Loader interface {
	Load(ctx context.Context, url string, emit Listener) (Media, error)
}

// Media is a single playable resource. Play confirms start through EventPlay.
type Media interface {
	Play(ctx context.Context) error
	Pause()
	Position() time.Duration
	Duration() time.Duration
	SetMuted(muted bool)
	Close() error
}
