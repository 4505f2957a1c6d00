//go:build !((linux && cgo) || windows || darwin)

package playback

import (
	"context"
	"net/http"
)

// AudioAvailable reports whether this build can drive the local speaker.
// Audio output requires cgo for the native sound libraries.
const AudioAvailable = false

// SpeakerLoader fails every load in builds without audio support.
type SpeakerLoader struct{}

func NewSpeakerLoader(client *http.Client) *SpeakerLoader {
	return &SpeakerLoader{}
}

func (l *SpeakerLoader) Load(ctx context.Context, url string, emit Listener) (Media, error) {
	return nil, ErrAudioUnavailable
}
