package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"artlens/cache"
	"artlens/logger"
	"artlens/storage"
)

// ErrUnavailable means no narration could be produced. Callers report a null audio URL.
var ErrUnavailable = errors.New("narration unavailable")

// FallbackMessage is shown to users when narration is unavailable.
const FallbackMessage = "Audio is currently unavailable. Please try again later."

// Synthesizer turns text into MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Voice() string
}

// URLCache remembers the URL of audio already synthesized for a hash.
type URLCache interface {
	Get(ctx context.Context, hash string) (string, bool, error)
	Set(ctx context.Context, hash, url string) error
}

// ObjectStore persists synthesized audio and returns its public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Narrator produces playable audio URLs for text.
type Narrator struct {
	synth Synthesizer
	cache URLCache
	store ObjectStore
}

// NewNarrator wires the pipeline. cache and store may be nil; synth may be nil
// when no provider is configured, in which case every call returns ErrUnavailable.
func NewNarrator(synth Synthesizer, urlCache URLCache, store ObjectStore) *Narrator {
	return &Narrator{synth: synth, cache: urlCache, store: store}
}

// Narrate returns an audio URL for text: a stored object URL when storage is
// configured, otherwise a data: URL.
func (n *Narrator) Narrate(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if n == nil || n.synth == nil || text == "" {
		return "", ErrUnavailable
	}

	hash := cache.NarrationKey(n.synth.Voice(), text)
	if n.cache != nil {
		if url, ok, err := n.cache.Get(ctx, hash); err != nil {
			logger.Warn("narration cache lookup failed", logger.ErrorField(err))
		} else if ok {
			return url, nil
		}
	}

	audio, err := n.synth.Synthesize(ctx, text)
	if err != nil {
		logger.Error("speech synthesis failed",
			logger.String("voice", n.synth.Voice()),
			logger.Int("textLength", len(text)),
			logger.ErrorField(err))
		return "", ErrUnavailable
	}

	if n.store != nil {
		url, err := n.store.Put(ctx, storage.NarrationKey(hash), audio, "audio/mpeg")
		if err == nil {
			if n.cache != nil {
				if err := n.cache.Set(ctx, hash, url); err != nil {
					logger.Warn("narration cache write failed",
						logger.String("hash", hash),
						logger.ErrorField(err))
				}
			}
			logger.Info("narration stored",
				logger.String("hash", hash),
				logger.Int("size", len(audio)))
			return url, nil
		}
		logger.Warn("failed to store narration, returning inline audio", logger.ErrorField(err))
	}

	return DataURL(audio), nil
}

// DataURL encodes MP3 audio as a data: URL.
func DataURL(audio []byte) string {
	return "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(audio)
}
