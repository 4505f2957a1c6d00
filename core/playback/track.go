package playback

import (
	"fmt"
	"strconv"
	"time"
)

// Kind labels what a track narrates. It never affects playback.
type Kind string

const (
	KindDescription Kind = "description"
	KindResponse    Kind = "response"
)

// Track is an immutable handle to already stored audio.
type Track struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
	Kind  Kind   `json:"kind"`
}

// DescriptionTrack is the narration of a scan.
func DescriptionTrack(scanID, url, title string) Track {
	return Track{
		ID:    "description-" + scanID,
		URL:   url,
		Title: title,
		Kind:  KindDescription,
	}
}

// ResponseTrack is the spoken answer to a chat message. The timestamp keeps
// ids unique when the same answer is replayed.
func ResponseTrack(chatID, url, title string, at time.Time) Track {
	return Track{
		ID:    fmt.Sprintf("response-%s-%s", chatID, strconv.FormatInt(at.UnixMilli(), 10)),
		URL:   url,
		Title: title,
		Kind:  KindResponse,
	}
}
