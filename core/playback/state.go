package playback

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle position of a Session.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusPlaying
	StatusPaused
	StatusEnded
	StatusErrored
)

var statusNames = [...]string{"idle", "loading", "playing", "paused", "ended", "errored"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is an observable snapshot of a Session.
type State struct {
	Track     *Track
	Status    Status
	IsPlaying bool
	IsMuted   bool
	Progress  time.Duration
	Duration  time.Duration
}

// MarshalJSON reports progress and duration in seconds.
func (st State) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Track     *Track  `json:"currentTrack"`
		Status    Status  `json:"status"`
		IsPlaying bool    `json:"isPlaying"`
		IsMuted   bool    `json:"isMuted"`
		Progress  float64 `json:"progress"`
		Duration  float64 `json:"duration"`
	}{
		Track:     st.Track,
		Status:    st.Status,
		IsPlaying: st.IsPlaying,
		IsMuted:   st.IsMuted,
		Progress:  st.Progress.Seconds(),
		Duration:  st.Duration.Seconds(),
	})
}
