package player

import "github.com/killallgit/podcast-player/internal/models"

// Status is the playback state machine position
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
)

// Source is what the media element was given for the current episode
type Source struct {
	URL   string
	Local bool // served from the offline library through an object URL
}

// State is the observable playback session
type State struct {
	Status         Status
	CurrentEpisode *models.Episode
	IsPlaying      bool
	Progress       float64 // seconds
	Duration       float64 // seconds, 0 until metadata loads
	Volume         int     // percent
	Source         Source
}

func (s State) clone() State {
	if s.CurrentEpisode != nil {
		ep := *s.CurrentEpisode
		s.CurrentEpisode = &ep
	}
	return s
}

func clampVolume(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

func clampPosition(seconds, duration float64) float64 {
	if seconds < 0 {
		return 0
	}
	if duration > 0 && seconds > duration {
		return duration
	}
	return seconds
}
