package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Episode is the read-only view of an episode served by the backend.
// ID is the only identity key used by the player, the offline library and
// the download progress map.
type Episode struct {
	ID           string `json:"id"`
	PodcastID    string `json:"podcast_id,omitempty"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Duration     string `json:"duration,omitempty"`
	ReleaseDate  string `json:"releaseDate,omitempty"`
	AudioURL     string `json:"audioUrl"`
	CoverImage   string `json:"coverImage,omitempty"`
	Host         string `json:"host,omitempty"`
	PodcastTitle string `json:"podcastTitle,omitempty"`
	IsPremium    bool   `json:"is_premium"`
}

// HasAudio reports whether the episode carries a playable source
func (e Episode) HasAudio() bool {
	return e.AudioURL != ""
}

var (
	// ErrEmptyAudio is returned for a stored episode with no payload
	ErrEmptyAudio = errors.New("audio payload is empty")
	// ErrSizeMismatch is returned when the payload length disagrees with the recorded size
	ErrSizeMismatch = errors.New("audio payload size mismatch")
	// ErrChecksumMismatch is returned when the payload no longer hashes to the recorded checksum
	ErrChecksumMismatch = errors.New("audio payload checksum mismatch")
)

// StoredEpisode is an Episode plus its downloaded audio, kept in the
// offline library.
type StoredEpisode struct {
	ID           string    `gorm:"primaryKey;size:191" json:"id"`
	PodcastID    string    `json:"podcast_id,omitempty"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Duration     string    `json:"duration,omitempty"`
	ReleaseDate  string    `json:"releaseDate,omitempty"`
	AudioURL     string    `json:"audioUrl"`
	CoverImage   string    `json:"coverImage,omitempty"`
	Host         string    `json:"host,omitempty"`
	PodcastTitle string    `json:"podcastTitle,omitempty"`
	IsPremium    bool      `json:"is_premium"`
	ContentType  string    `json:"content_type"`
	Size         int64     `gorm:"not null" json:"size"`
	Checksum     string    `gorm:"size:64;not null" json:"checksum"`
	AudioBlob    []byte    `gorm:"not null" json:"-"`
	StoredAt     time.Time `json:"stored_at"`
}

// TableName returns the table name for the StoredEpisode model
func (StoredEpisode) TableName() string {
	return "stored_episodes"
}

// NewStoredEpisode pairs episode metadata with its audio payload and
// records the size and checksum used to validate later reads.
func NewStoredEpisode(ep Episode, blob []byte, contentType string) *StoredEpisode {
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return &StoredEpisode{
		ID:           ep.ID,
		PodcastID:    ep.PodcastID,
		Title:        ep.Title,
		Description:  ep.Description,
		Duration:     ep.Duration,
		ReleaseDate:  ep.ReleaseDate,
		AudioURL:     ep.AudioURL,
		CoverImage:   ep.CoverImage,
		Host:         ep.Host,
		PodcastTitle: ep.PodcastTitle,
		IsPremium:    ep.IsPremium,
		ContentType:  contentType,
		Size:         int64(len(blob)),
		Checksum:     Checksum(blob),
		AudioBlob:    blob,
		StoredAt:     time.Now().UTC(),
	}
}

// Episode returns the metadata view of the stored episode
func (s *StoredEpisode) Episode() Episode {
	return Episode{
		ID:           s.ID,
		PodcastID:    s.PodcastID,
		Title:        s.Title,
		Description:  s.Description,
		Duration:     s.Duration,
		ReleaseDate:  s.ReleaseDate,
		AudioURL:     s.AudioURL,
		CoverImage:   s.CoverImage,
		Host:         s.Host,
		PodcastTitle: s.PodcastTitle,
		IsPremium:    s.IsPremium,
	}
}

// Validate checks that the payload read back from storage is intact
func (s *StoredEpisode) Validate() error {
	if len(s.AudioBlob) == 0 {
		return ErrEmptyAudio
	}
	if int64(len(s.AudioBlob)) != s.Size {
		return fmt.Errorf("%w: have %d bytes, recorded %d", ErrSizeMismatch, len(s.AudioBlob), s.Size)
	}
	if Checksum(s.AudioBlob) != s.Checksum {
		return ErrChecksumMismatch
	}
	return nil
}

// WithoutBlob returns a copy that does not reference the audio payload
func (s StoredEpisode) WithoutBlob() StoredEpisode {
	s.AudioBlob = nil
	return s
}

// Checksum returns the hex SHA-256 of data
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
