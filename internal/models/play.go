package models

import "time"

// UnknownCountry is recorded when the edge did not tag the request with a country
const UnknownCountry = "UNKNOWN"

// Play is one recorded listen of an episode
type Play struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EpisodeID string    `gorm:"index;not null" json:"episode_id"`
	UserID    *string   `gorm:"index" json:"user_id"`
	Country   string    `gorm:"size:16;not null;default:UNKNOWN" json:"country"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for the Play model
func (Play) TableName() string {
	return "plays"
}
