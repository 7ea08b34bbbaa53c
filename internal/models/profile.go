package models

import "time"

// Subscription statuses stored on a profile
const (
	SubscriptionFree    = "free"
	SubscriptionPremium = "premium"
)

// Profile holds the per-user fields the player cares about
type Profile struct {
	ID                 string    `gorm:"primaryKey;size:191" json:"id"`
	SubscriptionStatus string    `gorm:"size:16;not null;default:free" json:"subscription_status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName returns the table name for the Profile model
func (Profile) TableName() string {
	return "profiles"
}

// IsPremium reports whether the profile is entitled to premium episodes
func (p *Profile) IsPremium() bool {
	return p != nil && p.SubscriptionStatus == SubscriptionPremium
}
