package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/killallgit/podcast-player/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidStatus is returned for a subscription status other than free or premium
var ErrInvalidStatus = errors.New("invalid subscription status")

// Repository defines the interface for profile data access
type Repository interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	SubscriptionStatus(ctx context.Context, userID string) (string, error)
	SetSubscriptionStatus(ctx context.Context, userID, status string) error
}

// RepositoryImpl implements the Repository interface
type RepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new profile repository
func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

// GetProfile returns the profile of userID, or nil when there is none
func (r *RepositoryImpl) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return &profile, nil
}

// SubscriptionStatus returns the user's status. Users without a profile are free.
func (r *RepositoryImpl) SubscriptionStatus(ctx context.Context, userID string) (string, error) {
	profile, err := r.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	if profile.IsPremium() {
		return models.SubscriptionPremium, nil
	}
	return models.SubscriptionFree, nil
}

// SetSubscriptionStatus creates or updates the user's profile with status
func (r *RepositoryImpl) SetSubscriptionStatus(ctx context.Context, userID, status string) error {
	if status != models.SubscriptionFree && status != models.SubscriptionPremium {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	profile := &models.Profile{ID: userID, SubscriptionStatus: status}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"subscription_status", "updated_at"}),
	}).Create(profile).Error; err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}
