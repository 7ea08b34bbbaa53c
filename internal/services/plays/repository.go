package plays

import (
	"context"
	"fmt"

	"github.com/killallgit/podcast-player/internal/models"
	"gorm.io/gorm"
)

// RepositoryImpl implements the Repository interface
type RepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new play repository
func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

// CreatePlay inserts a play
func (r *RepositoryImpl) CreatePlay(ctx context.Context, play *models.Play) error {
	if err := r.db.WithContext(ctx).Create(play).Error; err != nil {
		return fmt.Errorf("creating play: %w", err)
	}
	return nil
}

// CountPlays returns the number of plays across the given episodes
func (r *RepositoryImpl) CountPlays(ctx context.Context, episodeIDs []string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Play{}).
		Where("episode_id IN ?", episodeIDs).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting plays: %w", err)
	}
	return count, nil
}

// CountListeners returns the number of distinct signed-in users who played
// any of the given episodes
func (r *RepositoryImpl) CountListeners(ctx context.Context, episodeIDs []string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Play{}).
		Where("episode_id IN ? AND user_id IS NOT NULL", episodeIDs).
		Distinct("user_id").
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting listeners: %w", err)
	}
	return count, nil
}

// TopEpisodes returns the most played of the given episodes, most played first
func (r *RepositoryImpl) TopEpisodes(ctx context.Context, episodeIDs []string, limit int) ([]EpisodePlays, error) {
	var top []EpisodePlays
	if err := r.db.WithContext(ctx).
		Model(&models.Play{}).
		Select("episode_id, COUNT(*) AS plays").
		Where("episode_id IN ?", episodeIDs).
		Group("episode_id").
		Order("plays DESC, episode_id ASC").
		Limit(limit).
		Scan(&top).Error; err != nil {
		return nil, fmt.Errorf("ranking episodes: %w", err)
	}
	return top, nil
}
