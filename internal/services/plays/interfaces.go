package plays

import (
	"context"

	"github.com/killallgit/podcast-player/internal/models"
)

// EpisodePlays is the play count of one episode
type EpisodePlays struct {
	EpisodeID string `json:"episode_id"`
	Plays     int64  `json:"plays"`
}

// Stats summarizes plays across a set of episodes
type Stats struct {
	TotalPlays      int64          `json:"totalPlays"`
	UniqueListeners int64          `json:"uniqueListeners"`
	TopEpisodes     []EpisodePlays `json:"topEpisodes"`
}

// Repository defines the interface for play data access
type Repository interface {
	CreatePlay(ctx context.Context, play *models.Play) error
	CountPlays(ctx context.Context, episodeIDs []string) (int64, error)
	CountListeners(ctx context.Context, episodeIDs []string) (int64, error)
	TopEpisodes(ctx context.Context, episodeIDs []string, limit int) ([]EpisodePlays, error)
}

// Service defines the interface for recording and summarizing plays
type Service interface {
	// RecordPlay stores one play. country is the edge-supplied code, or
	// empty when unknown.
	RecordPlay(ctx context.Context, episodeID string, userID *string, country string) (*models.Play, error)
	Stats(ctx context.Context, episodeIDs []string) (*Stats, error)
}
