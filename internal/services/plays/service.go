package plays

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/killallgit/podcast-player/internal/models"
)

// TopEpisodesLimit is how many episodes Stats ranks
const TopEpisodesLimit = 5

// ErrEpisodeIDRequired is returned when a play names no episode
var ErrEpisodeIDRequired = errors.New("Missing episode_id")

// ServiceImpl implements the Service interface
type ServiceImpl struct {
	repository Repository
}

// NewService creates a new play service
func NewService(repository Repository) Service {
	return &ServiceImpl{repository: repository}
}

// RecordPlay validates and stores a play
func (s *ServiceImpl) RecordPlay(ctx context.Context, episodeID string, userID *string, country string) (*models.Play, error) {
	episodeID = strings.TrimSpace(episodeID)
	if episodeID == "" {
		return nil, ErrEpisodeIDRequired
	}

	if userID != nil && strings.TrimSpace(*userID) == "" {
		userID = nil
	}

	country = strings.TrimSpace(country)
	if country == "" {
		country = models.UnknownCountry
	}

	play := &models.Play{
		EpisodeID: episodeID,
		UserID:    userID,
		Country:   country,
	}
	if err := s.repository.CreatePlay(ctx, play); err != nil {
		log.Printf("[ERROR] Failed to record play for episode %s: %v", episodeID, err)
		return nil, err
	}

	log.Printf("[DEBUG] Recorded play %d for episode %s from %s", play.ID, episodeID, play.Country)
	return play, nil
}

// Stats summarizes plays of the given episodes. No episodes yields zeroes.
func (s *ServiceImpl) Stats(ctx context.Context, episodeIDs []string) (*Stats, error) {
	stats := &Stats{TopEpisodes: []EpisodePlays{}}

	ids := make([]string, 0, len(episodeIDs))
	seen := make(map[string]struct{}, len(episodeIDs))
	for _, id := range episodeIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return stats, nil
	}

	var err error
	if stats.TotalPlays, err = s.repository.CountPlays(ctx, ids); err != nil {
		return nil, err
	}
	if stats.UniqueListeners, err = s.repository.CountListeners(ctx, ids); err != nil {
		return nil, err
	}
	top, err := s.repository.TopEpisodes(ctx, ids, TopEpisodesLimit)
	if err != nil {
		return nil, err
	}
	if top != nil {
		stats.TopEpisodes = top
	}
	return stats, nil
}
