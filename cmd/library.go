package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/killallgit/podcast-player/internal/downloads"
	"github.com/killallgit/podcast-player/internal/models"
	"github.com/killallgit/podcast-player/internal/notice"
	"github.com/killallgit/podcast-player/internal/offline"
	"github.com/killallgit/podcast-player/pkg/config"
	"github.com/killallgit/podcast-player/pkg/download"
	"github.com/spf13/cobra"
)

var (
	episodeID      string
	episodeURL     string
	episodeTitle   string
	episodePremium bool
)

// addEpisodeFlags registers the flags describing an episode on cmd
func addEpisodeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&episodeID, "id", "", "episode id")
	cmd.Flags().StringVar(&episodeURL, "url", "", "episode audio URL")
	cmd.Flags().StringVar(&episodeTitle, "title", "", "episode title")
	cmd.Flags().BoolVar(&episodePremium, "premium", false, "episode requires a premium subscription")
}

// episodeFromFlags builds the episode named on the command line. When only
// an id is given the offline library supplies the rest.
func episodeFromFlags(ctx context.Context, manager *downloads.Manager) (models.Episode, error) {
	if episodeID == "" {
		return models.Episode{}, fmt.Errorf("--id is required")
	}
	if episodeURL == "" && manager != nil && manager.IsDownloaded(episodeID) {
		stored, err := manager.Load(ctx, episodeID)
		if err == nil {
			return stored.Episode(), nil
		}
		log.Printf("[WARN] Failed to read stored episode %s: %v", episodeID, err)
	}

	title := episodeTitle
	if title == "" {
		title = episodeID
	}
	return models.Episode{
		ID:        episodeID,
		Title:     title,
		AudioURL:  episodeURL,
		IsPremium: episodePremium,
	}, nil
}

// library is the offline store plus the download manager in front of it
type library struct {
	store   *offline.Store
	manager *downloads.Manager
}

// openLibrary prepares the offline library. A library that cannot be read
// still yields a manager so playback can stream.
func openLibrary(ctx context.Context, cfg *config.Config, notifier notice.Notifier) *library {
	store := offline.NewStore(cfg.Offline.Path, cfg.Database.Verbose)

	downloader := download.NewDownloader(download.DownloadOptions{
		MaxSize:   cfg.Proxy.MaxSize,
		Timeout:   cfg.Backend.Timeout,
		UserAgent: cfg.Proxy.UserAgent,
	})
	fetcher := downloads.NewProxyFetcher(cfg.Backend.BaseURL, downloader)

	manager := downloads.NewManager(store, fetcher, notifier)
	if err := manager.Refresh(ctx); err != nil {
		log.Printf("[WARN] Offline library unavailable, streaming only: %v", err)
	}
	return &library{store: store, manager: manager}
}

func (l *library) Close() error {
	return l.store.Close()
}
