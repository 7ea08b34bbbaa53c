package types

import (
	apiAuth "github.com/killallgit/podcast-player/api/auth"
	"github.com/killallgit/podcast-player/internal/database"
	"github.com/killallgit/podcast-player/internal/services/cache"
	"github.com/killallgit/podcast-player/internal/services/plays"
	"github.com/killallgit/podcast-player/internal/services/profiles"
	"github.com/killallgit/podcast-player/pkg/download"
)

// Dependencies holds all the dependencies needed by handlers. Services left
// nil are built from DB when routes are registered.
type Dependencies struct {
	DB          *database.DB
	PlayService plays.Service
	Profiles    profiles.Repository
	Auth        apiAuth.TokenValidator
	Downloader  *download.Downloader
	StatsCache  cache.Cache
	Version     string
}
