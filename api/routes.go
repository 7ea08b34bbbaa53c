package api

import (
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	apiAuth "github.com/killallgit/podcast-player/api/auth"
	"github.com/killallgit/podcast-player/api/health"
	"github.com/killallgit/podcast-player/api/middleware"
	"github.com/killallgit/podcast-player/api/plays"
	"github.com/killallgit/podcast-player/api/proxy"
	"github.com/killallgit/podcast-player/api/subscription"
	"github.com/killallgit/podcast-player/api/types"
	"github.com/killallgit/podcast-player/api/version"
	_ "github.com/killallgit/podcast-player/docs/swagger"
	"github.com/killallgit/podcast-player/internal/services/cache"
	playsService "github.com/killallgit/podcast-player/internal/services/plays"
	"github.com/killallgit/podcast-player/internal/services/profiles"
	"github.com/killallgit/podcast-player/pkg/config"
	"github.com/killallgit/podcast-player/pkg/download"
)

// default per-second budgets when rate_limiting.endpoints does not name a route
var defaultRates = map[string]int{
	"proxy":        5,
	"plays":        20,
	"subscription": 10,
}

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once) error {
	if deps == nil {
		deps = &types.Dependencies{}
	}

	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Register public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
	engine.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	engine.NoRoute(NotFoundHandler())

	v1 := engine.Group("/api/v1")

	limit := func(scope string) gin.HandlerFunc {
		if !cfg.RateLimiting.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		rps := cfg.RateLimiting.Endpoints[scope]
		if rps <= 0 {
			rps = defaultRates[scope]
		}
		return PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, scope, rps, rps*2)
	}

	// Audio proxy does not need the database
	if deps.Downloader == nil {
		deps.Downloader = download.NewDownloader(download.DownloadOptions{
			MaxSize:   cfg.Proxy.MaxSize,
			Timeout:   cfg.Proxy.Timeout,
			UserAgent: cfg.Proxy.UserAgent,
		})
	}
	proxy.RegisterRoutes(v1.Group("", limit("proxy")), proxy.NewHandler(deps.Downloader))

	if deps.DB != nil && deps.DB.DB != nil {
		if deps.PlayService == nil {
			deps.PlayService = playsService.NewService(playsService.NewRepository(deps.DB.DB))
		}
		if deps.Profiles == nil {
			deps.Profiles = profiles.NewRepository(deps.DB.DB)
		}
	}

	if deps.PlayService != nil {
		var statsMiddleware []gin.HandlerFunc
		if cfg.Cache.Enabled {
			if deps.StatsCache == nil {
				deps.StatsCache = cache.NewMemoryCache(cfg.Cache.MaxSizeMB)
			}
			statsMiddleware = append(statsMiddleware, middleware.ResponseCache(deps.StatsCache, cfg.Cache.StatsTTL))
		}
		plays.RegisterRoutes(v1.Group("/plays", limit("plays")), plays.NewHandler(deps.PlayService), statsMiddleware...)
	} else {
		log.Printf("[WARN] No database configured, play recording is disabled")
	}

	if deps.Auth != nil && deps.Profiles != nil {
		authHandler := apiAuth.NewHandler(deps.Auth)
		account := v1.Group("", limit("subscription"))
		subscription.RegisterRoutes(account, deps.Profiles, authHandler.AuthMiddleware())
		account.GET("/me", authHandler.AuthMiddleware(), authHandler.Me)
	} else {
		log.Printf("[WARN] No auth configured, subscription lookups are disabled")
	}

	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "error",
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
