package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once    sync.Once
	initErr error
)

// EnvPrefix is the prefix for environment variable overrides (PODPLAYER_SERVER_PORT, ...)
const EnvPrefix = "PODPLAYER"

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		initErr = load(filepath.Clean("./config/settings.yaml"))
	})

	return initErr
}

// load applies defaults, env overrides and the optional config file
func load(configPath string) error {
	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigFile(configPath)
	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine, we run on defaults and env vars
		if !os.IsNotExist(err) {
			return fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
	}

	if err := validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// validate validates the configuration using Viper values
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	if viper.GetString("backend.base_url") == "" {
		return fmt.Errorf("backend.base_url is required")
	}

	if viper.GetString("offline.path") == "" {
		log.Println("[WARN] No offline library path configured, downloads are disabled")
	}

	// Auto-correct an out of range default volume
	if v := viper.GetInt("player.default_volume"); v < 0 || v > 100 {
		viper.Set("player.default_volume", 70)
	}

	if viper.GetDuration("telemetry.debounce") <= 0 {
		viper.Set("telemetry.debounce", 10*time.Second)
	}

	env := viper.GetString("environment")
	isProduction := env == "production" || env == "prod"
	if isProduction && viper.GetBool("auth.dev_auth_enabled") {
		return fmt.Errorf("dev auth cannot be enabled in production")
	}

	return nil
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}

	if c.Player.DefaultVolume < 0 || c.Player.DefaultVolume > 100 {
		c.Player.DefaultVolume = 70
	}

	if c.Telemetry.Debounce <= 0 {
		c.Telemetry.Debounce = 10 * time.Second
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 5*time.Minute)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)

	// Backend database defaults
	viper.SetDefault("database.path", "./data/podcast.db")
	viper.SetDefault("database.verbose", false)

	// Player side defaults
	viper.SetDefault("backend.base_url", "http://localhost:8080")
	viper.SetDefault("backend.timeout", 5*time.Minute)
	viper.SetDefault("offline.path", "./data/offline.db")
	viper.SetDefault("player.mpv_path", "mpv")
	viper.SetDefault("player.default_volume", 70)
	viper.SetDefault("player.object_url_addr", "127.0.0.1:0")
	viper.SetDefault("telemetry.debounce", 10*time.Second)
	viper.SetDefault("telemetry.timeout", 10*time.Second)

	// Audio proxy defaults
	viper.SetDefault("proxy.max_size", 500*1024*1024)
	viper.SetDefault("proxy.timeout", 5*time.Minute)
	viper.SetDefault("proxy.user_agent", "PodcastPlayer/1.0")

	// Auth defaults
	viper.SetDefault("auth.jwks_url", "")
	viper.SetDefault("auth.dev_auth_enabled", false)
	viper.SetDefault("auth.dev_auth_token", "")
	viper.SetDefault("auth.access_token", "")

	// Rate limiting defaults (requests per second)
	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.endpoints", map[string]int{
		"proxy":        5,
		"plays":        20,
		"subscription": 10,
	})

	// Security defaults
	viper.SetDefault("security.enable_cors", true)
	viper.SetDefault("security.max_request_body", 1024*1024)

	// Response cache defaults
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.stats_ttl", 30*time.Second)
	viper.SetDefault("cache.max_size_mb", 16)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
}
