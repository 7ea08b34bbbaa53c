package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Environment  string          `mapstructure:"environment"`
	Server       ServerConfig    `mapstructure:"server"`
	Database     DatabaseConfig  `mapstructure:"database"`
	Backend      BackendConfig   `mapstructure:"backend"`
	Offline      OfflineConfig   `mapstructure:"offline"`
	Player       PlayerConfig    `mapstructure:"player"`
	Telemetry    TelemetryConfig `mapstructure:"telemetry"`
	Proxy        ProxyConfig     `mapstructure:"proxy"`
	Auth         AuthConfig      `mapstructure:"auth"`
	RateLimiting RateLimitConfig `mapstructure:"rate_limiting"`
	Security     SecurityConfig  `mapstructure:"security"`
	Cache        CacheConfig     `mapstructure:"cache"`
	Logging      LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
}

// DatabaseConfig contains backend database settings
type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	Verbose bool   `mapstructure:"verbose"`
}

// BackendConfig tells the player where the backend endpoints live
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OfflineConfig contains settings for the local download library
type OfflineConfig struct {
	Path string `mapstructure:"path"`
}

// PlayerConfig contains playback settings
type PlayerConfig struct {
	MPVPath       string `mapstructure:"mpv_path"`
	DefaultVolume int    `mapstructure:"default_volume"`
	ObjectURLAddr string `mapstructure:"object_url_addr"`
}

// TelemetryConfig contains play reporting settings
type TelemetryConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ProxyConfig contains settings for the audio proxy endpoint
type ProxyConfig struct {
	MaxSize   int64         `mapstructure:"max_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// AuthConfig contains Supabase authentication settings
type AuthConfig struct {
	JWKSURL        string `mapstructure:"jwks_url"`
	DevAuthEnabled bool   `mapstructure:"dev_auth_enabled"`
	DevAuthToken   string `mapstructure:"dev_auth_token"`
	AccessToken    string `mapstructure:"access_token"`
}

// RateLimitConfig contains rate limiting settings
type RateLimitConfig struct {
	Enabled   bool           `mapstructure:"enabled"`
	Endpoints map[string]int `mapstructure:"endpoints"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	EnableCORS     bool  `mapstructure:"enable_cors"`
	MaxRequestBody int64 `mapstructure:"max_request_body"`
}

// CacheConfig contains response cache settings
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	StatsTTL  time.Duration `mapstructure:"stats_ttl"`
	MaxSizeMB int64         `mapstructure:"max_size_mb"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}
