package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T)
	}{
		{
			name: "load from settings file",
			content: `
server:
  host: "127.0.0.1"
  port: 9000
backend:
  base_url: "http://backend.test"
offline:
  path: "./offline-test.db"
`,
			check: func(t *testing.T) {
				assert.Equal(t, 9000, GetInt("server.port"))
				assert.Equal(t, "http://backend.test", GetString("backend.base_url"))
				assert.Equal(t, "./offline-test.db", GetString("offline.path"))
			},
		},
		{
			name: "environment variable override",
			content: `
server:
  port: 8080
`,
			env: map[string]string{"PODPLAYER_SERVER_PORT": "9090"},
			check: func(t *testing.T) {
				assert.Equal(t, 9090, GetInt("server.port"))
			},
		},
		{
			name: "missing file falls back to defaults",
			check: func(t *testing.T) {
				assert.Equal(t, 8080, GetInt("server.port"))
				assert.Equal(t, 70, GetInt("player.default_volume"))
				assert.Equal(t, 10*time.Second, GetDuration("telemetry.debounce"))
				assert.Equal(t, "mpv", GetString("player.mpv_path"))
				assert.True(t, GetBool("cache.enabled"))
				assert.Equal(t, 30*time.Second, GetDuration("cache.stats_ttl"))
			},
		},
		{
			name: "out of range volume is corrected",
			content: `
player:
  default_volume: 250
`,
			check: func(t *testing.T) {
				assert.Equal(t, 70, GetInt("player.default_volume"))
			},
		},
		{
			name: "invalid port",
			content: `
server:
  port: 70000
`,
			wantErr: true,
		},
		{
			name: "dev auth rejected in production",
			content: `
environment: production
auth:
  dev_auth_enabled: true
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()

			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := filepath.Join(t.TempDir(), "settings.yaml")
			if tt.content != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			}

			err := load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t)
			}
		})
	}
}

func TestGetConfig(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	require.NoError(t, load(filepath.Join(t.TempDir(), "missing.yaml")))

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.Backend.BaseURL)
	assert.Equal(t, "./data/offline.db", cfg.Offline.Path)
	assert.Equal(t, 70, cfg.Player.DefaultVolume)
	assert.Equal(t, 5, cfg.RateLimiting.Endpoints["proxy"])
	assert.Equal(t, int64(500*1024*1024), cfg.Proxy.MaxSize)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				Server:  ServerConfig{Host: "localhost", Port: 8080},
				Backend: BackendConfig{BaseURL: "http://localhost:8080"},
			},
		},
		{
			name: "invalid port",
			config: &Config{
				Server:  ServerConfig{Host: "localhost", Port: 0},
				Backend: BackendConfig{BaseURL: "http://localhost:8080"},
			},
			wantErr: true,
		},
		{
			name: "missing backend url",
			config: &Config{
				Server: ServerConfig{Host: "localhost", Port: 8080},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, 10*time.Second, tt.config.Telemetry.Debounce)
		})
	}
}
