package downloads

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/podcast-player/pkg/download"
)

func TestProxyFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ProxyPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req proxyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.AudioURL == "https://cdn.example.com/missing.mp3" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"upstream returned 404"}`))
			return
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("audio for " + req.AudioURL))
	}))
	defer server.Close()

	options := download.DefaultOptions()
	options.ValidateAudio = false
	fetcher := NewProxyFetcher(server.URL+"/", download.NewDownloader(options))

	t.Run("relays audio", func(t *testing.T) {
		result, err := fetcher.Fetch(context.Background(), "https://cdn.example.com/e1.mp3", nil)
		require.NoError(t, err)
		assert.Equal(t, "audio for https://cdn.example.com/e1.mp3", string(result.Data))
		assert.Equal(t, "audio/mpeg", result.ContentType)
	})

	t.Run("surfaces proxy error message", func(t *testing.T) {
		_, err := fetcher.Fetch(context.Background(), "https://cdn.example.com/missing.mp3", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upstream returned 404")
		assert.Contains(t, err.Error(), "502")
	})
}
