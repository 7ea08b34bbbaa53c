package downloads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/killallgit/podcast-player/pkg/download"
)

// ProxyPath is the backend route that relays episode audio
const ProxyPath = "/api/v1/proxy-audio"

type proxyRequest struct {
	AudioURL string `json:"audioUrl"`
}

type proxyErrorResponse struct {
	Error string `json:"error"`
}

// ProxyFetcher downloads audio through the backend's proxy endpoint so the
// client never talks to the audio host directly
type ProxyFetcher struct {
	endpoint   string
	downloader *download.Downloader
}

// NewProxyFetcher creates a fetcher for the backend at baseURL
func NewProxyFetcher(baseURL string, downloader *download.Downloader) *ProxyFetcher {
	return &ProxyFetcher{
		endpoint:   strings.TrimRight(baseURL, "/") + ProxyPath,
		downloader: downloader,
	}
}

// Fetch asks the proxy for audioURL and buffers the response
func (f *ProxyFetcher) Fetch(ctx context.Context, audioURL string, progress download.ProgressFunc) (*download.Result, error) {
	body, err := json.Marshal(proxyRequest{AudioURL: audioURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/*,*/*")

	stream, err := f.downloader.OpenRequest(req)
	if err != nil {
		var statusErr *download.StatusError
		if errors.As(err, &statusErr) {
			var payload proxyErrorResponse
			if json.Unmarshal(statusErr.Body, &payload) == nil && payload.Error != "" {
				return nil, fmt.Errorf("proxy error (%d): %s", statusErr.StatusCode, payload.Error)
			}
		}
		return nil, err
	}

	return stream.ReadAll(progress)
}
