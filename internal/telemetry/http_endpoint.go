package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PlaysPath is the backend route recording plays
const PlaysPath = "/api/v1/plays"

// HTTPEndpoint posts play reports to the backend
type HTTPEndpoint struct {
	endpoint string
	client   *http.Client
}

// NewHTTPEndpoint creates an endpoint for the backend at baseURL
func NewHTTPEndpoint(baseURL string, timeout time.Duration) *HTTPEndpoint {
	return &HTTPEndpoint{
		endpoint: strings.TrimRight(baseURL, "/") + PlaysPath,
		client:   &http.Client{Timeout: timeout},
	}
}

func (h *HTTPEndpoint) RecordPlay(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("play report failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			return fmt.Errorf("plays endpoint returned status %d: %s", resp.StatusCode, payload.Error)
		}
		return fmt.Errorf("plays endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
