package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/killallgit/podcast-player/internal/models"
	"github.com/killallgit/podcast-player/internal/session"
)

// SubscriptionPath is the backend route reporting the caller's subscription
const SubscriptionPath = "/api/v1/subscription"

type subscriptionResponse struct {
	SubscriptionStatus string `json:"subscription_status"`
}

// HTTPSource asks the backend for the signed-in user's subscription
type HTTPSource struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSource creates a source for the backend at baseURL
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		endpoint: strings.TrimRight(baseURL, "/") + SubscriptionPath,
		client:   &http.Client{Timeout: timeout},
	}
}

// SubscriptionStatus returns the raw status string. A user without a
// profile is free.
func (h *HTTPSource) SubscriptionStatus(ctx context.Context, s *session.Session) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("subscription request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return models.SubscriptionFree, nil
	default:
		return "", fmt.Errorf("subscription endpoint returned status %d", resp.StatusCode)
	}

	var body subscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode subscription response: %w", err)
	}
	return body.SubscriptionStatus, nil
}
