package subscription

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	apiAuth "github.com/killallgit/podcast-player/api/auth"
	"github.com/killallgit/podcast-player/internal/services/profiles"
)

// Response is the caller's subscription
type Response struct {
	SubscriptionStatus string `json:"subscription_status"`
}

// Get returns the signed-in user's subscription status
// @Summary Get subscription status
// @Description Subscription status of the signed-in user. Users without a profile are free.
// @Tags subscription
// @Security BearerAuth
// @Produce json
// @Success 200 {object} Response
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/subscription [get]
func Get(repo profiles.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(apiAuth.UserIDKey)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		status, err := repo.SubscriptionStatus(c.Request.Context(), userID)
		if err != nil {
			log.Printf("[ERROR] Failed to load subscription for %s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscription"})
			return
		}

		c.JSON(http.StatusOK, Response{SubscriptionStatus: status})
	}
}
