package version

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Get handles version requests
// @Summary API version
// @Tags version
// @Produce json
// @Success 200 {object} map[string]string
// @Router /version [get]
func Get(version string) gin.HandlerFunc {
	if version == "" {
		version = "dev"
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":        "Podcast Player API",
			"version":     version,
			"description": "Audio proxy, play recording and subscription lookups for the podcast player",
			"status":      "running",
		})
	}
}
