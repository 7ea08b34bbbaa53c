package subscription

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/podcast-player/internal/services/profiles"
)

// RegisterRoutes registers subscription routes. authMiddleware must set the user id.
func RegisterRoutes(router *gin.RouterGroup, repo profiles.Repository, authMiddleware gin.HandlerFunc) {
	router.GET("/subscription", authMiddleware, Get(repo))
}
