package proxy

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the audio proxy route
func RegisterRoutes(router *gin.RouterGroup, h *Handler) {
	// POST /api/v1/proxy-audio
	router.POST("/proxy-audio", h.ProxyAudio)
}
