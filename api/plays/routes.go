package plays

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers play routes. statsMiddleware runs in front of
// the stats endpoint only.
func RegisterRoutes(router *gin.RouterGroup, h *Handler, statsMiddleware ...gin.HandlerFunc) {
	// POST /api/v1/plays - Record a play
	router.POST("", h.RecordPlay)

	// GET /api/v1/plays/stats - Summarize plays
	router.GET("/stats", append(statsMiddleware, h.GetStats)...)
}
