package plays

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	playsService "github.com/killallgit/podcast-player/internal/services/plays"
)

// CountryHeader carries the ISO country code set by the Cloudflare edge
const CountryHeader = "CF-IPCountry"

// RecordPlayRequest is the body of a play report
type RecordPlayRequest struct {
	EpisodeID string  `json:"episode_id"`
	UserID    *string `json:"user_id"`
}

// Handler serves play endpoints
type Handler struct {
	service playsService.Service
}

// NewHandler creates a new plays handler
func NewHandler(service playsService.Service) *Handler {
	return &Handler{service: service}
}

// RecordPlay stores one play
// @Summary Record a play
// @Description Record that an episode started playing. The country comes from the CF-IPCountry header.
// @Tags plays
// @Accept json
// @Produce json
// @Param request body RecordPlayRequest true "Play report"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/plays [post]
func (h *Handler) RecordPlay(c *gin.Context) {
	var req RecordPlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	_, err := h.service.RecordPlay(c.Request.Context(), req.EpisodeID, req.UserID, c.GetHeader(CountryHeader))
	if err != nil {
		if errors.Is(err, playsService.ErrEpisodeIDRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Play recorded successfully"})
}

// GetStats summarizes plays of a set of episodes
// @Summary Play statistics
// @Description Total plays, unique signed-in listeners and the most played of the given episodes
// @Tags plays
// @Produce json
// @Param episode_id query []string true "Episode IDs" collectionFormat(multi)
// @Success 200 {object} playsService.Stats
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/plays/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	ids := c.QueryArray("episode_id")
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing episode_id"})
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
