package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/podcast-player/internal/services/auth"
)

// Context keys set by AuthMiddleware
const (
	ClaimsKey = "claims"
	UserIDKey = "user_id"
)

// TokenValidator checks a bearer token
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.Claims, error)
}

// UserInfo represents public user information
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Handler manages auth endpoints
type Handler struct {
	validator TokenValidator
}

// NewHandler creates a new auth handler
func NewHandler(validator TokenValidator) *Handler {
	return &Handler{validator: validator}
}

// Me returns current user info from JWT
// @Summary Get current user
// @Description Get current user information from Supabase JWT token
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} UserInfo
// @Failure 401 {object} map[string]string
// @Router /api/v1/me [get]
func (h *Handler) Me(c *gin.Context) {
	value, exists := c.Get(ClaimsKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	claims := value.(*auth.Claims)
	c.JSON(http.StatusOK, UserInfo{ID: claims.Sub, Email: claims.Email, Role: claims.Role})
}

// AuthMiddleware validates Supabase JWT tokens
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims, err := h.validator.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied - sign in required"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			}
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, claims.Sub)
		c.Next()
	}
}
