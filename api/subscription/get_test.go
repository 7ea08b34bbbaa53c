package subscription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiAuth "github.com/killallgit/podcast-player/api/auth"
	"github.com/killallgit/podcast-player/internal/database"
	"github.com/killallgit/podcast-player/internal/entitlement"
	"github.com/killallgit/podcast-player/internal/models"
	authService "github.com/killallgit/podcast-player/internal/services/auth"
	"github.com/killallgit/podcast-player/internal/services/profiles"
	"github.com/killallgit/podcast-player/internal/session"
)

const devToken = "local-dev"

func setupRouter(t *testing.T) (*gin.Engine, profiles.Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Initialize(database.MemoryPath, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate(&models.Profile{}))

	repo := profiles.NewRepository(db.DB)
	auth := apiAuth.NewHandler(authService.NewDevService(devToken))

	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), repo, auth.AuthMiddleware())
	return router, repo
}

func getStatus(router *gin.Engine, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscription", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestGet(t *testing.T) {
	router, repo := setupRouter(t)

	w := getStatus(router, devToken)
	require.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.SubscriptionFree, resp.SubscriptionStatus, "no profile means free")

	require.NoError(t, repo.SetSubscriptionStatus(context.Background(), authService.DevUserID, models.SubscriptionPremium))

	w = getStatus(router, devToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.SubscriptionPremium, resp.SubscriptionStatus)

	assert.Equal(t, http.StatusUnauthorized, getStatus(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, getStatus(router, "forged").Code)
}

func TestGet_ResolvesEntitlement(t *testing.T) {
	router, repo := setupRouter(t)
	require.NoError(t, repo.SetSubscriptionStatus(context.Background(), authService.DevUserID, models.SubscriptionPremium))

	server := httptest.NewServer(router)
	defer server.Close()

	gate := entitlement.NewGate(entitlement.NewHTTPSource(server.URL, time.Second))
	status := gate.Resolve(context.Background(), &session.Session{UserID: authService.DevUserID, AccessToken: devToken})
	assert.Equal(t, entitlement.StatusPremium, status)
	assert.True(t, gate.IsPremium())
}
