package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authService "github.com/killallgit/podcast-player/internal/services/auth"
)

// MockValidator is a mock implementation of TokenValidator
type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) ValidateToken(ctx context.Context, token string) (*authService.Claims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authService.Claims), args.Error(1)
}

func setupTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	protected := router.Group("/", h.AuthMiddleware())
	protected.GET("/me", h.Me)
	return router
}

func TestAuthMiddleware(t *testing.T) {
	user := &authService.Claims{Sub: "user-123", Email: "test@example.com", Role: authService.AuthenticatedRole}

	tests := []struct {
		name       string
		header     string
		setup      func(m *MockValidator)
		wantStatus int
		wantError  string
	}{
		{
			name:       "valid token",
			header:     "Bearer good",
			setup:      func(m *MockValidator) { m.On("ValidateToken", mock.Anything, "good").Return(user, nil) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header",
			setup:      func(m *MockValidator) {},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Authorization header required",
		},
		{
			name:       "wrong scheme",
			header:     "Basic dXNlcjpwYXNz",
			setup:      func(m *MockValidator) {},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid authorization header format",
		},
		{
			name:       "expired token",
			header:     "Bearer old",
			setup:      func(m *MockValidator) { m.On("ValidateToken", mock.Anything, "old").Return(nil, authService.ErrTokenExpired) },
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid or expired token",
		},
		{
			name:       "not signed in",
			header:     "Bearer anon",
			setup:      func(m *MockValidator) { m.On("ValidateToken", mock.Anything, "anon").Return(nil, authService.ErrUnauthorized) },
			wantStatus: http.StatusForbidden,
			wantError:  "Access denied - sign in required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := new(MockValidator)
			tt.setup(validator)
			router := setupTestRouter(NewHandler(validator))

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantError != "" {
				var response map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.Equal(t, tt.wantError, response["error"])
				return
			}

			var info UserInfo
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
			assert.Equal(t, UserInfo{ID: "user-123", Email: "test@example.com", Role: authService.AuthenticatedRole}, info)
			validator.AssertExpectations(t)
		})
	}
}

func TestHandler_Me_MissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/me", nil)

	(&Handler{}).Me(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_DevService(t *testing.T) {
	router := setupTestRouter(NewHandler(authService.NewDevService("local-dev")))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer local-dev")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var info UserInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, authService.DevUserID, info.ID)
}
