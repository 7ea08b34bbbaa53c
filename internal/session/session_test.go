package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestFromAccessToken(t *testing.T) {
	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantSub string
		wantErr error
	}{
		{
			name: "valid token",
			token: func(t *testing.T) string {
				return signed(t, jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()})
			},
			wantSub: "user-1",
		},
		{
			name:    "no expiry",
			token:   func(t *testing.T) string { return signed(t, jwt.MapClaims{"sub": "user-2"}) },
			wantSub: "user-2",
		},
		{
			name:    "missing subject",
			token:   func(t *testing.T) string { return signed(t, jwt.MapClaims{"role": "anon"}) },
			wantErr: ErrInvalidToken,
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				return signed(t, jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(-time.Hour).Unix()})
			},
			wantErr: ErrTokenExpired,
		},
		{
			name:    "garbage",
			token:   func(t *testing.T) string { return "not-a-jwt" },
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := tt.token(t)
			s, err := FromAccessToken(token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSub, s.UserID)
			assert.Equal(t, token, s.AccessToken)
		})
	}
}

func TestStatic(t *testing.T) {
	anon, err := NewStatic("")
	require.NoError(t, err)
	s, err := anon.Session(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)

	p, err := NewStatic(signed(t, jwt.MapClaims{"sub": "user-9"}))
	require.NoError(t, err)
	s, err = p.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-9", s.UserID)

	_, err = NewStatic("bad")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
