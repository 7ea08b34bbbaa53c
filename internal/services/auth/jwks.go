package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrUnauthorized = errors.New("unauthorized - not a signed in user")
	ErrJWKSFetch    = errors.New("failed to fetch JWKS")
)

// AuthenticatedRole is the role Supabase puts on tokens of signed-in users
const AuthenticatedRole = "authenticated"

// DevUserID is the subject of the development bypass token
const DevUserID = "dev-user-001"

// Claims represents Supabase JWT claims
type Claims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Role  string `json:"role"`

	jwt.RegisteredClaims
}

// JWK represents a JSON Web Key
type JWK struct {
	Kty string `json:"kty"` // Key type
	Kid string `json:"kid"` // Key ID
	Use string `json:"use"`
	Alg string `json:"alg"`
	Crv string `json:"crv"` // Curve (for EC keys)
	X   string `json:"x"`
	Y   string `json:"y"`
}

// JWKS represents a JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// Service validates Supabase JWTs against the project's JWKS
type Service struct {
	jwksURL       string
	client        *http.Client
	keys          map[string]*ecdsa.PublicKey
	keysMutex     sync.RWMutex
	lastFetch     time.Time
	cacheDuration time.Duration
	refresh       singleflight.Group

	devAuthEnabled bool
	devAuthToken   string
}

// Option configures a Service
type Option func(*Service)

// WithHTTPClient sets the client used to fetch the key set
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) { s.client = client }
}

// WithCacheDuration sets how long fetched keys are trusted before a refresh
func WithCacheDuration(d time.Duration) Option {
	return func(s *Service) { s.cacheDuration = d }
}

// NewService creates an auth service and loads the initial key set
func NewService(ctx context.Context, jwksURL string, opts ...Option) (*Service, error) {
	if jwksURL == "" {
		return nil, fmt.Errorf("JWKS URL is required")
	}

	service := &Service{
		jwksURL:       jwksURL,
		client:        &http.Client{Timeout: 10 * time.Second},
		keys:          make(map[string]*ecdsa.PublicKey),
		cacheDuration: time.Hour,
	}
	for _, opt := range opts {
		opt(service)
	}

	if err := service.fetchJWKS(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch initial JWKS: %w", err)
	}

	return service, nil
}

// NewDevService creates a service that only accepts the development token.
// It is meant for local runs without a Supabase project.
func NewDevService(token string) *Service {
	s := &Service{keys: make(map[string]*ecdsa.PublicKey)}
	s.SetDevAuth(true, token)
	return s
}

// SetDevAuth configures development authentication bypass
func (s *Service) SetDevAuth(enabled bool, token string) {
	s.devAuthEnabled = enabled
	s.devAuthToken = token
}

func (s *Service) fetchJWKS(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSFetch, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: endpoint returned status %d", ErrJWKSFetch, resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("%w: failed to decode: %v", ErrJWKSFetch, err)
	}

	keys := make(map[string]*ecdsa.PublicKey, len(jwks.Keys))
	for _, jwk := range jwks.Keys {
		if jwk.Kty != "EC" || jwk.Alg != "ES256" {
			continue
		}
		pubKey, err := parseECKey(jwk)
		if err != nil {
			log.Printf("[WARN] Skipping JWK %s: %v", jwk.Kid, err)
			continue
		}
		keys[jwk.Kid] = pubKey
	}

	s.keysMutex.Lock()
	s.keys = keys
	s.lastFetch = time.Now()
	s.keysMutex.Unlock()

	log.Printf("[DEBUG] Loaded %d signing keys from JWKS", len(keys))
	return nil
}

// parseECKey converts a JWK to an ECDSA public key
func parseECKey(jwk JWK) (*ecdsa.PublicKey, error) {
	xBytes, err := base64.RawURLEncoding.DecodeString(jwk.X)
	if err != nil {
		return nil, fmt.Errorf("failed to decode X coordinate: %w", err)
	}

	yBytes, err := base64.RawURLEncoding.DecodeString(jwk.Y)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Y coordinate: %w", err)
	}

	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}

// getPublicKey retrieves a public key by kid, refreshing the key set when the
// kid is unknown or the cache is stale. Concurrent refreshes share one fetch.
func (s *Service) getPublicKey(ctx context.Context, kid string) (*ecdsa.PublicKey, error) {
	s.keysMutex.RLock()
	key, exists := s.keys[kid]
	stale := time.Since(s.lastFetch) > s.cacheDuration
	s.keysMutex.RUnlock()

	if s.jwksURL != "" && (!exists || stale) {
		_, err, _ := s.refresh.Do("jwks", func() (interface{}, error) {
			return nil, s.fetchJWKS(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to refresh JWKS: %w", err)
		}

		s.keysMutex.RLock()
		key, exists = s.keys[kid]
		s.keysMutex.RUnlock()
	}

	if !exists {
		return nil, fmt.Errorf("key with id %s not found", kid)
	}
	return key, nil
}

// ValidateToken validates a Supabase JWT and returns the claims
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	if s.devAuthEnabled && s.devAuthToken != "" &&
		subtle.ConstantTimeCompare([]byte(tokenString), []byte(s.devAuthToken)) == 1 {
		return s.GetDevClaims(), nil
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("no kid found in token header")
		}

		return s.getPublicKey(ctx, kid)
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		log.Printf("[DEBUG] Token rejected: %v", err)
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Sub == "" || claims.Role != AuthenticatedRole {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// GetDevClaims returns fixed claims for development mode
func (s *Service) GetDevClaims() *Claims {
	return &Claims{
		Sub:   DevUserID,
		Email: "dev@podcast-player.local",
		Role:  AuthenticatedRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(365 * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
}
