package middleware_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/bib-pipeline/internal/api/middleware"
	"github.com/feral-file/bib-pipeline/internal/logger"
)

func generateKeyPair(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func signToken(t *testing.T, key *rsa.PrivateKey, method jwt.SigningMethod, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestAuthenticate(t *testing.T) {
	key, publicPEM := generateKeyPair(t)
	otherKey, _ := generateKeyPair(t)
	cfg := middleware.AuthConfig{JWTPublicKey: publicPEM, APIKeys: []string{"k1", "k2"}}

	now := time.Now()
	valid := signToken(t, key, jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   "ops@example.com",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	expired := signToken(t, key, jwt.SigningMethodRS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
	})
	notYetValid := signToken(t, key, jwt.SigningMethodRS256, jwt.RegisteredClaims{
		NotBefore: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	wrongKey := signToken(t, otherKey, jwt.SigningMethodRS256, jwt.RegisteredClaims{})

	tests := []struct {
		name     string
		header   string
		success  bool
		authType string
		subject  string
	}{
		{name: "valid jwt", header: "Bearer " + valid, success: true, authType: middleware.AUTH_TYPE_JWT, subject: "ops@example.com"},
		{name: "expired jwt", header: "Bearer " + expired},
		{name: "jwt not yet valid", header: "Bearer " + notYetValid},
		{name: "jwt signed by another key", header: "Bearer " + wrongKey},
		{name: "valid api key", header: "ApiKey k2", success: true, authType: middleware.AUTH_TYPE_APIKEY},
		{name: "scheme is case insensitive", header: "apikey k1", success: true, authType: middleware.AUTH_TYPE_APIKEY},
		{name: "invalid api key", header: "ApiKey k3"},
		{name: "missing header", header: ""},
		{name: "malformed header", header: "Bearer"},
		{name: "unsupported scheme", header: "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := middleware.Authenticate(tt.header, cfg)
			assert.Equal(t, tt.success, result.Success)
			if !tt.success {
				assert.Error(t, result.Error)
				return
			}
			assert.Equal(t, tt.authType, result.AuthType)
			assert.Equal(t, tt.subject, result.AuthSubject)
		})
	}
}

func TestAuthenticate_RejectsHMACTokens(t *testing.T) {
	_, publicPEM := generateKeyPair(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString([]byte(publicPEM))
	require.NoError(t, err)

	result := middleware.Authenticate("Bearer "+token, middleware.AuthConfig{JWTPublicKey: publicPEM})
	assert.False(t, result.Success)
}

func TestAuthenticate_NothingConfigured(t *testing.T) {
	assert.False(t, middleware.Authenticate("ApiKey k1", middleware.AuthConfig{}).Success)
	assert.False(t, middleware.Authenticate("Bearer a.b.c", middleware.AuthConfig{}).Success)
}

func TestAuthMiddleware(t *testing.T) {
	require.NoError(t, logger.Initialize(logger.Config{Debug: true}))
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.GET("/protected", middleware.Auth(middleware.AuthConfig{APIKeys: []string{"k1"}}), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(middleware.AUTH_TYPE_KEY))
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "ApiKey k1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, middleware.AUTH_TYPE_APIKEY, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(middleware.REQUEST_ID_KEY))
	})

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.REQUEST_ID_HEADER, incoming)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, incoming, w.Body.String())
	assert.Equal(t, incoming, w.Header().Get(middleware.REQUEST_ID_HEADER))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.REQUEST_ID_HEADER, "not-a-uuid")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	_, err := uuid.Parse(w.Body.String())
	assert.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", w.Body.String())
}
