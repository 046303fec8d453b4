package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidshare/backend/internal/auth"
)

func newAuthRouter(jwtService *auth.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", OwnerAuth(jwtService), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestOwnerAuthDisabledPassesThrough(t *testing.T) {
	r := newAuthRouter(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOwnerAuthRejectsMissingToken(t *testing.T) {
	r := newAuthRouter(auth.NewJWTService("test-secret", 24))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOwnerAuthRejectsInvalidToken(t *testing.T) {
	r := newAuthRouter(auth.NewJWTService("test-secret", 24))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOwnerAuthAcceptsHeaderToken(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 24)
	token, err := svc.Generate()
	require.NoError(t, err)

	r := newAuthRouter(svc)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOwnerAuthAcceptsQueryToken(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 24)
	token, err := svc.Generate()
	require.NoError(t, err)

	r := newAuthRouter(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
