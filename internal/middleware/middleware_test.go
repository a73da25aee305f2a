package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func signed(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	authed := r.Group("", AuthMiddleware(secret))
	authed.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c), "role": GetUserRole(c)})
	})
	authed.GET("/admin", AdminOnly(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()
	exp := time.Now().Add(time.Hour).Unix()

	user := signed(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7", "role": "USER", "exp": exp})
	w := do(r, "/me", user)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7,"role":"USER"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "garbage").Code)

	expired := signed(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7", "exp": time.Now().Add(-time.Hour).Unix()})
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", expired).Code)

	wrongAlg := signed(t, jwt.SigningMethodHS512, jwt.MapClaims{"sub": "7", "exp": exp})
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", wrongAlg).Code)

	noSubject := signed(t, jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp})
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", noSubject).Code)
}

func TestAdminOnly(t *testing.T) {
	r := newRouter()
	exp := time.Now().Add(time.Hour).Unix()

	user := signed(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7", "role": "USER", "exp": exp})
	assert.Equal(t, http.StatusForbidden, do(r, "/admin", user).Code)

	admin := signed(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "role": "ADMIN", "exp": exp})
	assert.Equal(t, http.StatusNoContent, do(r, "/admin", admin).Code)
}

func TestRequestID_EchoesCallerID(t *testing.T) {
	r := newRouter()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
