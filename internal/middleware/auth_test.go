package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gembot-go/pkg/token"
)

func newAuthTestRouter(jwtManager *token.JWTManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", AdminAuthMiddleware(jwtManager), func(c *gin.Context) {
		claims := c.MustGet("claims").(*token.CustomClaims)
		c.JSON(http.StatusOK, gin.H{"username": claims.Username})
	})
	return r
}

func doGet(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminAuthMiddleware(t *testing.T) {
	jwtManager := token.NewJWTManager("test-secret", 1)
	r := newAuthTestRouter(jwtManager)

	t.Run("missing header", func(t *testing.T) {
		w := doGet(r, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		w := doGet(r, "Token abc")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := doGet(r, "Bearer not.a.token")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("non-admin role", func(t *testing.T) {
		tok, err := jwtManager.GenerateToken(2, "viewer", "VIEWER")
		require.NoError(t, err)
		w := doGet(r, "Bearer "+tok)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("valid admin token", func(t *testing.T) {
		tok, err := jwtManager.GenerateToken(1, "admin", "ADMIN")
		require.NoError(t, err)
		w := doGet(r, "Bearer "+tok)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "admin")
	})
}
