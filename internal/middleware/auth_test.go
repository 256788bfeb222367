package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"acervo_backend/internal/auth"
	"acervo_backend/internal/config"
	"acervo_backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.JWT.Secret = "middleware-test-secret"
	cfg.JWT.TTL = 60
	config.AppConfig = cfg
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func get(router *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	router := gin.New()
	router.GET("/private", AuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserIDFrom(c)})
	})

	t.Run("missing header", func(t *testing.T) {
		rec := get(router, "/private", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := get(router, "/private", map[string]string{"Authorization": "Bearer nonsense"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := auth.GenerateToken("user-1", models.UserRoleUser)
		require.NoError(t, err)

		rec := get(router, "/private", map[string]string{"Authorization": "Bearer " + token})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "user-1")
	})
}

func TestRequireRoles(t *testing.T) {
	router := gin.New()
	router.GET("/admin", AuthMiddleware(), RequireRoles(models.UserRoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	t.Run("insufficient role", func(t *testing.T) {
		token, err := auth.GenerateToken("user-1", models.UserRoleUser)
		require.NoError(t, err)

		rec := get(router, "/admin", map[string]string{"Authorization": "Bearer " + token})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "FORBIDDEN", errorCode(t, rec))
	})

	t.Run("admin passes", func(t *testing.T) {
		token, err := auth.GenerateToken("admin-1", models.UserRoleAdmin)
		require.NoError(t, err)

		rec := get(router, "/admin", map[string]string{"Authorization": "Bearer " + token})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAPIKeyMiddleware(t *testing.T) {
	router := gin.New()
	router.GET("/hook", APIKeyMiddleware("hook-secret"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	t.Run("missing key", func(t *testing.T) {
		rec := get(router, "/hook", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
	})

	t.Run("valid key", func(t *testing.T) {
		rec := get(router, "/hook", map[string]string{"x-api-key": "hook-secret"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("empty configured key rejects everything", func(t *testing.T) {
		bare := gin.New()
		bare.GET("/hook", APIKeyMiddleware(""), func(c *gin.Context) { c.Status(http.StatusOK) })
		rec := get(bare, "/hook", map[string]string{"x-api-key": ""})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
