package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/linkfeed/config"
	"github.com/cppla/linkfeed/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "user=%s", CurrentUserID(ctx))
	})
	r.GET("/", handlers...)
	return r
}

func get(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "test-secret"})
	bl := utils.NewTokenBlacklist(utils.NewCache(nil))
	r := newEngine(AuthRequired(bl))

	token, err := utils.GenerateToken("user-1", time.Hour)
	require.NoError(t, err)

	w := get(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user=user-1", w.Body.String())

	for _, header := range []string{"", "Token " + token, "Bearer ", "Bearer garbage"} {
		w := get(r, header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		assert.Contains(t, w.Body.String(), `"error":"AuthFailure"`)
	}

	expired, err := utils.GenerateToken("user-1", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+expired).Code)

	claims, err := utils.ParseToken(token)
	require.NoError(t, err)
	bl.Revoke(context.Background(), claims.ID, claims.ExpiresAt.Time)
	w = get(r, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token revoked")
}

func TestAuthOptional(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "test-secret"})
	r := newEngine(AuthOptional(nil))

	assert.Equal(t, "user=", get(r, "").Body.String())
	assert.Equal(t, "user=", get(r, "Bearer garbage").Body.String())

	token, err := utils.GenerateToken("user-2", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "user=user-2", get(r, "Bearer "+token).Body.String())
}

func TestRateLimit(t *testing.T) {
	r := newEngine(RateLimit(2))

	// perMinute=2 gives a burst of one.
	assert.Equal(t, http.StatusOK, get(r, "").Code)
	w := get(r, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}
