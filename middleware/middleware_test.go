package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/pulsefit-server/config"
	mw "github.com/pulsefit/pulsefit-server/middleware"
	"github.com/pulsefit/pulsefit-server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestToken_RoundTrip(t *testing.T) {
	token, err := mw.GenerateToken(42, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := mw.ParseToken(token, "secret")
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
}

func TestToken_WrongSecret(t *testing.T) {
	token, err := mw.GenerateToken(42, "secret", time.Hour)
	require.NoError(t, err)

	_, err = mw.ParseToken(token, "other")
	assert.Error(t, err)
}

func TestToken_Expired(t *testing.T) {
	token, err := mw.GenerateToken(42, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = mw.ParseToken(token, "secret")
	assert.Error(t, err)
}

func newAuthRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	kv := testutil.SetupTestCache(t)
	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTLH: time.Hour}

	token, err := mw.GenerateToken(7, sec.JWTSecret, sec.JWTTTLH)
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), mw.SessionKey(token), "7", time.Hour))

	r := gin.New()
	r.GET("/whoami", mw.Auth(sec, kv), func(c *gin.Context) {
		c.JSON(200, gin.H{"user_id": mw.GetUserID(c)})
	})
	return r, token
}

func TestAuth_ValidSession(t *testing.T) {
	r, token := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "7")
}

func TestAuth_MissingHeader(t *testing.T) {
	r, _ := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_UnknownSession(t *testing.T) {
	r, _ := newAuthRouter(t)

	// Validly signed token whose session was never stored (e.g. logged out).
	token, err := mw.GenerateToken(8, "test-secret", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw.RateLimit(rate.Limit(1), 2))
	r.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
}

func TestRequestID_GeneratedAndEchoed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw.RequestID())
	r.GET("/ping", func(c *gin.Context) { c.String(200, mw.GetRequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(mw.RequestIDHeader))
	assert.Equal(t, w.Header().Get(mw.RequestIDHeader), w.Body.String())

	// Inbound request ids are propagated, not replaced.
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(mw.RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(mw.RequestIDHeader))
}
