package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitquest/fitquest/api/rest"
	"github.com/fitquest/fitquest/cache"
	"github.com/fitquest/fitquest/config"
	"github.com/fitquest/fitquest/testutil"
)

func TestRegisterAndLogin(t *testing.T) {
	ts := newServer(t)

	token, userID := ts.register(t, "alice")
	assert.NotEmpty(t, token)
	assert.NotZero(t, userID)

	w := ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.Token)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	ts := newServer(t)
	ts.register(t, "alice")

	w := ts.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterInvalidEmail(t *testing.T) {
	ts := newServer(t)
	w := ts.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "not-an-email",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newServer(t)
	ts.register(t, "alice")

	w := ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutRevokesSession(t *testing.T) {
	ts := newServer(t)
	token, _ := ts.register(t, "alice")

	w := ts.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The JWT is still valid but its session is gone.
	w = ts.do(http.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	ts := newServer(t)
	token, _ := ts.register(t, "alice")

	w := ts.do(http.MethodPost, "/api/auth/refresh", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Token)

	// Old session is revoked, the new token works.
	w = ts.do(http.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = ts.do(http.MethodGet, "/api/users/me", resp.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	ts := newServer(t)
	w := ts.do(http.MethodGet, "/api/characters", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// brokenSessionCache fails session writes while delegating everything
// else to the real cache.
type brokenSessionCache struct {
	cache.Cache
}

func (b *brokenSessionCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.New("backend down")
}

func TestRegisterFailsWhenSessionWriteFails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTL: time.Hour}
	authH := rest.NewAuthHandler(db, &brokenSessionCache{Cache: c}, sec)

	r := gin.New()
	r.POST("/api/auth/register", authH.Register)

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// A token whose session never reached the cache would 401 on every
	// authenticated request, so issuing must fail loudly instead.
	require.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "token error")
}
