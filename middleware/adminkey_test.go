package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newAdminRouter(key string) *gin.Engine {
	r := gin.New()
	r.Use(AdminKey(key))
	r.GET("/admin", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })
	return r
}

func TestAdminKey_Valid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newAdminRouter("s3cret")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(AdminKeyHeader, "s3cret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminKey_Wrong(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newAdminRouter("s3cret")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(AdminKeyHeader, "nope")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminKey_DisabledWhenEmpty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newAdminRouter("")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
