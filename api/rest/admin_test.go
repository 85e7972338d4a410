package rest_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mw "github.com/fitquest/fitquest/middleware"
	"github.com/fitquest/fitquest/model"
)

func TestAdminKeyRequired(t *testing.T) {
	ts := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/metrics", nil)
	w := httptest.NewRecorder()
	ts.r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/metrics", nil)
	req.Header.Set(mw.AdminKeyHeader, "wrong-key")
	w = httptest.NewRecorder()
	ts.r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminMetrics(t *testing.T) {
	ts := newServer(t)
	token, _ := ts.register(t, "alice")
	createCharacter(t, ts, token, "Hero")

	w := ts.admin(http.MethodGet, "/api/admin/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Counts         map[string]int64 `json:"counts"`
		OngoingBattles int64            `json:"ongoing_battles"`
		SchedulerTasks []string         `json:"scheduler_tasks"`
	}
	decode(t, w, &resp)
	assert.Equal(t, int64(1), resp.Counts["users"])
	assert.Equal(t, int64(1), resp.Counts["characters"])
	assert.Zero(t, resp.Counts["battles"])
	assert.Zero(t, resp.OngoingBattles)
}

func TestAdminAuditQuery(t *testing.T) {
	ts := newServer(t)
	one, two := int64(1), int64(2)
	for _, entry := range []model.AuditLog{
		{TraceID: "t1", UserID: &one, Action: "POST /api/characters", IP: "127.0.0.1"},
		{TraceID: "t2", UserID: &one, Action: "POST /api/auth/login", IP: "127.0.0.1"},
		{TraceID: "t3", UserID: &two, Action: "POST /api/auth/login", IP: "127.0.0.1"},
	} {
		require.NoError(t, ts.db.Create(&entry).Error)
	}

	w := ts.admin(http.MethodGet, "/api/admin/audit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Logs  []model.AuditLog `json:"logs"`
		Count int              `json:"count"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 3, resp.Count)

	w = ts.admin(http.MethodGet, "/api/admin/audit?user_id=1&action=POST+/api/auth/login", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	require.Equal(t, 1, resp.Count)
	require.NotNil(t, resp.Logs[0].UserID)
	assert.Equal(t, int64(1), *resp.Logs[0].UserID)
}

func TestAdminSchedulerTasks(t *testing.T) {
	ts := newServer(t)

	w := ts.admin(http.MethodGet, "/api/admin/scheduler", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Tasks []string `json:"tasks"`
	}
	decode(t, w, &resp)
	assert.Empty(t, resp.Tasks)
}
