package rest_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitquest/fitquest/model"
)

func TestMe(t *testing.T) {
	ts := newServer(t)
	token, userID := ts.register(t, "alice")

	w := ts.do(http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var user map[string]interface{}
	decode(t, w, &user)
	assert.EqualValues(t, userID, user["user_id"])
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, user, "password_hash")
}

func TestGetUserByUsername(t *testing.T) {
	ts := newServer(t)
	token, _ := ts.register(t, "alice")
	ts.register(t, "bob")

	w := ts.do(http.MethodGet, "/api/users/username/bob", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var user model.User
	decode(t, w, &user)
	assert.Equal(t, "bob", user.Username)

	w = ts.do(http.MethodGet, "/api/users/username/nobody", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateUser(t *testing.T) {
	ts := newServer(t)
	token, userID := ts.register(t, "alice")

	w := ts.do(http.MethodPut, "/api/users/me", token, map[string]string{
		"username": "alicia",
		"email":    "alicia@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var user model.User
	decode(t, w, &user)
	assert.Equal(t, "alicia", user.Username)

	var row model.User
	require.NoError(t, ts.db.First(&row, userID).Error)
	assert.Equal(t, "alicia@example.com", row.Email)
}

func TestUpdateUserKeepOwnName(t *testing.T) {
	ts := newServer(t)
	token, _ := ts.register(t, "alice")

	// Re-submitting the caller's own username is not a collision.
	w := ts.do(http.MethodPut, "/api/users/me", token, map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestUpdateUserCollision(t *testing.T) {
	ts := newServer(t)
	token, _ := ts.register(t, "alice")
	ts.register(t, "bob")

	w := ts.do(http.MethodPut, "/api/users/me", token, map[string]string{
		"username": "bob",
		"email":    "alice@example.com",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateUserInvalidEmail(t *testing.T) {
	ts := newServer(t)
	token, _ := ts.register(t, "alice")

	w := ts.do(http.MethodPut, "/api/users/me", token, map[string]string{
		"username": "alice",
		"email":    "nope",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSkillpointsEndpoint(t *testing.T) {
	ts := newServer(t)
	token, userID := ts.register(t, "alice")
	require.NoError(t, ts.db.Model(&model.User{}).Where("id = ?", userID).
		Update("skillpoints", 42).Error)

	w := ts.do(http.MethodGet, "/api/users/me/skillpoints", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Skillpoints int `json:"skillpoints"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 42, resp.Skillpoints)
}
