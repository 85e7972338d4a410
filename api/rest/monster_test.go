package rest_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitquest/fitquest/model"
)

func TestCreateAndListMonsters(t *testing.T) {
	ts := newServer(t)
	token, _ := ts.register(t, "alice")

	for _, m := range []map[string]interface{}{
		{"name": "Dragon", "element": model.ElementFire, "health": 300, "power": 40, "level": 12},
		{"name": "Goblin", "element": model.ElementEarth, "health": 60, "power": 5, "level": 1},
	} {
		w := ts.admin(http.MethodPost, "/api/admin/monsters", m)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := ts.do(http.MethodGet, "/api/monsters", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Monsters []model.Monster `json:"monsters"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Monsters, 2)
	// Ordered by level.
	assert.Equal(t, "Goblin", resp.Monsters[0].Name)
	assert.Equal(t, "Dragon", resp.Monsters[1].Name)
}

func TestCreateMonsterValidation(t *testing.T) {
	ts := newServer(t)

	w := ts.admin(http.MethodPost, "/api/admin/monsters", map[string]interface{}{
		"name": "Void", "element": "Plasma", "health": 10, "power": 1, "level": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.admin(http.MethodPost, "/api/admin/monsters", map[string]interface{}{
		"name": "Husk", "element": model.ElementDarkness, "health": 0, "power": 1, "level": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMonsterNotFound(t *testing.T) {
	ts := newServer(t)
	token, _ := ts.register(t, "alice")
	w := ts.do(http.MethodGet, "/api/monsters/42", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
