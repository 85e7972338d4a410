package rest_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitquest/fitquest/model"
)

type rankingResponse struct {
	Ranking []struct {
		Rank        int    `json:"rank"`
		UserID      int64  `json:"user_id"`
		Username    string `json:"username"`
		Skillpoints int    `json:"skillpoints"`
	} `json:"ranking"`
}

func seedRankedUsers(t *testing.T, ts *testServer) (token string) {
	t.Helper()
	token, aliceID := ts.register(t, "alice")
	_, bobID := ts.register(t, "bob")
	_, carolID := ts.register(t, "carol")
	for id, points := range map[int64]int{aliceID: 10, bobID: 300, carolID: 150} {
		require.NoError(t, ts.db.Model(&model.User{}).Where("id = ?", id).
			Update("skillpoints", points).Error)
	}
	return token
}

func TestRankingFallsBackToDB(t *testing.T) {
	ts := newServer(t)
	token := seedRankedUsers(t, ts)

	// Cold cache: served from the DB in descending order.
	w := ts.do(http.MethodGet, "/api/ranking/skillpoints", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp rankingResponse
	decode(t, w, &resp)
	require.Len(t, resp.Ranking, 3)
	assert.Equal(t, "bob", resp.Ranking[0].Username)
	assert.Equal(t, 300, resp.Ranking[0].Skillpoints)
	assert.Equal(t, "carol", resp.Ranking[1].Username)
	assert.Equal(t, 1, resp.Ranking[0].Rank)

	// The fallback warmed the sorted set.
	members, err := ts.cache.ZRevRange(context.Background(), "ranking:skillpoints", 0, 2)
	require.NoError(t, err)
	require.Len(t, members, 3)
}

func TestRankingServedFromCache(t *testing.T) {
	ts := newServer(t)
	token := seedRankedUsers(t, ts)

	// Warm first, then mutate the DB; the cached order should stick but
	// usernames and live scores are joined in.
	w := ts.do(http.MethodGet, "/api/ranking/skillpoints", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/ranking/skillpoints?limit=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp rankingResponse
	decode(t, w, &resp)
	require.Len(t, resp.Ranking, 2)
	assert.Equal(t, "bob", resp.Ranking[0].Username)
	assert.Equal(t, "carol", resp.Ranking[1].Username)
}

func TestRankingRefresh(t *testing.T) {
	ts := newServer(t)
	seedRankedUsers(t, ts)

	w := ts.admin(http.MethodPost, "/api/admin/ranking/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Refreshed int `json:"refreshed"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 3, resp.Refreshed)

	score, err := ts.cache.ZScore(context.Background(), "ranking:skillpoints", "2")
	require.NoError(t, err)
	assert.Equal(t, float64(300), score)
}
