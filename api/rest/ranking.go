package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fitquest/fitquest/cache"
	"github.com/fitquest/fitquest/model"
)

const rankingZKey = "ranking:skillpoints"
const rankingTop = 100

// RankingHandler handles the skillpoint leaderboard.
type RankingHandler struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *zap.Logger
}

// NewRankingHandler creates a RankingHandler.
func NewRankingHandler(db *gorm.DB, c cache.Cache, logger *zap.Logger) *RankingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankingHandler{db: db, cache: c, logger: logger}
}

// RankEntry is one row in the leaderboard.
type RankEntry struct {
	Rank        int    `json:"rank"`
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	Skillpoints int    `json:"skillpoints"`
}

// TopSkillpoints returns the users with the most skillpoints.
// GET /api/ranking/skillpoints?limit=20
func (h *RankingHandler) TopSkillpoints(c *gin.Context) {
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= rankingTop {
		limit = l
	}

	// Try the cached sorted set first.
	ctx := c.Request.Context()
	members, err := h.cache.ZRevRange(ctx, rankingZKey, 0, int64(limit-1))
	if err == nil && len(members) > 0 {
		entries := make([]RankEntry, 0, len(members))
		for i, m := range members {
			userID, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				continue
			}
			score, _ := h.cache.ZScore(ctx, rankingZKey, m)
			entries = append(entries, RankEntry{
				Rank:        i + 1,
				UserID:      userID,
				Skillpoints: int(score),
			})
		}
		h.enrichNames(entries)
		c.JSON(http.StatusOK, gin.H{"ranking": entries})
		return
	}

	// Fall back to the DB and warm the cache on the way out.
	var users []model.User
	h.db.Select("id, username, skillpoints").
		Order("skillpoints DESC").
		Limit(limit).
		Find(&users)

	entries := make([]RankEntry, len(users))
	for i, u := range users {
		entries[i] = RankEntry{
			Rank:        i + 1,
			UserID:      u.ID,
			Username:    u.Username,
			Skillpoints: u.Skillpoints,
		}
		_ = h.cache.ZAdd(ctx, rankingZKey, float64(u.Skillpoints), strconv.FormatInt(u.ID, 10))
	}
	c.JSON(http.StatusOK, gin.H{"ranking": entries})
}

// Refresh rebuilds the leaderboard sorted set from the DB.
// POST /api/admin/ranking/refresh
func (h *RankingHandler) Refresh(c *gin.Context) {
	n, err := h.RefreshNow(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": n})
}

// RefreshNow rebuilds the sorted set. Also called periodically by the
// scheduler.
func (h *RankingHandler) RefreshNow(ctx context.Context) (int, error) {
	var users []model.User
	err := h.db.Select("id, skillpoints").
		Order("skillpoints DESC").
		Limit(rankingTop).
		Find(&users).Error
	if err != nil {
		return 0, err
	}
	for _, u := range users {
		_ = h.cache.ZAdd(ctx, rankingZKey, float64(u.Skillpoints), strconv.FormatInt(u.ID, 10))
	}
	return len(users), nil
}

func (h *RankingHandler) enrichNames(entries []RankEntry) {
	if len(entries) == 0 {
		return
	}
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}
	var users []model.User
	h.db.Select("id, username, skillpoints").Where("id IN ?", ids).Find(&users)
	byID := make(map[int64]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for i := range entries {
		if u, ok := byID[entries[i].UserID]; ok {
			entries[i].Username = u.Username
			entries[i].Skillpoints = u.Skillpoints
		}
	}
}
