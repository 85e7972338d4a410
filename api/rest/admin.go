package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fitquest/fitquest/model"
	"github.com/fitquest/fitquest/scheduler"
)

// AdminHandler handles admin-only REST endpoints.
// Routes must sit behind the admin key and IP whitelist middleware.
type AdminHandler struct {
	db     *gorm.DB
	sched  *scheduler.Scheduler
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(db *gorm.DB, sched *scheduler.Scheduler, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{db: db, sched: sched, logger: logger}
}

// Metrics returns row counts for the main tables.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	counts := gin.H{}
	for name, m := range map[string]interface{}{
		"users":           &model.User{},
		"characters":      &model.Character{},
		"battles":         &model.Battle{},
		"battle_requests": &model.BattleRequest{},
		"challenges":      &model.Challenge{},
		"dungeons":        &model.Dungeon{},
	} {
		var n int64
		if err := h.db.Model(m).Count(&n).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		counts[name] = n
	}

	var ongoing int64
	if err := h.db.Model(&model.Battle{}).Where("finished = ?", false).Count(&ongoing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"counts":          counts,
		"ongoing_battles": ongoing,
		"scheduler_tasks": h.sched.ListTickers(),
	})
}

// ListSchedulerTasks returns names of all registered ticker tasks.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.ListTickers()})
}

// AuditQuery returns recent audit log entries, optionally filtered.
// GET /api/admin/audit?user_id=&action=&limit=
func (h *AdminHandler) AuditQuery(c *gin.Context) {
	limit := 100
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 1000 {
		limit = l
	}

	q := h.db.Model(&model.AuditLog{}).Order("created_at DESC").Limit(limit)
	if raw := c.Query("user_id"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		q = q.Where("user_id = ?", userID)
	}
	if action := c.Query("action"); action != "" {
		q = q.Where("action = ?", action)
	}

	var logs []model.AuditLog
	if err := q.Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
}
