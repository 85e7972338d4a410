package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fitquest/fitquest/model"
)

// MonsterHandler handles the monster catalog REST endpoints.
type MonsterHandler struct {
	db *gorm.DB
}

// NewMonsterHandler creates a new MonsterHandler.
func NewMonsterHandler(db *gorm.DB) *MonsterHandler {
	return &MonsterHandler{db: db}
}

// List handles GET /api/monsters.
func (h *MonsterHandler) List(c *gin.Context) {
	var monsters []model.Monster
	if err := h.db.Order("level").Find(&monsters).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"monsters": monsters})
}

// Get handles GET /api/monsters/:id.
func (h *MonsterHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var monster model.Monster
	if err := h.db.First(&monster, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Monster not found."})
		return
	}
	c.JSON(http.StatusOK, monster)
}

type monsterRequest struct {
	Name    string `json:"name"    binding:"required,min=1,max=64"`
	Element string `json:"element" binding:"required"`
	Health  *int   `json:"health"  binding:"required"`
	Power   *int   `json:"power"   binding:"required"`
	Level   *int   `json:"level"   binding:"required"`
}

// Create handles POST /api/admin/monsters.
func (h *MonsterHandler) Create(c *gin.Context) {
	var req monsterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !model.ValidElement(req.Element) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid element."})
		return
	}
	if *req.Health <= 0 || *req.Level < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid health or level."})
		return
	}
	monster := &model.Monster{
		Name:    req.Name,
		Element: req.Element,
		Health:  *req.Health,
		Power:   *req.Power,
		Level:   *req.Level,
	}
	if err := h.db.Create(monster).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, monster)
}
