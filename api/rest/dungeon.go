package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fitquest/fitquest/game/dungeon"
	mw "github.com/fitquest/fitquest/middleware"
	"github.com/fitquest/fitquest/model"
)

// DungeonHandler handles dungeon REST endpoints.
type DungeonHandler struct {
	db  *gorm.DB
	svc *dungeon.Service
}

// NewDungeonHandler creates a new DungeonHandler.
func NewDungeonHandler(db *gorm.DB, svc *dungeon.Service) *DungeonHandler {
	return &DungeonHandler{db: db, svc: svc}
}

// List handles GET /api/dungeons.
func (h *DungeonHandler) List(c *gin.Context) {
	var dungeons []model.Dungeon
	if err := h.db.Order("req").Find(&dungeons).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dungeons": dungeons})
}

// Get handles GET /api/dungeons/:id.
func (h *DungeonHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var d model.Dungeon
	if err := h.db.First(&d, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Dungeon not found."})
		return
	}
	c.JSON(http.StatusOK, d)
}

type exploreBody struct {
	CharacterID int64 `json:"character_id" binding:"required"`
}

// Explore handles POST /api/dungeons/:id/explore.
func (h *DungeonHandler) Explore(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body exploreBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var ch model.Character
	if err := h.db.First(&ch, body.CharacterID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Character not found."})
		return
	}
	if ch.UserID != mw.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"message": "user_id must be the same as the character's user_id"})
		return
	}

	result, err := h.svc.Explore(c.Request.Context(), id, ch.ID)
	if err != nil {
		var levelErr *dungeon.LevelTooLowError
		var feeErr *dungeon.InsufficientSkillpointsError
		switch {
		case errors.As(err, &levelErr):
			c.JSON(http.StatusForbidden, gin.H{
				"message":  "Character's level is too low to explore this dungeon.",
				"required": levelErr.Required,
				"current":  levelErr.Current,
			})
		case errors.As(err, &feeErr):
			c.JSON(http.StatusForbidden, gin.H{
				"message": "Insufficient skillpoints to explore this dungeon.",
				"current": feeErr.Current,
				"cost":    feeErr.Required,
			})
		case errors.Is(err, dungeon.ErrInBattle):
			c.JSON(http.StatusForbidden, gin.H{"message": "Character is currently in battle."})
		case errors.Is(err, dungeon.ErrCharacterDead):
			c.JSON(http.StatusForbidden, gin.H{"message": "Cannot explore a dungeon with no health."})
		case errors.Is(err, dungeon.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Dungeon not found."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

type dungeonRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=64"`
	Description string `json:"description"`
	Req         *int   `json:"req"  binding:"required"`
	Fee         *int   `json:"fee"  binding:"required"`
}

// Create handles POST /api/admin/dungeons.
func (h *DungeonHandler) Create(c *gin.Context) {
	var req dungeonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *req.Req < 1 || *req.Fee < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid requirement or fee."})
		return
	}
	d := &model.Dungeon{Name: req.Name, Description: req.Description, Req: *req.Req, Fee: *req.Fee}
	if err := h.db.Create(d).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, d)
}

// Update handles PUT /api/admin/dungeons/:id.
func (h *DungeonHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req dungeonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *req.Req < 1 || *req.Fee < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid requirement or fee."})
		return
	}
	result := h.db.Model(&model.Dungeon{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":        req.Name,
		"description": req.Description,
		"req":         *req.Req,
		"fee":         *req.Fee,
	})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Dungeon not found."})
		return
	}
	var d model.Dungeon
	_ = h.db.First(&d, id).Error
	c.JSON(http.StatusOK, d)
}
