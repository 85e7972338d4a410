package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fitquest/fitquest/model"
)

// ItemHandler handles the item catalog REST endpoints.
type ItemHandler struct {
	db *gorm.DB
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(db *gorm.DB) *ItemHandler {
	return &ItemHandler{db: db}
}

// List handles GET /api/items.
func (h *ItemHandler) List(c *gin.Context) {
	var items []model.Item
	if err := h.db.Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Get handles GET /api/items/:id.
func (h *ItemHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var item model.Item
	if err := h.db.First(&item, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Item not found."})
		return
	}
	c.JSON(http.StatusOK, item)
}

type itemRequest struct {
	Name    string `json:"name"    binding:"required,min=1,max=64"`
	Slot    string `json:"slot"    binding:"required"`
	Rarity  string `json:"rarity"  binding:"required"`
	Power   *int   `json:"power"   binding:"required"`
	Element string `json:"element" binding:"required"`
	Req     *int   `json:"req"     binding:"required"`
	Special bool   `json:"special"`
}

func validItem(c *gin.Context, req *itemRequest) bool {
	switch req.Slot {
	case model.SlotWeapon, model.SlotHelmet, model.SlotChestplate,
		model.SlotLeggings, model.SlotBoots, model.SlotPotion:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid slot."})
		return false
	}
	switch req.Rarity {
	case model.RarityCommon, model.RarityRare, model.RarityEpic, model.RarityLegendary:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid rarity."})
		return false
	}
	if !model.ValidElement(req.Element) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid element."})
		return false
	}
	return true
}

// Create handles POST /api/admin/items.
func (h *ItemHandler) Create(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validItem(c, &req) {
		return
	}
	item := &model.Item{
		Name:    req.Name,
		Slot:    req.Slot,
		Rarity:  req.Rarity,
		Power:   *req.Power,
		Element: req.Element,
		Req:     *req.Req,
		Special: req.Special,
	}
	if err := h.db.Create(item).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"message": "Name already in use."})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusCreated, item)
}

// Update handles PUT /api/admin/items/:id.
func (h *ItemHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validItem(c, &req) {
		return
	}
	result := h.db.Model(&model.Item{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":    req.Name,
		"slot":    req.Slot,
		"rarity":  req.Rarity,
		"power":   *req.Power,
		"element": req.Element,
		"req":     *req.Req,
		"special": req.Special,
	})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			c.JSON(http.StatusConflict, gin.H{"message": "Name already in use."})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Item not found."})
		return
	}
	var item model.Item
	_ = h.db.First(&item, id).Error
	c.JSON(http.StatusOK, item)
}
