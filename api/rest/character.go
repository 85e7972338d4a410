package rest

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fitquest/fitquest/config"
	"github.com/fitquest/fitquest/game/progression"
	mw "github.com/fitquest/fitquest/middleware"
	"github.com/fitquest/fitquest/model"
)

// CharacterHandler handles character REST endpoints.
type CharacterHandler struct {
	db   *gorm.DB
	game config.GameConfig
}

// NewCharacterHandler creates a new CharacterHandler.
func NewCharacterHandler(db *gorm.DB, game config.GameConfig) *CharacterHandler {
	return &CharacterHandler{db: db, game: game}
}

// characterView is a character together with its derived stats.
type characterView struct {
	model.Character
	progression.Stats
}

func (h *CharacterHandler) view(ch *model.Character) (*characterView, error) {
	equipment, err := equippedItems(h.db, ch.ID)
	if err != nil {
		return nil, err
	}
	return &characterView{Character: *ch, Stats: progression.Compute(ch, equipment)}, nil
}

// List handles GET /api/characters (the caller's characters).
func (h *CharacterHandler) List(c *gin.Context) {
	var chars []model.Character
	if err := h.db.Where("user_id = ?", mw.GetUserID(c)).Find(&chars).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	views := make([]characterView, 0, len(chars))
	for i := range chars {
		v, err := h.view(&chars[i])
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		views = append(views, *v)
	}
	c.JSON(http.StatusOK, gin.H{"characters": views})
}

// Get handles GET /api/characters/:id.
func (h *CharacterHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var ch model.Character
	if err := h.db.First(&ch, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Character not found."})
		return
	}
	v, err := h.view(&ch)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, v)
}

type createCharacterRequest struct {
	Name    string `json:"name"    binding:"required,min=1,max=32"`
	Element string `json:"element" binding:"required"`
}

// Create handles POST /api/characters.
// The first character is free; each additional one costs skillpoints.
func (h *CharacterHandler) Create(c *gin.Context) {
	userID := mw.GetUserID(c)

	var req createCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !model.ValidElement(req.Element) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid element."})
		return
	}

	var user model.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var existing int64
	if err := h.db.Model(&model.Character{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	fee := 0
	if existing > 0 {
		fee = h.game.ExtraCharacterCost
		if user.Skillpoints < fee {
			c.JSON(http.StatusForbidden, gin.H{
				"message": fmt.Sprintf("%s does not have sufficient skillpoints to create another character!", user.Username),
				"current": user.Skillpoints,
				"cost":    fee,
			})
			return
		}
	}

	ch := &model.Character{
		UserID:  userID,
		Name:    req.Name,
		Element: req.Element,
		Health:  100,
		Mana:    40,
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if fee > 0 {
			err := tx.Model(&model.User{}).Where("id = ?", userID).
				Update("skillpoints", gorm.Expr("skillpoints - ?", fee)).Error
			if err != nil {
				return err
			}
		}
		return tx.Create(ch).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	v, err := h.view(ch)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, v)
}

// Stats handles GET /api/characters/:id/stats.
func (h *CharacterHandler) Stats(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var ch model.Character
	if err := h.db.First(&ch, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Character not found."})
		return
	}
	equipment, err := equippedItems(h.db, ch.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, progression.Compute(&ch, equipment))
}

// Recover handles POST /api/characters/:id/recover.
// Restores health and mana to their maximums for a skillpoint fee.
func (h *CharacterHandler) Recover(c *gin.Context) {
	ch, ok := h.ownedCharacter(c)
	if !ok {
		return
	}

	var user model.User
	if err := h.db.First(&user, ch.UserID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	cost := h.game.RecoverCost
	if user.Skillpoints < cost {
		c.JSON(http.StatusForbidden, gin.H{
			"message": fmt.Sprintf("%s does not have sufficient skillpoints.", user.Username),
			"current": user.Skillpoints,
			"cost":    cost,
		})
		return
	}

	equipment, err := equippedItems(h.db, ch.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	stats := progression.Compute(ch, equipment)

	err = h.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.User{}).Where("id = ?", user.ID).
			Update("skillpoints", gorm.Expr("skillpoints - ?", cost)).Error
		if err != nil {
			return err
		}
		return tx.Model(&model.Character{}).Where("id = ?", ch.ID).Updates(map[string]interface{}{
			"health": stats.MaxHealth,
			"mana":   stats.MaxMana,
		}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         fmt.Sprintf("Recovered %s!", ch.Name),
		"new_skillpoints": user.Skillpoints - cost,
		"cost":            cost,
	})
}

// OwnedSkills handles GET /api/characters/:id/skills.
func (h *CharacterHandler) OwnedSkills(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var skills []model.Skill
	err = h.db.Table("skills").
		Joins("JOIN skill_ownerships ON skill_ownerships.skill_id = skills.id").
		Where("skill_ownerships.character_id = ?", id).
		Find(&skills).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"skills": skills})
}

// inventoryEntry is one owned item with its catalog data attached.
type inventoryEntry struct {
	OwnershipID int64   `json:"ownership_id"`
	ItemID      int64   `json:"item_id"`
	Name        string  `json:"name"`
	Slot        string  `json:"slot"`
	Rarity      string  `json:"rarity"`
	Power       int     `json:"power"`
	Element     string  `json:"element"`
	Req         int     `json:"req"`
	Equipped    *string `json:"equipped"`
}

// Inventory handles GET /api/characters/:id/items.
func (h *CharacterHandler) Inventory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	entries, err := inventory(h.db, id, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

// Equipment handles GET /api/characters/:id/equipment.
// Returns a slot → item map of everything currently equipped.
func (h *CharacterHandler) Equipment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	entries, err := inventory(h.db, id, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	bySlot := make(map[string]inventoryEntry, len(entries))
	for _, e := range entries {
		if e.Equipped != nil {
			bySlot[*e.Equipped] = e
		}
	}
	c.JSON(http.StatusOK, bySlot)
}

type ownershipRequest struct {
	OwnershipID int64 `json:"ownership_id" binding:"required"`
}

// Equip handles POST /api/characters/:id/equip.
// Equipping into an occupied slot unequips the previous item first.
func (h *CharacterHandler) Equip(c *gin.Context) {
	ch, ok := h.ownedCharacter(c)
	if !ok {
		return
	}
	var req ownershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ownership, item, ok := h.ownedItem(c, ch, req.OwnershipID)
	if !ok {
		return
	}
	if item.Slot == model.SlotPotion {
		c.JSON(http.StatusForbidden, gin.H{"message": "Item cannot be equipped."})
		return
	}
	if ownership.Equipped != nil && *ownership.Equipped == item.Slot {
		c.JSON(http.StatusForbidden, gin.H{"message": fmt.Sprintf("Already equipped %s.", item.Name)})
		return
	}
	if item.Req > progression.Level(ch.Exp) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Character's level is too low to equip this item."})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		// Vacate the slot.
		err := tx.Table("item_ownerships").
			Where("character_id = ? AND equipped = ?", ch.ID, item.Slot).
			Update("equipped", nil).Error
		if err != nil {
			return err
		}
		return tx.Model(&model.ItemOwnership{}).Where("id = ?", ownership.ID).
			Update("equipped", item.Slot).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.clampHealth(ch)
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Equipped %s.", item.Name)})
}

// Unequip handles POST /api/characters/:id/unequip.
func (h *CharacterHandler) Unequip(c *gin.Context) {
	ch, ok := h.ownedCharacter(c)
	if !ok {
		return
	}
	var req ownershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ownership, item, ok := h.ownedItem(c, ch, req.OwnershipID)
	if !ok {
		return
	}
	if ownership.Equipped == nil {
		c.JSON(http.StatusForbidden, gin.H{"message": "Item is not equipped."})
		return
	}

	err := h.db.Model(&model.ItemOwnership{}).Where("id = ?", ownership.ID).
		Update("equipped", nil).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.clampHealth(ch)
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Unequipped %s.", item.Name)})
}

// UsePotion handles POST /api/characters/:id/use.
// Consumes a potion: restores health by its power and deletes the item.
func (h *CharacterHandler) UsePotion(c *gin.Context) {
	ch, ok := h.ownedCharacter(c)
	if !ok {
		return
	}
	var req ownershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ownership, item, ok := h.ownedItem(c, ch, req.OwnershipID)
	if !ok {
		return
	}
	if item.Req > progression.Level(ch.Exp) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Character's level is too low to use this item."})
		return
	}
	if item.Slot != model.SlotPotion {
		c.JSON(http.StatusForbidden, gin.H{"message": "Item cannot be used."})
		return
	}

	equipment, err := equippedItems(h.db, ch.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	stats := progression.Compute(ch, equipment)
	newHealth := ch.Health + item.Power
	if newHealth > stats.MaxHealth {
		newHealth = stats.MaxHealth
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.Character{}).Where("id = ?", ch.ID).
			Update("health", newHealth).Error
		if err != nil {
			return err
		}
		return tx.Delete(&model.ItemOwnership{}, ownership.ID).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    fmt.Sprintf("Used %s.", item.Name),
		"new_health": newHealth,
	})
}

// DeleteItem handles DELETE /api/characters/:id/items/:ownership_id.
// Discards an owned item. Dropping an equipped item frees its slot, so
// stored health is clamped to the new maximum.
func (h *CharacterHandler) DeleteItem(c *gin.Context) {
	ch, ok := h.ownedCharacter(c)
	if !ok {
		return
	}
	ownershipID, err := strconv.ParseInt(c.Param("ownership_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	ownership, _, ok := h.ownedItem(c, ch, ownershipID)
	if !ok {
		return
	}

	if err := h.db.Delete(&model.ItemOwnership{}, ownership.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if ownership.Equipped != nil {
		h.clampHealth(ch)
	}
	c.Status(http.StatusNoContent)
}

// ownedCharacter loads the :id character and rejects callers who do not
// own it.
func (h *CharacterHandler) ownedCharacter(c *gin.Context) (*model.Character, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil, false
	}
	var ch model.Character
	if err := h.db.First(&ch, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Character not found."})
		return nil, false
	}
	if ch.UserID != mw.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"message": "user_id must be the same as the character's user_id"})
		return nil, false
	}
	return &ch, true
}

// ownedItem loads an item ownership and its catalog item, rejecting
// ownerships that belong to another character.
func (h *CharacterHandler) ownedItem(c *gin.Context, ch *model.Character, ownershipID int64) (*model.ItemOwnership, *model.Item, bool) {
	var ownership model.ItemOwnership
	if err := h.db.First(&ownership, ownershipID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Item ownership not found."})
		return nil, nil, false
	}
	if ownership.CharacterID != ch.ID {
		c.JSON(http.StatusForbidden, gin.H{"message": "You do not own this item."})
		return nil, nil, false
	}
	var item model.Item
	if err := h.db.First(&item, ownership.ItemID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Item not found."})
		return nil, nil, false
	}
	return &ownership, &item, true
}

// clampHealth caps stored health at the (possibly reduced) max after
// equipment changes. Best effort.
func (h *CharacterHandler) clampHealth(ch *model.Character) {
	equipment, err := equippedItems(h.db, ch.ID)
	if err != nil {
		return
	}
	stats := progression.Compute(ch, equipment)
	if ch.Health > stats.MaxHealth {
		_ = h.db.Model(&model.Character{}).Where("id = ?", ch.ID).
			Update("health", stats.MaxHealth).Error
	}
}

// equippedItems loads the stat-affecting fields of a character's
// equipped items.
func equippedItems(db *gorm.DB, characterID int64) ([]progression.EquippedItem, error) {
	var rows []progression.EquippedItem
	err := db.Table("item_ownerships").
		Select("items.slot, items.power, items.element").
		Joins("JOIN items ON items.id = item_ownerships.item_id").
		Where("item_ownerships.character_id = ? AND item_ownerships.equipped IS NOT NULL", characterID).
		Scan(&rows).Error
	return rows, err
}

// inventory lists a character's items, optionally only equipped ones.
func inventory(db *gorm.DB, characterID int64, equippedOnly bool) ([]inventoryEntry, error) {
	q := db.Table("item_ownerships").
		Select("item_ownerships.id AS ownership_id, items.id AS item_id, items.name, items.slot, items.rarity, items.power, items.element, items.req, item_ownerships.equipped").
		Joins("JOIN items ON items.id = item_ownerships.item_id").
		Where("item_ownerships.character_id = ?", characterID)
	if equippedOnly {
		q = q.Where("item_ownerships.equipped IS NOT NULL")
	}
	var rows []inventoryEntry
	err := q.Order("item_ownerships.id").Scan(&rows).Error
	return rows, err
}
