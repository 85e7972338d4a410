package rest

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	mw "github.com/fitquest/fitquest/middleware"
	"github.com/fitquest/fitquest/model"
)

// SkillHandler handles the skill catalog and purchase REST endpoints.
type SkillHandler struct {
	db *gorm.DB
}

// NewSkillHandler creates a new SkillHandler.
func NewSkillHandler(db *gorm.DB) *SkillHandler {
	return &SkillHandler{db: db}
}

// List handles GET /api/skills.
func (h *SkillHandler) List(c *gin.Context) {
	var skills []model.Skill
	if err := h.db.Find(&skills).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"skills": skills})
}

// Get handles GET /api/skills/:id.
func (h *SkillHandler) Get(c *gin.Context) {
	skill, ok := h.loadSkill(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, skill)
}

type skillRequest struct {
	Name         string `json:"name"        binding:"required,min=1,max=64"`
	Description  string `json:"description"`
	Accuracy     *int   `json:"accuracy"    binding:"required"`
	Damage       *int   `json:"damage"      binding:"required"`
	ManaCost     *int   `json:"mana_cost"   binding:"required"`
	Element      string `json:"element"     binding:"required"`
	PurchaseCost *int   `json:"purchase_cost" binding:"required"`
}

func (h *SkillHandler) validate(c *gin.Context, req *skillRequest, skillID int64) bool {
	if *req.Accuracy < 0 || *req.Accuracy > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Accuracy must be within range 0-100."})
		return false
	}
	if !model.ValidElement(req.Element) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid element."})
		return false
	}
	// The name may stay the same on update but must not collide with a
	// different skill.
	var count int64
	err := h.db.Model(&model.Skill{}).
		Where("name = ? AND id <> ?", req.Name, skillID).
		Count(&count).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return false
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"message": "Name already in use."})
		return false
	}
	return true
}

// Create handles POST /api/skills.
func (h *SkillHandler) Create(c *gin.Context) {
	var req skillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.validate(c, &req, 0) {
		return
	}
	skill := &model.Skill{
		Name:         req.Name,
		Description:  req.Description,
		Accuracy:     *req.Accuracy,
		Damage:       *req.Damage,
		ManaCost:     *req.ManaCost,
		Element:      req.Element,
		PurchaseCost: *req.PurchaseCost,
	}
	if err := h.db.Create(skill).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, skill)
}

// Update handles PUT /api/skills/:id.
func (h *SkillHandler) Update(c *gin.Context) {
	skill, ok := h.loadSkill(c)
	if !ok {
		return
	}
	var req skillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.validate(c, &req, skill.ID) {
		return
	}
	err := h.db.Model(skill).Updates(map[string]interface{}{
		"name":          req.Name,
		"description":   req.Description,
		"accuracy":      *req.Accuracy,
		"damage":        *req.Damage,
		"mana_cost":     *req.ManaCost,
		"element":       req.Element,
		"purchase_cost": *req.PurchaseCost,
	}).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, skill)
}

// ListEffects handles GET /api/skills/:id/effects.
func (h *SkillHandler) ListEffects(c *gin.Context) {
	skill, ok := h.loadSkill(c)
	if !ok {
		return
	}
	var effects []model.SkillEffect
	if err := h.db.Where("skill_id = ?", skill.ID).Order("id").Find(&effects).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"effects": effects})
}

type effectRequest struct {
	Type     string `json:"type"     binding:"required"`
	Value    *int   `json:"value"    binding:"required"`
	Target   string `json:"target"   binding:"required"`
	Duration *int   `json:"duration" binding:"required"`
}

func validEffect(c *gin.Context, req *effectRequest) bool {
	switch req.Type {
	case model.EffectHealth, model.EffectIncomingDamage,
		model.EffectOutgoingDamage, model.EffectAccuracy:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid effect type."})
		return false
	}
	if req.Target != model.TargetSelf && req.Target != model.TargetOpponent {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Target must be Self or Opponent."})
		return false
	}
	if *req.Duration < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Duration must not be negative."})
		return false
	}
	return true
}

// AddEffect handles POST /api/skills/:id/effects.
func (h *SkillHandler) AddEffect(c *gin.Context) {
	skill, ok := h.loadSkill(c)
	if !ok {
		return
	}
	var req effectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validEffect(c, &req) {
		return
	}
	effect := &model.SkillEffect{
		SkillID:  skill.ID,
		Type:     req.Type,
		Value:    *req.Value,
		Target:   req.Target,
		Duration: *req.Duration,
	}
	if err := h.db.Create(effect).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, effect)
}

// UpdateEffect handles PUT /api/skills/:id/effects/:effect_id.
func (h *SkillHandler) UpdateEffect(c *gin.Context) {
	skill, ok := h.loadSkill(c)
	if !ok {
		return
	}
	effectID, err := strconv.ParseInt(c.Param("effect_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req effectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validEffect(c, &req) {
		return
	}
	result := h.db.Model(&model.SkillEffect{}).
		Where("id = ? AND skill_id = ?", effectID, skill.ID).
		Updates(map[string]interface{}{
			"type":     req.Type,
			"value":    *req.Value,
			"target":   req.Target,
			"duration": *req.Duration,
		})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Skill effect not found."})
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteEffect handles DELETE /api/skills/:id/effects/:effect_id.
func (h *SkillHandler) DeleteEffect(c *gin.Context) {
	skill, ok := h.loadSkill(c)
	if !ok {
		return
	}
	effectID, err := strconv.ParseInt(c.Param("effect_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	result := h.db.Where("id = ? AND skill_id = ?", effectID, skill.ID).
		Delete(&model.SkillEffect{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Skill effect not found."})
		return
	}
	c.Status(http.StatusNoContent)
}

type purchaseRequest struct {
	CharacterID int64 `json:"character_id" binding:"required"`
}

// Purchase handles POST /api/skills/:id/purchase.
// Deducts the skill's cost from the user and records ownership for the
// given character.
func (h *SkillHandler) Purchase(c *gin.Context) {
	skill, ok := h.loadSkill(c)
	if !ok {
		return
	}
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := mw.GetUserID(c)
	var ch model.Character
	if err := h.db.First(&ch, req.CharacterID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Character not found."})
		return
	}
	if ch.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"message": "user_id must be the same as the character's user_id"})
		return
	}

	var owned int64
	err := h.db.Model(&model.SkillOwnership{}).
		Where("character_id = ? AND skill_id = ?", ch.ID, skill.ID).
		Count(&owned).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if owned > 0 {
		c.JSON(http.StatusConflict, gin.H{"message": fmt.Sprintf("%s already owns %s.", ch.Name, skill.Name)})
		return
	}

	var user model.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if user.Skillpoints < skill.PurchaseCost {
		c.JSON(http.StatusForbidden, gin.H{
			"message": fmt.Sprintf("Insufficient skillpoints to purchase %s.", skill.Name),
			"current": user.Skillpoints,
			"cost":    skill.PurchaseCost,
		})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.User{}).Where("id = ?", userID).
			Update("skillpoints", gorm.Expr("skillpoints - ?", skill.PurchaseCost)).Error
		if err != nil {
			return err
		}
		return tx.Create(&model.SkillOwnership{CharacterID: ch.ID, SkillID: skill.ID}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   fmt.Sprintf("Purchased %s!", skill.Name),
		"cost":      skill.PurchaseCost,
		"remaining": user.Skillpoints - skill.PurchaseCost,
	})
}

func (h *SkillHandler) loadSkill(c *gin.Context) (*model.Skill, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil, false
	}
	var skill model.Skill
	if err := h.db.First(&skill, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Skill not found."})
		return nil, false
	}
	return &skill, true
}
