package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fitquest/fitquest/api/sse"
	"github.com/fitquest/fitquest/game/battle"
	mw "github.com/fitquest/fitquest/middleware"
	"github.com/fitquest/fitquest/model"
)

// Notifier pushes realtime events to users. Satisfied by sse.Handler.
type Notifier interface {
	NotifyUser(ctx context.Context, userID int64, event string, data interface{}) error
}

// BattleHandler handles battle REST endpoints: PvP requests, battle
// state and the three turn actions.
type BattleHandler struct {
	db       *gorm.DB
	engine   *battle.Engine
	store    *battle.SQLStore
	notifier Notifier
	logger   *zap.Logger
}

// NewBattleHandler creates a new BattleHandler.
func NewBattleHandler(db *gorm.DB, engine *battle.Engine, store *battle.SQLStore, notifier Notifier, logger *zap.Logger) *BattleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BattleHandler{db: db, engine: engine, store: store, notifier: notifier, logger: logger}
}

type battleRequestBody struct {
	CharacterID int64 `json:"character_id" binding:"required"`
	UserID      int64 `json:"user_id"      binding:"required"`
}

// Request handles POST /api/battles/requests.
// Sends a PvP invitation from the caller's character to another user.
func (h *BattleHandler) Request(c *gin.Context) {
	var req battleRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var requester model.Character
	if err := h.db.First(&requester, req.CharacterID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Character not found."})
		return
	}
	if requester.UserID != mw.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"message": "user_id must be the same as the character's user_id"})
		return
	}
	if requester.UserID == req.UserID {
		c.JSON(http.StatusForbidden, gin.H{"message": "Cannot request battle with yourself."})
		return
	}
	var requestee model.User
	if err := h.db.First(&requestee, req.UserID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
		return
	}

	var existing int64
	err := h.db.Model(&model.BattleRequest{}).
		Where("requester_id = ? AND user_id = ?", requester.ID, req.UserID).
		Count(&existing).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusForbidden, gin.H{"message": "Battle request already sent."})
		return
	}

	request := &model.BattleRequest{RequesterID: requester.ID, UserID: req.UserID}
	if err := h.db.Create(request).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.notify(c, req.UserID, sse.EventBattleRequest, gin.H{
		"request_id":     request.ID,
		"requester_id":   requester.ID,
		"requester_name": requester.Name,
	})
	c.JSON(http.StatusCreated, gin.H{"message": "Battle request sent.", "request_id": request.ID})
}

// ListRequests handles GET /api/battles/requests.
// Returns invitations addressed to the caller and ones their characters sent.
func (h *BattleHandler) ListRequests(c *gin.Context) {
	userID := mw.GetUserID(c)

	var incoming []model.BattleRequest
	if err := h.db.Where("user_id = ?", userID).Find(&incoming).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	var outgoing []model.BattleRequest
	err := h.db.
		Where("requester_id IN (?)", h.db.Model(&model.Character{}).Select("id").Where("user_id = ?", userID)).
		Find(&outgoing).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"incoming": incoming, "outgoing": outgoing})
}

// CancelRequest handles DELETE /api/battles/requests/:id.
// Either side of the invitation may cancel it.
func (h *BattleHandler) CancelRequest(c *gin.Context) {
	request, ok := h.loadRequest(c)
	if !ok {
		return
	}
	userID := mw.GetUserID(c)

	var requester model.Character
	if err := h.db.First(&requester, request.RequesterID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if requester.UserID != userID && request.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"message": "Cannot cancel another user's request."})
		return
	}
	if err := h.db.Delete(request).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}

type acceptRequestBody struct {
	CharacterID int64 `json:"character_id" binding:"required"`
}

// Accept handles POST /api/battles/requests/:id/accept.
// Consumes the invitation and starts the PvP battle; the requester's
// character attacks first (turn 0 is the attacker's).
func (h *BattleHandler) Accept(c *gin.Context) {
	request, ok := h.loadRequest(c)
	if !ok {
		return
	}
	userID := mw.GetUserID(c)
	if request.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"message": "Cannot accept another user's request."})
		return
	}

	var body acceptRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var attacker, defender model.Character
	if err := h.db.First(&attacker, request.RequesterID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Character not found."})
		return
	}
	if err := h.db.First(&defender, body.CharacterID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Character not found."})
		return
	}
	if defender.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"message": "user_id must be the same as the character's user_id"})
		return
	}
	if attacker.Health <= 0 || defender.Health <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Cannot initiate battle with no health."})
		return
	}
	if attacker.UserID == defender.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Cannot initiate battle with the same user."})
		return
	}
	if attacker.ID == defender.ID {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Attacker cannot be the same as defender."})
		return
	}
	for _, ch := range []*model.Character{&attacker, &defender} {
		if _, err := h.store.OngoingBattle(c.Request.Context(), ch.ID); err == nil {
			c.JSON(http.StatusConflict, gin.H{"message": fmt.Sprintf("%s is already in a battle.", ch.Name)})
			return
		} else if !errors.Is(err, battle.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	}

	b := &model.Battle{AttackerID: attacker.ID, DefenderID: &defender.ID}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(request).Error; err != nil {
			return err
		}
		return tx.Create(b).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.notify(c, attacker.UserID, sse.EventBattleUpdate, gin.H{
		"battle_id": b.ID,
		"message":   fmt.Sprintf("%s accepted the battle request!", defender.Name),
	})
	c.JSON(http.StatusCreated, gin.H{"battle_id": b.ID})
}

// Get handles GET /api/battles/:id.
func (h *BattleHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	b, err := h.store.Battle(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, battle.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Battle not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.renderState(c, b)
}

// GetByCharacter handles GET /api/characters/:id/battle.
// Returns the character's unfinished battle, if any.
func (h *BattleHandler) GetByCharacter(c *gin.Context) {
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
	if ch.UserID != mw.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"message": "user_id must be the same as the character's user_id"})
		return
	}
	b, err := h.store.OngoingBattle(c.Request.Context(), ch.ID)
	if err != nil {
		if errors.Is(err, battle.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Battle not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.renderState(c, b)
}

// renderState writes the battle row plus both fighters' live stats.
func (h *BattleHandler) renderState(c *gin.Context, b *model.Battle) {
	attacker, defender, err := h.store.Fighters(c.Request.Context(), b)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"battle_id":   b.ID,
		"attacker_id": b.AttackerID,
		"defender_id": b.DefenderID,
		"monster_id":  b.MonsterID,
		"turns":       b.Turns,
		"finished":    b.Finished,
		"winner":      b.WinnerID,
		"last": gin.H{
			"result":       b.LastResult,
			"effectResult": b.LastEffectResult,
		},
		"attacker": attacker.State(),
		"defender": defender.State(),
	})
}

type useSkillBody struct {
	SkillID int64 `json:"skill_id" binding:"required"`
}

// UseSkill handles POST /api/battles/:id/skill.
func (h *BattleHandler) UseSkill(c *gin.Context) {
	id, ok := battleID(c)
	if !ok {
		return
	}
	var body useSkillBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.engine.UseSkill(c.Request.Context(), id, mw.GetUserID(c), body.SkillID)
	h.finishTurn(c, id, result, err)
}

// Guard handles POST /api/battles/:id/guard.
func (h *BattleHandler) Guard(c *gin.Context) {
	id, ok := battleID(c)
	if !ok {
		return
	}
	result, err := h.engine.Guard(c.Request.Context(), id, mw.GetUserID(c))
	h.finishTurn(c, id, result, err)
}

// Forfeit handles POST /api/battles/:id/forfeit.
func (h *BattleHandler) Forfeit(c *gin.Context) {
	id, ok := battleID(c)
	if !ok {
		return
	}
	result, err := h.engine.Forfeit(c.Request.Context(), id, mw.GetUserID(c))
	h.finishTurn(c, id, result, err)
}

// finishTurn maps engine errors to HTTP responses and pushes the turn
// result to both participants on success.
func (h *BattleHandler) finishTurn(c *gin.Context, battleID int64, result *battle.TurnResult, err error) {
	if err != nil {
		var manaErr *battle.InsufficientManaError
		switch {
		case errors.As(err, &manaErr):
			c.JSON(http.StatusForbidden, gin.H{
				"message": fmt.Sprintf("%d Mana is needed to use %s!", manaErr.Cost, manaErr.Skill),
				"current": manaErr.Current,
				"cost":    manaErr.Cost,
			})
		case errors.Is(err, battle.ErrAlreadyFinished):
			c.JSON(http.StatusForbidden, gin.H{"message": "Battle has already ended."})
		case errors.Is(err, battle.ErrNotYourTurn):
			c.JSON(http.StatusForbidden, gin.H{"message": "Not your turn."})
		case errors.Is(err, battle.ErrSkillNotOwned):
			c.JSON(http.StatusForbidden, gin.H{"message": "You do not own this skill."})
		case errors.Is(err, battle.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Battle not found."})
		default:
			h.logger.Error("battle turn failed", zap.Int64("battle_id", battleID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	for _, userID := range h.participants(battleID) {
		h.notify(c, userID, sse.EventBattleUpdate, gin.H{
			"battle_id": battleID,
			"result":    result,
		})
	}
	c.JSON(http.StatusOK, result)
}

// participants returns the user IDs of the battle's character fighters.
func (h *BattleHandler) participants(battleID int64) []int64 {
	var b model.Battle
	if err := h.db.First(&b, battleID).Error; err != nil {
		return nil
	}
	ids := []int64{b.AttackerID}
	if b.DefenderID != nil {
		ids = append(ids, *b.DefenderID)
	}
	var users []int64
	err := h.db.Model(&model.Character{}).Where("id IN ?", ids).
		Distinct().Pluck("user_id", &users).Error
	if err != nil {
		return nil
	}
	return users
}

func (h *BattleHandler) notify(c *gin.Context, userID int64, event string, data interface{}) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.NotifyUser(c.Request.Context(), userID, event, data); err != nil {
		h.logger.Warn("notify failed", zap.Int64("user_id", userID), zap.String("event", event), zap.Error(err))
	}
}

func (h *BattleHandler) loadRequest(c *gin.Context) (*model.BattleRequest, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil, false
	}
	var request model.BattleRequest
	if err := h.db.First(&request, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Battle request not found."})
		return nil, false
	}
	return &request, true
}

func battleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
