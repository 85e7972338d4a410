package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fitquest/fitquest/config"
	mw "github.com/fitquest/fitquest/middleware"
	"github.com/fitquest/fitquest/model"
)

// ChallengeHandler handles fitness challenge REST endpoints.
type ChallengeHandler struct {
	db   *gorm.DB
	game config.GameConfig
}

// NewChallengeHandler creates a new ChallengeHandler.
func NewChallengeHandler(db *gorm.DB, game config.GameConfig) *ChallengeHandler {
	return &ChallengeHandler{db: db, game: game}
}

// List handles GET /api/challenges.
func (h *ChallengeHandler) List(c *gin.Context) {
	var challenges []model.Challenge
	if err := h.db.Find(&challenges).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenges": challenges})
}

// challengeListing is a challenge row with a ranking metric attached.
type challengeListing struct {
	model.Challenge
	Completions int      `json:"completions,omitempty"`
	AvgRating   *float64 `json:"avg_rating,omitempty"`
}

// Popular handles GET /api/challenges/popular.
// Sorted by number of completion records.
func (h *ChallengeHandler) Popular(c *gin.Context) {
	var rows []challengeListing
	err := h.db.Table("challenges").
		Select("challenges.*, COUNT(completion_records.id) AS completions").
		Joins("LEFT JOIN completion_records ON completion_records.challenge_id = challenges.id").
		Group("challenges.id").
		Order("completions DESC").
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenges": rows})
}

// Recent handles GET /api/challenges/recent.
func (h *ChallengeHandler) Recent(c *gin.Context) {
	var challenges []model.Challenge
	if err := h.db.Order("created_at DESC").Find(&challenges).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenges": challenges})
}

// TopRated handles GET /api/challenges/top-rated.
// Sorted by average review rating; unreviewed challenges sort last.
func (h *ChallengeHandler) TopRated(c *gin.Context) {
	var rows []challengeListing
	err := h.db.Table("challenges").
		Select("challenges.*, AVG(reviews.rating) AS avg_rating").
		Joins("LEFT JOIN reviews ON reviews.challenge_id = challenges.id").
		Group("challenges.id").
		Order("avg_rating DESC").
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenges": rows})
}

// Get handles GET /api/challenges/:id.
func (h *ChallengeHandler) Get(c *gin.Context) {
	challenge, ok := h.loadChallenge(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, challenge)
}

type challengeRequest struct {
	Name        string `json:"name"        binding:"required,min=1,max=128"`
	Description string `json:"description"`
	Skillpoints *int   `json:"skillpoints" binding:"required"`
}

// Create handles POST /api/challenges.
func (h *ChallengeHandler) Create(c *gin.Context) {
	var req challengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *req.Skillpoints <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Skillpoints must be positive."})
		return
	}
	challenge := &model.Challenge{
		CreatorID:   mw.GetUserID(c),
		Name:        req.Name,
		Description: req.Description,
		Skillpoints: *req.Skillpoints,
	}
	if err := h.db.Create(challenge).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, challenge)
}

// Update handles PUT /api/challenges/:id. Creator only.
func (h *ChallengeHandler) Update(c *gin.Context) {
	challenge, ok := h.loadOwnChallenge(c)
	if !ok {
		return
	}
	var req challengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *req.Skillpoints <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Skillpoints must be positive."})
		return
	}
	err := h.db.Model(challenge).Updates(map[string]interface{}{
		"name":        req.Name,
		"description": req.Description,
		"skillpoints": *req.Skillpoints,
	}).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, challenge)
}

// Delete handles DELETE /api/challenges/:id. Creator only; removes the
// challenge's completion records with it.
func (h *ChallengeHandler) Delete(c *gin.Context) {
	challenge, ok := h.loadOwnChallenge(c)
	if !ok {
		return
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("challenge_id = ?", challenge.ID).Delete(&model.CompletionRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("challenge_id = ?", challenge.ID).Delete(&model.Review{}).Error; err != nil {
			return err
		}
		return tx.Delete(challenge).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

type completionRequest struct {
	Completed bool   `json:"completed"`
	Notes     string `json:"notes"`
}

// Complete handles POST /api/challenges/:id/completions.
// A full completion rewards the challenge's skillpoints; a mere attempt
// rewards the small consolation amount.
func (h *ChallengeHandler) Complete(c *gin.Context) {
	challenge, ok := h.loadChallenge(c)
	if !ok {
		return
	}
	var req completionRequest
	_ = c.ShouldBindJSON(&req)

	userID := mw.GetUserID(c)
	reward := h.game.PartialCompletionPts
	if req.Completed {
		reward = challenge.Skillpoints
	}

	record := &model.CompletionRecord{
		ChallengeID: challenge.ID,
		UserID:      userID,
		Completed:   req.Completed,
		Notes:       req.Notes,
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.User{}).Where("id = ?", userID).
			Update("skillpoints", gorm.Expr("skillpoints + ?", reward)).Error
		if err != nil {
			return err
		}
		return tx.Create(record).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"record": record, "reward": reward})
}

// ListCompletions handles GET /api/challenges/:id/completions.
func (h *ChallengeHandler) ListCompletions(c *gin.Context) {
	challenge, ok := h.loadChallenge(c)
	if !ok {
		return
	}
	var records []model.CompletionRecord
	if err := h.db.Where("challenge_id = ?", challenge.ID).Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "No completion records found."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// MyCompletions handles GET /api/challenges/completions.
func (h *ChallengeHandler) MyCompletions(c *gin.Context) {
	var records []model.CompletionRecord
	if err := h.db.Where("user_id = ?", mw.GetUserID(c)).Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

type reviewRequest struct {
	Rating  *int   `json:"rating" binding:"required"`
	Content string `json:"content"`
}

// CreateReview handles POST /api/challenges/:id/reviews.
// Only users who completed the challenge may review, once each.
func (h *ChallengeHandler) CreateReview(c *gin.Context) {
	challenge, ok := h.loadChallenge(c)
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *req.Rating < 1 || *req.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Rating must be within range 1-5."})
		return
	}

	userID := mw.GetUserID(c)
	var completed int64
	err := h.db.Model(&model.CompletionRecord{}).
		Where("challenge_id = ? AND user_id = ?", challenge.ID, userID).
		Count(&completed).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if completed == 0 {
		c.JSON(http.StatusForbidden, gin.H{"message": "You must complete the challenge before reviewing."})
		return
	}

	var existing int64
	err = h.db.Model(&model.Review{}).
		Where("challenge_id = ? AND user_id = ?", challenge.ID, userID).
		Count(&existing).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"message": "You have already reviewed this challenge."})
		return
	}

	review := &model.Review{
		ChallengeID: challenge.ID,
		UserID:      userID,
		Rating:      *req.Rating,
		Content:     req.Content,
	}
	if err := h.db.Create(review).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, review)
}

// UpdateReview handles PUT /api/challenges/:id/reviews.
// Rewrites the caller's own review.
func (h *ChallengeHandler) UpdateReview(c *gin.Context) {
	challenge, ok := h.loadChallenge(c)
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *req.Rating < 1 || *req.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Rating must be within range 1-5."})
		return
	}

	result := h.db.Model(&model.Review{}).
		Where("challenge_id = ? AND user_id = ?", challenge.ID, mw.GetUserID(c)).
		Updates(map[string]interface{}{"rating": *req.Rating, "content": req.Content})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Review not found."})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListReviews handles GET /api/challenges/:id/reviews.
func (h *ChallengeHandler) ListReviews(c *gin.Context) {
	challenge, ok := h.loadChallenge(c)
	if !ok {
		return
	}
	var reviews []model.Review
	if err := h.db.Where("challenge_id = ?", challenge.ID).Find(&reviews).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// DeleteReview handles DELETE /api/challenges/:id/reviews.
// Removes the caller's own review.
func (h *ChallengeHandler) DeleteReview(c *gin.Context) {
	challenge, ok := h.loadChallenge(c)
	if !ok {
		return
	}
	result := h.db.Where("challenge_id = ? AND user_id = ?", challenge.ID, mw.GetUserID(c)).
		Delete(&model.Review{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Review not found."})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChallengeHandler) loadChallenge(c *gin.Context) (*model.Challenge, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil, false
	}
	var challenge model.Challenge
	if err := h.db.First(&challenge, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Challenge not found."})
		return nil, false
	}
	return &challenge, true
}

func (h *ChallengeHandler) loadOwnChallenge(c *gin.Context) (*model.Challenge, bool) {
	challenge, ok := h.loadChallenge(c)
	if !ok {
		return nil, false
	}
	if challenge.CreatorID != mw.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"message": "user_id must be the same as the challenge's creator_id"})
		return nil, false
	}
	return challenge, true
}
