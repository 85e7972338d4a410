package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	mw "github.com/fitquest/fitquest/middleware"
	"github.com/fitquest/fitquest/model"
)

// UserHandler handles user account REST endpoints.
type UserHandler struct {
	db *gorm.DB
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// Get handles GET /api/users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var user model.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetByUsername handles GET /api/users/username/:username.
func (h *UserHandler) GetByUsername(c *gin.Context) {
	var user model.User
	if err := h.db.Where("username = ?", c.Param("username")).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
		return
	}
	c.JSON(http.StatusOK, user)
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(c *gin.Context) {
	var user model.User
	if err := h.db.First(&user, mw.GetUserID(c)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
		return
	}
	c.JSON(http.StatusOK, user)
}

type updateUserRequest struct {
	Username string `json:"username" binding:"required,min=2,max=32"`
	Email    string `json:"email"    binding:"required,max=254"`
}

// Update handles PUT /api/users/me.
func (h *UserHandler) Update(c *gin.Context) {
	userID := mw.GetUserID(c)

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !emailPattern.MatchString(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid email."})
		return
	}

	// The new username/email may collide with another account but not
	// with the caller's own row.
	var count int64
	err := h.db.Model(&model.User{}).
		Where("(username = ? OR email = ?) AND id <> ?", req.Username, req.Email, userID).
		Count(&count).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"message": "Username or email is already in use."})
		return
	}

	result := h.db.Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"username": req.Username,
		"email":    req.Email,
	})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	var user model.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
		return
	}
	c.JSON(http.StatusOK, user)
}

// Skillpoints handles GET /api/users/me/skillpoints.
func (h *UserHandler) Skillpoints(c *gin.Context) {
	var user model.User
	if err := h.db.Select("id, skillpoints").First(&user, mw.GetUserID(c)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"skillpoints": user.Skillpoints})
}
