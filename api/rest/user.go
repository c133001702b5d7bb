package rest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	mw "github.com/pulsefit/pulsefit-server/middleware"
	"github.com/pulsefit/pulsefit-server/model"
	"github.com/pulsefit/pulsefit-server/usercache"
	"gorm.io/gorm"
)

// UserHandler handles profile and privacy REST endpoints.
type UserHandler struct {
	db    *gorm.DB
	users *usercache.Cache
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB, users *usercache.Cache) *UserHandler {
	return &UserHandler{db: db, users: users}
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), mw.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type updateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"required,min=1,max=64"`
}

// UpdateProfile handles PUT /api/users/me.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID := mw.GetUserID(c)
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.db.Model(&model.User{}).Where("id = ?", userID).
		Update("display_name", req.DisplayName).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.users.Invalidate(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

type updatePrivacyRequest struct {
	RingsVisibility     *string `json:"rings_visibility"`
	AllowFriendRequests *bool   `json:"allow_friend_requests"`
	AllowClanInvites    *bool   `json:"allow_clan_invites"`
}

// UpdatePrivacy handles PUT /api/users/me/privacy.
func (h *UserHandler) UpdatePrivacy(c *gin.Context) {
	userID := mw.GetUserID(c)
	var req updatePrivacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.RingsVisibility != nil {
		if !model.ValidVisibility(*req.RingsVisibility) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown visibility tier"})
			return
		}
		updates["rings_visibility"] = *req.RingsVisibility
	}
	if req.AllowFriendRequests != nil {
		updates["allow_friend_requests"] = *req.AllowFriendRequests
	}
	if req.AllowClanInvites != nil {
		updates["allow_clan_invites"] = *req.AllowClanInvites
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if err := h.db.Model(&model.User{}).Where("id = ?", userID).
		Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.users.Invalidate(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// Search handles GET /api/users/search?q=.
func (h *UserHandler) Search(c *gin.Context) {
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	if len(q) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query too short"})
		return
	}

	type userInfo struct {
		ID          int64  `json:"id"`
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
	}
	var results []userInfo
	if err := h.db.Model(&model.User{}).
		Where("username LIKE ? AND status = 1", q+"%").
		Order("username").
		Limit(20).
		Find(&results).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": results})
}
