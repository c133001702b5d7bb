package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	mw "github.com/pulsefit/pulsefit-server/middleware"
	"github.com/pulsefit/pulsefit-server/model"
	"github.com/pulsefit/pulsefit-server/social"
	"gorm.io/gorm"
)

// SocialHandler handles friendship REST endpoints.
type SocialHandler struct {
	db     *gorm.DB
	engine *social.Engine
}

// NewSocialHandler creates a new SocialHandler.
func NewSocialHandler(db *gorm.DB, engine *social.Engine) *SocialHandler {
	return &SocialHandler{db: db, engine: engine}
}

// ListFriends handles GET /api/social/friends.
func (h *SocialHandler) ListFriends(c *gin.Context) {
	userID := mw.GetUserID(c)
	var friends []model.FriendEdge
	if err := h.db.Where("owner_id = ?", userID).Find(&friends).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

type sendRequestBody struct {
	ToID int64 `json:"to_id" binding:"required"`
}

// SendRequest handles POST /api/social/requests.
func (h *SocialHandler) SendRequest(c *gin.Context) {
	userID := mw.GetUserID(c)
	var body sendRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := h.engine.SendRequest(c.Request.Context(), userID, body.ToID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// ListRequests handles GET /api/social/requests (incoming pending).
func (h *SocialHandler) ListRequests(c *gin.Context) {
	userID := mw.GetUserID(c)
	var requests []model.FriendRequest
	if err := h.db.Where("to_id = ? AND status = ?", userID, model.RequestPending).
		Order("created_at DESC").Find(&requests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

type respondBody struct {
	Action string `json:"action" binding:"required,oneof=accept reject"`
}

// Respond handles POST /api/social/requests/:id/respond, where :id is the
// sender's user id.
func (h *SocialHandler) Respond(c *gin.Context) {
	userID := mw.GetUserID(c)
	fromID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body respondBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.Respond(c.Request.Context(), fromID, userID, body.Action); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": body.Action + "ed"})
}

// Cancel handles DELETE /api/social/requests/:id, where :id is the
// recipient's user id.
func (h *SocialHandler) Cancel(c *gin.Context) {
	userID := mw.GetUserID(c)
	toID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.engine.Cancel(c.Request.Context(), userID, toID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "canceled"})
}

// RemoveFriend handles DELETE /api/social/friends/:id.
func (h *SocialHandler) RemoveFriend(c *gin.Context) {
	userID := mw.GetUserID(c)
	friendID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.engine.Remove(c.Request.Context(), userID, friendID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed"})
}

type shareBody struct {
	Share *bool `json:"share" binding:"required"`
}

// SetRingsShare handles PUT /api/social/friends/:id/share.
func (h *SocialHandler) SetRingsShare(c *gin.Context) {
	userID := mw.GetUserID(c)
	friendID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body shareBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.SetRingsShare(c.Request.Context(), userID, friendID, *body.Share); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// Block handles POST /api/social/block/:id.
func (h *SocialHandler) Block(c *gin.Context) {
	userID := mw.GetUserID(c)
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.engine.Block(c.Request.Context(), userID, targetID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "blocked"})
}

// Unblock handles DELETE /api/social/block/:id.
func (h *SocialHandler) Unblock(c *gin.Context) {
	userID := mw.GetUserID(c)
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.engine.Unblock(c.Request.Context(), userID, targetID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unblocked"})
}

// ListBlocked handles GET /api/social/blocked.
func (h *SocialHandler) ListBlocked(c *gin.Context) {
	userID := mw.GetUserID(c)
	var blocks []model.BlockedEdge
	if err := h.db.Where("blocker_id = ?", userID).Find(&blocks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocked": blocks})
}
