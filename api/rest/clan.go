package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pulsefit/pulsefit-server/clan"
	mw "github.com/pulsefit/pulsefit-server/middleware"
	"github.com/pulsefit/pulsefit-server/model"
	"gorm.io/gorm"
)

// ClanHandler handles clan REST endpoints.
type ClanHandler struct {
	db     *gorm.DB
	engine *clan.Engine
}

// NewClanHandler creates a new ClanHandler.
func NewClanHandler(db *gorm.DB, engine *clan.Engine) *ClanHandler {
	return &ClanHandler{db: db, engine: engine}
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

type createClanBody struct {
	Name        string `json:"name" binding:"required,min=2,max=32"`
	Description string `json:"description" binding:"max=256"`
	Privacy     string `json:"privacy" binding:"omitempty,oneof=inviteOnly friendsOnly"`
}

// Create handles POST /api/clans.
func (h *ClanHandler) Create(c *gin.Context) {
	userID := mw.GetUserID(c)
	var body createClanBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.engine.Create(c.Request.Context(), userID, body.Name, body.Description, body.Privacy)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Get handles GET /api/clans/:id, returning the clan with its member list.
func (h *ClanHandler) Get(c *gin.Context) {
	clanID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var cl model.Clan
	if err := h.db.First(&cl, clanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "clan not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	var members []model.ClanMember
	if err := h.db.Where("clan_id = ? AND status = ?", clanID, model.MemberActive).
		Order("joined_at").Find(&members).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"clan": cl, "members": members})
}

// Mine handles GET /api/clans, listing clans the caller belongs to.
func (h *ClanHandler) Mine(c *gin.Context) {
	userID := mw.GetUserID(c)
	var clans []model.Clan
	err := h.db.
		Joins("JOIN clan_members ON clan_members.clan_id = clans.id").
		Where("clan_members.user_id = ? AND clan_members.status = ?", userID, model.MemberActive).
		Find(&clans).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"clans": clans})
}

type inviteBody struct {
	ToID int64 `json:"to_id" binding:"required"`
}

// Invite handles POST /api/clans/:id/invites.
func (h *ClanHandler) Invite(c *gin.Context) {
	userID := mw.GetUserID(c)
	clanID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body inviteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	invite, err := h.engine.Invite(c.Request.Context(), clanID, userID, body.ToID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invite)
}

// RespondInvite handles POST /api/clans/:id/invites/respond.
func (h *ClanHandler) RespondInvite(c *gin.Context) {
	userID := mw.GetUserID(c)
	clanID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body respondBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.RespondInvite(c.Request.Context(), clanID, userID, body.Action); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": body.Action + "ed"})
}

// ListInvites handles GET /api/clans/invites, listing the caller's pending
// invites.
func (h *ClanHandler) ListInvites(c *gin.Context) {
	userID := mw.GetUserID(c)
	var invites []model.ClanInvite
	if err := h.db.Where("to_id = ? AND status = ?", userID, model.InvitePending).
		Order("created_at DESC").Find(&invites).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invites": invites})
}

// Leave handles POST /api/clans/:id/leave.
func (h *ClanHandler) Leave(c *gin.Context) {
	userID := mw.GetUserID(c)
	clanID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.engine.Leave(c.Request.Context(), clanID, userID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left"})
}

// RemoveMember handles DELETE /api/clans/:id/members/:uid.
func (h *ClanHandler) RemoveMember(c *gin.Context) {
	userID := mw.GetUserID(c)
	clanID, ok := paramID(c, "id")
	if !ok {
		return
	}
	targetID, ok := paramID(c, "uid")
	if !ok {
		return
	}
	if err := h.engine.RemoveMember(c.Request.Context(), clanID, userID, targetID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed"})
}

type roleBody struct {
	Role string `json:"role" binding:"required,oneof=owner admin member"`
}

// UpdateRole handles PUT /api/clans/:id/members/:uid/role.
func (h *ClanHandler) UpdateRole(c *gin.Context) {
	userID := mw.GetUserID(c)
	clanID, ok := paramID(c, "id")
	if !ok {
		return
	}
	targetID, ok := paramID(c, "uid")
	if !ok {
		return
	}
	var body roleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.UpdateRole(c.Request.Context(), clanID, userID, targetID, body.Role); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

type updateClanBody struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=32"`
	Description *string `json:"description" binding:"omitempty,max=256"`
	Privacy     *string `json:"privacy" binding:"omitempty,oneof=inviteOnly friendsOnly"`
}

// Update handles PUT /api/clans/:id.
func (h *ClanHandler) Update(c *gin.Context) {
	userID := mw.GetUserID(c)
	clanID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body updateClanBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.engine.UpdateDetails(c.Request.Context(), clanID, userID, clan.Updates{
		Name:        body.Name,
		Description: body.Description,
		Privacy:     body.Privacy,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
