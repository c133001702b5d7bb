package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	mw "github.com/pulsefit/pulsefit-server/middleware"
	"github.com/pulsefit/pulsefit-server/model"
	"github.com/pulsefit/pulsefit-server/rings"
	"gorm.io/datatypes"
)

// RingsHandler handles ring stat upload and viewing endpoints.
type RingsHandler struct {
	gateway *rings.Gateway
}

// NewRingsHandler creates a new RingsHandler.
func NewRingsHandler(gateway *rings.Gateway) *RingsHandler {
	return &RingsHandler{gateway: gateway}
}

type upsertRingsBody struct {
	CaloriesBurned int             `json:"calories_burned" binding:"min=0"`
	Steps          int             `json:"steps" binding:"min=0"`
	WorkoutMinutes int             `json:"workout_minutes" binding:"min=0"`
	Goals          json.RawMessage `json:"goals"`
}

// Upsert handles PUT /api/rings/:date, writing the caller's own stats.
func (h *RingsHandler) Upsert(c *gin.Context) {
	userID := mw.GetUserID(c)
	date := c.Param("date")

	var body upsertRingsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stats := &model.RingStats{
		UserID:         userID,
		Date:           date,
		CaloriesBurned: body.CaloriesBurned,
		Steps:          body.Steps,
		WorkoutMinutes: body.WorkoutMinutes,
		UpdatedAt:      time.Now(),
	}
	if len(body.Goals) > 0 {
		stats.Goals = datatypes.JSON(body.Goals)
	}
	if err := h.gateway.Upsert(c.Request.Context(), stats); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "saved"})
}

// Get handles GET /api/users/:id/rings/:date.
func (h *RingsHandler) Get(c *gin.Context) {
	viewerID := mw.GetUserID(c)
	targetID, ok := paramID(c, "id")
	if !ok {
		return
	}
	stats, err := h.gateway.Get(c.Request.Context(), viewerID, targetID, c.Param("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Range handles GET /api/users/:id/rings?from=YYYY-MM-DD&to=YYYY-MM-DD.
// Defaults to the last 7 days when no range is given.
func (h *RingsHandler) Range(c *gin.Context) {
	viewerID := mw.GetUserID(c)
	targetID, ok := paramID(c, "id")
	if !ok {
		return
	}

	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		now := time.Now()
		to = now.Format(model.RingDateLayout)
		from = now.AddDate(0, 0, -6).Format(model.RingDateLayout)
	}
	if _, err := time.Parse(model.RingDateLayout, from); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
		return
	}
	if _, err := time.Parse(model.RingDateLayout, to); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
		return
	}

	stats, err := h.gateway.Range(c.Request.Context(), viewerID, targetID, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
