package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"polydate-server/internal/config"
	"polydate-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type FeedHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewFeedHandler(db *gorm.DB, cfg *config.Config) *FeedHandler {
	return &FeedHandler{db: db, cfg: cfg}
}

// NextBatch returns the next batch of swipeable profiles: active,
// not the requester, matching the requester's gender preference, and
// never anyone the requester has already swiped on. Running out of
// candidates is a normal empty result, not an error; the client
// re-requests when its local queue runs low.
func (h *FeedHandler) NextBatch(c *gin.Context) {
	user, err := currentUser(c, h.db)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No profile yet: nothing to show, but not a failure.
			c.JSON(http.StatusOK, gin.H{"profiles": []models.User{}})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Feed temporarily unavailable"})
		return
	}

	limit := h.cfg.FeedBatchSize
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed < limit {
			limit = parsed
		}
	}

	query := h.db.Model(&models.User{}).
		Where("id != ? AND is_active = ?", user.ID, true).
		Where("id NOT IN (SELECT to_user_id FROM swipes WHERE from_user_id = ?)", user.ID)

	if user.LookingFor != "" && user.LookingFor != "all" {
		query = query.Where("gender = ?", user.LookingFor)
	}

	profiles := make([]models.User, 0, limit)
	if err := query.Limit(limit).Find(&profiles).Error; err != nil {
		logrus.WithError(err).Error("feed query failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Feed temporarily unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}
