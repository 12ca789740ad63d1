package handlers

import (
	"errors"
	"net/http"

	"polydate-server/internal/config"
	"polydate-server/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type NotificationHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewNotificationHandler(db *gorm.DB, cfg *config.Config) *NotificationHandler {
	return &NotificationHandler{db: db, cfg: cfg}
}

func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	user, err := currentUser(c, h.db)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{"notifications": []models.Notification{}})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	notifications := make([]models.Notification, 0)
	if err := h.db.
		Where("user_id = ?", user.ID).
		Order("created_at DESC, id DESC").
		Limit(50).
		Find(&notifications).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	user, err := currentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	if err := h.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Update("is_read", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notifications marked as read"})
}
