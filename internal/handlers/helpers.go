package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"polydate-server/internal/models"
)

// currentUser resolves the authenticated caller's profile. Returns
// gorm.ErrRecordNotFound when the user has not saved a profile yet —
// callers decide whether that means an empty result or a 404.
func currentUser(c *gin.Context, db *gorm.DB) (*models.User, error) {
	telegramID, _ := c.Get("telegram_id")

	var user models.User
	if err := db.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
