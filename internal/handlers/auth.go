package handlers

import (
	"net/http"
	"time"

	"polydate-server/internal/config"
	"polydate-server/internal/models"
	"polydate-server/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

type TelegramAuthRequest struct {
	InitData string `json:"init_data" binding:"required"`
}

func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

// TelegramAuth exchanges Telegram WebApp init data for a session
// token. No profile is created here: the profile appears on the
// first explicit save, and has_profile tells the client which screen
// to open.
func (h *AuthHandler) TelegramAuth(c *gin.Context) {
	var req TelegramAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data is required"})
		return
	}

	identity, err := telegram.ResolveIdentity(req.InitData)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid init data"})
		return
	}

	claims := jwt.MapClaims{
		"telegram_id": identity.TelegramID,
		"exp":         time.Now().Add(h.cfg.JWTExpiry).Unix(),
		"iat":         time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	var user models.User
	hasProfile := true
	if err := h.db.Where("telegram_id = ?", identity.TelegramID).First(&user).Error; err != nil {
		hasProfile = false
	}

	logrus.WithFields(logrus.Fields{
		"telegram_id": identity.TelegramID,
		"has_profile": hasProfile,
	}).Info("session issued")

	resp := gin.H{
		"token":       tokenString,
		"telegram_id": identity.TelegramID,
		"first_name":  identity.FirstName,
		"username":    identity.Username,
		"has_profile": hasProfile,
	}
	if hasProfile {
		resp["user"] = user
	}
	c.JSON(http.StatusOK, resp)
}
