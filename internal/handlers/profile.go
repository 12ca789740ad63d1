package handlers

import (
	"net/http"
	"time"

	"polydate-server/internal/config"
	"polydate-server/internal/models"
	"polydate-server/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileHandler struct {
	db      *gorm.DB
	cfg     *config.Config
	storage *services.StorageService
}

type SaveProfileRequest struct {
	FirstName  string     `json:"first_name" binding:"required,notblank"`
	LastName   *string    `json:"last_name,omitempty"`
	Username   *string    `json:"username,omitempty"`
	Bio        string     `json:"bio"`
	Photos     []string   `json:"photos"`
	Interests  []string   `json:"interests"`
	University string     `json:"university"`
	Faculty    string     `json:"faculty"`
	Course     *int       `json:"course,omitempty" binding:"omitempty,min=1,max=6"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	Gender     string     `json:"gender" binding:"omitempty,oneof=male female"`
	LookingFor string     `json:"looking_for" binding:"omitempty,oneof=male female all"`
	IsActive   *bool      `json:"is_active,omitempty"`
}

func NewProfileHandler(db *gorm.DB, cfg *config.Config, storage *services.StorageService) *ProfileHandler {
	return &ProfileHandler{db: db, cfg: cfg, storage: storage}
}

func (h *ProfileHandler) GetMe(c *gin.Context) {
	user, err := currentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// SaveMe upserts the caller's profile, keyed by telegram id. The
// first save creates the row; later saves overwrite the editable
// fields and never touch the id.
func (h *ProfileHandler) SaveMe(c *gin.Context) {
	telegramID, _ := c.Get("telegram_id")

	var req SaveProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	user := models.User{
		TelegramID: telegramID.(int64),
		Username:   req.Username,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Bio:        req.Bio,
		Photos:     req.Photos,
		Interests:  req.Interests,
		University: req.University,
		Faculty:    req.Faculty,
		Course:     req.Course,
		BirthDate:  req.BirthDate,
		Gender:     req.Gender,
		LookingFor: req.LookingFor,
		IsActive:   isActive,
	}

	if err := h.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "first_name", "last_name", "bio", "photos",
			"interests", "university", "faculty", "course", "birth_date",
			"gender", "looking_for", "is_active", "updated_at",
		}),
	}).Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save profile"})
		return
	}

	// Reload so the response carries the canonical row (id, timestamps).
	if err := h.db.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile saved successfully", "user": user})
}

func (h *ProfileHandler) UploadPhoto(c *gin.Context) {
	user, err := currentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No photo provided"})
		return
	}
	defer file.Close()

	if header.Size > h.cfg.MaxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
		return
	}
	contentType := header.Header.Get("Content-Type")
	allowed := false
	for _, allowedType := range h.cfg.AllowedImageTypes {
		if contentType == allowedType {
			allowed = true
			break
		}
	}
	if !allowed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
		return
	}

	url, err := h.storage.UploadPhoto(c.Request.Context(), user.ID, file, header.Size, header.Filename, contentType)
	if err != nil {
		logrus.WithError(err).Error("photo upload failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to upload photo"})
		return
	}

	user.Photos = append(user.Photos, url)
	if err := h.db.Model(user).Update("photos", user.Photos).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save photo"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Photo uploaded successfully", "url": url, "photos": user.Photos})
}

func (h *ProfileHandler) DeletePhoto(c *gin.Context) {
	user, err := currentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}

	remaining := make([]string, 0, len(user.Photos))
	found := false
	for _, photo := range user.Photos {
		if photo == url {
			found = true
			continue
		}
		remaining = append(remaining, photo)
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Photo not found"})
		return
	}

	if err := h.storage.DeletePhoto(c.Request.Context(), url); err != nil {
		// Keep going: the profile row is the source of truth for the list.
		logrus.WithError(err).Warn("failed to delete photo from storage")
	}

	user.Photos = remaining
	if err := h.db.Model(user).Update("photos", user.Photos).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Photo deleted successfully", "photos": user.Photos})
}
