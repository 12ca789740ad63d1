package handlers

import (
	"errors"
	"net/http"

	"polydate-server/internal/config"
	"polydate-server/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type MatchHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewMatchHandler(db *gorm.DB, cfg *config.Config) *MatchHandler {
	return &MatchHandler{db: db, cfg: cfg}
}

// GetMatches lists the caller's matches, most recently active
// conversation first. Counterpart profiles are resolved with a
// single IN query, not one lookup per match.
func (h *MatchHandler) GetMatches(c *gin.Context) {
	user, err := currentUser(c, h.db)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No profile means no matches, which is a normal empty
			// result, not a failure.
			c.JSON(http.StatusOK, gin.H{"matches": []MatchResponse{}})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to fetch matches"})
		return
	}

	var matches []models.Match
	if err := h.db.
		Where("user1_id = ? OR user2_id = ?", user.ID, user.ID).
		Order("last_message_at DESC, id DESC").
		Find(&matches).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to fetch matches"})
		return
	}

	responses := make([]MatchResponse, 0, len(matches))
	if len(matches) == 0 {
		c.JSON(http.StatusOK, gin.H{"matches": responses})
		return
	}

	otherIDs := make([]uint, 0, len(matches))
	for _, match := range matches {
		otherIDs = append(otherIDs, match.OtherUserID(user.ID))
	}

	var others []models.User
	if err := h.db.Where("id IN ?", otherIDs).Find(&others).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to fetch matches"})
		return
	}
	profileByID := make(map[uint]models.User, len(others))
	for _, other := range others {
		profileByID[other.ID] = other
	}

	for _, match := range matches {
		responses = append(responses, MatchResponse{
			ID:            match.ID,
			User:          profileByID[match.OtherUserID(user.ID)],
			CreatedAt:     match.CreatedAt,
			LastMessageAt: match.LastMessageAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"matches": responses})
}
