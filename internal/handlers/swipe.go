package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"polydate-server/internal/config"
	"polydate-server/internal/models"
	"polydate-server/internal/redis"
	ws "polydate-server/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SwipeHandler struct {
	db    *gorm.DB
	redis *redis.Client
	cfg   *config.Config
	hub   *ws.Hub
}

type SwipeRequest struct {
	ToUserID  uint   `json:"to_user_id" binding:"required"`
	Direction string `json:"direction" binding:"required,oneof=like dislike"`
}

type MatchResponse struct {
	ID            uint        `json:"id"`
	User          models.User `json:"user"`
	CreatedAt     time.Time   `json:"created_at"`
	LastMessageAt time.Time   `json:"last_message_at"`
}

func NewSwipeHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config, hub *ws.Hub) *SwipeHandler {
	return &SwipeHandler{db: db, redis: rdb, cfg: cfg, hub: hub}
}

// RecordSwipe appends one decision to the ledger and, on a like, runs
// match detection in the same transaction. A replayed swipe on the
// same pair is a no-op. Exactly one match can ever exist per user
// pair: the insert goes through the unique canonical-pair index with
// ON CONFLICT DO NOTHING, so the loser of a simultaneous mutual like
// simply reads the winner's row and reports success.
func (h *SwipeHandler) RecordSwipe(c *gin.Context) {
	user, err := currentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	var req SwipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ToUserID == user.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot swipe on yourself"})
		return
	}

	var target models.User
	if err := h.db.Where("id = ? AND is_active = ?", req.ToUserID, true).First(&target).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	swipe := models.Swipe{
		FromUserID: user.ID,
		ToUserID:   req.ToUserID,
		Direction:  req.Direction,
	}
	var match models.Match
	matchCreated := false
	err = h.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "from_user_id"}, {Name: "to_user_id"}},
			DoNothing: true,
		}).Create(&swipe)
		if result.Error != nil {
			return fmt.Errorf("record swipe: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			// Replayed pair: the first recorded decision stands, so
			// match detection must run off the stored direction, not
			// whatever the replay claims.
			if err := tx.Where("from_user_id = ? AND to_user_id = ?", user.ID, req.ToUserID).
				First(&swipe).Error; err != nil {
				return fmt.Errorf("load recorded swipe: %w", err)
			}
		}

		if swipe.Direction != models.DirectionLike {
			return nil
		}

		var reverse int64
		if err := tx.Model(&models.Swipe{}).
			Where("from_user_id = ? AND to_user_id = ? AND direction = ?",
				req.ToUserID, user.ID, models.DirectionLike).
			Count(&reverse).Error; err != nil {
			return fmt.Errorf("check reciprocal like: %w", err)
		}
		if reverse == 0 {
			return nil
		}

		user1, user2 := models.CanonicalPair(user.ID, req.ToUserID)
		now := time.Now()
		match = models.Match{
			User1ID:       user1,
			User2ID:       user2,
			CreatedAt:     now,
			LastMessageAt: now,
		}
		result = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
			DoNothing: true,
		}).Create(&match)
		if result.Error != nil {
			return fmt.Errorf("create match: %w", result.Error)
		}
		matchCreated = result.RowsAffected == 1

		if !matchCreated {
			// Lost the race or replayed like: the pair's match exists.
			if err := tx.Where("user1_id = ? AND user2_id = ?", user1, user2).
				First(&match).Error; err != nil {
				return fmt.Errorf("load existing match: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		logrus.WithError(err).Error("swipe transaction failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record swipe"})
		return
	}

	ctx := c.Request.Context()
	if swipe.Direction == models.DirectionLike {
		key := fmt.Sprintf("likes:count:%d", req.ToUserID)
		if _, err := h.redis.Incr(ctx, key); err == nil {
			_ = h.redis.Expire(ctx, key, time.Hour)
		}
	}

	if match.ID == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "Swipe recorded", "match": nil})
		return
	}

	if matchCreated {
		h.cacheMatch(ctx, &match)
		h.notifyMatch(user, &target, &match)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "It's a match!",
		"match": MatchResponse{
			ID:            match.ID,
			User:          target,
			CreatedAt:     match.CreatedAt,
			LastMessageAt: match.LastMessageAt,
		},
	})
}

// cacheMatch stores the immutable participant pair for cheap access
// checks on the message endpoints.
func (h *SwipeHandler) cacheMatch(ctx context.Context, match *models.Match) {
	key := fmt.Sprintf("match:%d", match.ID)
	if err := h.redis.HSet(ctx, key,
		"id", match.ID,
		"user1_id", match.User1ID,
		"user2_id", match.User2ID,
	); err != nil {
		logrus.WithError(err).Warn("failed to cache match")
		return
	}
	_ = h.redis.Expire(ctx, key, 24*time.Hour)
}

// notifyMatch writes a notification row for each user and pushes a
// match event to both, each carrying the counterpart's profile.
func (h *SwipeHandler) notifyMatch(user, target *models.User, match *models.Match) {
	pairs := []struct {
		to          uint
		counterpart *models.User
	}{
		{to: user.ID, counterpart: target},
		{to: target.ID, counterpart: user},
	}

	for _, p := range pairs {
		notification := models.Notification{
			UserID: p.to,
			Type:   "match",
			Title:  "New Match!",
			Body:   fmt.Sprintf("You matched with %s! Start chatting now.", p.counterpart.FirstName),
			Data:   fmt.Sprintf(`{"match_id": %d}`, match.ID),
		}
		if err := h.db.Create(&notification).Error; err != nil {
			logrus.WithError(err).Warn("failed to create match notification")
		}

		event := ws.MatchEvent{
			Type:        "match",
			MatchID:     match.ID,
			Counterpart: p.counterpart,
		}
		if payload, err := json.Marshal(event); err == nil {
			h.hub.BroadcastToUser(p.to, payload)
		}
	}

	logrus.WithFields(logrus.Fields{
		"match_id": match.ID,
		"user1_id": match.User1ID,
		"user2_id": match.User2ID,
	}).Info("match created")
}
