package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"polydate-server/internal/config"
	"polydate-server/internal/models"
	"polydate-server/internal/redis"
	ws "polydate-server/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type MessageHandler struct {
	db    *gorm.DB
	redis *redis.Client
	cfg   *config.Config
	hub   *ws.Hub
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required,notblank"`
}

type MessageResponse struct {
	ID        uint       `json:"id"`
	MatchID   uint       `json:"match_id"`
	SenderID  uint       `json:"sender_id"`
	Content   string     `json:"content"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func NewMessageHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{db: db, redis: rdb, cfg: cfg, hub: hub}
}

// GetMessages returns the full conversation history for a match in
// ascending creation order (ties broken by id, i.e. insertion order).
func (h *MessageHandler) GetMessages(c *gin.Context) {
	user, err := currentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	match, err := h.loadMatch(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
		return
	}
	if !match.HasParticipant(user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied to this conversation"})
		return
	}

	var messages []models.Message
	if err := h.db.
		Where("match_id = ?", match.ID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to fetch messages"})
		return
	}

	responses := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		responses = append(responses, messageResponse(&msg))
	}

	c.JSON(http.StatusOK, gin.H{"messages": responses})
}

// SendMessage appends one message. Sender must be a match
// participant and content must be non-empty after trimming; both are
// checked before anything is written. The match's last_message_at is
// touched in the same transaction so the conversation list ordering
// can never drift from the log.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	user, err := currentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	match, err := h.loadMatch(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
		return
	}
	if !match.HasParticipant(user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied to this conversation"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message content cannot be empty"})
		return
	}
	content := strings.TrimSpace(req.Content)

	message := models.Message{
		MatchID:  match.ID,
		SenderID: user.ID,
		Content:  content,
	}
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		if err := tx.Model(&models.Match{}).
			Where("id = ?", match.ID).
			Update("last_message_at", message.CreatedAt).Error; err != nil {
			return fmt.Errorf("touch match activity: %w", err)
		}
		return nil
	})
	if err != nil {
		logrus.WithError(err).Error("message transaction failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	h.notifyMessage(match, user, &message)

	c.JSON(http.StatusCreated, gin.H{"message": messageResponse(&message)})
}

// MarkAsRead flags every message the counterpart sent as read.
func (h *MessageHandler) MarkAsRead(c *gin.Context) {
	user, err := currentUser(c, h.db)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	match, err := h.loadMatch(c)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
		return
	}
	if !match.HasParticipant(user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied to this conversation"})
		return
	}

	now := time.Now()
	if err := h.db.Model(&models.Message{}).
		Where("match_id = ? AND sender_id != ? AND is_read = ?", match.ID, user.ID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark messages as read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Messages marked as read"})
}

// loadMatch resolves the :match_id route param. The participant pair
// is immutable, so a cached copy can never go stale; redis is a
// read-through in front of the database row.
func (h *MessageHandler) loadMatch(c *gin.Context) (*models.Match, error) {
	matchID, err := strconv.ParseUint(c.Param("match_id"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid match id: %w", err)
	}

	ctx := c.Request.Context()
	key := fmt.Sprintf("match:%d", matchID)
	if cached, err := h.redis.HGetAll(ctx, key); err == nil && len(cached) > 0 {
		user1, err1 := strconv.ParseUint(cached["user1_id"], 10, 32)
		user2, err2 := strconv.ParseUint(cached["user2_id"], 10, 32)
		if err1 == nil && err2 == nil {
			return &models.Match{
				ID:      uint(matchID),
				User1ID: uint(user1),
				User2ID: uint(user2),
			}, nil
		}
	}

	var match models.Match
	if err := h.db.First(&match, uint(matchID)).Error; err != nil {
		return nil, err
	}

	if err := h.redis.HSet(ctx, key,
		"id", match.ID,
		"user1_id", match.User1ID,
		"user2_id", match.User2ID,
	); err == nil {
		_ = h.redis.Expire(ctx, key, 24*time.Hour)
	}

	return &match, nil
}

func (h *MessageHandler) notifyMessage(match *models.Match, sender *models.User, message *models.Message) {
	otherID := match.OtherUserID(sender.ID)

	notification := models.Notification{
		UserID: otherID,
		Type:   "message",
		Title:  "New Message",
		Body:   message.Content,
		Data:   fmt.Sprintf(`{"match_id": %d}`, match.ID),
	}
	if err := h.db.Create(&notification).Error; err != nil {
		logrus.WithError(err).Warn("failed to create message notification")
	}

	event := ws.MessageEvent{
		Type:      "message",
		MatchID:   match.ID,
		SenderID:  sender.ID,
		Content:   message.Content,
		Timestamp: message.CreatedAt.Format(time.RFC3339),
	}
	if payload, err := json.Marshal(event); err == nil {
		h.hub.BroadcastToUser(otherID, payload)
	}
}

func messageResponse(msg *models.Message) MessageResponse {
	return MessageResponse{
		ID:        msg.ID,
		MatchID:   msg.MatchID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		IsRead:    msg.IsRead,
		ReadAt:    msg.ReadAt,
		CreatedAt: msg.CreatedAt,
	}
}
