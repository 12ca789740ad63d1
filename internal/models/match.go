package models

import (
	"time"
)

const (
	DirectionLike    = "like"
	DirectionDislike = "dislike"
)

// Swipe is one directional decision in the append-only ledger.
// The composite unique index keeps at most one row per ordered
// (from, to) pair; a replayed swipe is inserted with ON CONFLICT DO
// NOTHING so the first decision wins.
type Swipe struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	FromUserID uint      `json:"from_user_id" gorm:"uniqueIndex:idx_swipe_pair;not null"`
	ToUserID   uint      `json:"to_user_id" gorm:"uniqueIndex:idx_swipe_pair;not null"`
	Direction  string    `json:"direction" gorm:"not null"` // like, dislike
	CreatedAt  time.Time `json:"created_at"`
}

// Match is a confirmed mutual like. User1ID < User2ID always; the
// unique index on the canonical pair is what makes match creation an
// atomic insert-if-absent under concurrent mutual likes.
type Match struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	User1ID       uint      `json:"user1_id" gorm:"uniqueIndex:idx_match_pair;not null"`
	User2ID       uint      `json:"user2_id" gorm:"uniqueIndex:idx_match_pair;not null"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// OtherUserID returns the counterpart of userID on this match.
func (m *Match) OtherUserID(userID uint) uint {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// HasParticipant reports whether userID is one of the two matched users.
func (m *Match) HasParticipant(userID uint) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// CanonicalPair orders two user IDs into the (user1, user2) slots.
func CanonicalPair(a, b uint) (uint, uint) {
	if a < b {
		return a, b
	}
	return b, a
}

type Message struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	MatchID   uint       `json:"match_id" gorm:"index;not null"`
	SenderID  uint       `json:"sender_id" gorm:"not null"`
	Content   string     `json:"content" gorm:"not null"`
	IsRead    bool       `json:"is_read" gorm:"default:false"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
