package models

import (
	"time"
)

// User is the dating profile. It is created on the first profile save
// (upsert keyed by TelegramID) and only ever mutated by its owner.
type User struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	TelegramID int64      `json:"telegram_id" gorm:"uniqueIndex;not null"`
	Username   *string    `json:"username,omitempty"`
	FirstName  string     `json:"first_name" gorm:"not null"`
	LastName   *string    `json:"last_name,omitempty"`
	Bio        string     `json:"bio"`
	Photos     []string   `json:"photos" gorm:"serializer:json"`
	Interests  []string   `json:"interests" gorm:"serializer:json"`
	University string     `json:"university"`
	Faculty    string     `json:"faculty"`
	Course     *int       `json:"course,omitempty"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	Gender     string     `json:"gender"`      // male, female
	LookingFor string     `json:"looking_for"` // male, female, all
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	Type      string    `json:"type" gorm:"not null"` // match, message
	Title     string    `json:"title" gorm:"not null"`
	Body      string    `json:"body" gorm:"not null"`
	Data      string    `json:"data"`
	IsRead    bool      `json:"is_read" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
}
