package models

import (
	"time"
)

// PostView is one page view of a post, used for trending and the admin
// analytics panel. UserID is nil for anonymous readers.
type PostView struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PostID       uint      `gorm:"not null;index" json:"post_id"`
	Post         Post      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID       *uint     `gorm:"index" json:"user_id"`
	IPAddress    string    `gorm:"size:45;index" json:"ip_address"` // IPv6 fits in 45
	UserAgent    string    `gorm:"type:text" json:"user_agent"`
	Referer      string    `gorm:"size:512" json:"referer"`
	SessionID    string    `gorm:"size:128;index" json:"session_id"`
	IsUniqueView bool      `gorm:"default:true;index" json:"is_unique_view"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}
