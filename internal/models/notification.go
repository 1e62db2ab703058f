package models

import (
	"time"

	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeComment NotificationType = "comment"
	NotificationTypeLike    NotificationType = "like"
	NotificationTypeFollow  NotificationType = "follow"
	NotificationTypeSystem  NotificationType = "system"
)

// Notification priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

type Notification struct {
	ID      uint             `gorm:"primaryKey" json:"id"`
	UserID  uint             `gorm:"not null;index" json:"user_id"` // receiver
	User    User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Title   string           `gorm:"size:200;not null" json:"title"`
	Message string           `gorm:"type:text;not null" json:"message"`
	Type    NotificationType `gorm:"type:varchar(50);not null;index" json:"type"`

	// Category groups notifications for filtering; it defaults to the type
	// but broadcasts may set their own.
	Category string `gorm:"size:50;index:idx_notification_category_created" json:"category"`
	Priority string `gorm:"size:20;default:'normal';index" json:"priority"`

	IsRead bool       `gorm:"default:false;not null;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at"`

	RelatedPostID    *uint `json:"related_post_id"`
	RelatedCommentID *uint `json:"related_comment_id"`
	RelatedUserID    *uint `json:"related_user_id"`
	RelatedUser      *User `gorm:"foreignKey:RelatedUserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"related_user,omitempty"`

	ExpiresAt *time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time  `gorm:"index;index:idx_notification_category_created" json:"created_at"`
}

// BeforeCreate fills the category from the type when none was given.
func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.Category == "" {
		n.Category = string(n.Type)
	}
	return nil
}

func (n *Notification) IsExpired() bool {
	return n.ExpiresAt != nil && time.Now().After(*n.ExpiresAt)
}
