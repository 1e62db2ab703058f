package models

import (
	"time"
)

// Follow links a follower to the user being followed. Self-follows are
// rejected in the service layer and by the check constraint.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;index;uniqueIndex:idx_follow_pair;check:follower_id <> followed_id" json:"follower_id"`
	FollowedID uint      `gorm:"not null;index;uniqueIndex:idx_follow_pair" json:"followed_id"`
	Follower   User      `gorm:"foreignKey:FollowerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"follower"`
	Followed   User      `gorm:"foreignKey:FollowedID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"followed"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
