package models

import (
	"time"
)

type User struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Username       string `gorm:"size:80;uniqueIndex;not null" json:"username"`
	Email          string `gorm:"size:120;uniqueIndex;not null" json:"email"`
	PasswordHash   string `gorm:"size:255;not null" json:"-"`
	AvatarFilename string `gorm:"size:255;default:'default-avatar.png'" json:"avatar_filename"`

	FirstName string `gorm:"size:64" json:"first_name"`
	LastName  string `gorm:"size:64" json:"last_name"`
	Bio       string `gorm:"type:text" json:"bio"`
	Location  string `gorm:"size:128" json:"location"`
	Website   string `gorm:"size:256" json:"website"`

	LastSeen time.Time `gorm:"index" json:"last_seen"`

	EmailConfirmed    bool       `gorm:"default:false;not null" json:"email_confirmed"`
	ConfirmationToken string     `gorm:"size:128" json:"-"`
	ResetToken        string     `gorm:"size:128" json:"-"`
	ResetExpires      *time.Time `json:"-"`

	RoleID *uint `gorm:"index" json:"role_id"`
	Role   *Role `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"role,omitempty"`

	// Legacy flag kept alongside RBAC; IsAdministrator checks both.
	IsAdmin  bool `gorm:"default:false" json:"is_admin"`
	IsActive bool `gorm:"default:true;index" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Filled by queries, not stored.
	PostCount     int `gorm:"-" json:"post_count,omitempty"`
	FollowerCount int `gorm:"-" json:"follower_count,omitempty"`
	FollowedCount int `gorm:"-" json:"followed_count,omitempty"`
}

// FullName falls back to the username when real names are unset.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// Can reports whether the user's role grants the named permission.
func (u *User) Can(permission string) bool {
	if u.Role == nil {
		return false
	}
	return u.Role.HasPermission(permission)
}

func (u *User) IsAdministrator() bool {
	return u.IsAdmin || u.Can(PermAdminAccess)
}

func (u *User) IsModerator() bool {
	return u.Can(PermModerateComments) || u.IsAdministrator()
}

func (u *User) IsOnline(threshold time.Duration) bool {
	return !u.LastSeen.IsZero() && time.Since(u.LastSeen) < threshold
}
