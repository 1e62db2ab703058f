package models

import (
	"time"
)

// Permission names used throughout the app. The full set is seeded in db.Init.
const (
	PermReadPosts         = "read_posts"
	PermCreatePosts       = "create_posts"
	PermEditOwnPosts      = "edit_own_posts"
	PermEditAllPosts      = "edit_all_posts"
	PermDeleteOwnPosts    = "delete_own_posts"
	PermDeleteAllPosts    = "delete_all_posts"
	PermCreateComments    = "create_comments"
	PermEditOwnComments   = "edit_own_comments"
	PermEditAllComments   = "edit_all_comments"
	PermDeleteOwnComments = "delete_own_comments"
	PermDeleteAllComments = "delete_all_comments"
	PermModerateComments  = "moderate_comments"
	PermManageCategories  = "manage_categories"
	PermManageUsers       = "manage_users"
	PermViewAnalytics     = "view_analytics"
	PermAdminAccess       = "admin_access"
	PermAPIAccess         = "api_access"
	PermUploadFiles       = "upload_files"
	PermManageRoles       = "manage_roles"
	PermSendNotifications = "send_notifications"
)

type Permission struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type Role struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Description string       `gorm:"size:255" json:"description"`
	IsDefault   bool         `gorm:"default:false;index" json:"is_default"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (r *Role) HasPermission(name string) bool {
	for _, p := range r.Permissions {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (r *Role) PermissionNames() []string {
	names := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		names = append(names, p.Name)
	}
	return names
}
