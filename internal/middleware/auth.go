package middleware

import (
	"net/http"
	"time"

	"inkwell/internal/db"
	"inkwell/internal/models"
	"inkwell/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"
const UnreadCountKey = "unread_count"

// LoadUser resolves the session user, attaches it to the context with its
// role/permissions preloaded, and keeps last_seen fresh.
func LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get("user_id")

		if userID != nil {
			var user models.User
			result := db.DB.Preload("Role.Permissions").First(&user, userID)
			if result.Error == nil && user.IsActive {
				c.Set(CheckUserKey, &user)

				// Touch last_seen at most once a minute to keep writes cheap.
				if time.Since(user.LastSeen) > time.Minute {
					db.DB.Model(&user).UpdateColumn("last_seen", time.Now())
				}

				c.Set(UnreadCountKey, services.UnreadNotificationCount(user.ID))
			}
		}
		c.Next()
	}
}

// AuthRequired ensures a user is logged in.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(CheckUserKey); !exists {
			c.Redirect(http.StatusFound, "/auth/login?next="+c.Request.URL.Path)
			c.Abort()
			return
		}
		c.Next()
	}
}

// PermissionRequired aborts with 403 unless the session user's role grants
// the named permission.
func PermissionRequired(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, exists := c.Get(CheckUserKey)
		if !exists {
			c.Redirect(http.StatusFound, "/auth/login?next="+c.Request.URL.Path)
			c.Abort()
			return
		}
		user := u.(*models.User)
		if !user.Can(permission) && !user.IsAdministrator() {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

// AdminRequired guards the admin panel.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, exists := c.Get(CheckUserKey)
		if !exists {
			c.Redirect(http.StatusFound, "/auth/login?next="+c.Request.URL.Path)
			c.Abort()
			return
		}
		if !u.(*models.User).IsAdministrator() {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

// CurrentUser returns the session user, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	if u, exists := c.Get(CheckUserKey); exists {
		return u.(*models.User)
	}
	return nil
}
