// Package api exposes the JSON surface under /api/v1. Authentication is a
// bearer JWT issued by the login endpoint; errors use a single-field
// envelope so clients have one shape to handle.
package api

import (
	"context"
	"net/http"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/db"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/services"

	"github.com/gin-gonic/gin"
)

type API struct {
	blog *services.BlogService
	cfg  *config.Config
}

func New(blog *services.BlogService, cfg *config.Config) *API {
	return &API{blog: blog, cfg: cfg}
}

// Register mounts every endpoint on the /api/v1 group. The group is
// expected to carry the API rate limit already.
func (a *API) Register(g *gin.RouterGroup) {
	g.GET("/health", a.Health)
	g.POST("/auth/register", a.RegisterUser)
	g.POST("/auth/login", a.Login)

	g.GET("/posts", a.ListPosts)
	g.GET("/posts/:id", a.GetPost)
	g.GET("/posts/:id/comments", a.ListComments)
	g.GET("/posts/trending", a.Trending)
	g.GET("/search", a.Search)
	g.GET("/users", a.ListUsers)
	g.GET("/users/:id", a.GetUser)
	g.GET("/users/:id/posts", a.ListUserPosts)
	g.GET("/categories", a.ListCategories)

	auth := g.Group("", middleware.JWTAuth(a.cfg.JWTSecret))
	auth.GET("/auth/me", a.Me)
	auth.POST("/posts", a.CreatePost)
	auth.PUT("/posts/:id", a.UpdatePost)
	auth.DELETE("/posts/:id", a.DeletePost)
	auth.POST("/posts/:id/comments", a.CreateComment)
	auth.DELETE("/comments/:id", a.DeleteComment)
	auth.POST("/posts/:id/like", a.ToggleLike)
	auth.GET("/notifications", a.ListNotifications)
	auth.POST("/notifications/:id/read", a.MarkNotificationRead)
}

func apiError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// Health reports whether the database and cache respond.
func (a *API) Health(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK
	overall := "ok"
	dbStatus := "ok"

	sqlDB, err := db.DB.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		dbStatus = "down"
		overall = "degraded"
		status = http.StatusServiceUnavailable
	}

	cacheStatus := cachePing(ctx, a.blog.Store())
	if cacheStatus != "ok" {
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status":        overall,
		"database":      dbStatus,
		"cache":         cacheStatus,
		"cache_backend": a.blog.Store().Backend(),
	})
}

// cachePing round-trips a sentinel key through the cache store. A write that
// cannot be read back means the backend is unreachable.
func cachePing(ctx context.Context, store cache.Store) string {
	const key = "health:check"
	store.Set(ctx, key, []byte("1"), time.Minute)
	if _, ok := store.Get(ctx, key); !ok {
		return "down"
	}
	store.Delete(ctx, key)
	return "ok"
}

func (a *API) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, userJSON(user))
}

// userJSON is the public projection of a user account.
func userJSON(u *models.User) gin.H {
	roleName := ""
	if u.Role != nil {
		roleName = u.Role.Name
	}
	return gin.H{
		"id":         u.ID,
		"username":   u.Username,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"bio":        u.Bio,
		"location":   u.Location,
		"website":    u.Website,
		"role":       roleName,
		"created_at": u.CreatedAt,
		"last_seen":  u.LastSeen,
	}
}
