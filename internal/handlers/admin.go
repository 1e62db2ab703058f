package handlers

import (
	"net/http"
	"strings"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/db"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/services"
	"inkwell/internal/utils"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	blog    *services.BlogService
	limiter *middleware.RateLimiter
	cfg     *config.Config
}

func NewAdminHandler(blog *services.BlogService, limiter *middleware.RateLimiter, cfg *config.Config) *AdminHandler {
	return &AdminHandler{blog: blog, limiter: limiter, cfg: cfg}
}

// Dashboard shows site totals and recent activity.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	var userCount, postCount, commentCount, categoryCount int64
	db.DB.Model(&models.User{}).Count(&userCount)
	db.DB.Model(&models.Post{}).Count(&postCount)
	db.DB.Model(&models.Comment{}).Count(&commentCount)
	db.DB.Model(&models.Category{}).Count(&categoryCount)

	viewStats, _ := services.GetViewStats()

	var recentUsers []models.User
	db.DB.Order("created_at DESC").Limit(5).Find(&recentUsers)
	var recentPosts []models.Post
	db.DB.Preload("User").Order("created_at DESC").Limit(5).Find(&recentPosts)

	Render(c, http.StatusOK, "admin/dashboard.html", gin.H{
		"UserCount":     userCount,
		"PostCount":     postCount,
		"CommentCount":  commentCount,
		"CategoryCount": categoryCount,
		"ViewStats":     viewStats,
		"RecentUsers":   recentUsers,
		"RecentPosts":   recentPosts,
	})
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	page := utils.ParsePage(c.Query("page"))

	var total int64
	db.DB.Model(&models.User{}).Count(&total)

	var users []models.User
	db.DB.Preload("Role").
		Order("created_at DESC").
		Limit(h.cfg.UsersPerPage).
		Offset((page - 1) * h.cfg.UsersPerPage).
		Find(&users)

	var roles []models.Role
	db.DB.Order("id ASC").Find(&roles)

	Render(c, http.StatusOK, "admin/users.html", gin.H{
		"Users": users,
		"Roles": roles,
		"Total": total,
		"Page":  page,
	})
}

// ToggleUserActive flips an account between active and deactivated. Admins
// cannot deactivate themselves.
func (h *AdminHandler) ToggleUserActive(c *gin.Context) {
	admin := middleware.CurrentUser(c)
	userID := parseID(c, "id")
	if userID == admin.ID {
		flash(c, "warning", "You cannot deactivate your own account.")
		c.Redirect(http.StatusFound, "/admin/users")
		return
	}

	var user models.User
	if err := db.DB.First(&user, userID).Error; err != nil {
		RenderError(c, http.StatusNotFound, "User not found.")
		return
	}

	db.DB.Model(&user).Update("is_active", !user.IsActive)
	h.blog.InvalidateUser(c.Request.Context(), user.ID)

	flash(c, "success", "User updated.")
	c.Redirect(http.StatusFound, "/admin/users")
}

// ChangeUserRole assigns a role. Admins cannot demote themselves.
func (h *AdminHandler) ChangeUserRole(c *gin.Context) {
	admin := middleware.CurrentUser(c)
	if parseID(c, "id") == admin.ID {
		flash(c, "warning", "You cannot change your own role.")
		c.Redirect(http.StatusFound, "/admin/users")
		return
	}

	var user models.User
	if err := db.DB.First(&user, parseID(c, "id")).Error; err != nil {
		RenderError(c, http.StatusNotFound, "User not found.")
		return
	}

	var role models.Role
	if err := db.DB.First(&role, utils.StringToInt(c.PostForm("role_id"))).Error; err != nil {
		flash(c, "danger", "Unknown role.")
		c.Redirect(http.StatusFound, "/admin/users")
		return
	}

	db.DB.Model(&user).Updates(map[string]interface{}{
		"role_id":  role.ID,
		"is_admin": role.Name == "Administrator",
	})
	h.blog.InvalidateUser(c.Request.Context(), user.ID)

	flash(c, "success", user.Username+" is now "+role.Name+".")
	c.Redirect(http.StatusFound, "/admin/users")
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	admin := middleware.CurrentUser(c)
	userID := parseID(c, "id")
	if userID == admin.ID {
		flash(c, "warning", "You cannot delete your own account.")
		c.Redirect(http.StatusFound, "/admin/users")
		return
	}

	var user models.User
	if err := db.DB.First(&user, userID).Error; err != nil {
		RenderError(c, http.StatusNotFound, "User not found.")
		return
	}

	// Posts, comments, likes, follows and notifications cascade.
	if err := db.DB.Delete(&user).Error; err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not delete the user.")
		return
	}
	h.blog.InvalidateUser(c.Request.Context(), user.ID)
	cache.NewInvalidator(h.blog.Store()).PostsLists(c.Request.Context())

	flash(c, "success", "User deleted.")
	c.Redirect(http.StatusFound, "/admin/users")
}

func (h *AdminHandler) ListPosts(c *gin.Context) {
	page := utils.ParsePage(c.Query("page"))
	perPage := 20

	var total int64
	db.DB.Model(&models.Post{}).Count(&total)

	var posts []models.Post
	db.DB.Preload("User").Preload("Category").
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&posts)

	Render(c, http.StatusOK, "admin/posts.html", gin.H{
		"Posts": posts,
		"Total": total,
		"Page":  page,
	})
}

func (h *AdminHandler) DeletePost(c *gin.Context) {
	var post models.Post
	if err := db.DB.First(&post, parseID(c, "id")).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Post not found.")
		return
	}

	if err := h.blog.DeletePost(c.Request.Context(), &post); err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not delete the post.")
		return
	}

	flash(c, "success", "Post deleted.")
	c.Redirect(http.StatusFound, "/admin/posts")
}

func (h *AdminHandler) ListComments(c *gin.Context) {
	page := utils.ParsePage(c.Query("page"))
	perPage := 20

	var total int64
	db.DB.Model(&models.Comment{}).Count(&total)

	var comments []models.Comment
	db.DB.Preload("User").Preload("Post").
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&comments)

	Render(c, http.StatusOK, "admin/comments.html", gin.H{
		"Comments": comments,
		"Total":    total,
		"Page":     page,
	})
}

func (h *AdminHandler) DeleteComment(c *gin.Context) {
	var comment models.Comment
	if err := db.DB.First(&comment, parseID(c, "id")).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Comment not found.")
		return
	}

	if err := h.blog.DeleteComment(c.Request.Context(), &comment); err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not delete the comment.")
		return
	}

	flash(c, "success", "Comment deleted.")
	c.Redirect(http.StatusFound, "/admin/comments")
}

func (h *AdminHandler) ListCategories(c *gin.Context) {
	var categories []models.Category
	db.DB.Order("name ASC").Find(&categories)

	for i := range categories {
		var count int64
		db.DB.Model(&models.Post{}).Where("category_id = ?", categories[i].ID).Count(&count)
		categories[i].PostCount = int(count)
	}

	Render(c, http.StatusOK, "admin/categories.html", gin.H{"Categories": categories})
}

func (h *AdminHandler) CreateCategory(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		flash(c, "danger", "Category name is required.")
		c.Redirect(http.StatusFound, "/admin/categories")
		return
	}

	category := models.Category{Name: name, Description: strings.TrimSpace(c.PostForm("description"))}
	if err := db.DB.Create(&category).Error; err != nil {
		flash(c, "danger", "Could not create the category. Names must be unique.")
		c.Redirect(http.StatusFound, "/admin/categories")
		return
	}

	flash(c, "success", "Category created.")
	c.Redirect(http.StatusFound, "/admin/categories")
}

func (h *AdminHandler) UpdateCategory(c *gin.Context) {
	var category models.Category
	if err := db.DB.First(&category, parseID(c, "id")).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Category not found.")
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		flash(c, "danger", "Category name is required.")
		c.Redirect(http.StatusFound, "/admin/categories")
		return
	}

	err := db.DB.Model(&category).Updates(map[string]interface{}{
		"name":        name,
		"description": strings.TrimSpace(c.PostForm("description")),
	}).Error
	if err != nil {
		flash(c, "danger", "Could not update the category.")
		c.Redirect(http.StatusFound, "/admin/categories")
		return
	}

	cache.NewInvalidator(h.blog.Store()).Category(c.Request.Context(), category.ID)
	flash(c, "success", "Category updated.")
	c.Redirect(http.StatusFound, "/admin/categories")
}

// DeleteCategory refuses to remove a category that still has posts.
func (h *AdminHandler) DeleteCategory(c *gin.Context) {
	categoryID := parseID(c, "id")

	var count int64
	db.DB.Model(&models.Post{}).Where("category_id = ?", categoryID).Count(&count)
	if count > 0 {
		flash(c, "warning", "Move or delete its posts before removing a category.")
		c.Redirect(http.StatusFound, "/admin/categories")
		return
	}

	if err := db.DB.Delete(&models.Category{}, categoryID).Error; err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not delete the category.")
		return
	}

	cache.NewInvalidator(h.blog.Store()).Category(c.Request.Context(), categoryID)
	flash(c, "success", "Category deleted.")
	c.Redirect(http.StatusFound, "/admin/categories")
}

// Broadcast sends a system notification to every active user.
func (h *AdminHandler) Broadcast(c *gin.Context) {
	title := strings.TrimSpace(c.PostForm("title"))
	message := strings.TrimSpace(c.PostForm("message"))
	if title == "" || message == "" {
		flash(c, "danger", "Title and message are required.")
		c.Redirect(http.StatusFound, "/admin")
		return
	}

	priority := c.PostForm("priority")
	switch priority {
	case models.PriorityLow, models.PriorityNormal, models.PriorityHigh:
	default:
		priority = models.PriorityNormal
	}

	var expiresAt *time.Time
	if days := utils.StringToInt(c.PostForm("expires_days")); days > 0 {
		t := time.Now().AddDate(0, 0, days)
		expiresAt = &t
	}

	sent, err := services.BroadcastSystem(title, message, priority, expiresAt)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Broadcast failed.")
		return
	}

	flash(c, "success", "Announcement sent to "+uintToString(uint(sent))+" users.")
	c.Redirect(http.StatusFound, "/admin")
}

// CachePanel shows backend stats and the manual cache controls.
func (h *AdminHandler) CachePanel(c *gin.Context) {
	stats := h.blog.Store().Stats(c.Request.Context())
	Render(c, http.StatusOK, "admin/cache.html", gin.H{"Stats": stats})
}

func (h *AdminHandler) FlushCache(c *gin.Context) {
	h.blog.Store().Flush(c.Request.Context())
	flash(c, "success", "Cache cleared.")
	c.Redirect(http.StatusFound, "/admin/cache")
}

// InvalidatePattern deletes cache entries matching a glob pattern.
func (h *AdminHandler) InvalidatePattern(c *gin.Context) {
	pattern := strings.TrimSpace(c.PostForm("pattern"))
	if pattern == "" {
		flash(c, "danger", "Pattern is required.")
		c.Redirect(http.StatusFound, "/admin/cache")
		return
	}

	h.blog.Store().DeletePattern(c.Request.Context(), pattern)
	flash(c, "success", "Invalidated keys matching "+pattern+".")
	c.Redirect(http.StatusFound, "/admin/cache")
}

func (h *AdminHandler) WarmCache(c *gin.Context) {
	err := h.blog.WarmPopularContent(c.Request.Context(), h.cfg.PostsPerPage, 10)
	if err != nil {
		flash(c, "danger", "Cache warm-up failed.")
	} else {
		flash(c, "success", "Cache warmed.")
	}
	c.Redirect(http.StatusFound, "/admin/cache")
}

// ClearRateLimit resets the counter behind one rate-limit key.
func (h *AdminHandler) ClearRateLimit(c *gin.Context) {
	key := strings.TrimSpace(c.PostForm("key"))
	if key == "" {
		flash(c, "danger", "Rate limit key is required.")
		c.Redirect(http.StatusFound, "/admin/cache")
		return
	}

	if h.limiter.Clear(c, key) {
		flash(c, "success", "Rate limit cleared for "+key+".")
	} else {
		flash(c, "danger", "Could not clear the rate limit.")
	}
	c.Redirect(http.StatusFound, "/admin/cache")
}
