package api

import (
	"errors"
	"net/http"

	"inkwell/internal/db"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/services"
	"inkwell/internal/utils"

	"github.com/gin-gonic/gin"
)

// ListUsers is the public member directory, newest first.
func (a *API) ListUsers(c *gin.Context) {
	page, perPage := a.pagination(c)

	var total int64
	if err := db.DB.Model(&models.User{}).Where("is_active = ?", true).Count(&total).Error; err != nil {
		apiError(c, http.StatusInternalServerError, "could not load users")
		return
	}

	var users []models.User
	err := db.DB.Preload("Role").
		Where("is_active = ?", true).
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&users).Error
	if err != nil {
		apiError(c, http.StatusInternalServerError, "could not load users")
		return
	}

	out := make([]gin.H, 0, len(users))
	for i := range users {
		out = append(out, userJSON(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{"users": out, "total": total, "page": page})
}

func (a *API) GetUser(c *gin.Context) {
	profile, err := a.blog.GetUserProfile(c.Request.Context(), pathID(c))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			apiError(c, http.StatusNotFound, "user not found")
			return
		}
		apiError(c, http.StatusInternalServerError, "could not load user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":           userJSON(&profile.User),
		"post_count":     profile.PostCount,
		"follower_count": profile.FollowerCount,
		"followed_count": profile.FollowedCount,
	})
}

func (a *API) ListUserPosts(c *gin.Context) {
	userID := pathID(c)
	if _, err := a.blog.GetUserProfile(c.Request.Context(), userID); err != nil {
		apiError(c, http.StatusNotFound, "user not found")
		return
	}

	page, perPage := a.pagination(c)
	result, err := a.blog.GetUserPosts(c.Request.Context(), userID, page, perPage)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "could not load posts")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *API) ListCategories(c *gin.Context) {
	var categories []models.Category
	if err := db.DB.Order("name ASC").Find(&categories).Error; err != nil {
		apiError(c, http.StatusInternalServerError, "could not load categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (a *API) ListNotifications(c *gin.Context) {
	user := middleware.CurrentUser(c)
	page := utils.ParsePage(c.Query("page"))
	unreadOnly := c.Query("filter") == "unread"

	notifications, total, err := services.GetNotifications(user.ID, page, 20, unreadOnly)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "could not load notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"total":         total,
		"unread":        services.UnreadNotificationCount(user.ID),
	})
}

func (a *API) MarkNotificationRead(c *gin.Context) {
	user := middleware.CurrentUser(c)

	err := services.MarkNotificationRead(user.ID, pathID(c))
	if errors.Is(err, services.ErrNotFound) {
		apiError(c, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		apiError(c, http.StatusInternalServerError, "could not update notification")
		return
	}
	c.Status(http.StatusNoContent)
}
