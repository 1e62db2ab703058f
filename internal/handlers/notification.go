package handlers

import (
	"errors"
	"net/http"

	"inkwell/internal/middleware"
	"inkwell/internal/services"
	"inkwell/internal/utils"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	perPage int
}

func NewNotificationHandler(perPage int) *NotificationHandler {
	return &NotificationHandler{perPage: perPage}
}

func (h *NotificationHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	page := utils.ParsePage(c.Query("page"))
	unreadOnly := c.Query("filter") == "unread"

	notifications, total, err := services.GetNotifications(user.ID, page, h.perPage, unreadOnly)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load notifications.")
		return
	}

	Render(c, http.StatusOK, "notification/list.html", gin.H{
		"Notifications": notifications,
		"Total":         total,
		"Page":          page,
		"UnreadOnly":    unreadOnly,
	})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	user := middleware.CurrentUser(c)

	err := services.MarkNotificationRead(user.ID, parseID(c, "id"))
	if errors.Is(err, services.ErrNotFound) {
		RenderError(c, http.StatusNotFound, "Notification not found.")
		return
	}
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not update the notification.")
		return
	}
	c.Redirect(http.StatusFound, "/notifications")
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	user := middleware.CurrentUser(c)

	if _, err := services.MarkAllNotificationsRead(user.ID); err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not update notifications.")
		return
	}
	flash(c, "success", "All notifications marked as read.")
	c.Redirect(http.StatusFound, "/notifications")
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)

	err := services.DeleteNotification(user.ID, parseID(c, "id"))
	if errors.Is(err, services.ErrNotFound) {
		RenderError(c, http.StatusNotFound, "Notification not found.")
		return
	}
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not delete the notification.")
		return
	}
	c.Redirect(http.StatusFound, "/notifications")
}

// UnreadCount feeds the navbar badge poller.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	user := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{"unread": services.UnreadNotificationCount(user.ID)})
}
