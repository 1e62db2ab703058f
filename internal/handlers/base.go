package handlers

import (
	"strconv"
	"strings"

	"inkwell/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Flash is a one-shot message queued in the session and shown on the next
// rendered page.
type Flash struct {
	Category string
	Message  string
}

// flash queues a message. Category matches the alert style in templates
// (success, danger, info, warning).
func flash(c *gin.Context, category, message string) {
	session := sessions.Default(c)
	session.AddFlash(category + "|" + message)
	session.Save()
}

func popFlashes(c *gin.Context) []Flash {
	session := sessions.Default(c)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	session.Save()

	flashes := make([]Flash, 0, len(raw))
	for _, f := range raw {
		s, ok := f.(string)
		if !ok {
			continue
		}
		category, message, found := strings.Cut(s, "|")
		if !found {
			category, message = "info", s
		}
		flashes = append(flashes, Flash{Category: category, Message: message})
	}
	return flashes
}

// Render injects the variables every page needs (current user, unread
// notification badge, flashes, path) before handing off to the template.
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	if user, exists := c.Get(middleware.CheckUserKey); exists {
		obj["CurrentUser"] = user
		if count, ok := c.Get(middleware.UnreadCountKey); ok {
			obj["UnreadCount"] = count.(int64)
		} else {
			obj["UnreadCount"] = int64(0)
		}
	}
	obj["Flashes"] = popFlashes(c)
	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// RenderError shows the shared error page.
func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Error": message, "Code": code})
}

func uintToString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// parseID reads a numeric path parameter, returning 0 when malformed.
func parseID(c *gin.Context, name string) uint {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
