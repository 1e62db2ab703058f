package handlers

import (
	"errors"
	"net/http"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/middleware"
	"inkwell/internal/services"
	"inkwell/internal/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	blog     *services.BlogService
	uploader *services.ImageUploader
	cfg      *config.Config
}

func NewUserHandler(blog *services.BlogService, uploader *services.ImageUploader, cfg *config.Config) *UserHandler {
	return &UserHandler{blog: blog, uploader: uploader, cfg: cfg}
}

// ShowProfile renders a user's public profile.
func (h *UserHandler) ShowProfile(c *gin.Context) {
	userID := parseID(c, "id")
	profile, err := h.blog.GetUserProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			RenderError(c, http.StatusNotFound, "User not found.")
			return
		}
		RenderError(c, http.StatusInternalServerError, "Could not load the profile.")
		return
	}

	viewer := middleware.CurrentUser(c)
	var viewerID uint
	if viewer != nil {
		viewerID = viewer.ID
	}

	Render(c, http.StatusOK, "user/profile.html", gin.H{
		"Profile":     profile,
		"IsFollowing": h.blog.IsFollowing(viewerID, userID),
		"IsSelf":      viewerID == userID,
	})
}

// ShowPosts lists every post by one user.
func (h *UserHandler) ShowPosts(c *gin.Context) {
	userID := parseID(c, "id")
	page := utils.ParsePage(c.Query("page"))

	profile, err := h.blog.GetUserProfile(c.Request.Context(), userID)
	if err != nil {
		RenderError(c, http.StatusNotFound, "User not found.")
		return
	}

	result, err := h.blog.GetUserPosts(c.Request.Context(), userID, page, h.cfg.PostsPerPage)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load posts.")
		return
	}

	Render(c, http.StatusOK, "user/posts.html", gin.H{
		"Profile": profile,
		"Page":    result,
	})
}

func (h *UserHandler) ShowEditProfile(c *gin.Context) {
	Render(c, http.StatusOK, "user/edit_profile.html", gin.H{
		"User": middleware.CurrentUser(c),
	})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)

	avatarFilename := ""
	if file, header, err := c.Request.FormFile("avatar"); err == nil {
		defer file.Close()
		avatarFilename, err = h.uploader.Save(file, header, "avatars")
		if err != nil {
			Render(c, http.StatusBadRequest, "user/edit_profile.html", gin.H{
				"User":  user,
				"Error": err.Error(),
			})
			return
		}
	}

	website := strings.TrimSpace(c.PostForm("website"))
	if website != "" && !strings.HasPrefix(website, "http://") && !strings.HasPrefix(website, "https://") {
		website = "https://" + website
	}

	oldAvatar := user.AvatarFilename
	err := services.UpdateProfile(user,
		strings.TrimSpace(c.PostForm("first_name")),
		strings.TrimSpace(c.PostForm("last_name")),
		strings.TrimSpace(c.PostForm("bio")),
		strings.TrimSpace(c.PostForm("location")),
		website,
		avatarFilename)
	if err != nil {
		Render(c, http.StatusBadRequest, "user/edit_profile.html", gin.H{
			"User":  user,
			"Error": err.Error(),
		})
		return
	}
	if avatarFilename != "" && oldAvatar != "" {
		h.uploader.Remove("avatars", oldAvatar)
	}

	h.blog.InvalidateUser(c.Request.Context(), user.ID)
	flash(c, "success", "Profile updated.")
	c.Redirect(http.StatusFound, "/user/profile/"+uintToString(user.ID))
}

func (h *UserHandler) Follow(c *gin.Context) {
	user := middleware.CurrentUser(c)
	targetID := parseID(c, "id")

	err := h.blog.FollowUser(c.Request.Context(), user.ID, targetID)
	switch {
	case errors.Is(err, services.ErrSelfFollow):
		flash(c, "warning", "You cannot follow yourself.")
	case errors.Is(err, services.ErrNotFound):
		RenderError(c, http.StatusNotFound, "User not found.")
		return
	case err != nil:
		RenderError(c, http.StatusInternalServerError, "Could not follow.")
		return
	default:
		go services.NotifyFollow(targetID, user)
	}

	c.Redirect(http.StatusFound, "/user/profile/"+uintToString(targetID))
}

func (h *UserHandler) Unfollow(c *gin.Context) {
	user := middleware.CurrentUser(c)
	targetID := parseID(c, "id")

	if err := h.blog.UnfollowUser(c.Request.Context(), user.ID, targetID); err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not unfollow.")
		return
	}
	c.Redirect(http.StatusFound, "/user/profile/"+uintToString(targetID))
}

func (h *UserHandler) ShowFollowers(c *gin.Context) {
	userID := parseID(c, "id")
	page := utils.ParsePage(c.Query("page"))

	profile, err := h.blog.GetUserProfile(c.Request.Context(), userID)
	if err != nil {
		RenderError(c, http.StatusNotFound, "User not found.")
		return
	}

	users, total, err := h.blog.GetFollowers(userID, page, h.cfg.UsersPerPage)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load followers.")
		return
	}

	Render(c, http.StatusOK, "user/follow_list.html", gin.H{
		"Profile": profile,
		"Users":   users,
		"Total":   total,
		"Mode":    "followers",
	})
}

func (h *UserHandler) ShowFollowing(c *gin.Context) {
	userID := parseID(c, "id")
	page := utils.ParsePage(c.Query("page"))

	profile, err := h.blog.GetUserProfile(c.Request.Context(), userID)
	if err != nil {
		RenderError(c, http.StatusNotFound, "User not found.")
		return
	}

	users, total, err := h.blog.GetFollowing(userID, page, h.cfg.UsersPerPage)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load following.")
		return
	}

	Render(c, http.StatusOK, "user/follow_list.html", gin.H{
		"Profile": profile,
		"Users":   users,
		"Total":   total,
		"Mode":    "following",
	})
}
