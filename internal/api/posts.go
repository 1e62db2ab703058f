package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"inkwell/internal/db"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/services"
	"inkwell/internal/utils"

	"github.com/gin-gonic/gin"
)

func pathID(c *gin.Context) uint {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func (a *API) pagination(c *gin.Context) (page, perPage int) {
	page = utils.ParsePage(c.Query("page"))
	perPage = utils.StringToInt(c.Query("per_page"))
	if perPage < 1 || perPage > 50 {
		perPage = a.cfg.PostsPerPage
	}
	return page, perPage
}

func (a *API) ListPosts(c *gin.Context) {
	page, perPage := a.pagination(c)
	categoryID := uint(utils.StringToInt(c.Query("category")))
	userID := uint(utils.StringToInt(c.Query("user")))

	result, err := a.blog.GetPosts(c.Request.Context(), page, perPage, categoryID, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "could not load posts")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *API) GetPost(c *gin.Context) {
	post, err := a.blog.GetPost(c.Request.Context(), pathID(c))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			apiError(c, http.StatusNotFound, "post not found")
			return
		}
		apiError(c, http.StatusInternalServerError, "could not load post")
		return
	}
	c.JSON(http.StatusOK, post)
}

type postRequest struct {
	Title      string `json:"title" binding:"required"`
	Content    string `json:"content" binding:"required"`
	CategoryID *uint  `json:"category_id"`
}

func (a *API) CreatePost(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if !user.Can(models.PermCreatePosts) {
		apiError(c, http.StatusForbidden, "missing permission")
		return
	}

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "title and content are required")
		return
	}

	post, err := a.blog.CreatePost(c.Request.Context(), user.ID,
		strings.TrimSpace(req.Title), req.Content, req.CategoryID, "")
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusCreated, post)
}

// canModify applies the own-vs-all permission split.
func canModify(user *models.User, ownerID uint, ownPerm, allPerm string) bool {
	if user.ID == ownerID && user.Can(ownPerm) {
		return true
	}
	return user.Can(allPerm)
}

func (a *API) UpdatePost(c *gin.Context) {
	user := middleware.CurrentUser(c)

	post, err := a.blog.GetPost(c.Request.Context(), pathID(c))
	if err != nil {
		apiError(c, http.StatusNotFound, "post not found")
		return
	}
	if !canModify(user, post.UserID, models.PermEditOwnPosts, models.PermEditAllPosts) {
		apiError(c, http.StatusForbidden, "missing permission")
		return
	}

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "title and content are required")
		return
	}

	err = a.blog.UpdatePost(c.Request.Context(), post,
		strings.TrimSpace(req.Title), req.Content, req.CategoryID, "")
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, post)
}

func (a *API) DeletePost(c *gin.Context) {
	user := middleware.CurrentUser(c)

	post, err := a.blog.GetPost(c.Request.Context(), pathID(c))
	if err != nil {
		apiError(c, http.StatusNotFound, "post not found")
		return
	}
	if !canModify(user, post.UserID, models.PermDeleteOwnPosts, models.PermDeleteAllPosts) {
		apiError(c, http.StatusForbidden, "missing permission")
		return
	}

	if err := a.blog.DeletePost(c.Request.Context(), post); err != nil {
		apiError(c, http.StatusInternalServerError, "could not delete post")
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) ListComments(c *gin.Context) {
	page := utils.ParsePage(c.Query("page"))

	result, err := a.blog.GetPostComments(c.Request.Context(), pathID(c), page, a.cfg.CommentsPerPage)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "could not load comments")
		return
	}
	c.JSON(http.StatusOK, result)
}

type commentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (a *API) CreateComment(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if !user.Can(models.PermCreateComments) {
		apiError(c, http.StatusForbidden, "missing permission")
		return
	}

	post, err := a.blog.GetPost(c.Request.Context(), pathID(c))
	if err != nil {
		apiError(c, http.StatusNotFound, "post not found")
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "content is required")
		return
	}

	comment, err := a.blog.CreateComment(c.Request.Context(), post.ID, user.ID,
		strings.TrimSpace(req.Content))
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	go services.NotifyComment(post, comment, user)
	c.JSON(http.StatusCreated, comment)
}

func (a *API) DeleteComment(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var comment models.Comment
	if err := db.DB.First(&comment, pathID(c)).Error; err != nil {
		apiError(c, http.StatusNotFound, "comment not found")
		return
	}
	if !canModify(user, comment.UserID, models.PermDeleteOwnComments, models.PermDeleteAllComments) {
		apiError(c, http.StatusForbidden, "missing permission")
		return
	}

	if err := a.blog.DeleteComment(c.Request.Context(), &comment); err != nil {
		apiError(c, http.StatusInternalServerError, "could not delete comment")
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) ToggleLike(c *gin.Context) {
	user := middleware.CurrentUser(c)

	post, err := a.blog.GetPost(c.Request.Context(), pathID(c))
	if err != nil {
		apiError(c, http.StatusNotFound, "post not found")
		return
	}

	liked, count, err := a.blog.ToggleLike(c.Request.Context(), post.ID, user.ID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "could not update like")
		return
	}
	if liked {
		go services.NotifyLike(post, user)
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked, "like_count": count})
}

func (a *API) Trending(c *gin.Context) {
	limit := utils.StringToInt(c.Query("limit"))
	if limit < 1 || limit > 50 {
		limit = 10
	}

	posts, err := a.blog.GetTrendingPosts(c.Request.Context(), limit)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "could not load trending posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (a *API) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		apiError(c, http.StatusBadRequest, "q is required")
		return
	}

	page, perPage := a.pagination(c)
	result, err := a.blog.SearchPosts(c.Request.Context(), query, page, perPage)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "search failed")
		return
	}
	c.JSON(http.StatusOK, result)
}
