package handlers

import (
	"errors"
	"net/http"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/db"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/services"
	"inkwell/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type BlogHandler struct {
	blog      *services.BlogService
	analytics *services.AnalyticsService
	uploader  *services.ImageUploader
	mail      *services.MailService
	cfg       *config.Config
}

func NewBlogHandler(blog *services.BlogService, uploader *services.ImageUploader, mail *services.MailService, cfg *config.Config) *BlogHandler {
	return &BlogHandler{
		blog:      blog,
		analytics: services.GetAnalyticsService(),
		uploader:  uploader,
		mail:      mail,
		cfg:       cfg,
	}
}

func loadCategories() []models.Category {
	var categories []models.Category
	db.DB.Order("name ASC").Find(&categories)
	return categories
}

// Index is the home page, a paginated posts listing with an optional
// category filter.
func (h *BlogHandler) Index(c *gin.Context) {
	page := utils.ParsePage(c.Query("page"))
	categoryID := uint(utils.StringToInt(c.Query("category")))

	result, err := h.blog.GetPosts(c.Request.Context(), page, h.cfg.PostsPerPage, categoryID, 0)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load posts.")
		return
	}

	trending, _ := h.blog.GetTrendingPosts(c.Request.Context(), 5)

	Render(c, http.StatusOK, "blog/index.html", gin.H{
		"Page":       result,
		"Categories": loadCategories(),
		"CategoryID": categoryID,
		"Trending":   trending,
	})
}

// Categories lists every category with its post count.
func (h *BlogHandler) Categories(c *gin.Context) {
	categories := loadCategories()
	for i := range categories {
		var count int64
		db.DB.Model(&models.Post{}).Where("category_id = ?", categories[i].ID).Count(&count)
		categories[i].PostCount = int(count)
	}
	Render(c, http.StatusOK, "blog/categories.html", gin.H{"Categories": categories})
}

// CategoryPosts lists one category's posts.
func (h *BlogHandler) CategoryPosts(c *gin.Context) {
	categoryID := parseID(c, "id")

	var category models.Category
	if err := db.DB.First(&category, categoryID).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Category not found.")
		return
	}

	page := utils.ParsePage(c.Query("page"))
	result, err := h.blog.GetCategoryPosts(c.Request.Context(), categoryID, page, h.cfg.PostsPerPage)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load posts.")
		return
	}

	Render(c, http.StatusOK, "blog/category.html", gin.H{
		"Category": category,
		"Page":     result,
	})
}

// ShowPost renders a single post with its comments and records the view.
func (h *BlogHandler) ShowPost(c *gin.Context) {
	postID := parseID(c, "id")
	if postID == 0 {
		RenderError(c, http.StatusNotFound, "Post not found.")
		return
	}

	post, err := h.blog.GetPost(c.Request.Context(), postID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			RenderError(c, http.StatusNotFound, "Post not found.")
			return
		}
		RenderError(c, http.StatusInternalServerError, "Could not load the post.")
		return
	}

	commentsPage := utils.ParsePage(c.Query("page"))
	comments, err := h.blog.GetPostComments(c.Request.Context(), postID, commentsPage, h.cfg.CommentsPerPage)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load comments.")
		return
	}

	user := middleware.CurrentUser(c)
	var userID *uint
	var viewerID uint
	if user != nil {
		userID = &user.ID
		viewerID = user.ID
	}
	h.analytics.RecordPostView(postID, userID,
		c.ClientIP(), c.Request.UserAgent(), c.Request.Referer(), viewSessionID(c))

	Render(c, http.StatusOK, "blog/post.html", gin.H{
		"Post":     post,
		"Content":  utils.RenderMarkdown(post.Content),
		"Comments": comments,
		"Liked":    h.blog.IsLikedBy(postID, viewerID),
	})
}

// viewSessionID returns a stable per-browser ID for view dedup, creating
// one on first use.
func viewSessionID(c *gin.Context) string {
	session := sessions.Default(c)
	if id, ok := session.Get("view_session").(string); ok && id != "" {
		return id
	}
	id := utils.RandomToken(16)
	session.Set("view_session", id)
	session.Save()
	return id
}

func (h *BlogHandler) ShowCreatePost(c *gin.Context) {
	Render(c, http.StatusOK, "blog/create.html", gin.H{"Categories": loadCategories()})
}

func (h *BlogHandler) CreatePost(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var categoryID *uint
	if id := uint(utils.StringToInt(c.PostForm("category_id"))); id != 0 {
		categoryID = &id
	}

	imageFilename, err := h.savePostImage(c)
	if err != nil {
		Render(c, http.StatusBadRequest, "blog/create.html", gin.H{
			"Error":      err.Error(),
			"Categories": loadCategories(),
			"Title":      c.PostForm("title"),
			"Content":    c.PostForm("content"),
		})
		return
	}

	post, err := h.blog.CreatePost(c.Request.Context(), user.ID,
		strings.TrimSpace(c.PostForm("title")), c.PostForm("content"), categoryID, imageFilename)
	if err != nil {
		Render(c, http.StatusBadRequest, "blog/create.html", gin.H{
			"Error":      err.Error(),
			"Categories": loadCategories(),
			"Title":      c.PostForm("title"),
			"Content":    c.PostForm("content"),
		})
		return
	}

	flash(c, "success", "Post published.")
	c.Redirect(http.StatusFound, "/blog/post/"+uintToString(post.ID))
}

func (h *BlogHandler) savePostImage(c *gin.Context) (string, error) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		return "", nil // no file attached
	}
	defer file.Close()
	return h.uploader.Save(file, header, "posts")
}

// loadEditablePost fetches the post and checks the viewer may modify it.
func (h *BlogHandler) loadEditablePost(c *gin.Context, editPerm, allPerm string) (*models.Post, bool) {
	post, err := h.blog.GetPost(c.Request.Context(), parseID(c, "id"))
	if err != nil {
		RenderError(c, http.StatusNotFound, "Post not found.")
		return nil, false
	}

	user := middleware.CurrentUser(c)
	own := post.UserID == user.ID && user.Can(editPerm)
	if !own && !user.Can(allPerm) {
		RenderError(c, http.StatusForbidden, "You cannot modify this post.")
		return nil, false
	}
	return post, true
}

func (h *BlogHandler) ShowEditPost(c *gin.Context) {
	post, ok := h.loadEditablePost(c, models.PermEditOwnPosts, models.PermEditAllPosts)
	if !ok {
		return
	}
	Render(c, http.StatusOK, "blog/edit.html", gin.H{
		"Post":       post,
		"Categories": loadCategories(),
	})
}

func (h *BlogHandler) UpdatePost(c *gin.Context) {
	post, ok := h.loadEditablePost(c, models.PermEditOwnPosts, models.PermEditAllPosts)
	if !ok {
		return
	}

	var categoryID *uint
	if id := uint(utils.StringToInt(c.PostForm("category_id"))); id != 0 {
		categoryID = &id
	}

	imageFilename, err := h.savePostImage(c)
	if err == nil {
		err = h.blog.UpdatePost(c.Request.Context(), post,
			strings.TrimSpace(c.PostForm("title")), c.PostForm("content"), categoryID, imageFilename)
	}
	if err != nil {
		Render(c, http.StatusBadRequest, "blog/edit.html", gin.H{
			"Error":      err.Error(),
			"Post":       post,
			"Categories": loadCategories(),
		})
		return
	}

	flash(c, "success", "Post updated.")
	c.Redirect(http.StatusFound, "/blog/post/"+uintToString(post.ID))
}

func (h *BlogHandler) DeletePost(c *gin.Context) {
	post, ok := h.loadEditablePost(c, models.PermDeleteOwnPosts, models.PermDeleteAllPosts)
	if !ok {
		return
	}

	if err := h.blog.DeletePost(c.Request.Context(), post); err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not delete the post.")
		return
	}
	if post.ImageFilename != "" {
		h.uploader.Remove("posts", post.ImageFilename)
	}

	flash(c, "success", "Post deleted.")
	c.Redirect(http.StatusFound, "/")
}

func (h *BlogHandler) CreateComment(c *gin.Context) {
	user := middleware.CurrentUser(c)
	postID := parseID(c, "id")

	post, err := h.blog.GetPost(c.Request.Context(), postID)
	if err != nil {
		RenderError(c, http.StatusNotFound, "Post not found.")
		return
	}

	comment, err := h.blog.CreateComment(c.Request.Context(), postID, user.ID,
		strings.TrimSpace(c.PostForm("content")))
	if err != nil {
		flash(c, "danger", err.Error())
		c.Redirect(http.StatusFound, "/blog/post/"+uintToString(postID))
		return
	}

	go func() {
		services.NotifyComment(post, comment, user)
		var author models.User
		if db.DB.First(&author, post.UserID).Error == nil && author.ID != user.ID {
			h.mail.SendCommentEmail(author.Email, user.Username, post.Title, comment.Content, post.ID)
		}
	}()

	flash(c, "success", "Comment added.")
	c.Redirect(http.StatusFound, "/blog/post/"+uintToString(postID))
}

func (h *BlogHandler) DeleteComment(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var comment models.Comment
	if err := db.DB.First(&comment, parseID(c, "id")).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Comment not found.")
		return
	}

	own := comment.UserID == user.ID && user.Can(models.PermDeleteOwnComments)
	if !own && !user.Can(models.PermDeleteAllComments) {
		RenderError(c, http.StatusForbidden, "You cannot delete this comment.")
		return
	}

	if err := h.blog.DeleteComment(c.Request.Context(), &comment); err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not delete the comment.")
		return
	}

	flash(c, "success", "Comment deleted.")
	c.Redirect(http.StatusFound, "/blog/post/"+uintToString(comment.PostID))
}

// ToggleLike flips the viewer's like on a post. JSON response for the
// inline like button.
func (h *BlogHandler) ToggleLike(c *gin.Context) {
	user := middleware.CurrentUser(c)
	postID := parseID(c, "id")

	post, err := h.blog.GetPost(c.Request.Context(), postID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}

	liked, count, err := h.blog.ToggleLike(c.Request.Context(), postID, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update like"})
		return
	}

	if liked {
		go services.NotifyLike(post, user)
	}

	c.JSON(http.StatusOK, gin.H{"liked": liked, "like_count": count})
}

func (h *BlogHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		Render(c, http.StatusOK, "blog/search.html", gin.H{"Query": ""})
		return
	}

	page := utils.ParsePage(c.Query("page"))
	result, err := h.blog.SearchPosts(c.Request.Context(), query, page, h.cfg.PostsPerPage)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Search failed.")
		return
	}

	Render(c, http.StatusOK, "blog/search.html", gin.H{
		"Query": query,
		"Page":  result,
	})
}

func (h *BlogHandler) Trending(c *gin.Context) {
	posts, err := h.blog.GetTrendingPosts(c.Request.Context(), 10)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load trending posts.")
		return
	}
	Render(c, http.StatusOK, "blog/trending.html", gin.H{"Posts": posts})
}

// Feed shows posts by users the viewer follows.
func (h *BlogHandler) Feed(c *gin.Context) {
	user := middleware.CurrentUser(c)
	page := utils.ParsePage(c.Query("page"))

	result, err := h.blog.GetFollowedPosts(user.ID, page, h.cfg.PostsPerPage)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Could not load your feed.")
		return
	}
	Render(c, http.StatusOK, "blog/feed.html", gin.H{"Page": result})
}

func (h *BlogHandler) About(c *gin.Context) {
	Render(c, http.StatusOK, "pages/about.html", nil)
}

func (h *BlogHandler) Contact(c *gin.Context) {
	Render(c, http.StatusOK, "pages/contact.html", nil)
}

// SendContact forwards a contact-form message to the admin address.
func (h *BlogHandler) SendContact(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	email := strings.TrimSpace(c.PostForm("email"))
	message := strings.TrimSpace(c.PostForm("message"))
	if name == "" || email == "" || message == "" {
		Render(c, http.StatusBadRequest, "pages/contact.html", gin.H{
			"Error": "All fields are required.",
			"Name":  name, "Email": email, "Message": message,
		})
		return
	}

	h.mail.SendContactEmail(h.cfg.AdminEmail, name, email, message)
	flash(c, "success", "Thanks, your message is on its way.")
	c.Redirect(http.StatusFound, "/contact")
}
