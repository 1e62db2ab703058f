package services

import (
	"context"
	"errors"
	"math"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/db"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// Cache lifetimes per data shape.
const (
	postListTTL = 5 * time.Minute
	postTTL     = 10 * time.Minute
	profileTTL  = 10 * time.Minute
	commentsTTL = 3 * time.Minute
	trendingTTL = 15 * time.Minute
	searchTTL   = 5 * time.Minute
)

// BlogService wraps post, comment and like operations with read-through
// caching. Every mutation fans out to the Invalidator.
type BlogService struct {
	store cache.Store
	inv   *cache.Invalidator
}

func NewBlogService(store cache.Store) *BlogService {
	return &BlogService{store: store, inv: cache.NewInvalidator(store)}
}

// PostPage is one page of a posts listing, the unit that gets cached.
type PostPage struct {
	Posts      []models.Post `json:"posts"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
}

// CommentPage is one page of a post's comments.
type CommentPage struct {
	Comments   []models.Comment `json:"comments"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	TotalPages int              `json:"total_pages"`
}

// Profile is the cached public view of a user.
type Profile struct {
	User          models.User   `json:"user"`
	PostCount     int64         `json:"post_count"`
	FollowerCount int64         `json:"follower_count"`
	FollowedCount int64         `json:"followed_count"`
	RecentPosts   []models.Post `json:"recent_posts"`
}

func totalPages(total int64, perPage int) int {
	pages := int(math.Ceil(float64(total) / float64(perPage)))
	if pages == 0 {
		return 1
	}
	return pages
}

// fillCommentCounts batch-loads comment counts for a slice of posts.
func fillCommentCounts(posts []models.Post) {
	if len(posts) == 0 {
		return
	}
	postIDs := make([]uint, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	type countRow struct {
		PostID uint
		Count  int
	}
	var rows []countRow
	db.DB.Model(&models.Comment{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows)

	counts := make(map[uint]int, len(rows))
	for _, r := range rows {
		counts[r.PostID] = r.Count
	}
	for i := range posts {
		posts[i].CommentCount = counts[posts[i].ID]
	}
}

// GetPosts returns one page of posts, optionally filtered by category and/or
// author, served from cache when possible.
func (s *BlogService) GetPosts(ctx context.Context, page, perPage int, categoryID, userID uint) (*PostPage, error) {
	key := cache.PostsListKey(page, perPage, categoryID, userID)
	var cached PostPage
	if cache.GetJSON(ctx, s.store, key, &cached) {
		return &cached, nil
	}

	result, err := s.queryPosts(ctx, page, perPage, categoryID, userID)
	if err != nil {
		return nil, err
	}
	cache.SetJSON(ctx, s.store, key, result, postListTTL)
	return result, nil
}

func (s *BlogService) queryPosts(ctx context.Context, page, perPage int, categoryID, userID uint) (*PostPage, error) {
	query := db.DB.WithContext(ctx).Model(&models.Post{})
	if categoryID != 0 {
		query = query.Where("category_id = ?", categoryID)
	}
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var posts []models.Post
	err := query.Preload("User").Preload("Category").
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	fillCommentCounts(posts)

	return &PostPage{
		Posts:      posts,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages(total, perPage),
	}, nil
}

// GetUserPosts returns one page of a single author's posts, cached under
// the author's key space so profile edits can invalidate it.
func (s *BlogService) GetUserPosts(ctx context.Context, userID uint, page, perPage int) (*PostPage, error) {
	key := cache.UserPostsKey(userID, page, perPage)
	var cached PostPage
	if cache.GetJSON(ctx, s.store, key, &cached) {
		return &cached, nil
	}

	result, err := s.queryPosts(ctx, page, perPage, 0, userID)
	if err != nil {
		return nil, err
	}
	cache.SetJSON(ctx, s.store, key, result, postListTTL)
	return result, nil
}

// GetCategoryPosts returns one page of a category's posts, cached under the
// category's key space.
func (s *BlogService) GetCategoryPosts(ctx context.Context, categoryID uint, page, perPage int) (*PostPage, error) {
	key := cache.CategoryPostsKey(categoryID, page, perPage)
	var cached PostPage
	if cache.GetJSON(ctx, s.store, key, &cached) {
		return &cached, nil
	}

	result, err := s.queryPosts(ctx, page, perPage, categoryID, 0)
	if err != nil {
		return nil, err
	}
	cache.SetJSON(ctx, s.store, key, result, postListTTL)
	return result, nil
}

// GetPost returns a single post by ID, cached.
func (s *BlogService) GetPost(ctx context.Context, postID uint) (*models.Post, error) {
	key := cache.PostKey(postID)
	var cached models.Post
	if cache.GetJSON(ctx, s.store, key, &cached) {
		return &cached, nil
	}

	var post models.Post
	err := db.DB.Preload("User").Preload("Category").First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	cache.SetJSON(ctx, s.store, key, &post, postTTL)
	return &post, nil
}

// GetPostComments returns one page of a post's comments, cached.
func (s *BlogService) GetPostComments(ctx context.Context, postID uint, page, perPage int) (*CommentPage, error) {
	key := cache.PostCommentsKey(postID, page, perPage)
	var cached CommentPage
	if cache.GetJSON(ctx, s.store, key, &cached) {
		return &cached, nil
	}

	var total int64
	if err := db.DB.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&total).Error; err != nil {
		return nil, err
	}

	var comments []models.Comment
	err := db.DB.Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}

	result := &CommentPage{
		Comments:   comments,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages(total, perPage),
	}
	cache.SetJSON(ctx, s.store, key, result, commentsTTL)
	return result, nil
}

// GetUserProfile returns the cached public profile for a user.
func (s *BlogService) GetUserProfile(ctx context.Context, userID uint) (*Profile, error) {
	key := cache.ProfileKey(userID)
	var cached Profile
	if cache.GetJSON(ctx, s.store, key, &cached) {
		return &cached, nil
	}

	var user models.User
	err := db.DB.First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	profile := &Profile{User: user}
	db.DB.Model(&models.Post{}).Where("user_id = ?", userID).Count(&profile.PostCount)
	db.DB.Model(&models.Follow{}).Where("followed_id = ?", userID).Count(&profile.FollowerCount)
	db.DB.Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&profile.FollowedCount)

	err = db.DB.Preload("Category").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(5).
		Find(&profile.RecentPosts).Error
	if err != nil {
		return nil, err
	}

	cache.SetJSON(ctx, s.store, key, profile, profileTTL)
	return profile, nil
}

// SearchPosts runs a title/content ILIKE search, cached per hashed query.
func (s *BlogService) SearchPosts(ctx context.Context, query string, page, perPage int) (*PostPage, error) {
	key := cache.SearchKey(query, page, perPage)
	var cached PostPage
	if cache.GetJSON(ctx, s.store, key, &cached) {
		return &cached, nil
	}

	pattern := "%" + query + "%"
	base := db.DB.Model(&models.Post{}).Where("title ILIKE ? OR content ILIKE ?", pattern, pattern)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, err
	}

	var posts []models.Post
	err := base.Preload("User").Preload("Category").
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	fillCommentCounts(posts)

	result := &PostPage{
		Posts:      posts,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages(total, perPage),
	}
	cache.SetJSON(ctx, s.store, key, result, searchTTL)
	return result, nil
}

// CreatePost stores a new post and invalidates every affected listing.
func (s *BlogService) CreatePost(ctx context.Context, userID uint, title, content string, categoryID *uint, imageFilename string) (*models.Post, error) {
	if title == "" {
		return nil, validationErr("title", "Title is required.")
	}
	if content == "" {
		return nil, validationErr("content", "Content is required.")
	}

	post := &models.Post{
		Title:         title,
		Content:       content,
		ImageFilename: imageFilename,
		UserID:        userID,
		CategoryID:    categoryID,
	}
	if err := db.DB.Create(post).Error; err != nil {
		return nil, err
	}

	var catID uint
	if categoryID != nil {
		catID = *categoryID
	}
	s.inv.Post(ctx, post.ID, userID, catID)
	s.inv.Search(ctx)

	return post, db.DB.Preload("User").Preload("Category").First(post, post.ID).Error
}

// UpdatePost applies edits and invalidates the old and new categories.
func (s *BlogService) UpdatePost(ctx context.Context, post *models.Post, title, content string, categoryID *uint, imageFilename string) error {
	if title == "" {
		return validationErr("title", "Title is required.")
	}
	if content == "" {
		return validationErr("content", "Content is required.")
	}

	var oldCatID uint
	if post.CategoryID != nil {
		oldCatID = *post.CategoryID
	}

	updates := map[string]interface{}{
		"title":       title,
		"content":     content,
		"category_id": categoryID,
	}
	if imageFilename != "" {
		updates["image_filename"] = imageFilename
	}
	if err := db.DB.Model(&models.Post{}).Where("id = ?", post.ID).Updates(updates).Error; err != nil {
		return err
	}
	post.Title = title
	post.Content = content
	post.CategoryID = categoryID
	if imageFilename != "" {
		post.ImageFilename = imageFilename
	}

	var newCatID uint
	if categoryID != nil {
		newCatID = *categoryID
	}
	s.inv.Post(ctx, post.ID, post.UserID, oldCatID)
	if newCatID != oldCatID {
		s.inv.Category(ctx, newCatID)
	}
	s.inv.Search(ctx)
	return nil
}

// DeletePost removes a post; comments, likes and views cascade.
func (s *BlogService) DeletePost(ctx context.Context, post *models.Post) error {
	if err := db.DB.Delete(post).Error; err != nil {
		return err
	}
	var catID uint
	if post.CategoryID != nil {
		catID = *post.CategoryID
	}
	s.inv.Post(ctx, post.ID, post.UserID, catID)
	s.inv.Search(ctx)
	return nil
}

// CreateComment stores a comment and invalidates the post's comment pages.
func (s *BlogService) CreateComment(ctx context.Context, postID, userID uint, content string) (*models.Comment, error) {
	if content == "" {
		return nil, validationErr("content", "Comment cannot be empty.")
	}

	comment := &models.Comment{PostID: postID, UserID: userID, Content: content}
	if err := db.DB.Create(comment).Error; err != nil {
		return nil, err
	}

	s.store.Delete(ctx, cache.PostKey(postID))
	s.store.DeletePattern(ctx, cache.PostKey(postID)+":*")

	return comment, db.DB.Preload("User").First(comment, comment.ID).Error
}

// DeleteComment removes a comment and invalidates its post's comment pages.
func (s *BlogService) DeleteComment(ctx context.Context, comment *models.Comment) error {
	if err := db.DB.Delete(comment).Error; err != nil {
		return err
	}
	s.store.Delete(ctx, cache.PostKey(comment.PostID))
	s.store.DeletePattern(ctx, cache.PostKey(comment.PostID)+":*")
	return nil
}

// ToggleLike likes the post for the user, or removes the like when it
// already exists. The denormalized counter stays consistent inside the
// transaction. Returns whether the post is now liked and the fresh count.
func (s *BlogService) ToggleLike(ctx context.Context, postID, userID uint) (liked bool, count int, err error) {
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.PostLike
		findErr := tx.Where("user_id = ? AND post_id = ?", userID, postID).First(&existing).Error

		switch {
		case findErr == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			liked = false
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			like := models.PostLike{UserID: userID, PostID: postID}
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
			liked = true
		default:
			return findErr
		}

		var likes int64
		if err := tx.Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&likes).Error; err != nil {
			return err
		}
		count = int(likes)
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("like_count", likes).Error
	})
	if err != nil {
		return false, 0, err
	}

	s.store.Delete(ctx, cache.PostKey(postID))
	s.inv.PostsLists(ctx)
	return liked, count, nil
}

// IsLikedBy reports whether the user already liked the post.
func (s *BlogService) IsLikedBy(postID, userID uint) bool {
	if userID == 0 {
		return false
	}
	var count int64
	db.DB.Model(&models.PostLike{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count)
	return count > 0
}

// InvalidateUser exposes user invalidation to handlers that edit profiles.
func (s *BlogService) InvalidateUser(ctx context.Context, userID uint) {
	s.inv.User(ctx, userID)
}

// Store exposes the backing cache for the admin panel.
func (s *BlogService) Store() cache.Store {
	return s.store
}

// WarmPopularContent pre-populates the hot paths: the first listing pages
// and the trending list. Called at startup and from the admin cache panel.
func (s *BlogService) WarmPopularContent(ctx context.Context, perPage, trendingLimit int) error {
	for page := 1; page <= 3; page++ {
		if _, err := s.GetPosts(ctx, page, perPage, 0, 0); err != nil {
			return err
		}
	}
	_, err := s.GetTrendingPosts(ctx, trendingLimit)
	return err
}
