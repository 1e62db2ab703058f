package services

import (
	"context"
	"errors"

	"inkwell/internal/cache"
	"inkwell/internal/db"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// FollowUser creates a follow edge from follower to followed.
func (s *BlogService) FollowUser(ctx context.Context, followerID, followedID uint) error {
	if followerID == followedID {
		return ErrSelfFollow
	}

	var followed models.User
	if err := db.DB.First(&followed, followedID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	var count int64
	db.DB.Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count)
	if count > 0 {
		return nil
	}

	follow := models.Follow{FollowerID: followerID, FollowedID: followedID}
	if err := db.DB.Create(&follow).Error; err != nil {
		return err
	}

	s.store.Delete(ctx, cache.ProfileKey(followerID))
	s.store.Delete(ctx, cache.ProfileKey(followedID))
	return nil
}

// UnfollowUser removes the follow edge if it exists.
func (s *BlogService) UnfollowUser(ctx context.Context, followerID, followedID uint) error {
	result := db.DB.Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		s.store.Delete(ctx, cache.ProfileKey(followerID))
		s.store.Delete(ctx, cache.ProfileKey(followedID))
	}
	return nil
}

// IsFollowing reports whether follower follows followed.
func (s *BlogService) IsFollowing(followerID, followedID uint) bool {
	if followerID == 0 || followerID == followedID {
		return false
	}
	var count int64
	db.DB.Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count)
	return count > 0
}

// GetFollowers returns one page of a user's followers.
func (s *BlogService) GetFollowers(userID uint, page, perPage int) ([]models.User, int64, error) {
	var total int64
	if err := db.DB.Model(&models.Follow{}).Where("followed_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := db.DB.
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.followed_id = ?", userID).
		Order("follows.created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&users).Error
	return users, total, err
}

// GetFollowing returns one page of the users someone follows.
func (s *BlogService) GetFollowing(userID uint, page, perPage int) ([]models.User, int64, error) {
	var total int64
	if err := db.DB.Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := db.DB.
		Joins("JOIN follows ON follows.followed_id = users.id").
		Where("follows.follower_id = ?", userID).
		Order("follows.created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&users).Error
	return users, total, err
}

// GetFollowedPosts returns one page of posts written by users the viewer
// follows. The feed is personal, so it skips the cache.
func (s *BlogService) GetFollowedPosts(userID uint, page, perPage int) (*PostPage, error) {
	sub := db.DB.Model(&models.Follow{}).Select("followed_id").Where("follower_id = ?", userID)

	var total int64
	if err := db.DB.Model(&models.Post{}).Where("user_id IN (?)", sub).Count(&total).Error; err != nil {
		return nil, err
	}

	var posts []models.Post
	err := db.DB.Preload("User").Preload("Category").
		Where("user_id IN (?)", sub).
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
