package services

import (
	"errors"
	"fmt"
	"time"

	"inkwell/internal/db"
	"inkwell/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// NotifyComment tells a post's author about a new comment. Fire and forget,
// called in a goroutine from the handler. Self-comments stay silent.
func NotifyComment(post *models.Post, comment *models.Comment, commenter *models.User) {
	if post.UserID == commenter.ID {
		return
	}
	n := models.Notification{
		UserID:           post.UserID,
		Title:            "New comment on your post",
		Message:          fmt.Sprintf("%s commented on \"%s\"", commenter.Username, post.Title),
		Type:             models.NotificationTypeComment,
		Priority:         models.PriorityNormal,
		RelatedPostID:    &post.ID,
		RelatedCommentID: &comment.ID,
		RelatedUserID:    &commenter.ID,
	}
	if err := db.DB.Create(&n).Error; err != nil {
		log.Error().Err(err).Uint("user_id", post.UserID).Msg("create comment notification failed")
	}
}

// NotifyLike tells a post's author someone liked their post.
func NotifyLike(post *models.Post, liker *models.User) {
	if post.UserID == liker.ID {
		return
	}
	n := models.Notification{
		UserID:        post.UserID,
		Title:         "Your post was liked",
		Message:       fmt.Sprintf("%s liked \"%s\"", liker.Username, post.Title),
		Type:          models.NotificationTypeLike,
		Priority:      models.PriorityLow,
		RelatedPostID: &post.ID,
		RelatedUserID: &liker.ID,
	}
	if err := db.DB.Create(&n).Error; err != nil {
		log.Error().Err(err).Uint("user_id", post.UserID).Msg("create like notification failed")
	}
}

// NotifyFollow tells a user they gained a follower.
func NotifyFollow(followedID uint, follower *models.User) {
	if followedID == follower.ID {
		return
	}
	n := models.Notification{
		UserID:        followedID,
		Title:         "New follower",
		Message:       fmt.Sprintf("%s started following you", follower.Username),
		Type:          models.NotificationTypeFollow,
		Priority:      models.PriorityNormal,
		RelatedUserID: &follower.ID,
	}
	if err := db.DB.Create(&n).Error; err != nil {
		log.Error().Err(err).Uint("user_id", followedID).Msg("create follow notification failed")
	}
}

// NotifySystem sends an announcement to one user, optionally expiring.
func NotifySystem(userID uint, title, message, priority string, expiresAt *time.Time) error {
	n := models.Notification{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      models.NotificationTypeSystem,
		Priority:  priority,
		ExpiresAt: expiresAt,
	}
	return db.DB.Create(&n).Error
}

// BroadcastSystem sends an announcement to every active user.
func BroadcastSystem(title, message, priority string, expiresAt *time.Time) (int, error) {
	var userIDs []uint
	if err := db.DB.Model(&models.User{}).Where("is_active = ?", true).Pluck("id", &userIDs).Error; err != nil {
		return 0, err
	}

	notifications := make([]models.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		notifications = append(notifications, models.Notification{
			UserID:    id,
			Title:     title,
			Message:   message,
			Type:      models.NotificationTypeSystem,
			Priority:  priority,
			ExpiresAt: expiresAt,
		})
	}
	if len(notifications) == 0 {
		return 0, nil
	}
	if err := db.DB.CreateInBatches(notifications, 100).Error; err != nil {
		return 0, err
	}
	return len(notifications), nil
}

// unexpired filters out notifications past their expiry.
func unexpired(tx *gorm.DB) *gorm.DB {
	return tx.Where("expires_at IS NULL OR expires_at > ?", time.Now())
}

// unreadNotifications is the query both the badge count and the list filter
// share, so the two can never disagree on what counts as unread.
func unreadNotifications(tx *gorm.DB, userID uint) *gorm.DB {
	return tx.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Scopes(unexpired)
}

// GetNotifications returns one page of a user's notifications, newest first.
// Expired ones are filtered out.
func GetNotifications(userID uint, page, perPage int, unreadOnly bool) ([]models.Notification, int64, error) {
	query := db.DB.Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Scopes(unexpired)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	err := query.Preload("RelatedUser").
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&notifications).Error
	return notifications, total, err
}

// UnreadNotificationCount counts a user's unread, unexpired notifications.
func UnreadNotificationCount(userID uint) int64 {
	var count int64
	unreadNotifications(db.DB, userID).Count(&count)
	return count
}

// MarkNotificationRead marks one notification read, owner-checked.
func MarkNotificationRead(userID, notificationID uint) error {
	var n models.Notification
	err := db.DB.Where("id = ? AND user_id = ?", notificationID, userID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if n.IsRead {
		return nil
	}
	now := time.Now()
	return db.DB.Model(&n).Updates(map[string]interface{}{
		"is_read": true,
		"read_at": now,
	}).Error
}

// MarkAllNotificationsRead marks every unread notification read for a user
// and returns how many changed.
func MarkAllNotificationsRead(userID uint) (int64, error) {
	now := time.Now()
	result := db.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
		})
	return result.RowsAffected, result.Error
}

// DeleteNotification removes one notification, owner-checked.
func DeleteNotification(userID, notificationID uint) error {
	result := db.DB.Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CleanupExpiredNotifications deletes notifications past their expiry.
// Called periodically from main.
func CleanupExpiredNotifications() (int64, error) {
	result := db.DB.Where("expires_at IS NOT NULL AND expires_at < ?", time.Now()).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
