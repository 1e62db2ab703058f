package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotificationCategoryDefaultsToType(t *testing.T) {
	n := &Notification{Type: NotificationTypeLike}
	assert.NoError(t, n.BeforeCreate(nil))
	assert.Equal(t, "like", n.Category)
}

func TestNotificationCategoryKeptWhenSet(t *testing.T) {
	n := &Notification{Type: NotificationTypeSystem, Category: "announcement"}
	assert.NoError(t, n.BeforeCreate(nil))
	assert.Equal(t, "announcement", n.Category)
}

func TestNotificationIsExpired(t *testing.T) {
	assert.False(t, (&Notification{}).IsExpired())

	past := time.Now().Add(-time.Hour)
	assert.True(t, (&Notification{ExpiresAt: &past}).IsExpired())

	future := time.Now().Add(time.Hour)
	assert.False(t, (&Notification{ExpiresAt: &future}).IsExpired())
}
