package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

func TestUnreadNotificationsFilterExpired(t *testing.T) {
	tx, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	require.NoError(t, err)

	var count int64
	stmt := unreadNotifications(tx, 7).Count(&count).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, "is_read")
	assert.Contains(t, sql, "expires_at IS NULL OR expires_at >")
}
