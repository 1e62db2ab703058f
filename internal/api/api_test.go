package api

import (
	"context"
	"testing"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
)

func roleWith(perms ...string) *models.Role {
	role := &models.Role{Name: "test"}
	for _, p := range perms {
		role.Permissions = append(role.Permissions, models.Permission{Name: p})
	}
	return role
}

func TestCachePingRoundTrips(t *testing.T) {
	store := cache.NewMemoryStore(8)

	assert.Equal(t, "ok", cachePing(context.Background(), store))

	// The sentinel must not linger after the check.
	_, ok := store.Get(context.Background(), "health:check")
	assert.False(t, ok)
}

func TestCanModifyOwnContent(t *testing.T) {
	user := &models.User{ID: 1, Role: roleWith(models.PermEditOwnPosts)}

	assert.True(t, canModify(user, 1, models.PermEditOwnPosts, models.PermEditAllPosts))
	assert.False(t, canModify(user, 2, models.PermEditOwnPosts, models.PermEditAllPosts))
}

func TestCanModifyWithAllPermission(t *testing.T) {
	editor := &models.User{ID: 5, Role: roleWith(models.PermEditAllPosts)}

	assert.True(t, canModify(editor, 2, models.PermEditOwnPosts, models.PermEditAllPosts))
}

func TestCanModifyWithoutPermissions(t *testing.T) {
	user := &models.User{ID: 1, Role: roleWith()}

	assert.False(t, canModify(user, 1, models.PermEditOwnPosts, models.PermEditAllPosts))
}
