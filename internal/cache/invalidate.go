package cache

import (
	"context"
	"fmt"
)

// Invalidator fans a single mutation out to every key or pattern it can have
// made stale. There is no coherence protocol here: concurrent writers may
// race and a failed scan leaves stale entries until their TTL expires.
type Invalidator struct {
	store Store
}

func NewInvalidator(store Store) *Invalidator {
	return &Invalidator{store: store}
}

// User invalidates everything keyed by a user: the entity, the profile page
// and any derived per-user listings.
func (inv *Invalidator) User(ctx context.Context, userID uint) {
	inv.store.Delete(ctx, UserKey(userID), ProfileKey(userID))
	inv.store.DeletePattern(ctx, fmt.Sprintf("user:%d:*", userID))
}

// Post invalidates a post and every listing that may contain it. userID and
// categoryID narrow the fan-out when known; zero skips them.
func (inv *Invalidator) Post(ctx context.Context, postID, userID, categoryID uint) {
	inv.store.Delete(ctx, PostKey(postID))
	inv.store.DeletePattern(ctx, fmt.Sprintf("post:%d:*", postID))
	inv.store.DeletePattern(ctx, "posts:*")
	inv.store.DeletePattern(ctx, "trending:*")

	if userID != 0 {
		inv.store.DeletePattern(ctx, fmt.Sprintf("user:%d:posts:*", userID))
	}
	if categoryID != 0 {
		inv.store.DeletePattern(ctx, fmt.Sprintf("category:%d:*", categoryID))
	}
}

// PostsLists invalidates every list-shaped cache: pagination, trending and
// search results.
func (inv *Invalidator) PostsLists(ctx context.Context) {
	inv.store.DeletePattern(ctx, "posts:*")
	inv.store.DeletePattern(ctx, "trending:*")
	inv.store.DeletePattern(ctx, "search:*")
}

// Category invalidates a category's listings; category changes also affect
// the global posts lists.
func (inv *Invalidator) Category(ctx context.Context, categoryID uint) {
	inv.store.DeletePattern(ctx, fmt.Sprintf("category:%d:*", categoryID))
	inv.store.DeletePattern(ctx, "posts:*")
}

// Search invalidates all cached search results.
func (inv *Invalidator) Search(ctx context.Context) {
	inv.store.DeletePattern(ctx, "search:*")
}
