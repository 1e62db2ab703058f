package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// recordingStore captures deletes so invalidation fan-out can be asserted.
type recordingStore struct {
	deleted  []string
	patterns []string
}

func (r *recordingStore) Get(context.Context, string) ([]byte, bool)        { return nil, false }
func (r *recordingStore) Set(context.Context, string, []byte, time.Duration) {}
func (r *recordingStore) Delete(_ context.Context, keys ...string) {
	r.deleted = append(r.deleted, keys...)
}
func (r *recordingStore) DeletePattern(_ context.Context, pattern string) {
	r.patterns = append(r.patterns, pattern)
}
func (r *recordingStore) Flush(context.Context)             {}
func (r *recordingStore) Stats(context.Context) Stats       { return Stats{} }
func (r *recordingStore) Backend() string                   { return "recording" }

func TestInvalidatePostFanOut(t *testing.T) {
	store := &recordingStore{}
	inv := NewInvalidator(store)

	inv.Post(context.Background(), 42, 7, 3)

	assert.Equal(t, []string{"post:42"}, store.deleted)
	assert.Equal(t, []string{
		"post:42:*",
		"posts:*",
		"trending:*",
		"user:7:posts:*",
		"category:3:*",
	}, store.patterns)
}

func TestInvalidatePostSkipsUnknownOwnerAndCategory(t *testing.T) {
	store := &recordingStore{}
	inv := NewInvalidator(store)

	inv.Post(context.Background(), 42, 0, 0)

	assert.Equal(t, []string{
		"post:42:*",
		"posts:*",
		"trending:*",
	}, store.patterns)
}

func TestInvalidateUser(t *testing.T) {
	store := &recordingStore{}
	inv := NewInvalidator(store)

	inv.User(context.Background(), 7)

	assert.Equal(t, []string{"user:7", "profile:7"}, store.deleted)
	assert.Equal(t, []string{"user:7:*"}, store.patterns)
}

func TestInvalidatePostsListsAndSearch(t *testing.T) {
	store := &recordingStore{}
	inv := NewInvalidator(store)

	inv.PostsLists(context.Background())
	inv.Search(context.Background())

	assert.Equal(t, []string{"posts:*", "trending:*", "search:*", "search:*"}, store.patterns)
}

func TestInvalidateCategory(t *testing.T) {
	store := &recordingStore{}
	inv := NewInvalidator(store)

	inv.Category(context.Background(), 3)

	assert.Equal(t, []string{"category:3:*", "posts:*"}, store.patterns)
}

func TestParseInfo(t *testing.T) {
	info := "# Stats\r\nkeyspace_hits:120\r\nkeyspace_misses:30\r\n\r\n# Memory\r\nused_memory_human:1.2M\r\n"
	fields := parseInfo(info)

	assert.Equal(t, "120", fields["keyspace_hits"])
	assert.Equal(t, "30", fields["keyspace_misses"])
	assert.Equal(t, "1.2M", fields["used_memory_human"])
	assert.NotContains(t, fields, "# Stats")
}
