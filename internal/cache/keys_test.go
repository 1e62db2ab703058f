package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostsListKey(t *testing.T) {
	assert.Equal(t, "posts:page:1:per_page:5", PostsListKey(1, 5, 0, 0))
	assert.Equal(t, "posts:page:2:per_page:5:category:3", PostsListKey(2, 5, 3, 0))
	assert.Equal(t, "posts:page:1:per_page:5:user:7", PostsListKey(1, 5, 0, 7))
	assert.Equal(t, "posts:page:1:per_page:5:category:3:user:7", PostsListKey(1, 5, 3, 7))
}

func TestEntityKeys(t *testing.T) {
	assert.Equal(t, "user:42", UserKey(42))
	assert.Equal(t, "post:42", PostKey(42))
	assert.Equal(t, "profile:7", ProfileKey(7))
	assert.Equal(t, "trending:posts:limit:10", TrendingPostsKey(10))
	assert.Equal(t, "user:7:posts:page:1:per_page:5", UserPostsKey(7, 1, 5))
	assert.Equal(t, "category:3:posts:page:2:per_page:5", CategoryPostsKey(3, 2, 5))
	assert.Equal(t, "post:42:comments:page:1:per_page:10", PostCommentsKey(42, 1, 10))
}

func TestSearchKeyHashesQuery(t *testing.T) {
	a := SearchKey("golang caching", 1, 5)
	b := SearchKey("golang caching", 1, 5)
	c := SearchKey("something else", 1, 5)

	assert.Equal(t, a, b, "same query must produce the same key")
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^search:[0-9a-f]{32}:page:1:per_page:5$`, a)

	// Special characters must never leak into the key.
	assert.Regexp(t, `^search:[0-9a-f]{32}:page:1:per_page:5$`, SearchKey("a:b*c ?", 1, 5))
}
