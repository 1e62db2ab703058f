package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// Key builders. Every cached read and every invalidation pattern goes through
// these so that key shapes stay consistent across the app.

func UserKey(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf("post:%d", postID)
}

// PostsListKey builds the key for a paginated posts list. categoryID and
// userID are optional filters; zero means unset.
func PostsListKey(page, perPage int, categoryID, userID uint) string {
	key := fmt.Sprintf("posts:page:%d:per_page:%d", page, perPage)
	if categoryID != 0 {
		key += fmt.Sprintf(":category:%d", categoryID)
	}
	if userID != 0 {
		key += fmt.Sprintf(":user:%d", userID)
	}
	return key
}

func UserPostsKey(userID uint, page, perPage int) string {
	return fmt.Sprintf("user:%d:posts:page:%d:per_page:%d", userID, page, perPage)
}

func CategoryPostsKey(categoryID uint, page, perPage int) string {
	return fmt.Sprintf("category:%d:posts:page:%d:per_page:%d", categoryID, page, perPage)
}

func TrendingPostsKey(limit int) string {
	return fmt.Sprintf("trending:posts:limit:%d", limit)
}

func ProfileKey(userID uint) string {
	return fmt.Sprintf("profile:%d", userID)
}

func PostCommentsKey(postID uint, page, perPage int) string {
	return fmt.Sprintf("post:%d:comments:page:%d:per_page:%d", postID, page, perPage)
}

// SearchKey hashes the query so arbitrary input cannot produce unbounded or
// malformed keys.
func SearchKey(query string, page, perPage int) string {
	sum := md5.Sum([]byte(query))
	return fmt.Sprintf("search:%s:page:%d:per_page:%d", hex.EncodeToString(sum[:]), page, perPage)
}
