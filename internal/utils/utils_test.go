package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hash)

	assert.True(t, CheckPasswordHash("correct horse battery", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestRandomToken(t *testing.T) {
	a := RandomToken(16)
	b := RandomToken(16)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	out := string(RenderMarkdown("# Title\n\n<script>alert(1)</script>\n\n**bold**"))

	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.NotContains(t, out, "<script>")
}

func TestRenderMarkdownLinks(t *testing.T) {
	out := string(RenderMarkdown("[site](https://example.com)"))

	assert.Contains(t, out, `href="https://example.com"`)
	assert.True(t, strings.Contains(out, `target="_blank"`))
}

func TestParsePage(t *testing.T) {
	assert.Equal(t, 1, ParsePage(""))
	assert.Equal(t, 1, ParsePage("0"))
	assert.Equal(t, 1, ParsePage("-3"))
	assert.Equal(t, 1, ParsePage("junk"))
	assert.Equal(t, 7, ParsePage("7"))
}
