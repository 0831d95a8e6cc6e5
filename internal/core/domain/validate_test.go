package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDirectURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example/a.jpg", NormalizeDirectURL("| https://cdn.example/a.jpg"))
	assert.Equal(t, "https://cdn.example/a.jpg", NormalizeDirectURL("  https://cdn.example/a.jpg  "))
	assert.Equal(t, "", NormalizeDirectURL("|"))
}

func TestExtensionOf(t *testing.T) {
	assert.Equal(t, "jpg", ExtensionOf("https://cdn.example/photo.JPG?sig=abc"))
	assert.Equal(t, "mp4", ExtensionOf("https://cdn.example/v/clip.mp4#t=2"))
	assert.Equal(t, "", ExtensionOf("https://cdn.example/v/clip"))
	assert.Equal(t, "", ExtensionOf("https://cdn.example/v.1/clip"))
}

func TestIsLikelyMediaURL(t *testing.T) {
	// Instagram web-host placeholder pattern is rejected.
	assert.False(t, IsLikelyMediaURL("https://www.instagram.com/reel/ABC123/1.jpg"))
	assert.False(t, IsLikelyMediaURL("https://www.instagram.com/p/XYZ/2.mp4"))
	assert.False(t, IsLikelyMediaURL("https://www.instagram.com/stories/user/3.png"))

	// Real CDN links are accepted, with or without extension.
	assert.True(t, IsLikelyMediaURL("https://scontent.cdninstagram.com/v/xyz.jpg"))
	assert.True(t, IsLikelyMediaURL("https://scontent-gru1-1.fna.fbcdn.net/v/t51/123"))
	assert.True(t, IsLikelyMediaURL("https://v16-webapp.tiktokcdn.com/video/play"))

	// Extensionless links on the platform web host look like HTML.
	assert.False(t, IsLikelyMediaURL("https://www.instagram.com/reel/ABC123/"))

	// Leaked non-media artifacts.
	assert.False(t, IsLikelyMediaURL("https://cdn.example/meta.json"))
	assert.False(t, IsLikelyMediaURL("https://cdn.example/page.html"))
	assert.False(t, IsLikelyMediaURL("https://cdn.example/info.txt"))

	// Allow-list boundaries.
	assert.True(t, IsLikelyMediaURL("https://cdn.example/a.webp"))
	assert.True(t, IsLikelyMediaURL("https://cdn.example/a.m3u8"))
	assert.True(t, IsLikelyMediaURL("https://cdn.example/a.m4a"))
	assert.False(t, IsLikelyMediaURL("https://cdn.example/a.exe"))
}

func TestFilterMediaURLsKeepsOriginalIndices(t *testing.T) {
	urls := []string{
		"https://scontent.cdninstagram.com/v/one.jpg",
		"https://www.instagram.com/p/ABC/2.jpg", // placeholder, dropped
		"| https://scontent.cdninstagram.com/v/three.mp4",
	}

	items := FilterMediaURLs(urls, "https://www.instagram.com/p/ABC/")

	assert.Len(t, items, 2)
	assert.Equal(t, 1, items[0].OriginalIndex)
	assert.Equal(t, 3, items[1].OriginalIndex)
	assert.Equal(t, KindImage, items[0].Kind)
	assert.Equal(t, KindVideo, items[1].Kind)
	assert.Equal(t, "one.jpg", items[0].Filename)
	assert.Equal(t, "https://scontent.cdninstagram.com/v/three.mp4", items[1].DirectURL)
}

func TestFilterMediaURLsAllDropped(t *testing.T) {
	items := FilterMediaURLs([]string{"https://cdn.example/err.json", ""}, "src")
	assert.Empty(t, items)
}
