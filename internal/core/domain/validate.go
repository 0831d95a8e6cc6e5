package domain

import (
	"net/url"
	"regexp"
	"strings"
)

var allowedExtensions = map[string]MediaKind{
	"mp4":  KindVideo,
	"webm": KindVideo,
	"mov":  KindVideo,
	"m4v":  KindVideo,
	"m3u8": KindVideo,
	"mpd":  KindVideo,
	"jpg":  KindImage,
	"jpeg": KindImage,
	"png":  KindImage,
	"gif":  KindImage,
	"webp": KindImage,
	"mp3":  KindAudio,
	"m4a":  KindAudio,
	"aac":  KindAudio,
}

// Extensions that mean the extraction tool leaked an error page or raw
// metadata instead of media.
var blockedExtensions = map[string]struct{}{
	"json": {},
	"txt":  {},
	"html": {},
	"xml":  {},
}

// gallery-dl sometimes emits placeholder entries shaped like page URLs with
// a numeric filename bolted on, e.g. instagram.com/reel/<id>/1.mp4. Those
// never resolve to media.
var instagramPlaceholderPath = regexp.MustCompile(`/(reel|p|stories)/[^/]+/\d+\.(mp4|jpg|jpeg|png)`)

// NormalizeDirectURL strips the leading "|" artifact the extraction tool
// occasionally prefixes to direct URLs, plus surrounding whitespace.
func NormalizeDirectURL(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "|") {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "|"))
	}
	return cleaned
}

// ExtensionOf returns the lowercase file extension of a URL or filename,
// ignoring query and fragment. Empty string when there is none.
func ExtensionOf(raw string) string {
	clean := raw
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	dot := strings.LastIndex(clean, ".")
	slash := strings.LastIndex(clean, "/")
	if dot < 0 || dot < slash {
		return ""
	}
	return strings.ToLower(clean[dot+1:])
}

// KindForExtension maps an extension to a media kind, defaulting to image
// for anything unrecognized (extensionless CDN links are mostly photos).
func KindForExtension(ext string) MediaKind {
	if kind, ok := allowedExtensions[ext]; ok {
		return kind
	}
	return KindImage
}

// IsLikelyMediaURL decides whether a candidate direct URL returned by the
// extraction backend is real media rather than a placeholder or leaked
// non-media artifact. The rule set is a heuristic: it is kept in this one
// function so it can be tightened without touching dispatch logic.
func IsLikelyMediaURL(raw string) bool {
	ext := ExtensionOf(raw)

	var host, path string
	if u, err := url.Parse(raw); err == nil {
		host = strings.ToLower(u.Hostname())
		path = strings.ToLower(u.Path)
	}

	onInstagramWebHost := strings.Contains(host, "instagram.com") &&
		!strings.Contains(host, "cdninstagram") &&
		!strings.Contains(host, "fbcdn")

	if onInstagramWebHost && instagramPlaceholderPath.MatchString(path) {
		return false
	}

	if _, blocked := blockedExtensions[ext]; blocked {
		return false
	}

	if ext == "" {
		// Extensionless links on the platform web host are HTML or JSON;
		// extensionless CDN links are common and valid.
		return !onInstagramWebHost
	}

	_, allowed := allowedExtensions[ext]
	return allowed
}

// FilterMediaURLs normalizes and validates a backend-provided direct URL
// list, producing MediaItems that keep their 1-based position in the
// original ordering. Dropped entries leave index gaps: the transcription
// correlator depends on the original indices.
func FilterMediaURLs(directURLs []string, sourceURL string) []MediaItem {
	items := make([]MediaItem, 0, len(directURLs))
	for i, raw := range directURLs {
		cleaned := NormalizeDirectURL(raw)
		if cleaned == "" || !IsLikelyMediaURL(cleaned) {
			continue
		}
		ext := ExtensionOf(cleaned)
		filename := cleaned
		if j := strings.LastIndex(filename, "/"); j >= 0 {
			filename = filename[j+1:]
		}
		if k := strings.IndexAny(filename, "?#"); k >= 0 {
			filename = filename[:k]
		}
		items = append(items, MediaItem{
			OriginalIndex: i + 1,
			Kind:          KindForExtension(ext),
			DirectURL:     cleaned,
			Filename:      filename,
			SourceURL:     sourceURL,
			Format:        ext,
		})
	}
	return items
}
