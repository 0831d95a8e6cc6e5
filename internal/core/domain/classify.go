package domain

import (
	"net/url"
	"strings"
	"time"
)

// platformRule maps a domain fragment to a platform. Rules are checked in
// order; the first match wins.
type platformRule struct {
	fragment string
	platform Platform
}

var platformRules = []platformRule{
	{"instagram.com", PlatformInstagram},
	{"youtube.com", PlatformYouTube},
	{"youtu.be", PlatformYouTube},
	{"tiktok.com", PlatformTikTok},
	{"tiktokcdn", PlatformTikTok},
	{"twitter.com", PlatformTwitter},
	{"x.com", PlatformTwitter},
	{"facebook.com", PlatformFacebook},
	{"fb.watch", PlatformFacebook},
}

// DetectPlatform classifies a raw URL string by case-insensitive substring
// match against the rule table. Unmatched strings that still parse as an
// absolute HTTP(S) URL with a dotted host classify as PlatformGeneric;
// everything else is PlatformNone and should be rejected at the input
// boundary.
func DetectPlatform(raw string) Platform {
	lower := strings.ToLower(raw)
	for _, rule := range platformRules {
		if strings.Contains(lower, rule.fragment) {
			return rule.platform
		}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return PlatformNone
	}
	if (u.Scheme == "http" || u.Scheme == "https") && strings.Contains(u.Host, ".") {
		return PlatformGeneric
	}
	return PlatformNone
}

// DetectSubtype derives the content subtype from Instagram path segments.
// Anything without a recognizable segment is treated as reel-like unknown.
func DetectSubtype(platform Platform, raw string) ContentSubtype {
	if platform != PlatformInstagram {
		return SubtypeUnknown
	}
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "/p/"):
		return SubtypePost
	case strings.Contains(lower, "/reel/"):
		return SubtypeReel
	case strings.Contains(lower, "/stories/"):
		return SubtypeStory
	default:
		return SubtypeUnknown
	}
}

// NormalizeURL canonicalizes a URL before it is used as a cache or display
// key. YouTube URLs pass through untouched because the video id rides in the
// query string. Every other platform keeps scheme, host and path only. A URL
// that fails to parse is returned unchanged: submission must not be blocked
// on a malformed-but-tolerable link.
func NormalizeURL(raw string) string {
	if DetectPlatform(raw) == PlatformYouTube {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// NewJob classifies and normalizes a submitted URL into a Job.
func NewJob(id, rawURL string, mode Mode) Job {
	platform := DetectPlatform(rawURL)
	return Job{
		ID:            id,
		OriginalURL:   rawURL,
		NormalizedURL: NormalizeURL(rawURL),
		Platform:      platform,
		Subtype:       DetectSubtype(platform, rawURL),
		Mode:          mode,
		CreatedAt:     time.Now().UTC(),
	}
}
