package bridge

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"savedown/internal/core/domain"
)

// responseKind is the single classification every backend response goes
// through before any branch-specific handling runs.
type responseKind int

const (
	respBinary responseKind = iota
	respDirectRedirect
	respJSON
	respError
)

// classifyResponse inspects status and headers only; the body is untouched.
func classifyResponse(resp *http.Response) responseKind {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return respError
	}
	if strings.EqualFold(resp.Header.Get("X-Direct-Download"), "true") {
		return respDirectRedirect
	}
	ct := resp.Header.Get("Content-Type")
	if strings.Contains(ct, "application/json") {
		return respJSON
	}
	return respBinary
}

// readServerError turns a non-2xx response into a tagged error. The body is
// best-effort: a JSON detail field wins, then plain text, then the status
// code alone.
func readServerError(resp *http.Response, platform domain.Platform) *domain.AcquisitionError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if platform == domain.PlatformTikTok && isBlockedResponse(resp.StatusCode, body) {
		return domain.NewError(domain.ErrPlatformBlocked,
			"tiktok is refusing requests from this region, retry with a VPN set to another country", nil)
	}

	msg := serverMessage(body)
	if msg == "" {
		msg = fmt.Sprintf("backend returned status %d", resp.StatusCode)
	}
	return domain.NewError(domain.ErrServer, msg, nil)
}

// isBlockedResponse recognises regional blocking: a 503, or an error body
// that mentions blocking.
func isBlockedResponse(status int, body []byte) bool {
	if status == http.StatusServiceUnavailable {
		return true
	}
	return strings.Contains(strings.ToLower(string(body)), "blocked")
}

func serverMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
