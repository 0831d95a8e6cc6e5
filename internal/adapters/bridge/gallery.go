package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"savedown/internal/core/domain"
)

// postJSON sends a JSON request on the timeout-bound client and decodes a
// JSON response into out.
func (c *Client) postJSON(ctx context.Context, path string, payload any, platform domain.Platform, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.NewError(domain.ErrMalformed, "failed to encode request", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.api.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return domain.NewError(domain.ErrCancelled, "request cancelled", err)
		}
		return domain.NewError(domain.ErrNetwork, "backend unreachable", err)
	}
	defer resp.Body.Close()

	if classifyResponse(resp) == respError {
		return readServerError(resp, platform)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewError(domain.ErrMalformed, "backend sent an unreadable response", err)
	}
	return nil
}

// GalleryURLs asks the backend to enumerate a gallery page. The returned
// list keeps the backend's ordering and is not filtered here.
func (c *Client) GalleryURLs(ctx context.Context, pageURL string) ([]string, error) {
	request := struct {
		URL  string `json:"url"`
		Tool string `json:"tool"`
	}{URL: pageURL, Tool: "gallery-dl"}

	var response struct {
		DirectURLs []string `json:"direct_urls"`
	}
	if err := c.postJSON(ctx, "/download/gallery/urls", request, domain.PlatformInstagram, &response); err != nil {
		return nil, err
	}
	if response.DirectURLs == nil {
		return nil, domain.NewError(domain.ErrMalformed, "gallery response missing direct_urls", nil)
	}
	return response.DirectURLs, nil
}

// InstagramTexts extracts readable text from a post's items. Indices in the
// response are 1-based positions in the unfiltered gallery listing.
func (c *Client) InstagramTexts(ctx context.Context, pageURL string) ([]domain.IndexedText, error) {
	request := struct {
		URL string `json:"url"`
	}{URL: pageURL}

	var response struct {
		Items []domain.IndexedText `json:"items"`
	}
	if err := c.postJSON(ctx, "/transcribe/instagram", request, domain.PlatformInstagram, &response); err != nil {
		return nil, err
	}
	return response.Items, nil
}
