package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"savedown/internal/core/domain"
)

// DownloadBinary fetches one media file through the backend. YouTube jobs
// use the chunked streaming endpoint; everything else gets the buffered
// endpoint, which the backend may answer with a direct-CDN redirect instead
// of a body.
func (c *Client) DownloadBinary(ctx context.Context, job domain.Job) (domain.MediaItem, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.binaryPath(job), nil)
	if err != nil {
		return domain.MediaItem{}, err
	}

	resp, err := c.binary.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return domain.MediaItem{}, domain.NewError(domain.ErrCancelled, "download cancelled", err)
		}
		return domain.MediaItem{}, domain.NewError(domain.ErrNetwork, "backend unreachable", err)
	}
	defer resp.Body.Close()

	switch classifyResponse(resp) {
	case respError:
		return domain.MediaItem{}, readServerError(resp, job.Platform)

	case respDirectRedirect:
		return c.followDirectRedirect(ctx, job, resp)

	case respJSON:
		// JSON without the direct-download header has no place on the
		// binary path.
		return domain.MediaItem{}, domain.NewError(domain.ErrMalformed, "backend sent json where a file was expected", nil)

	default:
		return c.readBinaryBody(job, resp)
	}
}

func (c *Client) binaryPath(job domain.Job) string {
	q := url.Values{}
	q.Set("url", job.NormalizedURL)
	q.Set("format", c.videoFormat)

	if job.Platform == domain.PlatformYouTube {
		return "/download/binary-stream?" + q.Encode()
	}

	q.Set("tool", "yt-dlp")
	if c.quality != "" {
		q.Set("quality", c.quality)
	}
	return "/download/binary?" + q.Encode()
}

// followDirectRedirect decodes the {direct_url} payload and refetches from
// the CDN without credentials.
func (c *Client) followDirectRedirect(ctx context.Context, job domain.Job, resp *http.Response) (domain.MediaItem, error) {
	var payload struct {
		DirectURL string `json:"direct_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.DirectURL == "" {
		return domain.MediaItem{}, domain.NewError(domain.ErrMalformed, "direct download response missing direct_url", err)
	}

	c.logger.Printf("[JOB %s] following direct CDN redirect", job.ID)

	data, err := c.FetchMedia(ctx, payload.DirectURL)
	if err != nil {
		// Expired CDN links on these platforms look like ordinary fetch
		// failures, so the message points the user at a retry instead of
		// surfacing transport noise.
		if job.Platform == domain.PlatformTikTok || job.Platform == domain.PlatformInstagram {
			return domain.MediaItem{}, domain.NewError(domain.ErrEmptyMedia,
				fmt.Sprintf("%s did not return a usable file, try again in a moment", job.Platform), err)
		}
		return domain.MediaItem{}, err
	}

	return domain.MediaItem{
		OriginalIndex: 1,
		Kind:          kindForFormat(c.videoFormat),
		Data:          data,
		DirectURL:     payload.DirectURL,
		Filename:      c.fallbackFilename(job, ""),
		SourceURL:     job.OriginalURL,
		Format:        c.videoFormat,
	}, nil
}

func (c *Client) readBinaryBody(job domain.Job, resp *http.Response) (domain.MediaItem, error) {
	buf, err := drainToBuffer(resp.Body)
	if err != nil {
		return domain.MediaItem{}, domain.NewError(domain.ErrNetwork, "failed to read file body", err)
	}
	if buf.Len() == 0 {
		return domain.MediaItem{}, domain.NewError(domain.ErrEmptyMedia, "backend returned an empty file", nil)
	}

	filename := dispositionFilename(resp.Header.Get("Content-Disposition"))
	if filename == "" {
		filename = c.fallbackFilename(job, resp.Header.Get("Content-Type"))
	}

	return domain.MediaItem{
		OriginalIndex: 1,
		Kind:          kindForFormat(c.videoFormat),
		Data:          buf.Bytes(),
		Filename:      filename,
		SourceURL:     job.OriginalURL,
		Format:        c.videoFormat,
	}, nil
}

func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// fallbackFilename builds platform_<unixms>.<ext> when the backend names
// nothing.
func (c *Client) fallbackFilename(job domain.Job, contentType string) string {
	ext := c.videoFormat
	if ext == "" {
		ext = "mp4"
	}
	if strings.Contains(contentType, "webm") {
		ext = "webm"
	}
	return fmt.Sprintf("%s_%d.%s", job.Platform, time.Now().UnixMilli(), ext)
}

func kindForFormat(format string) domain.MediaKind {
	switch strings.ToLower(format) {
	case "mp3", "m4a", "aac", "wav", "opus":
		return domain.KindAudio
	default:
		return domain.KindVideo
	}
}
