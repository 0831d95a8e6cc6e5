package bridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"savedown/internal/core/domain"
)

// Options configures a backend client.
type Options struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	VideoFormat    string // container for binary downloads, defaults to mp4
	AudioFormat    string // container for transcription audio, defaults to mp3
	Quality        string // optional yt-dlp quality selector
}

// Client speaks to the extraction backend over HTTP. Every request carries
// the API key; direct CDN fetches go through a separate unauthenticated
// client so the key never reaches third-party hosts.
type Client struct {
	baseURL     string
	apiKey      string
	videoFormat string
	audioFormat string
	quality     string

	// api has a timeout; binary is deliberately timeout-free because large
	// media transfers can outlive any fixed deadline. Cancellation still
	// works through the request context.
	api    *http.Client
	binary *http.Client
	cdn    *http.Client

	logger *log.Logger
}

// NewClient creates a backend client. Trailing slashes on BaseURL are
// trimmed so path joining stays predictable.
func NewClient(opts Options, logger *log.Logger) *Client {
	if opts.VideoFormat == "" {
		opts.VideoFormat = "mp4"
	}
	if opts.AudioFormat == "" {
		opts.AudioFormat = "mp3"
	}
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		videoFormat: opts.VideoFormat,
		audioFormat: opts.AudioFormat,
		quality:     opts.Quality,
		api:         &http.Client{Timeout: opts.RequestTimeout},
		binary:      &http.Client{},
		cdn:         &http.Client{Timeout: opts.RequestTimeout},
		logger:      logger,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "*/*")
	return req, nil
}

// FetchMedia downloads raw bytes from a direct CDN URL without credentials.
// A zero-byte body counts as a failure: CDNs serve empty 200s for expired
// links.
func (c *Client) FetchMedia(ctx context.Context, directURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, directURL, nil)
	if err != nil {
		return nil, domain.NewError(domain.ErrNetwork, "invalid media url", err)
	}

	resp, err := c.cdn.Do(req)
	if err != nil {
		return nil, domain.NewError(domain.ErrNetwork, "media host unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewError(domain.ErrServer, fmt.Sprintf("media host returned status %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewError(domain.ErrNetwork, "failed to read media body", err)
	}
	if len(data) == 0 {
		return nil, domain.NewError(domain.ErrEmptyMedia, "media host returned an empty file", nil)
	}
	return data, nil
}

func drainToBuffer(r io.Reader) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	return &buf, nil
}
