package ports

import (
	"context"
	"io"

	"savedown/internal/core/domain"
)

// Backend is the contract with the remote extraction service. One
// implementation speaks HTTP to the real backend; tests substitute fakes.
type Backend interface {
	// DownloadBinary fetches a single media file for the job, either
	// streamed or buffered depending on the platform, following a
	// direct-CDN redirect when the backend signals one.
	DownloadBinary(ctx context.Context, job domain.Job) (domain.MediaItem, error)

	// GalleryURLs lists candidate direct URLs for a gallery page, in the
	// backend's original ordering, unfiltered.
	GalleryURLs(ctx context.Context, pageURL string) ([]string, error)

	// InstagramTexts runs AI text extraction over a post's items.
	InstagramTexts(ctx context.Context, pageURL string) ([]domain.IndexedText, error)

	// TranscribeVideo downloads the audio track server-side and returns a
	// speech-to-text transcript.
	TranscribeVideo(ctx context.Context, pageURL, format, language string) (string, error)

	// TranscribeImage extracts readable text from an uploaded image.
	TranscribeImage(ctx context.Context, filename string, file io.Reader, prompt string) (string, error)
}

// MediaFetcher retrieves raw bytes from a direct CDN URL. The fetch is
// unauthenticated: backend credentials must never reach third-party hosts.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, directURL string) ([]byte, error)
}

// Dispatcher executes exactly one platform strategy for a job and returns
// its media items. Errors are tagged domain.AcquisitionErrors.
type Dispatcher interface {
	Dispatch(ctx context.Context, job domain.Job) ([]domain.MediaItem, error)
}

// Storage persists finished artifacts.
type Storage interface {
	// Init creates the output directory structure.
	Init(ctx context.Context) error

	// SaveFile writes a binary artifact and returns its path.
	SaveFile(ctx context.Context, filename string, r io.Reader) (string, error)

	// SaveText writes a text artifact and returns its path.
	SaveText(ctx context.Context, filename, content string) (string, error)
}
