package service

import (
	"context"
	"fmt"
	"log"

	"savedown/internal/core/domain"
	"savedown/internal/core/ports"
)

// Dispatcher picks and runs exactly one acquisition strategy per job.
type Dispatcher struct {
	backend ports.Backend
	logger  *log.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(backend ports.Backend, logger *log.Logger) *Dispatcher {
	return &Dispatcher{backend: backend, logger: logger}
}

// Dispatch runs the strategy for the job's platform, subtype and mode. The
// returned slice is never empty on success.
func (d *Dispatcher) Dispatch(ctx context.Context, job domain.Job) ([]domain.MediaItem, error) {
	if job.Mode == domain.ModeTranscribe {
		return d.transcribe(ctx, job)
	}

	// Every platform value gets an explicit arm so a new platform cannot
	// silently fall into a wrong strategy.
	switch job.Platform {
	case domain.PlatformInstagram:
		switch job.Subtype {
		case domain.SubtypePost, domain.SubtypeReel, domain.SubtypeStory:
			return d.gallery(ctx, job)
		case domain.SubtypeUnknown:
			return d.binary(ctx, job)
		default:
			return nil, fmt.Errorf("unhandled instagram subtype: %d", job.Subtype)
		}
	case domain.PlatformYouTube, domain.PlatformTikTok, domain.PlatformTwitter,
		domain.PlatformFacebook, domain.PlatformGeneric:
		return d.binary(ctx, job)
	case domain.PlatformNone:
		return nil, domain.NewError(domain.ErrMalformed, "url does not point to a supported site", nil)
	default:
		return nil, fmt.Errorf("unhandled platform: %d", job.Platform)
	}
}

func (d *Dispatcher) binary(ctx context.Context, job domain.Job) ([]domain.MediaItem, error) {
	d.logger.Printf("[JOB %s] Downloading via binary strategy (%s)", job.ID, job.Platform)
	item, err := d.backend.DownloadBinary(ctx, job)
	if err != nil {
		return nil, err
	}
	return []domain.MediaItem{item}, nil
}

func (d *Dispatcher) gallery(ctx context.Context, job domain.Job) ([]domain.MediaItem, error) {
	d.logger.Printf("[JOB %s] Listing gallery items", job.ID)
	urls, err := d.backend.GalleryURLs(ctx, job.NormalizedURL)
	if err != nil {
		return nil, err
	}

	items := domain.FilterMediaURLs(urls, job.NormalizedURL)
	if len(items) == 0 {
		return nil, domain.NewError(domain.ErrEmptyMedia, "gallery contained no downloadable media", nil)
	}
	d.logger.Printf("[JOB %s] Gallery kept %d of %d items", job.ID, len(items), len(urls))

	// Text extraction only makes sense for carousel posts, and a failure
	// there must not sink an otherwise good download.
	if job.Subtype == domain.SubtypePost {
		texts, err := d.backend.InstagramTexts(ctx, job.NormalizedURL)
		if err != nil {
			d.logger.Printf("[JOB %s] Text extraction unavailable: %v", job.ID, err)
		} else {
			domain.AttachExtractedText(items, texts)
		}
	}
	return items, nil
}

func (d *Dispatcher) transcribe(ctx context.Context, job domain.Job) ([]domain.MediaItem, error) {
	d.logger.Printf("[JOB %s] Transcribing audio track", job.ID)
	transcript, err := d.backend.TranscribeVideo(ctx, job.NormalizedURL, "", "")
	if err != nil {
		return nil, err
	}
	return []domain.MediaItem{{
		OriginalIndex: 1,
		Kind:          domain.KindText,
		Filename:      fmt.Sprintf("%s_transcript.txt", job.Platform),
		SourceURL:     job.OriginalURL,
		Transcript:    transcript,
	}}, nil
}
