package service

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"savedown/internal/core/domain"
	"savedown/internal/core/ports"
)

// ArchiveSummary counts what a bundling pass managed to include.
type ArchiveSummary struct {
	Added  int `json:"added"`
	Failed int `json:"failed"`
}

// Archiver turns resolved media items into saved artifacts. One item is
// written directly under its own name; two or more go into a single zip.
// Per-item CDN fetches are paced by a rate limiter so burst fetching does
// not trip the media hosts.
type Archiver struct {
	fetcher ports.MediaFetcher
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewArchiver creates an Archiver. itemsPerSecond caps CDN fetch pacing;
// zero or negative disables pacing.
func NewArchiver(fetcher ports.MediaFetcher, itemsPerSecond float64, logger *log.Logger) *Archiver {
	var limiter *rate.Limiter
	if itemsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(itemsPerSecond), 1)
	}
	return &Archiver{fetcher: fetcher, limiter: limiter, logger: logger}
}

// Save persists the media items of a batch. Text-only items are skipped
// here; they travel through ExportTexts instead. The returned paths are
// whatever the store reports.
func (a *Archiver) Save(ctx context.Context, items []domain.MediaItem, store ports.Storage) ([]string, ArchiveSummary, error) {
	media := make([]domain.MediaItem, 0, len(items))
	for _, item := range items {
		if item.Kind != domain.KindText {
			media = append(media, item)
		}
	}
	if len(media) == 0 {
		return nil, ArchiveSummary{}, nil
	}

	// A single file needs no container.
	if len(media) == 1 {
		data, err := a.ItemBytes(ctx, media[0])
		if err != nil {
			return nil, ArchiveSummary{Failed: 1}, err
		}
		path, err := store.SaveFile(ctx, ItemFilename(media[0]), bytes.NewReader(data))
		if err != nil {
			return nil, ArchiveSummary{Failed: 1}, fmt.Errorf("failed to save file: %w", err)
		}
		return []string{path}, ArchiveSummary{Added: 1}, nil
	}

	var buf bytes.Buffer
	summary, err := a.WriteArchive(ctx, media, &buf)
	if err != nil {
		return nil, summary, err
	}

	name := fmt.Sprintf("savedown_%d.zip", time.Now().UnixMilli())
	path, err := store.SaveFile(ctx, name, &buf)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to save archive: %w", err)
	}
	return []string{path}, summary, nil
}

// WriteArchive streams the items into a zip on w. Individual fetch failures
// are counted and skipped; the archive only fails outright when nothing at
// all could be added or the context is cancelled.
func (a *Archiver) WriteArchive(ctx context.Context, items []domain.MediaItem, w io.Writer) (ArchiveSummary, error) {
	zw := zip.NewWriter(w)
	used := make(map[string]int)

	var summary ArchiveSummary
	for _, item := range items {
		if item.Kind == domain.KindText {
			continue
		}
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				return summary, domain.NewError(domain.ErrCancelled, "archiving cancelled", err)
			}
		}

		data, err := a.ItemBytes(ctx, item)
		if err != nil {
			summary.Failed++
			a.logger.Printf("Skipping item %d: %v", item.OriginalIndex, err)
			continue
		}

		entry, err := zw.Create(uniqueName(used, ItemFilename(item)))
		if err != nil {
			return summary, fmt.Errorf("failed to create archive entry: %w", err)
		}
		if _, err := entry.Write(data); err != nil {
			return summary, fmt.Errorf("failed to write archive entry: %w", err)
		}
		summary.Added++
	}

	if summary.Added == 0 {
		return summary, domain.NewError(domain.ErrEmptyMedia, "none of the items could be fetched", nil)
	}
	if err := zw.Close(); err != nil {
		return summary, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return summary, nil
}

// ItemBytes materialises one item, fetching from the CDN when the bytes
// are not already attached.
func (a *Archiver) ItemBytes(ctx context.Context, item domain.MediaItem) ([]byte, error) {
	if len(item.Data) > 0 {
		return item.Data, nil
	}
	if item.DirectURL == "" {
		return nil, domain.NewError(domain.ErrEmptyMedia, "item carries neither bytes nor a direct url", nil)
	}
	return a.fetcher.FetchMedia(ctx, item.DirectURL)
}

// ItemFilename returns the name an item is saved under, guaranteeing a
// usable extension inferred from the item's kind when the URL gave none.
func ItemFilename(item domain.MediaItem) string {
	name := item.Filename
	if name == "" {
		name = fmt.Sprintf("item_%d", item.OriginalIndex)
	}
	if domain.ExtensionOf(name) != "" {
		return name
	}

	ext := "jpg"
	switch item.Kind {
	case domain.KindVideo:
		ext = "mp4"
		if item.Format != "" {
			ext = item.Format
		}
	case domain.KindAudio:
		ext = "mp3"
	case domain.KindText:
		ext = "txt"
	}
	return name + "." + ext
}

// uniqueName resolves filename collisions inside one archive by appending
// an ordinal before the extension: clip.mp4, clip_2.mp4, clip_3.mp4.
func uniqueName(used map[string]int, name string) string {
	if used[name] == 0 {
		used[name] = 1
		return name
	}

	stem, ext := name, ""
	if i := strings.LastIndex(name, "."); i > 0 {
		stem, ext = name[:i], name[i:]
	}
	for n := used[name] + 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if used[candidate] == 0 {
			used[name] = n
			used[candidate] = 1
			return candidate
		}
	}
}

// ExportTexts renders extracted texts and transcripts as one numbered
// plain-text document.
func ExportTexts(items []domain.MediaItem) string {
	separator := strings.Repeat("=", 80)

	var b strings.Builder
	for _, item := range items {
		text := item.ExtractedText
		if text == "" {
			text = item.Transcript
		}
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "Item %d:\n%s\n%s\n", item.OriginalIndex, text, separator)
	}
	return b.String()
}
