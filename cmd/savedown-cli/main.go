package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"savedown/internal/adapters/bridge"
	"savedown/internal/adapters/localstorage"
	"savedown/internal/config"
	"savedown/internal/core/domain"
	"savedown/internal/service"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	mode := flag.String("mode", "download", "What to do with the URLs: download or transcribe")
	outDir := flag.String("out", "", "Output directory (overrides SAVEDOWN_DATA_DIR)")
	flag.Parse()

	urls := flag.Args()
	if len(urls) == 0 {
		fmt.Println("Usage: savedown-cli [-mode download|transcribe] [-out <path>] <url> [<url>...]")
		fmt.Println("\nExample:")
		fmt.Println("  savedown-cli https://www.tiktok.com/@user/video/1234567890")
		fmt.Println("  savedown-cli -mode transcribe https://www.youtube.com/watch?v=dQw4w9WgXcQ")
		os.Exit(1)
	}

	jobMode := domain.ModeDownload
	switch *mode {
	case "download":
	case "transcribe":
		jobMode = domain.ModeTranscribe
	default:
		log.Fatalf("Unknown mode %q", *mode)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *outDir != "" {
		cfg.DataDir = *outDir
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)
	logger.Println("=== SaveDown CLI ===")
	logger.Printf("URLs: %d, mode: %s", len(urls), jobMode)
	logger.Printf("Output Directory: %s", cfg.DataDir)

	backend := bridge.NewClient(bridge.Options{
		BaseURL:        cfg.APIBaseURL,
		APIKey:         cfg.APIKey,
		RequestTimeout: cfg.RequestTimeout,
		VideoFormat:    cfg.VideoFormat,
		AudioFormat:    cfg.AudioFormat,
		Quality:        cfg.Quality,
	}, logger)

	store := localstorage.NewLocalStorage(cfg.DataDir)
	if err := store.Init(context.Background()); err != nil {
		logger.Fatalf("Failed to prepare output directory: %v", err)
	}

	dispatcher := service.NewDispatcher(backend, logger)
	scheduler := service.NewScheduler(dispatcher, cfg.MaxParallel, nil, logger)
	archiver := service.NewArchiver(backend, cfg.ArchiveRate, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batch := scheduler.Start(ctx, urls, jobMode)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Println("\nReceived interrupt signal, cancelling...")
		batch.Cancel()
	}()

	reportProgress(batch, logger)

	results := batch.Results()
	saved := persistResults(ctx, results, archiver, store, logger)

	printSummary(batch, results, saved)
	if batch.State() == service.BatchCancelled {
		os.Exit(130)
	}
	for _, res := range results {
		if res.Status == domain.StatusFailed {
			os.Exit(1)
		}
	}
}

// reportProgress prints a coarse ticker line until the batch resolves.
func reportProgress(batch *service.Batch, logger *log.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-batch.Done():
			return
		case <-ticker.C:
			p := batch.Progress()
			logger.Printf("Progress: %d/%d (%.0f%%)", p.Current, p.Total, batch.Percent())
		}
	}
}

func persistResults(ctx context.Context, results []domain.AcquisitionResult, archiver *service.Archiver, store *localstorage.LocalStorage, logger *log.Logger) []string {
	var saved []string
	var textItems []domain.MediaItem

	for _, res := range results {
		if res.Status != domain.StatusSuccess {
			continue
		}
		paths, summary, err := archiver.Save(ctx, res.Items, store)
		if err != nil {
			logger.Printf("[JOB %s] Failed to save artifacts: %v", res.Job.ID, err)
			continue
		}
		if summary.Failed > 0 {
			logger.Printf("[JOB %s] %d item(s) could not be fetched", res.Job.ID, summary.Failed)
		}
		saved = append(saved, paths...)
		textItems = append(textItems, res.Items...)
	}

	if out := service.ExportTexts(textItems); out != "" {
		path, err := store.SaveText(ctx, fmt.Sprintf("texts_%d.txt", time.Now().UnixMilli()), out)
		if err != nil {
			logger.Printf("Failed to save texts: %v", err)
		} else {
			saved = append(saved, path)
		}
	}
	return saved
}

func printSummary(batch *service.Batch, results []domain.AcquisitionResult, saved []string) {
	fmt.Println("\n=== Batch Summary ===")
	fmt.Printf("Batch ID:  %s\n", batch.ID)
	fmt.Printf("State:     %s\n", batch.State())
	for _, res := range results {
		line := fmt.Sprintf("  [%s] %s", res.Status, res.Job.OriginalURL)
		if res.Err != nil {
			line += fmt.Sprintf(" (%s: %s)", res.Err.Kind, res.Err.Message)
		}
		fmt.Println(line)
	}
	fmt.Printf("Artifacts: %d\n", len(saved))
	for _, path := range saved {
		fmt.Printf("  %s\n", path)
	}
}
