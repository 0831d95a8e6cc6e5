package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"savedown/internal/config"
	"savedown/internal/core/domain"
	"savedown/internal/core/ports"
	"savedown/internal/service"
)

type API struct {
	cfg       config.Config
	scheduler *service.Scheduler
	archiver  *service.Archiver
	backend   ports.Backend
	store     ports.Storage
	logger    *log.Logger

	mu      sync.Mutex
	batches map[string]*service.Batch
}

func NewAPI(cfg config.Config, scheduler *service.Scheduler, archiver *service.Archiver, backend ports.Backend, store ports.Storage, logger *log.Logger) *API {
	return &API{
		cfg:       cfg,
		scheduler: scheduler,
		archiver:  archiver,
		backend:   backend,
		store:     store,
		logger:    logger,
		batches:   make(map[string]*service.Batch),
	}
}

func registerRoutes(r *gin.Engine, api *API) {
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", api.handleHealth)

		apiGroup.POST("/batches", api.handleCreateBatch)
		apiGroup.GET("/batches/:id/progress", api.handleProgress)
		apiGroup.POST("/batches/:id/cancel", api.handleCancel)
		apiGroup.GET("/batches/:id/results", api.handleResults)
		apiGroup.GET("/batches/:id/archive", api.handleArchive)
		apiGroup.GET("/batches/:id/texts", api.handleTexts)
		apiGroup.POST("/batches/:id/save", api.handleSave)

		apiGroup.POST("/transcribe/image", api.handleTranscribeImage)
		apiGroup.POST("/transcribe/video", api.handleTranscribeVideo)
	}
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) handleCreateBatch(c *gin.Context) {
	var payload struct {
		URLs []string `json:"urls" binding:"required"`
		Mode string   `json:"mode"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if len(payload.URLs) == 0 {
		respondMessage(c, http.StatusBadRequest, "urls must not be empty")
		return
	}

	mode, err := parseMode(payload.Mode)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	// Batches outlive the submitting request on purpose.
	batch := a.scheduler.Start(context.Background(), payload.URLs, mode)

	a.mu.Lock()
	a.batches[batch.ID] = batch
	a.mu.Unlock()

	c.JSON(http.StatusAccepted, gin.H{"id": batch.ID, "total": len(payload.URLs)})
}

func (a *API) handleProgress(c *gin.Context) {
	batch := a.batch(c)
	if batch == nil {
		return
	}
	progress := batch.Progress()
	c.JSON(http.StatusOK, gin.H{
		"state":   batch.State(),
		"current": progress.Current,
		"total":   progress.Total,
		"percent": batch.Percent(),
	})
}

func (a *API) handleCancel(c *gin.Context) {
	batch := a.batch(c)
	if batch == nil {
		return
	}
	batch.Cancel()
	c.JSON(http.StatusAccepted, gin.H{"state": batch.State()})
}

type itemView struct {
	Index         int    `json:"index"`
	Kind          string `json:"kind"`
	Filename      string `json:"filename"`
	DirectURL     string `json:"direct_url,omitempty"`
	Size          int    `json:"size"`
	ExtractedText string `json:"extracted_text,omitempty"`
	Transcript    string `json:"transcript,omitempty"`
}

type resultView struct {
	URL      string     `json:"url"`
	Platform string     `json:"platform"`
	Status   string     `json:"status"`
	Error    *errorView `json:"error,omitempty"`
	Items    []itemView `json:"items,omitempty"`
}

type errorView struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (a *API) handleResults(c *gin.Context) {
	batch := a.batch(c)
	if batch == nil {
		return
	}

	results := batch.Results()
	views := make([]resultView, 0, len(results))
	for _, res := range results {
		view := resultView{
			URL:      res.Job.OriginalURL,
			Platform: res.Job.Platform.String(),
			Status:   string(res.Status),
		}
		if res.Err != nil {
			view.Error = &errorView{Kind: string(res.Err.Kind), Message: res.Err.Message}
		}
		for _, item := range res.Items {
			view.Items = append(view.Items, itemView{
				Index:         item.OriginalIndex,
				Kind:          item.Kind.String(),
				Filename:      service.ItemFilename(item),
				DirectURL:     item.DirectURL,
				Size:          len(item.Data),
				ExtractedText: item.ExtractedText,
				Transcript:    item.Transcript,
			})
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{"state": batch.State(), "results": views})
}

func (a *API) handleArchive(c *gin.Context) {
	batch := a.batch(c)
	if batch == nil {
		return
	}
	if batch.State() == service.BatchRunning {
		respondMessage(c, http.StatusConflict, "batch is still running")
		return
	}

	media := collectMedia(batch.Results())
	if len(media) == 0 {
		respondMessage(c, http.StatusNotFound, "batch produced no media")
		return
	}

	ctx := c.Request.Context()

	// One file travels as itself, never inside a container.
	if len(media) == 1 {
		data, err := a.archiver.ItemBytes(ctx, media[0])
		if err != nil {
			respondAcquisitionError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", service.ItemFilename(media[0])))
		c.Data(http.StatusOK, "application/octet-stream", data)
		return
	}

	var buf bytes.Buffer
	summary, err := a.archiver.WriteArchive(ctx, media, &buf)
	if err != nil {
		respondAcquisitionError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "savedown_"+batch.ID+".zip"))
	c.Header("X-Archive-Added", fmt.Sprint(summary.Added))
	c.Header("X-Archive-Failed", fmt.Sprint(summary.Failed))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

func (a *API) handleTexts(c *gin.Context) {
	batch := a.batch(c)
	if batch == nil {
		return
	}

	var items []domain.MediaItem
	for _, res := range batch.Results() {
		items = append(items, res.Items...)
	}
	out := service.ExportTexts(items)
	if out == "" {
		respondMessage(c, http.StatusNotFound, "batch produced no text")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="texts.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(out))
}

// handleSave persists the batch's artifacts on the server's own data
// directory, the same way the CLI does.
func (a *API) handleSave(c *gin.Context) {
	batch := a.batch(c)
	if batch == nil {
		return
	}
	if batch.State() == service.BatchRunning {
		respondMessage(c, http.StatusConflict, "batch is still running")
		return
	}

	ctx := c.Request.Context()
	var saved []string
	var failed int
	var textItems []domain.MediaItem

	for _, res := range batch.Results() {
		if res.Status != domain.StatusSuccess {
			continue
		}
		paths, summary, err := a.archiver.Save(ctx, res.Items, a.store)
		if err != nil {
			a.logger.Printf("[BATCH %s] [JOB %s] Failed to save artifacts: %v", batch.ID, res.Job.ID, err)
			failed++
			continue
		}
		failed += summary.Failed
		saved = append(saved, paths...)
		textItems = append(textItems, res.Items...)
	}

	if out := service.ExportTexts(textItems); out != "" {
		path, err := a.store.SaveText(ctx, "texts_"+batch.ID+".txt", out)
		if err != nil {
			a.logger.Printf("[BATCH %s] Failed to save texts: %v", batch.ID, err)
		} else {
			saved = append(saved, path)
		}
	}

	if len(saved) == 0 {
		respondMessage(c, http.StatusNotFound, "batch produced nothing to save")
		return
	}
	c.JSON(http.StatusOK, gin.H{"paths": saved, "failed": failed})
}

func (a *API) handleTranscribeImage(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "file field is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	text, err := a.backend.TranscribeImage(c.Request.Context(), header.Filename, file, c.PostForm("prompt"))
	if err != nil {
		respondAcquisitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

// handleTranscribeVideo transcribes one URL on demand, typically an item a
// finished download batch already resolved.
func (a *API) handleTranscribeVideo(c *gin.Context) {
	var payload struct {
		URL      string `json:"url" binding:"required"`
		Language string `json:"language"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	transcript, err := a.backend.TranscribeVideo(c.Request.Context(), payload.URL, "", payload.Language)
	if err != nil {
		respondAcquisitionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcript": transcript})
}

// batch resolves the :id parameter or writes a 404 and returns nil.
func (a *API) batch(c *gin.Context) *service.Batch {
	a.mu.Lock()
	batch, ok := a.batches[c.Param("id")]
	a.mu.Unlock()
	if !ok {
		respondMessage(c, http.StatusNotFound, "batch not found")
		return nil
	}
	return batch
}

func collectMedia(results []domain.AcquisitionResult) []domain.MediaItem {
	var media []domain.MediaItem
	for _, res := range results {
		if res.Status != domain.StatusSuccess {
			continue
		}
		for _, item := range res.Items {
			if item.Kind != domain.KindText {
				media = append(media, item)
			}
		}
	}
	return media
}

func parseMode(raw string) (domain.Mode, error) {
	switch raw {
	case "", "download":
		return domain.ModeDownload, nil
	case "transcribe":
		return domain.ModeTranscribe, nil
	default:
		return domain.ModeDownload, fmt.Errorf("unknown mode %q", raw)
	}
}

func respondAcquisitionError(c *gin.Context, err error) {
	acqErr := domain.AsAcquisitionError(err)
	status := http.StatusBadGateway
	switch acqErr.Kind {
	case domain.ErrEmptyMedia:
		status = http.StatusUnprocessableEntity
	case domain.ErrPlatformBlocked:
		status = http.StatusServiceUnavailable
	case domain.ErrCancelled:
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": acqErr.Message, "kind": string(acqErr.Kind)})
}

func respondError(c *gin.Context, status int, err error) {
	respondMessage(c, status, err.Error())
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
