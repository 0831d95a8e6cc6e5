package httpapi

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savedown/internal/adapters/localstorage"
	"savedown/internal/config"
	"savedown/internal/core/domain"
	"savedown/internal/service"
)

// fakeBackend implements ports.Backend and ports.MediaFetcher.
type fakeBackend struct {
	downloadBinary func(ctx context.Context, job domain.Job) (domain.MediaItem, error)
	galleryURLs    func(ctx context.Context, pageURL string) ([]string, error)
}

func (f *fakeBackend) DownloadBinary(ctx context.Context, job domain.Job) (domain.MediaItem, error) {
	return f.downloadBinary(ctx, job)
}

func (f *fakeBackend) GalleryURLs(ctx context.Context, pageURL string) ([]string, error) {
	return f.galleryURLs(ctx, pageURL)
}

func (f *fakeBackend) InstagramTexts(ctx context.Context, pageURL string) ([]domain.IndexedText, error) {
	return []domain.IndexedText{{Index: 1, Text: "caption text"}}, nil
}

func (f *fakeBackend) TranscribeVideo(ctx context.Context, pageURL, format, language string) (string, error) {
	return "spoken words", nil
}

func (f *fakeBackend) TranscribeImage(ctx context.Context, filename string, file io.Reader, prompt string) (string, error) {
	return "read from " + filename, nil
}

func (f *fakeBackend) FetchMedia(ctx context.Context, directURL string) ([]byte, error) {
	return []byte("cdn:" + directURL), nil
}

func setupTestServer(t *testing.T, backend *fakeBackend) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := log.New(io.Discard, "", 0)
	cfg := config.Config{Port: "8080", MaxParallel: 3, DataDir: t.TempDir()}

	dispatcher := service.NewDispatcher(backend, logger)
	scheduler := service.NewScheduler(dispatcher, cfg.MaxParallel, nil, logger)
	archiver := service.NewArchiver(backend, 0, logger)
	store := localstorage.NewLocalStorage(cfg.DataDir)

	engine := gin.New()
	engine.Use(gin.Recovery())
	api := NewAPI(cfg, scheduler, archiver, backend, store, logger)
	registerRoutes(engine, api)
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func createBatch(t *testing.T, engine *gin.Engine, body string) string {
	t.Helper()
	rec := doJSON(t, engine, http.MethodPost, "/api/batches", body)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func waitForState(t *testing.T, engine *gin.Engine, id, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		rec := doJSON(t, engine, http.MethodGet, "/api/batches/"+id+"/progress", "")
		if rec.Code != http.StatusOK {
			return false
		}
		var resp struct {
			State string `json:"state"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			return false
		}
		return resp.State == want
	}, 3*time.Second, 10*time.Millisecond)
}

func TestHealth(t *testing.T) {
	engine := setupTestServer(t, &fakeBackend{})
	rec := doJSON(t, engine, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateBatchValidation(t *testing.T) {
	engine := setupTestServer(t, &fakeBackend{})

	rec := doJSON(t, engine, http.MethodPost, "/api/batches", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, engine, http.MethodPost, "/api/batches", `{"urls":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, engine, http.MethodPost, "/api/batches", `{"urls":["https://x.com/a"],"mode":"explode"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchLifecycleSingleDownload(t *testing.T) {
	backend := &fakeBackend{
		downloadBinary: func(ctx context.Context, job domain.Job) (domain.MediaItem, error) {
			return domain.MediaItem{OriginalIndex: 1, Kind: domain.KindVideo, Data: []byte("videodata"), Filename: "clip.mp4"}, nil
		},
	}
	engine := setupTestServer(t, backend)

	id := createBatch(t, engine, `{"urls":["https://www.tiktok.com/@u/video/1"]}`)
	waitForState(t, engine, id, "completed")

	rec := doJSON(t, engine, http.MethodGet, "/api/batches/"+id+"/results", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var results struct {
		Results []struct {
			Status string `json:"status"`
			Items  []struct {
				Filename string `json:"filename"`
				Size     int    `json:"size"`
			} `json:"items"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results.Results, 1)
	assert.Equal(t, "success", results.Results[0].Status)
	require.Len(t, results.Results[0].Items, 1)
	assert.Equal(t, "clip.mp4", results.Results[0].Items[0].Filename)
	assert.Equal(t, len("videodata"), results.Results[0].Items[0].Size)

	// A lone item downloads as itself, not inside a zip.
	rec = doJSON(t, engine, http.MethodGet, "/api/batches/"+id+"/archive", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "clip.mp4")
	assert.Equal(t, "videodata", rec.Body.String())
}

func TestBatchArchiveMultipleItems(t *testing.T) {
	backend := &fakeBackend{
		galleryURLs: func(ctx context.Context, pageURL string) ([]string, error) {
			return []string{
				"https://scontent.cdninstagram.com/v/a.jpg",
				"https://scontent.cdninstagram.com/v/b.jpg",
			}, nil
		},
	}
	engine := setupTestServer(t, backend)

	id := createBatch(t, engine, `{"urls":["https://www.instagram.com/p/abc/"]}`)
	waitForState(t, engine, id, "completed")

	rec := doJSON(t, engine, http.MethodGet, "/api/batches/"+id+"/archive", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".zip")

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	assert.Len(t, zr.File, 2)
}

func TestBatchTexts(t *testing.T) {
	backend := &fakeBackend{
		galleryURLs: func(ctx context.Context, pageURL string) ([]string, error) {
			return []string{"https://scontent.cdninstagram.com/v/a.jpg"}, nil
		},
	}
	engine := setupTestServer(t, backend)

	id := createBatch(t, engine, `{"urls":["https://www.instagram.com/p/abc/"]}`)
	waitForState(t, engine, id, "completed")

	rec := doJSON(t, engine, http.MethodGet, "/api/batches/"+id+"/texts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "caption text")
}

func TestBatchArchiveWhileRunning(t *testing.T) {
	block := make(chan struct{})
	backend := &fakeBackend{
		downloadBinary: func(ctx context.Context, job domain.Job) (domain.MediaItem, error) {
			<-block
			return domain.MediaItem{OriginalIndex: 1, Kind: domain.KindVideo, Data: []byte("x")}, nil
		},
	}
	engine := setupTestServer(t, backend)

	id := createBatch(t, engine, `{"urls":["https://www.tiktok.com/@u/video/1"]}`)
	rec := doJSON(t, engine, http.MethodGet, "/api/batches/"+id+"/archive", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(block)
	waitForState(t, engine, id, "completed")
}

func TestBatchSave(t *testing.T) {
	backend := &fakeBackend{
		downloadBinary: func(ctx context.Context, job domain.Job) (domain.MediaItem, error) {
			return domain.MediaItem{OriginalIndex: 1, Kind: domain.KindVideo, Data: []byte("videodata"), Filename: "clip.mp4"}, nil
		},
	}
	engine := setupTestServer(t, backend)

	id := createBatch(t, engine, `{"urls":["https://www.tiktok.com/@u/video/1"]}`)
	waitForState(t, engine, id, "completed")

	rec := doJSON(t, engine, http.MethodPost, "/api/batches/"+id+"/save", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Paths  []string `json:"paths"`
		Failed int      `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Paths, 1)
	assert.Equal(t, 0, resp.Failed)

	data, err := os.ReadFile(resp.Paths[0])
	require.NoError(t, err)
	assert.Equal(t, "videodata", string(data))
}

func TestBatchNotFound(t *testing.T) {
	engine := setupTestServer(t, &fakeBackend{})
	for _, path := range []string{"/progress", "/results", "/archive", "/texts"} {
		rec := doJSON(t, engine, http.MethodGet, "/api/batches/nope"+path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	rec := doJSON(t, engine, http.MethodPost, "/api/batches/nope/cancel", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTranscribeImage(t *testing.T) {
	engine := setupTestServer(t, &fakeBackend{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "note.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("pngdata"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe/image", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "read from note.png")
}

func TestTranscribeVideoOnDemand(t *testing.T) {
	engine := setupTestServer(t, &fakeBackend{})

	rec := doJSON(t, engine, http.MethodPost, "/api/transcribe/video", `{"url":"https://www.youtube.com/watch?v=a"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "spoken words")

	rec = doJSON(t, engine, http.MethodPost, "/api/transcribe/video", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranscribeBatch(t *testing.T) {
	engine := setupTestServer(t, &fakeBackend{})

	id := createBatch(t, engine, `{"urls":["https://www.youtube.com/watch?v=a"],"mode":"transcribe"}`)
	waitForState(t, engine, id, "completed")

	rec := doJSON(t, engine, http.MethodGet, "/api/batches/"+id+"/texts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "spoken words")
}
