package httpapi

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"savedown/internal/adapters/bridge"
	"savedown/internal/adapters/localstorage"
	"savedown/internal/config"
	"savedown/internal/metrics"
	"savedown/internal/service"
)

type Server struct {
	engine *gin.Engine
	cfg    config.Config
}

// NewServer wires the full acquisition pipeline behind HTTP handlers.
func NewServer(cfg config.Config, logger *log.Logger) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	backend := bridge.NewClient(bridge.Options{
		BaseURL:        cfg.APIBaseURL,
		APIKey:         cfg.APIKey,
		RequestTimeout: cfg.RequestTimeout,
		VideoFormat:    cfg.VideoFormat,
		AudioFormat:    cfg.AudioFormat,
		Quality:        cfg.Quality,
	}, logger)

	dispatcher := service.NewDispatcher(backend, logger)
	scheduler := service.NewScheduler(dispatcher, cfg.MaxParallel, m, logger)
	archiver := service.NewArchiver(backend, cfg.ArchiveRate, logger)

	store := localstorage.NewLocalStorage(cfg.DataDir)
	if err := store.Init(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(logger))
	engine.Use(CORS())

	api := NewAPI(cfg, scheduler, archiver, backend, store, logger)
	registerRoutes(engine, api)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return &Server{engine: engine, cfg: cfg}, nil
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.cfg.Port)
	return s.engine.Run(addr)
}
