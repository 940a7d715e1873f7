package main

import (
	"context"
	"log/slog"

	"github.com/jithsungh/wisebot/internal/adapters/driven/ai"
	"github.com/jithsungh/wisebot/internal/adapters/driven/filesystem"
	"github.com/jithsungh/wisebot/internal/adapters/driven/memory"
	httpadapter "github.com/jithsungh/wisebot/internal/adapters/driving/http"
	"github.com/jithsungh/wisebot/internal/adapters/driving/websocket"
	"github.com/jithsungh/wisebot/internal/config"
	"github.com/jithsungh/wisebot/internal/core/ports/driving"
	"github.com/jithsungh/wisebot/internal/core/services"
	"github.com/jithsungh/wisebot/internal/extractors"
	"github.com/jithsungh/wisebot/internal/normalisers"
	"github.com/jithsungh/wisebot/internal/postprocessors"
	"github.com/jithsungh/wisebot/internal/runtime"
)

// app is the assembled service graph shared by every run mode.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	backends *backends

	runtime    *runtime.Services
	extractors *extractors.Registry
	ingestion  *services.IngestionService
	memory     *services.MemoryManager
	composer   *services.AnswerComposer
	sessions   *services.SessionManager
	documents  driving.DocumentService
}

// newApp wires services onto the chosen backends. An engine that fails to
// initialize is logged, not fatal: chat reports unavailable until restart.
func newApp(ctx context.Context, cfg *config.Config, b *backends, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, backends: b}

	// Runtime AI services
	a.runtime = runtime.NewServices(b.runtimeConfig)
	if err := a.runtime.Initialize(ctx, ai.NewFactory(), cfg.EmbeddingSettings(), cfg.LLMSettings()); err != nil {
		logger.Warn("chat engine unavailable", "error", err)
	}

	// Ingestion pipeline
	chunkConfig := postprocessors.DefaultChunkConfig()
	chunkConfig.MaxChunkSize = cfg.Knowledge.ChunkSize
	chunkConfig.Overlap = cfg.Knowledge.ChunkOverlap

	a.extractors = extractors.DefaultRegistry()
	a.ingestion = services.NewIngestionService(services.IngestionConfig{
		Services:        a.runtime,
		Store:           b.knowledge,
		Jobs:            b.jobs,
		Queue:           b.queue,
		Extractors:      a.extractors,
		Normaliser:      normalisers.NewTextNormaliser(normalisers.DefaultOptions()),
		Pipeline:        postprocessors.DefaultPipeline(chunkConfig),
		Lock:            b.lock,
		Collection:      cfg.Knowledge.Collection,
		UpstreamTimeout: cfg.Chat.UpstreamTimeout,
		Logger:          logger,
	})

	// Chat path
	retrieval := services.NewRetrievalService(services.RetrievalConfig{
		Services:        a.runtime,
		Store:           b.knowledge,
		Collection:      cfg.Knowledge.Collection,
		K:               cfg.Knowledge.RetrievalK,
		UpstreamTimeout: cfg.Chat.UpstreamTimeout,
		Logger:          logger,
	})
	a.memory = services.NewMemoryManager(services.MemoryConfig{
		Store:  b.sessions,
		Window: cfg.Chat.MemoryWindow,
		Logger: logger,
	})
	a.composer = services.NewAnswerComposer(services.ComposerConfig{
		Services:        a.runtime,
		Retrieval:       retrieval,
		Memory:          a.memory,
		K:               cfg.Knowledge.RetrievalK,
		UpstreamTimeout: cfg.Chat.UpstreamTimeout,
		Logger:          logger,
	})
	a.sessions = services.NewSessionManager(services.SessionConfig{
		Services:    a.runtime,
		Chat:        a.composer,
		Memory:      a.memory,
		Retrieval:   retrieval,
		Connections: memory.NewConnectionStore(),
		ThinkDelay:  cfg.Chat.ThinkDelay,
		Logger:      logger,
	})

	uploads, err := filesystem.NewUploadStore(cfg.Uploads.Dir)
	if err != nil {
		return nil, err
	}
	a.documents = services.NewDocumentService(uploads, a.extractors, a.ingestion, logger)

	return a, nil
}

// httpServer builds the API server around the websocket transport.
func (a *app) httpServer() *httpadapter.Server {
	return httpadapter.NewServer(httpadapter.Config{
		Host:           a.cfg.App.Host,
		Port:           a.cfg.App.Port,
		AppName:        a.cfg.App.Name,
		Version:        version,
		MaxUploadBytes: a.cfg.Uploads.MaxBytes,
		Logger:         a.logger,
	}, httpadapter.Services{
		Documents: a.documents,
		Ingestion: a.ingestion,
		Chat:      a.composer,
		Memory:    a.memory,
		Sessions:  a.sessions,
		WebSocket: websocket.NewHandler(a.sessions, a.logger),
	}, a.backends.pingers)
}
