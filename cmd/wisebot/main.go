package main

// @title           WiseBot API
// @version         1.0
// @description     Retrieval-augmented support assistant. Upload manuals, then chat over HTTP or websocket.

// @host      localhost:8000
// @BasePath  /
// @schemes   http https

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jithsungh/wisebot/internal/config"
	"github.com/jithsungh/wisebot/internal/watcher"
	"github.com/jithsungh/wisebot/internal/worker"
)

var version = "dev"

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Run mode from RUN_MODE or the first argument; "feed" is a one-shot command
	mode := cfg.App.RunMode
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	logger := newLogger(os.Stderr, cfg.App)
	slog.SetDefault(logger)

	log.Printf("%s %s starting in %s mode", cfg.App.Name, version, mode)

	// Setup context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := connectBackends(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect backends: %v", err)
	}
	defer b.Close()

	a, err := newApp(ctx, cfg, b, logger)
	if err != nil {
		log.Fatalf("Failed to assemble services: %v", err)
	}

	log.Printf("Runtime config: knowledge=%s sessions=%s queue=%s embedding=%t llm=%t",
		b.runtimeConfig.KnowledgeBackend,
		b.runtimeConfig.SessionBackend,
		b.runtimeConfig.QueueBackend,
		b.runtimeConfig.EmbeddingAvailable(),
		b.runtimeConfig.LLMAvailable())

	switch mode {
	case "feed":
		if len(os.Args) < 3 {
			log.Fatalf("Usage: wisebot feed <path|->")
		}
		result, err := a.feed(ctx, os.Args[2], os.Stdin)
		if err != nil {
			log.Fatalf("Feed failed: %v", err)
		}
		fmt.Printf("Knowledge base replaced with %d chunks (%d characters)\n", result.ChunksCreated, result.TextLength)

	case "api":
		if b.runtimeConfig.QueueBackend == "memory" {
			log.Println("Warning: in-process job queue; async uploads are only processed by this process's worker")
		}
		runAll(ctx, a, false)

	case "worker":
		if b.runtimeConfig.QueueBackend == "memory" {
			log.Println("Warning: in-process job queue; a standalone worker will never receive jobs")
		}
		runWorker(ctx, a)

	case "all":
		runAll(ctx, a, true)

	default:
		log.Fatalf("Unknown mode: %s (use: api, worker, all, or feed)", mode)
	}
}

// runAll serves the API and, when withWorker is set, processes the job queue
// in the same process. A memory queue with api mode still gets a worker since
// nothing else could drain it.
func runAll(ctx context.Context, a *app, withWorker bool) {
	var wg sync.WaitGroup
	if withWorker || a.backends.runtimeConfig.QueueBackend == "memory" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runWorker(ctx, a)
		}()
	}

	if a.cfg.Uploads.Watch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runWatcher(ctx, a)
		}()
	}

	server := a.httpServer()
	log.Printf("API server starting on %s", server.Addr())
	if err := server.Start(ctx); err != nil {
		log.Printf("Server error: %v", err)
	}
	wg.Wait()
}

// runWorker processes async ingestion jobs until ctx is cancelled.
func runWorker(ctx context.Context, a *app) {
	log.Println("Starting worker...")

	w := worker.NewWorker(worker.WorkerConfig{
		Queue:          a.backends.queue,
		Processor:      a.ingestion,
		Logger:         a.logger,
		Concurrency:    a.cfg.Worker.Concurrency,
		DequeueTimeout: a.cfg.Worker.DequeueTimeout,
	})

	if err := w.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}
	log.Printf("Worker started with %d processors", a.cfg.Worker.Concurrency)

	// Wait for context cancellation
	<-ctx.Done()

	// Graceful shutdown
	log.Println("Stopping worker...")
	w.Stop()
	log.Println("Worker stopped")
}

// runWatcher submits files dropped into the upload directory.
func runWatcher(ctx context.Context, a *app) {
	wt, err := watcher.New(watcher.Config{
		Dir:       a.cfg.Uploads.Dir,
		Submitter: a.ingestion,
		Supports:  a.extractors.Supports,
		Logger:    a.logger,
	})
	if err != nil {
		log.Printf("Upload watcher disabled: %v", err)
		return
	}
	log.Printf("Watching %s for new documents", a.cfg.Uploads.Dir)
	if err := wt.Run(ctx); err != nil {
		log.Printf("Upload watcher stopped: %v", err)
	}
}
