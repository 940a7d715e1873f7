// Package watcher submits ingestion jobs for files dropped into the uploads
// directory.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driving"
)

// DefaultDebounce is how long a file must stay quiet before it is submitted.
const DefaultDebounce = 500 * time.Millisecond

// Submitter queues asynchronous ingestion.
type Submitter interface {
	Submit(ctx context.Context, req driving.SubmitRequest) (*domain.ProcessingJob, error)
}

// Config holds watcher settings
type Config struct {
	Dir       string
	Submitter Submitter

	// Supports filters paths; usually the extractor registry.
	Supports func(path string) bool

	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher turns create and write events into append ingestion jobs.
// Bursts of writes to one file produce a single job.
type Watcher struct {
	dir       string
	submitter Submitter
	supports  func(string) bool
	debounce  time.Duration
	logger    *slog.Logger

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a watcher on cfg.Dir. Call Run to start delivering jobs.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("%w: watch directory is required", domain.ErrInvalidInput)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	supports := cfg.Supports
	if supports == nil {
		supports = func(string) bool { return true }
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(cfg.Dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", cfg.Dir, err)
	}

	return &Watcher{
		dir:       cfg.Dir,
		submitter: cfg.Submitter,
		supports:  supports,
		debounce:  debounce,
		logger:    logger.With("component", "watcher", "dir", cfg.Dir),
		fsw:       fsw,
		pending:   make(map[string]*time.Timer),
	}, nil
}

// Run delivers events until ctx is cancelled, then releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()
	w.logger.Info("watching uploads")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	name := filepath.Base(event.Name)
	// Hidden names cover the upload store's in-progress temp files.
	if strings.HasPrefix(name, ".") || !w.supports(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[event.Name]; ok {
		t.Reset(w.debounce)
		return
	}
	path := event.Name
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.submit(ctx, path)
	})
}

func (w *Watcher) submit(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	job, err := w.submitter.Submit(ctx, driving.SubmitRequest{
		Filename: filepath.Base(path),
		Path:     path,
		Mode:     domain.IngestModeAppend,
	})
	if err != nil {
		w.logger.Error("failed to submit file", "path", path, "error", err)
		return
	}
	w.logger.Info("file submitted", "path", path, "job_id", job.ID)
}

func (w *Watcher) close() {
	w.mu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	if err := w.fsw.Close(); err != nil {
		w.logger.Warn("failed to close watcher", "error", err)
	}
}
