package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jithsungh/wisebot/internal/adapters/driven/filesystem"
	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driving"
	"github.com/jithsungh/wisebot/internal/extractors"
)

func newTestDocuments(t *testing.T, env *testEnv) driving.DocumentService {
	t.Helper()
	uploads, err := filesystem.NewUploadStore(t.TempDir())
	if err != nil {
		t.Fatalf("upload store: %v", err)
	}
	return NewDocumentService(uploads, extractors.DefaultRegistry(), env.ingestion, nil)
}

func TestDocumentService_UploadAndProcess(t *testing.T) {
	env := newTestEnv(t)
	docs := newTestDocuments(t, env)
	ctx := context.Background()

	info, err := docs.Upload(ctx, "../../etc/manual.txt", strings.NewReader(manualText))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if info.Filename != "manual.txt" {
		t.Errorf("expected sanitized filename, got %q", info.Filename)
	}
	if info.Size != int64(len(manualText)) {
		t.Errorf("expected size %d, got %d", len(manualText), info.Size)
	}

	result, err := docs.Process(ctx, "manual.txt")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.ChunksCreated != 1 {
		t.Errorf("expected 1 chunk, got %d", result.ChunksCreated)
	}

	// Processing appends.
	if _, err := docs.Process(ctx, "manual.txt"); err != nil {
		t.Fatalf("process again: %v", err)
	}
	if n := env.count(t); n != 2 {
		t.Errorf("expected 2 records, got %d", n)
	}

	list, err := docs.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Filename != "manual.txt" {
		t.Errorf("unexpected upload list %+v", list)
	}
}

func TestDocumentService_UploadRejectsDotNames(t *testing.T) {
	env := newTestEnv(t)
	docs := newTestDocuments(t, env)

	for _, name := range []string{"", ".", ".."} {
		_, err := docs.Upload(context.Background(), name, strings.NewReader("x"))
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Upload(%q): expected ErrInvalidInput, got %v", name, err)
		}
	}
}

func TestDocumentService_ProcessMissingFile(t *testing.T) {
	env := newTestEnv(t)
	docs := newTestDocuments(t, env)

	_, err := docs.Process(context.Background(), "missing.txt")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDocumentService_ProcessAsync(t *testing.T) {
	env := newTestEnv(t)
	docs := newTestDocuments(t, env)
	ctx := context.Background()

	if _, err := docs.Upload(ctx, "guide.md", strings.NewReader(manualText)); err != nil {
		t.Fatalf("upload: %v", err)
	}

	job, err := docs.ProcessAsync(ctx, "guide.md")
	if err != nil {
		t.Fatalf("process async: %v", err)
	}
	if job.Status != domain.JobStatusUploaded || job.Filename != "guide.md" {
		t.Errorf("unexpected job %+v", job)
	}

	id, _ := env.queue.Dequeue(ctx, time.Second)
	if id != job.ID {
		t.Fatalf("expected queued job %s, got %q", job.ID, id)
	}
	if err := env.ingestion.ProcessJob(ctx, id); err != nil {
		t.Fatalf("process job: %v", err)
	}
	if n := env.count(t); n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}
}

func TestDocumentService_ProcessAsyncUnsupported(t *testing.T) {
	env := newTestEnv(t)
	docs := newTestDocuments(t, env)
	ctx := context.Background()

	if _, err := docs.Upload(ctx, "image.png", strings.NewReader("png")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	_, err := docs.ProcessAsync(ctx, "image.png")
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDocumentService_ProcessTextAndFeed(t *testing.T) {
	env := newTestEnv(t)
	docs := newTestDocuments(t, env)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := docs.ProcessText(ctx, manualText, ""); err != nil {
			t.Fatalf("process text: %v", err)
		}
	}
	if n := env.count(t); n != 3 {
		t.Fatalf("expected 3 records, got %d", n)
	}

	result, err := docs.Feed(ctx, "Only this remains.")
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if n := env.count(t); n != result.ChunksCreated {
		t.Errorf("feed should replace the collection: %d records, %d chunks", n, result.ChunksCreated)
	}

	if _, err := docs.Feed(ctx, "  "); !errors.Is(err, domain.ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
}
