package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
	"github.com/jithsungh/wisebot/internal/core/ports/driving"
)

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

// defaultTextTitle names text ingested without a title.
const defaultTextTitle = "text_input"

// feedSource is the source recorded for replace ingestion.
const feedSource = "feed"

// documentService implements the DocumentService interface
type documentService struct {
	uploads    driven.UploadStore
	extractors driven.ExtractorRegistry
	ingestion  driving.IngestionService
	logger     *slog.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	uploads driven.UploadStore,
	extractors driven.ExtractorRegistry,
	ingestion driving.IngestionService,
	logger *slog.Logger,
) driving.DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		uploads:    uploads,
		extractors: extractors,
		ingestion:  ingestion,
		logger:     logger.With("component", "documents"),
	}
}

// Upload stores a file, overwriting any upload with the same name
func (s *documentService) Upload(ctx context.Context, filename string, r io.Reader) (*domain.UploadInfo, error) {
	info, err := s.uploads.Save(ctx, filename, r)
	if err != nil {
		return nil, err
	}
	s.logger.Info("file uploaded", "filename", info.Filename, "size", info.Size)
	return info, nil
}

// Process extracts a stored upload and appends it to the knowledge base
func (s *documentService) Process(ctx context.Context, filename string) (*domain.IngestResult, error) {
	path, err := s.uploads.Path(ctx, filename)
	if err != nil {
		return nil, err
	}

	text, err := s.extractors.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}

	return s.ingestion.Ingest(ctx, driving.IngestRequest{
		Text:   text,
		Source: filename,
		Mode:   domain.IngestModeAppend,
	})
}

// ProcessAsync queues a stored upload for a worker
func (s *documentService) ProcessAsync(ctx context.Context, filename string) (*domain.ProcessingJob, error) {
	path, err := s.uploads.Path(ctx, filename)
	if err != nil {
		return nil, err
	}
	if !s.extractors.Supports(path) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filename)
	}

	return s.ingestion.Submit(ctx, driving.SubmitRequest{
		Filename: filename,
		Path:     path,
		Mode:     domain.IngestModeAppend,
	})
}

// ProcessText appends raw text; the title is recorded as its source
func (s *documentService) ProcessText(ctx context.Context, text, title string) (*domain.IngestResult, error) {
	if title == "" {
		title = defaultTextTitle
	}
	return s.ingestion.Ingest(ctx, driving.IngestRequest{
		Text:   text,
		Source: title,
		Mode:   domain.IngestModeAppend,
	})
}

// Feed replaces the knowledge base with text
func (s *documentService) Feed(ctx context.Context, text string) (*domain.IngestResult, error) {
	return s.ingestion.Ingest(ctx, driving.IngestRequest{
		Text:   text,
		Source: feedSource,
		Mode:   domain.IngestModeReplace,
	})
}

// List returns stored uploads
func (s *documentService) List(ctx context.Context) ([]*domain.UploadInfo, error) {
	return s.uploads.List(ctx)
}
