package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driving"
)

// feed replaces the knowledge base with one document. "-" reads stdin.
func (a *app) feed(ctx context.Context, path string, stdin io.Reader) (*domain.IngestResult, error) {
	var (
		text   string
		source string
	)
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		text, source = string(data), "stdin"
	} else {
		extracted, err := a.extractors.Extract(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", path, err)
		}
		text, source = extracted, path
	}

	return a.ingestion.Ingest(ctx, driving.IngestRequest{
		Text:   text,
		Source: source,
		Mode:   domain.IngestModeReplace,
	})
}
