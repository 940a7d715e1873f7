// Package extractors turns uploaded files into plain text.
package extractors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry implements ExtractorRegistry with priority-based selection.
// When multiple extractors claim an extension, the highest priority one is used.
type Registry struct {
	mu         sync.RWMutex
	extractors []driven.TextExtractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make([]driven.TextExtractor, 0),
	}
}

// DefaultRegistry creates a registry with the built-in extractors.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&PlaintextExtractor{})
	r.Register(&PDFExtractor{})
	r.Register(&DOCXExtractor{})
	return r
}

// Register registers an extractor.
func (r *Registry) Register(extractor driven.TextExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.extractors = append(r.extractors, extractor)
}

// Get returns the best extractor for path, or nil.
func (r *Registry) Get(path string) driven.TextExtractor {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best driven.TextExtractor
	for _, e := range r.extractors {
		if !handles(e, ext) {
			continue
		}
		if best == nil || e.Priority() > best.Priority() {
			best = e
		}
	}
	return best
}

// Supports reports whether some extractor handles path.
func (r *Registry) Supports(path string) bool {
	return r.Get(path) != nil
}

// Extract dispatches on the file extension.
func (r *Registry) Extract(ctx context.Context, path string) (string, error) {
	e := r.Get(path)
	if e == nil {
		return "", fmt.Errorf("%s: %w", filepath.Ext(path), domain.ErrUnsupportedFormat)
	}
	if _, err := os.Stat(path); err != nil {
		return "", statError(path, err)
	}
	return e.Extract(ctx, path)
}

// List returns all registered extensions.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]struct{})
	for _, e := range r.extractors {
		for _, ext := range e.Extensions() {
			set[ext] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for ext := range set {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func handles(e driven.TextExtractor, ext string) bool {
	for _, candidate := range e.Extensions() {
		if strings.EqualFold(candidate, ext) {
			return true
		}
	}
	return false
}

func statError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", filepath.Base(path), domain.ErrNotFound)
	}
	return fmt.Errorf("stat %s: %w", filepath.Base(path), err)
}

// PlaintextExtractor reads text and markdown files as-is.
type PlaintextExtractor struct{}

func (e *PlaintextExtractor) Extract(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", statError(path, err)
	}
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.TrimSpace(content), nil
}

func (e *PlaintextExtractor) Extensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

func (e *PlaintextExtractor) Priority() int {
	return 1
}
