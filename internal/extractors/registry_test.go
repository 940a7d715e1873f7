package extractors

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

// Mock extractor for testing
type mockExtractor struct {
	name     string
	exts     []string
	priority int
}

func (m *mockExtractor) Extract(ctx context.Context, path string) (string, error) {
	return m.name, nil
}

func (m *mockExtractor) Extensions() []string {
	return m.exts
}

func (m *mockExtractor) Priority() int {
	return m.priority
}

func TestRegistry_PriorityWins(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockExtractor{name: "low", exts: []string{".txt"}, priority: 1})
	r.Register(&mockExtractor{name: "high", exts: []string{".txt"}, priority: 90})

	path := writeFile(t, "a.txt", "ignored")
	got, err := r.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "high" {
		t.Errorf("expected high priority extractor, got %s", got)
	}
}

func TestRegistry_UnsupportedFormat(t *testing.T) {
	r := DefaultRegistry()

	for _, name := range []string{"image.png", "noext", "archive.tar.gz"} {
		_, err := r.Extract(context.Background(), filepath.Join(t.TempDir(), name))
		if !errors.Is(err, domain.ErrUnsupportedFormat) {
			t.Errorf("%s: expected ErrUnsupportedFormat, got %v", name, err)
		}
	}
}

func TestRegistry_NotFound(t *testing.T) {
	r := DefaultRegistry()

	_, err := r.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistry_List(t *testing.T) {
	got := DefaultRegistry().List()
	want := []string{".docx", ".markdown", ".md", ".pdf", ".txt"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestRegistry_SupportsIgnoresCase(t *testing.T) {
	r := DefaultRegistry()
	if !r.Supports("MANUAL.PDF") {
		t.Error("expected upper-case extension to be supported")
	}
	if r.Supports("photo.jpg") {
		t.Error("expected jpg to be unsupported")
	}
}

func TestPlaintextExtractor(t *testing.T) {
	path := writeFile(t, "notes.md", "  # Title\r\nbody  \n")
	got, err := DefaultRegistry().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "# Title\nbody" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestDOCXExtractor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>
<w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph</w:t></w:r></w:p>
</w:body>
</w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	_ = f.Close()

	got, err := DefaultRegistry().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "First paragraph\nSecond paragraph" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestDOCXExtractor_NotAZip(t *testing.T) {
	path := writeFile(t, "broken.docx", "plain text")
	if _, err := DefaultRegistry().Extract(context.Background(), path); err == nil {
		t.Error("expected error for invalid docx")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
