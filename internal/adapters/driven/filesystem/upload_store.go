package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.UploadStore = (*UploadStore)(nil)

// UploadStore keeps uploads as plain files in one directory.
type UploadStore struct {
	dir string
}

// NewUploadStore creates the directory if needed.
func NewUploadStore(dir string) (*UploadStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: upload directory is required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &UploadStore{dir: dir}, nil
}

// Dir returns the upload directory.
func (s *UploadStore) Dir() string {
	return s.dir
}

// SanitizeFilename reduces name to its base name.
// Empty and dot names are rejected with domain.ErrInvalidInput.
func SanitizeFilename(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "" || base == "." || base == ".." || base == "/" {
		return "", fmt.Errorf("%w: invalid filename %q", domain.ErrInvalidInput, name)
	}
	return base, nil
}

// Save writes to a temp file first and renames it into place.
func (s *UploadStore) Save(ctx context.Context, filename string, r io.Reader) (*domain.UploadInfo, error) {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write upload %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close upload %s: %w", name, err)
	}

	dest := filepath.Join(s.dir, name)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return nil, fmt.Errorf("store upload %s: %w", name, err)
	}

	return stat(dest)
}

func (s *UploadStore) Path(ctx context.Context, filename string) (string, error) {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	p := filepath.Join(s.dir, name)
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", domain.ErrNotFound, name)
	} else if err != nil {
		return "", fmt.Errorf("stat upload %s: %w", name, err)
	}
	return p, nil
}

// List skips directories and in-progress temp files.
func (s *UploadStore) List(ctx context.Context) ([]*domain.UploadInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}

	infos := make([]*domain.UploadInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".upload-") {
			continue
		}
		info, err := stat(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Filename < infos[j].Filename })
	return infos, nil
}

func (s *UploadStore) Remove(ctx context.Context, filename string) error {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrNotFound
	}
	return err
}

func stat(path string) (*domain.UploadInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &domain.UploadInfo{
		Filename: fi.Name(),
		Size:     fi.Size(),
		Modified: fi.ModTime(),
	}, nil
}
