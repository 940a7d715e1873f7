package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driving"
)

type recordingSubmitter struct {
	mu   sync.Mutex
	reqs []driving.SubmitRequest
}

func (r *recordingSubmitter) Submit(ctx context.Context, req driving.SubmitRequest) (*domain.ProcessingJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	return domain.NewProcessingJob(req.Filename, "", req.Mode), nil
}

func (r *recordingSubmitter) requests() []driving.SubmitRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]driving.SubmitRequest, len(r.reqs))
	copy(out, r.reqs)
	return out
}

func startWatcher(t *testing.T, dir string, sub Submitter) {
	t.Helper()
	w, err := New(Config{
		Dir:       dir,
		Submitter: sub,
		Supports:  func(p string) bool { return strings.HasSuffix(p, ".txt") },
		Debounce:  50 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestWatcher_SubmitsSupportedFilesOnce(t *testing.T) {
	dir := t.TempDir()
	sub := &recordingSubmitter{}
	startWatcher(t, dir, sub)

	path := filepath.Join(dir, "notes.txt")
	f, err := os.Create(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := f.WriteString("line\n")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".upload-123"), []byte("tmp"), 0o644))

	require.Eventually(t, func() bool { return len(sub.requests()) == 1 }, 2*time.Second, 10*time.Millisecond)

	// Give stray events time to show up.
	time.Sleep(150 * time.Millisecond)
	reqs := sub.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "notes.txt", reqs[0].Filename)
	assert.Equal(t, path, reqs[0].Path)
	assert.Equal(t, domain.IngestModeAppend, reqs[0].Mode)
}

func TestNew_RequiresDir(t *testing.T) {
	_, err := New(Config{Submitter: &recordingSubmitter{}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNew_MissingDir(t *testing.T) {
	_, err := New(Config{Dir: filepath.Join(t.TempDir(), "missing"), Submitter: &recordingSubmitter{}})
	assert.Error(t, err)
}
