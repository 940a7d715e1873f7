package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

func TestCallUpstream_Timeout(t *testing.T) {
	err := callUpstream(context.Background(), 20*time.Millisecond, "complete", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, domain.ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the deadline cause to be kept, got %v", err)
	}
}

func TestCallUpstream_PassesOtherErrors(t *testing.T) {
	cause := errors.New("connection refused")
	err := callUpstream(context.Background(), time.Second, "embed", func(ctx context.Context) error {
		return cause
	})
	if !errors.Is(err, cause) || errors.Is(err, domain.ErrUpstreamTimeout) {
		t.Errorf("expected the cause unchanged, got %v", err)
	}
	if err := callUpstream(context.Background(), 0, "embed", func(ctx context.Context) error { return nil }); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	timeout := callUpstream(context.Background(), time.Nanosecond, "query", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"timeout kept", timeout, domain.ErrUpstreamTimeout},
		{"dimension kept", domain.ErrDimensionMismatch, domain.ErrDimensionMismatch},
		{"plain tagged", errors.New("boom"), domain.ErrStoreFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(domain.ErrStoreFailure, tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
	if classify(domain.ErrStoreFailure, nil) != nil {
		t.Error("classify(nil) should be nil")
	}
}
