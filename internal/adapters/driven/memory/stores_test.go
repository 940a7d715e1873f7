package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jithsungh/wisebot/internal/core/domain"
)

func TestSessionStore_RoundTrip(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()

	if _, err := s.Get(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	session := domain.NewUserSession("u1")
	session.Append(domain.NewConversationTurn("q", "a"), 10)
	if err := s.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Mutating the caller's copy must not leak into the store
	session.Append(domain.NewConversationTurn("q2", "a2"), 10)

	got, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.History) != 1 {
		t.Errorf("expected 1 turn, got %d", len(got.History))
	}

	ids, _ := s.ListUserIDs(ctx)
	if len(ids) != 1 || ids[0] != "u1" {
		t.Errorf("unexpected ids %v", ids)
	}

	_ = s.Delete(ctx, "u1")
	if _, err := s.Get(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestJobStore_ListNewestFirst(t *testing.T) {
	s := NewJobStore()
	ctx := context.Background()

	older := domain.NewProcessingJob("a.txt", "c", domain.IngestModeAppend)
	older.CreatedAt = time.Now().Add(-time.Minute)
	newer := domain.NewProcessingJob("b.txt", "c", domain.IngestModeAppend)
	_ = s.Save(ctx, older)
	_ = s.Save(ctx, newer)

	jobs, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != newer.ID {
		t.Errorf("expected newest first, got %+v", jobs)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestJobQueue_EnqueueDequeueAck(t *testing.T) {
	q := NewJobQueue(4)
	ctx := context.Background()

	if err := q.Enqueue(ctx, "job-1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	id, err := q.Dequeue(ctx, time.Second)
	if err != nil || id != "job-1" {
		t.Fatalf("Dequeue = %q, %v", id, err)
	}

	stats, _ := q.Stats(ctx)
	if stats.InFlightCount != 1 {
		t.Errorf("expected 1 in flight, got %d", stats.InFlightCount)
	}
	_ = q.Ack(ctx, id)
	stats, _ = q.Stats(ctx)
	if stats.InFlightCount != 0 || stats.PendingCount != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestJobQueue_DequeueTimeout(t *testing.T) {
	q := NewJobQueue(1)
	id, err := q.Dequeue(context.Background(), 10*time.Millisecond)
	if err != nil || id != "" {
		t.Errorf("expected empty result on timeout, got %q, %v", id, err)
	}
}

func TestJobQueue_Close(t *testing.T) {
	q := NewJobQueue(1)
	_ = q.Close()
	_ = q.Close()

	if err := q.Enqueue(context.Background(), "x"); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}
	if err := q.Ping(context.Background()); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed from Ping, got %v", err)
	}
}

func TestLock_AcquireReleaseExtend(t *testing.T) {
	l := NewLock()
	ctx := context.Background()

	ok, _ := l.Acquire(ctx, "ingest:manuals", time.Minute)
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}
	ok, _ = l.Acquire(ctx, "ingest:manuals", time.Minute)
	if ok {
		t.Fatal("expected second acquire to fail")
	}
	if err := l.Extend(ctx, "ingest:manuals", time.Minute); err != nil {
		t.Errorf("Extend: %v", err)
	}
	_ = l.Release(ctx, "ingest:manuals")
	if err := l.Extend(ctx, "ingest:manuals", time.Minute); !errors.Is(err, domain.ErrLockNotHeld) {
		t.Errorf("expected ErrLockNotHeld, got %v", err)
	}
	ok, _ = l.Acquire(ctx, "ingest:manuals", time.Millisecond)
	if !ok {
		t.Fatal("expected acquire after release")
	}
	time.Sleep(5 * time.Millisecond)
	ok, _ = l.Acquire(ctx, "ingest:manuals", time.Minute)
	if !ok {
		t.Error("expected acquire after expiry")
	}
}

func TestConnectionStore_ReplaceAndOwnedRemove(t *testing.T) {
	s := NewConnectionStore()

	first := domain.ConnectionRecord{ConnectionID: "c1", UserID: "u1", ConnectedAt: time.Now()}
	if prev := s.Put(first); prev != nil {
		t.Fatalf("expected no previous record, got %+v", prev)
	}

	second := domain.ConnectionRecord{ConnectionID: "c2", UserID: "u1", ConnectedAt: time.Now()}
	prev := s.Put(second)
	if prev == nil || prev.ConnectionID != "c1" {
		t.Fatalf("expected c1 to be replaced, got %+v", prev)
	}

	// The stale connection must not remove its successor
	if s.Remove("u1", "c1") {
		t.Error("stale connection removed the live record")
	}
	s.Increment("u1", "c1")
	s.Increment("u1", "c2")

	list := s.List()
	if len(list) != 1 || list[0].MessageCount != 1 {
		t.Errorf("unexpected records %+v", list)
	}

	if !s.Remove("u1", "c2") {
		t.Error("expected owner to remove its record")
	}
	if s.Count() != 0 {
		t.Errorf("expected empty store, got %d", s.Count())
	}
}
