package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

const (
	jobStream = "wisebot:ingest"
	jobGroup  = "wisebot:workers"

	// msgKeyPrefix maps a job ID to its stream entry for Ack
	msgKeyPrefix = "wisebot:ingest:msg:"

	consumerPrefix = "worker-"

	// claimTimeout is how long a delivered job may go unacknowledged
	// before another worker takes it over.
	claimTimeout = 5 * time.Minute
)

// Verify interface compliance
var _ driven.JobQueue = (*Queue)(nil)

// Queue implements JobQueue using a Redis stream and consumer group.
// Job state itself lives in the JobStore; the stream carries only IDs.
type Queue struct {
	client       redis.UniversalClient
	consumerName string
}

// NewQueue creates a Redis-backed job queue.
// consumerName should be unique per worker process.
func NewQueue(ctx context.Context, client redis.UniversalClient, consumerName string) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerName == "" {
		consumerName = fmt.Sprintf("%s%d", consumerPrefix, time.Now().UnixNano())
	}

	err := client.XGroupCreateMkStream(ctx, jobStream, jobGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return &Queue{client: client, consumerName: consumerName}, nil
}

func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	if jobID == "" {
		return errors.New("job id is required")
	}
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: jobStream,
		Values: map[string]interface{}{"job_id": jobID},
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueue job %s: %w", jobID, err)
	}
	return nil
}

// Dequeue returns the next job ID, preferring jobs abandoned by a dead worker.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	if id := q.claimAbandoned(ctx); id != "" {
		return id, nil
	}

	// A zero Block would wait forever; callers always want a bound.
	if timeout <= 0 {
		timeout = time.Millisecond
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    jobGroup,
		Consumer: q.consumerName,
		Streams:  []string{jobStream, ">"},
		Count:    1,
		Block:    timeout,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("read from stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return "", nil
	}

	return q.take(ctx, streams[0].Messages[0]), nil
}

// take records the stream entry for a delivered job. Malformed entries are
// dropped and yield "".
func (q *Queue) take(ctx context.Context, msg redis.XMessage) string {
	jobID, ok := msg.Values["job_id"].(string)
	if !ok || jobID == "" {
		q.client.XAck(ctx, jobStream, jobGroup, msg.ID)
		q.client.XDel(ctx, jobStream, msg.ID)
		return ""
	}
	q.client.Set(ctx, msgKeyPrefix+jobID, msg.ID, 24*time.Hour)
	return jobID
}

func (q *Queue) Ack(ctx context.Context, jobID string) error {
	msgID, err := q.client.Get(ctx, msgKeyPrefix+jobID).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get message id: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.XAck(ctx, jobStream, jobGroup, msgID)
	pipe.XDel(ctx, jobStream, msgID)
	pipe.Del(ctx, msgKeyPrefix+jobID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ack job %s: %w", jobID, err)
	}
	return nil
}

func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	length, err := q.client.XLen(ctx, jobStream).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("stream length: %w", err)
	}

	var inFlight int64
	pending, err := q.client.XPending(ctx, jobStream, jobGroup).Result()
	if err == nil {
		inFlight = pending.Count
	} else if !errors.Is(err, redis.Nil) && !isStreamNotExistsError(err) {
		return nil, fmt.Errorf("pending summary: %w", err)
	}

	return &driven.QueueStats{
		PendingCount:  length - inFlight,
		InFlightCount: inFlight,
	}, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close is a no-op; the Redis client is shared.
func (q *Queue) Close() error {
	return nil
}

func (q *Queue) claimAbandoned(ctx context.Context) string {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: jobStream,
		Group:  jobGroup,
		Start:  "-",
		End:    "+",
		Count:  10,
		Idle:   claimTimeout,
	}).Result()
	if err != nil {
		return ""
	}

	for _, p := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   jobStream,
			Group:    jobGroup,
			Consumer: q.consumerName,
			MinIdle:  claimTimeout,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}
		if id := q.take(ctx, claimed[0]); id != "" {
			return id
		}
	}
	return ""
}

func isGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func isStreamNotExistsError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "no such key") ||
		strings.Contains(err.Error(), "requires the key to exist") ||
		strings.Contains(err.Error(), "NOGROUP"))
}
