package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/logger"
)

const (
	// TaskDataField is the stream message field holding the serialized task.
	TaskDataField = "task"
	// EnqueuedAtField is the stream message field holding the enqueue time.
	EnqueuedAtField = "enqueued_at"

	defaultStream       = "jobsweep:tasks"
	defaultGroup        = "workers"
	defaultBlockTimeout = 5 * time.Second
	defaultMaxStreamLen = 10000

	// Tasks can legitimately run for the full poll budget, so entries are
	// only stolen from other consumers well after that.
	defaultClaimMinIdle = 30 * time.Minute

	maxPendingCheck = 100
)

// StreamConfig configures a StreamQueue.
type StreamConfig struct {
	Stream   string `env:"QUEUE_STREAM"   yaml:"stream"`
	Group    string `env:"QUEUE_GROUP"    yaml:"group"`
	Consumer string `env:"QUEUE_CONSUMER" yaml:"consumer"`
	// BlockTimeout bounds one XREADGROUP call.
	BlockTimeout time.Duration `yaml:"block_timeout"`
	// ClaimMinIdle is how long another consumer's entry must sit unacked
	// before it is reclaimed.
	ClaimMinIdle time.Duration `yaml:"claim_min_idle"`
	MaxStreamLen int64         `yaml:"max_stream_len"`
}

func (c *StreamConfig) setDefaults() {
	if c.Stream == "" {
		c.Stream = defaultStream
	}
	if c.Group == "" {
		c.Group = defaultGroup
	}
	if c.BlockTimeout <= 0 {
		c.BlockTimeout = defaultBlockTimeout
	}
	if c.ClaimMinIdle <= 0 {
		c.ClaimMinIdle = defaultClaimMinIdle
	}
	if c.MaxStreamLen <= 0 {
		c.MaxStreamLen = defaultMaxStreamLen
	}
}

// StreamQueue is a Redis Streams queue read through a consumer group.
type StreamQueue struct {
	client *redis.Client
	cfg    StreamConfig
	log    logger.Logger

	mu        sync.Mutex
	recovered bool
	backlog   []redis.XMessage
	closed    bool
}

// NewStreamQueue creates the queue. Initialize must be called before Dequeue.
func NewStreamQueue(client *redis.Client, cfg StreamConfig, log logger.Logger) (*StreamQueue, error) {
	if cfg.Consumer == "" {
		return nil, errors.New("consumer ID is required")
	}
	cfg.setDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	return &StreamQueue{
		client: client,
		cfg:    cfg,
		log:    log.With(logger.String("component", "taskqueue"), logger.String("stream", cfg.Stream)),
	}, nil
}

// Initialize creates the consumer group if it does not exist.
func (q *StreamQueue) Initialize(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.cfg.Stream, q.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Enqueue appends task to the stream.
func (q *StreamQueue) Enqueue(ctx context.Context, task domain.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to serialize task: %w", err)
	}
	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.cfg.Stream,
		MaxLen: q.cfg.MaxStreamLen,
		Approx: true,
		Values: map[string]any{
			TaskDataField:   string(data),
			EnqueuedAtField: task.EnqueuedAt.UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue task %s: %w", task.ID, err)
	}
	return nil
}

// Dequeue returns the next task. On the first call it redelivers entries this
// consumer read but never acknowledged before a restart, then entries
// abandoned by other consumers, then new entries.
func (q *StreamQueue) Dequeue(ctx context.Context) (domain.Task, Ack, error) {
	for {
		msg, err := q.next(ctx)
		if err != nil {
			return domain.Task{}, nil, err
		}
		if msg == nil {
			continue
		}

		task, err := parseMessage(*msg)
		if err != nil {
			q.log.Warn("Dropping malformed task message",
				logger.String("message_id", msg.ID),
				logger.Error(err),
			)
			if ackErr := q.ack(ctx, msg.ID); ackErr != nil {
				q.log.Warn("Failed to acknowledge malformed message", logger.Error(ackErr))
			}
			continue
		}

		id := msg.ID
		return task, func(ctx context.Context) error { return q.ack(ctx, id) }, nil
	}
}

// next returns one message, or nil after a read that timed out.
func (q *StreamQueue) next(ctx context.Context) (*redis.XMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}
	if !q.recovered {
		q.recovered = true
		q.backlog = append(q.backlog, q.recoverOwn(ctx)...)
	}
	if len(q.backlog) == 0 {
		q.backlog = append(q.backlog, q.reclaimAbandoned(ctx)...)
	}
	if len(q.backlog) > 0 {
		msg := q.backlog[0]
		q.backlog = q.backlog[1:]
		q.mu.Unlock()
		return &msg, nil
	}
	q.mu.Unlock()

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.cfg.Group,
		Consumer: q.cfg.Consumer,
		Streams:  []string{q.cfg.Stream, ">"},
		Count:    1,
		Block:    q.cfg.BlockTimeout,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to read from stream %s: %w", q.cfg.Stream, err)
	}
	for _, s := range streams {
		if len(s.Messages) > 0 {
			return &s.Messages[0], nil
		}
	}
	return nil, nil
}

// recoverOwn reads the pending history of this consumer.
func (q *StreamQueue) recoverOwn(ctx context.Context) []redis.XMessage {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.cfg.Group,
		Consumer: q.cfg.Consumer,
		Streams:  []string{q.cfg.Stream, "0"},
		Count:    maxPendingCheck,
		Block:    -1,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			q.log.Warn("Failed to read pending tasks", logger.Error(err))
		}
		return nil
	}

	var out []redis.XMessage
	for _, s := range streams {
		out = append(out, s.Messages...)
	}
	if len(out) > 0 {
		q.log.Info("Recovered unacknowledged tasks", logger.Int("count", len(out)))
	}
	return out
}

// reclaimAbandoned claims entries other consumers left idle past ClaimMinIdle.
func (q *StreamQueue) reclaimAbandoned(ctx context.Context) []redis.XMessage {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.cfg.Stream,
		Group:  q.cfg.Group,
		Start:  "-",
		End:    "+",
		Count:  maxPendingCheck,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			q.log.Warn("Failed to list pending tasks", logger.Error(err))
		}
		return nil
	}

	var ids []string
	for _, entry := range pending {
		if entry.Consumer != q.cfg.Consumer && entry.Idle >= q.cfg.ClaimMinIdle {
			ids = append(ids, entry.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   q.cfg.Stream,
		Group:    q.cfg.Group,
		Consumer: q.cfg.Consumer,
		MinIdle:  q.cfg.ClaimMinIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		q.log.Warn("Failed to claim abandoned tasks", logger.Error(err))
		return nil
	}
	if len(claimed) > 0 {
		q.log.Info("Claimed abandoned tasks", logger.Int("count", len(claimed)))
	}
	return claimed
}

func (q *StreamQueue) ack(ctx context.Context, id string) error {
	if err := q.client.XAck(ctx, q.cfg.Stream, q.cfg.Group, id).Err(); err != nil {
		return fmt.Errorf("failed to acknowledge task message %s: %w", id, err)
	}
	return nil
}

// Depth returns the stream length.
func (q *StreamQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.XLen(ctx, q.cfg.Stream).Result()
}

// Close stops further dequeues. The redis client is owned by the caller.
func (q *StreamQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

func parseMessage(msg redis.XMessage) (domain.Task, error) {
	data, ok := msg.Values[TaskDataField].(string)
	if !ok {
		return domain.Task{}, errors.New("missing or invalid task data")
	}
	var task domain.Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return domain.Task{}, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	if task.EnqueuedAt.IsZero() {
		if raw, hasTime := msg.Values[EnqueuedAtField].(string); hasTime {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				task.EnqueuedAt = t
			}
		}
	}
	return task, nil
}
