package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/jobsweep/internal/domain"
)

const (
	// DefaultResultTTL is how long task results stay retrievable.
	DefaultResultTTL = 24 * time.Hour

	defaultResultPrefix = "jobsweep:task"
)

// RedisResultStore keeps task results as JSON values with a TTL.
type RedisResultStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisResultStore creates a store. A zero ttl uses DefaultResultTTL.
func NewRedisResultStore(client *redis.Client, prefix string, ttl time.Duration) *RedisResultStore {
	if prefix == "" {
		prefix = defaultResultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &RedisResultStore{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (s *RedisResultStore) key(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, id)
}

// MarkPending records a freshly submitted task.
func (s *RedisResultStore) MarkPending(ctx context.Context, id, owner string) error {
	return s.Save(ctx, domain.TaskResult{TaskID: id, Owner: owner, Status: domain.TaskPending, Listings: []domain.Listing{}})
}

// MarkRunning records that a worker picked the task up.
func (s *RedisResultStore) MarkRunning(ctx context.Context, id, owner string) error {
	now := s.now()
	return s.Save(ctx, domain.TaskResult{
		TaskID:    id,
		Owner:     owner,
		Status:    domain.TaskRunning,
		Listings:  []domain.Listing{},
		StartedAt: &now,
	})
}

// Save overwrites the stored result and refreshes its TTL.
func (s *RedisResultStore) Save(ctx context.Context, result domain.TaskResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal task result: %w", err)
	}
	if err = s.client.Set(ctx, s.key(result.TaskID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store task result %s: %w", result.TaskID, err)
	}
	return nil
}

// Get returns ErrTaskNotFound for unknown or expired ids.
func (s *RedisResultStore) Get(ctx context.Context, id string) (domain.TaskResult, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.TaskResult{}, ErrTaskNotFound
	}
	if err != nil {
		return domain.TaskResult{}, fmt.Errorf("failed to load task result %s: %w", id, err)
	}
	var result domain.TaskResult
	if err = json.Unmarshal(data, &result); err != nil {
		return domain.TaskResult{}, fmt.Errorf("failed to unmarshal task result %s: %w", id, err)
	}
	return result, nil
}
