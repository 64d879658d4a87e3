// Package reminder schedules delayed follow-up tasks for assignments and
// runs them when they come due.
package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TypeReminderCheck is the only task type the bot schedules.
const TypeReminderCheck = "reminder_check"

// DefaultKey is the sorted set holding pending tasks.
const DefaultKey = "bot:reminders"

// Task is a delayed job. ID is assigned on scheduling.
type Task struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	AssignmentID   string `json:"assignmentId"`
	CongregationID string `json:"congregationId"`
}

// Scheduler enqueues a task to run after delay.
type Scheduler interface {
	Schedule(ctx context.Context, task Task, delay time.Duration) error
}

// Delay converts the configured reminder days into a queue delay.
func Delay(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

// RedisQueue keeps tasks in a sorted set scored by due time in unix
// milliseconds.
type RedisQueue struct {
	client redis.Cmdable
	key    string
	now    func() time.Time
}

// NewRedisQueue returns a queue on client. An empty key selects DefaultKey;
// a nil now uses time.Now.
func NewRedisQueue(client redis.Cmdable, key string, now func() time.Time) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	if now == nil {
		now = time.Now
	}
	return &RedisQueue{client: client, key: key, now: now}
}

// Schedule adds task to run delay from now.
func (q *RedisQueue) Schedule(ctx context.Context, task Task, delay time.Duration) error {
	if task.Type == "" {
		return fmt.Errorf("reminder: task type is required")
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("reminder: encode task: %w", err)
	}
	due := q.now().Add(delay).UnixMilli()
	if err := q.client.ZAdd(ctx, q.key, redis.Z{Score: float64(due), Member: string(data)}).Err(); err != nil {
		return fmt.Errorf("reminder: schedule %s: %w", task.ID, err)
	}
	return nil
}

// Due removes and returns up to limit tasks whose due time has passed. A
// task is returned only to the caller whose ZREM removed it, so concurrent
// pollers never run the same task twice. Undecodable entries are dropped.
func (q *RedisQueue) Due(ctx context.Context, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 50
	}
	members, err := q.client.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(q.now().UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("reminder: read due tasks: %w", err)
	}

	var tasks []Task
	for _, m := range members {
		removed, err := q.client.ZRem(ctx, q.key, m).Result()
		if err != nil {
			return tasks, fmt.Errorf("reminder: claim task: %w", err)
		}
		if removed == 0 {
			continue
		}
		var t Task
		if err := json.Unmarshal([]byte(m), &t); err != nil {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Pending returns the number of tasks not yet run.
func (q *RedisQueue) Pending(ctx context.Context) (int64, error) {
	n, err := q.client.ZCard(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("reminder: pending: %w", err)
	}
	return n, nil
}
