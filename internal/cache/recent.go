// Package cache provides the Redis-backed bounded cache of recent log
// events, independent of the log store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/good-yellow-bee/emberwatch/internal/models"
)

// recentLogsKey is the fixed logical key holding the recent-event window.
const recentLogsKey = "recent_logs"

// Variant selects how writes maintain the bounded window.
type Variant string

const (
	// VariantReplace reads the whole cached sequence, evicts the oldest
	// entry when full, and writes the sequence back. Not safe for
	// concurrent writers; single-writer ingestion only.
	VariantReplace Variant = "replace"

	// VariantPushTrim pushes to the head of a Redis list and trims it to
	// the cap. Push and trim are atomic store primitives, so this variant
	// tolerates concurrent writers.
	VariantPushTrim Variant = "pushtrim"
)

// ParseVariant converts a string to a Variant, defaulting to pushtrim.
func ParseVariant(s string) Variant {
	if s == string(VariantReplace) {
		return VariantReplace
	}
	return VariantPushTrim
}

// RecentLogs is a bounded, TTL-backed cache of the most recent events,
// newest first.
type RecentLogs struct {
	rdb     redis.Cmdable
	variant Variant
	maxSize int
	ttl     time.Duration
}

// New creates a recent-log cache. maxSize defaults to 10 and ttl to five
// minutes when zero.
func New(rdb redis.Cmdable, variant Variant, maxSize int, ttl time.Duration) *RecentLogs {
	if maxSize <= 0 {
		maxSize = 10
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RecentLogs{rdb: rdb, variant: variant, maxSize: maxSize, ttl: ttl}
}

// Add records a new event in the window and resets the TTL.
func (c *RecentLogs) Add(ctx context.Context, event *models.LogEvent) error {
	if c.variant == VariantReplace {
		return c.addReplace(ctx, event)
	}
	return c.addPushTrim(ctx, event)
}

func (c *RecentLogs) addReplace(ctx context.Context, event *models.LogEvent) error {
	events, err := c.getValue(ctx)
	if err != nil {
		return err
	}

	// Newest first; drop from the tail when full.
	events = append([]*models.LogEvent{event}, events...)
	if len(events) > c.maxSize {
		events = events[:c.maxSize]
	}

	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("marshal recent logs: %w", err)
	}

	if err := c.rdb.Set(ctx, recentLogsKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set recent logs: %w", err)
	}
	return nil
}

func (c *RecentLogs) addPushTrim(ctx context.Context, event *models.LogEvent) error {
	data, err := event.JSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := c.rdb.LPush(ctx, recentLogsKey, data).Err(); err != nil {
		return fmt.Errorf("push recent log: %w", err)
	}
	if err := c.rdb.LTrim(ctx, recentLogsKey, 0, int64(c.maxSize-1)).Err(); err != nil {
		return fmt.Errorf("trim recent logs: %w", err)
	}
	if err := c.rdb.Expire(ctx, recentLogsKey, c.ttl).Err(); err != nil {
		return fmt.Errorf("expire recent logs: %w", err)
	}
	return nil
}

// GetRecent returns the cached window, newest first. An expired or never
// populated key yields a nil slice and no error; callers cannot (and must
// not) distinguish empty from expired.
func (c *RecentLogs) GetRecent(ctx context.Context) ([]*models.LogEvent, error) {
	if c.variant == VariantReplace {
		return c.getValue(ctx)
	}
	return c.getList(ctx)
}

func (c *RecentLogs) getValue(ctx context.Context) ([]*models.LogEvent, error) {
	data, err := c.rdb.Get(ctx, recentLogsKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recent logs: %w", err)
	}

	var events []*models.LogEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("unmarshal recent logs: %w", err)
	}
	return events, nil
}

func (c *RecentLogs) getList(ctx context.Context) ([]*models.LogEvent, error) {
	items, err := c.rdb.LRange(ctx, recentLogsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("range recent logs: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	events := make([]*models.LogEvent, 0, len(items))
	for _, item := range items {
		event := &models.LogEvent{}
		if err := json.Unmarshal([]byte(item), event); err != nil {
			return nil, fmt.Errorf("unmarshal recent log: %w", err)
		}
		events = append(events, event)
	}
	return events, nil
}

// Clear unconditionally evicts the window.
func (c *RecentLogs) Clear(ctx context.Context) error {
	if err := c.rdb.Del(ctx, recentLogsKey).Err(); err != nil {
		return fmt.Errorf("clear recent logs: %w", err)
	}
	return nil
}
