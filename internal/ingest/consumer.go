package ingest

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/good-yellow-bee/emberwatch/internal/cache"
	"github.com/good-yellow-bee/emberwatch/internal/metrics"
	"github.com/good-yellow-bee/emberwatch/internal/models"
	"github.com/good-yellow-bee/emberwatch/internal/storage"
)

// popTimeout bounds each blocking queue read so the consumer notices
// context cancellation.
const popTimeout = 5 * time.Second

// Consumer drains the ingest queue into the log store and the recent-log
// cache. Multiple consumers may run concurrently; the cache must then use
// the push/trim variant.
type Consumer struct {
	logs     storage.LogStore
	recent   *cache.RecentLogs
	rdb      redis.Cmdable
	queueKey string
}

// NewConsumer creates an ingest queue consumer.
func NewConsumer(logs storage.LogStore, recent *cache.RecentLogs, rdb redis.Cmdable, queueKey string) *Consumer {
	if queueKey == "" {
		queueKey = DefaultQueueKey
	}
	return &Consumer{logs: logs, recent: recent, rdb: rdb, queueKey: queueKey}
}

// Run blocks until the context is cancelled, popping and indexing queued
// events. A malformed or failing payload is logged and skipped; it never
// stops the consumer.
func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		res, err := c.rdb.BRPop(ctx, popTimeout, c.queueKey).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("ingest consumer: pop: %v", err)
			time.Sleep(time.Second)
			continue
		}

		// BRPop returns [key, value].
		if len(res) != 2 {
			continue
		}
		c.handle(ctx, res[1])

		if depth, err := c.rdb.LLen(ctx, c.queueKey).Result(); err == nil {
			metrics.IngestQueueDepth.Set(float64(depth))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, payload string) {
	event := &models.LogEvent{}
	if err := json.Unmarshal([]byte(payload), event); err != nil {
		metrics.IngestedEventsTotal.WithLabelValues("consumer", "malformed").Inc()
		log.Printf("ingest consumer: malformed payload: %v", err)
		return
	}

	if err := c.logs.Insert(ctx, []*models.LogEvent{event}); err != nil {
		metrics.IngestedEventsTotal.WithLabelValues("consumer", "error").Inc()
		log.Printf("ingest consumer: index event: %v", err)
		return
	}

	if err := c.recent.Add(ctx, event); err != nil {
		metrics.IngestedEventsTotal.WithLabelValues("consumer", "cache_error").Inc()
		log.Printf("ingest consumer: cache event: %v", err)
		return
	}

	metrics.IngestedEventsTotal.WithLabelValues("consumer", "indexed").Inc()
}
