// Package ingest accepts validated log events and routes them into the
// log store and the recent-log cache, either synchronously or through the
// Redis-backed queue drained by Consumer.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/good-yellow-bee/emberwatch/internal/cache"
	"github.com/good-yellow-bee/emberwatch/internal/metrics"
	"github.com/good-yellow-bee/emberwatch/internal/models"
	"github.com/good-yellow-bee/emberwatch/internal/storage"
)

// Mode selects the ingestion pipeline.
type Mode string

const (
	// ModeDirect writes the store and the cache synchronously.
	ModeDirect Mode = "direct"

	// ModeStreaming enqueues events for the async consumer.
	ModeStreaming Mode = "streaming"
)

// DefaultQueueKey is the Redis list holding queued events.
const DefaultQueueKey = "log_ingest_queue"

// ParseMode converts a string to a Mode, defaulting to direct.
func ParseMode(s string) Mode {
	if s == string(ModeStreaming) {
		return ModeStreaming
	}
	return ModeDirect
}

// LogRequest is the ingestion payload delivered by services.
type LogRequest struct {
	ServiceName string `json:"serviceName"`
	Level       string `json:"level"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp,omitempty"`
	TraceID     string `json:"traceId,omitempty"`
}

// Validate checks the required payload fields.
func (r *LogRequest) Validate() error {
	if r.ServiceName == "" {
		return fmt.Errorf("serviceName is required")
	}
	if r.Message == "" {
		return fmt.Errorf("message is required")
	}
	return nil
}

// Service routes incoming events per the configured pipeline mode.
type Service struct {
	logs     storage.LogStore
	recent   *cache.RecentLogs
	rdb      redis.Cmdable
	mode     Mode
	queueKey string

	// now is replaceable for tests.
	now func() time.Time
}

// NewService creates an ingestion service. rdb may be nil when the mode
// is direct.
func NewService(logs storage.LogStore, recent *cache.RecentLogs, rdb redis.Cmdable, mode Mode, queueKey string) *Service {
	if queueKey == "" {
		queueKey = DefaultQueueKey
	}
	return &Service{
		logs:     logs,
		recent:   recent,
		rdb:      rdb,
		mode:     mode,
		queueKey: queueKey,
		now:      time.Now,
	}
}

// Process ingests one event. In streaming mode the event is queued and
// indexed later by the consumer; in direct mode it is indexed and cached
// before returning.
func (s *Service) Process(ctx context.Context, req *LogRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	event := s.buildEvent(req)

	if s.mode == ModeStreaming {
		data, err := event.JSON()
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		if err := s.rdb.LPush(ctx, s.queueKey, data).Err(); err != nil {
			metrics.IngestedEventsTotal.WithLabelValues(string(s.mode), "error").Inc()
			return fmt.Errorf("enqueue event: %w", err)
		}
		metrics.IngestedEventsTotal.WithLabelValues(string(s.mode), "queued").Inc()
		return nil
	}

	if err := s.logs.Insert(ctx, []*models.LogEvent{event}); err != nil {
		metrics.IngestedEventsTotal.WithLabelValues(string(s.mode), "error").Inc()
		return fmt.Errorf("index event: %w", err)
	}

	if err := s.recent.Add(ctx, event); err != nil {
		// The event is already indexed; a cache failure only degrades
		// the recent view.
		metrics.IngestedEventsTotal.WithLabelValues(string(s.mode), "cache_error").Inc()
		return fmt.Errorf("cache event: %w", err)
	}

	metrics.IngestedEventsTotal.WithLabelValues(string(s.mode), "indexed").Inc()
	return nil
}

// buildEvent fills the defaults the payload may omit: level INFO,
// timestamp now, environment DEV, tenant default.
func (s *Service) buildEvent(req *LogRequest) *models.LogEvent {
	level := models.LevelInfo
	if req.Level != "" {
		level = models.ParseLogLevel(req.Level)
	}

	timestamp := s.now().UTC()
	if req.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
			timestamp = parsed.UTC()
		}
	}

	return &models.LogEvent{
		ServiceName: req.ServiceName,
		Env:         models.EnvDev,
		Tenant:      "default",
		Level:       level,
		Message:     req.Message,
		TraceID:     req.TraceID,
		Timestamp:   timestamp,
	}
}
