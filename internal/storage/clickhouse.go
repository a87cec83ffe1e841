package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"

	"github.com/good-yellow-bee/emberwatch/internal/models"
	"github.com/good-yellow-bee/emberwatch/internal/query"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	// Addresses are the ClickHouse server addresses (host:port).
	Addresses []string

	// Database is the ClickHouse database name.
	Database string

	// Username for authentication.
	Username string

	// Password for authentication.
	Password string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// DialTimeout is the connection timeout.
	DialTimeout time.Duration

	// Compression enables LZ4 compression.
	Compression bool

	// RetentionDays is the TTL in days for log retention.
	RetentionDays int
}

// ClickHouseStore implements LogStore for ClickHouse.
type ClickHouseStore struct {
	config *ClickHouseConfig
	db     *sql.DB
}

// NewClickHouseStore creates a new ClickHouse log store.
func NewClickHouseStore(config *ClickHouseConfig) *ClickHouseStore {
	// Apply defaults
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 5
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 5
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}
	if config.RetentionDays == 0 {
		config.RetentionDays = 30
	}

	return &ClickHouseStore{config: config}
}

// Open initializes the ClickHouse connection.
func (s *ClickHouseStore) Open() error {
	opts := &clickhouse.Options{
		Addr: s.config.Addresses,
		Auth: clickhouse.Auth{
			Database: s.config.Database,
			Username: s.config.Username,
			Password: s.config.Password,
		},
		DialTimeout:  s.config.DialTimeout,
		MaxOpenConns: s.config.MaxOpenConns,
		MaxIdleConns: s.config.MaxIdleConns,
	}

	if s.config.Compression {
		opts.Compression = &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		}
	}

	db := clickhouse.OpenDB(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), s.config.DialTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping clickhouse: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *ClickHouseStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the logs table if it doesn't exist.
func (s *ClickHouseStore) Migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS logs (
			id UUID DEFAULT generateUUIDv4(),
			timestamp DateTime64(3, 'UTC'),
			service_name LowCardinality(String),
			env LowCardinality(String),
			tenant LowCardinality(String),
			level LowCardinality(String),
			message String,
			trace_id String DEFAULT '',
			latency_ms Int32 DEFAULT 0,
			stack String DEFAULT '',
			_date Date DEFAULT toDate(timestamp)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(_date)
		ORDER BY (service_name, level, timestamp, id)
		TTL _date + INTERVAL %d DAY DELETE
		SETTINGS index_granularity = 8192
	`, s.config.RetentionDays)

	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create logs table: %w", err)
	}

	return nil
}

// Ping checks the connection health.
func (s *ClickHouseStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Insert writes a batch of events.
func (s *ClickHouseStore) Insert(ctx context.Context, events []*models.LogEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO logs (
			id, timestamp, service_name, env, tenant, level,
			message, trace_id, latency_ms, stack
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, event := range events {
		id := event.ID
		if id == "" {
			id = uuid.New().String()
		}

		_, err := stmt.ExecContext(ctx,
			id,
			event.Timestamp.UTC(),
			event.ServiceName,
			string(event.Env),
			event.Tenant,
			string(event.Level),
			event.Message,
			event.TraceID,
			event.LatencyMs,
			event.Stack,
		)
		if err != nil {
			return fmt.Errorf("exec: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Count returns the number of events matching the predicate.
func (s *ClickHouseStore) Count(ctx context.Context, pred query.Predicate) (int64, error) {
	sqlText, args := buildSelect("count()", pred, "")

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlText, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return count, nil
}

// Aggregate executes the named aggregation scoped by the predicate.
// Date histograms produce a map-shaped result container, terms a
// sequence-shaped one; callers resolve both uniformly via Results.Get.
func (s *ClickHouseStore) Aggregate(ctx context.Context, pred query.Predicate, name string, spec query.AggSpec) (*query.Results, error) {
	switch agg := spec.(type) {
	case query.DateHistogram:
		return s.dateHistogram(ctx, pred, name, agg)
	case query.Terms:
		return s.terms(ctx, pred, name, agg)
	default:
		return nil, fmt.Errorf("unsupported aggregation spec: %T", spec)
	}
}

func (s *ClickHouseStore) dateHistogram(ctx context.Context, pred query.Predicate, name string, agg query.DateHistogram) (*query.Results, error) {
	tz := agg.TimeZone
	if tz == "" {
		tz = "UTC"
	}

	var step string
	switch agg.Interval {
	case query.IntervalMinute:
		step = "MINUTE"
	case query.IntervalDay:
		step = "DAY"
	default:
		step = "HOUR"
	}

	field := agg.Field
	if field == "" {
		field = query.FieldTimestamp
	}

	where, args := buildWhere(pred)
	args = append([]any{tz}, args...)

	// WITH FILL emits zero-count buckets across the observed range, the
	// calendar-aligned equivalent of minDocCount=0.
	sqlText := fmt.Sprintf(`
		SELECT toStartOfInterval(%s, INTERVAL 1 %s, ?) AS bucket, count() AS cnt
		FROM logs%s
		GROUP BY bucket
		ORDER BY bucket ASC WITH FILL STEP INTERVAL 1 %s
	`, field, step, where, step)

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("date histogram: %w", err)
	}
	defer rows.Close()

	var buckets []query.Bucket
	for rows.Next() {
		var bucket time.Time
		var cnt int64
		if err := rows.Scan(&bucket, &cnt); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		buckets = append(buckets, query.Bucket{Time: bucket.UTC(), Count: cnt})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return query.ResultsFromMap(map[string]query.Agg{
		name: {Buckets: buckets},
	}), nil
}

func (s *ClickHouseStore) terms(ctx context.Context, pred query.Predicate, name string, agg query.Terms) (*query.Results, error) {
	size := agg.Size
	if size <= 0 {
		size = 10
	}

	where, args := buildWhere(pred)
	sqlText := fmt.Sprintf(`
		SELECT %s AS term, count() AS cnt
		FROM logs%s
		GROUP BY term
		ORDER BY cnt DESC
		LIMIT %d
	`, agg.Field, where, size)

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("terms: %w", err)
	}
	defer rows.Close()

	var buckets []query.Bucket
	for rows.Next() {
		var term string
		var cnt int64
		if err := rows.Scan(&term, &cnt); err != nil {
			return nil, fmt.Errorf("scan term: %w", err)
		}
		buckets = append(buckets, query.Bucket{Key: term, Count: cnt})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return query.ResultsFromList([]query.NamedAgg{
		{Name: name, Agg: query.Agg{Buckets: buckets}},
	}), nil
}

// Search returns one page of matching events sorted by timestamp
// descending, along with the total hit count.
func (s *ClickHouseStore) Search(ctx context.Context, pred query.Predicate, page, size int) ([]*models.LogEvent, int64, error) {
	total, err := s.Count(ctx, pred)
	if err != nil {
		return nil, 0, err
	}

	columns := "id, timestamp, service_name, env, tenant, level, message, trace_id, latency_ms, stack"
	sqlText, args := buildSelect(columns, pred,
		fmt.Sprintf(" ORDER BY timestamp DESC LIMIT %d OFFSET %d", size, page*size))

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var events []*models.LogEvent
	for rows.Next() {
		event := &models.LogEvent{}
		var env, level string
		err := rows.Scan(
			&event.ID,
			&event.Timestamp,
			&event.ServiceName,
			&env,
			&event.Tenant,
			&level,
			&event.Message,
			&event.TraceID,
			&event.LatencyMs,
			&event.Stack,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		event.Env = models.Environment(env)
		event.Level = models.LogLevel(level)
		event.Timestamp = event.Timestamp.UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows: %w", err)
	}

	return events, total, nil
}

// DistinctServices returns the distinct service names present in the
// store, capped at limit.
func (s *ClickHouseStore) DistinctServices(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 1000
	}

	results, err := s.Aggregate(ctx, query.Predicate{}, "services", query.Terms{
		Field: query.FieldServiceName,
		Size:  limit,
	})
	if err != nil {
		return nil, err
	}

	agg, err := results.Get("services")
	if err != nil {
		return nil, err
	}

	services := make([]string, 0, len(agg.Buckets))
	for _, b := range agg.Buckets {
		if b.Key != "" {
			services = append(services, b.Key)
		}
	}
	return services, nil
}
