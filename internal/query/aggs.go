package query

import "strings"

// Interval is a calendar-aligned date histogram interval.
type Interval string

const (
	IntervalMinute Interval = "minute"
	IntervalHour   Interval = "hour"
	IntervalDay    Interval = "day"
)

// ParseInterval converts a string to an Interval, case-insensitively.
// Unrecognized or blank values default to hour.
func ParseInterval(s string) Interval {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minute":
		return IntervalMinute
	case "day":
		return IntervalDay
	default:
		return IntervalHour
	}
}

// AggSpec describes an aggregation the log store can execute. Exactly one
// of the two concrete types is used per request.
type AggSpec interface {
	aggSpec()
}

// DateHistogram counts events grouped into calendar-aligned time buckets.
// Buckets with no events are still emitted across the observed range.
type DateHistogram struct {
	Field    string
	Interval Interval
	TimeZone string
}

func (DateHistogram) aggSpec() {}

// Terms counts events grouped by the distinct values of a field.
type Terms struct {
	Field string
	Size  int
}

func (Terms) aggSpec() {}
