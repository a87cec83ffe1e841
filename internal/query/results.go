package query

import (
	"errors"
	"fmt"
	"time"
)

// ErrAggregationNotFound is returned when a named aggregation is missing
// from a result container. It is never folded into a zero-valued result,
// which would be indistinguishable from zero matching documents.
var ErrAggregationNotFound = errors.New("aggregation not found")

// Bucket is a single aggregation bucket. Terms buckets carry Key;
// date-histogram buckets carry Time.
type Bucket struct {
	Key   string
	Time  time.Time
	Count int64
}

// Agg holds the buckets of one aggregation.
type Agg struct {
	Buckets []Bucket
}

// NamedAgg pairs an aggregation with its name, for the sequence-shaped
// result container.
type NamedAgg struct {
	Name string
	Agg  Agg
}

// Results is a container of named aggregation results. Store adapters may
// produce either a name-keyed map or an ordered sequence of named results;
// both shapes resolve uniformly through Get.
type Results struct {
	byName  map[string]Agg
	ordered []NamedAgg
}

// ResultsFromMap builds a map-shaped result container.
func ResultsFromMap(m map[string]Agg) *Results {
	return &Results{byName: m}
}

// ResultsFromList builds a sequence-shaped result container.
func ResultsFromList(list []NamedAgg) *Results {
	return &Results{ordered: list}
}

// Get returns the aggregation with the given name, or an error wrapping
// ErrAggregationNotFound if no such aggregation exists in either shape.
func (r *Results) Get(name string) (Agg, error) {
	if r != nil {
		if r.byName != nil {
			if agg, ok := r.byName[name]; ok {
				return agg, nil
			}
		}
		for _, na := range r.ordered {
			if na.Name == name {
				return na.Agg, nil
			}
		}
	}
	return Agg{}, fmt.Errorf("%w: %s", ErrAggregationNotFound, name)
}
