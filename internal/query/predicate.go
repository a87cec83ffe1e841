// Package query defines the typed query representation consumed by the log
// store: filter predicates, aggregation specs, and aggregation results.
package query

import (
	"time"

	"github.com/good-yellow-bee/emberwatch/internal/models"
)

// Op is a comparison operator in a leaf condition.
type Op string

const (
	OpEq  Op = "="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLte Op = "<="
)

// Field names understood by the log store.
const (
	FieldServiceName = "service_name"
	FieldLevel       = "level"
	FieldEnv         = "env"
	FieldTimestamp   = "timestamp"
)

// Cond is a single leaf condition on a field.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Predicate is a conjunction of leaf conditions. An empty predicate
// matches every event.
type Predicate struct {
	Conds []Cond
}

// Eq creates an exact-match condition.
func Eq(field string, value any) Cond {
	return Cond{Field: field, Op: OpEq, Value: value}
}

// Gt creates a strict lower-bound condition.
func Gt(field string, value any) Cond {
	return Cond{Field: field, Op: OpGt, Value: value}
}

// Gte creates an inclusive lower-bound condition.
func Gte(field string, value any) Cond {
	return Cond{Field: field, Op: OpGte, Value: value}
}

// Lte creates an inclusive upper-bound condition.
func Lte(field string, value any) Cond {
	return Cond{Field: field, Op: OpLte, Value: value}
}

// And returns a new predicate with the given conditions appended.
func (p Predicate) And(conds ...Cond) Predicate {
	merged := make([]Cond, 0, len(p.Conds)+len(conds))
	merged = append(merged, p.Conds...)
	merged = append(merged, conds...)
	return Predicate{Conds: merged}
}

// IsEmpty reports whether the predicate has no conditions.
func (p Predicate) IsEmpty() bool {
	return len(p.Conds) == 0
}

// BuildFilter converts a TimeRangeFilter into a predicate. Absent fields
// are omitted, not defaulted.
func BuildFilter(f *models.TimeRangeFilter) Predicate {
	var p Predicate
	if f == nil {
		return p
	}
	if f.ServiceName != "" {
		p = p.And(Eq(FieldServiceName, f.ServiceName))
	}
	if f.Level != "" {
		p = p.And(Eq(FieldLevel, string(f.Level)))
	}
	if f.Env != "" {
		p = p.And(Eq(FieldEnv, string(f.Env)))
	}
	if !f.From.IsZero() {
		p = p.And(Gte(FieldTimestamp, f.From.UTC()))
	}
	if !f.To.IsZero() {
		p = p.And(Lte(FieldTimestamp, f.To.UTC()))
	}
	return p
}

// TimeRange builds a predicate bounding timestamp to [from, to], with
// either side optional.
func TimeRange(from, to time.Time) Predicate {
	var p Predicate
	if !from.IsZero() {
		p = p.And(Gte(FieldTimestamp, from.UTC()))
	}
	if !to.IsZero() {
		p = p.And(Lte(FieldTimestamp, to.UTC()))
	}
	return p
}
