package storage

import (
	"fmt"
	"strings"

	"github.com/good-yellow-bee/emberwatch/internal/query"
)

// buildWhere renders a predicate into a SQL WHERE clause (with leading
// space) and its arguments. An empty predicate renders to an empty string.
func buildWhere(pred query.Predicate) (string, []any) {
	if pred.IsEmpty() {
		return "", nil
	}

	conditions := make([]string, 0, len(pred.Conds))
	args := make([]any, 0, len(pred.Conds))

	for _, c := range pred.Conds {
		var op string
		switch c.Op {
		case query.OpGt:
			op = ">"
		case query.OpGte:
			op = ">="
		case query.OpLte:
			op = "<="
		default:
			op = "="
		}
		conditions = append(conditions, fmt.Sprintf("%s %s ?", c.Field, op))
		args = append(args, c.Value)
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

// buildSelect assembles a SELECT over the logs table with the given
// column list, predicate, and trailing clause (ORDER BY/LIMIT).
func buildSelect(columns string, pred query.Predicate, tail string) (string, []any) {
	where, args := buildWhere(pred)
	return "SELECT " + columns + " FROM logs" + where + tail, args
}
