package models

import (
	"fmt"
	"strconv"
)

// QueryRow is one flat key/value record returned by a legacy query
type QueryRow map[string]interface{}

// String returns the value for key coerced to a string
func (r QueryRow) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Float returns the value for key coerced to a float64
func (r QueryRow) Float(key string) float64 {
	v, ok := r[key]
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Int returns the value for key coerced to an int
func (r QueryRow) Int(key string) int {
	return int(r.Float(key))
}

// QueryResult is the outcome of one named legacy query execution
type QueryResult struct {
	QueryName  string     `json:"query_name"`
	Success    bool       `json:"success"`
	Rows       []QueryRow `json:"rows,omitempty"`
	RowCount   int        `json:"row_count"`
	DurationMS int64      `json:"duration_ms"`
	Error      string     `json:"error,omitempty"`
	ErrorKind  ErrorKind  `json:"error_kind,omitempty"`
}

// QueryResults maps query names to their execution results
type QueryResults map[string]*QueryResult

// SuccessfulRows extracts the row lists of successful queries, keyed by
// query name. This is the transformer's input shape.
func (q QueryResults) SuccessfulRows() map[string][]QueryRow {
	out := make(map[string][]QueryRow, len(q))
	for name, result := range q {
		if result != nil && result.Success {
			out[name] = result.Rows
		}
	}
	return out
}

// Summary builds the opaque per-job summary persisted with the job record
func (q QueryResults) Summary() map[string]interface{} {
	succeeded := 0
	failed := 0
	totalRows := 0
	failures := make(map[string]string)
	for name, result := range q {
		if result == nil {
			continue
		}
		if result.Success {
			succeeded++
			totalRows += result.RowCount
		} else {
			failed++
			failures[name] = result.Error
		}
	}
	summary := map[string]interface{}{
		"total_queries": len(q),
		"succeeded":     succeeded,
		"failed":        failed,
		"total_rows":    totalRows,
	}
	if len(failures) > 0 {
		summary["failures"] = failures
	}
	return summary
}
