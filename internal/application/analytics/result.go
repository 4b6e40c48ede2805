// Package analytics assembles dashboard reports from the sales analytics
// repository: it shapes raw rows, classifies failures into result states and
// memoizes successful results.
package analytics

import (
	"fmt"

	"github.com/salesinsight/backend/internal/domain/analytics"
)

// Status is the outcome of a single report.
type Status string

const (
	StatusOK            Status = "ok"
	StatusNoData        Status = "no_data"
	StatusQueryFailed   Status = "query_failed"
	StatusShapeMismatch Status = "shape_mismatch"
)

// Cacheable reports whether a result in this state may be memoized.
func (s Status) Cacheable() bool {
	return s == StatusOK || s == StatusNoData
}

// Result carries a report payload together with its outcome. Failed reports
// keep a zero payload so the dashboard can render an empty chart.
type Result[T any] struct {
	Report         string   `json:"report"`
	Status         Status   `json:"status"`
	Data           T        `json:"data"`
	Warnings       []string `json:"warnings,omitempty"`
	MissingColumns []string `json:"missing_columns,omitempty"`
	Cached         bool     `json:"cached"`
}

// OK wraps data in a successful result.
func OK[T any](report string, data T) Result[T] {
	return Result[T]{Report: report, Status: StatusOK, Data: data}
}

// NoData is the result for an empty selection. A restricted filter adds the
// "no data for this selection" warning.
func NoData[T any](report string, filter analytics.FilterSet) Result[T] {
	r := Result[T]{Report: report, Status: StatusNoData}
	if filter.IsRestricted() {
		r.Warnings = append(r.Warnings, (&analytics.FilterIncompatibilityError{Report: report}).Error())
	}
	return r
}

// classify turns a repository error into a result state. Errors that must
// abort the request (cancellation, invalid input) are returned unchanged.
// A report deadline has already been converted to a QueryExecutionError.
func classify[T any](report string, err error) (Result[T], error) {
	if se, ok := analytics.AsShapeMismatch(err); ok {
		return Result[T]{
			Report:         report,
			Status:         StatusShapeMismatch,
			Warnings:       []string{se.Error()},
			MissingColumns: se.Missing,
		}, nil
	}
	if analytics.IsQueryExecution(err) {
		return Result[T]{
			Report:   report,
			Status:   StatusQueryFailed,
			Warnings: []string{fmt.Sprintf("%s could not be computed, the query engine reported an error", report)},
		}, nil
	}
	return Result[T]{}, err
}
