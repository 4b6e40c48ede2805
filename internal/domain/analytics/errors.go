package analytics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/salesinsight/backend/internal/domain/shared"
)

// ErrInvalidFilter is returned when a FilterSet violates its invariants.
var ErrInvalidFilter = shared.NewDomainError("INVALID_FILTER", "Invalid filter set")

// ErrUnknownProfile is returned when an RFM profile name is not registered.
var ErrUnknownProfile = shared.NewDomainError("UNKNOWN_PROFILE", "Unknown RFM profile")

// QueryExecutionError means the engine rejected or could not run a statement.
// It is recovered locally: callers render an empty result with a visible failure state.
type QueryExecutionError struct {
	Report string
	Err    error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("query execution failed for %s: %v", e.Report, e.Err)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

// ShapeMismatchError means expected columns are absent from a result.
type ShapeMismatchError struct {
	Report  string
	Missing []string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s result is missing columns: %s", e.Report, strings.Join(e.Missing, ", "))
}

// FilterIncompatibilityError means a restricted filter combination produced no rows.
// It is not a failure; it renders as "no data for this selection".
type FilterIncompatibilityError struct {
	Report string
}

func (e *FilterIncompatibilityError) Error() string {
	return fmt.Sprintf("no %s data for this selection", e.Report)
}

// IsQueryExecution reports whether err is (or wraps) a QueryExecutionError.
func IsQueryExecution(err error) bool {
	var qe *QueryExecutionError
	return errors.As(err, &qe)
}

// AsShapeMismatch extracts a ShapeMismatchError from err.
func AsShapeMismatch(err error) (*ShapeMismatchError, bool) {
	var se *ShapeMismatchError
	ok := errors.As(err, &se)
	return se, ok
}
