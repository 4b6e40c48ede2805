package persistence

import (
	"context"
	"fmt"

	"github.com/salesinsight/backend/internal/domain/analytics"
	"github.com/salesinsight/backend/internal/infrastructure/query"
)

var _ analytics.SalesAnalyticsRepository = (*AnalyticsRepository)(nil)

// AnalyticsRepository implements analytics.SalesAnalyticsRepository by
// rendering parameterized statements for the gateway's dialect.
type AnalyticsRepository struct {
	gw      query.Gateway
	dialect query.Dialect
	schema  string
}

// NewAnalyticsRepository creates an AnalyticsRepository reading from schema.
func NewAnalyticsRepository(gw query.Gateway, schema string) (*AnalyticsRepository, error) {
	if !query.ValidIdentifier(schema) {
		return nil, fmt.Errorf("invalid analytics schema %q", schema)
	}
	return &AnalyticsRepository{gw: gw, dialect: gw.Dialect(), schema: schema}, nil
}

// table qualifies name with the repository schema.
func (r *AnalyticsRepository) table(name string) string {
	return r.schema + "." + name
}

// run executes st and checks the result carries the required columns.
// A recovered engine failure becomes a QueryExecutionError; absent columns
// become a ShapeMismatchError. Context cancellation is returned as is.
func (r *AnalyticsRepository) run(ctx context.Context, st query.Statement, required ...string) (*query.Table, error) {
	tbl, err := r.gw.Query(ctx, st)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, &analytics.QueryExecutionError{Report: st.Name, Err: err}
	}
	if tbl == nil {
		return query.EmptyTable(), nil
	}
	if tbl.Failed() {
		return nil, &analytics.QueryExecutionError{Report: st.Name, Err: tbl.Err}
	}
	if tbl.Len() == 0 && len(tbl.Columns) == 0 {
		return tbl, nil
	}
	if missing := tbl.Missing(required...); len(missing) > 0 {
		return nil, &analytics.ShapeMismatchError{Report: st.Name, Missing: missing}
	}
	return tbl, nil
}
