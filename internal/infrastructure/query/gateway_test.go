package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubGateway struct {
	table *Table
	err   error
	calls int
}

func (s *stubGateway) Engine() string   { return "stub" }
func (s *stubGateway) Dialect() Dialect { return Trino{} }
func (s *stubGateway) Query(ctx context.Context, _ Statement) (*Table, error) {
	s.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.table, s.err
}

type recordedQuery struct {
	report string
	rows   int
	err    error
}

type stubRecorder struct{ queries []recordedQuery }

func (r *stubRecorder) RecordQuery(_ context.Context, report, _ string, _ time.Duration, rows int, err error) {
	r.queries = append(r.queries, recordedQuery{report: report, rows: rows, err: err})
}

func TestRecovering_PassesThroughResults(t *testing.T) {
	want := NewTable([]string{"a"}, [][]any{{1}})
	rec := &stubRecorder{}
	g := NewRecovering(&stubGateway{table: want}, zap.NewNop(), rec)

	got, err := g.Query(context.Background(), Statement{Name: "revenue_monthly"})

	require.NoError(t, err)
	assert.Same(t, want, got)
	require.Len(t, rec.queries, 1)
	assert.Equal(t, "revenue_monthly", rec.queries[0].report)
	assert.Equal(t, 1, rec.queries[0].rows)
	assert.NoError(t, rec.queries[0].err)
}

func TestRecovering_ConvertsFailuresToEmptyResult(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	engineErr := errors.New("SYNTAX_ERROR: line 1:8")
	rec := &stubRecorder{}
	g := NewRecovering(&stubGateway{err: engineErr}, zap.New(core), rec)

	got, err := g.Query(context.Background(), Statement{Name: "brand_breakdown"})

	require.NoError(t, err)
	assert.True(t, got.Failed())
	assert.ErrorIs(t, got.Err, engineErr)
	assert.Equal(t, 0, got.Len())

	entries := logs.FilterMessage("Query execution failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "brand_breakdown", entries[0].ContextMap()["report"])
	assert.ErrorIs(t, rec.queries[0].err, engineErr)
}

func TestRecovering_PropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewRecovering(&stubGateway{}, nil, nil)

	got, err := g.Query(ctx, Statement{Name: "rfm_profiles"})

	assert.Nil(t, got)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecovering_NilTableBecomesEmpty(t *testing.T) {
	g := NewRecovering(&stubGateway{}, nil, nil)

	got, err := g.Query(context.Background(), Statement{Name: "x"})

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.False(t, got.Failed())
	assert.Equal(t, "stub", g.Engine())
}

type panickingGateway struct{ stubGateway }

func (p *panickingGateway) Query(context.Context, Statement) (*Table, error) {
	panic("driver: column index out of range")
}

func TestRecovering_ConvertsPanicsToFailedTable(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	rec := &stubRecorder{}
	g := NewRecovering(&panickingGateway{}, zap.New(core), rec)

	var got *Table
	var err error
	require.NotPanics(t, func() {
		got, err = g.Query(context.Background(), Statement{Name: "lifecycle_counts"})
	})

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Failed())
	assert.ErrorIs(t, got.Err, ErrEnginePanic)
	assert.Equal(t, 0, got.Len())

	assert.Len(t, logs.FilterMessage("Query gateway panic recovered").All(), 1)
	assert.Len(t, logs.FilterMessage("Query execution failed").All(), 1)
	require.Len(t, rec.queries, 1)
	assert.ErrorIs(t, rec.queries[0].err, ErrEnginePanic)
}
