package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/salesinsight/backend/internal/infrastructure/telemetry"
)

// Gateway executes statements against an analytical engine.
type Gateway interface {
	// Engine names the backing engine for logs and metrics.
	Engine() string
	// Dialect is the SQL dialect statements must be rendered in.
	Dialect() Dialect
	// Query runs st and materializes the full result.
	Query(ctx context.Context, st Statement) (*Table, error)
}

// Recorder receives one observation per executed statement.
type Recorder interface {
	RecordQuery(ctx context.Context, report, engine string, duration time.Duration, rows int, err error)
}

// Recovering wraps a Gateway so engine failures never propagate: a failed or
// panicking statement is logged and yields an empty table carrying the error.
// Context cancellation is still returned as an error.
type Recovering struct {
	next     Gateway
	logger   *zap.Logger
	recorder Recorder
}

// NewRecovering decorates next. recorder may be nil.
func NewRecovering(next Gateway, logger *zap.Logger, recorder Recorder) *Recovering {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recovering{next: next, logger: logger, recorder: recorder}
}

func (g *Recovering) Engine() string   { return g.next.Engine() }
func (g *Recovering) Dialect() Dialect { return g.next.Dialect() }

// Query executes st, converting failures into a FailedTable.
func (g *Recovering) Query(ctx context.Context, st Statement) (*Table, error) {
	ctx, span := telemetry.StartSpan(ctx, "query."+st.Name,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrReport, st.Name),
		telemetry.WithAttribute(telemetry.SpanAttrEngine, g.next.Engine()),
	)
	defer span.End()

	start := time.Now()
	table, err := g.run(ctx, st)
	elapsed := time.Since(start)

	if err != nil {
		g.record(ctx, st.Name, elapsed, 0, err)
		telemetry.RecordError(span, err)
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		g.logger.Error("Query execution failed",
			zap.String("report", st.Name),
			zap.String("engine", g.next.Engine()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return FailedTable(err), nil
	}
	if table == nil {
		table = EmptyTable()
	}
	g.record(ctx, st.Name, elapsed, table.Len(), nil)

	telemetry.SetAttribute(span, telemetry.SpanAttrRows, table.Len())
	g.logger.Debug("Query executed",
		zap.String("report", st.Name),
		zap.Int("rows", table.Len()),
		zap.Duration("elapsed", elapsed),
	)
	return table, nil
}

// ErrEnginePanic marks a statement whose gateway panicked.
var ErrEnginePanic = errors.New("query engine panicked")

func (g *Recovering) run(ctx context.Context, st Statement) (table *Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Query gateway panic recovered",
				zap.String("report", st.Name),
				zap.String("engine", g.next.Engine()),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			table, err = nil, fmt.Errorf("%w: %v", ErrEnginePanic, r)
		}
	}()
	return g.next.Query(ctx, st)
}

func (g *Recovering) record(ctx context.Context, report string, elapsed time.Duration, rows int, err error) {
	if g.recorder != nil {
		g.recorder.RecordQuery(ctx, report, g.next.Engine(), elapsed, rows, err)
	}
}
