// Package athena runs analytics statements on Amazon Athena.
package athena

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	infraconfig "github.com/salesinsight/backend/internal/infrastructure/config"
	"github.com/salesinsight/backend/internal/infrastructure/query"
	"github.com/salesinsight/backend/internal/infrastructure/telemetry"
)

// API is the subset of the Athena client the gateway uses.
type API interface {
	StartQueryExecution(ctx context.Context, in *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, in *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, in *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
	StopQueryExecution(ctx context.Context, in *athena.StopQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StopQueryExecutionOutput, error)
}

var _ query.Gateway = (*Gateway)(nil)

// ErrQueryFailed is wrapped by errors for queries Athena reports as FAILED or CANCELLED.
var ErrQueryFailed = errors.New("athena query did not succeed")

// Gateway executes statements on Athena: start, poll until terminal, then
// page through the results.
type Gateway struct {
	api          API
	database     string
	catalog      string
	workGroup    string
	outputDir    string
	pollInterval time.Duration
	queryTimeout time.Duration
	logger       *zap.Logger
	newToken     func() string
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the gateway logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// WithPollInterval overrides the status poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(g *Gateway) { g.pollInterval = d }
}

// New builds a gateway over api.
func New(api API, cfg infraconfig.AthenaConfig, opts ...Option) *Gateway {
	g := &Gateway{
		api:          api,
		database:     cfg.Database,
		catalog:      cfg.Catalog,
		workGroup:    cfg.WorkGroup,
		outputDir:    cfg.StagingDir,
		pollInterval: cfg.PollInterval,
		queryTimeout: cfg.QueryTimeout,
		logger:       zap.NewNop(),
		newToken:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.pollInterval <= 0 {
		g.pollInterval = 500 * time.Millisecond
	}
	return g
}

// NewClient creates an Athena client from configuration. Static credentials
// are used when configured; otherwise the default AWS chain applies.
func NewClient(ctx context.Context, cfg infraconfig.AthenaConfig) (*athena.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}
	return athena.NewFromConfig(awsCfg), nil
}

func (g *Gateway) Engine() string         { return "athena" }
func (g *Gateway) Dialect() query.Dialect { return query.Trino{} }

// Query runs st and returns the complete result.
func (g *Gateway) Query(ctx context.Context, st query.Statement) (*query.Table, error) {
	if g.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.queryTimeout)
		defer cancel()
	}

	params, err := ExecutionParameters(st.Args)
	if err != nil {
		return nil, err
	}

	in := &athena.StartQueryExecutionInput{
		QueryString:        aws.String(st.SQL),
		ClientRequestToken: aws.String(g.newToken()),
		QueryExecutionContext: &types.QueryExecutionContext{
			Database: aws.String(g.database),
			Catalog:  aws.String(g.catalog),
		},
		ResultConfiguration: &types.ResultConfiguration{OutputLocation: aws.String(g.outputDir)},
		WorkGroup:           aws.String(g.workGroup),
	}
	if len(params) > 0 {
		in.ExecutionParameters = params
	}

	out, err := g.api.StartQueryExecution(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("start query execution: %w", err)
	}
	id := aws.ToString(out.QueryExecutionId)
	telemetry.SetAttribute(trace.SpanFromContext(ctx), telemetry.SpanAttrQueryID, id)

	if err := g.wait(ctx, id); err != nil {
		return nil, err
	}
	return g.results(ctx, id)
}

// wait polls until the execution reaches a terminal state.
func (g *Gateway) wait(ctx context.Context, id string) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			g.stop(id)
			return ctx.Err()
		case <-timer.C:
		}

		out, err := g.api.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{QueryExecutionId: aws.String(id)})
		if err != nil {
			if ctx.Err() != nil {
				g.stop(id)
				return ctx.Err()
			}
			return fmt.Errorf("get query execution %s: %w", id, err)
		}

		if out.QueryExecution == nil || out.QueryExecution.Status == nil {
			timer.Reset(g.pollInterval)
			continue
		}
		status := out.QueryExecution.Status
		switch status.State {
		case types.QueryExecutionStateSucceeded:
			return nil
		case types.QueryExecutionStateFailed, types.QueryExecutionStateCancelled:
			return fmt.Errorf("%w: %s %s: %s", ErrQueryFailed, id, status.State, failureReason(status))
		}
		timer.Reset(g.pollInterval)
	}
}

// stop cancels a running execution on a best-effort basis.
func (g *Gateway) stop(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := g.api.StopQueryExecution(ctx, &athena.StopQueryExecutionInput{QueryExecutionId: aws.String(id)}); err != nil {
		g.logger.Warn("Failed to stop abandoned Athena query", zap.String("query_execution_id", id), zap.Error(err))
	}
}

func failureReason(status *types.QueryExecutionStatus) string {
	if status.AthenaError != nil && status.AthenaError.ErrorMessage != nil {
		return aws.ToString(status.AthenaError.ErrorMessage)
	}
	return aws.ToString(status.StateChangeReason)
}

// results pages through the result set. The first row of the first page
// repeats the column labels and is skipped.
func (g *Gateway) results(ctx context.Context, id string) (*query.Table, error) {
	paginator := athena.NewGetQueryResultsPaginator(g.api, &athena.GetQueryResultsInput{
		QueryExecutionId: aws.String(id),
	})

	var (
		columns []string
		kinds   []string
		rows    [][]any
		first   = true
	)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("get query results %s: %w", id, err)
		}
		if page.ResultSet == nil {
			continue
		}
		if columns == nil && page.ResultSet.ResultSetMetadata != nil {
			for _, ci := range page.ResultSet.ResultSetMetadata.ColumnInfo {
				columns = append(columns, aws.ToString(ci.Name))
				kinds = append(kinds, strings.ToLower(aws.ToString(ci.Type)))
			}
		}
		data := page.ResultSet.Rows
		if first && len(data) > 0 {
			data = data[1:]
		}
		first = false
		for _, r := range data {
			row := make([]any, len(columns))
			for i := range columns {
				if i < len(r.Data) {
					row[i] = convert(r.Data[i].VarCharValue, kinds[i])
				}
			}
			rows = append(rows, row)
		}
	}
	return query.NewTable(columns, rows), nil
}

// convert turns an Athena text value into a Go value by column type.
// Unparseable values are kept as text.
func convert(v *string, kind string) any {
	if v == nil {
		return nil
	}
	s := *v
	switch {
	case kind == "tinyint" || kind == "smallint" || kind == "integer" || kind == "int" || kind == "bigint":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case kind == "double" || kind == "float" || kind == "real":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case strings.HasPrefix(kind, "decimal"):
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	case kind == "boolean":
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	case kind == "date":
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			return t
		}
	case strings.HasPrefix(kind, "timestamp"):
		if t, err := time.Parse("2006-01-02 15:04:05.000", s); err == nil {
			return t
		}
	}
	return s
}

// ExecutionParameters renders statement arguments as the SQL literals Athena
// substitutes for `?` placeholders.
func ExecutionParameters(args []any) ([]string, error) {
	params := make([]string, len(args))
	for i, a := range args {
		lit, err := literal(a)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i+1, err)
		}
		params[i] = lit
	}
	return params, nil
}

func literal(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'", nil
	case time.Time:
		return "'" + x.Format(time.DateOnly) + "'", nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case decimal.Decimal:
		return x.String(), nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	default:
		return "", fmt.Errorf("unsupported parameter type %T", v)
	}
}
