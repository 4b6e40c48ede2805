package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/salesinsight/backend/internal/domain/analytics"
	"github.com/salesinsight/backend/internal/infrastructure/telemetry"
)

// Report kinds, used as cache key scopes and metric labels.
const (
	KindRevenue      = "revenue"
	KindBrands       = "brands"
	KindRFMSummary   = "rfm_summary"
	KindRFMCustomers = "rfm_customers"
	KindLifecycle    = "lifecycle"
	KindOptions      = "options"
)

// Lifecycle computation modes.
const (
	LifecycleEngine    = "engine"
	LifecycleInProcess = "in_process"
)

// ResultCache stores serialized results. Entries never expire.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CacheRecorder observes cache lookups.
type CacheRecorder interface {
	RecordCacheLookup(ctx context.Context, report string, hit bool)
}

// Config holds report behaviour settings.
type Config struct {
	LifecycleMode  string
	DefaultProfile string
	ReportTimeout  time.Duration
}

// Service computes dashboard reports.
type Service struct {
	repo     analytics.SalesAnalyticsRepository
	cfg      Config
	cache    ResultCache
	recorder CacheRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCache memoizes ok and no_data results in c. recorder may be nil.
func WithCache(c ResultCache, recorder CacheRecorder) Option {
	return func(s *Service) {
		s.cache = c
		s.recorder = recorder
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the clock used to clamp lifecycle months.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service. An unknown default profile or lifecycle mode
// is a configuration error.
func NewService(repo analytics.SalesAnalyticsRepository, cfg Config, opts ...Option) (*Service, error) {
	if cfg.DefaultProfile == "" {
		cfg.DefaultProfile = analytics.ProfileSummary
	}
	if _, err := analytics.LookupProfile(cfg.DefaultProfile); err != nil {
		return nil, err
	}
	switch cfg.LifecycleMode {
	case "":
		cfg.LifecycleMode = LifecycleEngine
	case LifecycleEngine, LifecycleInProcess:
	default:
		return nil, fmt.Errorf("unknown lifecycle mode %q", cfg.LifecycleMode)
	}

	s := &Service{
		repo:   repo,
		cfg:    cfg,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ReportRequest selects the data a report is computed for.
type ReportRequest struct {
	Filter   analytics.FilterSet
	Profile  string
	Segments []analytics.Segment
	// Refresh skips the cache lookup; the fresh result is still stored.
	Refresh bool
}

// prepare validates and normalizes the request.
func (s *Service) prepare(req ReportRequest) (ReportRequest, error) {
	if err := req.Filter.Validate(); err != nil {
		return req, err
	}
	req.Filter = req.Filter.Normalize()
	if req.Profile == "" {
		req.Profile = s.cfg.DefaultProfile
	}
	return req, nil
}

// withTimeout bounds a single report. Any deadline, the report's own or the
// caller's, is a query failure so the other reports still render. Only an
// explicit cancellation is returned as an error.
func (s *Service) withTimeout(ctx context.Context, report string, fn func(context.Context) error) error {
	rctx := ctx
	if s.cfg.ReportTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, s.cfg.ReportTimeout)
		defer cancel()
	}
	err := fn(rctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(ctx.Err(), context.Canceled) {
		return &analytics.QueryExecutionError{Report: report, Err: err}
	}
	return err
}

// cached serves key from the cache unless refresh is set, otherwise computes
// the result with load and stores it when its state is cacheable.
func cached[T any](ctx context.Context, s *Service, kind, key string, refresh bool, load func(context.Context) (Result[T], error)) (Result[T], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "analytics", kind)
	defer span.End()

	if s.cache != nil && !refresh {
		raw, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.logger.Warn("Result cache lookup failed", zap.String("report", kind), zap.Error(err))
		case ok:
			var res Result[T]
			if err := json.Unmarshal(raw, &res); err == nil {
				s.recordLookup(ctx, kind, true)
				res.Cached = true
				telemetry.SetAttributes(span, telemetry.SpanAttrCacheHit, true, telemetry.SpanAttrStatus, string(res.Status))
				telemetry.SetOK(span)
				return res, nil
			}
			s.logger.Warn("Discarding unreadable cache entry", zap.String("report", kind), zap.String("key", key))
		}
		s.recordLookup(ctx, kind, false)
	}

	res, err := load(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return res, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCacheHit, false, telemetry.SpanAttrStatus, string(res.Status))
	if res.Status.Cacheable() {
		telemetry.SetOK(span)
	}
	if s.cache != nil && res.Status.Cacheable() {
		raw, err := json.Marshal(res)
		if err == nil {
			err = s.cache.Set(ctx, key, raw)
		}
		if err != nil {
			s.logger.Warn("Failed to store report in cache", zap.String("report", kind), zap.Error(err))
		}
	}
	return res, nil
}

func (s *Service) recordLookup(ctx context.Context, kind string, hit bool) {
	if s.recorder != nil {
		s.recorder.RecordCacheLookup(ctx, kind, hit)
	}
}

func (s *Service) logFailure(ctx context.Context, report string, res Status, warnings []string) {
	if res.Cacheable() {
		return
	}
	fields := []zap.Field{
		zap.String("report", report),
		zap.String("status", string(res)),
		zap.Strings("warnings", warnings),
	}
	if traceID := telemetry.GetTraceID(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	s.logger.Warn("Report degraded", fields...)
}
