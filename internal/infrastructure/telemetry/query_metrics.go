package telemetry

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// QueryMetricsConfig configures QueryMetrics.
type QueryMetricsConfig struct {
	// SlowQueryThreshold marks a query as slow (default: 5s).
	SlowQueryThreshold time.Duration
	// PoolStatsInterval is how often warehouse pool stats are sampled (default: 15s).
	PoolStatsInterval time.Duration
}

// DefaultQueryMetricsConfig returns the defaults.
func DefaultQueryMetricsConfig() QueryMetricsConfig {
	return QueryMetricsConfig{
		SlowQueryThreshold: 5 * time.Second,
		PoolStatsInterval:  15 * time.Second,
	}
}

// QueryMetrics records report query executions and cache lookups.
type QueryMetrics struct {
	queryTotal      *Counter   // analytics_query_total
	queryDuration   *Histogram // analytics_query_duration_seconds
	slowQueryTotal  *Counter   // analytics_slow_query_total
	cacheLookups    *Counter   // analytics_cache_lookups_total
	poolConnections *Gauge     // analytics_db_pool_connections

	config   QueryMetricsConfig
	logger   *zap.Logger
	sqlDB    *sql.DB
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopOnce sync.Once
}

// NewQueryMetrics creates the instruments on meter.
func NewQueryMetrics(meter metric.Meter, cfg QueryMetricsConfig, logger *zap.Logger) (*QueryMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultQueryMetricsConfig()
	if cfg.SlowQueryThreshold == 0 {
		cfg.SlowQueryThreshold = def.SlowQueryThreshold
	}
	if cfg.PoolStatsInterval == 0 {
		cfg.PoolStatsInterval = def.PoolStatsInterval
	}

	queryTotal, err := NewCounter(meter, "analytics_query_total",
		"Report queries by report, engine and status", "{query}")
	if err != nil {
		return nil, err
	}
	queryDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "analytics_query_duration_seconds",
		Description: "Report query latency in seconds",
		Unit:        "s",
		Boundaries:  QueryDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	slowQueryTotal, err := NewCounter(meter, "analytics_slow_query_total",
		"Report queries slower than the configured threshold", "{query}")
	if err != nil {
		return nil, err
	}
	cacheLookups, err := NewCounter(meter, "analytics_cache_lookups_total",
		"Result cache lookups by outcome", "{lookup}")
	if err != nil {
		return nil, err
	}
	poolConnections, err := NewGauge(meter, "analytics_db_pool_connections",
		"Warehouse connections in the pool by state", "{connection}")
	if err != nil {
		return nil, err
	}

	return &QueryMetrics{
		queryTotal:      queryTotal,
		queryDuration:   queryDuration,
		slowQueryTotal:  slowQueryTotal,
		cacheLookups:    cacheLookups,
		poolConnections: poolConnections,
		config:          cfg,
		logger:          logger,
		stopCh:          make(chan struct{}),
	}, nil
}

// RecordQuery records one statement execution. A non-nil err counts as
// failed, zero rows as empty.
func (m *QueryMetrics) RecordQuery(ctx context.Context, report, engine string, duration time.Duration, rows int, err error) {
	if m == nil {
		return
	}
	status := "ok"
	switch {
	case err != nil:
		status = "failed"
	case rows == 0:
		status = "empty"
	}
	m.queryTotal.Inc(ctx, AttrReport.String(report), AttrEngine.String(engine), AttrQueryStatus.String(status))
	m.queryDuration.RecordDuration(ctx, duration, AttrReport.String(report), AttrEngine.String(engine))
	if duration > m.config.SlowQueryThreshold {
		m.slowQueryTotal.Inc(ctx, AttrReport.String(report))
	}
}

// RecordCacheLookup records a cache hit or miss for a report kind.
func (m *QueryMetrics) RecordCacheLookup(ctx context.Context, report string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Inc(ctx, AttrReport.String(report), AttrCacheResult.String(result))
}

// SetSQLDB attaches the warehouse pool whose stats are sampled.
func (m *QueryMetrics) SetSQLDB(db *sql.DB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sqlDB = db
}

// StartPoolStatsCollection samples pool stats until Stop or ctx is done.
func (m *QueryMetrics) StartPoolStatsCollection(ctx context.Context) {
	m.mu.RLock()
	db := m.sqlDB
	m.mu.RUnlock()
	if db == nil {
		m.logger.Warn("Cannot start pool stats collection: sqlDB not set")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.config.PoolStatsInterval)
		defer ticker.Stop()

		m.collectPoolStats(ctx)
		for {
			select {
			case <-ticker.C:
				m.collectPoolStats(ctx)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *QueryMetrics) collectPoolStats(ctx context.Context) {
	m.mu.RLock()
	db := m.sqlDB
	m.mu.RUnlock()
	if db == nil {
		return
	}
	stats := db.Stats()
	m.poolConnections.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.poolConnections.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.poolConnections.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
}

// Stop ends pool stats collection. Safe to call more than once.
func (m *QueryMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
	})
}
