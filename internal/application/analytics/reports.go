package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/salesinsight/backend/internal/domain/analytics"
	"github.com/salesinsight/backend/internal/infrastructure/telemetry"
)

// RevenueReport is the monthly revenue series with its period totals.
type RevenueReport struct {
	Rows   []analytics.MonthlyRevenueRow `json:"rows"`
	Totals analytics.MonthlyRevenueRow   `json:"totals"`
	KPIs   *analytics.RevenueKPIs        `json:"kpis,omitempty"`
	Charts []ChartSeries                 `json:"charts"`
}

// BrandReport is the per-brand breakdown of the period.
type BrandReport struct {
	Rows         []analytics.BrandRow `json:"rows"`
	TotalRevenue decimal.Decimal      `json:"total_revenue"`
}

// RFMSummaryReport is the segment summary with its heatmap.
type RFMSummaryReport struct {
	Profile   string                        `json:"profile"`
	Customers int                           `json:"customers"`
	Segments  []analytics.RFMSegmentSummary `json:"segments"`
	Heatmap   analytics.RFMHeatmap          `json:"heatmap"`
}

// RFMCustomerReport is the customer drill-down for a set of segments.
type RFMCustomerReport struct {
	Profile   string                       `json:"profile"`
	Segments  []analytics.Segment          `json:"segments,omitempty"`
	Customers []analytics.RFMCustomerScore `json:"customers"`
}

// LifecycleReport is the month × status cohort matrix.
type LifecycleReport struct {
	Mode    string                        `json:"mode"`
	Months  []time.Time                   `json:"months"`
	Rows    []analytics.LifecycleMonthRow `json:"rows"`
	Table   []LifecycleTableRow           `json:"table"`
	HasBase bool                          `json:"has_base"`
	Charts  []ChartSeries                 `json:"charts"`
}

// OverviewReport bundles the reports shown on the dashboard landing page.
type OverviewReport struct {
	Revenue   Result[RevenueReport]   `json:"revenue"`
	Brands    Result[BrandReport]     `json:"brands"`
	Lifecycle Result[LifecycleReport] `json:"lifecycle"`
}

// Revenue computes the monthly revenue report. Months without sales are zero
// filled.
func (s *Service) Revenue(ctx context.Context, req ReportRequest) (Result[RevenueReport], error) {
	req, err := s.prepare(req)
	if err != nil {
		return Result[RevenueReport]{}, err
	}
	key := req.Filter.CacheKey(KindRevenue)
	return cached(ctx, s, KindRevenue, key, req.Refresh, func(ctx context.Context) (Result[RevenueReport], error) {
		var rows []analytics.MonthlyRevenueRow
		err := s.withTimeout(ctx, KindRevenue, func(ctx context.Context) error {
			var err error
			rows, err = s.repo.MonthlyRevenue(ctx, req.Filter)
			return err
		})
		if err != nil {
			res, err := classify[RevenueReport](KindRevenue, err)
			s.logFailure(ctx, KindRevenue, res.Status, res.Warnings)
			return res, err
		}
		if len(rows) == 0 {
			return NoData[RevenueReport](KindRevenue, req.Filter), nil
		}

		filled := analytics.FillRevenueMonths(rows, req.Filter.Months())
		report := RevenueReport{
			Rows:   filled,
			Totals: analytics.RevenueTotals(filled),
			Charts: RevenueSeries(filled),
		}
		if k, ok := analytics.ComputeRevenueKPIs(filled); ok {
			report.KPIs = &k
		}
		return OK(KindRevenue, report), nil
	})
}

// Brands computes the brand breakdown.
func (s *Service) Brands(ctx context.Context, req ReportRequest) (Result[BrandReport], error) {
	req, err := s.prepare(req)
	if err != nil {
		return Result[BrandReport]{}, err
	}
	key := req.Filter.CacheKey(KindBrands)
	return cached(ctx, s, KindBrands, key, req.Refresh, func(ctx context.Context) (Result[BrandReport], error) {
		var rows []analytics.BrandRow
		err := s.withTimeout(ctx, KindBrands, func(ctx context.Context) error {
			var err error
			rows, err = s.repo.BrandBreakdown(ctx, req.Filter)
			return err
		})
		if err != nil {
			res, err := classify[BrandReport](KindBrands, err)
			s.logFailure(ctx, KindBrands, res.Status, res.Warnings)
			return res, err
		}
		if len(rows) == 0 {
			return NoData[BrandReport](KindBrands, req.Filter), nil
		}

		total := decimal.Zero
		for _, r := range rows {
			total = total.Add(r.Revenue)
		}
		return OK(KindBrands, BrandReport{Rows: rows, TotalRevenue: total}), nil
	})
}

// RFMSummary scores the filtered customers and summarizes them per segment,
// channel and region.
func (s *Service) RFMSummary(ctx context.Context, req ReportRequest) (Result[RFMSummaryReport], error) {
	req, err := s.prepare(req)
	if err != nil {
		return Result[RFMSummaryReport]{}, err
	}
	profile, err := analytics.LookupProfile(req.Profile)
	if err != nil {
		return Result[RFMSummaryReport]{}, err
	}
	key := req.Filter.CacheKey(KindRFMSummary, profile.Name)
	return cached(ctx, s, KindRFMSummary, key, req.Refresh, func(ctx context.Context) (Result[RFMSummaryReport], error) {
		telemetry.SetAttribute(trace.SpanFromContext(ctx), telemetry.SpanAttrProfile, profile.Name)
		customers, err := s.customerProfiles(ctx, KindRFMSummary, req.Filter)
		if err != nil {
			res, err := classify[RFMSummaryReport](KindRFMSummary, err)
			s.logFailure(ctx, KindRFMSummary, res.Status, res.Warnings)
			return res, err
		}
		if len(customers) == 0 {
			return NoData[RFMSummaryReport](KindRFMSummary, req.Filter), nil
		}

		scores := analytics.ScoreCustomers(customers, profile)
		summary := analytics.SummarizeSegments(scores, profile.Scoring.Monetary)
		return OK(KindRFMSummary, RFMSummaryReport{
			Profile:   profile.Name,
			Customers: len(customers),
			Segments:  summary,
			Heatmap:   analytics.BuildHeatmap(summary),
		}), nil
	})
}

// RFMCustomers lists the scored customers of the requested segments (all
// segments when none are given).
func (s *Service) RFMCustomers(ctx context.Context, req ReportRequest) (Result[RFMCustomerReport], error) {
	req, err := s.prepare(req)
	if err != nil {
		return Result[RFMCustomerReport]{}, err
	}
	profile, err := analytics.LookupProfile(req.Profile)
	if err != nil {
		return Result[RFMCustomerReport]{}, err
	}
	profile = analytics.DrillDownProfile(profile)
	segs := make([]string, len(req.Segments))
	for i, seg := range req.Segments {
		segs[i] = string(seg)
	}
	key := req.Filter.CacheKey(KindRFMCustomers, profile.Name, strings.Join(segs, ","))
	return cached(ctx, s, KindRFMCustomers, key, req.Refresh, func(ctx context.Context) (Result[RFMCustomerReport], error) {
		telemetry.SetAttribute(trace.SpanFromContext(ctx), telemetry.SpanAttrProfile, profile.Name)
		customers, err := s.customerProfiles(ctx, KindRFMCustomers, req.Filter)
		if err != nil {
			res, err := classify[RFMCustomerReport](KindRFMCustomers, err)
			s.logFailure(ctx, KindRFMCustomers, res.Status, res.Warnings)
			return res, err
		}
		if len(customers) == 0 {
			return NoData[RFMCustomerReport](KindRFMCustomers, req.Filter), nil
		}

		scores := analytics.ScoreCustomers(customers, profile)
		selected := analytics.FilterSegments(scores, profile.Scoring.Monetary, req.Segments...)
		if len(selected) == 0 {
			res := NoData[RFMCustomerReport](KindRFMCustomers, req.Filter)
			res.Warnings = append(res.Warnings, "no customers in the selected segments")
			return res, nil
		}
		return OK(KindRFMCustomers, RFMCustomerReport{
			Profile:   profile.Name,
			Segments:  req.Segments,
			Customers: selected,
		}), nil
	})
}

func (s *Service) customerProfiles(ctx context.Context, report string, filter analytics.FilterSet) ([]analytics.CustomerProfile, error) {
	var customers []analytics.CustomerProfile
	err := s.withTimeout(ctx, report, func(ctx context.Context) error {
		var err error
		customers, err = s.repo.CustomerProfiles(ctx, filter)
		return err
	})
	return customers, err
}

// LifecycleMonths lists the months a lifecycle report covers: the filter's
// months, never past the current month.
func (s *Service) LifecycleMonths(filter analytics.FilterSet) []time.Time {
	end := filter.EndDate
	if current := analytics.MonthStart(s.now()); analytics.MonthStart(end).After(current) {
		end = current
	}
	if analytics.MonthStart(filter.StartDate).After(analytics.MonthStart(end)) {
		return nil
	}
	return analytics.MonthRange(filter.StartDate, end)
}

// Lifecycle computes the monthly client lifecycle cohorts, either inside the
// engine or in process from the purchase history depending on configuration.
func (s *Service) Lifecycle(ctx context.Context, req ReportRequest) (Result[LifecycleReport], error) {
	req, err := s.prepare(req)
	if err != nil {
		return Result[LifecycleReport]{}, err
	}
	months := s.LifecycleMonths(req.Filter)
	if len(months) == 0 {
		return NoData[LifecycleReport](KindLifecycle, req.Filter), nil
	}
	last := months[len(months)-1]
	key := req.Filter.CacheKey(KindLifecycle, s.cfg.LifecycleMode, last.Format(analytics.DateLayout))
	return cached(ctx, s, KindLifecycle, key, req.Refresh, func(ctx context.Context) (Result[LifecycleReport], error) {
		telemetry.SetAttribute(trace.SpanFromContext(ctx), telemetry.SpanAttrLifecycle, s.cfg.LifecycleMode)
		var rows []analytics.LifecycleMonthRow
		err := s.withTimeout(ctx, KindLifecycle, func(ctx context.Context) error {
			var err error
			rows, err = s.lifecycleRows(ctx, req.Filter, months)
			return err
		})
		if err != nil {
			res, err := classify[LifecycleReport](KindLifecycle, err)
			s.logFailure(ctx, KindLifecycle, res.Status, res.Warnings)
			return res, err
		}
		if len(rows) == 0 {
			return NoData[LifecycleReport](KindLifecycle, req.Filter), nil
		}

		mx := analytics.PivotLifecycle(rows, months)
		res := OK(KindLifecycle, LifecycleReport{
			Mode:    s.cfg.LifecycleMode,
			Months:  mx.Months,
			Rows:    mx.Rows(),
			Table:   LifecycleTable(mx),
			HasBase: mx.HasBase(),
			Charts:  LifecycleSeries(mx),
		})
		if !res.Data.HasBase {
			res.Warnings = append(res.Warnings, "active base is empty, shares are undefined")
		}
		return res, nil
	})
}

func (s *Service) lifecycleRows(ctx context.Context, filter analytics.FilterSet, months []time.Time) ([]analytics.LifecycleMonthRow, error) {
	if s.cfg.LifecycleMode == LifecycleInProcess {
		f := filter
		f.EndDate = months[len(months)-1]
		purchases, err := s.repo.PurchaseHistory(ctx, f)
		if err != nil {
			return nil, err
		}
		return analytics.ClassifyLifecycle(purchases, months), nil
	}
	return s.repo.LifecycleCounts(ctx, filter, months)
}

// Options lists the selectable channels, regions and collaborators.
func (s *Service) Options(ctx context.Context, req ReportRequest) (Result[analytics.FilterOptions], error) {
	req, err := s.prepare(req)
	if err != nil {
		return Result[analytics.FilterOptions]{}, err
	}
	key := req.Filter.CacheKey(KindOptions)
	return cached(ctx, s, KindOptions, key, req.Refresh, func(ctx context.Context) (Result[analytics.FilterOptions], error) {
		var opts analytics.FilterOptions
		err := s.withTimeout(ctx, KindOptions, func(ctx context.Context) error {
			var err error
			opts, err = s.repo.FilterOptions(ctx, req.Filter)
			return err
		})
		if err != nil {
			res, err := classify[analytics.FilterOptions](KindOptions, err)
			s.logFailure(ctx, KindOptions, res.Status, res.Warnings)
			return res, err
		}
		if len(opts.Channels) == 0 && len(opts.Regions) == 0 && len(opts.Collaborators) == 0 {
			return NoData[analytics.FilterOptions](KindOptions, req.Filter), nil
		}
		return OK(KindOptions, opts), nil
	})
}

// Overview runs the revenue, brand and lifecycle reports concurrently. A
// degraded report never fails or cancels the others; only validation errors
// and cancellation of ctx are returned.
func (s *Service) Overview(ctx context.Context, req ReportRequest) (OverviewReport, error) {
	if _, err := s.prepare(req); err != nil {
		return OverviewReport{}, err
	}

	var out OverviewReport
	var g errgroup.Group
	g.Go(func() error {
		var err error
		out.Revenue, err = s.Revenue(ctx, req)
		return err
	})
	g.Go(func() error {
		var err error
		out.Brands, err = s.Brands(ctx, req)
		return err
	})
	g.Go(func() error {
		var err error
		out.Lifecycle, err = s.Lifecycle(ctx, req)
		return err
	})
	if err := g.Wait(); err != nil {
		return OverviewReport{}, err
	}
	return out, nil
}

// WarmupRequest is the year-to-date overview request refreshed by the daily
// cache warm-up.
func (s *Service) WarmupRequest() ReportRequest {
	today := s.now().UTC()
	return ReportRequest{
		Filter: analytics.FilterSet{
			StartDate: time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC),
		},
		Refresh: true,
	}
}

// Warm recomputes the year-to-date overview and replaces its cached results.
// Degraded reports are not cached and are reported as an error.
func (s *Service) Warm(ctx context.Context) error {
	out, err := s.Overview(ctx, s.WarmupRequest())
	if err != nil {
		return err
	}
	var degraded []string
	for report, status := range map[string]Status{
		KindRevenue:   out.Revenue.Status,
		KindBrands:    out.Brands.Status,
		KindLifecycle: out.Lifecycle.Status,
	} {
		if !status.Cacheable() {
			degraded = append(degraded, report)
		}
	}
	if len(degraded) > 0 {
		sort.Strings(degraded)
		return fmt.Errorf("warm-up degraded: %s", strings.Join(degraded, ", "))
	}
	return nil
}
