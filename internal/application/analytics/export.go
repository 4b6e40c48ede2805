package analytics

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salesinsight/backend/internal/domain/analytics"
	"github.com/salesinsight/backend/internal/domain/shared"
)

var (
	// ErrExportDisabled is returned when no object store is configured.
	ErrExportDisabled = shared.NewDomainError("EXPORT_DISABLED", "Report export is not enabled")
	// ErrUnknownReport is returned for an export of an unknown report kind.
	ErrUnknownReport = shared.NewDomainError("UNKNOWN_REPORT", "Unknown report kind")
	// ErrNothingToExport is returned when the report produced no rows.
	ErrNothingToExport = shared.NewDomainError("NOTHING_TO_EXPORT", "Report has no data to export")
)

// ObjectStore persists rendered reports and presigns downloads.
type ObjectStore interface {
	Key(name string) string
	Put(ctx context.Context, key string, data []byte, contentType string) error
	DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// ExportRequest selects the report to export.
type ExportRequest struct {
	Kind string
	ReportRequest
}

// ExportResult locates an exported report.
type ExportResult struct {
	Kind      string    `json:"kind"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Rows      int       `json:"rows"`
}

// Exporter renders reports to CSV and stores them.
type Exporter struct {
	service *Service
	store   ObjectStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewExporter creates an Exporter. A nil store disables exports.
func NewExporter(service *Service, store ObjectStore, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{service: service, store: store, logger: logger, now: time.Now}
}

// Enabled reports whether exports can be stored.
func (e *Exporter) Enabled() bool {
	return e != nil && e.store != nil
}

// ExportKinds lists the report kinds that can be exported.
func ExportKinds() []string {
	return []string{KindRevenue, KindBrands, KindRFMSummary, KindRFMCustomers, KindLifecycle}
}

// Export computes the report, renders it and uploads it.
func (e *Exporter) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if !e.Enabled() {
		return nil, ErrExportDisabled
	}
	records, status, err := e.render(ctx, req)
	if err != nil {
		return nil, err
	}
	if status != StatusOK || len(records) <= 1 {
		return nil, fmt.Errorf("%w: %s is %s", ErrNothingToExport, req.Kind, status)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("render %s csv: %w", req.Kind, err)
	}

	name := fmt.Sprintf("%s/%s-%s.csv", req.Kind, e.now().UTC().Format("20060102"), uuid.NewString())
	key := e.store.Key(name)
	if err := e.store.Put(ctx, key, buf.Bytes(), "text/csv; charset=utf-8"); err != nil {
		return nil, err
	}
	url, expiresAt, err := e.store.DownloadURL(ctx, key, 0)
	if err != nil {
		return nil, err
	}
	e.logger.Info("Report exported",
		zap.String("report", req.Kind),
		zap.String("key", key),
		zap.Int("rows", len(records)-1),
	)
	return &ExportResult{Kind: req.Kind, Key: key, URL: url, ExpiresAt: expiresAt, Rows: len(records) - 1}, nil
}

func (e *Exporter) render(ctx context.Context, req ExportRequest) ([][]string, Status, error) {
	switch req.Kind {
	case KindRevenue:
		res, err := e.service.Revenue(ctx, req.ReportRequest)
		if err != nil {
			return nil, "", err
		}
		return RevenueRecords(res.Data.Rows), res.Status, nil
	case KindBrands:
		res, err := e.service.Brands(ctx, req.ReportRequest)
		if err != nil {
			return nil, "", err
		}
		return BrandRecords(res.Data.Rows), res.Status, nil
	case KindRFMSummary:
		res, err := e.service.RFMSummary(ctx, req.ReportRequest)
		if err != nil {
			return nil, "", err
		}
		return SegmentRecords(res.Data.Segments), res.Status, nil
	case KindRFMCustomers:
		res, err := e.service.RFMCustomers(ctx, req.ReportRequest)
		if err != nil {
			return nil, "", err
		}
		return CustomerRecords(res.Data.Customers), res.Status, nil
	case KindLifecycle:
		res, err := e.service.Lifecycle(ctx, req.ReportRequest)
		if err != nil {
			return nil, "", err
		}
		return LifecycleRecords(res.Data.Rows), res.Status, nil
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownReport, req.Kind)
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// RevenueRecords renders revenue rows with a header line.
func RevenueRecords(rows []analytics.MonthlyRevenueRow) [][]string {
	out := [][]string{{
		"month", "employee", "employee_code", "gross_revenue", "net_revenue", "discount",
		"bonus_adjustment", "cost_total", "markup_pct", "unique_customers", "order_count",
		"item_qty", "sku_count", "brand_count", "avg_ticket_per_customer", "avg_ticket_per_order",
	}}
	for _, r := range rows {
		out = append(out, []string{
			r.Month.Format(analytics.DateLayout), r.Employee, r.EmployeeCode,
			r.GrossRevenue.StringFixed(2), r.NetRevenue.StringFixed(2), r.Discount.StringFixed(2),
			r.BonusAdjustment.StringFixed(2), r.CostTotal.StringFixed(2), r.MarkupPct.StringFixed(2),
			itoa(r.UniqueCustomers), itoa(r.OrderCount), itoa(r.ItemQty), itoa(r.SKUCount), itoa(r.BrandCount),
			r.AvgTicketPerCustomer.StringFixed(2), r.AvgTicketPerOrder.StringFixed(2),
		})
	}
	return out
}

// BrandRecords renders brand rows with a header line.
func BrandRecords(rows []analytics.BrandRow) [][]string {
	out := [][]string{{
		"brand", "revenue", "share", "cost_total", "markup_pct", "unique_customers",
		"order_count", "item_qty", "sku_count", "avg_ticket",
	}}
	for _, r := range rows {
		out = append(out, []string{
			r.Brand, r.Revenue.StringFixed(2), strconv.FormatFloat(r.Share, 'f', 4, 64),
			r.CostTotal.StringFixed(2), r.MarkupPct.StringFixed(2), itoa(r.UniqueCustomers),
			itoa(r.OrderCount), itoa(r.ItemQty), itoa(r.SKUCount), r.AvgTicket.StringFixed(2),
		})
	}
	return out
}

// SegmentRecords renders the RFM summary with a header line.
func SegmentRecords(rows []analytics.RFMSegmentSummary) [][]string {
	out := [][]string{{
		"segment", "segment_label", "channel", "region", "customer_count", "total_value",
		"avg_value", "avg_r_score", "avg_f_score", "avg_m_score",
	}}
	for _, r := range rows {
		out = append(out, []string{
			string(r.Segment), r.Segment.Label(), r.Channel, r.Region, itoa(r.CustomerCount),
			r.TotalValue.StringFixed(2), r.AvgValue.StringFixed(2),
			strconv.FormatFloat(r.AvgRScore, 'f', 2, 64),
			strconv.FormatFloat(r.AvgFScore, 'f', 2, 64),
			strconv.FormatFloat(r.AvgMScore, 'f', 2, 64),
		})
	}
	return out
}

// CustomerRecords renders scored customers with a header line.
func CustomerRecords(rows []analytics.RFMCustomerScore) [][]string {
	out := [][]string{{
		"customer_code", "customer_name", "channel", "region", "recency", "frequency",
		"monetary", "avg_ticket", "rfm_score", "segment",
	}}
	for _, r := range rows {
		out = append(out, []string{
			r.CustomerCode, r.CustomerName, r.Channel, r.Region, itoa(r.Recency), itoa(r.Frequency),
			r.Monetary.StringFixed(2), r.AvgTicket.StringFixed(2), r.Score, string(r.Segment),
		})
	}
	return out
}

// LifecycleRecords renders zero-filled lifecycle rows with a header line.
func LifecycleRecords(rows []analytics.LifecycleMonthRow) [][]string {
	out := [][]string{{"month", "status", "count"}}
	for _, r := range rows {
		out = append(out, []string{r.Month.Format(analytics.DateLayout), string(r.Status), itoa(r.Count)})
	}
	return out
}
