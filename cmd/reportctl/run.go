package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"

	appanalytics "github.com/salesinsight/backend/internal/application/analytics"
	"github.com/salesinsight/backend/internal/domain/analytics"
)

var defaultReports = []string{
	appanalytics.KindRevenue,
	appanalytics.KindBrands,
	appanalytics.KindRFMSummary,
	appanalytics.KindLifecycle,
}

// options is the parsed command line.
type options struct {
	request appanalytics.ReportRequest
	reports []string
	export  bool
	dryRun  bool
	quiet   bool
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("reportctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	start := fs.String("start", "", "first day of the period (YYYY-MM-DD)")
	end := fs.String("end", "", "last day of the period (YYYY-MM-DD)")
	reports := fs.String("reports", strings.Join(defaultReports, ","), "comma separated reports: "+strings.Join(appanalytics.ExportKinds(), ","))
	employee := fs.String("employee", "", "restrict to one employee code")
	channels := fs.String("channel", "", "comma separated channels")
	regions := fs.String("region", "", "comma separated regions")
	brands := fs.String("brand", "", "comma separated brands")
	names := fs.String("employee-name", "", "comma separated employee names")
	profile := fs.String("profile", "", "RFM profile: "+strings.Join(analytics.ProfileNames(), ", "))
	segments := fs.String("segment", "", "comma separated RFM segments for rfm_customers")
	export := fs.Bool("export", false, "export every report as CSV")
	dryRun := fs.Bool("dry-run", false, "export to memory instead of S3")
	quiet := fs.Bool("quiet", false, "hide the progress bar")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if *start == "" || *end == "" {
		return options{}, errors.New("-start and -end are required")
	}

	startDate, err := time.Parse(analytics.DateLayout, *start)
	if err != nil {
		return options{}, fmt.Errorf("invalid -start: %w", err)
	}
	endDate, err := time.Parse(analytics.DateLayout, *end)
	if err != nil {
		return options{}, fmt.Errorf("invalid -end: %w", err)
	}

	segs, err := appanalytics.ParseSegments(splitList(*segments))
	if err != nil {
		return options{}, err
	}

	opts := options{
		request: appanalytics.ReportRequest{
			Filter: analytics.FilterSet{
				EmployeeCode:  *employee,
				StartDate:     startDate,
				EndDate:       endDate,
				Channels:      splitList(*channels),
				Regions:       splitList(*regions),
				Brands:        splitList(*brands),
				EmployeeNames: splitList(*names),
			},
			Profile:  *profile,
			Segments: segs,
		},
		reports: splitList(*reports),
		export:  *export || *dryRun,
		dryRun:  *dryRun,
		quiet:   *quiet,
	}
	known := appanalytics.ExportKinds()
	for _, r := range opts.reports {
		if !contains(known, r) {
			return options{}, fmt.Errorf("unknown report %q", r)
		}
	}
	if len(opts.reports) == 0 {
		return options{}, errors.New("no reports selected")
	}
	return opts, opts.request.Filter.Validate()
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// runner computes reports and prints them as aligned tables.
type runner struct {
	service   *appanalytics.Service
	exporter  *appanalytics.Exporter
	formatter *appanalytics.Formatter
	out       io.Writer
	progress  io.Writer
}

// run prints every selected report. Degraded reports are printed with their
// status and make run return an error once all reports are done.
func (r *runner) run(ctx context.Context, opts options) error {
	bar := progressbar.NewOptions(len(opts.reports),
		progressbar.OptionSetWriter(r.progress),
		progressbar.OptionSetDescription("reports"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var failed []string
	for _, kind := range opts.reports {
		bar.Describe(kind)
		status, err := r.print(ctx, kind, opts.request)
		if err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
		if status != appanalytics.StatusOK && status != appanalytics.StatusNoData {
			failed = append(failed, kind)
		}
		if opts.export && status == appanalytics.StatusOK {
			res, err := r.exporter.Export(ctx, appanalytics.ExportRequest{Kind: kind, ReportRequest: opts.request})
			if err != nil {
				return fmt.Errorf("export %s: %w", kind, err)
			}
			fmt.Fprintf(r.out, "exported %d rows to %s\n%s\n", res.Rows, res.Key, res.URL)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	if len(failed) > 0 {
		return fmt.Errorf("degraded reports: %s", strings.Join(failed, ", "))
	}
	return nil
}

func (r *runner) header(title string, status appanalytics.Status, cached bool, warnings, missing []string) {
	line := fmt.Sprintf("== %s [%s]", title, status)
	if cached {
		line += " (cached)"
	}
	fmt.Fprintln(r.out, line)
	for _, w := range warnings {
		fmt.Fprintln(r.out, "warning:", w)
	}
	if len(missing) > 0 {
		fmt.Fprintln(r.out, "missing columns:", strings.Join(missing, ", "))
	}
}

func (r *runner) table(rows [][]string) {
	if len(rows) <= 1 {
		fmt.Fprintln(r.out)
		return
	}
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	_ = tw.Flush()
	fmt.Fprintln(r.out)
}

func (r *runner) print(ctx context.Context, kind string, req appanalytics.ReportRequest) (appanalytics.Status, error) {
	f := r.formatter
	switch kind {
	case appanalytics.KindRevenue:
		res, err := r.service.Revenue(ctx, req)
		if err != nil {
			return "", err
		}
		r.header("Revenue", res.Status, res.Cached, res.Warnings, res.MissingColumns)
		rows := [][]string{{"month", "net", "gross", "discount", "bonus", "markup", "customers", "orders"}}
		for _, m := range res.Data.Rows {
			markup := m.MarkupPct.InexactFloat64()
			rows = append(rows, []string{
				f.Month(m.Month), f.Currency(m.NetRevenue), f.Currency(m.GrossRevenue),
				f.Currency(m.Discount), f.Currency(m.BonusAdjustment), f.Percent(&markup, 1),
				f.Integer(m.UniqueCustomers), f.Integer(m.OrderCount),
			})
		}
		r.table(rows)
		return res.Status, nil

	case appanalytics.KindBrands:
		res, err := r.service.Brands(ctx, req)
		if err != nil {
			return "", err
		}
		r.header("Brands", res.Status, res.Cached, res.Warnings, res.MissingColumns)
		rows := [][]string{{"brand", "revenue", "share", "avg ticket", "customers"}}
		for _, b := range res.Data.Rows {
			var share *float64
			if res.Data.TotalRevenue.IsPositive() {
				v := b.Share * 100
				share = &v
			}
			rows = append(rows, []string{
				b.Brand, f.Currency(b.Revenue), f.Percent(share, 1),
				f.Currency(b.AvgTicket), f.Integer(b.UniqueCustomers),
			})
		}
		r.table(rows)
		return res.Status, nil

	case appanalytics.KindRFMSummary:
		res, err := r.service.RFMSummary(ctx, req)
		if err != nil {
			return "", err
		}
		r.header("RFM segments ("+res.Data.Profile+")", res.Status, res.Cached, res.Warnings, res.MissingColumns)
		rows := [][]string{{"segment", "channel", "region", "customers", "total", "average"}}
		for _, s := range res.Data.Segments {
			rows = append(rows, []string{
				s.Segment.Label(), s.Channel, s.Region,
				f.Integer(s.CustomerCount), f.Currency(s.TotalValue), f.Currency(s.AvgValue),
			})
		}
		r.table(rows)
		return res.Status, nil

	case appanalytics.KindRFMCustomers:
		res, err := r.service.RFMCustomers(ctx, req)
		if err != nil {
			return "", err
		}
		r.header("RFM customers ("+res.Data.Profile+")", res.Status, res.Cached, res.Warnings, res.MissingColumns)
		rows := [][]string{{"code", "customer", "score", "segment", "recency", "frequency", "monetary"}}
		for _, c := range res.Data.Customers {
			rows = append(rows, []string{
				c.CustomerCode, c.CustomerName, c.Score, c.Segment.Label(),
				f.Integer(c.Recency), f.Integer(c.Frequency), f.Currency(c.Monetary),
			})
		}
		r.table(rows)
		return res.Status, nil

	case appanalytics.KindLifecycle:
		res, err := r.service.Lifecycle(ctx, req)
		if err != nil {
			return "", err
		}
		r.header("Client lifecycle ("+res.Data.Mode+")", res.Status, res.Cached, res.Warnings, res.MissingColumns)
		rows := [][]string{{"month", "status", "clients"}}
		for _, row := range res.Data.Rows {
			rows = append(rows, []string{f.Month(row.Month), row.Status.Label(), f.Integer(row.Count)})
		}
		r.table(rows)
		return res.Status, nil
	}
	return "", fmt.Errorf("%w: %q", appanalytics.ErrUnknownReport, kind)
}
