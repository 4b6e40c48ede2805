package analytics

import (
	"slices"
	"strconv"
	"time"

	"github.com/salesinsight/backend/internal/domain/analytics"
)

// MonthLabel is the x-axis label of a month.
const MonthLabel = "2006-01"

// Chart kinds.
const (
	ChartBar  = "bar"
	ChartLine = "line"
)

// ChartPoint is one x/y pair. A nil Y is an undefined value, drawn as a gap.
type ChartPoint struct {
	X string   `json:"x"`
	Y *float64 `json:"y"`
}

// ChartSeries is a named series ready for the dashboard charts.
type ChartSeries struct {
	Key    string       `json:"key"`
	Label  string       `json:"label"`
	Kind   string       `json:"kind"`
	Points []ChartPoint `json:"points"`
}

func value(v float64) *float64 { return &v }

// RevenueSeries builds the revenue chart: net, gross and bonus bars plus the
// markup line. Per-employee rows are collapsed per month.
func RevenueSeries(rows []analytics.MonthlyRevenueRow) []ChartSeries {
	monthly := analytics.CollapseEmployees(rows)
	series := []ChartSeries{
		{Key: "net_revenue", Label: "Faturamento líquido", Kind: ChartBar},
		{Key: "gross_revenue", Label: "Faturamento bruto", Kind: ChartBar},
		{Key: "bonus_adjustment", Label: "Bonificação", Kind: ChartBar},
		{Key: "markup_pct", Label: "Markup %", Kind: ChartLine},
	}
	for _, r := range monthly {
		x := r.Month.Format(MonthLabel)
		series[0].Points = append(series[0].Points, ChartPoint{X: x, Y: value(r.NetRevenue.InexactFloat64())})
		series[1].Points = append(series[1].Points, ChartPoint{X: x, Y: value(r.GrossRevenue.InexactFloat64())})
		series[2].Points = append(series[2].Points, ChartPoint{X: x, Y: value(r.BonusAdjustment.InexactFloat64())})
		series[3].Points = append(series[3].Points, ChartPoint{X: x, Y: value(r.MarkupPct.InexactFloat64())})
	}
	return series
}

// LifecycleCell is one month of a lifecycle status.
type LifecycleCell struct {
	Month   time.Time `json:"month"`
	Count   int64     `json:"count"`
	Percent *float64  `json:"percent"`
}

// LifecycleTableRow is one status across all months.
type LifecycleTableRow struct {
	Status analytics.LifecycleStatus `json:"status"`
	Label  string                    `json:"label"`
	Cells  []LifecycleCell           `json:"cells"`
}

// LifecycleTable lays the matrix out as status rows. Event statuses carry
// their share of the base; the base row carries counts only.
func LifecycleTable(mx analytics.LifecycleMatrix) []LifecycleTableRow {
	statuses := append(slices.Clone(analytics.EventStatuses), analytics.StatusBase)
	out := make([]LifecycleTableRow, 0, len(statuses))
	for _, st := range statuses {
		row := LifecycleTableRow{Status: st, Label: st.Label(), Cells: make([]LifecycleCell, 0, len(mx.Months))}
		for _, m := range mx.Months {
			cell := LifecycleCell{Month: m, Count: mx.Count(m, st)}
			if st != analytics.StatusBase {
				cell.Percent = mx.Percent(m, st)
			}
			row.Cells = append(row.Cells, cell)
		}
		out = append(out, row)
	}
	return out
}

// LifecycleSeries builds one share-of-base line per event status and a bar
// series for the base.
func LifecycleSeries(mx analytics.LifecycleMatrix) []ChartSeries {
	out := make([]ChartSeries, 0, len(analytics.EventStatuses)+1)
	for _, st := range analytics.EventStatuses {
		s := ChartSeries{Key: string(st), Label: st.Label(), Kind: ChartLine}
		for _, m := range mx.Months {
			s.Points = append(s.Points, ChartPoint{X: m.Format(MonthLabel), Y: mx.Percent(m, st)})
		}
		out = append(out, s)
	}
	base := ChartSeries{Key: string(analytics.StatusBase), Label: analytics.StatusBase.Label(), Kind: ChartBar}
	for _, m := range mx.Months {
		base.Points = append(base.Points, ChartPoint{X: m.Format(MonthLabel), Y: value(float64(mx.Count(m, analytics.StatusBase)))})
	}
	return append(out, base)
}

// HeatmapChart is the RFM heatmap with recency rows from 5 down to 1 and
// frequency columns from 1 to 5.
type HeatmapChart struct {
	RowLabels    []string  `json:"row_labels"`
	ColumnLabels []string  `json:"column_labels"`
	Cells        [][]int64 `json:"cells"`
	Max          int64     `json:"max"`
}

// NewHeatmapChart orients h for display.
func NewHeatmapChart(h analytics.RFMHeatmap) HeatmapChart {
	c := HeatmapChart{Max: h.Max()}
	for f := 1; f <= 5; f++ {
		c.ColumnLabels = append(c.ColumnLabels, "F"+strconv.Itoa(f))
	}
	for r := 5; r >= 1; r-- {
		c.RowLabels = append(c.RowLabels, "R"+strconv.Itoa(r))
		c.Cells = append(c.Cells, slices.Clone(h[r-1][:]))
	}
	return c
}
