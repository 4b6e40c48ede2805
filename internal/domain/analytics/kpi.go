package analytics

import (
	"time"

	"github.com/shopspring/decimal"
)

// RevenueKPIs are the headline cards for the latest month of a revenue series.
type RevenueKPIs struct {
	Month            time.Time        `json:"month"`
	GrossRevenue     decimal.Decimal  `json:"gross_revenue"`
	NetRevenue       decimal.Decimal  `json:"net_revenue"`
	DiscountPct      decimal.Decimal  `json:"discount_pct"`
	BonusPct         decimal.Decimal  `json:"bonus_pct"`
	MarkupPct        decimal.Decimal  `json:"markup_pct"`
	MarkupMultiplier decimal.Decimal  `json:"markup_multiplier"`
	UniqueCustomers  int64            `json:"unique_customers"`
	NetRevenueDelta  *decimal.Decimal `json:"net_revenue_delta_pct,omitempty"`
}

// Percent returns part/whole*100 rounded to 2 places, or 0 when whole <= 0.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

// ComputeRevenueKPIs summarizes the last month of a month-ordered, single-series
// revenue slice. It returns false when rows is empty.
func ComputeRevenueKPIs(rows []MonthlyRevenueRow) (RevenueKPIs, bool) {
	rows = CollapseEmployees(rows)
	if len(rows) == 0 {
		return RevenueKPIs{}, false
	}
	last := rows[len(rows)-1]
	markup := MarkupPct(last.NetRevenue, last.CostTotal)
	k := RevenueKPIs{
		Month:            last.Month,
		GrossRevenue:     last.GrossRevenue,
		NetRevenue:       last.NetRevenue,
		DiscountPct:      Percent(last.Discount, last.GrossRevenue),
		BonusPct:         Percent(last.BonusAdjustment, last.NetRevenue),
		MarkupPct:        markup,
		MarkupMultiplier: markup.Div(hundred).Add(decimal.NewFromInt(1)).Round(2),
		UniqueCustomers:  last.UniqueCustomers,
	}
	if len(rows) > 1 {
		prev := rows[len(rows)-2]
		if prev.NetRevenue.IsPositive() {
			d := last.NetRevenue.Sub(prev.NetRevenue).Div(prev.NetRevenue).Mul(hundred).Round(2)
			k.NetRevenueDelta = &d
		}
	}
	return k, true
}
