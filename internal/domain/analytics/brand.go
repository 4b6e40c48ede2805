package analytics

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// BrandRow aggregates one brand over the filtered period.
type BrandRow struct {
	Brand           string          `json:"brand"`
	Revenue         decimal.Decimal `json:"revenue"`
	CostTotal       decimal.Decimal `json:"cost_total"`
	UniqueCustomers int64           `json:"unique_customers"`
	OrderCount      int64           `json:"order_count"`
	ItemQty         int64           `json:"item_qty"`
	SKUCount        int64           `json:"sku_count"`
	AvgTicket       decimal.Decimal `json:"avg_ticket"`
	MarkupPct       decimal.Decimal `json:"markup_pct"`
	Share           float64         `json:"share"`
}

// DeriveBrandMetrics fills average ticket, markup and share, and orders rows by
// revenue descending.
func DeriveBrandMetrics(rows []BrandRow) {
	for i := range rows {
		rows[i].AvgTicket = SafeAverage(rows[i].Revenue, rows[i].UniqueCustomers)
		rows[i].MarkupPct = MarkupPct(rows[i].Revenue, rows[i].CostTotal)
	}
	ApplyBrandShares(rows)
	slices.SortStableFunc(rows, func(a, b BrandRow) int {
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(a.Brand, b.Brand)
	})
}

// ApplyBrandShares sets Share = revenue / total revenue. With a non-positive
// total every share is 0.
func ApplyBrandShares(rows []BrandRow) {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Revenue)
	}
	for i := range rows {
		if !total.IsPositive() {
			rows[i].Share = 0
			continue
		}
		rows[i].Share = rows[i].Revenue.Div(total).InexactFloat64()
	}
}
