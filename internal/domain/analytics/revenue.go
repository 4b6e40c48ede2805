package analytics

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MonthlyRevenueRow is one month (and optionally one salesperson) of revenue facts.
type MonthlyRevenueRow struct {
	Month                time.Time       `json:"month"`
	Employee             string          `json:"employee,omitempty"`
	EmployeeCode         string          `json:"employee_code,omitempty"`
	GrossRevenue         decimal.Decimal `json:"gross_revenue"`
	NetRevenue           decimal.Decimal `json:"net_revenue"`
	Discount             decimal.Decimal `json:"discount"`
	BonusAdjustment      decimal.Decimal `json:"bonus_adjustment"`
	CostTotal            decimal.Decimal `json:"cost_total"`
	UniqueCustomers      int64           `json:"unique_customers"`
	OrderCount           int64           `json:"order_count"`
	ItemQty              int64           `json:"item_qty"`
	SKUCount             int64           `json:"sku_count"`
	BrandCount           int64           `json:"brand_count"`
	AvgTicketPerCustomer decimal.Decimal `json:"avg_ticket_per_customer"`
	AvgTicketPerOrder    decimal.Decimal `json:"avg_ticket_per_order"`
	MarkupPct            decimal.Decimal `json:"markup_pct"`
}

// MarkupPct is (net - cost) / cost * 100 rounded to 2 places, or 0 when cost <= 0.
func MarkupPct(net, cost decimal.Decimal) decimal.Decimal {
	if !cost.IsPositive() {
		return decimal.Zero
	}
	return net.Sub(cost).Div(cost).Mul(hundred).Round(2)
}

// SafeAverage divides total by count rounded to 2 places, or 0 when count <= 0.
func SafeAverage(total decimal.Decimal, count int64) decimal.Decimal {
	if count <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(count)).Round(2)
}

// DeriveRevenueMetrics fills the ticket averages and markup of rows whose
// bonus adjustment has already been joined.
func DeriveRevenueMetrics(rows []MonthlyRevenueRow) {
	for i := range rows {
		r := &rows[i]
		r.AvgTicketPerCustomer = SafeAverage(r.NetRevenue, r.UniqueCustomers)
		r.AvgTicketPerOrder = SafeAverage(r.NetRevenue, r.OrderCount)
		r.MarkupPct = MarkupPct(r.NetRevenue, r.CostTotal)
	}
}

// SortRevenueRows orders rows by month, then employee name.
func SortRevenueRows(rows []MonthlyRevenueRow) {
	slices.SortStableFunc(rows, func(a, b MonthlyRevenueRow) int {
		if c := a.Month.Compare(b.Month); c != 0 {
			return c
		}
		return cmp.Compare(a.Employee, b.Employee)
	})
}

// FillRevenueMonths returns rows with a zero row for every month in months that
// has no data. When rows carry employees the fill happens per employee.
func FillRevenueMonths(rows []MonthlyRevenueRow, months []time.Time) []MonthlyRevenueRow {
	type employee struct{ name, code string }
	type slot struct {
		month time.Time
		emp   employee
	}

	present := make(map[slot]bool, len(rows))
	var employees []employee
	seen := make(map[employee]bool)
	for _, r := range rows {
		e := employee{r.Employee, r.EmployeeCode}
		present[slot{MonthStart(r.Month), e}] = true
		if !seen[e] {
			seen[e] = true
			employees = append(employees, e)
		}
	}
	if len(employees) == 0 {
		employees = []employee{{}}
	}

	out := slices.Clone(rows)
	for _, m := range months {
		m = MonthStart(m)
		for _, e := range employees {
			if present[slot{m, e}] {
				continue
			}
			out = append(out, MonthlyRevenueRow{Month: m, Employee: e.name, EmployeeCode: e.code})
		}
	}
	SortRevenueRows(out)
	return out
}

// RevenueTotals sums a set of monthly rows into a single period row.
// Counts of distinct entities are summed and therefore approximate across months.
func RevenueTotals(rows []MonthlyRevenueRow) MonthlyRevenueRow {
	var t MonthlyRevenueRow
	for _, r := range rows {
		t.GrossRevenue = t.GrossRevenue.Add(r.GrossRevenue)
		t.NetRevenue = t.NetRevenue.Add(r.NetRevenue)
		t.Discount = t.Discount.Add(r.Discount)
		t.BonusAdjustment = t.BonusAdjustment.Add(r.BonusAdjustment)
		t.CostTotal = t.CostTotal.Add(r.CostTotal)
		t.UniqueCustomers += r.UniqueCustomers
		t.OrderCount += r.OrderCount
		t.ItemQty += r.ItemQty
	}
	t.AvgTicketPerCustomer = SafeAverage(t.NetRevenue, t.UniqueCustomers)
	t.AvgTicketPerOrder = SafeAverage(t.NetRevenue, t.OrderCount)
	t.MarkupPct = MarkupPct(t.NetRevenue, t.CostTotal)
	return t
}

// CollapseEmployees merges per-employee rows into one row per month.
func CollapseEmployees(rows []MonthlyRevenueRow) []MonthlyRevenueRow {
	byMonth := make(map[time.Time][]MonthlyRevenueRow)
	var order []time.Time
	for _, r := range rows {
		m := MonthStart(r.Month)
		if _, ok := byMonth[m]; !ok {
			order = append(order, m)
		}
		byMonth[m] = append(byMonth[m], r)
	}
	out := make([]MonthlyRevenueRow, 0, len(order))
	for _, m := range order {
		t := RevenueTotals(byMonth[m])
		t.Month = m
		out = append(out, t)
	}
	SortRevenueRows(out)
	return out
}
