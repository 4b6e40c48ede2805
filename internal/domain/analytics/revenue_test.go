package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMarkupPct(t *testing.T) {
	tests := []struct {
		name      string
		net, cost string
		want      string
	}{
		{"positive markup", "150", "100", "50"},
		{"rounded to two places", "100", "30", "233.33"},
		{"negative markup", "80", "100", "-20"},
		{"zero cost", "100", "0", "0"},
		{"negative cost", "100", "-5", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MarkupPct(dec(tt.net), dec(tt.cost))
			assert.True(t, dec(tt.want).Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestDeriveRevenueMetrics(t *testing.T) {
	rows := []MonthlyRevenueRow{
		{Month: date(2024, 1, 1), NetRevenue: dec("1000"), CostTotal: dec("400"), UniqueCustomers: 3, OrderCount: 4},
		{Month: date(2024, 2, 1), NetRevenue: dec("500"), CostTotal: decimal.Zero},
	}

	DeriveRevenueMetrics(rows)

	assert.True(t, dec("333.33").Equal(rows[0].AvgTicketPerCustomer))
	assert.True(t, dec("250").Equal(rows[0].AvgTicketPerOrder))
	assert.True(t, dec("150").Equal(rows[0].MarkupPct))

	assert.True(t, rows[1].AvgTicketPerCustomer.IsZero(), "no customers means a zero average")
	assert.True(t, rows[1].AvgTicketPerOrder.IsZero())
	assert.True(t, rows[1].MarkupPct.IsZero(), "no cost means zero markup")
}

func TestFillRevenueMonths(t *testing.T) {
	months := MonthRange(date(2024, 1, 1), date(2024, 3, 31))

	t.Run("aggregate series", func(t *testing.T) {
		rows := []MonthlyRevenueRow{
			{Month: date(2024, 3, 1), NetRevenue: dec("30"), UniqueCustomers: 1},
			{Month: date(2024, 1, 1), NetRevenue: dec("10"), UniqueCustomers: 2},
		}

		filled := FillRevenueMonths(rows, months)

		require.Len(t, filled, 3)
		assert.Equal(t, date(2024, 1, 1), filled[0].Month)
		assert.Equal(t, date(2024, 2, 1), filled[1].Month)
		assert.True(t, filled[1].NetRevenue.IsZero())
		assert.Equal(t, int64(0), filled[1].UniqueCustomers)
		assert.Equal(t, date(2024, 3, 1), filled[2].Month)
	})

	t.Run("per employee", func(t *testing.T) {
		rows := []MonthlyRevenueRow{
			{Month: date(2024, 1, 1), Employee: "Ana", EmployeeCode: "1"},
			{Month: date(2024, 2, 1), Employee: "Bruno", EmployeeCode: "2"},
		}

		filled := FillRevenueMonths(rows, months)

		require.Len(t, filled, 6)
		for i, m := range months {
			assert.Equal(t, m, filled[2*i].Month)
			assert.Equal(t, "Ana", filled[2*i].Employee)
			assert.Equal(t, "Bruno", filled[2*i+1].Employee)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		filled := FillRevenueMonths(nil, months)
		require.Len(t, filled, 3)
		assert.Empty(t, filled[0].Employee)
	})
}

func TestCollapseEmployees(t *testing.T) {
	rows := []MonthlyRevenueRow{
		{Month: date(2024, 1, 1), Employee: "Ana", NetRevenue: dec("100"), CostTotal: dec("50"), OrderCount: 1},
		{Month: date(2024, 1, 1), Employee: "Bruno", NetRevenue: dec("200"), CostTotal: dec("100"), OrderCount: 2},
		{Month: date(2024, 2, 1), Employee: "Ana", NetRevenue: dec("10"), OrderCount: 1},
	}

	out := CollapseEmployees(rows)

	require.Len(t, out, 2)
	assert.True(t, dec("300").Equal(out[0].NetRevenue))
	assert.Equal(t, int64(3), out[0].OrderCount)
	assert.True(t, dec("100").Equal(out[0].MarkupPct))
	assert.Empty(t, out[0].Employee)
	assert.Equal(t, date(2024, 2, 1), out[1].Month)
}

func TestComputeRevenueKPIs(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, ok := ComputeRevenueKPIs(nil)
		assert.False(t, ok)
	})

	t.Run("latest month with delta", func(t *testing.T) {
		rows := []MonthlyRevenueRow{
			{Month: date(2024, 1, 1), NetRevenue: dec("1000")},
			{Month: date(2024, 2, 1), GrossRevenue: dec("1500"), NetRevenue: dec("1200"), Discount: dec("300"),
				BonusAdjustment: dec("60"), CostTotal: dec("800"), UniqueCustomers: 12},
		}

		k, ok := ComputeRevenueKPIs(rows)

		require.True(t, ok)
		assert.Equal(t, date(2024, 2, 1), k.Month)
		assert.True(t, dec("20").Equal(k.DiscountPct))
		assert.True(t, dec("5").Equal(k.BonusPct))
		assert.True(t, dec("50").Equal(k.MarkupPct))
		assert.True(t, dec("1.5").Equal(k.MarkupMultiplier))
		require.NotNil(t, k.NetRevenueDelta)
		assert.True(t, dec("20").Equal(*k.NetRevenueDelta))
	})

	t.Run("no delta when previous month is zero", func(t *testing.T) {
		rows := []MonthlyRevenueRow{
			{Month: date(2024, 1, 1)},
			{Month: date(2024, 2, 1), NetRevenue: dec("10")},
		}
		k, ok := ComputeRevenueKPIs(rows)
		require.True(t, ok)
		assert.Nil(t, k.NetRevenueDelta)
	})
}

func TestApplyBrandShares(t *testing.T) {
	t.Run("shares sum to one", func(t *testing.T) {
		rows := []BrandRow{
			{Brand: "A", Revenue: dec("333.33")},
			{Brand: "B", Revenue: dec("333.33")},
			{Brand: "C", Revenue: dec("333.34")},
			{Brand: "D", Revenue: dec("0")},
		}

		ApplyBrandShares(rows)

		var sum float64
		for _, r := range rows {
			sum += r.Share
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
		assert.Zero(t, rows[3].Share)
	})

	t.Run("zero total", func(t *testing.T) {
		rows := []BrandRow{{Brand: "A"}, {Brand: "B"}}
		ApplyBrandShares(rows)
		assert.Zero(t, rows[0].Share)
		assert.Zero(t, rows[1].Share)
	})
}

func TestDeriveBrandMetrics(t *testing.T) {
	rows := []BrandRow{
		{Brand: "SMALL", Revenue: dec("100"), CostTotal: dec("50"), UniqueCustomers: 2},
		{Brand: "BIG", Revenue: dec("900"), CostTotal: dec("0"), UniqueCustomers: 0},
	}

	DeriveBrandMetrics(rows)

	assert.Equal(t, "BIG", rows[0].Brand)
	assert.InDelta(t, 0.9, rows[0].Share, 1e-9)
	assert.True(t, rows[0].MarkupPct.IsZero())
	assert.True(t, rows[0].AvgTicket.IsZero())
	assert.True(t, dec("100").Equal(rows[1].MarkupPct))
	assert.True(t, dec("50").Equal(rows[1].AvgTicket))
}

func TestSortRevenueRows(t *testing.T) {
	rows := []MonthlyRevenueRow{
		{Month: date(2024, 2, 1), Employee: "A"},
		{Month: date(2024, 1, 1), Employee: "B"},
		{Month: date(2024, 1, 1), Employee: "A"},
	}
	SortRevenueRows(rows)
	assert.Equal(t, []time.Time{date(2024, 1, 1), date(2024, 1, 1), date(2024, 2, 1)},
		[]time.Time{rows[0].Month, rows[1].Month, rows[2].Month})
	assert.Equal(t, "A", rows[0].Employee)
}
