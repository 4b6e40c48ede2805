package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/salesinsight/backend/internal/domain/analytics"
	"github.com/salesinsight/backend/internal/infrastructure/query"
)

const (
	reportLifecycle       = "lifecycle_counts"
	reportPurchaseHistory = "purchase_history"
)

var (
	lifecycleColumns       = []string{"mes", "status", "qtd"}
	purchaseHistoryColumns = []string{"cod_cliente", "dt_compra"}
)

// LifecycleCounts classifies customers per month inside the engine. The rules
// match analytics.ClassifyLifecycle: statuses are derived from the complete
// purchase history up to the last month, so the date range only selects the
// months reported.
func (r *AnalyticsRepository) LifecycleCounts(ctx context.Context, filter analytics.FilterSet, months []time.Time) ([]analytics.LifecycleMonthRow, error) {
	if len(months) == 0 {
		return nil, nil
	}
	tbl, err := r.run(ctx, r.lifecycleStatement(filter, months), lifecycleColumns...)
	if err != nil {
		return nil, err
	}

	rows := make([]analytics.LifecycleMonthRow, 0, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		row := tbl.Row(i)
		status := analytics.LifecycleStatus(row.String("status"))
		if !status.Valid() {
			continue
		}
		if n := row.Int("qtd"); n > 0 {
			rows = append(rows, analytics.LifecycleMonthRow{
				Month:  analytics.MonthStart(row.Date("mes")),
				Status: status,
				Count:  n,
			})
		}
	}
	analytics.SortLifecycleRows(rows)
	return rows, nil
}

// writePurchases writes a relation of distinct (cod_cliente, dt_compra)
// qualifying purchase days before the end of the last month.
func (r *AnalyticsRepository) writePurchases(b *query.Builder, filter analytics.FilterSet, until time.Time) {
	// The history is unbounded below: "new" depends on the first purchase ever.
	history := filter
	history.StartDate, history.EndDate = time.Time{}, time.Time{}

	b.Line("SELECT DISTINCT pedidos.cpfcnpj AS cod_cliente, " + query.AsDate("pedidos.dt_faturamento") + " AS dt_compra")
	r.writeOrderSources(b)
	writeSaleConditions(b)
	b.Line("  AND pedidos.cpfcnpj IS NOT NULL")
	b.Line("  AND "+query.AsDate("pedidos.dt_faturamento")+" < CAST(? AS DATE)", until.Format(analytics.DateLayout))
	b.Predicates(query.Compose(history, orderColumns))
}

func (r *AnalyticsRepository) lifecycleStatement(filter analytics.FilterSet, months []time.Time) query.Statement {
	filter = filter.Normalize()
	d := r.dialect
	first := analytics.MonthStart(months[0])
	last := analytics.MonthStart(months[len(months)-1])
	window := analytics.ChurnWindowDays
	churnMonth := d.AddMonths(query.TruncMonth(d.AddDays("dt_compra", window)), 1)
	monthEnd := d.AddMonths("m.mes", 1)

	var b query.Builder
	b.Line("WITH meses AS (")
	b.Line("SELECT mes FROM "+d.MonthSeries()+" serie", first.Format(analytics.DateLayout), last.Format(analytics.DateLayout))
	b.Line("),")
	b.Line("compras AS (")
	r.writePurchases(&b, filter, last.AddDate(0, 1, 0))
	b.Line("),")
	b.Line("sequencia AS (")
	b.Line("SELECT cod_cliente, dt_compra,")
	b.Line("  LAG(dt_compra) OVER (PARTITION BY cod_cliente ORDER BY dt_compra) AS anterior,")
	b.Line("  LEAD(dt_compra) OVER (PARTITION BY cod_cliente ORDER BY dt_compra) AS proxima")
	b.Line("FROM compras")
	b.Line("),")
	b.Line("eventos AS (")
	b.Line("SELECT cod_cliente, " + query.TruncMonth("MIN(dt_compra)") + " AS mes, '" + string(analytics.StatusNew) + "' AS status")
	b.Line("FROM compras GROUP BY cod_cliente")
	b.Line("UNION ALL")
	b.Line("SELECT cod_cliente, " + churnMonth + " AS mes, '" + string(analytics.StatusChurned) + "' AS status")
	b.Line("FROM sequencia WHERE proxima IS NULL OR proxima > " + churnMonth)
	b.Line("UNION ALL")
	b.Line("SELECT cod_cliente, " + query.TruncMonth("dt_compra") + " AS mes,")
	b.Line("  CASE WHEN dt_compra > " + d.AddDays("anterior", window) +
		" THEN '" + string(analytics.StatusRecovered) + "' ELSE '" + string(analytics.StatusReactivated) + "' END AS status")
	b.Line("FROM sequencia WHERE anterior IS NOT NULL AND dt_compra > " + d.AddDays("anterior", analytics.ReactivationGapDays))
	b.Line("),")
	b.Line("ativos AS (")
	b.Line("SELECT DISTINCT cod_cliente, " + query.TruncMonth("dt_compra") + " AS mes FROM compras")
	b.Line(")")
	b.Line("SELECT m.mes, e.status, COUNT(DISTINCT e.cod_cliente) AS qtd")
	b.Line("FROM meses m JOIN eventos e ON e.mes = m.mes")
	b.Line("GROUP BY m.mes, e.status")
	b.Line("UNION ALL")
	b.Line("SELECT m.mes, '" + string(analytics.StatusActive) + "' AS status, COUNT(DISTINCT a.cod_cliente) AS qtd")
	b.Line("FROM meses m JOIN ativos a ON a.mes = m.mes")
	b.Line("WHERE NOT EXISTS (SELECT 1 FROM eventos e WHERE e.cod_cliente = a.cod_cliente AND e.mes = a.mes)")
	b.Line("GROUP BY m.mes")
	b.Line("UNION ALL")
	b.Line("SELECT m.mes, '" + string(analytics.StatusBase) + "' AS status, COUNT(DISTINCT c.cod_cliente) AS qtd")
	b.Line("FROM meses m JOIN compras c ON c.dt_compra >= " + d.AddDays(monthEnd, -window) + " AND c.dt_compra < " + monthEnd)
	b.Line("GROUP BY m.mes")
	b.Line("ORDER BY 1, 2")
	return b.Build(reportLifecycle)
}

// PurchaseHistory returns every qualifying purchase day of the customers
// selected by filter, up to the end of the filter's last month.
func (r *AnalyticsRepository) PurchaseHistory(ctx context.Context, filter analytics.FilterSet) ([]analytics.Purchase, error) {
	filter = filter.Normalize()
	if filter.EndDate.IsZero() {
		return nil, fmt.Errorf("%w: end_date is required for purchase history", analytics.ErrInvalidFilter)
	}

	var b query.Builder
	r.writePurchases(&b, filter, analytics.MonthStart(filter.EndDate).AddDate(0, 1, 0))
	b.Line("ORDER BY cod_cliente, dt_compra")

	tbl, err := r.run(ctx, b.Build(reportPurchaseHistory), purchaseHistoryColumns...)
	if err != nil {
		return nil, err
	}

	out := make([]analytics.Purchase, 0, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		row := tbl.Row(i)
		out = append(out, analytics.Purchase{
			CustomerCode: row.String("cod_cliente"),
			Date:         row.Date("dt_compra"),
		})
	}
	return out, nil
}
