package persistence

import (
	"context"

	"github.com/salesinsight/backend/internal/domain/analytics"
	"github.com/salesinsight/backend/internal/infrastructure/query"
)

const (
	reportRevenue = "revenue_monthly"
	reportBrands  = "brand_breakdown"
)

var (
	revenueColumns = []string{
		"mes_ref", "faturamento_bruto", "faturamento_liquido", "desconto", "valor_bonificacao",
		"custo_total", "positivacao", "qtd_pedido", "qtd_itens", "qtd_sku", "qtd_marcas",
	}
	revenueEmployeeColumns = []string{"vendedor", "cod_colaborador"}

	brandColumns = []string{
		"marca", "faturamento", "custo_total", "clientes_unicos", "qtd_pedido", "qtd_itens", "qtd_sku",
	}
)

// MonthlyRevenue returns monthly net sales with the bonus adjustment joined.
// Ticket averages and markup are derived afterwards in Go.
func (r *AnalyticsRepository) MonthlyRevenue(ctx context.Context, filter analytics.FilterSet) ([]analytics.MonthlyRevenueRow, error) {
	st := r.revenueStatement(filter)

	required := revenueColumns
	perEmployee := filter.HasEmployeeBreakdown()
	if perEmployee {
		required = append(append([]string{}, revenueColumns...), revenueEmployeeColumns...)
	}
	tbl, err := r.run(ctx, st, required...)
	if err != nil {
		return nil, err
	}

	rows := make([]analytics.MonthlyRevenueRow, 0, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		row := tbl.Row(i)
		rr := analytics.MonthlyRevenueRow{
			Month:           analytics.MonthStart(row.Date("mes_ref")),
			GrossRevenue:    row.Decimal("faturamento_bruto"),
			NetRevenue:      row.Decimal("faturamento_liquido"),
			Discount:        row.Decimal("desconto"),
			BonusAdjustment: row.Decimal("valor_bonificacao"),
			CostTotal:       row.Decimal("custo_total"),
			UniqueCustomers: row.Int("positivacao"),
			OrderCount:      row.Int("qtd_pedido"),
			ItemQty:         row.Int("qtd_itens"),
			SKUCount:        row.Int("qtd_sku"),
			BrandCount:      row.Int("qtd_marcas"),
		}
		if perEmployee {
			rr.Employee = row.String("vendedor")
			rr.EmployeeCode = row.String("cod_colaborador")
		}
		rows = append(rows, rr)
	}
	analytics.DeriveRevenueMetrics(rows)
	analytics.SortRevenueRows(rows)
	return rows, nil
}

// revenueStatement renders the bonus aggregate and the net sales aggregate,
// grouped identically and joined by month (and salesperson when broken out).
func (r *AnalyticsRepository) revenueStatement(filter analytics.FilterSet) query.Statement {
	filter = filter.Normalize()
	preds := query.Compose(filter, orderColumns)
	perEmployee := filter.HasEmployeeBreakdown()

	month := query.TruncMonth("pedidos.dt_faturamento")
	groupBy := month
	employeeSelect := ""
	if perEmployee {
		employeeSelect = "empresa_pedido.nome_colaborador_atual AS vendedor, empresa_pedido.cod_colaborador_atual AS cod_colaborador, "
		groupBy += ", empresa_pedido.nome_colaborador_atual, empresa_pedido.cod_colaborador_atual"
	}

	var b query.Builder
	b.Line("WITH bonificacao AS (")
	b.Line("  SELECT " + month + " AS mes_ref, " + employeeSelect)
	b.Line("    ROUND(SUM(item_pedidos.preco_total / COALESCE(fat.fator, 1)), 2) AS valor_bonificacao")
	r.writeOrderSources(&b)
	b.Line("LEFT JOIN (")
	b.Line("  SELECT bon.cod_empresa, bon.mes_ref, bon.fator, UPPER(TRIM(marca.desc_abrev)) AS marca")
	b.Line("  FROM " + r.table("tbl_distribuicao_bonificacao") + " bon")
	b.Line("  JOIN " + r.table("tbl_varejo_marca") + " marca ON marca.cod_marca = bon.cod_marca")
	b.Line(") fat ON CAST(fat.cod_empresa AS VARCHAR) = empresa_pedido.cod_empresa_faturamento")
	b.Line("  AND " + query.AsDate("fat.mes_ref") + " = " + month)
	b.Line("  AND fat.marca = UPPER(TRIM(item_pedidos.marca))")
	b.Line("WHERE UPPER(pedidos.desc_abrev_cfop) = '" + bonusLabel + "'")
	b.Line("  AND pedidos.operacoes_internas = 'N'")
	b.Predicates(preds)
	b.Line("GROUP BY " + groupBy)
	b.Line("),")
	b.Line("vendas AS (")
	b.Line("  SELECT " + month + " AS mes_ref, " + employeeSelect)
	b.Line("    ROUND(SUM(item_pedidos.preco_total), 2) AS faturamento_bruto,")
	b.Line("    ROUND(SUM(item_pedidos.preco_desconto_rateado), 2) AS faturamento_liquido,")
	b.Line("    ROUND(SUM(item_pedidos.preco_total) - SUM(item_pedidos.preco_desconto_rateado), 2) AS desconto,")
	b.Line("    ROUND(SUM(COALESCE(custo.custo_medio, 0) * item_pedidos.qtd), 2) AS custo_total,")
	b.Line("    COUNT(DISTINCT pedidos.cpfcnpj) AS positivacao,")
	b.Line("    COUNT(DISTINCT pedidos.cod_pedido) AS qtd_pedido,")
	b.Line("    SUM(item_pedidos.qtd) AS qtd_itens,")
	b.Line("    COUNT(DISTINCT item_pedidos.cod_produto) AS qtd_sku,")
	b.Line("    COUNT(DISTINCT item_pedidos.marca) AS qtd_marcas")
	r.writeOrderSources(&b)
	r.writeCostJoin(&b, filter)
	writeSaleConditions(&b)
	b.Predicates(preds)
	b.Line("GROUP BY " + groupBy)
	b.Line(")")

	b.Write("SELECT v.mes_ref, ")
	if perEmployee {
		b.Write("v.vendedor, v.cod_colaborador, ")
	}
	b.Line("v.faturamento_bruto, v.faturamento_liquido, v.desconto,")
	b.Line("  COALESCE(b.valor_bonificacao, 0) AS valor_bonificacao,")
	b.Line("  v.custo_total, v.positivacao, v.qtd_pedido, v.qtd_itens, v.qtd_sku, v.qtd_marcas")
	b.Line("FROM vendas v")
	b.Write("LEFT JOIN bonificacao b ON v.mes_ref = b.mes_ref")
	if perEmployee {
		b.Write(" AND v.cod_colaborador = b.cod_colaborador")
	}
	b.Line("")
	if perEmployee {
		b.Line("ORDER BY v.mes_ref, v.vendedor")
	} else {
		b.Line("ORDER BY v.mes_ref")
	}
	return b.Build(reportRevenue)
}

// BrandBreakdown returns one row per brand ordered by revenue descending.
func (r *AnalyticsRepository) BrandBreakdown(ctx context.Context, filter analytics.FilterSet) ([]analytics.BrandRow, error) {
	tbl, err := r.run(ctx, r.brandStatement(filter), brandColumns...)
	if err != nil {
		return nil, err
	}

	rows := make([]analytics.BrandRow, 0, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		row := tbl.Row(i)
		rows = append(rows, analytics.BrandRow{
			Brand:           row.String("marca"),
			Revenue:         row.Decimal("faturamento"),
			CostTotal:       row.Decimal("custo_total"),
			UniqueCustomers: row.Int("clientes_unicos"),
			OrderCount:      row.Int("qtd_pedido"),
			ItemQty:         row.Int("qtd_itens"),
			SKUCount:        row.Int("qtd_sku"),
		})
	}
	analytics.DeriveBrandMetrics(rows)
	return rows, nil
}

func (r *AnalyticsRepository) brandStatement(filter analytics.FilterSet) query.Statement {
	filter = filter.Normalize()

	var b query.Builder
	b.Line("SELECT item_pedidos.marca AS marca,")
	b.Line("  ROUND(SUM(item_pedidos.preco_desconto_rateado), 2) AS faturamento,")
	b.Line("  ROUND(SUM(COALESCE(custo.custo_medio, 0) * item_pedidos.qtd), 2) AS custo_total,")
	b.Line("  COUNT(DISTINCT pedidos.cpfcnpj) AS clientes_unicos,")
	b.Line("  COUNT(DISTINCT pedidos.cod_pedido) AS qtd_pedido,")
	b.Line("  SUM(item_pedidos.qtd) AS qtd_itens,")
	b.Line("  COUNT(DISTINCT item_pedidos.cod_produto) AS qtd_sku")
	r.writeOrderSources(&b)
	r.writeCostJoin(&b, filter)
	writeSaleConditions(&b)
	b.Predicates(query.Compose(filter, orderColumns))
	b.Line("GROUP BY item_pedidos.marca")
	b.Line("ORDER BY faturamento DESC")
	return b.Build(reportBrands)
}
