package persistence

import (
	"strings"

	"github.com/salesinsight/backend/internal/domain/analytics"
	"github.com/salesinsight/backend/internal/infrastructure/query"
)

// saleLabels are the transaction classifications counted as sales.
var saleLabels = []string{
	"VENDA",
	"VENDA DE MERC.SUJEITA ST",
	"VENDA DE MERCADORIA P/ NÃO CONTRIBUINTE",
	"VENDA DO CONSIGNADO",
	"VENDA MERC. REC. TERCEIROS DESTINADA A ZONA FRANCA DE MANAUS",
	"VENDA MERC.ADQ. BRASIL FORA ESTADO",
	"VENDA MERCADORIA DENTRO DO ESTADO",
	"Venda de mercadoria sujeita ao regime de substituição tributária",
	"VENDA MERCADORIA FORA ESTADO",
	"VENDA MERC. SUJEITA AO REGIME DE ST",
}

// bonusLabel classifies bonus (free goods) shipments.
const bonusLabel = "BONIFICADO"

var (
	// orderColumns maps filters onto the order, item and billing company views.
	orderColumns = query.NewColumnMap(query.ColumnMap{
		EmployeeCode: "empresa_pedido.cod_colaborador_atual",
		Date:         "pedidos.dt_faturamento",
		Channel:      "pedidos.canal_venda",
		Region:       "empresa_pedido.uf_empresa_faturamento",
		Brand:        "item_pedidos.marca",
		EmployeeName: "empresa_pedido.nome_colaborador_atual",
	})

	// profileColumns maps filters onto the customer profile view. The view is
	// already aggregated over the customer's lifetime, so dates do not apply.
	profileColumns = query.NewColumnMap(query.ColumnMap{
		EmployeeCode: "vendedor.cod_colaborador_atual",
		Channel:      "perfil.canal_venda",
		Region:       "perfil.uf_empresa",
	})

	retailCostColumns = query.NewColumnMap(query.ColumnMap{Date: "cmv.dt_faturamento"})
	salonCostColumns  = query.NewColumnMap(query.ColumnMap{Date: "salao.dtvenda"})
)

// quoteLiterals renders constant labels as a SQL literal list.
func quoteLiterals(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return strings.Join(quoted, ", ")
}

// writeOrderSources writes the FROM clause shared by every order-level query.
func (r *AnalyticsRepository) writeOrderSources(b *query.Builder) {
	b.Line("FROM " + r.table("vw_distribuicao_pedidos") + " pedidos")
	b.Line("LEFT JOIN " + r.table("vw_distribuicao_item_pedidos") + " item_pedidos ON pedidos.cod_pedido = item_pedidos.cod_pedido")
	b.Line("LEFT JOIN " + r.table("vw_distribuicao_empresa_pedido") + " empresa_pedido ON pedidos.cod_pedido = empresa_pedido.cod_pedido")
}

// writeSaleConditions opens a WHERE restricted to recognized external sales.
func writeSaleConditions(b *query.Builder) {
	b.Line("WHERE pedidos.desc_abrev_cfop IN (" + quoteLiterals(saleLabels) + ")")
	b.Line("  AND pedidos.operacoes_internas = 'N'")
	b.Line("  AND pedidos.origem IN ('egestor', 'uno')")
}

// writeCostJoin joins the average unit cost per order, SKU and month. Unit
// costs are divided by the company, brand and month bonus factor when one
// exists. Salon costs only count where a factor exists.
func (r *AnalyticsRepository) writeCostJoin(b *query.Builder, fs analytics.FilterSet) {
	bonus := r.table("tbl_distribuicao_bonificacao")

	b.Line("LEFT JOIN (")
	b.Line("  SELECT cod_pedido, cod_produto, mes_ref, SUM(custo_medio) AS custo_medio")
	b.Line("  FROM (")
	b.Line("    SELECT cmv.cod_pedido, cmv.cod_produto, " + query.TruncMonth("cmv.dt_faturamento") + " AS mes_ref,")
	b.Line("      ROUND(SUM(cmv.qtd * (cmv.custo_unitario / COALESCE(fat.fator, 1))) / NULLIF(SUM(cmv.qtd), 0), 2) AS custo_medio")
	b.Line("    FROM " + r.table("tbl_varejo_cmv") + " cmv")
	b.Line("    LEFT JOIN " + bonus + " fat ON cmv.cod_marca = fat.cod_marca")
	b.Line("      AND cmv.cod_empresa = CAST(fat.cod_empresa AS VARCHAR)")
	b.Line("      AND " + query.TruncMonth("cmv.dt_faturamento") + " = " + query.AsDate("fat.mes_ref"))
	b.Line("    WHERE 1 = 1")
	b.Predicates(query.Compose(fs, retailCostColumns))
	b.Line("    GROUP BY cmv.cod_pedido, cmv.cod_produto, " + query.TruncMonth("cmv.dt_faturamento"))
	b.Line("    UNION ALL")
	b.Line("    SELECT salao.cod_pedido, salao.codprod, " + query.TruncMonth("salao.dtvenda") + " AS mes_ref,")
	b.Line("      ROUND(SUM(salao.quant * (salao.custo / fat.fator)) / NULLIF(SUM(salao.quant), 0), 2) AS custo_medio")
	b.Line("    FROM " + r.table("tbl_salao_pedidos_salao") + " salao")
	b.Line("    JOIN " + bonus + " fat ON " + query.TruncMonth("salao.dtvenda") + " = " + query.AsDate("fat.mes_ref"))
	b.Line("      AND (TRIM(UPPER(salao.categoria)) = TRIM(UPPER(fat.marca))")
	b.Line("        OR SUBSTRING(REPLACE(UPPER(salao.categoria), '-', ''), 1, 4) = UPPER(fat.marca))")
	b.Line("    WHERE fat.fator IS NOT NULL")
	b.Predicates(query.Compose(fs, salonCostColumns))
	b.Line("    GROUP BY salao.cod_pedido, salao.codprod, " + query.TruncMonth("salao.dtvenda"))
	b.Line("  ) cmv_aux")
	b.Line("  GROUP BY cod_pedido, cod_produto, mes_ref")
	b.Line(") custo ON pedidos.cod_pedido = custo.cod_pedido")
	b.Line("  AND item_pedidos.sku = custo.cod_produto")
	b.Line("  AND " + query.TruncMonth("pedidos.dt_faturamento") + " = custo.mes_ref")
}
