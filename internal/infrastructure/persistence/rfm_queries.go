package persistence

import (
	"context"

	"github.com/salesinsight/backend/internal/domain/analytics"
	"github.com/salesinsight/backend/internal/infrastructure/query"
)

const reportCustomerProfiles = "rfm_customers"

var customerProfileColumns = []string{
	"cod_cliente", "canal_venda", "regiao", "recencia", "frequencia", "monetario", "ticket_medio",
}

// CustomerProfiles returns the customer profile rows RFM scoring runs over.
// Scoring happens in Go so both profiles share a single statement.
func (r *AnalyticsRepository) CustomerProfiles(ctx context.Context, filter analytics.FilterSet) ([]analytics.CustomerProfile, error) {
	tbl, err := r.run(ctx, r.customerProfileStatement(filter), customerProfileColumns...)
	if err != nil {
		return nil, err
	}

	out := make([]analytics.CustomerProfile, 0, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		row := tbl.Row(i)
		recency := int64(-1)
		if !row.IsNull("recencia") {
			recency = row.Int("recencia")
		}
		out = append(out, analytics.CustomerProfile{
			CustomerCode:    row.String("cod_cliente"),
			CustomerName:    row.String("nome_cliente"),
			Channel:         row.String("canal_venda"),
			Region:          row.String("regiao"),
			Recency:         recency,
			Frequency:       row.Int("frequencia"),
			Monetary:        row.Decimal("monetario"),
			AvgTicket:       row.Decimal("ticket_medio"),
			BestMonth:       row.String("mes_ultima_compra"),
			LifecycleMonths: row.Int("ciclo_vida"),
		})
	}
	return out, nil
}

func (r *AnalyticsRepository) customerProfileStatement(filter analytics.FilterSet) query.Statement {
	filter = filter.Normalize()

	var b query.Builder
	b.Line("SELECT perfil.cod_cliente AS cod_cliente,")
	b.Line("  perfil.nome_cliente AS nome_cliente,")
	b.Line("  perfil.canal_venda AS canal_venda,")
	b.Line("  perfil.uf_empresa AS regiao,")
	b.Line("  perfil.recencia AS recencia,")
	b.Line("  perfil.positivacao AS frequencia,")
	b.Line("  perfil.monetario AS monetario,")
	b.Line("  perfil.ticket_medio_posit AS ticket_medio,")
	b.Line("  perfil.maior_mes AS mes_ultima_compra,")
	b.Line("  perfil.ciclo_vida AS ciclo_vida")
	b.Line("FROM " + r.table("vw_analise_perfil_cliente") + " perfil")
	b.Line("LEFT JOIN " + r.table("vw_distribuicao_cliente_vendedor") + " vendedor ON perfil.cod_cliente = vendedor.cod_cliente")
	b.Line("WHERE 1 = 1")
	b.Predicates(query.Compose(filter, profileColumns))
	b.Line("ORDER BY perfil.monetario DESC, perfil.canal_venda")
	return b.Build(reportCustomerProfiles)
}
