package persistence

import (
	"context"
	"slices"

	"github.com/salesinsight/backend/internal/domain/analytics"
	"github.com/salesinsight/backend/internal/infrastructure/query"
)

const (
	reportOptionDimensions    = "options_dimensions"
	reportOptionCollaborators = "options_collaborators"
)

var (
	// dimensionColumns restricts channel and region options to the period
	// and salesperson only, so selecting a channel never hides the others.
	dimensionColumns = query.NewColumnMap(query.ColumnMap{
		EmployeeCode: "empresa_pedido.cod_colaborador_atual",
		Date:         "pedidos.dt_faturamento",
	})
	collaboratorColumns = query.NewColumnMap(query.ColumnMap{
		Date:    "pedidos.dt_faturamento",
		Channel: "pedidos.canal_venda",
		Region:  "empresa_pedido.uf_empresa_faturamento",
	})
)

// FilterOptions lists the channels, regions and collaborators that have
// orders in the filtered period.
func (r *AnalyticsRepository) FilterOptions(ctx context.Context, filter analytics.FilterSet) (analytics.FilterOptions, error) {
	filter = filter.Normalize()
	var opts analytics.FilterOptions

	var b query.Builder
	b.Line("SELECT DISTINCT pedidos.canal_venda AS canal_venda, empresa_pedido.uf_empresa_faturamento AS uf")
	b.Line("FROM " + r.table("vw_distribuicao_pedidos") + " pedidos")
	b.Line("LEFT JOIN " + r.table("vw_distribuicao_empresa_pedido") + " empresa_pedido ON pedidos.cod_pedido = empresa_pedido.cod_pedido")
	b.Line("WHERE 1 = 1")
	b.Predicates(query.Compose(filter, dimensionColumns))
	tbl, err := r.run(ctx, b.Build(reportOptionDimensions), "canal_venda", "uf")
	if err != nil {
		return opts, err
	}
	for i := 0; i < tbl.Len(); i++ {
		row := tbl.Row(i)
		if v := row.String("canal_venda"); v != "" {
			opts.Channels = append(opts.Channels, v)
		}
		if v := row.String("uf"); v != "" {
			opts.Regions = append(opts.Regions, v)
		}
	}
	opts.Channels = distinctSorted(opts.Channels)
	opts.Regions = distinctSorted(opts.Regions)

	var cb query.Builder
	cb.Line("SELECT DISTINCT empresa_pedido.nome_colaborador_atual AS nome_colaborador,")
	cb.Line("  empresa_pedido.cod_colaborador_atual AS cod_colaborador")
	cb.Line("FROM " + r.table("vw_distribuicao_pedidos") + " pedidos")
	cb.Line("LEFT JOIN " + r.table("vw_distribuicao_empresa_pedido") + " empresa_pedido ON pedidos.cod_pedido = empresa_pedido.cod_pedido")
	cb.Line("WHERE empresa_pedido.cod_colaborador_atual IS NOT NULL")
	cb.Predicates(query.Compose(filter, collaboratorColumns))
	cb.Line("ORDER BY nome_colaborador")
	tbl, err = r.run(ctx, cb.Build(reportOptionCollaborators), "nome_colaborador", "cod_colaborador")
	if err != nil {
		return opts, err
	}
	for i := 0; i < tbl.Len(); i++ {
		row := tbl.Row(i)
		opts.Collaborators = append(opts.Collaborators, analytics.Collaborator{
			Code: row.String("cod_colaborador"),
			Name: row.String("nome_colaborador"),
		})
	}
	return opts, nil
}

func distinctSorted(values []string) []string {
	slices.Sort(values)
	return slices.Compact(values)
}
