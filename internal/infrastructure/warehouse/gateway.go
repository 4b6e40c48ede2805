package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/salesinsight/backend/internal/infrastructure/query"
)

var _ query.Gateway = (*Gateway)(nil)

// Gateway executes statements on a database/sql connection pool.
type Gateway struct {
	db      *sql.DB
	dialect query.Dialect
}

// New builds a gateway over db using the Postgres dialect.
func New(db *sql.DB) *Gateway {
	return &Gateway{db: db, dialect: query.Postgres{}}
}

func (g *Gateway) Engine() string         { return "postgres" }
func (g *Gateway) Dialect() query.Dialect { return g.dialect }

// Query rebinds st for the driver, runs it and materializes every row.
// Text columns delivered as []byte are converted to string.
func (g *Gateway) Query(ctx context.Context, st query.Statement) (*query.Table, error) {
	rows, err := g.db.QueryContext(ctx, g.dialect.Rebind(st.SQL), st.Args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", st.Name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query %s: read columns: %w", st.Name, err)
	}

	var data [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("query %s: scan: %w", st.Name, err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", st.Name, err)
	}
	return query.NewTable(columns, data), nil
}
