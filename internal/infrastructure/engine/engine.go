// Package engine opens the configured analytical engine behind a recovering
// query gateway.
package engine

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/salesinsight/backend/internal/infrastructure/athena"
	infraconfig "github.com/salesinsight/backend/internal/infrastructure/config"
	"github.com/salesinsight/backend/internal/infrastructure/query"
	"github.com/salesinsight/backend/internal/infrastructure/warehouse"
)

// Connection is an opened engine.
type Connection struct {
	// Gateway never returns engine failures; see query.Recovering.
	Gateway query.Gateway
	// DB is the warehouse pool for the postgres driver, nil for athena.
	DB *sql.DB
}

// Close releases the warehouse pool, if any.
func (c *Connection) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// Open connects to the engine selected by cfg.Warehouse.Driver. recorder may
// be nil.
func Open(ctx context.Context, cfg *infraconfig.Config, logger *zap.Logger, recorder query.Recorder) (*Connection, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		raw  query.Gateway
		conn = &Connection{}
	)
	switch cfg.Warehouse.Driver {
	case "", "athena":
		client, err := athena.NewClient(ctx, cfg.Athena)
		if err != nil {
			return nil, err
		}
		raw = athena.New(client, cfg.Athena, athena.WithLogger(logger))
	case "postgres":
		db, err := warehouse.Open(ctx, &cfg.Warehouse)
		if err != nil {
			return nil, err
		}
		conn.DB = db
		raw = warehouse.New(db)
	default:
		return nil, fmt.Errorf("unknown warehouse driver %q", cfg.Warehouse.Driver)
	}

	logger.Info("Analytics engine ready", zap.String("engine", raw.Engine()))
	conn.Gateway = query.NewRecovering(raw, logger, recorder)
	return conn, nil
}
