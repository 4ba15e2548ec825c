package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// Client owns the native-protocol connection to the analytical store.
// Feature snapshots land here; drift checks read their columns back.
type Client struct {
	conn driver.Conn
}

// NewClient opens and verifies the connection. LZ4 compression keeps the
// wide snapshot inserts cheap on the wire.
func NewClient(cfg config.ClickHouseConfig) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "open clickhouse")
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, errors.Wrap(err, "ping clickhouse")
	}

	return &Client{conn: conn}, nil
}

// Conn exposes the native connection for the repository layer.
func (c *Client) Conn() driver.Conn { return c.conn }

func (c *Client) Close() error { return c.conn.Close() }
