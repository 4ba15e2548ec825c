package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver registration

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// Pool tuning for a batch workload: connections sit idle between nightly
// runs, then the scoring pass fans out, so idle connections are recycled
// aggressively while the open ceiling stays at the configured max.
const (
	connMaxLifetime = time.Hour
	connMaxIdleTime = 30 * time.Minute
)

// Client owns the Postgres connection pool that backs the operational
// store: members, visits, contracts, samples and prediction history.
type Client struct {
	db *sqlx.DB
}

// NewClient connects and verifies the pool before handing it out.
func NewClient(cfg config.PostgresConfig) (*Client, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns / 2)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, errors.Wrap(err, "ping postgres")
	}

	return &Client{db: db}, nil
}

// DB exposes the pool for the repository layer.
func (c *Client) DB() *sqlx.DB { return c.db }

func (c *Client) Close() error { return c.db.Close() }
