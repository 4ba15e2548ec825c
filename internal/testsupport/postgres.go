package testsupport

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/postgres"
)

// PostgresTestHelper hands a test one transaction against the integration
// database. Everything the test writes through Tx disappears on rollback,
// so suites can run in parallel against one schema.
type PostgresTestHelper struct {
	client *postgres.Client
	tx     *sqlx.Tx
	done   bool
}

// NewTestPostgres is the common entry point: environment-driven config,
// connection, and a transaction that the cleanup hooks roll back.
func NewTestPostgres(t *testing.T) *PostgresTestHelper {
	t.Helper()
	return NewPostgresTestHelper(t, LoadDatabaseConfigsFromEnv(t).Postgres)
}

// NewPostgresTestHelper is the explicit-config variant.
func NewPostgresTestHelper(t *testing.T, cfg config.PostgresConfig) *PostgresTestHelper {
	t.Helper()

	client, err := postgres.NewClient(cfg)
	if err != nil {
		t.Fatalf("connect test postgres: %v", err)
	}

	tx, err := client.DB().BeginTxx(context.Background(), nil)
	if err != nil {
		_ = client.Close()
		t.Fatalf("begin test transaction: %v", err)
	}

	h := &PostgresTestHelper{client: client, tx: tx}
	t.Cleanup(h.Rollback)
	t.Cleanup(func() { _ = client.Close() })
	return h
}

// Tx is the rollback-isolated transaction.
func (h *PostgresTestHelper) Tx() *sqlx.Tx { return h.tx }

// DB bypasses the transaction for tests that exercise code owning its own
// transactions, such as ReplaceAll. Those tests must clean up after
// themselves.
func (h *PostgresTestHelper) DB() *sqlx.DB { return h.client.DB() }

// Rollback discards the test's writes. Safe to call more than once.
func (h *PostgresTestHelper) Rollback() {
	if h.done {
		return
	}
	h.done = true
	_ = h.tx.Rollback()
}

// Close is a readability alias for Rollback at call sites that pair it
// with a defer.
func (h *PostgresTestHelper) Close() { h.Rollback() }
