package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/clickhouse"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/feature"
)

// ClickHouseTestHelper manages cleanup for ClickHouse integration tests.
type ClickHouseTestHelper struct {
	client *clickhouse.Client
}

// NewClickHouseTestHelper creates a ClickHouse client for tests.
func NewClickHouseTestHelper(t *testing.T, cfg config.ClickHouseConfig) *ClickHouseTestHelper {
	t.Helper()

	client, err := clickhouse.NewClient(cfg)
	if err != nil {
		t.Fatalf("failed to connect to clickhouse: %v", err)
	}

	helper := &ClickHouseTestHelper{client: client}
	t.Cleanup(func() { _ = client.Close() })
	return helper
}

// CreateTempTable creates a temporary table and registers cleanup.
func (h *ClickHouseTestHelper) CreateTempTable(t *testing.T, schema string) string {
	t.Helper()

	table := fmt.Sprintf("tmp_test_%d", time.Now().UnixNano())
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = MergeTree() ORDER BY tuple()", table, schema)

	if err := h.client.Conn().Exec(context.Background(), query); err != nil {
		t.Fatalf("failed to create clickhouse table: %v", err)
	}

	t.Cleanup(func() {
		_ = h.client.Conn().Exec(context.Background(), fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
	})

	return table
}

// CleanupTable drops the table immediately
func (h *ClickHouseTestHelper) CleanupTable(ctx context.Context, table string) error {
	return h.client.Conn().Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
}

// TruncateTable removes all data from the table but keeps the structure
func (h *ClickHouseTestHelper) TruncateTable(ctx context.Context, table string) error {
	return h.client.Conn().Exec(ctx, fmt.Sprintf("TRUNCATE TABLE IF EXISTS %s", table))
}

// CleanupTableData deletes data matching a filter condition
// Example: CleanupTableData(ctx, "feature_snapshots", "model_version = 'vtest'")
func (h *ClickHouseTestHelper) CleanupTableData(ctx context.Context, table, condition string) error {
	query := fmt.Sprintf("ALTER TABLE %s DELETE WHERE %s", table, condition)
	return h.client.Conn().Exec(ctx, query)
}

// RegisterTableCleanup schedules cleanup of specific table data after test completes
// This is useful when working with shared tables that shouldn't be dropped
func (h *ClickHouseTestHelper) RegisterTableCleanup(t *testing.T, table, condition string) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// Use DELETE for immediate cleanup (ALTER TABLE DELETE is async)
		query := fmt.Sprintf("DELETE FROM %s WHERE %s", table, condition)
		_ = h.client.Conn().Exec(ctx, query)
	})
}

// Client exposes the raw ClickHouse client for queries.
func (h *ClickHouseTestHelper) Client() *clickhouse.Client {
	return h.client
}

// ========================================
// Fixtures
// ========================================

// SnapshotFixture builds feature snapshot rows for drift tests.
type SnapshotFixture struct {
	snapshot feature.Snapshot
}

// NewSnapshotFixture creates a fixture with a plausible mid-risk member.
func NewSnapshotFixture() *SnapshotFixture {
	f := &SnapshotFixture{
		snapshot: feature.Snapshot{
			MemberID:     int64(NextSequence()),
			ScoreDate:    time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
			ModelVersion: "vtest",
		},
	}
	v := &f.snapshot.Vector
	v.MemberID = f.snapshot.MemberID
	v.AsOf = f.snapshot.ScoreDate
	v.TenureDays = 365
	v.SpellDurationDays = 365
	v.ContractsInSpell = 2
	v.Visits7d = 2
	v.Visits14d = 3
	v.Visits30d = 6
	v.Visits90d = 21
	v.DaysSinceLastVisit = feature.Ptr(4.0)
	v.VisitTrend = feature.Ptr(0.85)
	v.AvgWeeklyVisits90d = 1.6
	v.HasEverVisited = 1
	v.DaysUntilContractEnd = feature.Ptr(45.0)
	v.AvgMonthlyPayment90d = 49.90
	v.PaymentRegularity90d = feature.Ptr(1.0)
	v.MonthOfYear = float64(f.snapshot.ScoreDate.Month())
	v.Gender = 0.5
	return f
}

// WithMember sets the member ID on both the row and its vector.
func (f *SnapshotFixture) WithMember(id int64) *SnapshotFixture {
	f.snapshot.MemberID = id
	f.snapshot.Vector.MemberID = id
	return f
}

// WithScoreDate sets the score date.
func (f *SnapshotFixture) WithScoreDate(d time.Time) *SnapshotFixture {
	f.snapshot.ScoreDate = d
	f.snapshot.Vector.AsOf = d
	return f
}

// WithModelVersion sets the model version label.
func (f *SnapshotFixture) WithModelVersion(v string) *SnapshotFixture {
	f.snapshot.ModelVersion = v
	return f
}

// WithVisits30d overrides the 30 day visit count.
func (f *SnapshotFixture) WithVisits30d(n float64) *SnapshotFixture {
	f.snapshot.Vector.Visits30d = n
	return f
}

// Absent marks the member as not having visited recently.
func (f *SnapshotFixture) Absent(days float64) *SnapshotFixture {
	v := &f.snapshot.Vector
	v.DaysSinceLastVisit = feature.Ptr(days)
	v.Visits7d = 0
	v.Visits14d = 0
	v.Visits30d = 0
	v.VisitTrend = feature.Ptr(0.0)
	return f
}

// Build returns the snapshot.
func (f *SnapshotFixture) Build() *feature.Snapshot {
	s := f.snapshot
	return &s
}

// BuildMany returns count snapshots with sequential member IDs.
func (f *SnapshotFixture) BuildMany(count int) []*feature.Snapshot {
	out := make([]*feature.Snapshot, count)
	for i := 0; i < count; i++ {
		s := f.snapshot
		s.MemberID = f.snapshot.MemberID + int64(i)
		s.Vector.MemberID = s.MemberID
		out[i] = &s
	}
	return out
}
