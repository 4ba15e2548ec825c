package metrics

import (
	"context"
	"time"

	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// CustomCollector collects pipeline state metrics from the databases
type CustomCollector struct {
	log        *logger.Logger
	postgres   *sqlx.DB
	clickhouse driver.Conn
	redis      *redis.Client

	// Descriptors
	activeMembers     *prometheus.Desc
	predictionsByTier *prometheus.Desc
	unverifiedRecords *prometheus.Desc
	snapshotRows24h   *prometheus.Desc
	productionModel   *prometheus.Desc
	trainingSamples   *prometheus.Desc
}

// NewCustomCollector creates a new pipeline state collector
func NewCustomCollector(log *logger.Logger, postgres *sqlx.DB, clickhouse driver.Conn, redis *redis.Client) *CustomCollector {
	return &CustomCollector{
		log:        log,
		postgres:   postgres,
		clickhouse: clickhouse,
		redis:      redis,

		activeMembers: prometheus.NewDesc(
			"churn_active_members",
			"Members with an open membership spell",
			nil, nil,
		),
		predictionsByTier: prometheus.NewDesc(
			"churn_current_predictions",
			"Rows in the current prediction table by risk tier",
			[]string{"tier"}, nil,
		),
		unverifiedRecords: prometheus.NewDesc(
			"churn_unverified_history_records",
			"Prediction history rows awaiting outcome verification",
			nil, nil,
		),
		snapshotRows24h: prometheus.NewDesc(
			"churn_feature_snapshots_24h",
			"Feature snapshots written to the analytical store in last 24h",
			nil, nil,
		),
		productionModel: prometheus.NewDesc(
			"churn_production_model_info",
			"Production model version (value is always 1)",
			[]string{"model_version"}, nil,
		),
		trainingSamples: prometheus.NewDesc(
			"churn_training_samples_stored",
			"Training samples in the store by label",
			[]string{"label"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *CustomCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeMembers
	ch <- c.predictionsByTier
	ch <- c.unverifiedRecords
	ch <- c.snapshotRows24h
	ch <- c.productionModel
	ch <- c.trainingSamples
}

// Collect implements prometheus.Collector
func (c *CustomCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectActiveMembers(ctx, ch)
	c.collectPredictionStats(ctx, ch)
	c.collectUnverifiedRecords(ctx, ch)
	c.collectSnapshotRows(ctx, ch)
	c.collectProductionModel(ctx, ch)
	c.collectTrainingSamples(ctx, ch)
}

func (c *CustomCollector) collectActiveMembers(ctx context.Context, ch chan<- prometheus.Metric) {
	var count int
	err := c.postgres.GetContext(ctx, &count, `
		SELECT COUNT(DISTINCT member_id)
		FROM membership_spells
		WHERE end_date IS NULL
	`)
	if err != nil {
		c.log.Error("Failed to collect active member count", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.activeMembers,
		prometheus.GaugeValue,
		float64(count),
	)
}

func (c *CustomCollector) collectPredictionStats(ctx context.Context, ch chan<- prometheus.Metric) {
	type TierStat struct {
		Tier  string `db:"risk_tier"`
		Count int    `db:"count"`
	}

	var stats []TierStat
	err := c.postgres.SelectContext(ctx, &stats, `
		SELECT risk_tier, COUNT(*) as count
		FROM member_predictions
		GROUP BY risk_tier
	`)
	if err != nil {
		c.log.Error("Failed to collect prediction stats", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(
			c.predictionsByTier,
			prometheus.GaugeValue,
			float64(stat.Count),
			stat.Tier,
		)
	}
}

func (c *CustomCollector) collectUnverifiedRecords(ctx context.Context, ch chan<- prometheus.Metric) {
	var count int
	err := c.postgres.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM member_prediction_history
		WHERE verified_at IS NULL
	`)
	if err != nil {
		c.log.Error("Failed to collect unverified record count", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.unverifiedRecords,
		prometheus.GaugeValue,
		float64(count),
	)
}

func (c *CustomCollector) collectSnapshotRows(ctx context.Context, ch chan<- prometheus.Metric) {
	if c.clickhouse == nil {
		return
	}

	var count uint64
	row := c.clickhouse.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM feature_snapshots
		WHERE score_date > now() - INTERVAL 24 HOUR
	`)
	if err := row.Scan(&count); err != nil {
		c.log.Error("Failed to collect snapshot row count", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.snapshotRows24h,
		prometheus.GaugeValue,
		float64(count),
	)
}

func (c *CustomCollector) collectProductionModel(ctx context.Context, ch chan<- prometheus.Metric) {
	if c.redis == nil {
		return
	}

	version, err := c.redis.Get(ctx, "churn:model:active").Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Error("Failed to collect production model version", "error", err)
		}
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.productionModel,
		prometheus.GaugeValue,
		1,
		version,
	)
}

func (c *CustomCollector) collectTrainingSamples(ctx context.Context, ch chan<- prometheus.Metric) {
	type LabelStat struct {
		Label string `db:"label_type"`
		Count int    `db:"count"`
	}

	var stats []LabelStat
	err := c.postgres.SelectContext(ctx, &stats, `
		SELECT label_type, COUNT(*) as count
		FROM training_samples
		GROUP BY label_type
	`)
	if err != nil {
		c.log.Error("Failed to collect training sample stats", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(
			c.trainingSamples,
			prometheus.GaugeValue,
			float64(stat.Count),
			stat.Label,
		)
	}
}

// RegisterCustomCollector registers the custom collector
func RegisterCustomCollector(collector *CustomCollector) {
	prometheus.MustRegister(collector)
}
