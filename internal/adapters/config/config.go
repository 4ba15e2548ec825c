package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Pipeline      PipelineConfig
	Training      TrainingConfig
	Monitoring    MonitoringConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"churn-pipeline"`
	Env         string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Port        int    `envconfig:"APP_PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
	ModelDir    string `envconfig:"MODEL_DIR" default:"models"`

	// KafkaEnabled gates event publishing; a local run without a broker
	// degrades events to debug logs.
	KafkaEnabled bool `envconfig:"KAFKA_ENABLED" default:"true"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"churn"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"churn-pipeline"`
}

// PipelineConfig holds the tuned business constants for feature computation,
// sample generation, and scoring. Day-count thresholds (30/15/10) are tuned,
// not derived, so they live in configuration rather than at call sites.
type PipelineConfig struct {
	// Label horizon: a positive sample means churn within this many days
	// of the reference date. Also the gap that confirms a churn.
	ChurnHorizonDays int `envconfig:"PIPELINE_CHURN_HORIZON_DAYS" default:"30"`

	// Mid horizon for positive samples (spell_end - MidHorizonDays)
	MidHorizonDays int `envconfig:"PIPELINE_MID_HORIZON_DAYS" default:"15"`

	// Members within this many days of registration are excluded (cold start)
	ColdStartDays int `envconfig:"PIPELINE_COLD_START_DAYS" default:"30"`

	// Contracts auto-renew on roughly this cycle; also the payment gap that
	// flips an open balance into forced default
	RenewalCycleDays int `envconfig:"PIPELINE_RENEWAL_CYCLE_DAYS" default:"30"`

	// Consecutive absence days that mark behavioral disengagement
	BehavioralAbsenceDays int `envconfig:"PIPELINE_BEHAVIORAL_ABSENCE_DAYS" default:"10"`

	// Risk tier thresholds on calibrated probability
	HighRiskThreshold   float64 `envconfig:"PIPELINE_HIGH_RISK_THRESHOLD" default:"0.70"`
	MediumRiskThreshold float64 `envconfig:"PIPELINE_MEDIUM_RISK_THRESHOLD" default:"0.40"`

	// Peak-hour window for the engagement ratio feature
	PeakHourStart int `envconfig:"PIPELINE_PEAK_HOUR_START" default:"17"`
	PeakHourEnd   int `envconfig:"PIPELINE_PEAK_HOUR_END" default:"21"`

	// Wall-clock budget for one scoring run; exceeding it is a
	// circuit-breaker condition, not a silent stall
	ScoringBudget time.Duration `envconfig:"PIPELINE_SCORING_BUDGET" default:"2h"`

	// Feature-query rate cap during scoring (members per second)
	ScoringRateLimit float64 `envconfig:"PIPELINE_SCORING_RATE_LIMIT" default:"200"`
}

type TrainingConfig struct {
	// Minimum churn events a validation window must contain. The window
	// auto-expands month by month until it does.
	MinPositivesPerFold int `envconfig:"TRAINING_MIN_POSITIVES_PER_FOLD" default:"200"`

	// Initial validation window width in months
	ValidationWindowMonths int `envconfig:"TRAINING_VALIDATION_WINDOW_MONTHS" default:"1"`

	// Months of data required before the first validation window
	WarmupMonths int `envconfig:"TRAINING_WARMUP_MONTHS" default:"6"`

	// Shadow-mode trial length before a candidate is promoted to production
	ShadowTrialDays int `envconfig:"TRAINING_SHADOW_TRIAL_DAYS" default:"7"`
}

type MonitoringConfig struct {
	// PSI above this is an ALERT (0.10..threshold is a WARNING)
	PSIAlertThreshold float64 `envconfig:"MONITORING_PSI_ALERT_THRESHOLD" default:"0.20"`

	// Predicted vs actual churn-rate ratio that flags concept drift
	ConceptDriftRatio float64 `envconfig:"MONITORING_CONCEPT_DRIFT_RATIO" default:"0.30"`

	// HIGH/MEDIUM hit rate below this recommends a retrain
	HitRateMinThreshold float64 `envconfig:"MONITORING_HIT_RATE_MIN" default:"0.50"`

	// Null-rate circuit breaker: general threshold and the relaxed one for
	// visit-derived features (a large member fraction never visits)
	NullRateBreaker      float64 `envconfig:"MONITORING_NULL_RATE_BREAKER" default:"0.05"`
	VisitNullRateBreaker float64 `envconfig:"MONITORING_VISIT_NULL_RATE_BREAKER" default:"0.45"`

	// Verification window: predictions younger than this are left pending
	VerificationWindowDays int `envconfig:"MONITORING_VERIFICATION_WINDOW_DAYS" default:"30"`

	// Bounded lookahead when matching churn outcomes to predictions
	OutcomeLookaheadDays int `envconfig:"MONITORING_OUTCOME_LOOKAHEAD_DAYS" default:"60"`

	// How far back the drift monitor reads verified outcomes for the
	// concept-drift and hit-rate checks
	OutcomeWindowMonths int `envconfig:"MONITORING_OUTCOME_WINDOW_MONTHS" default:"3"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains intervals for the background batch workers.
// The pipeline is a daily batch; intervals default accordingly.
type WorkerConfig struct {
	ScoringInterval      time.Duration `envconfig:"WORKER_SCORING_INTERVAL" default:"24h"`
	VerificationInterval time.Duration `envconfig:"WORKER_VERIFICATION_INTERVAL" default:"24h"`
	DriftCheckInterval   time.Duration `envconfig:"WORKER_DRIFT_CHECK_INTERVAL" default:"168h"`

	ScoringEnabled      bool `envconfig:"WORKER_SCORING_ENABLED" default:"true"`
	VerificationEnabled bool `envconfig:"WORKER_VERIFICATION_ENABLED" default:"true"`
	DriftCheckEnabled   bool `envconfig:"WORKER_DRIFT_CHECK_ENABLED" default:"true"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
