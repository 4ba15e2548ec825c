package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "churn_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "churn_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Scoring metrics
	MembersScored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_members_scored_total",
			Help: "Total members scored",
		},
		[]string{"status"}, // status: success|feature_error
	)

	ScoringDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "churn_scoring_run_duration_seconds",
			Help:    "Daily scoring run duration in seconds",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1800, 3600, 7200},
		},
	)

	RiskTierMembers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "churn_risk_tier_members",
			Help: "Members per risk tier after the latest scoring run",
		},
		[]string{"tier"},
	)

	ChurnProbability = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "churn_probability_distribution",
			Help:    "Calibrated churn probability distribution",
			Buckets: prometheus.LinearBuckets(0.05, 0.05, 19),
		},
	)

	// Feature pipeline metrics
	FeatureComputations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_feature_computations_total",
			Help: "Total feature vector computations",
		},
		[]string{"status"}, // status: success|error
	)

	FeatureNullRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "churn_feature_null_rate",
			Help: "Null rate per feature in the latest scoring run",
		},
		[]string{"feature"},
	)

	TrainingSamples = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "churn_training_samples",
			Help: "Training samples by label after the latest rebuild",
		},
		[]string{"label"}, // label: churn|active
	)

	// Model metrics
	ModelEvaluation = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "churn_model_evaluation",
			Help: "Held-out evaluation metrics of the latest trained model",
		},
		[]string{"model_version", "metric"},
	)

	// Monitoring metrics
	FeaturePSI = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "churn_feature_psi",
			Help: "Population stability index per feature vs training reference",
		},
		[]string{"feature"},
	)

	ScorePSI = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "churn_score_psi",
			Help: "Population stability index of the score distribution",
		},
	)

	HitRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "churn_hit_rate",
			Help: "Verified hit rate per risk tier",
		},
		[]string{"tier"},
	)

	CircuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_circuit_breaker_trips_total",
			Help: "Total number of data-quality circuit breaker activations",
		},
		[]string{"check"},
	)

	// Verification metrics
	OutcomesVerified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_outcomes_verified_total",
			Help: "Verified prediction outcomes by category",
		},
		[]string{"category"},
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|clickhouse|redis
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "churn_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"database", "operation"},
	)

	// System metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_kafka_messages_total",
			Help: "Total Kafka messages produced",
		},
		[]string{"topic", "status"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	// Worker metrics
	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)

	// Scoring metrics
	prometheus.MustRegister(MembersScored)
	prometheus.MustRegister(ScoringDuration)
	prometheus.MustRegister(RiskTierMembers)
	prometheus.MustRegister(ChurnProbability)

	// Feature pipeline metrics
	prometheus.MustRegister(FeatureComputations)
	prometheus.MustRegister(FeatureNullRate)
	prometheus.MustRegister(TrainingSamples)

	// Model metrics
	prometheus.MustRegister(ModelEvaluation)

	// Monitoring metrics
	prometheus.MustRegister(FeaturePSI)
	prometheus.MustRegister(ScorePSI)
	prometheus.MustRegister(HitRate)
	prometheus.MustRegister(CircuitBreakerTrips)

	// Verification metrics
	prometheus.MustRegister(OutcomesVerified)

	// Database metrics
	prometheus.MustRegister(DBQueries)
	prometheus.MustRegister(DBQueryDuration)

	// System metrics
	prometheus.MustRegister(KafkaMessages)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordDBQuery records a database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	DBQueries.WithLabelValues(database, operation, status).Inc()
	DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}
